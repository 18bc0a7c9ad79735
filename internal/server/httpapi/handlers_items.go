package httpapi

import (
	"errors"
	"mime/multipart"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type ItemResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Manufacturer string    `json:"manufacturer"`
	SKU          string    `json:"sku"`
	Price        float64   `json:"price"`
	Available    bool      `json:"available"`
	Description  string    `json:"description"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *HTTPServer) itemResponse(c *fiber.Ctx, item *models.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Manufacturer: item.Manufacturer,
		SKU:          item.SKU,
		Price:        item.Price,
		Available:    item.Available,
		Description:  item.Description,
		PhotoURL:     s.items.PhotoURL(c.UserContext(), item),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

func itemID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrorNotFound
	}
	return id, nil
}

// photoUpload returns the "photo" file of a multipart request, or nil when none was sent.
func photoUpload(c *fiber.Ctx) (*services.Upload, func(), error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, func() {}, nil
		}
		return nil, func() {}, invalid(err)
	}
	if fh.Size == 0 {
		return nil, func() {}, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: contentType(fh),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get(fiber.HeaderContentType); ct != "" {
		return ct
	}
	return fiber.MIMEOctetStream
}

func (s *HTTPServer) listItems(c *fiber.Ctx) error {
	items, err := s.items.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, s.itemResponse(c, it))
	}
	return c.JSON(out)
}

func (s *HTTPServer) getItem(c *fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	item, err := s.items.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(s.itemResponse(c, item))
}

func (s *HTTPServer) getItemBySKU(c *fiber.Ctx) error {
	item, err := s.items.GetBySKU(c.UserContext(), c.Params("sku"))
	if err != nil {
		return err
	}
	return c.JSON(s.itemResponse(c, item))
}

func (s *HTTPServer) createItem(c *fiber.Ctx) error {
	item, err := s.doCreate(c)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.itemResponse(c, item))
}

func (s *HTTPServer) updateItem(c *fiber.Ctx) error {
	item, err := s.doUpdate(c)
	if err != nil {
		return err
	}
	return c.JSON(s.itemResponse(c, item))
}

func (s *HTTPServer) deleteItem(c *fiber.Ctx) error {
	if err := s.doDelete(c); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) doCreate(c *fiber.Ctx) (*models.Item, error) {
	req, err := parseItemRequest(c)
	if err != nil {
		return nil, err
	}
	if err := req.ValidateCreate(); err != nil {
		return nil, invalid(err)
	}

	photo, closePhoto, err := photoUpload(c)
	if err != nil {
		return nil, err
	}
	defer closePhoto()

	item, err := s.items.Create(c.UserContext(), req.input(), photo)
	if err != nil {
		return nil, err
	}
	s.logger.Info(c.UserContext(), "item created via http", "id", item.ID, "by", currentUser(c).UserName)
	return item, nil
}

func (s *HTTPServer) doUpdate(c *fiber.Ctx) (*models.Item, error) {
	id, err := itemID(c)
	if err != nil {
		return nil, err
	}
	req, err := parseItemRequest(c)
	if err != nil {
		return nil, err
	}
	if err := req.ValidateUpdate(); err != nil {
		return nil, invalid(err)
	}

	photo, closePhoto, err := photoUpload(c)
	if err != nil {
		return nil, err
	}
	defer closePhoto()

	return s.items.Update(c.UserContext(), id, req.patch(), photo)
}

func (s *HTTPServer) doDelete(c *fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return err
	}
	return s.items.Delete(c.UserContext(), id)
}

// photo streams a locally stored photo.
func (s *HTTPServer) photo(c *fiber.Ctx) error {
	key := strings.TrimPrefix(c.Params("*"), "/")
	rc, err := s.items.OpenPhoto(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return common.ErrorNotFound
		}
		return err
	}

	if ext := path.Ext(key); ext != "" {
		c.Type(ext)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	return c.SendStream(rc)
}
