package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
)

// KnifeResponse is the item shape of the legacy knife routes.
type KnifeResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Manufacturer string  `json:"manufacturer"`
	Article      string  `json:"article"`
	Price        float64 `json:"price"`
	Status       bool    `json:"status"`
	Description  string  `json:"description"`
	Photo        *string `json:"photo"`
}

func (s *HTTPServer) knifeResponse(c *fiber.Ctx, item *models.Item) KnifeResponse {
	k := KnifeResponse{
		ID:           item.ID,
		Name:         item.Name,
		Manufacturer: item.Manufacturer,
		Article:      item.SKU,
		Price:        item.Price,
		Status:       item.Available,
		Description:  item.Description,
	}
	if u := s.items.PhotoURL(c.UserContext(), item); u != "" {
		k.Photo = &u
	}
	return k
}

func (s *HTTPServer) legacyListKnives(c *fiber.Ctx) error {
	items, err := s.items.List(c.UserContext())
	if err != nil {
		return err
	}
	knives := make([]KnifeResponse, 0, len(items))
	for _, it := range items {
		knives = append(knives, s.knifeResponse(c, it))
	}
	return c.JSON(fiber.Map{"knives": knives})
}

func (s *HTTPServer) legacyKnifeByArticle(c *fiber.Ctx) error {
	article := c.Query("article")
	if article == "" {
		return invalid(validation.Errors{"article": errors.New("cannot be blank")})
	}
	item, err := s.items.GetBySKU(c.UserContext(), article)
	if err != nil {
		return err
	}
	return c.JSON(s.knifeResponse(c, item))
}

func (s *HTTPServer) legacyAddKnife(c *fiber.Ctx) error {
	item, err := s.doCreate(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Knife added successfully", "knife": s.knifeResponse(c, item)})
}

func (s *HTTPServer) legacyEditKnife(c *fiber.Ctx) error {
	item, err := s.doUpdate(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Knife updated successfully", "knife": s.knifeResponse(c, item)})
}

func (s *HTTPServer) legacyDeleteKnife(c *fiber.Ctx) error {
	if err := s.doDelete(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Knife deleted successfully"})
}
