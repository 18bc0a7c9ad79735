package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/server/auth"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	IsAdmin  bool   `json:"is_admin" form:"is_admin"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 150)),
		validation.Field(&r.Password, validation.Required, validation.By(maxBytes(auth.MaxPasswordLength))),
	)
}

// TokenRequest is the OAuth2 password-grant form of POST /token.
type TokenRequest struct {
	GrantType string `json:"grant_type" form:"grant_type"`
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
}

func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.GrantType, validation.In("password")),
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest is the body of POST /token/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// LogoutRequest is the optional body of POST /logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// ItemRequest carries the item form fields. Absent fields stay nil so the
// same type serves creation and partial updates.
type ItemRequest struct {
	Name         *string  `json:"name"`
	Manufacturer *string  `json:"manufacturer"`
	SKU          *string  `json:"sku"`
	Price        *float64 `json:"price"`
	Available    *bool    `json:"available"`
	Description  *string  `json:"description"`
}

// ValidateCreate requires the fields a new item cannot do without.
func (r ItemRequest) ValidateCreate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Manufacturer, validation.Length(0, 255)),
		validation.Field(&r.SKU, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Price, validation.NotNil, validation.Min(0.0)),
	)
}

// ValidateUpdate only checks the fields that are present.
func (r ItemRequest) ValidateUpdate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&r.Manufacturer, validation.Length(0, 255)),
		validation.Field(&r.SKU, validation.NilOrNotEmpty, validation.Length(1, 64)),
		validation.Field(&r.Price, validation.Min(0.0)),
	)
}

func (r ItemRequest) input() services.ItemInput {
	in := services.ItemInput{Available: true}
	if r.Name != nil {
		in.Name = *r.Name
	}
	if r.Manufacturer != nil {
		in.Manufacturer = *r.Manufacturer
	}
	if r.SKU != nil {
		in.SKU = *r.SKU
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.Available != nil {
		in.Available = *r.Available
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	return in
}

func (r ItemRequest) patch() services.ItemPatch {
	return services.ItemPatch{
		Name:         r.Name,
		Manufacturer: r.Manufacturer,
		SKU:          r.SKU,
		Price:        r.Price,
		Available:    r.Available,
		Description:  r.Description,
	}
}

// parseItemRequest reads the item fields from a urlencoded or multipart
// body. "article" and "status" are accepted as aliases of "sku" and "available".
func parseItemRequest(c *fiber.Ctx) (ItemRequest, error) {
	var r ItemRequest

	str := func(keys ...string) *string {
		for _, k := range keys {
			if v, ok := formValue(c, k); ok {
				return &v
			}
		}
		return nil
	}

	r.Name = str("name")
	r.Manufacturer = str("manufacturer")
	r.SKU = str("sku", "article")
	r.Description = str("description")

	if v := str("price"); v != nil {
		price, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
		if err != nil {
			return r, invalid(validation.Errors{"price": errors.New("must be a number")})
		}
		r.Price = &price
	}
	if v := str("available", "status"); v != nil {
		available, err := parseBool(*v)
		if err != nil {
			return r, invalid(validation.Errors{"available": errors.New("must be a boolean")})
		}
		r.Available = &available
	}
	return r, nil
}

// formValue reports a form field and whether it was sent at all.
func formValue(c *fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil {
		if v := form.Value[key]; len(v) > 0 {
			return v[0], true
		}
		return "", false
	}
	args := c.Request().PostArgs()
	if args.Has(key) {
		return string(args.Peek(key)), true
	}
	return "", false
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

func maxBytes(n int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(s) > n {
			return fmt.Errorf("must be at most %d bytes long", n)
		}
		return nil
	}
}

// invalid marks err as a client input problem.
func invalid(err error) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
}
