package httpapi

import (
	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func newTokenResponse(pair *services.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    common.TokenTypeBearer,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		RefreshToken: pair.RefreshToken,
	}
}

type UserResponse struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

func (s *HTTPServer) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(err)
	}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	if _, err := s.users.Register(c.UserContext(), req.Username, req.Password, req.IsAdmin); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User created successfully"})
}

func (s *HTTPServer) token(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(err)
	}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	pair, err := s.users.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(newTokenResponse(pair))
}

func (s *HTTPServer) refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(err)
	}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	pair, err := s.users.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(newTokenResponse(pair))
}

func (s *HTTPServer) logout(c *fiber.Ctx) error {
	var req LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalid(err)
		}
	}

	token, _ := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err := s.users.Logout(c.UserContext(), token, req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (s *HTTPServer) me(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return common.ErrorUnauthorized
	}
	return c.JSON(UserResponse{Username: user.UserName, IsAdmin: user.IsAdmin})
}
