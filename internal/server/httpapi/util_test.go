package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{common.ErrDuplicateUsername, http.StatusBadRequest},
		{common.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired), http.StatusUnauthorized},
		{common.ErrInvalidToken, http.StatusUnauthorized},
		{common.ErrRefreshTokenExpired, http.StatusUnauthorized},
		{common.ErrorForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: name: cannot be blank", common.ErrorValidation), http.StatusBadRequest},
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrorAlreadyExists, http.StatusConflict},
		{fiber.ErrRequestEntityTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, detail := statusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotEmpty(t, detail)
	}

	_, detail := statusFor(fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrorNotFound))
	assert.Equal(t, detailUnauthorized, detail)
	_, detail = statusFor(errors.New("pq: password authentication failed"))
	assert.Equal(t, detailInternal, detail)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
