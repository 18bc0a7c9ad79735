package grpc

import (
	"errors"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error to a gRPC status with the same messages the
// HTTP API uses.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, "Username already registered")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "Invalid credentials")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "Could not validate credentials")
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "Not enough permissions")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "Not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	}
	return status.Error(codes.Internal, "internal error")
}
