// Package common contains shared constants and sentinel errors used across
// knifecatalog components.
package common

// AuthorizationHeaderName is the HTTP header / gRPC metadata key that carries
// the bearer access token.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "bearer"

// TokenTypeBearer is reported as token_type in token responses.
const TokenTypeBearer = "bearer"
