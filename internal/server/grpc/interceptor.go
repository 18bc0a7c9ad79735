package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "github.com/dmitrijs2005/knifecatalog/internal/proto"
)

type policy int

const (
	policyAuthenticated policy = iota
	policyPublic
	policyAdmin
)

// methodPolicies lists who may call each method. Methods missing here
// require a valid token.
var methodPolicies = map[string]policy{
	pb.CatalogService_Register_FullMethodName:   policyPublic,
	pb.CatalogService_Login_FullMethodName:      policyPublic,
	pb.CatalogService_Refresh_FullMethodName:    policyPublic,
	pb.CatalogService_ListItems_FullMethodName:  policyPublic,
	pb.CatalogService_DeleteItem_FullMethodName: policyAdmin,
}

type ctxKey string

const userKey ctxKey = "user"

func userFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

func tokenFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return "", false
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(values[0]), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	p, ok := methodPolicies[info.FullMethod]
	if !ok {
		p = policyAuthenticated
	}
	if p == policyPublic {
		return handler(ctx, req)
	}

	token, ok := tokenFromMetadata(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.users.Authorize(ctx, token, p == policyAdmin)
	if err != nil {
		return nil, toStatus(err)
	}

	return handler(context.WithValue(ctx, userKey, user), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}
