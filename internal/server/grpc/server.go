// Package grpc exposes the catalog over gRPC using the protobuf service in
// internal/proto. Access control is enforced per method by a unary interceptor.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	"google.golang.org/grpc"

	pb "github.com/dmitrijs2005/knifecatalog/internal/proto"
)

type userService interface {
	Register(ctx context.Context, username, password string, isAdmin bool) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authorize(ctx context.Context, token string, adminOnly bool) (*models.User, error)
}

type itemService interface {
	List(ctx context.Context) ([]*models.Item, error)
	Delete(ctx context.Context, id int64) error
	PhotoURL(ctx context.Context, item *models.Item) string
}

type GRPCServer struct {
	pb.UnimplementedCatalogServiceServer

	address string
	users   userService
	items   itemService
	logger  logging.Logger
}

var _ pb.CatalogServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us *services.UserService, is *services.ItemService) *GRPCServer {
	return newGRPCServer(a, l, us, is)
}

func newGRPCServer(a string, l logging.Logger, us userService, is itemService) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		items:   is,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	pb.RegisterCatalogServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
