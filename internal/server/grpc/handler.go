package grpc

import (
	"context"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/dmitrijs2005/knifecatalog/internal/proto"
)

func newTokenResponse(pair *services.TokenPair) *pb.TokenResponse {
	return &pb.TokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    common.TokenTypeBearer,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		RefreshToken: pair.RefreshToken,
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.RegisterResponse, error) {
	user, err := s.users.Register(ctx, req.GetUsername(), req.GetPassword(), req.GetIsAdmin())
	if err != nil {
		st := toStatus(err)
		if status.Code(st) == codes.Internal {
			s.logger.Error(ctx, "register failed", "error", err)
		}
		return nil, st
	}

	s.logger.Info(ctx, "Registered", "username", user.UserName, "admin", user.IsAdmin)
	return &pb.RegisterResponse{Id: user.ID, Username: user.UserName}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.TokenResponse, error) {
	pair, err := s.users.Login(ctx, req.GetUsername(), req.GetPassword())
	if err != nil {
		return nil, toStatus(err)
	}
	return newTokenResponse(pair), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *pb.RefreshRequest) (*pb.TokenResponse, error) {
	if req.GetRefreshToken() == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token: cannot be blank")
	}
	pair, err := s.users.RefreshToken(ctx, req.GetRefreshToken())
	if err != nil {
		return nil, toStatus(err)
	}
	return newTokenResponse(pair), nil
}

func (s *GRPCServer) ListItems(ctx context.Context, _ *pb.ListItemsRequest) (*pb.ListItemsResponse, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		s.logger.Error(ctx, "list items failed", "error", err)
		return nil, toStatus(err)
	}

	resp := &pb.ListItemsResponse{Items: make([]*pb.Item, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, &pb.Item{
			Id:           it.ID,
			Name:         it.Name,
			Manufacturer: it.Manufacturer,
			Sku:          it.SKU,
			Price:        it.Price,
			Available:    it.Available,
			Description:  it.Description,
			PhotoUrl:     s.items.PhotoURL(ctx, it),
		})
	}
	return resp, nil
}

func (s *GRPCServer) DeleteItem(ctx context.Context, req *pb.DeleteItemRequest) (*pb.DeleteItemResponse, error) {
	if err := s.items.Delete(ctx, req.GetId()); err != nil {
		return nil, toStatus(err)
	}

	if user, ok := userFromContext(ctx); ok {
		s.logger.Info(ctx, "item deleted via grpc", "id", req.GetId(), "by", user.UserName)
	}
	return &pb.DeleteItemResponse{}, nil
}
