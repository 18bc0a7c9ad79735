package catalogctl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/knifecatalog/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	pb "github.com/dmitrijs2005/knifecatalog/internal/proto"
)

type fakeClient struct {
	login    *pb.LoginRequest
	deleted  int64
	auth     []string
	items    []*pb.Item
	err      error
	closed   bool
	dialAddr string
}

func (f *fakeClient) Login(_ context.Context, in *pb.LoginRequest, _ ...grpc.CallOption) (*pb.TokenResponse, error) {
	f.login = in
	if f.err != nil {
		return nil, f.err
	}
	return &pb.TokenResponse{AccessToken: "access-token"}, nil
}

func (f *fakeClient) ListItems(context.Context, *pb.ListItemsRequest, ...grpc.CallOption) (*pb.ListItemsResponse, error) {
	return &pb.ListItemsResponse{Items: f.items}, f.err
}

func (f *fakeClient) DeleteItem(ctx context.Context, in *pb.DeleteItemRequest, _ ...grpc.CallOption) (*pb.DeleteItemResponse, error) {
	md, _ := metadata.FromOutgoingContext(ctx)
	f.auth = md.Get("authorization")
	f.deleted = in.GetId()
	return &pb.DeleteItemResponse{}, f.err
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func stubDial(t *testing.T, f *fakeClient) {
	t.Helper()
	old := dialCatalog
	t.Cleanup(func() { dialCatalog = old })
	dialCatalog = func(addr string) (catalogClient, io.Closer, error) {
		f.dialAddr = addr
		return f, f, nil
	}
}

func stubPasswords(t *testing.T, pw ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(pw) == 0 {
			return nil, errors.New("no more input")
		}
		next := pw[0]
		pw = pw[1:]
		return []byte(next), nil
	}
}

func stubEnsureAdmin(t *testing.T) *[]string {
	t.Helper()
	t.Setenv("CATALOG_SECRET_KEY", "ctl-secret")
	var got []string
	old := ensureAdmin
	t.Cleanup(func() { ensureAdmin = old })
	ensureAdmin = func(_ context.Context, _ *config.Config, username, password string) error {
		got = append(got, username, password)
		return nil
	}
	return &got
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	app := NewApp(strings.NewReader(""), &out)

	err := app.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, out.String(), "usage: catalogctl")

	err = app.Run(context.Background(), []string{"frobnicate"})
	assert.ErrorIs(t, err, ErrUsage)

	assert.NoError(t, app.Run(context.Background(), []string{"help"}))
}

func TestCreateAdmin_Prompts(t *testing.T) {
	got := stubEnsureAdmin(t)
	stubPasswords(t, "s3cret", "s3cret")

	var out bytes.Buffer
	app := NewApp(strings.NewReader("root\n"), &out)
	require.NoError(t, app.Run(context.Background(), []string{"create-admin"}))

	assert.Equal(t, []string{"root", "s3cret"}, *got)
	assert.Contains(t, out.String(), `admin "root" is ready`)
}

func TestCreateAdmin_NameFlag(t *testing.T) {
	got := stubEnsureAdmin(t)
	stubPasswords(t, "pw", "pw")

	app := NewApp(strings.NewReader(""), io.Discard)
	require.NoError(t, app.Run(context.Background(), []string{"create-admin", "-name", "boss"}))
	assert.Equal(t, []string{"boss", "pw"}, *got)
}

func TestCreateAdmin_PasswordMismatch(t *testing.T) {
	got := stubEnsureAdmin(t)
	stubPasswords(t, "one", "two")

	app := NewApp(strings.NewReader("root\n"), io.Discard)
	err := app.Run(context.Background(), []string{"create-admin"})
	assert.ErrorIs(t, err, ErrUsage)
	assert.Empty(t, *got)
}

func TestCreateAdmin_NeedsSecret(t *testing.T) {
	got := stubEnsureAdmin(t)
	t.Setenv("CATALOG_SECRET_KEY", "")
	t.Setenv("CATALOG_DEV_MODE", "")

	app := NewApp(strings.NewReader("root\n"), io.Discard)
	err := app.Run(context.Background(), []string{"create-admin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires dev mode")
	assert.Empty(t, *got)

	stubPasswords(t, "pw", "pw")
	app = NewApp(strings.NewReader("root\n"), io.Discard)
	require.NoError(t, app.Run(context.Background(), []string{"create-admin", "-dev"}))
	assert.Equal(t, []string{"root", "pw"}, *got)
}

func TestCreateAdmin_EmptyPassword(t *testing.T) {
	stubEnsureAdmin(t)
	stubPasswords(t, "", "")

	app := NewApp(strings.NewReader("root\n"), io.Discard)
	assert.ErrorIs(t, app.Run(context.Background(), []string{"create-admin"}), ErrUsage)
}

func TestLogin(t *testing.T) {
	f := &fakeClient{}
	stubDial(t, f)
	stubPasswords(t, "pw")

	var out bytes.Buffer
	app := NewApp(strings.NewReader(""), &out)
	require.NoError(t, app.Run(context.Background(), []string{"login", "-addr", "catalog:1", "-u", "alice"}))

	assert.Equal(t, "catalog:1", f.dialAddr)
	require.NotNil(t, f.login)
	assert.Equal(t, "alice", f.login.GetUsername())
	assert.Equal(t, "pw", f.login.GetPassword())
	assert.Equal(t, "access-token\n", out.String())
	assert.True(t, f.closed)
}

func TestLogin_Error(t *testing.T) {
	f := &fakeClient{err: errors.New("unauthenticated")}
	stubDial(t, f)
	stubPasswords(t, "pw")

	app := NewApp(strings.NewReader("alice\n"), io.Discard)
	assert.Error(t, app.Run(context.Background(), []string{"login"}))
	assert.Equal(t, "alice", f.login.Username)
}

func TestItems(t *testing.T) {
	f := &fakeClient{items: []*pb.Item{{Id: 1, Sku: "KZ-001", Name: "Hunter", Price: 10, Available: true}}}
	stubDial(t, f)

	var out bytes.Buffer
	app := NewApp(strings.NewReader(""), &out)
	require.NoError(t, app.Run(context.Background(), []string{"items"}))

	assert.Equal(t, "localhost:50051", f.dialAddr)
	assert.Contains(t, out.String(), "KZ-001")
	assert.Contains(t, out.String(), "10.00")
}

func TestDeleteItem(t *testing.T) {
	f := &fakeClient{}
	stubDial(t, f)

	var out bytes.Buffer
	app := NewApp(strings.NewReader(""), &out)

	err := app.Run(context.Background(), []string{"delete-item", "-id", "3"})
	assert.ErrorIs(t, err, ErrUsage)

	require.NoError(t, app.Run(context.Background(), []string{"delete-item", "-token", "tok", "-id", "3"}))
	assert.EqualValues(t, 3, f.deleted)
	assert.Equal(t, []string{"Bearer tok"}, f.auth)
	assert.Contains(t, out.String(), "item 3 deleted")
}
