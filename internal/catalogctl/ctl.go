// Package catalogctl implements the catalogctl admin tool: bootstrapping an
// admin account in the database and calling the catalog over gRPC.
package catalogctl

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/flagx"
	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server/auth"
	"github.com/dmitrijs2005/knifecatalog/internal/server/config"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/knifecatalog/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	pb "github.com/dmitrijs2005/knifecatalog/internal/proto"
)

const usage = `usage: catalogctl <command> [flags]

commands:
  create-admin   create an admin account or promote an existing user
  login          print an access token
  items          list catalog items
  delete-item    delete an item (admin token required)
`

const callTimeout = 10 * time.Second

var ErrUsage = errors.New("invalid usage")

type catalogClient interface {
	Login(ctx context.Context, in *pb.LoginRequest, opts ...grpc.CallOption) (*pb.TokenResponse, error)
	ListItems(ctx context.Context, in *pb.ListItemsRequest, opts ...grpc.CallOption) (*pb.ListItemsResponse, error)
	DeleteItem(ctx context.Context, in *pb.DeleteItemRequest, opts ...grpc.CallOption) (*pb.DeleteItemResponse, error)
}

// dialCatalog is a test seam for connecting to the gRPC endpoint.
var dialCatalog = func(addr string) (catalogClient, io.Closer, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return pb.NewCatalogServiceClient(conn), conn, nil
}

// ensureAdmin is a test seam for the database side of create-admin.
var ensureAdmin = func(ctx context.Context, cfg *config.Config, username, password string) error {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(db, rm, auth.NewTokenIssuer([]byte(cfg.SecretKey)), auth.NewMemoryDenylist(), cfg, logging.Nop())
	return us.EnsureAdmin(ctx, username, password)
}

// App runs one catalogctl command.
type App struct {
	in  *bufio.Reader
	out io.Writer
}

func NewApp(in io.Reader, out io.Writer) *App {
	return &App{in: bufio.NewReader(in), out: out}
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "create-admin":
		return a.createAdmin(ctx, args[1:])
	case "login":
		return a.login(ctx, args[1:])
	case "items":
		return a.items(ctx, args[1:])
	case "delete-item":
		return a.deleteItem(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}

	fmt.Fprint(a.out, usage)
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func (a *App) createAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "admin username")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-name"})); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	username := *name
	if username == "" {
		username = cfg.AdminUsername
	}
	if username == "" {
		if username, err = GetSimpleText(a.in, "Admin username", a.out); err != nil {
			return err
		}
	}
	if username == "" {
		return fmt.Errorf("%w: username must not be empty", ErrUsage)
	}

	var password string
	if username == cfg.AdminUsername {
		password = cfg.AdminPassword
	}
	if password == "" {
		if password, err = a.promptNewPassword(); err != nil {
			return err
		}
	}

	if err := ensureAdmin(ctx, cfg, username, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "admin %q is ready\n", username)
	return nil
}

func (a *App) promptNewPassword() (string, error) {
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword(a.out, "Repeat password: ")
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(confirm)

	if len(pw) == 0 {
		return "", fmt.Errorf("%w: password must not be empty", ErrUsage)
	}
	if !bytes.Equal(pw, confirm) {
		return "", fmt.Errorf("%w: passwords do not match", ErrUsage)
	}
	return string(pw), nil
}

func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	addr := fs.String("addr", "localhost:50051", "gRPC address of the catalog server")
	return fs, addr
}

func (a *App) login(ctx context.Context, args []string) error {
	fs, addr := newFlagSet("login", a.out)
	username := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	if *username == "" {
		name, err := GetSimpleText(a.in, "Username", a.out)
		if err != nil {
			return err
		}
		*username = name
	}
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	client, closer, err := dialCatalog(*addr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := client.Login(ctx, &pb.LoginRequest{Username: *username, Password: string(pw)})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.GetAccessToken())
	return nil
}

func (a *App) items(ctx context.Context, args []string) error {
	fs, addr := newFlagSet("items", a.out)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	client, closer, err := dialCatalog(*addr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := client.ListItems(ctx, &pb.ListItemsRequest{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tNAME\tPRICE\tAVAILABLE")
	for _, it := range resp.GetItems() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%t\n", it.GetId(), it.GetSku(), it.GetName(), it.GetPrice(), it.GetAvailable())
	}
	return tw.Flush()
}

func (a *App) deleteItem(ctx context.Context, args []string) error {
	fs, addr := newFlagSet("delete-item", a.out)
	token := fs.String("token", "", "admin access token")
	id := fs.Int64("id", 0, "item id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *token == "" || *id <= 0 {
		return fmt.Errorf("%w: -token and -id are required", ErrUsage)
	}

	client, closer, err := dialCatalog(*addr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, common.AuthorizationHeaderName, "Bearer "+*token)

	if _, err := client.DeleteItem(ctx, &pb.DeleteItemRequest{Id: *id}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "item %d deleted\n", *id)
	return nil
}
