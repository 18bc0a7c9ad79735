package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server/auth"
	"github.com/dmitrijs2005/knifecatalog/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// An admin registers, logs in and creates an item; once the access token
// lifetime has passed the same flow fails with an expired token.
func TestAdminFlow_EndToEnd(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repos := newFakeRepoManager()
	issuer := auth.NewTokenIssuer([]byte(testSecret))
	cfg := &config.Config{
		AccessTokenValidityDuration:  30 * time.Minute,
		RefreshTokenValidityDuration: time.Hour,
		PasswordHashCost:             4,
	}
	users := NewUserService(db, repos, issuer, auth.NewMemoryDenylist(), cfg, logging.Nop())
	catalog := NewItemService(db, repos, newMemStorage(), logging.Nop())
	ctx := context.Background()

	_, err = users.Register(ctx, "root", "secret", true)
	require.NoError(t, err)

	pair, err := users.Login(ctx, "root", "secret")
	require.NoError(t, err)

	user, err := users.ResolveUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	admin, err := users.RequireAdmin(user)
	require.NoError(t, err)
	assert.Equal(t, "root", admin.UserName)

	item, err := catalog.Create(ctx, knife(), nil)
	require.NoError(t, err)
	assert.NotZero(t, item.ID)

	cfg.AccessTokenValidityDuration = 0
	shortLived := NewUserService(db, repos, issuer, auth.NewMemoryDenylist(), cfg, logging.Nop())
	pair, err = shortLived.Login(ctx, "root", "secret")
	require.NoError(t, err)

	_, err = shortLived.ResolveUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestNonAdminForbidden(t *testing.T) {
	f := newUserFixture(t, 30*time.Minute)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "pw", false)
	require.NoError(t, err)
	pair, err := f.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	user, err := f.svc.ResolveUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	_, err = f.svc.RequireAdmin(user)
	assert.ErrorIs(t, err, common.ErrorForbidden)
}
