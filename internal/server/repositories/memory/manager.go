// Package memory holds map-backed repositories that satisfy the same
// contracts as the PostgreSQL ones. The server uses them when no database DSN
// is configured. Transactions are not modelled: every DBTX argument is
// ignored and writes apply immediately.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/dbx"
	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/items"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/users"
)

// RepositoryManager implements repomanager.RepositoryManager in memory.
type RepositoryManager struct {
	mu sync.Mutex

	users   map[string]*models.User
	userSeq int
	tokens  map[string]*models.RefreshToken
	items   map[int64]*models.Item
	itemSeq int64
	now     func() time.Time
}

func NewRepositoryManager() *RepositoryManager {
	return &RepositoryManager{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
		items:  make(map[int64]*models.Item),
		now:    time.Now,
	}
}

func (m *RepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *RepositoryManager) Users(dbx.DBTX) users.Repository { return (*userRepo)(m) }

func (m *RepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return (*tokenRepo)(m) }

func (m *RepositoryManager) Items(dbx.DBTX) items.Repository { return (*itemRepo)(m) }

// --- users ---

type userRepo RepositoryManager

func (r *userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.UserName]; ok {
		return nil, common.ErrDuplicateUsername
	}
	r.userSeq++
	u.ID = strconv.Itoa(r.userSeq)
	u.CreatedAt = r.now()
	cp := *u
	r.users[u.UserName] = &cp
	return u, nil
}

func (r *userRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) SetAdmin(_ context.Context, login string, isAdmin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[login]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsAdmin = isAdmin
	return nil
}

// --- refresh tokens ---

type tokenRepo RepositoryManager

func (r *tokenRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: r.now().Add(validity)}
	return nil
}

func (r *tokenRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *tokenRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *tokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var n int64
	for k, t := range r.tokens {
		if t.Expires.Before(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- items ---

type itemRepo RepositoryManager

func (r *itemRepo) skuTaken(sku string, except int64) bool {
	for id, it := range r.items {
		if it.SKU == sku && id != except {
			return true
		}
	}
	return false
}

func (r *itemRepo) Create(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skuTaken(item.SKU, 0) {
		return common.ErrorAlreadyExists
	}
	r.itemSeq++
	item.ID = r.itemSeq
	item.CreatedAt = r.now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *itemRepo) GetByID(_ context.Context, id int64) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *itemRepo) GetBySKU(_ context.Context, sku string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.SKU == sku {
			cp := *it
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *itemRepo) List(_ context.Context) ([]*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Item, 0, len(r.items))
	for _, it := range r.items {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *itemRepo) Update(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return common.ErrorNotFound
	}
	if r.skuTaken(item.SKU, item.ID) {
		return common.ErrorAlreadyExists
	}
	item.UpdatedAt = r.now()
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *itemRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}
