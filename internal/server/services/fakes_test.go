package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
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

var errBoom = errors.New("boom")

// --- users ---

type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]*models.User
	nextID int

	getErr    error
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: map[string]*models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrDuplicateUsername
	}
	f.nextID++
	u.ID = "u-" + strconv.Itoa(f.nextID)
	u.CreatedAt = time.Now()
	cp := *u
	f.byName[u.UserName] = &cp
	return u, nil
}

func (f *fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) SetAdmin(_ context.Context, login string, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[login]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsAdmin = isAdmin
	return nil
}

// --- refresh tokens ---

type fakeRefresh struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken

	createErr error
	deleteErr error
	afterFind func()
}

func newFakeRefresh() *fakeRefresh {
	return &fakeRefresh{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefresh) Create(_ context.Context, userID, token string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefresh) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	t, ok := f.tokens[token]
	hook := f.afterFind
	f.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	if hook != nil {
		hook()
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRefresh) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefresh) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.tokens {
		if t.Expires.Before(time.Now()) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- items ---

type fakeItems struct {
	mu     sync.Mutex
	byID   map[int64]*models.Item
	nextID int64

	updateErr error
}

func newFakeItems() *fakeItems {
	return &fakeItems{byID: map[int64]*models.Item{}}
}

func (f *fakeItems) skuTaken(sku string, except int64) bool {
	for id, it := range f.byID {
		if it.SKU == sku && id != except {
			return true
		}
	}
	return false
}

func (f *fakeItems) Create(_ context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skuTaken(item.SKU, 0) {
		return common.ErrorAlreadyExists
	}
	f.nextID++
	item.ID = f.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	f.byID[item.ID] = &cp
	return nil
}

func (f *fakeItems) GetByID(_ context.Context, id int64) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItems) GetBySKU(_ context.Context, sku string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.byID {
		if it.SKU == sku {
			cp := *it
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeItems) List(_ context.Context) ([]*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Item, 0, len(f.byID))
	for _, it := range f.byID {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeItems) Update(_ context.Context, item *models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[item.ID]; !ok {
		return common.ErrorNotFound
	}
	if f.skuTaken(item.SKU, item.ID) {
		return common.ErrorAlreadyExists
	}
	item.UpdatedAt = time.Now()
	cp := *item
	f.byID[item.ID] = &cp
	return nil
}

func (f *fakeItems) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsers
	r *fakeRefresh
	i *fakeItems
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsers(), r: newFakeRefresh(), i: newFakeItems()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Items(dbx.DBTX) items.Repository                 { return m.i }


// --- storage ---

type memStorage struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: map[string][]byte{}}
}

func (m *memStorage) Put(_ context.Context, key, _ string, r io.Reader, _ int64) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = b
	return nil
}

func (m *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) URL(_ context.Context, key string) (string, error) {
	return "/photos/" + key, nil
}

// racyUsers reports every user as absent on lookup, as if a concurrent
// registration committed between the check and the insert.
type racyUsers struct{ *fakeUsers }

func (r racyUsers) GetUserByLogin(context.Context, string) (*models.User, error) {
	return nil, common.ErrorNotFound
}

type raceManager struct{ *fakeRepoManager }

func (m *raceManager) Users(dbx.DBTX) users.Repository { return racyUsers{m.u} }
