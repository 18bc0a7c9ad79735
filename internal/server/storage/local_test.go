package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	k := NewKey(now, "Photo.JPG")
	assert.Regexp(t, `^items/2025/3/4/[0-9a-f-]{36}\.jpg$`, k)
	assert.NotEqual(t, k, NewKey(now, "Photo.JPG"))

	assert.Regexp(t, `^items/2025/3/4/[0-9a-f-]{36}$`, NewKey(now, "noext"))
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	key := "items/2025/3/4/abc.jpg"
	require.NoError(t, s.Put(ctx, key, "image/jpeg", strings.NewReader("blob"), 4))

	_, err = os.Stat(filepath.Join(dir, "items", "2025", "3", "4", "abc.jpg"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "blob", string(data))

	u, err := s.URL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/photos/"+key, u)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLocalStorage_Overwrite(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.png", "", strings.NewReader("one"), 3))
	require.NoError(t, s.Put(ctx, "a.png", "", strings.NewReader("two"), 3))

	rc, err := s.Open(ctx, "a.png")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(data))
}

func TestLocalStorage_OpenDirectory(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "items/2025/3/4/a.jpg", "", strings.NewReader("x"), 1))

	for _, key := range []string{"items", "items/2025", "items/2025/3/4"} {
		_, err := s.Open(ctx, key)
		assert.ErrorIs(t, err, common.ErrorNotFound, "key %q", key)
	}
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../secret", "items/../../x", "/etc/passwd"} {
		err := s.Put(ctx, key, "", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, common.ErrorValidation, "key %q", key)

		_, err = s.Open(ctx, key)
		assert.ErrorIs(t, err, common.ErrorValidation, "key %q", key)

		assert.ErrorIs(t, s.Delete(ctx, key), common.ErrorValidation, "key %q", key)

		_, err = s.URL(ctx, key)
		assert.ErrorIs(t, err, common.ErrorValidation, "key %q", key)
	}
}
