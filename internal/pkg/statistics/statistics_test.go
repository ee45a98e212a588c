package statistics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/database"
)

// mapStorage is an in-memory fiber.Storage.
type mapStorage struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMapStorage() *mapStorage { return &mapStorage{data: map[string][]byte{}} }

func (m *mapStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mapStorage) Set(key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	m.sets++
	return nil
}

func (m *mapStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapStorage) Reset() error { m.data = map[string][]byte{}; return nil }
func (m *mapStorage) Close() error { return nil }

func seed(t *testing.T, db *gorm.DB, name, email, role, status string) {
	t.Helper()
	u, err := models.NewUser(name, email)
	require.NoError(t, err)
	u.Role = role
	if status != "" {
		u.SubscriptionStatus = &status
	}
	require.NoError(t, db.Create(u).Error)
}

func TestGetCountsAndCaches(t *testing.T) {
	db := database.NewTestDB(t)
	seed(t, db, "Root", "root@example.com", models.ROLE_ADMIN, "")
	seed(t, db, "Ada", "ada@example.com", models.ROLE_USER, models.SubscriptionActive)
	seed(t, db, "Bob", "bob@example.com", models.ROLE_USER, models.SubscriptionCanceled)

	store := newMapStorage()
	svc := NewService(db, store)

	data, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), data.TotalUsers)
	assert.Equal(t, int64(1), data.Admins)
	assert.Equal(t, int64(1), data.ProSubscribers)
	assert.Equal(t, 1, store.sets)

	seed(t, db, "Eve", "eve@example.com", models.ROLE_USER, models.SubscriptionActive)

	data, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), data.TotalUsers, "served from cache")
	assert.Equal(t, 1, store.sets)

	svc.Invalidate()
	data, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), data.TotalUsers)
	assert.Equal(t, int64(2), data.ProSubscribers)
}

func TestGetWithoutStorage(t *testing.T) {
	db := database.NewTestDB(t)
	svc := NewService(db, nil)

	data, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, data.TotalUsers)

	seed(t, db, "Ada", "ada@example.com", models.ROLE_USER, "")
	data, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.TotalUsers)
	svc.Invalidate()
}

func TestGetIgnoresCorruptCacheEntry(t *testing.T) {
	db := database.NewTestDB(t)
	seed(t, db, "Ada", "ada@example.com", models.ROLE_USER, "")
	store := newMapStorage()
	require.NoError(t, store.Set(CacheKeyOverview, []byte("{not json"), 0))

	data, err := NewService(db, store).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.TotalUsers)
}
