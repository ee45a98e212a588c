package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
)

const (
	CacheKeyOverview = "statistics:users:overview"
	CacheExpiration  = 5 * time.Minute
)

// Data is the system overview shown to admins.
type Data struct {
	TotalUsers     int64     `json:"total_users"`
	Admins         int64     `json:"admins"`
	ProSubscribers int64     `json:"pro_subscribers"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Service counts users and caches the result in storage. A nil storage
// counts on every call.
type Service struct {
	db      *gorm.DB
	storage fiber.Storage
	ttl     time.Duration

	mu sync.Mutex
}

func NewService(db *gorm.DB, storage fiber.Storage) *Service {
	return &Service{db: db, storage: storage, ttl: CacheExpiration}
}

// Get returns the cached overview, recounting when the cache is empty or
// unreadable.
func (s *Service) Get(ctx context.Context) (Data, error) {
	if data, ok := s.cached(); ok {
		return data, nil
	}

	// one recount at a time; a waiting caller picks up the fresh value
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.cached(); ok {
		return data, nil
	}

	data, err := s.count(ctx)
	if err != nil {
		return Data{}, err
	}
	s.store(data)
	return data, nil
}

// Invalidate drops the cached overview so the next Get recounts.
func (s *Service) Invalidate() {
	if s.storage == nil {
		return
	}
	if err := s.storage.Delete(CacheKeyOverview); err != nil {
		fiberlog.Warnf("statistics: failed to invalidate cache: %v", err)
	}
}

func (s *Service) cached() (Data, bool) {
	if s.storage == nil {
		return Data{}, false
	}
	raw, err := s.storage.Get(CacheKeyOverview)
	if err != nil {
		fiberlog.Warnf("statistics: cache read failed: %v", err)
		return Data{}, false
	}
	if len(raw) == 0 {
		return Data{}, false
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		fiberlog.Warnf("statistics: dropping unreadable cache entry: %v", err)
		return Data{}, false
	}
	return data, true
}

func (s *Service) store(data Data) {
	if s.storage == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := s.storage.Set(CacheKeyOverview, raw, s.ttl); err != nil {
		fiberlog.Warnf("statistics: cache write failed: %v", err)
	}
}

func (s *Service) count(ctx context.Context) (Data, error) {
	users := func() *gorm.DB { return s.db.WithContext(ctx).Model(&models.User{}) }
	data := Data{UpdatedAt: time.Now().UTC()}

	if err := users().Count(&data.TotalUsers).Error; err != nil {
		return Data{}, fmt.Errorf("count users: %w", err)
	}
	if err := users().Where("role = ?", models.ROLE_ADMIN).Count(&data.Admins).Error; err != nil {
		return Data{}, fmt.Errorf("count admins: %w", err)
	}
	if err := users().Where("subscription_status = ?", models.SubscriptionActive).Count(&data.ProSubscribers).Error; err != nil {
		return Data{}, fmt.Errorf("count subscribers: %w", err)
	}

	fiberlog.Infof("statistics: %d users, %d admins, %d pro subscribers", data.TotalUsers, data.Admins, data.ProSubscribers)
	return data, nil
}
