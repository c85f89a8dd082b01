package entitlements

import (
	"context"
	"sync"
	"time"

	"github.com/lumichat/lumichat/app/models"
)

type key struct {
	userID uint
	tier   Tier
}

// MemoryStore is an in-memory Store with the same atomicity semantics as
// the GORM implementation. Intended for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[key]*models.EntitlementWindow
	credits map[key]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[key]*models.EntitlementWindow),
		credits: make(map[key]int),
	}
}

func (s *MemoryStore) GetWindow(_ context.Context, userID uint, tier Tier) (*models.EntitlementWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[key{userID, tier}]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) ExtendWindow(_ context.Context, userID uint, tier Tier, d time.Duration, now time.Time) (*models.EntitlementWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{userID, tier}
	var start, end time.Time
	if w, ok := s.windows[k]; ok {
		start, end = NextWindow(now, &w.StartAt, &w.EndAt, d)
	} else {
		start, end = NextWindow(now, nil, nil, d)
	}
	w := &models.EntitlementWindow{UserID: userID, Tier: string(tier), StartAt: start, EndAt: end}
	s.windows[k] = w
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) AddCredits(_ context.Context, userID uint, tier Tier, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits[key{userID, tier}] += n
	return nil
}

func (s *MemoryStore) GetCredits(_ context.Context, userID uint, tier Tier) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits[key{userID, tier}], nil
}

func (s *MemoryStore) ConsumeCredit(_ context.Context, userID uint, tier Tier) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{userID, tier}
	if s.credits[k] <= 0 {
		return false, nil
	}
	s.credits[k]--
	return true, nil
}
