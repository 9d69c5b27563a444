package store

import (
	"context"
	"sync"

	"github.com/omeguy/tracy/internal/models"
)

// MemoryStore keeps the opened/closed tables in process memory. Used in
// dry-run mode and by tests; same exclusivity guarantee as Postgres, here via
// one mutex covering both maps.
type MemoryStore struct {
	mu     sync.RWMutex
	opened map[int64]models.Position
	closed map[int64]models.Position
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		opened: make(map[int64]models.Position),
		closed: make(map[int64]models.Position),
	}
}

func (s *MemoryStore) CreateTables(ctx context.Context) error { return nil }

func (s *MemoryStore) InsertOpened(ctx context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.opened[p.Ticket]; exists {
		return nil
	}
	s.opened[p.Ticket] = *p
	return nil
}

func (s *MemoryStore) UpdateOpened(ctx context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.opened[p.Ticket]
	if !exists {
		return nil
	}
	row.StopLoss = p.StopLoss
	row.TakeProfit = p.TakeProfit
	row.Status = p.Status
	s.opened[p.Ticket] = row
	return nil
}

func (s *MemoryStore) ListOpened(ctx context.Context, symbol string) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Position
	for _, p := range s.opened {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) MoveToClosed(ctx context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.opened, p.Ticket)
	s.closed[p.Ticket] = *p
	return nil
}

func (s *MemoryStore) ListClosed(ctx context.Context, symbol string) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Position
	for _, p := range s.closed {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}
