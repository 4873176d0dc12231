package favorites

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mark-c-hall/whatmovies/internal/models"
)

// Memory is a process-local Store. Contents are lost on restart.
type Memory struct {
	sync.RWMutex
	data map[string]map[string]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]time.Time{}, now: time.Now}
}

func (m *Memory) IsFavorite(_ context.Context, visitor, movieID string) (bool, error) {
	if visitor == "" || movieID == "" {
		return false, nil
	}
	m.RLock()
	defer m.RUnlock()
	_, ok := m.data[visitor][movieID]
	return ok, nil
}

func (m *Memory) Add(_ context.Context, visitor, movieID string) error {
	if visitor == "" || movieID == "" {
		return ErrNoIdentifier
	}
	m.Lock()
	defer m.Unlock()
	if _, ok := m.data[visitor]; !ok {
		m.data[visitor] = map[string]time.Time{}
	}
	if _, ok := m.data[visitor][movieID]; !ok {
		m.data[visitor][movieID] = m.now()
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, visitor, movieID string) error {
	if visitor == "" || movieID == "" {
		return ErrNoIdentifier
	}
	m.Lock()
	defer m.Unlock()
	delete(m.data[visitor], movieID)
	if len(m.data[visitor]) == 0 {
		delete(m.data, visitor)
	}
	return nil
}

// List returns the visitor's favorites, most recently added first.
func (m *Memory) List(_ context.Context, visitor string) ([]models.Favorite, error) {
	m.RLock()
	defer m.RUnlock()

	favs := make([]models.Favorite, 0, len(m.data[visitor]))
	for id, at := range m.data[visitor] {
		favs = append(favs, models.Favorite{Visitor: visitor, MovieID: id, CreatedAt: at})
	}
	sort.Slice(favs, func(i, j int) bool {
		if favs[i].CreatedAt.Equal(favs[j].CreatedAt) {
			return favs[i].MovieID < favs[j].MovieID
		}
		return favs[i].CreatedAt.After(favs[j].CreatedAt)
	})
	return favs, nil
}
