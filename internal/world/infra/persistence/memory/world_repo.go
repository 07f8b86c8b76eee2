package memory

import (
	"context"
	"errors"
	"sync"

	"Warfront/internal/world/entity"
)

// Seed 在没有存档时构建初始世界（通常来自剧本文件）。
type Seed func(id entity.WorldID) (*entity.World, error)

type WorldRepository struct {
	mu    sync.Mutex
	seed  Seed
	saved map[entity.WorldID]*entity.WorldPersistSnapshot
}

func NewWorldRepository(seed Seed) *WorldRepository {
	return &WorldRepository{
		seed:  seed,
		saved: make(map[entity.WorldID]*entity.WorldPersistSnapshot),
	}
}

func (r *WorldRepository) LoadWorld(ctx context.Context, id entity.WorldID) (*entity.World, error) {
	_ = ctx
	r.mu.Lock()
	s, ok := r.saved[id]
	r.mu.Unlock()
	if ok {
		return entity.HydrateWorld(s), nil
	}
	if r.seed == nil {
		return nil, errors.New("memory world repository has no seed")
	}
	return r.seed(id)
}

func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	_ = ctx
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.saved[s.WorldID]; ok && cur.Version > s.Version {
		return nil
	}
	r.saved[s.WorldID] = s
	return nil
}

// Saved 返回最近一次保存的快照，测试用。
func (r *WorldRepository) Saved(id entity.WorldID) (*entity.WorldPersistSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.saved[id]
	return s, ok
}
