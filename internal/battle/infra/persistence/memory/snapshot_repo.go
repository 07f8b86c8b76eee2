package memory

import (
	"context"
	"sync"

	"Warfront/internal/battle/engagement"
	"Warfront/modules/kit/errx"
)

type SnapshotRepository struct {
	mu    sync.Mutex
	saved map[engagement.BattleID]*engagement.PersistSnapshot
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{saved: make(map[engagement.BattleID]*engagement.PersistSnapshot)}
}

func (r *SnapshotRepository) SaveBattle(ctx context.Context, s *engagement.PersistSnapshot) error {
	_ = ctx
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.saved[s.BattleID]; ok && cur.Version > s.Version {
		return nil
	}
	r.saved[s.BattleID] = s
	return nil
}

func (r *SnapshotRepository) LoadBattle(ctx context.Context, id engagement.BattleID) (*engagement.PersistSnapshot, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.saved[id]
	if !ok {
		return nil, errx.ErrBattleNotFound.WithData("battle_id", int64(id))
	}
	return s, nil
}

func (r *SnapshotRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}
