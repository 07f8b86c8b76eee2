package memory

import (
	"context"
	"sync"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/world/entity"
)

type reportKey struct {
	world  entity.WorldID
	battle engagement.BattleID
}

type ReportRepository struct {
	mu      sync.Mutex
	seen    map[reportKey]struct{}
	reports []*engagement.Report
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{seen: make(map[reportKey]struct{})}
}

func (r *ReportRepository) SaveReport(ctx context.Context, worldID entity.WorldID, rep *engagement.Report) error {
	_ = ctx
	if rep == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := reportKey{world: worldID, battle: rep.Battle}
	if _, ok := r.seen[k]; ok {
		return nil
	}
	r.seen[k] = struct{}{}
	r.reports = append(r.reports, rep)
	return nil
}

// ListByKingdom 最新的在前。
func (r *ReportRepository) ListByKingdom(ctx context.Context, kingdom entity.KingdomID, limit int) ([]*engagement.Report, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*engagement.Report
	for i := len(r.reports) - 1; i >= 0; i-- {
		rep := r.reports[i]
		if rep.AttackerKingdom != kingdom && rep.DefenderKingdom != kingdom {
			continue
		}
		out = append(out, rep)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
