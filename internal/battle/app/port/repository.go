package port

import (
	"context"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/world/entity"
)

// WorldRepository 加载与保存整个世界；找不到存档时由实现决定如何播种。
type WorldRepository interface {
	LoadWorld(ctx context.Context, id entity.WorldID) (*entity.World, error)
	Save(ctx context.Context, s *entity.WorldPersistSnapshot) error
}

// SnapshotRepository 保存战斗快照；已结束的战斗仍可按 ID 查询。
type SnapshotRepository interface {
	SaveBattle(ctx context.Context, s *engagement.PersistSnapshot) error
	LoadBattle(ctx context.Context, id engagement.BattleID) (*engagement.PersistSnapshot, error)
}

// ReportRepository 保存结算战报。
type ReportRepository interface {
	SaveReport(ctx context.Context, worldID entity.WorldID, r *engagement.Report) error
	ListByKingdom(ctx context.Context, kingdom entity.KingdomID, limit int) ([]*engagement.Report, error)
}
