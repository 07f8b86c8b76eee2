package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/infra/persistence/model"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/errx"
)

const (
	OpSaveReport    = "repo.report.SaveReport"
	OpListByKingdom = "repo.report.ListByKingdom"
)

const defaultListLimit = 20

type ReportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// AutoMigrate 建表，启动时调用。
func (r *ReportRepo) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.BattleReport{})
}

// SaveReport 同一世界同一场战斗只写一次，重试不会产生重复战报。
func (r *ReportRepo) SaveReport(ctx context.Context, worldID entity.WorldID, rep *engagement.Report) error {
	if rep == nil {
		return nil
	}
	m, err := model.ReportToModel(worldID, rep)
	if err != nil {
		return errx.NewSys(errx.CodeInternal, OpSaveReport).WithCause(err).WithData("battle_id", int64(rep.Battle))
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m).Error
	if err != nil {
		return errx.NewSys(errx.CodeInternal, OpSaveReport).WithCause(err).
			WithData("world_id", int(worldID)).
			WithData("battle_id", int64(rep.Battle))
	}
	return nil
}

// ListByKingdom 按结束时间倒序返回该王国作为攻方或守方的战报。
func (r *ReportRepo) ListByKingdom(ctx context.Context, kingdom entity.KingdomID, limit int) ([]*engagement.Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []model.BattleReport
	err := r.db.WithContext(ctx).
		Where("attacker_kingdom = ? OR defender_kingdom = ?", int64(kingdom), int64(kingdom)).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, errx.NewSys(errx.CodeInternal, OpListByKingdom).WithCause(err).WithData("kingdom", int64(kingdom))
	}

	out := make([]*engagement.Report, 0, len(rows))
	for i := range rows {
		rep, err := model.ModelToReport(&rows[i])
		if err != nil {
			return nil, errx.NewSys(errx.CodeInternal, OpListByKingdom).WithCause(err).WithData("id", rows[i].Id)
		}
		out = append(out, rep)
	}
	return out, nil
}
