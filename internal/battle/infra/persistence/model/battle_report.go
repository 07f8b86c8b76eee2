package model

import (
	"encoding/json"
	"time"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/world/entity"
)

// BattleReport 是战报表，参与军队与战利品以 JSON 列保存。
type BattleReport struct {
	Id              uint64          `gorm:"column:id;type:bigint UNSIGNED;primaryKey;autoIncrement;" json:"id"`
	WorldId         int             `gorm:"column:world_id;type:int;comment:世界ID;not null;uniqueIndex:uk_world_battle;" json:"world_id"`
	BattleId        int64           `gorm:"column:battle_id;type:bigint;comment:战斗ID;not null;uniqueIndex:uk_world_battle;" json:"battle_id"`
	Type            int8            `gorm:"column:type;type:tinyint;comment:战斗类型;not null;" json:"type"`
	Winner          int8            `gorm:"column:winner;type:tinyint;comment:胜方 0攻 1守 -1无;not null;" json:"winner"`
	Reason          int8            `gorm:"column:reason;type:tinyint;comment:胜负原因;not null;" json:"reason"`
	Cancelled       bool            `gorm:"column:cancelled;type:tinyint(1);comment:是否取消;not null;default:0;" json:"cancelled"`
	Settlement      int64           `gorm:"column:settlement;type:bigint;comment:城池ID;not null;default:0;" json:"settlement"`
	AttackerKingdom int64           `gorm:"column:attacker_kingdom;type:bigint;comment:攻方王国;not null;index;" json:"attacker_kingdom"`
	DefenderKingdom int64           `gorm:"column:defender_kingdom;type:bigint;comment:守方王国;not null;index;" json:"defender_kingdom"`
	Captured        bool            `gorm:"column:captured;type:tinyint(1);comment:是否攻占;not null;default:0;" json:"captured"`
	Pillaged        bool            `gorm:"column:pillaged;type:tinyint(1);comment:是否洗劫;not null;default:0;" json:"pillaged"`
	Summary         json.RawMessage `gorm:"column:summary;type:json;comment:兵力伤亡与经验;" json:"summary"`
	Armies          json.RawMessage `gorm:"column:armies;type:json;comment:参战军队;" json:"armies"`
	Loot            json.RawMessage `gorm:"column:loot;type:json;comment:战利品;" json:"loot"`
	FinishedAtMs    int64           `gorm:"column:finished_at_ms;type:bigint;comment:结束时的模拟时间;not null;" json:"finished_at_ms"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamp;not null;default:CURRENT_TIMESTAMP;" json:"created_at"`
}

func (m *BattleReport) TableName() string {
	return "battle_report"
}

type reportSummary struct {
	StartTroops [2]int     `json:"start_troops"`
	Casualties  [2]int     `json:"casualties"`
	Experience  [2]float64 `json:"experience"`
}

func ReportToModel(worldID entity.WorldID, r *engagement.Report) (*BattleReport, error) {
	summary, err := json.Marshal(reportSummary{StartTroops: r.StartTroops, Casualties: r.Casualties, Experience: r.Experience})
	if err != nil {
		return nil, err
	}
	armies, err := json.Marshal(r.Armies)
	if err != nil {
		return nil, err
	}
	loot, err := json.Marshal(r.Loot)
	if err != nil {
		return nil, err
	}
	return &BattleReport{
		WorldId:         int(worldID),
		BattleId:        int64(r.Battle),
		Type:            int8(r.Type),
		Winner:          int8(r.Winner),
		Reason:          int8(r.Reason),
		Cancelled:       r.Cancelled,
		Settlement:      int64(r.Settlement),
		AttackerKingdom: int64(r.AttackerKingdom),
		DefenderKingdom: int64(r.DefenderKingdom),
		Captured:        r.Captured,
		Pillaged:        r.Pillaged,
		Summary:         summary,
		Armies:          armies,
		Loot:            loot,
		FinishedAtMs:    r.FinishedAt.Milliseconds(),
	}, nil
}

func ModelToReport(m *BattleReport) (*engagement.Report, error) {
	r := &engagement.Report{
		Battle:          engagement.BattleID(m.BattleId),
		Type:            engagement.Type(m.Type),
		Winner:          engagement.Side(m.Winner),
		Reason:          engagement.VictoryReason(m.Reason),
		Cancelled:       m.Cancelled,
		Settlement:      entity.SettlementID(m.Settlement),
		AttackerKingdom: entity.KingdomID(m.AttackerKingdom),
		DefenderKingdom: entity.KingdomID(m.DefenderKingdom),
		Captured:        m.Captured,
		Pillaged:        m.Pillaged,
		FinishedAt:      time.Duration(m.FinishedAtMs) * time.Millisecond,
	}
	var summary reportSummary
	if len(m.Summary) > 0 {
		if err := json.Unmarshal(m.Summary, &summary); err != nil {
			return nil, err
		}
	}
	r.StartTroops, r.Casualties, r.Experience = summary.StartTroops, summary.Casualties, summary.Experience
	if len(m.Armies) > 0 {
		if err := json.Unmarshal(m.Armies, &r.Armies); err != nil {
			return nil, err
		}
	}
	if len(m.Loot) > 0 {
		if err := json.Unmarshal(m.Loot, &r.Loot); err != nil {
			return nil, err
		}
	}
	return r, nil
}
