package engagement

import (
	"time"

	"Warfront/internal/world/entity"
)

// ArmyReport 是战报里单支军队的结果。
type ArmyReport struct {
	Army        entity.ArmyID      `json:"army"`
	Kingdom     entity.KingdomID   `json:"kingdom"`
	Leader      entity.CharacterID `json:"leader"`
	Side        Side               `json:"side"`
	Supporter   bool               `json:"supporter"`
	TroopsAfter int                `json:"troops_after"`
	Captured    bool               `json:"captured"`
	Escaped     bool               `json:"escaped"`
	Destroyed   bool               `json:"destroyed"`
}

type Loot struct {
	Gold  float64 `json:"gold"`
	Food  float64 `json:"food"`
	Books float64 `json:"books"`
}

// Report 是一场战斗结算后的战报。
type Report struct {
	Battle          BattleID            `json:"battle"`
	Type            Type                `json:"type"`
	Winner          Side                `json:"winner"`
	Reason          VictoryReason       `json:"reason"`
	Cancelled       bool                `json:"cancelled"`
	Settlement      entity.SettlementID `json:"settlement"`
	AttackerKingdom entity.KingdomID    `json:"attacker_kingdom"`
	DefenderKingdom entity.KingdomID    `json:"defender_kingdom"`
	StartTroops     [2]int              `json:"start_troops"`
	Casualties      [2]int              `json:"casualties"`
	Experience      [2]float64          `json:"experience"`
	Captured        bool                `json:"captured"`
	Pillaged        bool                `json:"pillaged"`
	Loot            Loot                `json:"loot"`
	Armies          []ArmyReport        `json:"armies"`
	FinishedAt      time.Duration       `json:"finished_at"`
}

func (r *Report) armyReport(id entity.ArmyID) *ArmyReport {
	for i := range r.Armies {
		if r.Armies[i].Army == id {
			return &r.Armies[i]
		}
	}
	return nil
}
