package service

import (
	"time"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/world/entity"
)

// BattleView 是对外返回的战斗摘要（HTTP / 观战 / gRPC 共用）。
type BattleView struct {
	ID         int64               `json:"id"`
	Type       string              `json:"type"`
	Stage      string              `json:"stage"`
	Phase      int                 `json:"phase"`
	Winner     string              `json:"winner"`
	Reason     string              `json:"reason"`
	Attackers  []entity.ArmyID     `json:"attackers"`
	Defenders  []entity.ArmyID     `json:"defenders"`
	Kingdoms   [2]entity.KingdomID `json:"kingdoms"`
	Settlement entity.SettlementID `json:"settlement,omitempty"`
	Position   entity.Point        `json:"position"`
	Viewers    int                 `json:"viewers"`
	ElapsedMs  int64               `json:"elapsed_ms"`
	PrepMs     int64               `json:"prep_ms"`

	Resilience   *float64 `json:"resilience,omitempty"`
	SiegeDefense *float64 `json:"siege_defense,omitempty"`
	CanAssault   bool     `json:"can_assault"`

	PlunderProgressMs *int64 `json:"plunder_progress_ms,omitempty"`
	PlunderDurationMs *int64 `json:"plunder_duration_ms,omitempty"`

	Slots  [4]SlotView             `json:"slots"`
	Squads []engagement.SquadState `json:"squads,omitempty"`
}

type SlotView struct {
	Army       entity.ArmyID `json:"army"`
	EstimateMs int64         `json:"estimate_ms"`
	Manual     bool          `json:"manual"`
}

func ms(d time.Duration) int64 { return d.Milliseconds() }

// NewBattleView 从战斗状态构建摘要，只读。
func NewBattleView(e *engagement.Engagement) BattleView {
	v := BattleView{
		ID:         int64(e.ID()),
		Type:       e.Type().String(),
		Stage:      e.Stage().String(),
		Phase:      e.Phase(),
		Winner:     e.Winner().String(),
		Reason:     e.Reason().String(),
		Attackers:  e.SideArmies(engagement.SideAttacker),
		Defenders:  e.SideArmies(engagement.SideDefender),
		Kingdoms:   [2]entity.KingdomID{e.Kingdom(engagement.SideAttacker), e.Kingdom(engagement.SideDefender)},
		Position:   e.Position(),
		Viewers:    e.Viewers(),
		ElapsedMs:  ms(e.StageElapsed()),
		PrepMs:     ms(e.PreparationDuration()),
		CanAssault: e.CanAssault(),
		Squads:     e.Squads(),
	}
	if snap, ok := e.Snapshot(engagement.SnapshotArmies); ok {
		v.Settlement = snap.Armies.Settlement
	}
	if snap, ok := e.Snapshot(engagement.SnapshotSiege); ok {
		res, def := snap.Siege.Resilience, snap.Siege.SiegeDefense
		v.Resilience, v.SiegeDefense = &res, &def
	}
	if snap, ok := e.Snapshot(engagement.SnapshotPlunder); ok {
		p, d := ms(snap.Plunder.Progress), ms(snap.Plunder.Duration)
		v.PlunderProgressMs, v.PlunderDurationMs = &p, &d
	}
	for i, s := range e.Slots() {
		v.Slots[i] = SlotView{Army: s.Army, EstimateMs: ms(s.Estimate), Manual: s.Manual}
	}
	return v
}
