package engagement

import (
	"context"
	"time"

	"Warfront/internal/world/entity"
)

// Diplomacy 是外交系统的窄接口，公式不在战斗域内。
type Diplomacy interface {
	IsHostile(a, b entity.KingdomID) bool
	IsAlly(a, b entity.KingdomID) bool
	AddRelationship(from, to entity.KingdomID, key string, delta float64)
	AddWarActivity(winner, loser entity.KingdomID, key string, value float64)
	OnImprisoned(captor, victim entity.KingdomID, c entity.CharacterID)
}

// CapturePoint 是战术模拟里的占领点。
type CapturePoint struct {
	ID               int  `json:"id" bson:"id"`
	Owner            Side `json:"owner" bson:"owner"`
	CountsForVictory bool `json:"counts_for_victory" bson:"counts_for_victory"`
}

// SquadState 是复制给观战端的兵团状态。
type SquadState struct {
	Unit   entity.UnitID `json:"unit" bson:"unit"`
	Side   Side          `json:"side" bson:"side"`
	Troops int           `json:"troops" bson:"troops"`
	Damage float64       `json:"damage" bson:"damage"`
}

// Simulation 是兵团级战术解算器，只在 Ongoing 阶段由权威节点推进。
type Simulation interface {
	Step(now time.Duration)
	OnArmyJoined(side Side, army *entity.Army)
	OnArmyLeft(side Side, army *entity.Army)
	Restart()
	HasUnit(id entity.UnitID) bool
	CapturePoints() []CapturePoint
	SetTactics(side Side, name string) error
	Squads() []SquadState
}

type SimulationFactory func(e *Engagement) Simulation

// Command 是非权威节点转发给权威节点的指令。
type Command struct {
	Battle BattleID `json:"battle"`
	Action Action   `json:"action"`
	Side   Side     `json:"side"`
	Param  string   `json:"param"`
}

type Forwarder interface {
	Forward(ctx context.Context, cmd Command) error
}

// Registry 是全局战斗表，由 service 实现。
type Registry interface {
	Add(e *Engagement)
	Remove(id BattleID)
	Get(id BattleID) (*Engagement, bool)
}

// ReportSink 接收结算产生的战报。
type ReportSink interface {
	Report(r *Report)
}
