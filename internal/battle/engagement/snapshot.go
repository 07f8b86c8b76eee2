package engagement

import (
	"fmt"
	"time"

	"Warfront/internal/world/entity"
)

// SnapshotKind 标识快照携带的字段组。
type SnapshotKind uint8

const (
	SnapshotTypeStage SnapshotKind = iota + 1
	SnapshotOutcome
	SnapshotArmies
	SnapshotSiege
	SnapshotReinforcements
	SnapshotPlunder
	SnapshotSquads
)

type TypeStageState struct {
	Type    Type          `json:"type" bson:"type"`
	Stage   Stage         `json:"stage" bson:"stage"`
	Phase   int           `json:"phase" bson:"phase"`
	Elapsed time.Duration `json:"elapsed" bson:"elapsed"`
	Prep    time.Duration `json:"prep" bson:"prep"`
}

type OutcomeState struct {
	Winner Side          `json:"winner" bson:"winner"`
	Reason VictoryReason `json:"reason" bson:"reason"`
}

type ArmiesState struct {
	Attackers  []entity.ArmyID     `json:"attackers" bson:"attackers"`
	Defenders  []entity.ArmyID     `json:"defenders" bson:"defenders"`
	Kingdoms   [2]entity.KingdomID `json:"kingdoms" bson:"kingdoms"`
	Settlement entity.SettlementID `json:"settlement" bson:"settlement"`
	Position   entity.Point        `json:"position" bson:"position"`
}

type SiegeState struct {
	Resilience               float64 `json:"resilience" bson:"resilience"`
	SiegeDefense             float64 `json:"siege_defense" bson:"siege_defense"`
	InitialResilience        float64 `json:"initial_resilience" bson:"initial_resilience"`
	InitialSiegeDefense      float64 `json:"initial_siege_defense" bson:"initial_siege_defense"`
	ResiliencePreCondition   float64 `json:"resilience_pre_condition" bson:"resilience_pre_condition"`
	SiegeDefensePreCondition float64 `json:"siege_defense_pre_condition" bson:"siege_defense_pre_condition"`
	CanAssault               bool    `json:"can_assault" bson:"can_assault"`
}

type ReinforcementsState struct {
	Slots    [4]Slot         `json:"slots" bson:"slots"`
	Intended []entity.ArmyID `json:"intended" bson:"intended"`
}

type PlunderState struct {
	Progress time.Duration `json:"progress" bson:"progress"`
	Duration time.Duration `json:"duration" bson:"duration"`
	Rate     float64       `json:"rate" bson:"rate"`
}

// Snapshot 是按字段组划分的复制单元，Kind 决定哪个字段有效。
type Snapshot struct {
	Kind           SnapshotKind         `json:"kind" bson:"kind"`
	Battle         BattleID             `json:"battle" bson:"battle"`
	TypeStage      *TypeStageState      `json:"type_stage,omitempty" bson:"type_stage,omitempty"`
	Outcome        *OutcomeState        `json:"outcome,omitempty" bson:"outcome,omitempty"`
	Armies         *ArmiesState         `json:"armies,omitempty" bson:"armies,omitempty"`
	Siege          *SiegeState          `json:"siege,omitempty" bson:"siege,omitempty"`
	Reinforcements *ReinforcementsState `json:"reinforcements,omitempty" bson:"reinforcements,omitempty"`
	Plunder        *PlunderState        `json:"plunder,omitempty" bson:"plunder,omitempty"`
	Squads         []SquadState         `json:"squads,omitempty" bson:"squads,omitempty"`
}

// Snapshot 生成某个字段组的快照；该组不存在时返回 false（如非围城战的 Siege）。
func (e *Engagement) Snapshot(kind SnapshotKind) (Snapshot, bool) {
	now := e.now()
	s := Snapshot{Kind: kind, Battle: e.id}
	switch kind {
	case SnapshotTypeStage:
		s.TypeStage = &TypeStageState{Type: e.typ, Stage: e.stage, Phase: e.phase, Elapsed: now - e.stageStartedAt, Prep: e.prepDuration}
	case SnapshotOutcome:
		s.Outcome = &OutcomeState{Winner: e.winner, Reason: e.reason}
	case SnapshotArmies:
		s.Armies = &ArmiesState{
			Attackers:  e.SideArmies(SideAttacker),
			Defenders:  e.SideArmies(SideDefender),
			Kingdoms:   [2]entity.KingdomID{e.sideKingdom(SideAttacker), e.sideKingdom(SideDefender)},
			Settlement: e.settlement,
			Position:   e.position,
		}
	case SnapshotSiege:
		if e.siege == nil {
			return s, false
		}
		s.Siege = &SiegeState{
			Resilience:               e.siege.Resilience(now),
			SiegeDefense:             e.siege.SiegeDefense(now),
			InitialResilience:        e.siege.InitialResilience,
			InitialSiegeDefense:      e.siege.InitialSiegeDefense,
			ResiliencePreCondition:   e.siege.ResiliencePreCondition,
			SiegeDefensePreCondition: e.siege.SiegeDefensePreCondition,
			CanAssault:               e.canAssault,
		}
	case SnapshotReinforcements:
		s.Reinforcements = &ReinforcementsState{Slots: e.slots, Intended: e.IntendedReinforcements()}
	case SnapshotPlunder:
		if e.plunder == nil {
			return s, false
		}
		s.Plunder = &PlunderState{Progress: e.plunder.Progress(now), Duration: e.plunder.Duration(), Rate: e.plunder.Rate()}
	case SnapshotSquads:
		s.Squads = append([]SquadState(nil), e.squads...)
	default:
		return s, false
	}
	return s, true
}

var snapshotKinds = []SnapshotKind{
	SnapshotTypeStage, SnapshotOutcome, SnapshotArmies, SnapshotSiege,
	SnapshotReinforcements, SnapshotPlunder, SnapshotSquads,
}

// Snapshots 返回全部存在的字段组。
func (e *Engagement) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(snapshotKinds))
	for _, k := range snapshotKinds {
		if s, ok := e.Snapshot(k); ok {
			out = append(out, s)
		}
	}
	return out
}

// NewReplica 创建只接受快照的副本，用于非权威节点。
func NewReplica(ctx *Context, id BattleID) *Engagement {
	e := newEngagement(ctx, id, TypeOpenField)
	e.stageStamped = true
	e.canAddExperience = false
	return e
}

// Apply 把快照写入副本，不触发任何结算副作用。
func Apply(s Snapshot, e *Engagement) error {
	if e == nil {
		return fmt.Errorf("apply snapshot: nil engagement")
	}
	if s.Battle != e.id {
		return fmt.Errorf("apply snapshot: battle %d into %d", s.Battle, e.id)
	}
	now := e.now()
	switch s.Kind {
	case SnapshotTypeStage:
		if s.TypeStage == nil {
			return fmt.Errorf("apply snapshot: empty type_stage")
		}
		st := s.TypeStage
		e.typ, e.stage, e.phase = st.Type, st.Stage, st.Phase
		e.stageStartedAt = now - st.Elapsed
		e.stageStamped = true
		e.prepDuration = st.Prep
	case SnapshotOutcome:
		if s.Outcome == nil {
			return fmt.Errorf("apply snapshot: empty outcome")
		}
		e.winner, e.reason = s.Outcome.Winner, s.Outcome.Reason
	case SnapshotArmies:
		if s.Armies == nil {
			return fmt.Errorf("apply snapshot: empty armies")
		}
		e.sides[SideAttacker] = append([]entity.ArmyID(nil), s.Armies.Attackers...)
		e.sides[SideDefender] = append([]entity.ArmyID(nil), s.Armies.Defenders...)
		e.kingdoms = s.Armies.Kingdoms
		e.settlement = s.Armies.Settlement
		e.position = s.Armies.Position
	case SnapshotSiege:
		if s.Siege == nil {
			return fmt.Errorf("apply snapshot: empty siege")
		}
		st := s.Siege
		e.siege = &SiegeAccounting{
			InitialResilience:        st.InitialResilience,
			InitialSiegeDefense:      st.InitialSiegeDefense,
			ResiliencePreCondition:   st.ResiliencePreCondition,
			SiegeDefensePreCondition: st.SiegeDefensePreCondition,
			resilience:               pool{value: st.Resilience, since: now, cap: st.InitialResilience},
			siegeDefense:             pool{value: st.SiegeDefense, since: now, cap: st.InitialSiegeDefense},
		}
		e.canAssault = st.CanAssault
	case SnapshotReinforcements:
		if s.Reinforcements == nil {
			return fmt.Errorf("apply snapshot: empty reinforcements")
		}
		e.slots = s.Reinforcements.Slots
		e.intended = append([]entity.ArmyID(nil), s.Reinforcements.Intended...)
	case SnapshotPlunder:
		if s.Plunder == nil {
			return fmt.Errorf("apply snapshot: empty plunder")
		}
		if e.plunder == nil {
			e.plunder = NewPlunderTracker(s.Plunder.Duration, now)
		}
		e.plunder.duration = s.Plunder.Duration
		e.plunder.set(now, s.Plunder.Progress, s.Plunder.Rate)
	case SnapshotSquads:
		e.squads = append([]SquadState(nil), s.Squads...)
	default:
		return fmt.Errorf("apply snapshot: unknown kind %d", s.Kind)
	}
	e.dirty = true
	return nil
}

// PersistSnapshot 是落库用的整场战斗快照。
type PersistSnapshot struct {
	Version   uint64     `bson:"version"`
	BattleID  BattleID   `bson:"_id"`
	Finished  bool       `bson:"finished"`
	Snapshots []Snapshot `bson:"snapshots"`
}

// BuildPersistSnapshot 自上次落库以来有变化时返回快照并清掉脏标记。
func (e *Engagement) BuildPersistSnapshot() (*PersistSnapshot, bool) {
	if !e.dirty {
		return nil, false
	}
	e.dirty = false
	e.version++
	return &PersistSnapshot{
		Version:   e.version,
		BattleID:  e.id,
		Finished:  e.stage == StageFinished || e.destroyed,
		Snapshots: e.Snapshots(),
	}, true
}

// Squads 最近一次模拟推进后的兵团状态。
func (e *Engagement) Squads() []SquadState {
	return append([]SquadState(nil), e.squads...)
}
