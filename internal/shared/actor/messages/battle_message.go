package messages

import (
	"time"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/service"
	"Warfront/internal/world/entity"
)

// BattleMessage 是发往 BattleActor 的请求，ManagerActor 按 WorldID 路由。
type BattleMessage interface {
	WorldID() int
	TraceID() string
}

type BattleBaseMessage struct {
	WorldId int
	TraceId string
}

func (b BattleBaseMessage) WorldID() int {
	return b.WorldId
}

func (b BattleBaseMessage) TraceID() string {
	return b.TraceId
}

type HBContact struct {
	BattleBaseMessage
	Army   entity.ArmyID
	Kind   engagement.TargetKind
	Target int64
}

type HBCommand struct {
	BattleBaseMessage
	Command engagement.Command
}

type HBJoin struct {
	BattleBaseMessage
	Battle engagement.BattleID
	Army   entity.ArmyID
}

type HBReinforce struct {
	BattleBaseMessage
	Battle   engagement.BattleID
	Army     entity.ArmyID
	Slot     int
	Estimate time.Duration
	Force    bool
}

type HBIntended struct {
	BattleBaseMessage
	Battle engagement.BattleID
	Army   entity.ArmyID
}

type HBWatch struct {
	BattleBaseMessage
	Battle engagement.BattleID
	// OnEvent 在 actor goroutine 内调用，不能阻塞
	OnEvent func(engagement.Event)
}

type HBUnwatch struct {
	BattleBaseMessage
	Battle engagement.BattleID
}

type HBBattle struct {
	BattleBaseMessage
	Battle engagement.BattleID
}

type HBBattles struct {
	BattleBaseMessage
}

// HBSnapshots Battle 为 0 时返回全部战斗。
type HBSnapshots struct {
	BattleBaseMessage
	Battle engagement.BattleID
}

// HBSync 副本用全量快照对齐。
type HBSync struct {
	BattleBaseMessage
	Snapshots []engagement.Snapshot
}

type BHResult struct {
	Err error
}

type BHBattle struct {
	View service.BattleView
	Err  error
}

type BHBattles struct {
	Views []service.BattleView
}

type BHWatch struct {
	View service.BattleView
	// Cancel 取消事件订阅，可在任意 goroutine 调用
	Cancel func()
	Err    error
}

type BHSnapshots struct {
	Snapshots []engagement.Snapshot
	Err       error
}
