package engagement

import (
	"strings"

	"Warfront/internal/world/entity"
)

type BattleID = entity.BattleID

// Type 是战斗类型，决定胜负规则和攻城/掠夺子系统是否运转。
type Type int8

const (
	TypeOpenField Type = iota
	TypePlunder
	TypeSiege
	TypeAssault
	TypeBreakSiege
	TypeNaval
	TypePlunderInterrupt
)

var typeNames = [...]string{"open_field", "plunder", "siege", "assault", "break_siege", "naval", "plunder_interrupt"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// IsSiege 攻城三态：围城、强攻、突围。
func (t Type) IsSiege() bool {
	return t == TypeSiege || t == TypeAssault || t == TypeBreakSiege
}

func (t Type) IsPlunder() bool {
	return t == TypePlunder || t == TypePlunderInterrupt
}

// Stage 只会单调前进，回退只能经 Restart 或改变战斗类型。
type Stage int8

const (
	StagePreparing Stage = iota
	StageEnteringBattle
	StageOngoing
	StageFinishing
	StageFinished
)

var stageNames = [...]string{"preparing", "entering_battle", "ongoing", "finishing", "finished"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Side 0 为进攻方，1 为防守方。
type Side int8

const (
	SideNone     Side = -1
	SideAttacker Side = 0
	SideDefender Side = 1
)

func (s Side) Valid() bool {
	return s == SideAttacker || s == SideDefender
}

func (s Side) Other() Side {
	switch s {
	case SideAttacker:
		return SideDefender
	case SideDefender:
		return SideAttacker
	default:
		return SideNone
	}
}

func (s Side) String() string {
	switch s {
	case SideAttacker:
		return "attacker"
	case SideDefender:
		return "defender"
	default:
		return "none"
	}
}

type VictoryReason int8

const (
	ReasonNone VictoryReason = iota
	ReasonCombat
	ReasonLeaderKilled
	ReasonCapturePoints
	ReasonRetreat
	ReasonIdleLeave
	ReasonCancelled
	ReasonBroken
)

var reasonNames = [...]string{"none", "combat", "leader_killed", "capture_points", "retreat", "idle_leave", "cancelled", "broken"}

func (r VictoryReason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}

// JoinSide 是 GetJoinSide 的结果：0/1 为可加入的阵营，其余为哨兵值。
type JoinSide int8

const (
	JoinAttacker JoinSide = 0
	JoinDefender JoinSide = 1
	// JoinSideNone 不能加入（中立、无效军队、战斗已结束）
	JoinSideNone JoinSide = -1
	// JoinSideCommitted 军队已经挂在某场战斗上
	JoinSideCommitted JoinSide = -2
	// JoinSideCounter 与双方都敌对：取消当前战斗，以加入者为攻方重开一场
	JoinSideCounter JoinSide = -3
)

func (j JoinSide) Side() (Side, bool) {
	if j == JoinAttacker || j == JoinDefender {
		return Side(j), true
	}
	return SideNone, false
}

// Action 是对外暴露的指令面。
type Action string

const (
	ActionAssault           Action = "assault"
	ActionBreakSiege        Action = "break_siege"
	ActionEnterBattle       Action = "enter_battle"
	ActionLeaveBattle       Action = "leave_battle"
	ActionRetreat           Action = "retreat"
	ActionIdleLeaveBattle   Action = "idle_leave_battle"
	ActionRetreatSupporters Action = "retreat_supporters"
	ActionRefuseSupporters  Action = "refuse_supporters"
	ActionTactics           Action = "tactics"
)

var actions = map[Action]struct{}{
	ActionAssault: {}, ActionBreakSiege: {}, ActionEnterBattle: {}, ActionLeaveBattle: {},
	ActionRetreat: {}, ActionIdleLeaveBattle: {}, ActionRetreatSupporters: {},
	ActionRefuseSupporters: {}, ActionTactics: {},
}

func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := actions[a]
	return a, ok
}
