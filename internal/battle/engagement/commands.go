package engagement

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"Warfront/modules/kit/errx"
	"Warfront/modules/kit/logx"
)

// DoAction 执行外部指令。阵营或参数非法时记录并返回错误，不修改状态；
// 非权威节点把指令转发给权威节点。
func (e *Engagement) DoAction(ctx context.Context, action Action, side Side, param string) error {
	if _, ok := actions[action]; !ok {
		return e.reject(ctx, errx.ErrInvalidCommand.WithData("action", string(action)), action, "unknown_action")
	}
	if !side.Valid() {
		return e.reject(ctx, errx.ErrInvalidSide.WithData("side", int(side)), action, "invalid_side")
	}
	if action == ActionTactics && strings.TrimSpace(param) == "" {
		return e.reject(ctx, errx.ErrInvalidParam.WithData("param", param), action, "empty_tactics")
	}
	if e.destroyed {
		return errx.ErrBattleNotFound.WithData("battle_id", int64(e.id))
	}
	if !e.ctx.Authority {
		if e.ctx.Forwarder == nil {
			return errx.ErrNotAuthority
		}
		return e.ctx.Forwarder.Forward(ctx, Command{Battle: e.id, Action: action, Side: side, Param: param})
	}

	var ok bool
	switch action {
	case ActionAssault:
		ok = side == SideAttacker && (e.Assault() || e.AssaultGate())
	case ActionBreakSiege:
		ok = e.BreakSiege(side)
	case ActionEnterBattle:
		ok = e.EnterBattle(param)
	case ActionLeaveBattle:
		ok = e.LeaveBattle()
	case ActionRetreat:
		ok = e.Retreat(side)
	case ActionIdleLeaveBattle:
		ok = e.IdleLeave(side)
	case ActionRetreatSupporters:
		ok = e.RetreatSupporters(side)
	case ActionRefuseSupporters:
		ok = e.RefuseSupporters(side)
	case ActionTactics:
		if e.sim == nil {
			ok = false
			break
		}
		if err := e.sim.SetTactics(side, param); err != nil {
			return e.reject(ctx, errx.ErrInvalidParam.WithCause(err).WithData("param", param), action, "bad_tactics")
		}
		ok = true
	}
	if !ok {
		return e.reject(ctx, errx.ErrPrecondition.WithData("stage", e.stage.String()).WithData("type", e.typ.String()), action, "precondition")
	}
	e.log.Debug("action applied", zap.String("action", string(action)), zap.String("side", side.String()))
	return nil
}

func (e *Engagement) reject(ctx context.Context, err *errx.Error, action Action, reason string) error {
	logx.ReportBizWithLoggerContext(ctx, e.log, logx.NewBizLog("battle_"+string(action), reason, err.Msg()),
		zap.String("error_code", err.CodeText()))
	return err
}

// Assault 城防削弱过半或城门已开时发起强攻。
func (e *Engagement) Assault() bool {
	if !e.CanAssault() {
		return false
	}
	e.stopSiege()
	e.changeType(TypeAssault)
	return true
}

// AssaultGate 尝试打开城门，成功后允许直接强攻。
func (e *Engagement) AssaultGate() bool {
	if e.typ != TypeSiege || e.stage >= StageFinishing || e.gateOpened {
		return false
	}
	if len(e.Armies(SideAttacker)) == 0 {
		return false
	}
	if e.ctx.Rand.Float64() >= e.ctx.Rules.GateAssaultChance {
		return false
	}
	e.gateOpened = true
	e.refreshAssaultAvailability()
	return true
}

// BreakSiege 守方出城突围，需要城内仍有兵力。
func (e *Engagement) BreakSiege(from Side) bool {
	if from != SideDefender || e.typ != TypeSiege || e.stage >= StageFinishing {
		return false
	}
	if e.sideSquads(SideDefender) == 0 {
		return false
	}
	e.stopSiege()
	e.changeType(TypeBreakSiege)
	return true
}

// ResumeSiege 从突围或强攻退回围城，城防按领地残余比例重新推导。
func (e *Engagement) ResumeSiege() bool {
	if (e.typ != TypeBreakSiege && e.typ != TypeAssault) || e.stage >= StageFinishing {
		return false
	}
	if _, ok := e.Settlement(); !ok {
		return false
	}
	e.stopSiege()
	e.gateOpened = false
	e.changeType(TypeSiege)
	e.startSiege()
	return true
}

func (e *Engagement) PlunderInterrupt() bool {
	if e.typ != TypePlunder || e.stage >= StageFinishing {
		return false
	}
	e.changeType(TypePlunderInterrupt)
	return true
}

func (e *Engagement) ResumePlunder() bool {
	if e.typ != TypePlunderInterrupt || e.stage >= StageFinishing {
		return false
	}
	e.timers.Cancel(timerPlunderResume)
	e.changeType(TypePlunder)
	return true
}

// EnterBattle 打开表现层会话；地图加载完成前停在 EnteringBattle。
// 会话关闭后在 Ongoing 中重新打开时经 Restart 回到 Preparing 重走一轮。
func (e *Engagement) EnterBattle(mapName string) bool {
	if e.stage >= StageFinishing {
		return false
	}
	reopen := e.presented && !e.presentation.active && e.stage == StageOngoing
	e.presented = true
	e.presentation = presentation{active: true, mapName: mapName}
	e.AttachViewer()
	if reopen && e.Restart() {
		return true
	}
	e.presentation.loaded = e.stage == StageOngoing
	if e.stage == StageOngoing {
		e.restartReinforcementTimers()
	}
	return true
}

// PresentationLoaded 表现层地图加载完成。
func (e *Engagement) PresentationLoaded() {
	if e.presentation.active {
		e.presentation.loaded = true
	}
}

func (e *Engagement) PresentationMap() string { return e.presentation.mapName }

func (e *Engagement) LeaveBattle() bool {
	if !e.presentation.active || e.viewers == 0 {
		return false
	}
	e.DetachViewer()
	return true
}

// IdleLeave 备战阶段不交战直接离开：不受撤退伤害，战斗以 IdleLeave 取消。
func (e *Engagement) IdleLeave(side Side) bool {
	if e.stage != StagePreparing || len(e.sides[side]) == 0 {
		return false
	}
	e.idleLeaving = true
	for _, id := range e.SideArmies(side) {
		e.detach(id)
		e.publish(Event{Kind: EventArmyLeft, Side: side, Army: int64(id), Detail: "idle_leave"})
	}
	return e.Cancel(ReasonIdleLeave)
}

// RetreatSupporters 支援军队撤退，主力留下。
func (e *Engagement) RetreatSupporters(side Side) bool {
	if len(e.sides[side]) < 2 || e.stage >= StageFinishing {
		return false
	}
	return e.Leave(e.sides[side][1], true)
}

// RefuseSupporters 请离支援军队并拒绝之后的任何支援。
func (e *Engagement) RefuseSupporters(side Side) bool {
	if e.stage >= StageFinishing {
		return false
	}
	e.refuseSupport[side] = true
	for i := range e.slots {
		if slotSide(i) == side && e.slots[i].Army != 0 {
			e.slots[i] = Slot{}
		}
	}
	if len(e.sides[side]) >= 2 {
		id := e.sides[side][1]
		e.refused[id] = true
		e.Leave(id, false)
	}
	e.publish(Event{Kind: EventReinforcementsChanged, Side: side})
	return true
}
