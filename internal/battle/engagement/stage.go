package engagement

import (
	"time"

	"go.uber.org/zap"
)

// SetStage 外部推进阶段；elapsed 为新阶段已经经过的时间（复制端对齐用）。
// 阶段不能回退，回退只能经 Restart 或改变战斗类型。
func (e *Engagement) SetStage(stage Stage, elapsed time.Duration) bool {
	if e.destroyed || stage < e.stage {
		e.log.Warn("stage rewind refused", zap.String("from", e.stage.String()), zap.String("to", stage.String()))
		return false
	}
	return e.setStage(stage, elapsed)
}

func (e *Engagement) setStage(stage Stage, elapsed time.Duration) bool {
	if stage == e.stage && e.stageStamped {
		return false
	}
	from := e.stage
	e.stage = stage
	e.stageStamped = true
	e.stageStartedAt = e.now() - elapsed

	switch stage {
	case StagePreparing:
		e.retreated = [2]bool{}
		e.idleLeaving = false
		e.prepDuration = e.ctx.preparation(e.sideTroops(SideAttacker), e.sideTroops(SideDefender))
		e.scheduleHeal()
	case StageOngoing:
		e.timers.Cancel(timerHeal)
		if !e.assaultChecked {
			e.assaultChecked = true
			e.refreshAssaultAvailability()
		}
		if e.presentation.active {
			e.restartReinforcementTimers()
		}
	case StageFinishing:
		e.timers.Clear()
		e.stopCountdowns()
		e.RefreshPlunderProgress()
	case StageFinished:
		e.timers.Clear()
	}

	e.log.Debug("stage changed", zap.String("from", from.String()), zap.String("to", stage.String()), zap.Int("phase", e.phase))
	e.publish(Event{Kind: EventStageChanged, Detail: from.String()})

	if stage == StageFinished && e.viewers == 0 {
		e.Destroy()
	}
	return true
}

// rewind 是唯一允许阶段回退的入口。
func (e *Engagement) rewind(stage Stage) {
	e.phase++
	e.stage = stage
	e.stageStamped = false
	e.setStage(stage, 0)
}

// Restart 重新打开一轮表现层流程并回到 Preparing，仅在胜负未定且未取消时允许。
func (e *Engagement) Restart() bool {
	if e.destroyed || e.winner != SideNone || e.reason != ReasonNone || !e.canAddExperience || e.stage >= StageFinishing {
		return false
	}
	e.stopCountdowns()
	e.rewind(StagePreparing)
	if e.sim != nil {
		e.sim.Restart()
	}
	return true
}

// changeType 改变战斗类型并回到 Preparing。
func (e *Engagement) changeType(t Type) {
	from := e.typ
	e.typ = t
	e.RefreshPlunderProgress()
	e.log.Info("battle type changed", zap.String("from", from.String()), zap.String("to", t.String()))
	e.publish(Event{Kind: EventTypeChanged, Detail: from.String()})
	e.rewind(StagePreparing)
}

const (
	timerHeal          = "heal"
	timerPlunderResume = "plunder_resume"
)

// scheduleHeal 围城备战期间守军按间隔回复。
func (e *Engagement) scheduleHeal() {
	if !e.typ.IsSiege() || e.ctx.Rules.HealInterval <= 0 || e.ctx.Rules.PreparationHeal <= 0 {
		return
	}
	phase := e.phase
	e.timers.Schedule(timerHeal, e.now()+e.ctx.Rules.HealInterval, func() {
		if e.stage != StagePreparing || e.phase != phase {
			return
		}
		for _, u := range e.Garrison() {
			u.Heal(e.ctx.Rules.PreparationHeal)
		}
		for _, a := range e.Armies(SideDefender) {
			for _, u := range a.Units {
				u.Heal(e.ctx.Rules.PreparationHeal)
			}
		}
		e.scheduleHeal()
	})
}
