package engagement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Warfront/modules/kit/errx"
	"Warfront/modules/kit/logx"
)

// ArmyView 是判定胜负所需的军队摘要。
type ArmyView struct {
	AliveUnits   int
	HasLeader    bool
	LeaderActive bool
}

func (a ArmyView) capable() bool {
	return a.AliveUnits > 0 && (!a.HasLeader || a.LeaderActive)
}

type SideView struct {
	Armies        []ArmyView
	GarrisonAlive int
	Retreated     bool
}

// armiesCapable 至少一支军队还有存活兵团且将领仍能指挥。
func (s SideView) armiesCapable() bool {
	for _, a := range s.Armies {
		if a.capable() {
			return true
		}
	}
	return false
}

func (s SideView) capable() bool {
	return s.armiesCapable() || s.GarrisonAlive > 0
}

// leaderless 兵团尚存，但所有有兵的军队将领都已阵亡或被俘。
func (s SideView) leaderless() bool {
	alive := false
	for _, a := range s.Armies {
		if a.AliveUnits == 0 {
			continue
		}
		alive = true
		if !a.HasLeader || a.LeaderActive {
			return false
		}
	}
	return alive && s.GarrisonAlive == 0
}

func (s SideView) defeatReason() VictoryReason {
	switch {
	case s.Retreated:
		return ReasonRetreat
	case s.leaderless():
		return ReasonLeaderKilled
	default:
		return ReasonCombat
	}
}

// View 是胜负判定的纯输入。
type View struct {
	Type            Type
	Sides           [2]SideView
	CapturePoints   []CapturePoint
	PlunderProgress time.Duration
	PlunderDuration time.Duration
	Resilience      float64
	ForcesInside    int
}

// Verdict 是判定结果：要么决出胜负，要么要求状态机切换战斗类型，要么什么都不做。
type Verdict struct {
	Decided       bool
	Winner        Side
	Reason        VictoryReason
	HasTransition bool
	Transition    Type
}

func decided(winner Side, reason VictoryReason) Verdict {
	return Verdict{Decided: true, Winner: winner, Reason: reason}
}

func transition(t Type) Verdict {
	return Verdict{Winner: SideNone, HasTransition: true, Transition: t}
}

var undecided = Verdict{Winner: SideNone}

// Evaluate 按固定顺序判定：
//  1. 计分占领点全部归一方 → 该方胜
//  2. 攻方失去作战能力 → 守方胜（仅将领全失时为 LeaderKilled）
//  3. 掠夺：进度满且守方无人 → 攻方胜；守军出现则中断，守军离开则恢复
//  4. 围城：守方覆灭 → 攻方胜；韧性归零时城内有兵则转突围，否则攻方胜
//  5. 其他类型：守方覆灭 → 攻方胜
//
// 双方同时覆灭时规则 2 先于 3-5 生效，判守方胜。攻方虽然先被检查，
// 检查的却是攻方是否已经失败，所以同一 tick 双方覆灭不会判攻方胜。
func Evaluate(v View) Verdict {
	if w, ok := capturePointWinner(v.CapturePoints); ok {
		return decided(w, ReasonCapturePoints)
	}
	att, def := v.Sides[SideAttacker], v.Sides[SideDefender]
	if !att.capable() {
		return decided(SideDefender, att.defeatReason())
	}
	defDefeated := !def.capable()

	if v.Type.IsPlunder() {
		if defDefeated && v.PlunderProgress >= v.PlunderDuration {
			return decided(SideAttacker, def.defeatReason())
		}
		present := def.armiesCapable()
		if v.Type == TypePlunder && present {
			return transition(TypePlunderInterrupt)
		}
		if v.Type == TypePlunderInterrupt && !present {
			return transition(TypePlunder)
		}
		return undecided
	}

	if v.Type == TypeSiege {
		if defDefeated {
			return decided(SideAttacker, def.defeatReason())
		}
		if v.Resilience <= 0 {
			if v.ForcesInside > 0 {
				return transition(TypeBreakSiege)
			}
			return decided(SideAttacker, ReasonCombat)
		}
		return undecided
	}

	if defDefeated {
		return decided(SideAttacker, def.defeatReason())
	}
	return undecided
}

func capturePointWinner(points []CapturePoint) (Side, bool) {
	counting := 0
	owned := [2]int{}
	for _, p := range points {
		if !p.CountsForVictory {
			continue
		}
		counting++
		if p.Owner.Valid() {
			owned[p.Owner]++
		}
	}
	if counting == 0 {
		return SideNone, false
	}
	for _, side := range []Side{SideAttacker, SideDefender} {
		if owned[side] == counting {
			return side, true
		}
	}
	return SideNone, false
}

// View 从世界状态构建判定输入。
func (e *Engagement) View() View {
	now := e.now()
	v := View{Type: e.typ}
	for side := SideAttacker; side <= SideDefender; side++ {
		sv := SideView{Retreated: e.retreated[side]}
		for _, a := range e.Armies(side) {
			av := ArmyView{AliveUnits: a.Squads()}
			if leader, ok := e.ctx.World.Leader(a); ok {
				av.HasLeader = true
				av.LeaderActive = leader.Active()
			}
			sv.Armies = append(sv.Armies, av)
		}
		v.Sides[side] = sv
	}
	if st, ok := e.Settlement(); ok {
		v.Sides[SideDefender].GarrisonAlive = st.GarrisonAlive()
		v.ForcesInside = st.GarrisonAlive()
		for _, a := range e.Armies(SideDefender) {
			if a.ID == st.Army {
				v.ForcesInside += a.Squads()
			}
		}
	}
	if e.sim != nil {
		v.CapturePoints = e.sim.CapturePoints()
	}
	if e.plunder != nil {
		v.PlunderProgress = e.plunder.Progress(now)
		v.PlunderDuration = e.plunder.Duration()
	}
	if e.siege != nil {
		v.Resilience = e.siege.Resilience(now)
	}
	return v
}

// CheckVictory 判定并应用结果。
func (e *Engagement) CheckVictory() {
	if !e.ctx.Authority || e.destroyed || e.stage >= StageFinishing {
		return
	}
	e.applyVerdict(Evaluate(e.View()))
}

func (e *Engagement) applyVerdict(v Verdict) {
	if v.Decided {
		e.timers.Cancel(timerPlunderResume)
		e.Victory(v.Winner, v.Reason, false)
		return
	}
	if !v.HasTransition {
		e.timers.Cancel(timerPlunderResume)
		return
	}
	switch v.Transition {
	case TypePlunderInterrupt:
		e.PlunderInterrupt()
	case TypePlunder:
		e.scheduleResumePlunder()
	case TypeBreakSiege:
		e.BreakSiege(SideDefender)
	}
}

func (e *Engagement) scheduleResumePlunder() {
	if e.ctx.Rules.PlunderResumeDelay <= 0 {
		e.ResumePlunder()
		return
	}
	if e.timers.Pending(timerPlunderResume) {
		return
	}
	e.timers.Schedule(timerPlunderResume, e.now()+e.ctx.Rules.PlunderResumeDelay, func() {
		if e.typ == TypePlunderInterrupt && !e.View().Sides[SideDefender].armiesCapable() {
			e.ResumePlunder()
		}
	})
}

// Victory 宣布胜者并执行结算。进入 Finishing 后结果冻结，除非 force。
func (e *Engagement) Victory(winner Side, reason VictoryReason, force bool) bool {
	if !e.ctx.Authority || e.destroyed || !winner.Valid() {
		return false
	}
	if e.stage >= StageFinishing && !force {
		return false
	}
	ok := e.safely("victory", func() {
		e.winner = winner
		e.reason = reason
		e.stopSubsystems()
		e.runAftermath()
	})
	if !ok {
		return false
	}
	e.log.Info("battle decided", zap.String("winner", winner.String()), zap.String("reason", reason.String()), zap.Bool("forced", force))
	e.publish(Event{Kind: EventVictory, Side: winner})
	if e.stage < StageFinishing {
		e.setStage(StageFinishing, 0)
	}
	return true
}

// Cancel 中止战斗，只执行精简结算（围城回写 + 清理）。进入 Finishing 后幂等。
func (e *Engagement) Cancel(reason VictoryReason) bool {
	if e.destroyed || e.stage >= StageFinishing {
		return false
	}
	if reason == ReasonNone {
		reason = ReasonCancelled
	}
	ok := e.safely("cancel", func() {
		e.winner = SideNone
		e.reason = reason
		e.stopSubsystems()
		e.runCancelledAftermath()
	})
	if !ok {
		return false
	}
	e.log.Info("battle cancelled", zap.String("reason", reason.String()))
	e.publish(Event{Kind: EventCancelled})
	e.setStage(StageFinishing, 0)
	return true
}

func (e *Engagement) stopSubsystems() {
	e.stopSiege()
	e.stopCountdowns()
	if e.plunder != nil {
		e.plunder.SetRate(e.now(), 0)
	}
}

// safely 捕获结算过程中的 panic，记录系统错误后强制清理。
func (e *Engagement) safely(action string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := errx.NewSys(errx.CodeOutcomeFailed, action).
				WithData("battle_id", int64(e.id)).
				WithCause(fmt.Errorf("panic: %v", r))
			logx.ReportSysErrorWithLoggerContext(context.Background(), e.log, logx.NewSysLog("battle_"+action, err))
			e.breakEngagement("outcome_failed")
			ok = false
		}
	}()
	fn()
	return true
}
