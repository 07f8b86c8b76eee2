package engagement

import (
	"go.uber.org/zap"
)

// CheckBroken 检查战斗与世界对象的关联是否仍然一致，不一致时强制清理。
// 只在权威节点、结算之前执行。
func (e *Engagement) CheckBroken() bool {
	if !e.ctx.Authority || e.destroyed || e.stage >= StageFinishing {
		return false
	}
	reason := e.integrityViolation()
	if reason == "" {
		return false
	}
	e.breakEngagement(reason)
	return true
}

func (e *Engagement) integrityViolation() string {
	for side := SideAttacker; side <= SideDefender; side++ {
		opp := e.sideKingdom(side.Other())
		for _, id := range e.sides[side] {
			a, ok := e.ctx.World.Army(id)
			if !ok {
				return "army_destroyed"
			}
			if a.Battle != e.id {
				return "army_unlinked"
			}
			if opp != 0 && e.ctx.Diplomacy != nil && !e.ctx.Diplomacy.IsHostile(a.Kingdom, opp) {
				return "not_hostile"
			}
			if e.stage == StageOngoing && e.sim != nil {
				for _, u := range a.AliveUnits() {
					if !e.sim.HasUnit(u.ID) {
						return "unit_unlinked"
					}
				}
			}
		}
	}
	if st, ok := e.Settlement(); ok && st.Battle != e.id {
		return "settlement_unlinked"
	}
	return ""
}

// breakEngagement 强制清理：销毁双方军队，断开城池，直接进入 Finished 并销毁战斗。
func (e *Engagement) breakEngagement(reason string) {
	if e.destroyed {
		return
	}
	e.log.Error("battle broken", zap.String("reason", reason), zap.String("stage", e.stage.String()))
	if e.siege != nil {
		e.siege.stop(e.now())
	}
	if e.plunder != nil {
		e.plunder.SetRate(e.now(), 0)
	}
	for side := SideAttacker; side <= SideDefender; side++ {
		for _, id := range e.sides[side] {
			e.ctx.World.DestroyArmy(id)
		}
		e.sides[side] = nil
	}
	if st, ok := e.Settlement(); ok && st.Battle == e.id {
		st.SetBattle(0)
	}
	e.slots = [4]Slot{}
	e.intended = nil
	e.timers.Clear()
	e.reason = ReasonBroken
	e.stage = StageFinished
	e.stageStamped = true
	e.stageStartedAt = e.now()
	e.ctx.World.MarkDirty()
	e.publish(Event{Kind: EventBroken, Detail: reason})
	e.Destroy()
}
