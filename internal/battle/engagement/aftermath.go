package engagement

import (
	"math"
	"time"

	"go.uber.org/zap"

	"Warfront/internal/world/entity"
)

// aftermath 是一次结算的工作区，步骤顺序固定：
// 补给 → 治疗与减员 → 俘虏/突围 → 士气 → 经验 → 领土与外交 → 掠夺分配 → 清理。
type aftermath struct {
	e      *Engagement
	world  *entity.World
	rules  *Rules
	now    time.Duration
	winner Side
	loser  Side

	participants [2][]*entity.Army
	casualties   [2]int
	captured     map[entity.ArmyID]bool
	escaped      map[entity.ArmyID]bool
	report       *Report
}

func newAftermath(e *Engagement) *aftermath {
	am := &aftermath{
		e:        e,
		world:    e.ctx.World,
		rules:    &e.ctx.Rules,
		now:      e.now(),
		winner:   e.winner,
		loser:    e.winner.Other(),
		captured: make(map[entity.ArmyID]bool),
		escaped:  make(map[entity.ArmyID]bool),
	}
	for side := SideAttacker; side <= SideDefender; side++ {
		am.participants[side] = e.Armies(side)
		am.casualties[side] = max(0, e.startTroops[side]-e.sideTroops(side)-e.departedTroops(side))
	}
	am.report = &Report{
		Battle:          e.id,
		Type:            e.typ,
		Winner:          e.winner,
		Reason:          e.reason,
		Settlement:      e.settlement,
		AttackerKingdom: e.sideKingdom(SideAttacker),
		DefenderKingdom: e.sideKingdom(SideDefender),
		StartTroops:     e.startTroops,
		Casualties:      am.casualties,
		FinishedAt:      am.now,
	}
	for side := SideAttacker; side <= SideDefender; side++ {
		for i, a := range am.participants[side] {
			am.report.Armies = append(am.report.Armies, ArmyReport{
				Army: a.ID, Kingdom: a.Kingdom, Leader: a.Leader, Side: side, Supporter: i > 0,
			})
		}
	}
	return am
}

// departedTroops 撤退离场军队的现存兵力，不计入伤亡。
func (e *Engagement) departedTroops(side Side) int {
	n := 0
	for _, id := range e.departed[side] {
		if a, ok := e.ctx.World.Army(id); ok {
			n += a.Troops()
		}
	}
	return n
}

// runAftermath 一次性结算：can_add_experience 只放行一次。
func (e *Engagement) runAftermath() {
	if !e.canAddExperience {
		e.log.Debug("aftermath already applied")
		return
	}
	e.canAddExperience = false
	am := newAftermath(e)
	am.consumeSupplies()
	am.healAndPrune()
	am.resolveCaptures()
	am.applyMorale()
	am.distributeExperience()
	am.applyTerritory()
	am.transferPlunder()
	am.cleanup()
	e.finishReport(am.report)
}

// runCancelledAftermath 取消时只做围城回写（stopSubsystems 已完成）和清理。
func (e *Engagement) runCancelledAftermath() {
	if !e.canAddExperience {
		return
	}
	e.canAddExperience = false
	am := newAftermath(e)
	am.report.Cancelled = true
	am.cleanup()
	e.finishReport(am.report)
}

func (e *Engagement) finishReport(r *Report) {
	e.report = r
	e.ctx.World.MarkDirty()
	if e.ctx.Reports != nil {
		e.ctx.Reports.Report(r)
	}
}

func (am *aftermath) all() []*entity.Army {
	return append(append([]*entity.Army(nil), am.participants[SideAttacker]...), am.participants[SideDefender]...)
}

func (am *aftermath) consumeSupplies() {
	for _, a := range am.all() {
		if !a.Exempt() {
			a.AddSupplies(-am.rules.BattleSupplyCost)
		}
	}
}

// healAndPrune 战后恢复一部分伤损，伤势超过上限的兵团直接除名。
func (am *aftermath) healAndPrune() {
	heal := func(units []*entity.Unit, frac float64) {
		for _, u := range units {
			u.Heal(frac)
			if u.Alive() && u.Damage >= am.rules.MaxSurvivableDamage {
				u.Destroyed = true
				u.Troops = 0
			}
		}
	}
	for side := SideAttacker; side <= SideDefender; side++ {
		frac := am.rules.HealFraction
		if side == am.loser {
			frac = am.rules.HealFractionLoser
		}
		for _, a := range am.participants[side] {
			heal(a.Units, frac)
			a.PruneUnits()
		}
	}
	if st, ok := am.e.Settlement(); ok {
		frac := am.rules.HealFraction
		if am.loser == SideDefender {
			frac = am.rules.HealFractionLoser
		}
		heal(st.Garrison, frac)
		kept := st.Garrison[:0]
		for _, u := range st.Garrison {
			if u.Alive() {
				kept = append(kept, u)
			}
		}
		st.Garrison = kept
	}
}

// resolveCaptures 败方（含中途撤退的军队）将领按军阶查表判定被俘；
// 围城守方未被俘的将领有机会带着贵族兵团逃往附近友方城池。
func (am *aftermath) resolveCaptures() {
	captor := am.e.sideKingdom(am.winner)
	losers := append([]*entity.Army(nil), am.participants[am.loser]...)
	retreating := make(map[entity.ArmyID]bool)
	for _, id := range am.e.departed[am.loser] {
		if a, ok := am.world.Army(id); ok && a.Battle == 0 {
			losers = append(losers, a)
			retreating[id] = true
		}
	}
	st, hasSettlement := am.e.Settlement()
	for _, a := range losers {
		leader, ok := am.world.Leader(a)
		if !ok || !leader.Active() {
			continue
		}
		table := am.rules.CaptureChanceRetreat
		if !retreating[a.ID] && a.Squads() == 0 {
			table = am.rules.CaptureChanceWiped
		}
		if am.e.ctx.Rand.Float64() < table[leader.Rank.String()] {
			leader.Imprison(captor)
			am.captured[a.ID] = true
			if dip := am.e.ctx.Diplomacy; dip != nil {
				dip.OnImprisoned(captor, a.Kingdom, leader.ID)
				dip.AddWarActivity(captor, a.Kingdom, "imprisoned_leader", am.rules.ImprisonScore)
			}
			if r := am.report.armyReport(a.ID); r != nil {
				r.Captured = true
			}
			am.e.log.Info("leader captured", zap.Int64("army", int64(a.ID)), zap.Int64("leader", int64(leader.ID)))
			continue
		}
		if !am.e.typ.IsSiege() || !hasSettlement || am.loser != SideDefender || retreating[a.ID] {
			continue
		}
		if am.e.ctx.Rand.Float64() >= am.rules.EscapeChance {
			continue
		}
		if dest, ok := am.escapeTarget(a, st); ok {
			a.KeepOnly(func(u *entity.Unit) bool { return u.Kind == entity.UnitNoble })
			a.Position = dest.Position
			a.Realm = dest.Realm
			if dest.Army == 0 {
				dest.Army = a.ID
			}
			if st.Army == a.ID {
				st.Army = 0
			}
			am.escaped[a.ID] = true
			if r := am.report.armyReport(a.ID); r != nil {
				r.Escaped = true
			}
		}
	}
}

// escapeTarget 最近的友方设防城池（不在战斗中）。
func (am *aftermath) escapeTarget(a *entity.Army, from *entity.Settlement) (*entity.Settlement, bool) {
	var (
		best *entity.Settlement
		dist = math.MaxFloat64
	)
	for _, s := range am.world.Settlements() {
		if s.ID == from.ID || !s.Fortified || s.Battle != 0 || !am.friendly(s.Kingdom, a.Kingdom) {
			continue
		}
		d := s.Position.Dist(from.Position)
		if d <= am.rules.EscapeRadius && d < dist {
			best, dist = s, d
		}
	}
	return best, best != nil
}

func (am *aftermath) friendly(a, b entity.KingdomID) bool {
	if a == b {
		return true
	}
	dip := am.e.ctx.Diplomacy
	return dip != nil && dip.IsAlly(a, b)
}

// applyMorale 附近军队按与胜/败方的关系调整士气；城池失守时本领地及相邻领地的败方军队额外受挫。
func (am *aftermath) applyMorale() {
	winK, loseK := am.e.sideKingdom(am.winner), am.e.sideKingdom(am.loser)
	adjust := func(a *entity.Army, delta float64) {
		a.Morale = math.Max(0, math.Min(am.rules.MaxMorale, a.Morale+delta))
	}
	for _, a := range am.world.ArmiesNear(am.e.position, am.rules.MoraleRadius) {
		if am.escaped[a.ID] {
			continue
		}
		switch {
		case am.friendly(a.Kingdom, winK):
			adjust(a, am.rules.MoraleWin)
		case am.friendly(a.Kingdom, loseK):
			adjust(a, am.rules.MoraleLose)
		default:
			adjust(a, am.rules.MoraleNeutral)
		}
	}
	if !am.settlementCaptured() {
		return
	}
	st, _ := am.e.Settlement()
	realm, ok := am.world.Realm(st.Realm)
	if !ok {
		return
	}
	for _, a := range am.world.Armies() {
		if am.escaped[a.ID] || !am.friendly(a.Kingdom, loseK) {
			continue
		}
		if a.Realm == realm.ID || realm.IsNeighbor(a.Realm) {
			adjust(a, am.rules.TownCapturedMorale)
		}
	}
}

func (am *aftermath) settlementCaptured() bool {
	return am.winner == SideAttacker && am.e.settlement != 0 && am.e.typ.IsSiege()
}

func (am *aftermath) settlementPillaged() bool {
	return am.winner == SideAttacker && am.e.settlement != 0 && am.e.typ.IsPlunder()
}

// distributeExperience 经验 = 基础 + 速度 × (1 + 总兵团数 × 系数) × 杀伤比 × 兵力比。
// 贵族兵团与已阵亡兵团不获得经验。
func (am *aftermath) distributeExperience() {
	squads := float64(am.e.startSquads[SideAttacker] + am.e.startSquads[SideDefender])
	for side := SideAttacker; side <= SideDefender; side++ {
		own := float64(am.e.startTroops[side])
		enemy := float64(am.e.startTroops[side.Other()])
		killed := float64(am.casualties[side.Other()])
		gain := am.rules.ExpBase + am.rules.ExpGainSpeed*(1+squads*am.rules.ExpPerSquadMod)*ratio(killed, enemy)*ratio(enemy, own)
		am.report.Experience[side] = gain
		for _, a := range am.participants[side] {
			for _, u := range a.Units {
				if !u.Alive() || u.Kind == entity.UnitNoble {
					continue
				}
				u.Experience += gain
			}
		}
	}
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}
