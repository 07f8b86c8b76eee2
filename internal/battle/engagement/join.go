package engagement

import (
	"math"

	"go.uber.org/zap"

	"Warfront/internal/world/entity"
)

// GetJoinSide 判断军队能否加入以及加入哪一方。
func (e *Engagement) GetJoinSide(a *entity.Army) JoinSide {
	if a == nil || a.Destroyed() {
		return JoinSideNone
	}
	if a.Battle != 0 {
		return JoinSideCommitted
	}
	if e.destroyed || e.stage >= StageFinishing {
		return JoinSideNone
	}
	if a.Rebel && !e.ctx.Rules.RebelAIEnabled {
		return JoinSideNone
	}
	return e.alignment(a)
}

// alignment 只看外交关系：敌对一方且不敌对另一方即可加入另一方。
func (e *Engagement) alignment(a *entity.Army) JoinSide {
	dip := e.ctx.Diplomacy
	if dip == nil {
		return JoinSideNone
	}
	hostileAtt := dip.IsHostile(a.Kingdom, e.sideKingdom(SideAttacker))
	hostileDef := dip.IsHostile(a.Kingdom, e.sideKingdom(SideDefender))
	switch {
	case hostileAtt && hostileDef:
		return JoinSideCounter
	case hostileDef:
		return JoinAttacker
	case hostileAtt:
		return JoinDefender
	default:
		return JoinSideNone
	}
}

// Join 加入战斗。与双方都敌对时取消本场战斗，并以加入者为攻方开一场新战斗。
func (e *Engagement) Join(id entity.ArmyID) bool {
	if !e.ctx.Authority {
		return false
	}
	a, ok := e.ctx.World.Army(id)
	if !ok || e.refused[id] {
		return false
	}
	js := e.GetJoinSide(a)
	if js == JoinSideCounter {
		return e.counterEngage(a)
	}
	side, ok := js.Side()
	if !ok {
		return false
	}
	if len(e.sides[side]) > 0 && e.refuseSupport[side] {
		return false
	}
	if len(e.sides[side]) >= maxPerSide {
		incumbent := e.sides[side][maxPerSide-1]
		if !e.canDisplace(incumbent, a) {
			return false
		}
		e.detach(incumbent)
		e.publish(Event{Kind: EventArmyLeft, Side: side, Army: int64(incumbent), Detail: "displaced"})
	}
	supporter := len(e.sides[side]) > 0
	e.attach(side, a)
	if supporter {
		e.applyJoinDiplomacy(side, a)
	}
	e.log.Info("army joined", zap.Int64("army", int64(a.ID)), zap.String("side", side.String()), zap.Bool("supporter", supporter))
	e.publish(Event{Kind: EventArmyJoined, Side: side, Army: int64(a.ID)})
	return true
}

// canDisplace 支援位上的雇佣兵与加入者无关时可以被挤掉。
func (e *Engagement) canDisplace(incumbent entity.ArmyID, joiner *entity.Army) bool {
	inc, ok := e.ctx.World.Army(incumbent)
	if !ok {
		return true
	}
	if !inc.Mercenary || inc.Kingdom == joiner.Kingdom {
		return false
	}
	return e.ctx.Diplomacy == nil || !e.ctx.Diplomacy.IsAlly(inc.Kingdom, joiner.Kingdom)
}

func (e *Engagement) applyJoinDiplomacy(side Side, a *entity.Army) {
	dip := e.ctx.Diplomacy
	own := e.sideKingdom(side)
	if dip == nil || own == 0 || own == a.Kingdom {
		return
	}
	rules := &e.ctx.Rules
	if dip.IsAlly(own, a.Kingdom) {
		dip.AddRelationship(own, a.Kingdom, "joined_battle_ally", rules.AllyJoinBonus)
	} else {
		dip.AddRelationship(own, a.Kingdom, "joined_battle_neutral", rules.NeutralJoinBonus)
	}
	if opp := e.sideKingdom(side.Other()); opp != 0 {
		dip.AddRelationship(opp, a.Kingdom, "helped_enemy", rules.HelpedEnemyPenalty)
	}
}

// counterEngage 取消本场战斗，加入者改打城池（如有）或原攻方主力。
func (e *Engagement) counterEngage(a *entity.Army) bool {
	target := Target{Kind: TargetArmy}
	if e.settlement != 0 {
		target = SettlementTarget(e.settlement)
	} else if len(e.sides[SideAttacker]) > 0 {
		target = ArmyTarget(e.sides[SideAttacker][0])
	} else {
		return false
	}
	e.log.Info("counter engagement", zap.Int64("army", int64(a.ID)))
	if !e.Cancel(ReasonCancelled) {
		return false
	}
	return Create(e.ctx, a.ID, target) != nil
}

// Leave 军队离开战斗；retreat 时先承受一轮追击伤害。离开后总会重新判定胜负。
func (e *Engagement) Leave(id entity.ArmyID, retreat bool) bool {
	side, _ := e.sideOf(id)
	if side == SideNone {
		return false
	}
	a, alive := e.ctx.World.Army(id)
	if alive && retreat && e.stage == StageOngoing {
		e.retreatDamage(side, a)
	}
	e.detach(id)
	if alive && retreat {
		a.Retreated = true
		e.departed[side] = append(e.departed[side], id)
	}
	if retreat && len(e.sides[side]) == 0 {
		e.retreated[side] = true
	}
	e.publish(Event{Kind: EventArmyLeft, Side: side, Army: int64(id)})
	e.CheckVictory()
	return true
}

// Retreat 整个阵营撤退。
func (e *Engagement) Retreat(side Side) bool {
	if !side.Valid() || len(e.sides[side]) == 0 || e.stage >= StageFinishing {
		return false
	}
	e.retreated[side] = true
	for i := len(e.sides[side]) - 1; i >= 0; i-- {
		if e.stage >= StageFinishing {
			break
		}
		e.Leave(e.sides[side][i], true)
	}
	return true
}

// retreatDamage 随机挑选对方一部分兵团，各对撤退军队的一个随机兵团造成伤害。
func (e *Engagement) retreatDamage(side Side, a *entity.Army) {
	enemies := make([]*entity.Unit, 0)
	for _, other := range e.Armies(side.Other()) {
		enemies = append(enemies, other.AliveUnits()...)
	}
	if side.Other() == SideDefender {
		for _, u := range e.Garrison() {
			if u.Alive() {
				enemies = append(enemies, u)
			}
		}
	}
	if len(enemies) == 0 {
		return
	}
	n := int(math.Ceil(float64(len(enemies)) * e.ctx.Rules.RetreatAttackerFraction))
	if n < 1 {
		n = 1
	}
	e.ctx.Rand.Shuffle(len(enemies), func(i, j int) { enemies[i], enemies[j] = enemies[j], enemies[i] })
	for _, attacker := range enemies[:min(n, len(enemies))] {
		targets := a.AliveUnits()
		if len(targets) == 0 {
			return
		}
		// 追击强度随出手兵团的完好程度递减
		targets[e.ctx.Rand.Intn(len(targets))].TakeDamage(e.ctx.Rules.RetreatDamage * (1 - attacker.Damage))
	}
}
