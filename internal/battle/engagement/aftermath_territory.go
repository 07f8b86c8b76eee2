package engagement

import (
	"go.uber.org/zap"

	"Warfront/internal/world/entity"
)

// activityKey 按战斗类型区分战争得分与好感度的记账键。
func (am *aftermath) activityKey() (key string, relation, score float64) {
	switch {
	case am.e.typ.IsSiege():
		return "siege", am.rules.SiegeRelation, am.rules.SiegeScore
	case am.e.typ.IsPlunder():
		return "pillage", am.rules.PillageRelation, am.rules.PillageScore
	default:
		return "field_battle", am.rules.FieldBattleRelation, am.rules.FieldBattleScore
	}
}

// applyTerritory 战争得分、好感度，以及城池易手：
// 叛军只占领；收复本国领地解除占领；吞并规则或人口多数相符时直接转移领地；否则占领。
func (am *aftermath) applyTerritory() {
	winK, loseK := am.e.sideKingdom(am.winner), am.e.sideKingdom(am.loser)
	dip := am.e.ctx.Diplomacy
	key, relation, score := am.activityKey()
	if dip != nil && winK != 0 && loseK != 0 {
		dip.AddWarActivity(winK, loseK, key+"_won", score)
		dip.AddRelationship(loseK, winK, key, relation)
	}

	for _, a := range am.participants[am.loser] {
		if a.Crusader && dip != nil {
			dip.AddWarActivity(winK, a.Kingdom, "crusade_defeated", am.rules.CrusadeScore)
		}
	}

	st, ok := am.e.Settlement()
	if !ok {
		return
	}
	if am.settlementPillaged() {
		st.Pillaged = true
		am.report.Pillaged = true
		return
	}
	if !am.settlementCaptured() {
		return
	}
	realm, ok := am.world.Realm(st.Realm)
	if !ok {
		return
	}
	lead := am.leadWinner()
	rebel := lead != nil && lead.Rebel
	if k, ok := am.world.Kingdom(winK); ok && k.Rebellion {
		rebel = true
	}
	st.Kingdom = winK
	st.Garrison = nil
	if army, ok := am.world.Army(st.Army); ok && army.Kingdom != winK {
		st.Army = 0
	}
	switch {
	case rebel:
		realm.OccupiedBy = winK
	case realm.Kingdom == winK:
		realm.OccupiedBy = 0
	case am.rules.AnnexOnCapture || realm.PopulationKingdom == winK:
		realm.Kingdom = winK
		realm.OccupiedBy = 0
	default:
		realm.OccupiedBy = winK
	}
	if lead != nil && lead.Crusader {
		if k, ok := am.world.Kingdom(winK); ok && k.Religion != "" && realm.Religion != k.Religion {
			realm.Religion = k.Religion
			if dip != nil {
				dip.AddWarActivity(winK, loseK, "crusade_captured", am.rules.CrusadeScore)
			}
		}
	}
	am.report.Captured = true
	am.e.log.Info("settlement captured",
		zap.Int64("settlement", int64(st.ID)),
		zap.Int64("kingdom", int64(winK)),
		zap.Int64("realm_owner", int64(realm.Kingdom)),
		zap.Int64("occupied_by", int64(realm.OccupiedBy)))
}

func (am *aftermath) leadWinner() *entity.Army {
	if len(am.participants[am.winner]) == 0 {
		return nil
	}
	return am.participants[am.winner][0]
}

// transferPlunder 攻下或洗劫城池时按比例拿走资源，再加每支参战军队的固定赏金；
// 主力按 PlunderPrimaryCut 分成，其余归支援军队。
func (am *aftermath) transferPlunder() {
	if !am.settlementCaptured() && !am.settlementPillaged() {
		return
	}
	st, _ := am.e.Settlement()
	winners := make([]*entity.Army, 0, 2)
	for _, a := range am.participants[am.winner] {
		if !a.Destroyed() && a.Squads() > 0 {
			winners = append(winners, a)
		}
	}
	if len(winners) == 0 {
		return
	}
	loot := Loot{
		Gold:  st.Gold * am.rules.PlunderGoldFactor,
		Food:  st.Food * am.rules.PlunderFoodFactor,
		Books: st.Books * am.rules.PlunderBooksFactor,
	}
	st.Gold -= loot.Gold
	st.Food -= loot.Food
	st.Books -= loot.Books
	loot.Gold += am.rules.PlunderBonusGold * float64(len(winners))

	cut := 1.0
	if len(winners) > 1 {
		cut = am.rules.PlunderPrimaryCut
	}
	shares := []float64{cut, 1 - cut}
	for i, a := range winners {
		a.Gold += loot.Gold * shares[i]
		a.AddSupplies(loot.Food * shares[i])
		a.Books += loot.Books * shares[i]
	}
	am.report.Loot = loot
}

// cleanup 断开所有关联；没有兵团的军队与将领被俘的军队解散，城堡驻军空壳保留。
func (am *aftermath) cleanup() {
	for side := SideAttacker; side <= SideDefender; side++ {
		for _, a := range am.participants[side] {
			a.ClearBattle()
			empty := a.Squads() == 0
			disband := empty || am.captured[a.ID]
			if empty && a.GarrisonOf != 0 {
				disband = false
			}
			if r := am.report.armyReport(a.ID); r != nil {
				r.TroopsAfter = a.Troops()
				r.Destroyed = disband
			}
			if disband {
				am.world.DestroyArmy(a.ID)
			}
		}
	}
	if am.loser.Valid() {
		for _, id := range am.e.departed[am.loser] {
			if am.captured[id] {
				am.world.DestroyArmy(id)
			}
		}
	}
	if st, ok := am.e.Settlement(); ok && st.Battle == am.e.id {
		st.SetBattle(0)
	}
	am.world.MarkDirty()
}
