package entity

import "math"

type UnitKind int8

const (
	UnitRegular UnitKind = iota // 普通兵团
	UnitNoble                   // 贵族/亲卫，不获得经验，可随将领突围
	UnitSiege                   // 攻城器械，驱动城防损耗
	UnitLevy                    // 征召民兵（城池守军）
)

// Unit 是一个兵团（squad）。Damage 为累计损伤比例 [0,1]。
type Unit struct {
	ID         UnitID   `json:"id" bson:"id"`
	Kind       UnitKind `json:"kind" bson:"kind"`
	Troops     int      `json:"troops" bson:"troops"`
	MaxTroops  int      `json:"max_troops" bson:"max_troops"`
	Damage     float64  `json:"damage" bson:"damage"`
	Experience float64  `json:"experience" bson:"experience"`
	Destroyed  bool     `json:"destroyed" bson:"destroyed"`
}

func (u *Unit) Alive() bool {
	return u != nil && !u.Destroyed && u.Troops > 0
}

// TakeDamage 累加损伤并按比例折算兵力，损伤满 1 即全灭。
func (u *Unit) TakeDamage(frac float64) {
	if !u.Alive() || frac <= 0 {
		return
	}
	u.setDamage(u.Damage + frac)
}

// Heal 恢复 frac 比例的已累计损伤。
func (u *Unit) Heal(frac float64) {
	if !u.Alive() || frac <= 0 {
		return
	}
	u.setDamage(u.Damage * (1 - math.Min(frac, 1)))
}

func (u *Unit) setDamage(d float64) {
	u.Damage = math.Max(0, math.Min(1, d))
	if u.MaxTroops > 0 {
		u.Troops = int(math.Ceil(float64(u.MaxTroops) * (1 - u.Damage)))
	}
	if u.Damage >= 1 || u.Troops <= 0 {
		u.Troops = 0
		u.Destroyed = true
	}
}
