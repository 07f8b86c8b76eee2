package entity

// Army 是大地图上的一支军队。Battle/BattleSide 是指回战斗的弱引用。
type Army struct {
	ID       ArmyID      `json:"id" bson:"id"`
	Kingdom  KingdomID   `json:"kingdom" bson:"kingdom"`
	Leader   CharacterID `json:"leader" bson:"leader"`
	Units    []*Unit     `json:"units" bson:"units"`
	Position Point       `json:"position" bson:"position"`
	Realm    RealmID     `json:"realm" bson:"realm"`
	Speed    float64     `json:"speed" bson:"speed"`
	Morale   float64     `json:"morale" bson:"morale"`
	Supplies float64     `json:"supplies" bson:"supplies"`
	Gold     float64     `json:"gold" bson:"gold"`
	Books    float64     `json:"books" bson:"books"`

	AtSea     bool `json:"at_sea" bson:"at_sea"`
	Fleeing   bool `json:"fleeing" bson:"fleeing"`
	Mercenary bool `json:"mercenary" bson:"mercenary"`
	Rebel     bool `json:"rebel" bson:"rebel"`
	Crusader  bool `json:"crusader" bson:"crusader"`

	// MovingTo 非 0 表示正在行军前往该战斗
	MovingTo   BattleID     `json:"moving_to" bson:"moving_to"`
	GarrisonOf SettlementID `json:"garrison_of" bson:"garrison_of"`

	Battle     BattleID `json:"battle" bson:"battle"`
	BattleSide int8     `json:"battle_side" bson:"battle_side"`
	Supporter  bool     `json:"supporter" bson:"supporter"`
	Retreated  bool     `json:"retreated" bson:"retreated"`

	destroyed bool
}

func (a *Army) SetBattle(id BattleID, side int8, supporter bool) {
	a.Battle = id
	a.BattleSide = side
	a.Supporter = supporter
	if id != 0 {
		a.MovingTo = 0
		a.Retreated = false
	}
}

func (a *Army) ClearBattle() {
	a.Battle = 0
	a.BattleSide = -1
	a.Supporter = false
}

func (a *Army) Destroyed() bool {
	return a == nil || a.destroyed
}

func (a *Army) AliveUnits() []*Unit {
	out := make([]*Unit, 0, len(a.Units))
	for _, u := range a.Units {
		if u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

func (a *Army) Troops() int {
	n := 0
	for _, u := range a.Units {
		if u.Alive() {
			n += u.Troops
		}
	}
	return n
}

func (a *Army) Squads() int {
	return len(a.AliveUnits())
}

func (a *Army) SiegeUnits() int {
	n := 0
	for _, u := range a.Units {
		if u.Alive() && u.Kind == UnitSiege {
			n++
		}
	}
	return n
}

// PruneUnits 移除已阵亡的兵团，返回移除数量。
func (a *Army) PruneUnits() int {
	kept := a.Units[:0]
	removed := 0
	for _, u := range a.Units {
		if u.Alive() {
			kept = append(kept, u)
		} else {
			removed++
		}
	}
	a.Units = kept
	return removed
}

// KeepOnly 只保留满足条件的存活兵团（例如突围时只带走贵族兵团）。
func (a *Army) KeepOnly(keep func(*Unit) bool) {
	kept := a.Units[:0]
	for _, u := range a.Units {
		if u.Alive() && keep(u) {
			kept = append(kept, u)
		}
	}
	a.Units = kept
}

func (a *Army) AddSupplies(delta float64) {
	a.Supplies += delta
	if a.Supplies < 0 {
		a.Supplies = 0
	}
}

// Exempt 叛军/十字军/佣兵不消耗战斗补给。
func (a *Army) Exempt() bool {
	return a.Rebel || a.Crusader || a.Mercenary
}
