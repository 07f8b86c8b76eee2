package entity

type SettlementKind int8

const (
	SettlementVillage SettlementKind = iota
	SettlementTown
	SettlementCastle
)

type Settlement struct {
	ID        SettlementID   `json:"id" bson:"id"`
	Name      string         `json:"name" bson:"name"`
	Kind      SettlementKind `json:"kind" bson:"kind"`
	Realm     RealmID        `json:"realm" bson:"realm"`
	Kingdom   KingdomID      `json:"kingdom" bson:"kingdom"`
	Position  Point          `json:"position" bson:"position"`
	Fortified bool           `json:"fortified" bson:"fortified"`
	Keep      bool           `json:"keep" bson:"keep"`
	Pillaged  bool           `json:"pillaged" bson:"pillaged"`

	// 城内驻军（征召兵）与驻扎在城内的军队
	Garrison             []*Unit `json:"garrison" bson:"garrison"`
	LeviesReinforceSiege bool    `json:"levies_reinforce_siege" bson:"levies_reinforce_siege"`
	Army                 ArmyID  `json:"army" bson:"army"`

	Gold  float64 `json:"gold" bson:"gold"`
	Food  float64 `json:"food" bson:"food"`
	Books float64 `json:"books" bson:"books"`

	Battle BattleID `json:"battle" bson:"battle"`
}

func (s *Settlement) SetBattle(id BattleID) {
	s.Battle = id
}

func (s *Settlement) GarrisonAlive() int {
	n := 0
	for _, u := range s.Garrison {
		if u.Alive() {
			n++
		}
	}
	return n
}

func (s *Settlement) GarrisonTroops() int {
	n := 0
	for _, u := range s.Garrison {
		if u.Alive() {
			n += u.Troops
		}
	}
	return n
}

// CanBePillaged 未设防、未被洗劫过、且还有可掠夺的资源。
func (s *Settlement) CanBePillaged() bool {
	return !s.Fortified && !s.Pillaged && s.Gold+s.Food+s.Books > 0
}
