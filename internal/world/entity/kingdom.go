package entity

type Kingdom struct {
	ID        KingdomID `json:"id" bson:"id"`
	Name      string    `json:"name" bson:"name"`
	Religion  string    `json:"religion" bson:"religion"`
	Rebellion bool      `json:"rebellion" bson:"rebellion"`
}

type Realm struct {
	ID                RealmID      `json:"id" bson:"id"`
	Name              string       `json:"name" bson:"name"`
	Kingdom           KingdomID    `json:"kingdom" bson:"kingdom"`
	OccupiedBy        KingdomID    `json:"occupied_by" bson:"occupied_by"`
	PopulationKingdom KingdomID    `json:"population_kingdom" bson:"population_kingdom"`
	Religion          string       `json:"religion" bson:"religion"`
	Neighbors         []RealmID    `json:"neighbors" bson:"neighbors"`
	Keep              SettlementID `json:"keep" bson:"keep"`

	// 城防基准值；Condition 为上一次围城留下的残余比例 [0,1]
	Resilience            float64 `json:"resilience" bson:"resilience"`
	SiegeDefense          float64 `json:"siege_defense" bson:"siege_defense"`
	ResilienceCondition   float64 `json:"resilience_condition" bson:"resilience_condition"`
	SiegeDefenseCondition float64 `json:"siege_defense_condition" bson:"siege_defense_condition"`
}

// Controller 是当前实际控制者：被占领时为占领方。
func (r *Realm) Controller() KingdomID {
	if r.OccupiedBy != 0 {
		return r.OccupiedBy
	}
	return r.Kingdom
}

func (r *Realm) IsNeighbor(id RealmID) bool {
	for _, n := range r.Neighbors {
		if n == id {
			return true
		}
	}
	return false
}
