package entity

type WorldPersistSnapshot struct {
	Version     uint64       `bson:"version"`
	WorldID     WorldID      `bson:"_id"`
	Armies      []Army       `bson:"armies"`
	Settlements []Settlement `bson:"settlements"`
	Realms      []Realm      `bson:"realms"`
	Kingdoms    []Kingdom    `bson:"kingdoms"`
	Characters  []Character  `bson:"characters"`
}
