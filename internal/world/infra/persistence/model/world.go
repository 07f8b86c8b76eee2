package model

import (
	"time"

	"Warfront/internal/world/entity"
)

// WorldDoc 是 mongodb 中的世界存档，一个世界一条文档。
type WorldDoc struct {
	WorldID     entity.WorldID      `bson:"_id"`
	Version     uint64              `bson:"version"`
	Armies      []entity.Army       `bson:"armies"`
	Settlements []entity.Settlement `bson:"settlements"`
	Realms      []entity.Realm      `bson:"realms"`
	Kingdoms    []entity.Kingdom    `bson:"kingdoms"`
	Characters  []entity.Character  `bson:"characters"`
	SavedAt     time.Time           `bson:"saved_at"`
}

func WorldSnapshotToDoc(s *entity.WorldPersistSnapshot, now time.Time) WorldDoc {
	return WorldDoc{
		WorldID:     s.WorldID,
		Version:     s.Version,
		Armies:      s.Armies,
		Settlements: s.Settlements,
		Realms:      s.Realms,
		Kingdoms:    s.Kingdoms,
		Characters:  s.Characters,
		SavedAt:     now,
	}
}

func WorldDocToSnapshot(doc WorldDoc) *entity.WorldPersistSnapshot {
	return &entity.WorldPersistSnapshot{
		Version:     doc.Version,
		WorldID:     doc.WorldID,
		Armies:      doc.Armies,
		Settlements: doc.Settlements,
		Realms:      doc.Realms,
		Kingdoms:    doc.Kingdoms,
		Characters:  doc.Characters,
	}
}
