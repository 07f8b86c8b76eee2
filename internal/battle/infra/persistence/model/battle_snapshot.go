package model

import (
	"time"

	"Warfront/internal/battle/engagement"
)

// BattleDoc 是 mongodb 中的战斗快照，一场战斗一条文档。
type BattleDoc struct {
	BattleID  engagement.BattleID   `bson:"_id"`
	Version   uint64                `bson:"version"`
	Finished  bool                  `bson:"finished"`
	Snapshots []engagement.Snapshot `bson:"snapshots"`
	SavedAt   time.Time             `bson:"saved_at"`
}

func SnapshotToDoc(s *engagement.PersistSnapshot, now time.Time) BattleDoc {
	return BattleDoc{
		BattleID:  s.BattleID,
		Version:   s.Version,
		Finished:  s.Finished,
		Snapshots: s.Snapshots,
		SavedAt:   now,
	}
}

func DocToSnapshot(doc BattleDoc) *engagement.PersistSnapshot {
	return &engagement.PersistSnapshot{
		Version:   doc.Version,
		BattleID:  doc.BattleID,
		Finished:  doc.Finished,
		Snapshots: doc.Snapshots,
	}
}
