package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/infra/persistence/model"
	"Warfront/modules/kit/errx"
)

const defaultCollectionName = "battle"

const (
	OpSaveBattle = "repo.battle.SaveBattle"
	OpLoadBattle = "repo.battle.LoadBattle"
)

type SnapshotRepository struct {
	coll *mongo.Collection
}

func NewSnapshotRepository(db *mongo.Database) *SnapshotRepository {
	return &SnapshotRepository{coll: db.Collection(defaultCollectionName)}
}

// SaveBattle 只在库中版本不更新时覆盖，乱序重试不会回退。
func (r *SnapshotRepository) SaveBattle(ctx context.Context, s *engagement.PersistSnapshot) error {
	if s == nil {
		return nil
	}
	if r == nil || r.coll == nil {
		return errors.New("mongodb battle collection is nil")
	}

	doc := model.SnapshotToDoc(s, time.Now())
	filter := bson.M{"_id": doc.BattleID, "version": bson.M{"$lte": doc.Version}}
	_, err := r.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// 已有更新的版本
		return nil
	}
	if err != nil {
		return errx.NewSys(errx.CodeInternal, OpSaveBattle).WithCause(err).WithData("battle_id", int64(s.BattleID))
	}
	return nil
}

func (r *SnapshotRepository) LoadBattle(ctx context.Context, id engagement.BattleID) (*engagement.PersistSnapshot, error) {
	if r == nil || r.coll == nil {
		return nil, errors.New("mongodb battle collection is nil")
	}

	var doc model.BattleDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	switch {
	case err == nil:
		return model.DocToSnapshot(doc), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, errx.ErrBattleNotFound.WithData("battle_id", int64(id))
	default:
		return nil, errx.NewSys(errx.CodeInternal, OpLoadBattle).WithCause(err).WithData("battle_id", int64(id))
	}
}
