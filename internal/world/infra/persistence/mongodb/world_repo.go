package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"Warfront/internal/world/entity"
	"Warfront/internal/world/infra/persistence/memory"
	"Warfront/internal/world/infra/persistence/model"
	"Warfront/modules/kit/errx"
)

const defaultCollectionName = "world"

const (
	OpLoadWorld = "repo.world.LoadWorld"
	OpSaveWorld = "repo.world.Save"
)

type WorldRepository struct {
	coll *mongo.Collection
	seed memory.Seed
}

// NewWorldRepository seed 用于库里还没有该世界时的首次播种。
func NewWorldRepository(db *mongo.Database, seed memory.Seed) *WorldRepository {
	return &WorldRepository{
		coll: db.Collection(defaultCollectionName),
		seed: seed,
	}
}

func (r *WorldRepository) LoadWorld(ctx context.Context, id entity.WorldID) (*entity.World, error) {
	if r == nil || r.coll == nil {
		return nil, errors.New("mongodb world collection is nil")
	}

	var doc model.WorldDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == nil {
		return entity.HydrateWorld(model.WorldDocToSnapshot(doc)), nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		if r.seed == nil {
			return entity.NewWorld(id), nil
		}
		w, err := r.seed(id)
		if err != nil {
			return nil, err
		}
		// 首次播种后立即标脏，下一次 flush 即落库
		w.MarkDirty()
		return w, nil
	}
	return nil, errx.NewSys(errx.CodeInternal, OpLoadWorld).WithCause(err).WithData("world_id", int(id))
}

func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	if r == nil || r.coll == nil {
		return errors.New("mongodb world collection is nil")
	}

	doc := model.WorldSnapshotToDoc(s, time.Now())
	_, err := r.coll.ReplaceOne(
		ctx,
		bson.M{"_id": doc.WorldID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errx.NewSys(errx.CodeInternal, OpSaveWorld).WithCause(err).WithData("world_id", int(s.WorldID))
	}
	return nil
}
