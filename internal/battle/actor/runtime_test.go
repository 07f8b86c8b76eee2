package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"Warfront/internal/battle/actors"
	"Warfront/internal/battle/dc"
	"Warfront/internal/battle/engagement"
	battlemem "Warfront/internal/battle/infra/persistence/memory"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/transport"
	"Warfront/internal/world/diplomacy"
	"Warfront/internal/world/entity"
	worldmem "Warfront/internal/world/infra/persistence/memory"
	"Warfront/modules/kit/errx"
)

func seed(id entity.WorldID) (*entity.World, error) {
	w := entity.NewWorld(id)
	w.AddKingdom(&entity.Kingdom{ID: 1, Name: "north"})
	w.AddKingdom(&entity.Kingdom{ID: 2, Name: "south"})
	for _, k := range []entity.KingdomID{1, 2} {
		w.AddArmy(&entity.Army{
			Kingdom:  k,
			Morale:   50,
			Supplies: 20,
			Speed:    1,
			Units:    []*entity.Unit{{Kind: entity.UnitRegular, Troops: 100, MaxTroops: 100}},
		})
	}
	return w, nil
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rules := engagement.DefaultRules()
	rules.PreparationFormula = ""
	var next engagement.BattleID
	deps := actors.Deps{
		Repos: dc.Repos{
			World:   worldmem.NewWorldRepository(seed),
			Battles: battlemem.NewSnapshotRepository(),
			Reports: battlemem.NewReportRepository(),
		},
		Diplomacy: func(w *entity.World) engagement.Diplomacy {
			d := diplomacy.New()
			d.DeclareWar(1, 2)
			return d
		},
		Options: service.Options{
			Rules:     rules,
			Authority: true,
			NextID: func() engagement.BattleID {
				next++
				return next
			},
		},
		TickEvery:  time.Hour,
		FlushEvery: time.Hour,
	}
	r := NewRuntime(1, deps, time.Second)
	t.Cleanup(r.Shutdown)
	return r
}

func TestRuntime_接战查询与指令(t *testing.T) {
	r := newTestRuntime(t)
	ctx := context.Background()

	view, err := r.Contact(ctx, 1, engagement.TargetArmy, 2)
	if err != nil {
		t.Fatalf("Contact err=%v", err)
	}
	if view.ID != 1 || view.Stage != engagement.StageOngoing.String() {
		t.Fatalf("期望直接开战, got=%+v", view)
	}

	got, err := r.Battle(ctx, 1)
	if err != nil || got.ID != 1 {
		t.Fatalf("Battle err=%v got=%+v", err, got)
	}
	views, err := r.Battles(ctx)
	if err != nil || len(views) != 1 {
		t.Fatalf("Battles err=%v len=%d", err, len(views))
	}

	err = r.Command(ctx, engagement.Command{Battle: 1, Action: engagement.ActionRetreat, Side: 9})
	if !errors.Is(err, errx.ErrInvalidSide) {
		t.Fatalf("非法阵营应被拒绝, err=%v", err)
	}
	if code := CodeFromError(err); code != transport.InvalidSide {
		t.Fatalf("业务码应为 InvalidSide, got=%d", code)
	}

	_, err = r.Battle(ctx, 99)
	if !errors.Is(err, errx.ErrBattleNotFound) {
		t.Fatalf("未知战斗应返回 BATTLE_NOT_FOUND, err=%v", err)
	}

	snaps, err := r.Snapshots(ctx, 0)
	if err != nil || len(snaps) == 0 {
		t.Fatalf("应返回全量快照, err=%v len=%d", err, len(snaps))
	}
}

func TestRuntime_观战订阅事件(t *testing.T) {
	r := newTestRuntime(t)
	ctx := context.Background()
	if _, err := r.Contact(ctx, 1, engagement.TargetArmy, 2); err != nil {
		t.Fatalf("Contact err=%v", err)
	}

	events := make(chan engagement.Event, 16)
	view, cancel, err := r.Watch(ctx, 1, func(ev engagement.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch err=%v", err)
	}
	defer cancel()
	if view.Viewers != 1 {
		t.Fatalf("观战者应为 1, got=%d", view.Viewers)
	}

	if err := r.Command(ctx, engagement.Command{Battle: 1, Action: engagement.ActionRetreat, Side: engagement.SideDefender}); err != nil {
		t.Fatalf("Command err=%v", err)
	}
	select {
	case <-events:
	case <-time.After(time.Second):
		t.Fatalf("撤退后应收到事件")
	}

	if err := r.Unwatch(ctx, 1); err != nil {
		t.Fatalf("Unwatch err=%v", err)
	}
}
