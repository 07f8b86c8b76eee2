package dc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Warfront/internal/battle/engagement"
	battlemem "Warfront/internal/battle/infra/persistence/memory"
	"Warfront/internal/world/entity"
	worldmem "Warfront/internal/world/infra/persistence/memory"
)

type fakeSource struct {
	snaps   []*engagement.PersistSnapshot
	reports []*engagement.Report
}

func (s *fakeSource) PersistSnapshots() []*engagement.PersistSnapshot {
	out := s.snaps
	s.snaps = nil
	return out
}

func (s *fakeSource) DrainReports() []*engagement.Report {
	out := s.reports
	s.reports = nil
	return out
}

// flakyBattles 前 fails 次写入失败。
type flakyBattles struct {
	*battlemem.SnapshotRepository
	mu    sync.Mutex
	fails int
	calls int
}

func (f *flakyBattles) SaveBattle(ctx context.Context, s *engagement.PersistSnapshot) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.fails
	f.mu.Unlock()
	if fail {
		return errors.New("mongo down")
	}
	return f.SnapshotRepository.SaveBattle(ctx, s)
}

func seededWorld(id entity.WorldID) (*entity.World, error) {
	w := entity.NewWorld(id)
	w.AddKingdom(&entity.Kingdom{ID: 1, Name: "north"})
	w.AddArmy(&entity.Army{Kingdom: 1, Battle: 9, BattleSide: 0})
	w.AddSettlement(&entity.Settlement{ID: 5, Kingdom: 1, Battle: 9})
	return w, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待超时")
}

func TestBattleDC_加载时释放残留战斗引用(t *testing.T) {
	worlds := worldmem.NewWorldRepository(seededWorld)
	d := NewBattleDC(Repos{World: worlds}, time.Second, nil)
	defer d.Close(context.Background())

	w, err := d.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	a, _ := w.Army(1)
	s, _ := w.Settlement(5)
	if a.Battle != 0 || a.BattleSide != -1 || s.Battle != 0 {
		t.Fatalf("残留引用应被清理, army=%d side=%d settlement=%d", a.Battle, a.BattleSide, s.Battle)
	}
	if !d.IsDirty() {
		t.Fatalf("清理后世界应标脏")
	}
	if err := d.Flush(context.Background()); err != nil {
		t.Fatalf("Flush err=%v", err)
	}
	if d.IsDirty() {
		t.Fatalf("Flush 后应清除脏标记")
	}
	waitFor(t, func() bool {
		_, ok := worlds.Saved(1)
		return ok
	})
}

func TestBattleDC_写失败后重试且战报不丢(t *testing.T) {
	battles := &flakyBattles{SnapshotRepository: battlemem.NewSnapshotRepository(), fails: 2}
	reports := battlemem.NewReportRepository()
	d := NewBattleDC(Repos{Battles: battles, Reports: reports}, time.Second, nil)
	d.retryDelay = time.Millisecond
	src := &fakeSource{
		snaps: []*engagement.PersistSnapshot{{Version: 1, BattleID: 7}},
		reports: []*engagement.Report{
			{Battle: 7, AttackerKingdom: 1, DefenderKingdom: 2},
		},
	}
	d.Attach(src)

	if err := d.Flush(context.Background()); err != nil {
		t.Fatalf("Flush err=%v", err)
	}
	src.snaps = []*engagement.PersistSnapshot{{Version: 2, BattleID: 7, Finished: true}}
	if err := d.Flush(context.Background()); err != nil {
		t.Fatalf("Flush err=%v", err)
	}

	waitFor(t, func() bool {
		s, err := battles.LoadBattle(context.Background(), 7)
		return err == nil && s.Version == 2 && s.Finished
	})
	list, _ := reports.ListByKingdom(context.Background(), 2, 10)
	if len(list) != 1 {
		t.Fatalf("战报应只写一次, got=%d", len(list))
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close err=%v", err)
	}
}

func TestBattleDC_关闭后不再接收(t *testing.T) {
	battles := battlemem.NewSnapshotRepository()
	d := NewBattleDC(Repos{Battles: battles}, time.Second, nil)
	src := &fakeSource{}
	d.Attach(src)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	src.snaps = []*engagement.PersistSnapshot{{Version: 1, BattleID: 3}}
	_ = d.Flush(context.Background())
	time.Sleep(20 * time.Millisecond)
	if battles.Len() != 0 {
		t.Fatalf("关闭后不应再写库")
	}
}
