package dc

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"Warfront/internal/battle/app/port"
	"Warfront/internal/battle/engagement"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/logx"
)

type WorldID = entity.WorldID

// Source 提供待落库的战斗快照与战报，由 BattleService 实现。
type Source interface {
	PersistSnapshots() []*engagement.PersistSnapshot
	DrainReports() []*engagement.Report
}

type Repos struct {
	World   port.WorldRepository
	Battles port.SnapshotRepository
	Reports port.ReportRepository
}

// batch 是一次待写入的内容：世界与战斗快照按版本取最新，战报逐条追加不丢弃。
type batch struct {
	world   *entity.WorldPersistSnapshot
	battles map[engagement.BattleID]*engagement.PersistSnapshot
	reports []*engagement.Report
}

func (b *batch) empty() bool {
	return b == nil || (b.world == nil && len(b.battles) == 0 && len(b.reports) == 0)
}

func (b *batch) merge(o *batch) {
	if o == nil {
		return
	}
	if o.world != nil && (b.world == nil || b.world.Version < o.world.Version) {
		b.world = o.world
	}
	for id, s := range o.battles {
		if cur, ok := b.battles[id]; !ok || cur.Version < s.Version {
			b.battles[id] = s
		}
	}
	b.reports = append(b.reports, o.reports...)
}

func newBatch() *batch {
	return &batch{battles: make(map[engagement.BattleID]*engagement.PersistSnapshot)}
}

type BattleDC struct {
	repos      Repos
	worldID    WorldID
	entity     *entity.World
	source     Source
	flushEvery time.Duration
	retryDelay time.Duration
	log        logx.Logger

	mu      sync.Mutex
	pending *batch
	version uint64
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewBattleDC(repos Repos, flushEvery time.Duration, log logx.Logger) *BattleDC {
	if flushEvery <= 0 {
		flushEvery = 3000 * time.Millisecond
	}
	if log == nil {
		log = logx.Nop()
	}
	d := &BattleDC{
		repos:      repos,
		flushEvery: flushEvery,
		retryDelay: 200 * time.Millisecond,
		log:        log,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go d.writerLoop()
	return d
}

// Load 读取世界并释放残留的战斗引用：重启后战斗不会恢复。
func (d *BattleDC) Load(ctx context.Context, worldID WorldID) (*entity.World, error) {
	if d.repos.World == nil {
		return nil, errors.New("world repository is nil")
	}
	world, err := d.repos.World.LoadWorld(ctx, worldID)
	if err != nil {
		return nil, err
	}
	if n := world.ReleaseBattleLinks(); n > 0 {
		d.log.Warn("stale battle links released", zap.Int("world_id", int(worldID)), zap.Int("count", n))
	}
	d.worldID = worldID
	d.entity = world
	return world, nil
}

// Attach 绑定战斗快照与战报的来源。
func (d *BattleDC) Attach(src Source) {
	d.source = src
}

func (d *BattleDC) Entity() *entity.World {
	return d.entity
}

func (d *BattleDC) FlushEvery() time.Duration {
	return d.flushEvery
}

func (d *BattleDC) IsDirty() bool {
	return d.entity != nil && d.entity.Dirty()
}

// Flush 收集本轮变化并交给写协程，不等待写库完成。只在 actor goroutine 内调用。
func (d *BattleDC) Flush(ctx context.Context) error {
	_ = ctx
	b := newBatch()
	if s, ok := d.buildWorldSnapshot(); ok {
		b.world = s
	}
	if d.source != nil {
		for _, s := range d.source.PersistSnapshots() {
			b.battles[s.BattleID] = s
		}
		b.reports = d.source.DrainReports()
	}
	if b.empty() {
		return nil
	}
	d.enqueue(b)
	return nil
}

func (d *BattleDC) Close(ctx context.Context) error {
	_ = d.Flush(ctx)

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *BattleDC) buildWorldSnapshot() (*entity.WorldPersistSnapshot, bool) {
	if d.entity == nil || !d.entity.Dirty() {
		return nil, false
	}
	d.mu.Lock()
	d.version++
	version := d.version
	d.mu.Unlock()

	s, ok := d.entity.BuildPersistSnapshot(version)
	if !ok {
		return nil, false
	}
	d.entity.ClearDirty()
	return s, true
}

func (d *BattleDC) enqueue(b *batch) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.pending == nil {
		d.pending = newBatch()
	}
	d.pending.merge(b)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *BattleDC) popPending() *batch {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.pending
	d.pending = nil
	return b
}

// requeueOnError 把写失败的部分放回队列；期间若有更新的快照，合并时以新版本为准。
// 关闭后写失败的内容直接丢弃并记录。
func (d *BattleDC) requeueOnError(failed *batch) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Error("battle dc dropped unsaved data on close",
			zap.Bool("world", failed.world != nil),
			zap.Int("battles", len(failed.battles)),
			zap.Int("reports", len(failed.reports)))
		return false
	}
	next := newBatch()
	next.merge(failed)
	next.merge(d.pending)
	d.pending = next
	d.mu.Unlock()
	return true
}

func (d *BattleDC) writerLoop() {
	defer close(d.done)

	for {
		select {
		case <-d.wake:
			d.consumePending()
		case <-d.stop:
			d.consumePending()
			return
		}
	}
}

func (d *BattleDC) consumePending() {
	for {
		b := d.popPending()
		if b.empty() {
			return
		}
		failed := d.save(context.TODO(), b)
		if failed.empty() {
			continue
		}
		if !d.requeueOnError(failed) {
			return
		}
		time.Sleep(d.retryDelay)
	}
}

// save 逐项写库，返回失败的部分。
func (d *BattleDC) save(ctx context.Context, b *batch) *batch {
	failed := newBatch()
	if b.world != nil && d.repos.World != nil {
		if err := d.repos.World.Save(ctx, b.world); err != nil {
			d.log.Error("world snapshot save failed", zap.Int("world_id", int(b.world.WorldID)), zap.Error(err))
			failed.world = b.world
		}
	}
	if d.repos.Battles != nil {
		for id, s := range b.battles {
			if err := d.repos.Battles.SaveBattle(ctx, s); err != nil {
				d.log.Error("battle snapshot save failed", zap.Int64("battle_id", int64(id)), zap.Error(err))
				failed.battles[id] = s
			}
		}
	}
	if d.repos.Reports != nil {
		for _, r := range b.reports {
			if err := d.repos.Reports.SaveReport(ctx, d.worldID, r); err != nil {
				d.log.Error("battle report save failed", zap.Int64("battle_id", int64(r.Battle)), zap.Error(err))
				failed.reports = append(failed.reports, r)
			}
		}
	}
	return failed
}
