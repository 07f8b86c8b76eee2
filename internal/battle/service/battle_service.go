package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/simulation"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/errx"
	"Warfront/modules/kit/logx"
)

type BattleID = engagement.BattleID

type Options struct {
	Rules engagement.Rules
	// Simulation 为 nil 时不挂自动解算，战斗只能由外部指令推进
	Simulation *simulation.Config
	Authority  bool
	Forwarder  engagement.Forwarder
	NextID     func() BattleID
	// Seed 非 0 时固定结算用的随机序列
	Seed int64
}

// BattleService 持有一个世界里的全部战斗，同时充当 engagement.Registry 与 ReportSink。
// 只在 BattleActor 的 goroutine 内调用。
type BattleService struct {
	ctx     *engagement.Context
	clock   *engagement.ManualClock
	log     logx.Logger
	battles map[BattleID]*engagement.Engagement
	// retired 已从表里移除、还没落最后一次快照的战斗
	retired []*engagement.Engagement
	reports []*engagement.Report
}

func New(world *entity.World, dip engagement.Diplomacy, opts Options, log logx.Logger) (*BattleService, error) {
	if log == nil {
		log = logx.Nop()
	}
	clock := &engagement.ManualClock{}
	ctx, err := engagement.NewContext(opts.Rules, world, dip, clock, log)
	if err != nil {
		return nil, fmt.Errorf("compile preparation formula: %w", err)
	}
	if opts.Seed != 0 {
		ctx.Rand = rand.New(rand.NewSource(opts.Seed))
	}
	ctx.Authority = opts.Authority
	ctx.Forwarder = opts.Forwarder
	ctx.NextID = opts.NextID
	if opts.Simulation != nil {
		ctx.NewSimulation = simulation.Factory(*opts.Simulation, nil)
	}
	s := &BattleService{
		ctx:     ctx,
		clock:   clock,
		log:     log,
		battles: make(map[BattleID]*engagement.Engagement),
	}
	ctx.Registry = s
	ctx.Reports = s
	return s, nil
}

func (s *BattleService) Context() *engagement.Context { return s.ctx }

func (s *BattleService) World() *entity.World { return s.ctx.World }

func (s *BattleService) Bus() *engagement.Bus { return s.ctx.Bus }

func (s *BattleService) Now() time.Duration { return s.clock.Now() }

func (s *BattleService) Authority() bool { return s.ctx.Authority }

func (s *BattleService) Add(e *engagement.Engagement) {
	s.battles[e.ID()] = e
}

func (s *BattleService) Remove(id BattleID) {
	e, ok := s.battles[id]
	if !ok {
		return
	}
	delete(s.battles, id)
	if s.ctx.Authority {
		s.retired = append(s.retired, e)
	}
}

func (s *BattleService) Get(id BattleID) (*engagement.Engagement, bool) {
	e, ok := s.battles[id]
	return e, ok
}

func (s *BattleService) Report(r *engagement.Report) {
	if r == nil {
		return
	}
	s.reports = append(s.reports, r)
	s.log.Info("battle report",
		zap.Int64("battle_id", int64(r.Battle)),
		zap.String("winner", r.Winner.String()),
		zap.String("reason", r.Reason.String()),
		zap.Bool("cancelled", r.Cancelled))
}

// DrainReports 取走尚未落库的战报。
func (s *BattleService) DrainReports() []*engagement.Report {
	out := s.reports
	s.reports = nil
	return out
}

// Battles 按 ID 升序返回。
func (s *BattleService) Battles() []*engagement.Engagement {
	out := make([]*engagement.Engagement, 0, len(s.battles))
	for _, e := range s.battles {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Tick 推进模拟时钟并按 ID 顺序更新所有战斗。
// 更新过程中新建或销毁的战斗在下一次 Tick 才会被看到。
func (s *BattleService) Tick(dt time.Duration) {
	s.clock.Advance(dt)
	for _, e := range s.Battles() {
		if _, ok := s.battles[e.ID()]; !ok {
			continue
		}
		e.Update()
	}
}

func (s *BattleService) Battle(id BattleID) (*engagement.Engagement, error) {
	e, ok := s.battles[id]
	if !ok {
		return nil, errx.ErrBattleNotFound.WithData("battle_id", int64(id))
	}
	return e, nil
}

// Contact 处理接战：目标可以是军队、城池或已有战斗。
func (s *BattleService) Contact(ctx context.Context, aggressor entity.ArmyID, kind engagement.TargetKind, target int64) (*engagement.Engagement, error) {
	if !s.ctx.Authority {
		return nil, errx.ErrNotAuthority
	}
	if _, ok := s.ctx.World.Army(aggressor); !ok {
		return nil, errx.ErrArmyNotFound.WithData("army_id", int64(aggressor))
	}
	var t engagement.Target
	switch kind {
	case engagement.TargetArmy:
		t = engagement.ArmyTarget(entity.ArmyID(target))
	case engagement.TargetSettlement:
		t = engagement.SettlementTarget(entity.SettlementID(target))
	case engagement.TargetBattle:
		b, err := s.Battle(BattleID(target))
		if err != nil {
			return nil, err
		}
		t = engagement.BattleTarget(b)
	default:
		return nil, errx.ErrInvalidParam.WithData("target_kind", int(kind))
	}
	e := engagement.Create(s.ctx, aggressor, t)
	if e == nil {
		err := errx.ErrPrecondition.WithData("army_id", int64(aggressor)).WithData("target", target)
		logx.ReportBizWithLoggerContext(ctx, s.log, logx.NewBizLog("battle_contact", "refused", err.Msg()),
			zap.String("error_code", err.CodeText()))
		return nil, err
	}
	return e, nil
}

// Command 执行对某场战斗的指令，校验与转发由 engagement 负责。
func (s *BattleService) Command(ctx context.Context, id BattleID, action engagement.Action, side engagement.Side, param string) error {
	e, err := s.Battle(id)
	if err != nil {
		return err
	}
	return e.DoAction(ctx, action, side, param)
}

func (s *BattleService) Join(ctx context.Context, id BattleID, army entity.ArmyID) error {
	e, err := s.Battle(id)
	if err != nil {
		return err
	}
	if !s.ctx.Authority {
		return errx.ErrNotAuthority
	}
	if _, ok := s.ctx.World.Army(army); !ok {
		return errx.ErrArmyNotFound.WithData("army_id", int64(army))
	}
	if !e.Join(army) {
		return errx.ErrPrecondition.WithData("army_id", int64(army)).WithData("stage", e.Stage().String())
	}
	return nil
}

// SetReinforcement 玩家手动指定增援位；army 为 0 时清空该位。
func (s *BattleService) SetReinforcement(ctx context.Context, id BattleID, army entity.ArmyID, slot int, est time.Duration, force bool) error {
	e, err := s.Battle(id)
	if err != nil {
		return err
	}
	if !s.ctx.Authority {
		return errx.ErrNotAuthority
	}
	if slot < 0 || slot > 3 {
		return errx.ErrInvalidParam.WithData("slot", slot)
	}
	if !e.SetReinforcements(army, slot, est, force, true) {
		return errx.ErrPrecondition.WithData("army_id", int64(army)).WithData("slot", slot)
	}
	return nil
}

// AddIntended 登记一支正在赶来的军队，由引擎挑选增援位。
func (s *BattleService) AddIntended(ctx context.Context, id BattleID, army entity.ArmyID) error {
	e, err := s.Battle(id)
	if err != nil {
		return err
	}
	if !e.AddIntendedReinforcement(army) {
		return errx.ErrPrecondition.WithData("army_id", int64(army))
	}
	return nil
}

func (s *BattleService) Watch(id BattleID) error {
	e, err := s.Battle(id)
	if err != nil {
		return err
	}
	e.AttachViewer()
	return nil
}

// Unwatch 最后一个观战者离开已结束的战斗时战斗随之销毁。
func (s *BattleService) Unwatch(id BattleID) error {
	e, err := s.Battle(id)
	if err != nil {
		return err
	}
	e.DetachViewer()
	return nil
}

func (s *BattleService) Snapshots(id BattleID) ([]engagement.Snapshot, error) {
	e, err := s.Battle(id)
	if err != nil {
		return nil, err
	}
	return e.Snapshots(), nil
}

// ApplySnapshots 副本节点对齐权威节点的战斗状态，未知的战斗按需创建副本。
func (s *BattleService) ApplySnapshots(snaps []engagement.Snapshot) error {
	if s.ctx.Authority {
		return errx.ErrPrecondition.WithData("reason", "authority_ignores_snapshots")
	}
	touched := make(map[BattleID]*engagement.Engagement)
	for _, snap := range snaps {
		e, ok := s.battles[snap.Battle]
		if !ok {
			e = engagement.NewReplica(s.ctx, snap.Battle)
			s.battles[snap.Battle] = e
		}
		if err := engagement.Apply(snap, e); err != nil {
			return errx.ErrInvalidParam.WithCause(err).WithData("battle_id", int64(snap.Battle))
		}
		touched[snap.Battle] = e
	}
	for _, e := range touched {
		if e.Stage() == engagement.StageFinished && e.Viewers() == 0 {
			e.Destroy()
		}
	}
	return nil
}

// AllSnapshots 返回所有进行中战斗的全量快照，副本同步用。
func (s *BattleService) AllSnapshots() []engagement.Snapshot {
	out := make([]engagement.Snapshot, 0)
	for _, e := range s.Battles() {
		out = append(out, e.Snapshots()...)
	}
	return out
}

// SyncAll 用权威节点的全量快照对齐，权威节点已经没有的战斗直接销毁。
func (s *BattleService) SyncAll(snaps []engagement.Snapshot) error {
	if err := s.ApplySnapshots(snaps); err != nil {
		return err
	}
	live := make(map[BattleID]bool, len(snaps))
	for _, snap := range snaps {
		live[snap.Battle] = true
	}
	for _, e := range s.Battles() {
		if !live[e.ID()] {
			e.Destroy()
		}
	}
	return nil
}

// Subscribe 只转发某场战斗的事件，返回取消函数。
func (s *BattleService) Subscribe(id BattleID, fn func(engagement.Event)) func() {
	return s.ctx.Bus.SubscribeAll(func(ev engagement.Event) {
		if ev.Battle == id {
			fn(ev)
		}
	})
}

// PersistSnapshots 收集自上次落库以来有变化的战斗，包括刚被销毁的战斗的最后一份快照。
func (s *BattleService) PersistSnapshots() []*engagement.PersistSnapshot {
	if !s.ctx.Authority {
		return nil
	}
	out := make([]*engagement.PersistSnapshot, 0)
	for _, e := range s.Battles() {
		if p, ok := e.BuildPersistSnapshot(); ok {
			out = append(out, p)
		}
	}
	for _, e := range s.retired {
		if p, ok := e.BuildPersistSnapshot(); ok {
			out = append(out, p)
		}
	}
	s.retired = nil
	return out
}
