package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/simulation"
	"Warfront/internal/world/diplomacy"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/errx"
)

type recordForwarder struct {
	cmds []engagement.Command
}

func (f *recordForwarder) Forward(_ context.Context, cmd engagement.Command) error {
	f.cmds = append(f.cmds, cmd)
	return nil
}

func testRules() engagement.Rules {
	r := engagement.DefaultRules()
	r.PreparationFormula = ""
	r.CaptureChanceWiped = map[string]float64{}
	r.CaptureChanceRetreat = map[string]float64{}
	r.EscapeChance = 0
	r.GateAssaultChance = 0
	return r
}

func testWorld() (*entity.World, *diplomacy.Diplomacy) {
	w := entity.NewWorld(1)
	w.AddKingdom(&entity.Kingdom{ID: 1, Name: "north"})
	w.AddKingdom(&entity.Kingdom{ID: 2, Name: "south"})
	w.AddKingdom(&entity.Kingdom{ID: 3, Name: "west"})
	dip := diplomacy.New()
	dip.DeclareWar(1, 2)
	return w, dip
}

func addArmy(w *entity.World, k entity.KingdomID, troops ...int) *entity.Army {
	a := &entity.Army{Kingdom: k, Morale: 50, Supplies: 20, Speed: 1}
	for _, n := range troops {
		a.Units = append(a.Units, &entity.Unit{Kind: entity.UnitRegular, Troops: n, MaxTroops: n})
	}
	w.AddArmy(a)
	return a
}

func newAuthority(t *testing.T, withSim bool) (*BattleService, *entity.World) {
	t.Helper()
	w, dip := testWorld()
	var next BattleID
	opts := Options{
		Rules:     testRules(),
		Authority: true,
		NextID: func() BattleID {
			next++
			return next
		},
		Seed: 3,
	}
	if withSim {
		cfg := simulation.DefaultConfig()
		opts.Simulation = &cfg
	}
	s, err := New(w, dip, opts, nil)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	return s, w
}

func TestBattleService_接战到销毁的完整流程(t *testing.T) {
	s, w := newAuthority(t, true)
	att := addArmy(w, 1, 100, 100, 100)
	def := addArmy(w, 2, 100)

	e, err := s.Contact(context.Background(), att.ID, engagement.TargetArmy, int64(def.ID))
	if err != nil {
		t.Fatalf("Contact err=%v", err)
	}
	if e.ID() != 1 || e.Stage() != engagement.StageOngoing {
		t.Fatalf("期望直接开战, id=%d stage=%s", e.ID(), e.Stage())
	}
	if len(s.Battles()) != 1 {
		t.Fatalf("战斗应登记到表里")
	}

	for i := 0; i < 60 && len(s.Battles()) > 0; i++ {
		s.Tick(time.Second)
	}
	if len(s.Battles()) != 0 {
		t.Fatalf("战斗应在结束后销毁, stage=%s", e.Stage())
	}
	if e.Winner() != engagement.SideAttacker {
		t.Fatalf("兵力占优的攻方应获胜, winner=%s", e.Winner())
	}

	reports := s.DrainReports()
	if len(reports) != 1 || reports[0].Battle != 1 {
		t.Fatalf("期望一份战报, got=%d", len(reports))
	}
	if len(s.DrainReports()) != 0 {
		t.Fatalf("战报取走后应清空")
	}

	snaps := s.PersistSnapshots()
	if len(snaps) != 1 || !snaps[0].Finished || snaps[0].BattleID != 1 {
		t.Fatalf("销毁的战斗应落最后一份快照, got=%+v", snaps)
	}
	if len(s.PersistSnapshots()) != 0 {
		t.Fatalf("没有变化时不应重复落库")
	}
}

func TestBattleService_接战失败返回业务错误(t *testing.T) {
	s, w := newAuthority(t, false)
	att := addArmy(w, 1, 100)
	neutral := addArmy(w, 3, 100)

	_, err := s.Contact(context.Background(), att.ID, engagement.TargetArmy, int64(neutral.ID))
	if !errors.Is(err, errx.ErrPrecondition) {
		t.Fatalf("非敌对目标应被拒绝, err=%v", err)
	}
	_, err = s.Contact(context.Background(), 999, engagement.TargetArmy, int64(neutral.ID))
	if !errors.Is(err, errx.ErrArmyNotFound) {
		t.Fatalf("未知军队应返回 ARMY_NOT_FOUND, err=%v", err)
	}
	_, err = s.Contact(context.Background(), att.ID, engagement.TargetBattle, 42)
	if !errors.Is(err, errx.ErrBattleNotFound) {
		t.Fatalf("未知战斗应返回 BATTLE_NOT_FOUND, err=%v", err)
	}
	if len(s.Battles()) != 0 {
		t.Fatalf("失败的接战不应留下战斗")
	}
}

func TestBattleService_指令与加入(t *testing.T) {
	s, w := newAuthority(t, false)
	att := addArmy(w, 1, 100)
	def := addArmy(w, 2, 100)
	ally := addArmy(w, 1, 50)
	e, err := s.Contact(context.Background(), att.ID, engagement.TargetArmy, int64(def.ID))
	if err != nil {
		t.Fatalf("Contact err=%v", err)
	}

	if err := s.Command(context.Background(), e.ID(), engagement.ActionRetreat, 5, ""); !errors.Is(err, errx.ErrInvalidSide) {
		t.Fatalf("非法阵营应被拒绝, err=%v", err)
	}
	if err := s.Command(context.Background(), 77, engagement.ActionRetreat, engagement.SideAttacker, ""); !errors.Is(err, errx.ErrBattleNotFound) {
		t.Fatalf("未知战斗应返回 BATTLE_NOT_FOUND, err=%v", err)
	}

	if err := s.Join(context.Background(), e.ID(), ally.ID); err != nil {
		t.Fatalf("同王国军队应能加入, err=%v", err)
	}
	if got := e.SideArmies(engagement.SideAttacker); len(got) != 2 || got[1] != ally.ID {
		t.Fatalf("加入者应成为攻方支援, got=%v", got)
	}
	if err := s.Join(context.Background(), e.ID(), ally.ID); !errors.Is(err, errx.ErrPrecondition) {
		t.Fatalf("已在战斗中的军队不能重复加入, err=%v", err)
	}
	if err := s.SetReinforcement(context.Background(), e.ID(), ally.ID, 9, 0, false); !errors.Is(err, errx.ErrInvalidParam) {
		t.Fatalf("越界增援位应被拒绝, err=%v", err)
	}
}

func TestBattleService_观战者决定销毁时机(t *testing.T) {
	s, w := newAuthority(t, false)
	att := addArmy(w, 1, 100)
	def := addArmy(w, 2, 100)
	e, err := s.Contact(context.Background(), att.ID, engagement.TargetArmy, int64(def.ID))
	if err != nil {
		t.Fatalf("Contact err=%v", err)
	}
	if err := s.Watch(e.ID()); err != nil {
		t.Fatalf("Watch err=%v", err)
	}
	var seen []engagement.EventKind
	cancel := s.Subscribe(e.ID(), func(ev engagement.Event) { seen = append(seen, ev.Kind) })
	defer cancel()

	if !e.Victory(engagement.SideAttacker, engagement.ReasonCombat, false) {
		t.Fatalf("Victory 应成功")
	}
	for i := 0; i < 10; i++ {
		s.Tick(time.Second)
	}
	if e.Stage() != engagement.StageFinished || e.Destroyed() {
		t.Fatalf("有观战者时应停在 Finished, stage=%s destroyed=%v", e.Stage(), e.Destroyed())
	}
	if err := s.Unwatch(e.ID()); err != nil {
		t.Fatalf("Unwatch err=%v", err)
	}
	if !e.Destroyed() || len(s.Battles()) != 0 {
		t.Fatalf("最后一个观战者离开后应销毁")
	}
	if len(seen) == 0 || seen[len(seen)-1] != engagement.EventDestroyed {
		t.Fatalf("订阅者应收到销毁事件, got=%v", seen)
	}
}

func TestBattleService_副本对齐并转发指令(t *testing.T) {
	auth, w := newAuthority(t, false)
	att := addArmy(w, 1, 100)
	def := addArmy(w, 2, 100)
	e, err := auth.Contact(context.Background(), att.ID, engagement.TargetArmy, int64(def.ID))
	if err != nil {
		t.Fatalf("Contact err=%v", err)
	}

	rw, rdip := testWorld()
	fwd := &recordForwarder{}
	replica, err := New(rw, rdip, Options{Rules: testRules(), Forwarder: fwd}, nil)
	if err != nil {
		t.Fatalf("New replica err=%v", err)
	}
	if err := replica.ApplySnapshots(e.Snapshots()); err != nil {
		t.Fatalf("ApplySnapshots err=%v", err)
	}
	r, err := replica.Battle(e.ID())
	if err != nil {
		t.Fatalf("副本应创建战斗, err=%v", err)
	}
	if r.Stage() != e.Stage() || r.Type() != e.Type() {
		t.Fatalf("副本阶段不一致, got=%s/%s", r.Stage(), r.Type())
	}
	if err := replica.Command(context.Background(), e.ID(), engagement.ActionRetreat, engagement.SideDefender, ""); err != nil {
		t.Fatalf("副本应转发指令, err=%v", err)
	}
	if len(fwd.cmds) != 1 || fwd.cmds[0].Battle != e.ID() || fwd.cmds[0].Side != engagement.SideDefender {
		t.Fatalf("转发内容错误, got=%+v", fwd.cmds)
	}
	if _, err := replica.Contact(context.Background(), att.ID, engagement.TargetArmy, int64(def.ID)); !errors.Is(err, errx.ErrNotAuthority) {
		t.Fatalf("副本不能发起接战, err=%v", err)
	}
	if err := auth.ApplySnapshots(e.Snapshots()); err == nil {
		t.Fatalf("权威节点不接受快照")
	}
	if len(replica.PersistSnapshots()) != 0 {
		t.Fatalf("副本不落库")
	}
}

func TestBattleService_全量同步销毁已消失的战斗(t *testing.T) {
	auth, w := newAuthority(t, false)
	att := addArmy(w, 1, 100)
	def := addArmy(w, 2, 100)
	if _, err := auth.Contact(context.Background(), att.ID, engagement.TargetArmy, int64(def.ID)); err != nil {
		t.Fatalf("Contact err=%v", err)
	}

	rw, rdip := testWorld()
	replica, err := New(rw, rdip, Options{Rules: testRules(), Forwarder: &recordForwarder{}}, nil)
	if err != nil {
		t.Fatalf("New replica err=%v", err)
	}
	if err := replica.SyncAll(auth.AllSnapshots()); err != nil {
		t.Fatalf("SyncAll err=%v", err)
	}
	if len(replica.Battles()) != 1 {
		t.Fatalf("副本应有一场战斗, got=%d", len(replica.Battles()))
	}
	if err := replica.SyncAll(nil); err != nil {
		t.Fatalf("SyncAll err=%v", err)
	}
	if len(replica.Battles()) != 0 {
		t.Fatalf("权威节点没有的战斗应被销毁")
	}
}
