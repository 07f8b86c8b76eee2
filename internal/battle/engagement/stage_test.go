package engagement

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestStage_备战时长来自公式(t *testing.T) {
	f := newFixture(t, func(r *Rules) { r.PreparationFormula = DefaultPreparationFormula })
	a := f.army(kNorth, pt(0, 0), 100, 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	// min(60, 10 + 40 × 100 / 200) = 30s
	if e.PreparationDuration() != 30*time.Second || e.Stage() != StagePreparing {
		t.Fatalf("prep=%v stage=%s", e.PreparationDuration(), e.Stage())
	}
	f.tick(29 * time.Second)
	if e.Stage() != StagePreparing {
		t.Fatalf("stage=%s", e.Stage())
	}
	f.tick(time.Second)
	if e.Stage() != StageOngoing {
		t.Fatalf("stage=%s", e.Stage())
	}
}

func TestStage_公式编译失败(t *testing.T) {
	rules := DefaultRules()
	rules.PreparationFormula = "stronger +"
	if _, err := NewContext(rules, nil, nil, &ManualClock{}, nil); err == nil {
		t.Fatalf("非法公式应返回错误")
	}
}

func TestStage_外部不能回退阶段(t *testing.T) {
	f := newFixture(t, nil)
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	if e.SetStage(StagePreparing, 0) {
		t.Fatalf("不应允许回退")
	}
	if e.Stage() != StageOngoing {
		t.Fatalf("stage=%s", e.Stage())
	}
	if !e.SetStage(StageFinishing, 2*time.Second) {
		t.Fatalf("前进应允许")
	}
	if e.StageElapsed() != 2*time.Second {
		t.Fatalf("elapsed=%v", e.StageElapsed())
	}
}

func TestStage_Restart只在未决时允许(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.NewSimulation = newFakeSim
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	if !e.Restart() {
		t.Fatalf("未决时 Restart 应成功")
	}
	if e.Stage() != StagePreparing || e.Phase() != 1 || e.sim.(*fakeSim).restarts != 1 {
		t.Fatalf("stage=%s phase=%d", e.Stage(), e.Phase())
	}
	e.Victory(SideAttacker, ReasonCombat, false)
	if e.Restart() {
		t.Fatalf("已决出胜负不应 Restart")
	}
}

func TestStage_没有观战者时结束即销毁(t *testing.T) {
	f := newFixture(t, func(r *Rules) { r.FinishingDelay = 5 * time.Second })
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	e.Victory(SideAttacker, ReasonCombat, false)
	f.tick(4 * time.Second)
	if e.Stage() != StageFinishing {
		t.Fatalf("stage=%s", e.Stage())
	}
	f.tick(time.Second)
	if e.Stage() != StageFinished || !e.Destroyed() {
		t.Fatalf("stage=%s destroyed=%v", e.Stage(), e.Destroyed())
	}
}

func TestStage_观战者离开后才销毁(t *testing.T) {
	f := newFixture(t, func(r *Rules) { r.FinishingDelay = 0 })
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	e.AttachViewer()
	e.Victory(SideAttacker, ReasonCombat, false)
	f.tick(time.Second)
	if e.Stage() != StageFinished || e.Destroyed() {
		t.Fatalf("有观战者时不应销毁, stage=%s destroyed=%v", e.Stage(), e.Destroyed())
	}
	e.DetachViewer()
	if !e.Destroyed() {
		t.Fatalf("最后一个观战者离开后应销毁")
	}
}

func TestStage_观战中途离开结束后仍销毁(t *testing.T) {
	f := newFixture(t, func(r *Rules) { r.FinishingDelay = 0 })
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	e.AttachViewer()
	e.DetachViewer()
	if e.Destroyed() {
		t.Fatalf("未结束的战斗不应销毁")
	}

	e.Victory(SideAttacker, ReasonCombat, false)
	for i := 0; i < 5; i++ {
		f.tick(time.Second)
	}
	if e.Stage() != StageFinished || !e.Destroyed() {
		t.Fatalf("stage=%s destroyed=%v", e.Stage(), e.Destroyed())
	}
	if _, ok := f.reg.Get(e.ID()); ok {
		t.Fatalf("销毁后应从战斗表移除")
	}
}

func TestStage_取消后不能Restart(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.NewSimulation = newFakeSim
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	if !e.Cancel(ReasonCancelled) {
		t.Fatalf("Cancel 应成功")
	}
	if e.Restart() {
		t.Fatalf("已取消的战斗不应 Restart")
	}
	for i := 0; i < 5; i++ {
		f.tick(time.Second)
	}

	if e.Reason() != ReasonCancelled || e.Stage() != StageFinished {
		t.Fatalf("reason=%s stage=%s", e.Reason(), e.Stage())
	}
	if _, ok := f.world.Army(a.ID); !ok {
		t.Fatalf("攻方军队不应被销毁")
	}
	if _, ok := f.world.Army(d.ID); !ok {
		t.Fatalf("守方军队不应被销毁")
	}
}

func TestStage_重新打开表现层时Restart(t *testing.T) {
	f := newFixture(t, func(r *Rules) { r.PreparationFormula = "5.0" })
	f.ctx.NewSimulation = newFakeSim
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))

	if !e.EnterBattle("plains") {
		t.Fatalf("EnterBattle 应成功")
	}
	f.tick(5 * time.Second)
	e.PresentationLoaded()
	f.tick(time.Second)
	if e.Stage() != StageOngoing || e.Phase() != 0 {
		t.Fatalf("首次打开不应 Restart, stage=%s phase=%d", e.Stage(), e.Phase())
	}
	if !e.LeaveBattle() {
		t.Fatalf("LeaveBattle 应成功")
	}

	if !e.EnterBattle("plains") {
		t.Fatalf("重新打开应成功")
	}
	if e.Stage() != StagePreparing || e.Phase() != 1 || e.sim.(*fakeSim).restarts != 1 {
		t.Fatalf("stage=%s phase=%d", e.Stage(), e.Phase())
	}
	f.tick(5 * time.Second)
	if e.Stage() != StageEnteringBattle {
		t.Fatalf("重走一轮应等待地图加载, stage=%s", e.Stage())
	}
	e.PresentationLoaded()
	f.tick(time.Second)
	if e.Stage() != StageOngoing {
		t.Fatalf("stage=%s", e.Stage())
	}
}

// (phase, stage) 在任意操作序列下单调不减。
func TestStage_阶段单调(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		f := newFixture(t, func(r *Rules) {
			r.PreparationFormula = "3.0"
			r.GateAssaultChance = 0.5
		})
		f.ctx.Rand = rand.New(rand.NewSource(seed))
		f.realm(10, kSouth, 20, 20)
		castle := f.castle(100, 10, kSouth, 30, 30)
		a := f.army(kNorth, castle.Position, 100, 100)
		e := f.mustCreate(a.ID, SettlementTarget(castle.ID))
		prevPhase, prevStage := e.Phase(), e.Stage()
		for step := 0; step < 60 && !e.Destroyed(); step++ {
			switch rng.Intn(8) {
			case 0:
				e.Assault()
			case 1:
				e.AssaultGate()
			case 2:
				e.BreakSiege(SideDefender)
			case 3:
				e.ResumeSiege()
			case 4:
				e.Restart()
			case 5:
				e.SetStage(Stage(rng.Intn(5)), 0)
			case 6:
				_ = e.DoAction(context.Background(), ActionEnterBattle, SideAttacker, "")
			case 7:
				e.PresentationLoaded()
			}
			f.tick(time.Duration(rng.Intn(4)) * time.Second)
			if e.Phase() < prevPhase || (e.Phase() == prevPhase && e.Stage() < prevStage) {
				t.Fatalf("seed %d step %d: (%d,%s) -> (%d,%s)", seed, step, prevPhase, prevStage, e.Phase(), e.Stage())
			}
			prevPhase, prevStage = e.Phase(), e.Stage()
		}
	}
}
