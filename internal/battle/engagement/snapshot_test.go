package engagement

import (
	"testing"
	"time"
)

func TestSnapshot_副本按快照对齐(t *testing.T) {
	f := newFixture(t, nil)
	f.realm(10, kSouth, 100, 100)
	castle := f.castle(100, 10, kSouth, 30)
	a := f.army(kNorth, castle.Position, 100)
	e := f.mustCreate(a.ID, SettlementTarget(castle.ID))
	f.tick(10 * time.Second)

	rctx, err := NewContext(f.ctx.Rules, f.world, f.dip, f.clock, nil)
	if err != nil {
		t.Fatalf("NewContext err=%v", err)
	}
	rctx.Authority = false
	replica := NewReplica(rctx, e.ID())
	for _, s := range e.Snapshots() {
		if err := Apply(s, replica); err != nil {
			t.Fatalf("apply kind=%d err=%v", s.Kind, err)
		}
	}

	if replica.Type() != TypeSiege || replica.Stage() != e.Stage() || replica.Phase() != e.Phase() {
		t.Fatalf("replica type=%s stage=%s phase=%d", replica.Type(), replica.Stage(), replica.Phase())
	}
	if got := replica.SideArmies(SideAttacker); len(got) != 1 || got[0] != a.ID {
		t.Fatalf("attackers=%v", got)
	}
	if replica.StageElapsed() != e.StageElapsed() {
		t.Fatalf("elapsed replica=%v primary=%v", replica.StageElapsed(), e.StageElapsed())
	}
	now := f.clock.Now()
	if replica.Siege().Resilience(now) != e.Siege().Resilience(now) {
		t.Fatalf("resilience replica=%v primary=%v", replica.Siege().Resilience(now), e.Siege().Resilience(now))
	}
	if replica.CanAssault() != e.CanAssault() {
		t.Fatalf("can assault 不一致")
	}
}

func TestSnapshot_副本不推进也不结算(t *testing.T) {
	f := newFixture(t, nil)
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))

	rctx, _ := NewContext(f.ctx.Rules, f.world, f.dip, f.clock, nil)
	rctx.Authority = false
	replica := NewReplica(rctx, e.ID())
	for _, s := range e.Snapshots() {
		if err := Apply(s, replica); err != nil {
			t.Fatalf("apply err=%v", err)
		}
	}
	killAll(d.Units)
	replica.Update()
	if replica.Victory(SideAttacker, ReasonCombat, false) {
		t.Fatalf("副本不应判定胜负")
	}
	if replica.Stage() != StageOngoing || replica.Winner() != SideNone {
		t.Fatalf("replica stage=%s winner=%s", replica.Stage(), replica.Winner())
	}
	if d.Battle != e.ID() {
		t.Fatalf("副本不应修改世界对象")
	}
}

func TestSnapshot_拒绝不匹配的快照(t *testing.T) {
	f := newFixture(t, nil)
	replica := NewReplica(f.ctx, 42)
	if err := Apply(Snapshot{Kind: SnapshotOutcome, Battle: 7, Outcome: &OutcomeState{}}, replica); err == nil {
		t.Fatalf("战斗 ID 不匹配应报错")
	}
	if err := Apply(Snapshot{Kind: SnapshotOutcome, Battle: 42}, replica); err == nil {
		t.Fatalf("空字段组应报错")
	}
	if err := Apply(Snapshot{Kind: 99, Battle: 42}, replica); err == nil {
		t.Fatalf("未知字段组应报错")
	}
	if err := Apply(Snapshot{Kind: SnapshotOutcome, Battle: 42, Outcome: &OutcomeState{Winner: SideDefender, Reason: ReasonRetreat}}, replica); err != nil {
		t.Fatalf("err=%v", err)
	}
	if replica.Winner() != SideDefender || replica.Reason() != ReasonRetreat {
		t.Fatalf("winner=%s reason=%s", replica.Winner(), replica.Reason())
	}
}

func TestSnapshot_非围城战没有城防字段组(t *testing.T) {
	f := newFixture(t, nil)
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))
	if _, ok := e.Snapshot(SnapshotSiege); ok {
		t.Fatalf("野战不应有 siege 快照")
	}
	if _, ok := e.Snapshot(SnapshotPlunder); ok {
		t.Fatalf("野战不应有 plunder 快照")
	}
}

func TestPersistSnapshot_只在变化后生成(t *testing.T) {
	f := newFixture(t, nil)
	a := f.army(kNorth, pt(0, 0), 100)
	d := f.army(kSouth, pt(1, 0), 100)
	e := f.mustCreate(a.ID, ArmyTarget(d.ID))

	ps, ok := e.BuildPersistSnapshot()
	if !ok || ps.Version != 1 || ps.BattleID != e.ID() || ps.Finished {
		t.Fatalf("ps=%+v ok=%v", ps, ok)
	}
	if _, ok := e.BuildPersistSnapshot(); ok {
		t.Fatalf("无变化时不应生成")
	}
	e.Victory(SideAttacker, ReasonCombat, false)
	ps, ok = e.BuildPersistSnapshot()
	if !ok || ps.Version != 2 {
		t.Fatalf("ps=%+v ok=%v", ps, ok)
	}
}
