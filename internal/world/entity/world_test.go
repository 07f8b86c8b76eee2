package entity

import "testing"

func TestWorld_分配句柄并销毁军队(t *testing.T) {
	w := NewWorld(1)
	w.AddSettlement(&Settlement{ID: 5, Army: 0})
	a := &Army{Kingdom: 1, Units: []*Unit{{Troops: 10, MaxTroops: 10}, {Troops: 5, MaxTroops: 5}}}
	id := w.AddArmy(a)
	if id != 1 || a.Units[0].ID == 0 || a.Units[0].ID == a.Units[1].ID {
		t.Fatalf("应自动分配军队与兵团 ID, army=%d units=%d/%d", id, a.Units[0].ID, a.Units[1].ID)
	}
	if a.BattleSide != -1 {
		t.Fatalf("未参战军队的阵营应为 -1, got=%d", a.BattleSide)
	}
	if got := w.AddArmy(&Army{ID: 9}); got != 9 {
		t.Fatalf("已有 ID 应保留, got=%d", got)
	}
	if got := w.AddArmy(&Army{}); got != 10 {
		t.Fatalf("后续分配应跳过已占用的 ID, got=%d", got)
	}

	s, _ := w.Settlement(5)
	s.Army = id
	w.ClearDirty()
	w.DestroyArmy(id)
	if _, ok := w.Army(id); ok || !a.Destroyed() {
		t.Fatalf("销毁后军队句柄应失效")
	}
	if s.Army != 0 || !w.Dirty() {
		t.Fatalf("销毁军队应断开驻扎关系并置脏, army=%d dirty=%v", s.Army, w.Dirty())
	}
}

func TestWorld_释放残留战斗引用(t *testing.T) {
	w := NewWorld(1)
	a := &Army{Kingdom: 1}
	w.AddArmy(a)
	a.SetBattle(3, 0, false)
	b := &Army{Kingdom: 2, MovingTo: 3}
	w.AddArmy(b)
	w.AddSettlement(&Settlement{ID: 1, Battle: 3})
	w.ClearDirty()

	if n := w.ReleaseBattleLinks(); n != 3 {
		t.Fatalf("应清理 3 处引用, got=%d", n)
	}
	if a.Battle != 0 || a.BattleSide != -1 || b.MovingTo != 0 {
		t.Fatalf("军队引用未清理, a=%d/%d b=%d", a.Battle, a.BattleSide, b.MovingTo)
	}
	if s, _ := w.Settlement(1); s.Battle != 0 {
		t.Fatalf("城池引用未清理")
	}
	if !w.Dirty() {
		t.Fatalf("清理后应置脏")
	}
	w.ClearDirty()
	if n := w.ReleaseBattleLinks(); n != 0 || w.Dirty() {
		t.Fatalf("没有引用时不应置脏, n=%d", n)
	}
}

func TestWorld_快照恢复互不影响(t *testing.T) {
	w := NewWorld(2)
	w.AddKingdom(&Kingdom{ID: 1, Name: "north"})
	w.AddRealm(&Realm{ID: 1, Neighbors: []RealmID{2}})
	w.AddSettlement(&Settlement{ID: 1, Garrison: []*Unit{{Kind: UnitLevy, Troops: 20, MaxTroops: 20}}})
	w.AddArmy(&Army{Kingdom: 1, Units: []*Unit{{Troops: 100, MaxTroops: 100}}})

	snap, ok := w.BuildPersistSnapshot(4)
	if !ok || snap.Version != 4 || snap.WorldID != 2 {
		t.Fatalf("脏世界应生成快照, ok=%v", ok)
	}
	w.ClearDirty()
	if _, ok := w.BuildPersistSnapshot(5); ok {
		t.Fatalf("干净的世界不应生成快照")
	}

	a, _ := w.Army(1)
	a.Units[0].TakeDamage(0.5)
	restored := HydrateWorld(snap)
	if restored.Dirty() {
		t.Fatalf("恢复出的世界不应是脏的")
	}
	ra, ok := restored.Army(1)
	if !ok || ra.Troops() != 100 {
		t.Fatalf("快照应与原世界隔离, troops=%d", ra.Troops())
	}
	rs, _ := restored.Settlement(1)
	if rs.GarrisonTroops() != 20 {
		t.Fatalf("驻军应随快照恢复, got=%d", rs.GarrisonTroops())
	}
	if r, _ := restored.Realm(1); !r.IsNeighbor(2) {
		t.Fatalf("领地邻接关系应恢复")
	}
}

func TestUnit_损伤折算兵力(t *testing.T) {
	u := &Unit{Troops: 100, MaxTroops: 100}
	u.TakeDamage(0.25)
	if u.Troops != 75 {
		t.Fatalf("损伤 25%% 应剩 75, got=%d", u.Troops)
	}
	u.Heal(1)
	if u.Troops != 100 || u.Damage != 0 {
		t.Fatalf("完全治疗应恢复满员, got=%d dmg=%v", u.Troops, u.Damage)
	}
	u.TakeDamage(1.5)
	if u.Alive() || u.Troops != 0 {
		t.Fatalf("损伤满 1 应全灭")
	}
	u.Heal(1)
	if u.Alive() {
		t.Fatalf("全灭的兵团不能被治疗")
	}
}
