package entity

import (
	"sort"
)

// World 是世界对象的 arena：所有对象按整数句柄存取，销毁即从表里移除。
// 只允许权威节点（BattleActor 所在 goroutine）修改。
type World struct {
	worldID     WorldID
	armies      map[ArmyID]*Army
	settlements map[SettlementID]*Settlement
	realms      map[RealmID]*Realm
	kingdoms    map[KingdomID]*Kingdom
	characters  map[CharacterID]*Character

	nextArmy ArmyID
	nextUnit UnitID
	dirty    bool
}

func NewWorld(worldID WorldID) *World {
	return &World{
		worldID:     worldID,
		armies:      make(map[ArmyID]*Army),
		settlements: make(map[SettlementID]*Settlement),
		realms:      make(map[RealmID]*Realm),
		kingdoms:    make(map[KingdomID]*Kingdom),
		characters:  make(map[CharacterID]*Character),
	}
}

func (w *World) ID() WorldID {
	return w.worldID
}

// AddArmy 登记军队；ID 为 0 时自动分配，兵团 ID 同理。
func (w *World) AddArmy(a *Army) ArmyID {
	if a.ID == 0 {
		w.nextArmy++
		a.ID = w.nextArmy
	} else if a.ID > w.nextArmy {
		w.nextArmy = a.ID
	}
	for _, u := range a.Units {
		w.assignUnitID(u)
	}
	if a.Battle == 0 {
		a.BattleSide = -1
	}
	w.armies[a.ID] = a
	w.dirty = true
	return a.ID
}

func (w *World) assignUnitID(u *Unit) {
	if u.ID == 0 {
		w.nextUnit++
		u.ID = w.nextUnit
	} else if u.ID > w.nextUnit {
		w.nextUnit = u.ID
	}
}

func (w *World) AddSettlement(s *Settlement) {
	for _, u := range s.Garrison {
		w.assignUnitID(u)
	}
	w.settlements[s.ID] = s
	w.dirty = true
}

func (w *World) AddRealm(r *Realm) {
	w.realms[r.ID] = r
	w.dirty = true
}

func (w *World) AddKingdom(k *Kingdom) {
	w.kingdoms[k.ID] = k
	w.dirty = true
}

func (w *World) AddCharacter(c *Character) {
	w.characters[c.ID] = c
	w.dirty = true
}

// Army 返回存活的军队；已销毁或不存在返回 false。
func (w *World) Army(id ArmyID) (*Army, bool) {
	a, ok := w.armies[id]
	if !ok || a.Destroyed() {
		return nil, false
	}
	return a, true
}

func (w *World) Settlement(id SettlementID) (*Settlement, bool) {
	s, ok := w.settlements[id]
	return s, ok
}

func (w *World) Realm(id RealmID) (*Realm, bool) {
	r, ok := w.realms[id]
	return r, ok
}

func (w *World) Kingdom(id KingdomID) (*Kingdom, bool) {
	k, ok := w.kingdoms[id]
	return k, ok
}

func (w *World) Character(id CharacterID) (*Character, bool) {
	c, ok := w.characters[id]
	return c, ok
}

// Leader 返回军队统帅。
func (w *World) Leader(a *Army) (*Character, bool) {
	if a == nil || a.Leader == 0 {
		return nil, false
	}
	return w.Character(a.Leader)
}

// DestroyArmy 销毁军队并断开与城池的驻扎关系。
func (w *World) DestroyArmy(id ArmyID) {
	a, ok := w.armies[id]
	if !ok {
		return
	}
	a.destroyed = true
	a.ClearBattle()
	for _, s := range w.settlements {
		if s.Army == id {
			s.Army = 0
		}
	}
	delete(w.armies, id)
	w.dirty = true
}

// Armies 按 ID 升序返回，保证遍历顺序确定。
func (w *World) Armies() []*Army {
	out := make([]*Army, 0, len(w.armies))
	for _, a := range w.armies {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) ArmiesNear(p Point, radius float64) []*Army {
	out := make([]*Army, 0)
	for _, a := range w.Armies() {
		if a.Position.Dist(p) <= radius {
			out = append(out, a)
		}
	}
	return out
}

func (w *World) Settlements() []*Settlement {
	out := make([]*Settlement, 0, len(w.settlements))
	for _, s := range w.settlements {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReleaseBattleLinks 清掉所有军队与城池指向战斗的引用，返回清理的数量。
// 进程重启后战斗不会恢复，加载世界时调用。
func (w *World) ReleaseBattleLinks() int {
	n := 0
	for _, a := range w.armies {
		if a.Battle != 0 || a.MovingTo != 0 {
			a.ClearBattle()
			a.MovingTo = 0
			n++
		}
	}
	for _, s := range w.settlements {
		if s.Battle != 0 {
			s.Battle = 0
			n++
		}
	}
	if n > 0 {
		w.dirty = true
	}
	return n
}

func (w *World) MarkDirty() {
	w.dirty = true
}

func (w *World) Dirty() bool {
	return w.dirty
}

func (w *World) ClearDirty() {
	w.dirty = false
}

func (w *World) BuildPersistSnapshot(version uint64) (*WorldPersistSnapshot, bool) {
	if w == nil || !w.dirty {
		return nil, false
	}
	s := &WorldPersistSnapshot{
		Version: version,
		WorldID: w.worldID,
		Armies:  make([]Army, 0, len(w.armies)),
	}
	for _, a := range w.Armies() {
		s.Armies = append(s.Armies, cloneArmy(a))
	}
	for _, st := range w.Settlements() {
		c := *st
		c.Garrison = cloneUnits(st.Garrison)
		s.Settlements = append(s.Settlements, c)
	}
	for _, r := range w.realms {
		c := *r
		c.Neighbors = append([]RealmID(nil), r.Neighbors...)
		s.Realms = append(s.Realms, c)
	}
	for _, k := range w.kingdoms {
		s.Kingdoms = append(s.Kingdoms, *k)
	}
	for _, c := range w.characters {
		s.Characters = append(s.Characters, *c)
	}
	sort.Slice(s.Realms, func(i, j int) bool { return s.Realms[i].ID < s.Realms[j].ID })
	sort.Slice(s.Kingdoms, func(i, j int) bool { return s.Kingdoms[i].ID < s.Kingdoms[j].ID })
	sort.Slice(s.Characters, func(i, j int) bool { return s.Characters[i].ID < s.Characters[j].ID })
	return s, true
}

// HydrateWorld 从持久化快照恢复世界。
func HydrateWorld(s *WorldPersistSnapshot) *World {
	w := NewWorld(s.WorldID)
	for i := range s.Kingdoms {
		k := s.Kingdoms[i]
		w.AddKingdom(&k)
	}
	for i := range s.Realms {
		r := s.Realms[i]
		w.AddRealm(&r)
	}
	for i := range s.Characters {
		c := s.Characters[i]
		w.AddCharacter(&c)
	}
	for i := range s.Settlements {
		st := s.Settlements[i]
		w.AddSettlement(&st)
	}
	for i := range s.Armies {
		a := cloneArmy(&s.Armies[i])
		w.AddArmy(&a)
	}
	w.dirty = false
	return w
}

func cloneArmy(a *Army) Army {
	c := *a
	c.Units = cloneUnits(a.Units)
	return c
}

func cloneUnits(in []*Unit) []*Unit {
	out := make([]*Unit, 0, len(in))
	for _, u := range in {
		c := *u
		out = append(out, &c)
	}
	return out
}
