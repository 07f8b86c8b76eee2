package engagement

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"Warfront/internal/world/diplomacy"
	"Warfront/internal/world/entity"
)

const (
	kNorth entity.KingdomID = 1
	kSouth entity.KingdomID = 2
	kEast  entity.KingdomID = 3
	kWest  entity.KingdomID = 4
)

type memRegistry struct {
	battles map[BattleID]*Engagement
	removed []BattleID
}

func (r *memRegistry) Add(e *Engagement) { r.battles[e.ID()] = e }
func (r *memRegistry) Remove(id BattleID) {
	delete(r.battles, id)
	r.removed = append(r.removed, id)
}
func (r *memRegistry) Get(id BattleID) (*Engagement, bool) {
	e, ok := r.battles[id]
	return e, ok
}

type reportSink struct {
	reports []*Report
	panicOn bool
}

func (s *reportSink) Report(r *Report) {
	if s.panicOn {
		panic("report sink down")
	}
	s.reports = append(s.reports, r)
}

type fakeSim struct {
	units    map[entity.UnitID]bool
	points   []CapturePoint
	tactics  map[Side]string
	steps    int
	restarts int
}

func newFakeSim(e *Engagement) Simulation {
	s := &fakeSim{units: make(map[entity.UnitID]bool), tactics: make(map[Side]string)}
	for side := SideAttacker; side <= SideDefender; side++ {
		for _, a := range e.Armies(side) {
			s.OnArmyJoined(side, a)
		}
	}
	return s
}

func (s *fakeSim) Step(time.Duration) { s.steps++ }
func (s *fakeSim) OnArmyJoined(_ Side, a *entity.Army) {
	for _, u := range a.Units {
		s.units[u.ID] = true
	}
}
func (s *fakeSim) OnArmyLeft(_ Side, a *entity.Army) {
	for _, u := range a.Units {
		delete(s.units, u.ID)
	}
}
func (s *fakeSim) Restart() { s.restarts++ }
func (s *fakeSim) HasUnit(id entity.UnitID) bool { return s.units[id] }
func (s *fakeSim) CapturePoints() []CapturePoint { return s.points }
func (s *fakeSim) Squads() []SquadState { return nil }
func (s *fakeSim) SetTactics(side Side, name string) error {
	s.tactics[side] = name
	return nil
}

type fixture struct {
	t      *testing.T
	world  *entity.World
	dip    *diplomacy.Diplomacy
	clock  *ManualClock
	ctx    *Context
	reg    *memRegistry
	sink   *reportSink
	events []Event
	nextID entity.CharacterID
}

// newFixture 默认规则去掉备战时间和随机性，北/南、东/北、东/南交战，西为中立。
func newFixture(t *testing.T, mutate func(r *Rules)) *fixture {
	t.Helper()
	rules := DefaultRules()
	rules.PreparationFormula = ""
	rules.PlunderResumeDelay = 0
	rules.HealInterval = 0
	rules.CaptureChanceWiped = map[string]float64{}
	rules.CaptureChanceRetreat = map[string]float64{}
	rules.EscapeChance = 0
	rules.GateAssaultChance = 0
	if mutate != nil {
		mutate(&rules)
	}
	world := entity.NewWorld(1)
	for _, k := range []*entity.Kingdom{
		{ID: kNorth, Name: "north", Religion: "sun"},
		{ID: kSouth, Name: "south", Religion: "moon"},
		{ID: kEast, Name: "east", Religion: "sun"},
		{ID: kWest, Name: "west", Religion: "moon"},
	} {
		world.AddKingdom(k)
	}
	dip := diplomacy.New()
	dip.DeclareWar(kNorth, kSouth)
	dip.DeclareWar(kEast, kNorth)
	dip.DeclareWar(kEast, kSouth)

	clock := &ManualClock{}
	ctx, err := NewContext(rules, world, dip, clock, nil)
	if err != nil {
		t.Fatalf("NewContext err=%v", err)
	}
	ctx.Rand = rand.New(rand.NewSource(7))
	f := &fixture{t: t, world: world, dip: dip, clock: clock, ctx: ctx,
		reg: &memRegistry{battles: make(map[BattleID]*Engagement)}, sink: &reportSink{}}
	ctx.Registry = f.reg
	ctx.Reports = f.sink
	ctx.Bus.SubscribeAll(func(ev Event) { f.events = append(f.events, ev) })
	return f
}

func (f *fixture) leader(k entity.KingdomID, rank entity.Rank) entity.CharacterID {
	f.nextID++
	f.world.AddCharacter(&entity.Character{ID: f.nextID, Kingdom: k, Rank: rank})
	return f.nextID
}

// army 创建一支带将领的军队，每个参数是一个兵团的兵力。
func (f *fixture) army(k entity.KingdomID, pos entity.Point, troops ...int) *entity.Army {
	a := &entity.Army{Kingdom: k, Leader: f.leader(k, entity.RankKnight), Position: pos, Speed: 1, Morale: 50, Supplies: 20}
	for _, n := range troops {
		a.Units = append(a.Units, &entity.Unit{Kind: entity.UnitRegular, Troops: n, MaxTroops: n})
	}
	f.world.AddArmy(a)
	return a
}

func (f *fixture) realm(id entity.RealmID, k entity.KingdomID, res, def float64) *entity.Realm {
	r := &entity.Realm{ID: id, Kingdom: k, PopulationKingdom: k, Resilience: res, SiegeDefense: def,
		ResilienceCondition: 1, SiegeDefenseCondition: 1}
	f.world.AddRealm(r)
	return r
}

func (f *fixture) castle(id entity.SettlementID, realm entity.RealmID, k entity.KingdomID, garrison ...int) *entity.Settlement {
	s := &entity.Settlement{ID: id, Kind: entity.SettlementCastle, Realm: realm, Kingdom: k, Fortified: true, Keep: true,
		Gold: 100, Food: 100, Books: 10}
	for _, n := range garrison {
		s.Garrison = append(s.Garrison, &entity.Unit{Kind: entity.UnitLevy, Troops: n, MaxTroops: n})
	}
	f.world.AddSettlement(s)
	return s
}

func (f *fixture) village(id entity.SettlementID, realm entity.RealmID, k entity.KingdomID) *entity.Settlement {
	s := &entity.Settlement{ID: id, Kind: entity.SettlementVillage, Realm: realm, Kingdom: k, Gold: 80, Food: 40, Books: 4}
	f.world.AddSettlement(s)
	return s
}

// tick 推进时钟并按 ID 顺序更新所有战斗。
func (f *fixture) tick(d time.Duration) {
	f.clock.Advance(d)
	ids := make([]BattleID, 0, len(f.reg.battles))
	for id := range f.reg.battles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if e, ok := f.reg.battles[id]; ok {
			e.Update()
		}
	}
}

func (f *fixture) count(kind EventKind) int {
	n := 0
	for _, ev := range f.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fixture) mustCreate(aggressor entity.ArmyID, target Target) *Engagement {
	f.t.Helper()
	e := Create(f.ctx, aggressor, target)
	if e == nil {
		f.t.Fatalf("Create returned nil")
	}
	return e
}

func killAll(units []*entity.Unit) {
	for _, u := range units {
		u.TakeDamage(1)
	}
}

func pt(x, y float64) entity.Point { return entity.Point{X: x, Y: y} }
