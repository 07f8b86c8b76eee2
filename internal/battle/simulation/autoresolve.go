package simulation

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/world/entity"
)

type squad struct {
	unit     *entity.Unit
	side     engagement.Side
	garrison bool
}

// AutoResolve 是无表现层时使用的回合制消耗解算：
// 每回合双方按兵力、经验和战术同时结算伤害，城池守军享有工事减伤。
type AutoResolve struct {
	cfg     Config
	rng     *rand.Rand
	squads  map[entity.UnitID]*squad
	tactics [2]string
	points  []engagement.CapturePoint
	last    time.Duration
	started bool
}

// Factory 返回 engagement.SimulationFactory；seed 决定每场战斗的随机序列。
func Factory(cfg Config, seed func() int64) engagement.SimulationFactory {
	return func(e *engagement.Engagement) engagement.Simulation {
		var s int64 = int64(e.ID())
		if seed != nil {
			s = seed()
		}
		return New(cfg, s, e)
	}
}

func New(cfg Config, seed int64, e *engagement.Engagement) *AutoResolve {
	if cfg.Round <= 0 {
		cfg.Round = time.Second
	}
	if len(cfg.Tactics) == 0 {
		cfg.Tactics = DefaultConfig().Tactics
	}
	s := &AutoResolve{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		squads:  make(map[entity.UnitID]*squad),
		tactics: [2]string{DefaultTactic, DefaultTactic},
	}
	for i := 0; i < cfg.CapturePoints; i++ {
		s.points = append(s.points, engagement.CapturePoint{ID: i + 1, Owner: engagement.SideNone, CountsForVictory: true})
	}
	if e == nil {
		return s
	}
	for side := engagement.SideAttacker; side <= engagement.SideDefender; side++ {
		for _, a := range e.Armies(side) {
			s.OnArmyJoined(side, a)
		}
	}
	for _, u := range e.Garrison() {
		s.squads[u.ID] = &squad{unit: u, side: engagement.SideDefender, garrison: true}
	}
	return s
}

func (s *AutoResolve) OnArmyJoined(side engagement.Side, a *entity.Army) {
	for _, u := range a.Units {
		s.squads[u.ID] = &squad{unit: u, side: side}
	}
}

func (s *AutoResolve) OnArmyLeft(_ engagement.Side, a *entity.Army) {
	for _, u := range a.Units {
		delete(s.squads, u.ID)
	}
}

func (s *AutoResolve) HasUnit(id entity.UnitID) bool {
	_, ok := s.squads[id]
	return ok
}

func (s *AutoResolve) CapturePoints() []engagement.CapturePoint {
	return append([]engagement.CapturePoint(nil), s.points...)
}

func (s *AutoResolve) SetTactics(side engagement.Side, name string) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %d", side)
	}
	if _, ok := s.cfg.Tactics[name]; !ok {
		return fmt.Errorf("unknown tactics %q", name)
	}
	s.tactics[side] = name
	return nil
}

func (s *AutoResolve) Tactics(side engagement.Side) string {
	if !side.Valid() {
		return ""
	}
	return s.tactics[side]
}

// Restart 重新开始计时；已造成的伤亡保留，占领点归零。
func (s *AutoResolve) Restart() {
	s.started = false
	for i := range s.points {
		s.points[i].Owner = engagement.SideNone
	}
}

// Step 按固定回合推进到 now。
func (s *AutoResolve) Step(now time.Duration) {
	if !s.started {
		s.started = true
		s.last = now
		return
	}
	for now-s.last >= s.cfg.Round {
		s.last += s.cfg.Round
		s.round()
	}
}

func (s *AutoResolve) Squads() []engagement.SquadState {
	out := make([]engagement.SquadState, 0, len(s.squads))
	for id, sq := range s.squads {
		out = append(out, engagement.SquadState{Unit: id, Side: sq.side, Troops: sq.unit.Troops, Damage: sq.unit.Damage})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}

func (s *AutoResolve) alive(side engagement.Side) []*squad {
	out := make([]*squad, 0)
	for _, sq := range s.squads {
		if sq.side == side && sq.unit.Alive() {
			out = append(out, sq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].unit.ID < out[j].unit.ID })
	return out
}

func (s *AutoResolve) strength(list []*squad, side engagement.Side) float64 {
	total := 0.0
	for _, sq := range list {
		total += float64(sq.unit.Troops) * (1 + sq.unit.Experience*s.cfg.ExpBonus)
	}
	return total * s.cfg.Tactics[s.tactics[side]].Attack
}

func troops(list []*squad) int {
	n := 0
	for _, sq := range list {
		n += sq.unit.Troops
	}
	return n
}

// round 先算双方伤害再统一结算，保证同时开火。
func (s *AutoResolve) round() {
	att := s.alive(engagement.SideAttacker)
	def := s.alive(engagement.SideDefender)
	if len(att) == 0 || len(def) == 0 {
		return
	}
	hits := make(map[*squad]float64, len(att)+len(def))
	s.volley(att, def, engagement.SideAttacker, hits)
	s.volley(def, att, engagement.SideDefender, hits)
	for sq, frac := range hits {
		sq.unit.TakeDamage(frac)
	}
	s.capture(troops(att), troops(def))
}

func (s *AutoResolve) volley(from, to []*squad, side engagement.Side, hits map[*squad]float64) {
	enemy := troops(to)
	if enemy <= 0 {
		return
	}
	defense := s.cfg.Tactics[s.tactics[side.Other()]].Defense
	if defense <= 0 {
		defense = 1
	}
	base := s.cfg.Lethality * s.strength(from, side) / float64(enemy) / defense
	for _, sq := range to {
		frac := base * (1 + s.cfg.Jitter*(2*s.rng.Float64()-1))
		if sq.garrison {
			frac *= 1 - s.cfg.FortBonus
		}
		hits[sq] += max(0, frac)
	}
}

func (s *AutoResolve) capture(att, def int) {
	if len(s.points) == 0 || att == def || s.rng.Float64() >= s.cfg.CaptureRate {
		return
	}
	side := engagement.SideAttacker
	if def > att {
		side = engagement.SideDefender
	}
	for i := range s.points {
		if s.points[i].Owner != side {
			s.points[i].Owner = side
			return
		}
	}
}
