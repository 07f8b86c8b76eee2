package engagement

import (
	"math"
	"time"

	"go.uber.org/zap"

	"Warfront/internal/world/entity"
)

// pool 是按时间线性变化的城防数值，读取时夹在 [0, cap]。
type pool struct {
	value float64
	rate  float64 // 每秒
	since time.Duration
	cap   float64
}

func (p pool) at(now time.Duration) float64 {
	v := p.value
	if now > p.since {
		v += p.rate * (now - p.since).Seconds()
	}
	return math.Max(0, math.Min(p.cap, v))
}

func (p *pool) setRate(now time.Duration, rate float64) {
	p.value = p.at(now)
	p.since = now
	p.rate = rate
}

func (p *pool) set(now time.Duration, v float64) {
	p.value = math.Max(0, math.Min(p.cap, v))
	p.since = now
}

// SiegeAccounting 记录围城期间的城防韧性和攻城防御。
// *PreCondition 是乘上残余比例之前的基准值，用于判定“已削弱一半”和回写残余比例。
type SiegeAccounting struct {
	resilience   pool
	siegeDefense pool
	active       bool

	InitialResilience        float64
	InitialSiegeDefense      float64
	ResiliencePreCondition   float64
	SiegeDefensePreCondition float64
}

func (s *SiegeAccounting) Resilience(now time.Duration) float64 { return s.resilience.at(now) }

func (s *SiegeAccounting) SiegeDefense(now time.Duration) float64 { return s.siegeDefense.at(now) }

func (s *SiegeAccounting) Active() bool { return s.active }

// Weakened 任一数值降到基准值一半以下即允许强攻。
func (s *SiegeAccounting) Weakened(now time.Duration) bool {
	return s.Resilience(now) <= s.ResiliencePreCondition/2 ||
		s.SiegeDefense(now) <= s.SiegeDefensePreCondition/2
}

// run 启动两个损耗过程：韧性随时间流失；攻城防御随攻方攻城器械数量下降，没有器械时回复。
func (s *SiegeAccounting) run(now time.Duration, rules *Rules, attackersPresent bool, siegeUnits int) {
	s.active = true
	resRate := 0.0
	if attackersPresent {
		resRate = -rules.ResilienceDecay
	}
	defRate := rules.SiegeDefenseRecovery
	if siegeUnits > 0 {
		defRate = -float64(siegeUnits) * rules.SiegeDefenseDecay
	}
	s.resilience.setRate(now, resRate)
	s.siegeDefense.setRate(now, defRate)
}

func (s *SiegeAccounting) stop(now time.Duration) {
	s.active = false
	s.resilience.setRate(now, 0)
	s.siegeDefense.setRate(now, 0)
}

// Conditions 返回当前值占基准值的比例，回写到领地。
func (s *SiegeAccounting) Conditions(now time.Duration) (float64, float64) {
	return ratio01(s.Resilience(now), s.ResiliencePreCondition), ratio01(s.SiegeDefense(now), s.SiegeDefensePreCondition)
}

func ratio01(v, base float64) float64 {
	if base <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, v/base))
}

// deriveSiege 由领地基准值推导初始城防：
// 基准 → 收复本国领地折扣（人口多数相符折扣更大）→ 非主城堡垒折减 → 征召兵韧性加成
// → 记为 pre_condition → 乘残余比例，且不低于 1。
func deriveSiege(rules *Rules, realm *entity.Realm, s *entity.Settlement, attacker entity.KingdomID, now time.Duration) *SiegeAccounting {
	res, def := realm.Resilience, realm.SiegeDefense
	if attacker != 0 && realm.Kingdom == attacker && realm.Controller() != attacker {
		bonus := rules.OwnRealmBonus
		if realm.PopulationKingdom == attacker {
			bonus = rules.OwnRealmMajorityBonus
		}
		res *= 1 - bonus
		def *= 1 - bonus
	}
	if s.Fortified && !s.Keep {
		res *= rules.NonKeepFactor
		def *= rules.NonKeepFactor
	}
	if s.LeviesReinforceSiege {
		res += rules.LevyResilienceBonus
	}
	acc := &SiegeAccounting{ResiliencePreCondition: res, SiegeDefensePreCondition: def}
	acc.InitialResilience = math.Max(1, res*clamp01(realm.ResilienceCondition))
	acc.InitialSiegeDefense = math.Max(1, def*clamp01(realm.SiegeDefenseCondition))
	acc.resilience = pool{value: acc.InitialResilience, since: now, cap: acc.InitialResilience}
	acc.siegeDefense = pool{value: acc.InitialSiegeDefense, since: now, cap: acc.InitialSiegeDefense}
	return acc
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// startSiege 每次（重新）开始围城都从领地重新推导。
func (e *Engagement) startSiege() {
	st, ok := e.Settlement()
	if !ok {
		return
	}
	realm, ok := e.ctx.World.Realm(st.Realm)
	if !ok {
		e.log.Warn("siege without realm", zap.Int64("settlement", int64(st.ID)))
		return
	}
	now := e.now()
	e.siege = deriveSiege(&e.ctx.Rules, realm, st, e.sideKingdom(SideAttacker), now)
	e.refreshSiegeRates()
}

// refreshSiegeRates 攻方兵力/器械变化后重算速率。
func (e *Engagement) refreshSiegeRates() {
	if e.siege == nil || e.typ != TypeSiege || e.stage >= StageFinishing {
		return
	}
	present, siegeUnits := false, 0
	for _, a := range e.Armies(SideAttacker) {
		if a.Squads() > 0 {
			present = true
		}
		siegeUnits += a.SiegeUnits()
	}
	e.siege.run(e.now(), &e.ctx.Rules, present, siegeUnits)
}

// stopSiege 冻结数值并把残余比例写回领地。
func (e *Engagement) stopSiege() {
	if e.siege == nil || !e.siege.active {
		return
	}
	now := e.now()
	e.siege.stop(now)
	st, ok := e.Settlement()
	if !ok {
		return
	}
	realm, ok := e.ctx.World.Realm(st.Realm)
	if !ok {
		return
	}
	realm.ResilienceCondition, realm.SiegeDefenseCondition = e.siege.Conditions(now)
	e.ctx.World.MarkDirty()
}

// CanAssault 围城中且城防削弱过半，或城门已被打开。
func (e *Engagement) CanAssault() bool {
	if e.typ != TypeSiege || e.stage >= StageFinishing || e.siege == nil {
		return false
	}
	return e.gateOpened || e.siege.Weakened(e.now())
}

func (e *Engagement) refreshAssaultAvailability() {
	can := e.CanAssault()
	if can == e.canAssault {
		return
	}
	e.canAssault = can
	e.publish(Event{Kind: EventAssaultAvailability, CanAssault: can})
}
