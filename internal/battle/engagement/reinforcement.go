package engagement

import (
	"time"

	"Warfront/internal/world/entity"
)

// Slot 是一个增援位。0/2 属于攻方，1/3 属于守方。
type Slot struct {
	Army     entity.ArmyID `json:"army" bson:"army"`
	Estimate time.Duration `json:"estimate" bson:"estimate"`
	Manual   bool          `json:"manual" bson:"manual"`
	// Counting 为 true 时 EndsAt 是倒计时结束的模拟时间
	Counting bool          `json:"counting" bson:"counting"`
	EndsAt   time.Duration `json:"ends_at" bson:"ends_at"`
}

func slotSide(idx int) Side { return Side(idx % 2) }

func (e *Engagement) Slots() [4]Slot { return e.slots }

func (e *Engagement) IntendedReinforcements() []entity.ArmyID {
	return append([]entity.ArmyID(nil), e.intended...)
}

func (e *Engagement) slotOf(id entity.ArmyID) int {
	if id == 0 {
		return -1
	}
	for i, s := range e.slots {
		if s.Army == id {
			return i
		}
	}
	return -1
}

func (e *Engagement) removeIntended(id entity.ArmyID) bool {
	for i, a := range e.intended {
		if a == id {
			e.intended = append(e.intended[:i:i], e.intended[i+1:]...)
			return true
		}
	}
	return false
}

// reinforcementSide 判断军队当前能否作为增援：在范围内（或正在赶来）、未参战、
// 有将领、未溃逃、外交上站在某一方。
func (e *Engagement) reinforcementSide(a *entity.Army) (Side, bool) {
	if a == nil || a.Destroyed() || a.Battle != 0 || a.Leader == 0 || a.Fleeing {
		return SideNone, false
	}
	if e.refused[a.ID] || e.stage >= StageFinishing {
		return SideNone, false
	}
	if a.MovingTo != e.id && a.Position.Dist(e.position) > e.ctx.Rules.ReinforcementRadius {
		return SideNone, false
	}
	side, ok := e.alignment(a).Side()
	if !ok || e.refuseSupport[side] {
		return SideNone, false
	}
	return side, true
}

// estimate 预计到达时间 = 距离 / 速度 × 倍率。
func (e *Engagement) estimate(a *entity.Army) (time.Duration, bool) {
	if a.Speed <= 0 {
		return 0, false
	}
	secs := a.Position.Dist(e.position) / a.Speed * e.ctx.Rules.ReinforcementMultiplier
	return time.Duration(secs * float64(time.Second)), true
}

// AddIntendedReinforcement 登记一支预计增援，有空位或比现有非手动增援更快时占位。
func (e *Engagement) AddIntendedReinforcement(id entity.ArmyID) bool {
	if e.ctx.Rules.Multiplayer || e.destroyed {
		return false
	}
	a, ok := e.ctx.World.Army(id)
	if !ok {
		return false
	}
	side, ok := e.reinforcementSide(a)
	if !ok {
		return false
	}
	est, ok := e.estimate(a)
	if !ok {
		return false
	}
	if !containsArmy(e.intended, id) {
		e.intended = append(e.intended, id)
	}
	if e.slotOf(id) >= 0 {
		return true
	}
	if idx := e.pickSlot(side, est); idx >= 0 {
		e.SetReinforcements(id, idx, est, false, false)
	}
	return true
}

// pickSlot 先找空位，否则挤掉预计最慢的非手动增援。
func (e *Engagement) pickSlot(side Side, est time.Duration) int {
	worst := -1
	for _, idx := range []int{int(side), int(side) + 2} {
		s := e.slots[idx]
		if s.Army == 0 {
			return idx
		}
		if s.Manual || s.Estimate <= est {
			continue
		}
		if worst < 0 || s.Estimate > e.slots[worst].Estimate {
			worst = idx
		}
	}
	return worst
}

// SetReinforcements 指定增援位。army 为 0 时清空。force 可以覆盖手动位和合法性，
// 但永远不能违反奇偶对应的阵营。
func (e *Engagement) SetReinforcements(id entity.ArmyID, slot int, est time.Duration, force, manual bool) bool {
	if slot < 0 || slot >= len(e.slots) || e.destroyed {
		return false
	}
	cur := e.slots[slot]
	if cur.Manual && !force && cur.Army != id {
		return false
	}
	if id == 0 {
		e.slots[slot] = Slot{}
		e.publish(Event{Kind: EventReinforcementsChanged, Side: slotSide(slot)})
		return true
	}
	a, ok := e.ctx.World.Army(id)
	if !ok {
		return false
	}
	side, legal := e.reinforcementSide(a)
	if !legal {
		if !force || a.Battle != 0 {
			return false
		}
		if side, legal = e.alignment(a).Side(); !legal {
			return false
		}
	}
	if side != slotSide(slot) {
		return false
	}
	if prev := e.slotOf(id); prev >= 0 {
		e.slots[prev] = Slot{}
	}
	e.slots[slot] = Slot{Army: id, Estimate: est, Manual: manual}
	if e.presentation.active && e.stage == StageOngoing {
		e.startCountdown(slot)
	}
	e.publish(Event{Kind: EventReinforcementsChanged, Side: side, Army: int64(id)})
	return true
}

func (e *Engagement) startCountdown(idx int) {
	s := &e.slots[idx]
	if s.Army == 0 {
		return
	}
	s.Counting = true
	s.EndsAt = e.now() + s.Estimate
}

func (e *Engagement) restartReinforcementTimers() {
	for i := range e.slots {
		e.startCountdown(i)
	}
}

func (e *Engagement) stopCountdowns() {
	for i := range e.slots {
		e.slots[i].Counting = false
		e.slots[i].EndsAt = 0
	}
}

// CheckReinforcementTimers 倒计时结束且本方没有支援军队时，增援加入战斗。
func (e *Engagement) CheckReinforcementTimers() {
	now := e.now()
	for idx := range e.slots {
		s := e.slots[idx]
		if s.Army == 0 || !s.Counting || now < s.EndsAt {
			continue
		}
		side := slotSide(idx)
		if len(e.sides[side]) >= maxPerSide {
			continue
		}
		e.slots[idx] = Slot{}
		if !e.Join(s.Army) {
			e.removeIntended(s.Army)
			e.backfill(idx)
		}
		if e.stage >= StageFinishing {
			return
		}
	}
}

func (e *Engagement) gcIntendedReinforcements() {
	if e.ctx.Rules.Multiplayer {
		return
	}
	for _, id := range e.IntendedReinforcements() {
		e.GarbageCollectIntendedReinforcement(id)
	}
	// 手动/强制指定的增援不在预计列表里，只在军队消失或已参战时清掉
	for idx, s := range e.slots {
		if s.Army == 0 {
			continue
		}
		if a, ok := e.ctx.World.Army(s.Army); !ok || a.Battle != 0 {
			e.slots[idx] = Slot{}
			e.backfill(idx)
			e.publish(Event{Kind: EventReinforcementsChanged, Side: slotSide(idx)})
		}
	}
}

// GarbageCollectIntendedReinforcement 移除已不合法的预计增援，空出的位置由最快的候选补上。
func (e *Engagement) GarbageCollectIntendedReinforcement(id entity.ArmyID) bool {
	a, ok := e.ctx.World.Army(id)
	if ok {
		if _, legal := e.reinforcementSide(a); legal {
			return false
		}
	}
	e.removeIntended(id)
	if idx := e.slotOf(id); idx >= 0 {
		e.slots[idx] = Slot{}
		e.backfill(idx)
		e.publish(Event{Kind: EventReinforcementsChanged, Side: slotSide(idx)})
	}
	return true
}

func (e *Engagement) backfill(idx int) {
	side := slotSide(idx)
	var (
		best    entity.ArmyID
		bestEst time.Duration
	)
	for _, id := range e.intended {
		if e.slotOf(id) >= 0 {
			continue
		}
		a, ok := e.ctx.World.Army(id)
		if !ok {
			continue
		}
		s, legal := e.reinforcementSide(a)
		if !legal || s != side {
			continue
		}
		est, ok := e.estimate(a)
		if !ok {
			continue
		}
		if best == 0 || est < bestEst {
			best, bestEst = id, est
		}
	}
	if best != 0 {
		e.SetReinforcements(best, idx, bestEst, false, false)
	}
}

func containsArmy(ids []entity.ArmyID, id entity.ArmyID) bool {
	for _, a := range ids {
		if a == id {
			return true
		}
	}
	return false
}
