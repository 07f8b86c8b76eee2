package engagement

import (
	"time"

	"go.uber.org/zap"

	"Warfront/internal/world/entity"
	"Warfront/modules/kit/logx"
)

const maxPerSide = 2

type presentation struct {
	active  bool
	loaded  bool
	mapName string
}

// Engagement 是一场战斗的状态机。所有修改都发生在权威节点的单个 goroutine 内。
type Engagement struct {
	ctx *Context
	log logx.Logger

	id    BattleID
	typ   Type
	stage Stage
	// phase 在每次显式回退（Restart、改变战斗类型）时递增，(phase, stage) 单调不减
	phase          int
	stageStartedAt time.Duration
	stageStamped   bool
	prepDuration   time.Duration

	settlement entity.SettlementID
	position   entity.Point
	sides      [2][]entity.ArmyID
	kingdoms   [2]entity.KingdomID
	// departed 记录撤退离场的军队，结算时按撤退方参与俘虏判定
	departed [2][]entity.ArmyID

	winner Side
	reason VictoryReason

	siege      *SiegeAccounting
	canAssault bool
	// assaultChecked 第一次进入 Ongoing 时做一次强攻可行性检查
	assaultChecked bool
	gateOpened     bool

	plunder *PlunderTracker

	slots         [4]Slot
	intended      []entity.ArmyID
	refused       map[entity.ArmyID]bool
	refuseSupport [2]bool

	startTroops [2]int
	startSquads [2]int

	canAddExperience bool
	retreated        [2]bool
	idleLeaving      bool

	presentation presentation
	viewers      int
	presented    bool

	sim    Simulation
	squads []SquadState
	timers *Scheduler
	report *Report

	destroyed bool
	dirty     bool
	version   uint64
}

func newEngagement(ctx *Context, id BattleID, typ Type) *Engagement {
	if ctx.Bus == nil {
		ctx.Bus = NewBus()
	}
	if ctx.Log == nil {
		ctx.Log = logx.Nop()
	}
	return &Engagement{
		ctx:              ctx,
		log:              ctx.Log.With(zap.Int64("battle_id", int64(id))),
		id:               id,
		typ:              typ,
		winner:           SideNone,
		refused:          make(map[entity.ArmyID]bool),
		timers:           newScheduler(),
		canAddExperience: true,
		dirty:            true,
	}
}

// TargetKind 区分接战目标。
type TargetKind int8

const (
	TargetArmy TargetKind = iota
	TargetSettlement
	TargetBattle
)

type Target struct {
	Kind       TargetKind
	Army       entity.ArmyID
	Settlement entity.SettlementID
	Battle     *Engagement
}

func ArmyTarget(id entity.ArmyID) Target { return Target{Kind: TargetArmy, Army: id} }

func SettlementTarget(id entity.SettlementID) Target {
	return Target{Kind: TargetSettlement, Settlement: id}
}

func BattleTarget(e *Engagement) Target { return Target{Kind: TargetBattle, Battle: e} }

// Create 在接战时构建战斗。参与方无效、已销毁、非权威节点或双方并不敌对时返回 nil。
// 目标已在战斗中时改为加入那场战斗，返回加入后所在的战斗。
func Create(ctx *Context, aggressor entity.ArmyID, target Target) *Engagement {
	if !ctx.Authority {
		return nil
	}
	a, ok := ctx.World.Army(aggressor)
	if !ok || a.Battle != 0 {
		return nil
	}
	if a.Rebel && !ctx.Rules.RebelAIEnabled {
		return nil
	}
	switch target.Kind {
	case TargetBattle:
		return joinExisting(ctx, a, target.Battle)
	case TargetArmy:
		return createVsArmy(ctx, a, target.Army)
	case TargetSettlement:
		return createVsSettlement(ctx, a, target.Settlement)
	}
	return nil
}

func joinExisting(ctx *Context, a *entity.Army, b *Engagement) *Engagement {
	if b == nil || !b.Join(a.ID) {
		return nil
	}
	if a.Battle == b.id {
		return b
	}
	// 反击：原战斗已取消，加入者成为新战斗的攻方
	if ctx.Registry != nil {
		if ne, ok := ctx.Registry.Get(a.Battle); ok {
			return ne
		}
	}
	return nil
}

func lookupBattle(ctx *Context, id BattleID) *Engagement {
	if ctx.Registry == nil {
		return nil
	}
	b, _ := ctx.Registry.Get(id)
	return b
}

func createVsArmy(ctx *Context, a *entity.Army, target entity.ArmyID) *Engagement {
	d, ok := ctx.World.Army(target)
	if !ok || d.ID == a.ID {
		return nil
	}
	if d.Battle != 0 {
		return joinExisting(ctx, a, lookupBattle(ctx, d.Battle))
	}
	if ctx.Diplomacy == nil || !ctx.Diplomacy.IsHostile(a.Kingdom, d.Kingdom) {
		return nil
	}
	typ := TypeOpenField
	if a.AtSea && d.AtSea {
		typ = TypeNaval
	}
	e := newEngagement(ctx, ctx.nextID(), typ)
	e.position = d.Position
	e.kingdoms = [2]entity.KingdomID{a.Kingdom, d.Kingdom}
	e.attach(SideAttacker, a)
	e.attach(SideDefender, d)
	e.start()
	return e
}

func createVsSettlement(ctx *Context, a *entity.Army, target entity.SettlementID) *Engagement {
	s, ok := ctx.World.Settlement(target)
	if !ok {
		return nil
	}
	if s.Battle != 0 {
		return joinExisting(ctx, a, lookupBattle(ctx, s.Battle))
	}
	if ctx.Diplomacy == nil || !ctx.Diplomacy.IsHostile(a.Kingdom, s.Kingdom) {
		return nil
	}
	typ := TypeSiege
	if !s.Fortified {
		if s.CanBePillaged() {
			typ = TypePlunder
		} else {
			// 无物可抢时转而围攻本领地的主城堡
			keep, ok := realmKeep(ctx, s)
			if !ok {
				return nil
			}
			return createVsSettlement(ctx, a, keep.ID)
		}
	}
	e := newEngagement(ctx, ctx.nextID(), typ)
	e.settlement = s.ID
	e.position = s.Position
	e.kingdoms = [2]entity.KingdomID{a.Kingdom, s.Kingdom}
	s.SetBattle(e.id)
	e.attach(SideAttacker, a)
	if st, ok := ctx.World.Army(s.Army); ok && st.Battle == 0 {
		e.attach(SideDefender, st)
	}
	e.start()
	return e
}

func realmKeep(ctx *Context, s *entity.Settlement) (*entity.Settlement, bool) {
	realm, ok := ctx.World.Realm(s.Realm)
	if !ok || realm.Keep == 0 || realm.Keep == s.ID {
		return nil, false
	}
	keep, ok := ctx.World.Settlement(realm.Keep)
	if !ok || !keep.Fortified {
		return nil, false
	}
	return keep, true
}

// start 记录开战兵力，初始化子系统并进入 Preparing。
func (e *Engagement) start() {
	for side := SideAttacker; side <= SideDefender; side++ {
		e.startTroops[side] = e.sideTroops(side)
		e.startSquads[side] = e.sideSquads(side)
	}
	if e.typ.IsSiege() {
		e.startSiege()
	}
	e.RefreshPlunderProgress()
	if e.ctx.NewSimulation != nil {
		e.sim = e.ctx.NewSimulation(e)
	}
	if e.ctx.Registry != nil {
		e.ctx.Registry.Add(e)
	}
	e.log.Info("battle created",
		zap.String("type", e.typ.String()),
		zap.Int("attacker_troops", e.startTroops[SideAttacker]),
		zap.Int("defender_troops", e.startTroops[SideDefender]))
	e.publish(Event{Kind: EventCreated})
	e.setStage(StagePreparing, 0)
	if e.prepDuration <= 0 {
		e.setStage(StageOngoing, 0)
	}
}

func (e *Engagement) now() time.Duration { return e.ctx.now() }

func (e *Engagement) ID() BattleID            { return e.id }
func (e *Engagement) Type() Type              { return e.typ }
func (e *Engagement) Stage() Stage            { return e.stage }
func (e *Engagement) Phase() int              { return e.phase }
func (e *Engagement) Winner() Side            { return e.winner }
func (e *Engagement) Reason() VictoryReason   { return e.reason }
func (e *Engagement) Position() entity.Point  { return e.position }
func (e *Engagement) Destroyed() bool         { return e.destroyed }
func (e *Engagement) Viewers() int            { return e.viewers }
func (e *Engagement) Siege() *SiegeAccounting { return e.siege }
func (e *Engagement) Plunder() *PlunderTracker {
	return e.plunder
}
func (e *Engagement) Report() *Report { return e.report }

// PreparationDuration 当前阶段开始时计算出的备战时长。
func (e *Engagement) PreparationDuration() time.Duration { return e.prepDuration }

// StageElapsed 当前阶段已经持续的模拟时间。
func (e *Engagement) StageElapsed() time.Duration { return e.now() - e.stageStartedAt }

func (e *Engagement) Settlement() (*entity.Settlement, bool) {
	if e.settlement == 0 {
		return nil, false
	}
	return e.ctx.World.Settlement(e.settlement)
}

// SideArmies 返回阵营里的军队句柄，0 为主力，1 为支援。
func (e *Engagement) SideArmies(side Side) []entity.ArmyID {
	if !side.Valid() {
		return nil
	}
	return append([]entity.ArmyID(nil), e.sides[side]...)
}

// Armies 返回阵营里仍然存在的军队。
func (e *Engagement) Armies(side Side) []*entity.Army {
	if !side.Valid() {
		return nil
	}
	out := make([]*entity.Army, 0, len(e.sides[side]))
	for _, id := range e.sides[side] {
		if a, ok := e.ctx.World.Army(id); ok {
			out = append(out, a)
		}
	}
	return out
}

// Garrison 只有防守方有城池守军。
func (e *Engagement) Garrison() []*entity.Unit {
	st, ok := e.Settlement()
	if !ok {
		return nil
	}
	return st.Garrison
}

// sideKingdom 优先取主力军队的王国，退化为开战时缓存的王国。
func (e *Engagement) sideKingdom(side Side) entity.KingdomID {
	if !side.Valid() {
		return 0
	}
	for _, id := range e.sides[side] {
		if a, ok := e.ctx.World.Army(id); ok {
			return a.Kingdom
		}
	}
	if side == SideDefender {
		if st, ok := e.Settlement(); ok {
			return st.Kingdom
		}
	}
	return e.kingdoms[side]
}

// Kingdom 返回阵营当前代表的王国。
func (e *Engagement) Kingdom(side Side) entity.KingdomID { return e.sideKingdom(side) }

func (e *Engagement) sideTroops(side Side) int {
	n := 0
	for _, a := range e.Armies(side) {
		n += a.Troops()
	}
	if side == SideDefender {
		if st, ok := e.Settlement(); ok {
			n += st.GarrisonTroops()
		}
	}
	return n
}

func (e *Engagement) sideSquads(side Side) int {
	n := 0
	for _, a := range e.Armies(side) {
		n += a.Squads()
	}
	if side == SideDefender {
		if st, ok := e.Settlement(); ok {
			n += st.GarrisonAlive()
		}
	}
	return n
}

func (e *Engagement) sideOf(id entity.ArmyID) (Side, int) {
	for side := SideAttacker; side <= SideDefender; side++ {
		for i, a := range e.sides[side] {
			if a == id {
				return side, i
			}
		}
	}
	return SideNone, -1
}

// attach 把军队挂到阵营末尾并建立双向关联。
func (e *Engagement) attach(side Side, a *entity.Army) {
	supporter := len(e.sides[side]) > 0
	e.sides[side] = append(e.sides[side], a.ID)
	a.SetBattle(e.id, int8(side), supporter)
	e.removeIntended(a.ID)
	if idx := e.slotOf(a.ID); idx >= 0 {
		e.slots[idx] = Slot{}
	}
	if e.sim != nil {
		e.sim.OnArmyJoined(side, a)
	}
	if side == SideAttacker {
		e.refreshSiegeRates()
	}
	e.ctx.World.MarkDirty()
}

// detach 断开关联；主力离开时支援军队顶上成为主力。
func (e *Engagement) detach(id entity.ArmyID) (Side, bool) {
	side, idx := e.sideOf(id)
	if side == SideNone {
		return SideNone, false
	}
	e.sides[side] = append(e.sides[side][:idx:idx], e.sides[side][idx+1:]...)
	if len(e.sides[side]) > 0 {
		if p, ok := e.ctx.World.Army(e.sides[side][0]); ok {
			p.Supporter = false
		}
	}
	if a, ok := e.ctx.World.Army(id); ok {
		a.ClearBattle()
		if e.sim != nil {
			e.sim.OnArmyLeft(side, a)
		}
	}
	if side == SideAttacker {
		e.refreshSiegeRates()
	}
	e.ctx.World.MarkDirty()
	return side, true
}

func (e *Engagement) publish(ev Event) {
	e.dirty = true
	ev.Battle = e.id
	ev.Type = e.typ
	ev.Stage = e.stage
	ev.Phase = e.phase
	ev.Winner = e.winner
	if ev.Reason == ReasonNone {
		ev.Reason = e.reason
	}
	e.ctx.Bus.Publish(ev)
}

// AttachViewer 登记一个观战者（表现层或观战连接）。
func (e *Engagement) AttachViewer() {
	e.viewers++
	e.publish(Event{Kind: EventViewersChanged, Detail: "attach"})
}

// DetachViewer 最后一个观战者离开且战斗已结束时销毁战斗。
func (e *Engagement) DetachViewer() {
	if e.viewers == 0 {
		return
	}
	e.viewers--
	if e.viewers == 0 {
		e.presentation = presentation{}
		e.stopCountdowns()
	}
	e.publish(Event{Kind: EventViewersChanged, Detail: "detach"})
	if e.viewers == 0 && e.stage == StageFinished {
		e.Destroy()
	}
}

// Destroy 从全局表移除，幂等。
func (e *Engagement) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.timers.Clear()
	e.publish(Event{Kind: EventDestroyed})
	if e.ctx.Registry != nil {
		e.ctx.Registry.Remove(e.id)
	}
	e.log.Info("battle destroyed", zap.String("stage", e.stage.String()))
}
