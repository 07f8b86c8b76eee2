package actors

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"Warfront/internal/battle/dc"
	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/actor/messages"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/errx"
	"Warfront/modules/kit/logx"
)

type State int

const (
	None State = iota
	Init
	Online
	Offline
	Stopping
)

// Deps 是 BattleActor 启动时需要的依赖，由 Runtime 注入。
type Deps struct {
	Repos dc.Repos
	// Diplomacy 在世界加载完成后构建外交状态
	Diplomacy  func(w *entity.World) engagement.Diplomacy
	Options    service.Options
	TickEvery  time.Duration
	FlushEvery time.Duration
	Log        logx.Logger
}

// BattleActor 是一个世界里全部战斗的唯一写者：所有修改都在 Receive 内完成。
type BattleActor struct {
	state      State
	worldID    WorldID
	deps       Deps
	dc         *dc.BattleDC
	svc        *service.BattleService
	dispatcher *Dispatcher
	log        logx.Logger
	tickStop   chan struct{}
	flushStop  chan struct{}
}

type tick struct{}

func (tick) NotInfluenceReceiveTimeout() {}

type flushTick struct{}

func (flushTick) NotInfluenceReceiveTimeout() {}

func NewBattleActor(worldID WorldID, deps Deps) *BattleActor {
	log := deps.Log
	if log == nil {
		log = logx.Nop()
	}
	if deps.TickEvery <= 0 {
		deps.TickEvery = time.Second
	}
	log = log.With(zap.Int("world_id", int(worldID)))
	return &BattleActor{
		state:      None,
		worldID:    worldID,
		deps:       deps,
		dc:         dc.NewBattleDC(deps.Repos, deps.FlushEvery, log),
		dispatcher: NewDispatcher(),
		log:        log,
	}
}

func (p *BattleActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		p.state = Init
		p.init(ctx)
		return
	case *actor.Stopping:
		p.stopLoops()
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := p.dc.Close(closeCtx); err != nil {
			p.log.Error("battle dc close failed", zap.Error(err))
		}
		p.state = Stopping
		return
	case *actor.Stopped:
		p.stopLoops()
		p.state = Offline
		return
	case *actor.Restarting:
		p.stopLoops()
		p.state = Init
		return
	case tick:
		if p.state != Online {
			return
		}
		p.svc.Tick(p.deps.TickEvery)
		return
	case flushTick:
		if p.state != Online {
			return
		}
		if err := p.dc.Flush(context.TODO()); err != nil {
			p.log.Error("battle periodic flush failed", zap.Error(err))
		}
		return
	case messages.BattleMessage:
		if p.state != Online {
			ctx.Respond(&messages.BHResult{Err: errx.ErrUnavailable.WithData("world_id", int(p.worldID))})
			return
		}
		p.dispatcher.Dispatch(ctx, p, msg)
	default:
		return
	}
}

func (p *BattleActor) init(ctx actor.Context) {
	world, err := p.dc.Load(context.TODO(), p.worldID)
	if err != nil {
		p.log.Error("battle world load failed", zap.Error(err))
		p.state = Stopping
		ctx.Stop(ctx.Self())
		return
	}
	var dip engagement.Diplomacy
	if p.deps.Diplomacy != nil {
		dip = p.deps.Diplomacy(world)
	}
	svc, err := service.New(world, dip, p.deps.Options, p.log)
	if err != nil {
		p.log.Error("battle service init failed", zap.Error(err))
		p.state = Stopping
		ctx.Stop(ctx.Self())
		return
	}
	p.svc = svc
	p.dc.Attach(svc)
	p.state = Online
	p.log.Info("battle actor online", zap.Bool("authority", svc.Authority()))

	self := ctx.Self()
	root := ctx.ActorSystem().Root
	p.tickStop = startLoop(p.deps.TickEvery, func() { root.Send(self, tick{}) })
	if svc.Authority() {
		p.flushStop = startLoop(p.dc.FlushEvery(), func() { root.Send(self, flushTick{}) })
	}
}

func (p *BattleActor) WorldID() WorldID {
	return p.worldID
}

func (p *BattleActor) Service() *service.BattleService {
	return p.svc
}

func (p *BattleActor) DC() *dc.BattleDC {
	return p.dc
}

// startLoop 按固定间隔调用 fire，返回用于停止的 channel。
func startLoop(every time.Duration, fire func()) chan struct{} {
	if every <= 0 {
		return nil
	}
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fire()
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func (p *BattleActor) stopLoops() {
	if p.tickStop != nil {
		close(p.tickStop)
		p.tickStop = nil
	}
	if p.flushStop != nil {
		close(p.flushStop)
		p.flushStop = nil
	}
}
