package actors

import (
	"context"

	"github.com/asynkron/protoactor-go/actor"

	"Warfront/internal/battle/service"
	"Warfront/internal/shared/actor/messages"
	"Warfront/modules/kit/tracex"
)

type BattleHandler struct{}

var BH = &BattleHandler{}

// reqContext 把消息里的 trace_id 带回 context，日志与转发都会用到。
func reqContext(req messages.BattleMessage) context.Context {
	ctx := context.Background()
	if id := req.TraceID(); id != "" {
		ctx = tracex.WithTraceID(ctx, id)
	}
	return ctx
}

func (h *BattleHandler) HandleContact(ctx actor.Context, p *BattleActor, req *messages.HBContact) {
	e, err := p.svc.Contact(reqContext(req), req.Army, req.Kind, req.Target)
	if err != nil {
		ctx.Respond(&messages.BHBattle{Err: err})
		return
	}
	ctx.Respond(&messages.BHBattle{View: service.NewBattleView(e)})
}

func (h *BattleHandler) HandleCommand(ctx actor.Context, p *BattleActor, req *messages.HBCommand) {
	c := req.Command
	ctx.Respond(&messages.BHResult{Err: p.svc.Command(reqContext(req), c.Battle, c.Action, c.Side, c.Param)})
}

func (h *BattleHandler) HandleJoin(ctx actor.Context, p *BattleActor, req *messages.HBJoin) {
	ctx.Respond(&messages.BHResult{Err: p.svc.Join(reqContext(req), req.Battle, req.Army)})
}

func (h *BattleHandler) HandleReinforce(ctx actor.Context, p *BattleActor, req *messages.HBReinforce) {
	err := p.svc.SetReinforcement(reqContext(req), req.Battle, req.Army, req.Slot, req.Estimate, req.Force)
	ctx.Respond(&messages.BHResult{Err: err})
}

func (h *BattleHandler) HandleIntended(ctx actor.Context, p *BattleActor, req *messages.HBIntended) {
	ctx.Respond(&messages.BHResult{Err: p.svc.AddIntended(reqContext(req), req.Battle, req.Army)})
}

func (h *BattleHandler) HandleWatch(ctx actor.Context, p *BattleActor, req *messages.HBWatch) {
	if err := p.svc.Watch(req.Battle); err != nil {
		ctx.Respond(&messages.BHWatch{Err: err})
		return
	}
	resp := &messages.BHWatch{Cancel: func() {}}
	if req.OnEvent != nil {
		resp.Cancel = p.svc.Subscribe(req.Battle, req.OnEvent)
	}
	if e, ok := p.svc.Get(req.Battle); ok {
		resp.View = service.NewBattleView(e)
	}
	ctx.Respond(resp)
}

func (h *BattleHandler) HandleUnwatch(ctx actor.Context, p *BattleActor, req *messages.HBUnwatch) {
	ctx.Respond(&messages.BHResult{Err: p.svc.Unwatch(req.Battle)})
}

func (h *BattleHandler) HandleBattle(ctx actor.Context, p *BattleActor, req *messages.HBBattle) {
	e, err := p.svc.Battle(req.Battle)
	if err != nil {
		ctx.Respond(&messages.BHBattle{Err: err})
		return
	}
	ctx.Respond(&messages.BHBattle{View: service.NewBattleView(e)})
}

func (h *BattleHandler) HandleBattles(ctx actor.Context, p *BattleActor, req *messages.HBBattles) {
	battles := p.svc.Battles()
	views := make([]service.BattleView, 0, len(battles))
	for _, e := range battles {
		views = append(views, service.NewBattleView(e))
	}
	ctx.Respond(&messages.BHBattles{Views: views})
}

func (h *BattleHandler) HandleSnapshots(ctx actor.Context, p *BattleActor, req *messages.HBSnapshots) {
	if req.Battle == 0 {
		ctx.Respond(&messages.BHSnapshots{Snapshots: p.svc.AllSnapshots()})
		return
	}
	snaps, err := p.svc.Snapshots(req.Battle)
	ctx.Respond(&messages.BHSnapshots{Snapshots: snaps, Err: err})
}

func (h *BattleHandler) HandleSync(ctx actor.Context, p *BattleActor, req *messages.HBSync) {
	ctx.Respond(&messages.BHResult{Err: p.svc.SyncAll(req.Snapshots)})
}
