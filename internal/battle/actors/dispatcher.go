package actors

import (
	"reflect"

	"github.com/asynkron/protoactor-go/actor"

	"Warfront/internal/shared/actor/messages"
	"Warfront/modules/kit/errx"
)

type Dispatcher struct {
	handlers map[reflect.Type]Handler
}

type Handler struct {
	fn      reflect.Value
	reqType reflect.Type
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[reflect.Type]Handler),
	}
	d.registerAll()
	return d
}

func (d *Dispatcher) registerAll() {
	register(d, BH.HandleContact)
	register(d, BH.HandleCommand)
	register(d, BH.HandleJoin)
	register(d, BH.HandleReinforce)
	register(d, BH.HandleIntended)
	register(d, BH.HandleWatch)
	register(d, BH.HandleUnwatch)
	register(d, BH.HandleBattle)
	register(d, BH.HandleBattles)
	register(d, BH.HandleSnapshots)
	register(d, BH.HandleSync)
}

func register[Req any](
	d *Dispatcher,
	fn func(ctx actor.Context, p *BattleActor, req Req),
) {
	reqType := reflect.TypeOf((*Req)(nil)).Elem()
	if reqType == nil {
		panic("dispatcher req type cannot be nil")
	}

	d.handlers[reqType] = Handler{
		fn:      reflect.ValueOf(fn),
		reqType: reqType,
	}
}

func (d *Dispatcher) Dispatch(ctx actor.Context, p *BattleActor, req messages.BattleMessage) {
	if req == nil {
		ctx.Respond(&messages.BHResult{Err: errx.ErrReqParam})
		return
	}

	bodyType := reflect.TypeOf(req)
	handler, ok := d.handlers[bodyType]
	if !ok {
		ctx.Respond(&messages.BHResult{Err: errx.ErrReqParam.WithData("type", bodyType.String())})
		return
	}

	handler.fn.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(p),
		reflect.ValueOf(req),
	})
}
