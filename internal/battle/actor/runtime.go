package actor

import (
	"context"
	"errors"
	"time"

	protoactor "github.com/asynkron/protoactor-go/actor"

	"Warfront/internal/battle/actors"
	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/actor/messages"
	"Warfront/internal/shared/transport"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/tracex"
)

const defaultAskTimeout = 3 * time.Second

type RuntimeError struct {
	Code    int
	Message string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *RuntimeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Runtime 是传输层访问 BattleActor 的入口，所有方法都可并发调用。
type Runtime struct {
	system  *protoactor.ActorSystem
	root    *protoactor.RootContext
	manager *protoactor.PID
	worldID entity.WorldID
	timeout time.Duration
}

func NewRuntime(worldID entity.WorldID, deps actors.Deps, askTimeout time.Duration) *Runtime {
	if askTimeout <= 0 {
		askTimeout = defaultAskTimeout
	}

	system := protoactor.NewActorSystem()
	root := system.Root
	managerProps := protoactor.PropsFromProducer(func() protoactor.Actor {
		return actors.NewManagerActor(deps)
	})
	manager := root.Spawn(managerProps)

	return &Runtime{
		system:  system,
		root:    root,
		manager: manager,
		worldID: worldID,
		timeout: askTimeout,
	}
}

// Shutdown 等待 BattleActor 落完最后一次库再关闭 actor 系统。
func (r *Runtime) Shutdown() {
	if r == nil {
		return
	}
	if r.root != nil && r.manager != nil {
		_ = r.root.StopFuture(r.manager).Wait()
	}
	if r.system != nil {
		r.system.Shutdown()
	}
}

func (r *Runtime) base(ctx context.Context) messages.BattleBaseMessage {
	b := messages.BattleBaseMessage{WorldId: int(r.worldID)}
	if ctx != nil {
		if id, ok := tracex.TraceIDFrom(ctx); ok {
			b.TraceId = id
		}
	}
	return b
}

func (r *Runtime) request(pid *protoactor.PID, msg any, timeout time.Duration) (any, error) {
	if r == nil || r.root == nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor runtime 未初始化"}
	}
	if pid == nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor pid 为空"}
	}

	future := r.root.RequestFuture(pid, msg, timeout)
	res, err := future.Result()
	if err != nil {
		code := transport.SystemError
		if errors.Is(err, protoactor.ErrTimeout) {
			code = transport.UpstreamTimeout
		}
		return nil, &RuntimeError{
			Code:    code,
			Message: "actor 请求失败",
			Cause:   err,
		}
	}
	return res, nil
}

func (r *Runtime) timeoutFromContext(ctx context.Context) time.Duration {
	if r == nil || r.timeout <= 0 {
		return defaultAskTimeout
	}
	if ctx == nil {
		return r.timeout
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.timeout
	}
	remain := time.Until(deadline)
	if remain <= 0 {
		return time.Millisecond
	}
	if remain < r.timeout {
		return remain
	}
	return r.timeout
}

// ask 发请求并断言返回类型；actor 未上线时统一返回 BHResult。
func ask[T any](ctx context.Context, r *Runtime, msg messages.BattleMessage) (T, error) {
	var zero T
	res, err := r.request(r.manager, msg, r.timeoutFromContext(ctx))
	if err != nil {
		return zero, err
	}
	if out, ok := res.(T); ok {
		return out, nil
	}
	if fail, ok := res.(*messages.BHResult); ok && fail.Err != nil {
		return zero, fail.Err
	}
	return zero, &RuntimeError{Code: transport.SystemError, Message: "actor 返回类型非法"}
}

func result(ctx context.Context, r *Runtime, msg messages.BattleMessage) error {
	res, err := ask[*messages.BHResult](ctx, r, msg)
	if err != nil {
		return err
	}
	return res.Err
}

func (r *Runtime) Contact(ctx context.Context, army entity.ArmyID, kind engagement.TargetKind, target int64) (service.BattleView, error) {
	res, err := ask[*messages.BHBattle](ctx, r, &messages.HBContact{
		BattleBaseMessage: r.base(ctx),
		Army:              army,
		Kind:              kind,
		Target:            target,
	})
	if err != nil {
		return service.BattleView{}, err
	}
	return res.View, res.Err
}

func (r *Runtime) Command(ctx context.Context, cmd engagement.Command) error {
	return result(ctx, r, &messages.HBCommand{BattleBaseMessage: r.base(ctx), Command: cmd})
}

func (r *Runtime) Join(ctx context.Context, id engagement.BattleID, army entity.ArmyID) error {
	return result(ctx, r, &messages.HBJoin{BattleBaseMessage: r.base(ctx), Battle: id, Army: army})
}

func (r *Runtime) Reinforce(ctx context.Context, id engagement.BattleID, army entity.ArmyID, slot int, est time.Duration, force bool) error {
	return result(ctx, r, &messages.HBReinforce{
		BattleBaseMessage: r.base(ctx),
		Battle:            id,
		Army:              army,
		Slot:              slot,
		Estimate:          est,
		Force:             force,
	})
}

func (r *Runtime) Intended(ctx context.Context, id engagement.BattleID, army entity.ArmyID) error {
	return result(ctx, r, &messages.HBIntended{BattleBaseMessage: r.base(ctx), Battle: id, Army: army})
}

// Watch 挂上观战者并订阅事件；onEvent 在 actor goroutine 内调用，不能阻塞。
func (r *Runtime) Watch(ctx context.Context, id engagement.BattleID, onEvent func(engagement.Event)) (service.BattleView, func(), error) {
	res, err := ask[*messages.BHWatch](ctx, r, &messages.HBWatch{BattleBaseMessage: r.base(ctx), Battle: id, OnEvent: onEvent})
	if err != nil {
		return service.BattleView{}, nil, err
	}
	if res.Err != nil {
		return service.BattleView{}, nil, res.Err
	}
	return res.View, res.Cancel, nil
}

func (r *Runtime) Unwatch(ctx context.Context, id engagement.BattleID) error {
	return result(ctx, r, &messages.HBUnwatch{BattleBaseMessage: r.base(ctx), Battle: id})
}

func (r *Runtime) Battle(ctx context.Context, id engagement.BattleID) (service.BattleView, error) {
	res, err := ask[*messages.BHBattle](ctx, r, &messages.HBBattle{BattleBaseMessage: r.base(ctx), Battle: id})
	if err != nil {
		return service.BattleView{}, err
	}
	return res.View, res.Err
}

func (r *Runtime) Battles(ctx context.Context) ([]service.BattleView, error) {
	res, err := ask[*messages.BHBattles](ctx, r, &messages.HBBattles{BattleBaseMessage: r.base(ctx)})
	if err != nil {
		return nil, err
	}
	return res.Views, nil
}

// Snapshots id 为 0 时返回全部战斗。
func (r *Runtime) Snapshots(ctx context.Context, id engagement.BattleID) ([]engagement.Snapshot, error) {
	res, err := ask[*messages.BHSnapshots](ctx, r, &messages.HBSnapshots{BattleBaseMessage: r.base(ctx), Battle: id})
	if err != nil {
		return nil, err
	}
	return res.Snapshots, res.Err
}

func (r *Runtime) Sync(ctx context.Context, snaps []engagement.Snapshot) error {
	return result(ctx, r, &messages.HBSync{BattleBaseMessage: r.base(ctx), Snapshots: snaps})
}

// CodeFromError 把 runtime 与领域错误统一映射为业务码。
func CodeFromError(err error) int {
	if err == nil {
		return transport.OK
	}
	var re *RuntimeError
	if errors.As(err, &re) && re != nil && re.Code != 0 {
		return re.Code
	}
	return transport.CodeOf(err)
}
