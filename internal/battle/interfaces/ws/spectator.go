package ws

import (
	"context"
	"errors"
	"slices"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/session"
	"Warfront/internal/shared/transport"
	sharedws "Warfront/internal/shared/transport/ws"
	"Warfront/modules/kit/errx"
	"Warfront/modules/kit/logx"
)

// EventMsg 是推送给观战者的消息名。
const EventMsg = "battle.event"

// Watcher 由 actor.Runtime 实现。
type Watcher interface {
	Watch(ctx context.Context, id engagement.BattleID, onEvent func(engagement.Event)) (service.BattleView, func(), error)
}

type watchReq struct {
	Battle int64 `json:"battle"`
}

func (r *watchReq) Validate() error {
	if r.Battle <= 0 {
		return errors.New("battle id must be positive")
	}
	return nil
}

// EventView 是推送给客户端的事件。
type EventView struct {
	Kind   string `json:"kind"`
	Battle int64  `json:"battle"`
	Type   string `json:"type"`
	Stage  string `json:"stage"`
	Phase  int    `json:"phase"`
	Side   string `json:"side,omitempty"`
	Army   int64  `json:"army,omitempty"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`

	CanAssault bool `json:"can_assault,omitempty"`
}

func NewEventView(ev engagement.Event) EventView {
	v := EventView{
		Kind:       ev.Kind.String(),
		Battle:     int64(ev.Battle),
		Type:       ev.Type.String(),
		Stage:      ev.Stage.String(),
		Phase:      ev.Phase,
		Army:       ev.Army,
		Detail:     ev.Detail,
		CanAssault: ev.CanAssault,
	}
	switch ev.Kind {
	case engagement.EventVictory:
		v.Winner = ev.Winner.String()
		v.Reason = ev.Reason.String()
	case engagement.EventArmyJoined, engagement.EventArmyLeft:
		v.Side = ev.Side.String()
	}
	return v
}

type Spectator struct {
	watcher  Watcher
	sessions session.Manager
	log      logx.Logger
}

func NewSpectator(w Watcher, sessions session.Manager, log logx.Logger) *Spectator {
	if log == nil {
		log = logx.Nop()
	}
	return &Spectator{watcher: w, sessions: sessions, log: log}
}

func (s *Spectator) RegisterRoutes(r *sharedws.Router) {
	g := r.Group("battle")
	g.Handle("watch", s.watch)
	g.Handle("unwatch", s.unwatch)
}

func (s *Spectator) watch(ctx context.Context, req *sharedws.WsMsgReq, resp *sharedws.WsMsgResp) {
	var in watchReq
	if err := sharedws.Bind(req, &in); err != nil {
		s.fail(resp, transport.InvalidParam, "参数有误")
		return
	}
	id := engagement.BattleID(in.Battle)
	conn := req.Conn
	if slices.Contains(s.sessions.Watching(conn), id) {
		s.error(ctx, resp, "battle watch", errx.ErrPrecondition.WithData("battle", in.Battle))
		return
	}
	view, cancel, err := s.watcher.Watch(ctx, id, func(ev engagement.Event) {
		conn.Push(EventMsg, NewEventView(ev))
	})
	if err != nil {
		s.error(ctx, resp, "battle watch", err)
		return
	}
	// 同一连接上的请求是顺序处理的，这里不会和上面的检查竞争
	s.sessions.Bind(conn, id, cancel)
	resp.Body.Code = transport.OK
	resp.Body.Msg = view
}

func (s *Spectator) unwatch(ctx context.Context, req *sharedws.WsMsgReq, resp *sharedws.WsMsgResp) {
	var in watchReq
	if err := sharedws.Bind(req, &in); err != nil {
		s.fail(resp, transport.InvalidParam, "参数有误")
		return
	}
	if !s.sessions.Unbind(req.Conn, engagement.BattleID(in.Battle)) {
		s.error(ctx, resp, "battle unwatch", errx.ErrPrecondition.WithData("battle", in.Battle))
		return
	}
	resp.Body.Code = transport.OK
	resp.Body.Msg = watchReq{Battle: in.Battle}
}

func (s *Spectator) fail(resp *sharedws.WsMsgResp, code int, msg string) {
	resp.Body.Code = code
	resp.Body.Msg = msg
}

func (s *Spectator) error(ctx context.Context, resp *sharedws.WsMsgResp, action string, err error) {
	var e *errx.Error
	code := transport.CodeOf(err)
	if errors.As(err, &e) && e.IsBiz() {
		transport.SetErrorReason(ctx, e.CodeText())
		logx.ReportBizWithLoggerContext(ctx, s.log, logx.NewBizLog(action+" reject", e.CodeText(), e.Msg()))
		s.fail(resp, code, e.Msg())
		return
	}
	logx.ReportSysErrorWithLoggerContext(ctx, s.log, logx.NewSysLog(action+" tech error", err))
	s.fail(resp, code, "系统繁忙，请稍后重试")
}
