package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"Warfront/internal/battle/engagement"
	transportgrpc "Warfront/internal/shared/transport/grpc"
	"Warfront/modules/kit/errx"
	"Warfront/modules/kit/logx"
	"Warfront/modules/kit/tracex"
)

// 负载是 JSON，外层用 BytesValue 走默认的 proto 编解码。
const (
	serviceName     = "warfront.battle.Command"
	methodForward   = "/" + serviceName + "/Forward"
	methodSnapshots = "/" + serviceName + "/Snapshots"
)

// Backend 是权威节点上处理转发指令的一方，由 actor.Runtime 实现。
type Backend interface {
	Command(ctx context.Context, cmd engagement.Command) error
	Snapshots(ctx context.Context, id engagement.BattleID) ([]engagement.Snapshot, error)
}

type commandServer struct {
	backend Backend
	log     logx.Logger
}

type snapshotsRequest struct {
	Battle engagement.BattleID `json:"battle"`
}

// Register 把指令服务挂到 grpc server 上。
func Register(s *grpc.Server, backend Backend, log logx.Logger) {
	if log == nil {
		log = logx.Nop()
	}
	s.RegisterService(&serviceDesc, &commandServer{backend: backend, log: log})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Forward", Handler: forwardHandler},
		{MethodName: "Snapshots", Handler: snapshotsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "warfront/battle/command",
}

func forwardHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(*commandServer).forward(ctx, req.(*wrapperspb.BytesValue))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodForward}, call)
}

func snapshotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(*commandServer).snapshots(ctx, req.(*wrapperspb.BytesValue))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSnapshots}, call)
}

func (s *commandServer) forward(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ctx = tracex.WithSpanID(ctx, "battle.forward")

	var cmd engagement.Command
	if err := json.Unmarshal(in.GetValue(), &cmd); err != nil {
		return nil, toStatus(errx.ErrReqParam.WithCause(err))
	}
	node, _ := transportgrpc.NodeFrom(ctx)
	s.log.WithContext(ctx).Debug("forwarded command",
		zap.String("from", node),
		zap.Int64("battle", int64(cmd.Battle)),
		zap.String("action", string(cmd.Action)))
	if err := s.backend.Command(ctx, cmd); err != nil {
		s.report(ctx, "battle forward", err)
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(nil), nil
}

func (s *commandServer) snapshots(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	ctx = tracex.WithSpanID(ctx, "battle.snapshots")

	var req snapshotsRequest
	if len(in.GetValue()) > 0 {
		if err := json.Unmarshal(in.GetValue(), &req); err != nil {
			return nil, toStatus(errx.ErrReqParam.WithCause(err))
		}
	}
	snaps, err := s.backend.Snapshots(ctx, req.Battle)
	if err != nil {
		s.report(ctx, "battle snapshots", err)
		return nil, toStatus(err)
	}
	out, err := json.Marshal(snaps)
	if err != nil {
		return nil, toStatus(errx.ErrInternal.WithCause(err))
	}
	return wrapperspb.Bytes(out), nil
}

func (s *commandServer) report(ctx context.Context, action string, err error) {
	var e *errx.Error
	if errors.As(err, &e) && e.IsBiz() {
		logx.ReportBizWithLoggerContext(ctx, s.log, logx.NewBizLog(action+" reject", e.CodeText(), e.Msg()))
		return
	}
	logx.ReportSysErrorWithLoggerContext(ctx, s.log, logx.NewSysLog(action+" tech error", err))
}

// toStatus 业务拒绝用 FailedPrecondition，其余为 Internal；消息为 "CODE|msg"。
func toStatus(err error) error {
	var e *errx.Error
	c := codes.Internal
	msg := err.Error()
	code := errx.CodeOf(err)
	if errors.As(err, &e) {
		msg = e.Msg()
		if e.IsBiz() {
			c = codes.FailedPrecondition
		}
	}
	return status.Error(c, string(code)+"|"+msg)
}

// fromStatus 还原 errx 错误，errors.Is 按错误码比较仍然成立。
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return errx.ErrUnavailable.WithCause(err)
	}
	switch st.Code() {
	case codes.FailedPrecondition, codes.Internal:
		code, msg, found := strings.Cut(st.Message(), "|")
		if !found {
			return errx.ErrInternal.WithCause(err)
		}
		if st.Code() == codes.FailedPrecondition {
			return errx.NewBiz(errx.Code(code), msg)
		}
		return errx.NewSys(errx.Code(code), msg)
	case codes.DeadlineExceeded:
		return errx.ErrTimeout.WithCause(err)
	default:
		return errx.ErrUnavailable.WithCause(err)
	}
}
