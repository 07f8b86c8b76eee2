package logx

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BizLog 是“命令被拒绝”日志的输入，例如非法阵营、攻城条件不满足。
type BizLog struct {
	Action  string
	Reason  string
	Message string
}

// SysLog 是技术错误日志的输入，例如结算 panic、写库失败。
type SysLog struct {
	Action string
	Err    error
}

func NewBizLog(action, reason, message string) BizLog {
	return BizLog{Action: action, Reason: reason, Message: message}
}

func NewSysLog(action string, err error) SysLog {
	return SysLog{Action: action, Err: err}
}

// ReportAccessWithLoggerContext 记录访问日志：0 为 INFO，1~499 为 WARN，>=500 为 ERROR。
func ReportAccessWithLoggerContext(ctx context.Context, l Logger, action string, bizCode int, fields ...zap.Field) {
	if l == nil {
		return
	}
	base := append([]zap.Field{
		zap.String("log_type", "access"),
		zap.String("action", action),
		zap.Int("biz_code", bizCode),
	}, fields...)
	withCtx := l.WithContext(ctx)
	switch {
	case bizCode == 0:
		withCtx.Info("access", base...)
	case bizCode >= 500:
		withCtx.Error("access", base...)
	default:
		withCtx.Warn("access", base...)
	}
}

// ReportBizWithLoggerContext 业务拒绝：ERROR 级别会刷屏，这里统一用 WARN，不带栈。
func ReportBizWithLoggerContext(ctx context.Context, l Logger, biz BizLog, fields ...zap.Field) {
	if l == nil {
		return
	}
	action := biz.Action
	if action == "" {
		action = "biz_reject"
	}
	base := []zap.Field{zap.String("err_type", "biz"), zap.String("action", action)}
	msg := action
	if biz.Reason != "" {
		base = append(base, zap.String("reason", biz.Reason))
		msg = fmt.Sprintf("%s, reason:%s", msg, biz.Reason)
	}
	if biz.Message != "" {
		base = append(base, zap.String("biz_message", biz.Message))
		msg = fmt.Sprintf("%s, msg:%s", msg, biz.Message)
	}
	l.WithContext(ctx).Warn(msg, append(base, fields...)...)
}

// ReportSysErrorWithLoggerContext 技术错误：ERROR，附带错误码、cause 链和发生处栈。
func ReportSysErrorWithLoggerContext(ctx context.Context, l Logger, sys SysLog, fields ...zap.Field) {
	if sys.Err == nil || l == nil {
		return
	}
	action := sys.Action
	if action == "" {
		action = "sys_error"
	}
	meta := BuildErrorMeta(sys.Err)
	base := []zap.Field{zap.String("err_type", "sys"), zap.String("action", action)}
	if meta.Code != "" {
		base = append(base, zap.String("error_code", meta.Code))
	}
	if len(meta.CauseChain) != 0 {
		base = append(base, zap.Strings("cause_chain", meta.CauseChain))
	}
	if len(meta.Data) != 0 {
		base = append(base, zap.Any("error_data", meta.Data))
	}
	if meta.Origin != "" {
		base = append(base, zap.String("origin_caller", meta.Origin), zap.String("stack_origin", meta.Stack))
	}
	l.WithContext(ctx).Error(fmt.Sprintf("%s, error:%s", action, meta.Error), append(base, fields...)...)
}
