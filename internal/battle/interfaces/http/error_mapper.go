package http

import (
	"context"
	"errors"

	"Warfront/internal/battle/actor"
	"Warfront/internal/shared/transport"
	"Warfront/modules/kit/errx"
	"Warfront/modules/kit/logx"
)

const busyMsg = "系统繁忙，请稍后重试"

// HandleError 返回业务码与给客户端看的消息，同时按错误类别记日志。
func HandleError(ctx context.Context, log logx.Logger, action string, err error) (int, string) {
	code := actor.CodeFromError(err)
	var e *errx.Error
	if errors.As(err, &e) {
		transport.SetErrorReason(ctx, e.CodeText())
		if e.IsBiz() {
			logx.ReportBizWithLoggerContext(ctx, log, logx.NewBizLog(action+" reject", e.CodeText(), e.Msg()))
			return code, e.Msg()
		}
	}
	logx.ReportSysErrorWithLoggerContext(ctx, log, logx.NewSysLog(action+" tech error", err))
	return code, busyMsg
}
