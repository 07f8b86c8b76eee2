package logx

import (
	"context"
	"errors"
	"testing"

	"Warfront/modules/kit/errx"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildErrorMeta_提取语义与栈(t *testing.T) {
	e := errx.NewSys(errx.CodeOutcomeFailed, "结算失败").
		WithData("battle_id", int64(7)).
		WithCause(errors.New("nil army"))

	meta := BuildErrorMeta(e)
	if meta.Code != string(errx.CodeOutcomeFailed) {
		t.Fatalf("code got=%q", meta.Code)
	}
	if meta.Data["battle_id"] != int64(7) {
		t.Fatalf("data 丢失: %v", meta.Data)
	}
	if len(meta.CauseChain) == 0 || meta.Origin == "" || meta.Stack == "" {
		t.Fatalf("cause/栈 缺失: %+v", meta)
	}
}

func TestReportBiz_使用WARN(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	ReportBizWithLoggerContext(context.Background(), l, NewBizLog("battle.do_action", "INVALID_SIDE", "side=2"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条日志, got=%d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("业务拒绝应为 WARN, got=%v", entries[0].Level)
	}
	if entries[0].ContextMap()["reason"] != "INVALID_SIDE" {
		t.Fatalf("reason 字段缺失: %v", entries[0].ContextMap())
	}
}

func TestReportSysError_nil错误不输出(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ReportSysErrorWithLoggerContext(context.Background(), NewZapLogger(zap.New(core)), NewSysLog("x", nil))
	if logs.Len() != 0 {
		t.Fatalf("nil 错误不应输出日志")
	}
}
