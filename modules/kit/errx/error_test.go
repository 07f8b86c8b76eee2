package errx

import (
	"errors"
	"fmt"
	"testing"
)

type sideReason string

func (r sideReason) ReasonCode() string { return string(r) }

func TestError_Is_只按code比较语义(t *testing.T) {
	e1 := ErrInvalidSide.WithData("side", 2)
	e2 := NewBiz(CodeInvalidSide, "other").WithCause(errors.New("x"))
	if !errors.Is(e1, e2) {
		t.Fatalf("期望同 code 的错误 errors.Is 为 true, e1=%v e2=%v", e1, e2)
	}
	if errors.Is(e1, ErrInvalidCommand) {
		t.Fatalf("不同 code 不应相等")
	}
}

func TestError_业务错误不捕获栈(t *testing.T) {
	err := ErrPrecondition.WithReason(sideReason("siege_intact")).WithCause(errors.New("walls"))
	if err.Stack() != nil {
		t.Fatalf("业务错误不应捕获栈")
	}
	if err.Reason() != "siege_intact" {
		t.Fatalf("reason 丢失, got=%q", err.Reason())
	}
}

func TestError_系统错误只捕获一次栈(t *testing.T) {
	sys := NewSys(CodeOutcomeFailed, "结算失败").WithCause(errors.New("boom"))
	if len(sys.Stack()) == 0 {
		t.Fatalf("期望系统错误捕获栈")
	}
	outer := NewSys(CodeInternal, "").WithCause(sys)
	if outer.Stack() != nil {
		t.Fatalf("cause 链已有栈时不应重复捕获")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("command: %w", ErrBattleNotFound)
	if got := CodeOf(wrapped); got != CodeBattleNotFound {
		t.Fatalf("CodeOf got=%s", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("普通错误应归为 INTERNAL, got=%s", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("nil 应返回空, got=%s", got)
	}
}

func TestError_WithDataMap_复制输入(t *testing.T) {
	m := map[string]any{"battle_id": int64(1)}
	err := ErrBattleNotFound.WithDataMap(m)
	m["battle_id"] = int64(2)
	if got := err.Data()["battle_id"]; got != int64(1) {
		t.Fatalf("data 应在构造时复制, got=%v", got)
	}
}
