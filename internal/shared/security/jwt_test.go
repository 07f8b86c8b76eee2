package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAward_缺少JWT_SECRET应失败(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Award(1, RoleCommander, 0); !errors.Is(err, ErrJWTSecretMissing) {
		t.Fatalf("期望 JWT_SECRET 为空时 Award 返回错误, err=%v", err)
	}
}

func TestAwardParse_正常签发并解析(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-123")

	token, err := Award(2, RoleCommander, time.Hour)
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken err=%v", err)
	}
	if claims.Kingdom != 2 || !claims.CanCommand() || claims.Issuer != issuer {
		t.Fatalf("claims 不符合预期, got=%+v", claims)
	}

	observer, err := Award(2, RoleObserver, 0)
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}
	claims, err = ParseToken(observer)
	if err != nil || claims.CanCommand() {
		t.Fatalf("观察者令牌不能下达指令, claims=%+v err=%v", claims, err)
	}
}

func TestAward_未知角色被拒绝(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-123")
	if _, err := Award(1, "admin", 0); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("err=%v", err)
	}
}

func TestParseToken_过期或换密钥失败(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-123")
	token, err := Award(1, RoleObserver, time.Hour)
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Kingdom: 1,
		Role:    RoleObserver,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	old, err := expired.SignedString([]byte("test-secret-123"))
	if err != nil {
		t.Fatalf("sign err=%v", err)
	}
	if _, err := ParseToken(old); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("过期令牌应失败, err=%v", err)
	}

	t.Setenv("JWT_SECRET", "rotated")
	if _, err := ParseToken(token); err == nil {
		t.Fatalf("换密钥后旧令牌应失败")
	}
}

func TestZip_压缩解压还原(t *testing.T) {
	src := []byte(`{"name":"battle.watch","msg":{"battle_id":1}}`)
	zipped, err := Zip(src)
	if err != nil {
		t.Fatalf("Zip err=%v", err)
	}
	got, err := UnZip(zipped)
	if err != nil {
		t.Fatalf("UnZip err=%v", err)
	}
	if string(got) != string(src) {
		t.Fatalf("解压结果不一致, got=%s", got)
	}
	if _, err := UnZip([]byte("not zlib")); err == nil {
		t.Fatalf("非法数据应报错")
	}
}
