package serverconfig

import (
	"os"
	"testing"
	"time"

	"Warfront/internal/battle/engagement"
)

func TestLoad_读取仓库配置并保留缺省值(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")

	Load("")

	if Conf.BattleServer.Port != 8004 || !Conf.BattleServer.Authority {
		t.Fatalf("battleserver 段解析错误, got=%+v", Conf.BattleServer)
	}
	if Conf.Battle.PlunderDuration != 60*time.Second || Conf.Battle.FinishingDelay != 5*time.Second {
		t.Fatalf("时长字段应按 duration 解析, plunder=%s finishing=%s", Conf.Battle.PlunderDuration, Conf.Battle.FinishingDelay)
	}
	if Conf.Battle.PreparationHeal != engagement.DefaultRules().PreparationHeal {
		t.Fatalf("配置里没写的规则应保留缺省值, got=%v", Conf.Battle.PreparationHeal)
	}
	if Conf.Logic.Scenario == "" || Conf.Logic.WorldID != 1 {
		t.Fatalf("logic 段解析错误, got=%+v", Conf.Logic)
	}
	if got := os.Getenv("JWT_SECRET"); got != "from-env" {
		t.Fatalf("已设置的环境变量不应被配置覆盖, got=%s", got)
	}
	if Current().BattleServer.Port != Conf.BattleServer.Port {
		t.Fatalf("Current 应返回最近一次加载的配置")
	}
}
