package serverconfig

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/simulation"
	"Warfront/internal/shared/config"
	"Warfront/internal/shared/logs"
)

const defaultConfigRelPath = "configs/conf.yml"

var Conf Config

// current 是热更新后的配置；Conf 只在启动时写一次。
var current atomic.Pointer[Config]

// Load 读取配置并填充缺省的战斗规则。cfgName 为空时使用 configs/conf.yml。
func Load(cfgName string) {
	if cfgName == "" {
		cfgName = defaultConfigRelPath
	}
	Conf = Defaults()
	config.Load(cfgName, &Conf, reload)
	applyEnv(&Conf)
	c := Conf
	current.Store(&c)
}

// Current 返回最近一次成功解析的配置。
func Current() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	return &Conf
}

func reload(src config.Source) {
	next := Defaults()
	if err := src.Unmarshal(&next); err != nil {
		logs.Error("config reload failed", zap.String("file", src.ConfigFileUsed()), zap.Error(err))
		return
	}
	applyEnv(&next)
	current.Store(&next)
	logs.Info("config reloaded", zap.String("file", src.ConfigFileUsed()))
}

func applyEnv(c *Config) {
	// 环境变量优先；若未设置则回填配置中的 jwt_secret，兼容本地开发场景。
	if os.Getenv("JWT_SECRET") == "" && c.JWTSecret != "" {
		_ = os.Setenv("JWT_SECRET", c.JWTSecret)
	}
}

// Defaults 是没有配置文件时也能跑起来的缺省值。
func Defaults() Config {
	return Config{
		BattleServer: BattleServerConfig{
			Host:      "0.0.0.0",
			Port:      8004,
			GRPCPort:  9004,
			Authority: true,
			TickMs:    1000,
			FlushMs:   3000,
			SyncMs:    1000,
			Simulate:  true,
		},
		MongoDB:    MongoDBConfig{Database: "warfront", TimeoutMs: 5000},
		Log:        LogConfig{Level: "info", MaxSize: 100, MaxBackups: 5, MaxAge: 7},
		Logic:      LogicConfig{Scenario: "configs/scenario.json", WorldID: 1},
		Battle:     engagement.DefaultRules(),
		Simulation: simulation.DefaultConfig(),
	}
}
