package simulation

import "time"

// Tactic 是一套攻防修正。
type Tactic struct {
	Attack  float64 `mapstructure:"attack"`
	Defense float64 `mapstructure:"defense"`
}

// Config 是自动解算的参数，对应配置文件的 simulation 段。
type Config struct {
	Round         time.Duration     `mapstructure:"round"`
	Lethality     float64           `mapstructure:"lethality"`
	Jitter        float64           `mapstructure:"jitter"`
	FortBonus     float64           `mapstructure:"fort_bonus"`
	ExpBonus      float64           `mapstructure:"exp_bonus"`
	CapturePoints int               `mapstructure:"capture_points"`
	CaptureRate   float64           `mapstructure:"capture_rate"`
	Tactics       map[string]Tactic `mapstructure:"tactics"`
}

const DefaultTactic = "balanced"

func DefaultConfig() Config {
	return Config{
		Round:       time.Second,
		Lethality:   0.05,
		Jitter:      0.2,
		FortBonus:   0.3,
		ExpBonus:    0.01,
		CaptureRate: 0.2,
		Tactics: map[string]Tactic{
			DefaultTactic: {Attack: 1, Defense: 1},
			"aggressive":  {Attack: 1.25, Defense: 0.8},
			"defensive":   {Attack: 0.8, Defense: 1.25},
		},
	}
}
