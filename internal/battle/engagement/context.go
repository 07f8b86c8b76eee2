package engagement

import (
	"math/rand"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"

	"Warfront/internal/world/entity"
	"Warfront/modules/kit/logx"
)

type Clock interface {
	Now() time.Duration
}

// ManualClock 是由 tick 推进的模拟时钟。
type ManualClock struct {
	now time.Duration
}

func (c *ManualClock) Now() time.Duration { return c.now }

func (c *ManualClock) Advance(d time.Duration) {
	if d > 0 {
		c.now += d
	}
}

func (c *ManualClock) Set(now time.Duration) { c.now = now }

// preparationEnv 是备战时长公式可用的变量。
func preparationEnv(attackers, defenders float64) map[string]any {
	stronger, weaker := attackers, defenders
	if weaker > stronger {
		stronger, weaker = weaker, stronger
	}
	return map[string]any{
		"stronger":  stronger,
		"weaker":    weaker,
		"attackers": attackers,
		"defenders": defenders,
	}
}

// Context 是一组战斗共享的运行环境：世界、外交、规则、时钟与各端口。
// 只在权威 goroutine 内使用。
type Context struct {
	Rules     Rules
	World     *entity.World
	Diplomacy Diplomacy
	Clock     Clock
	Rand      *rand.Rand
	Log       logx.Logger
	Bus       *Bus

	// Authority 为 false 时只接受快照，指令经 Forwarder 转发
	Authority     bool
	Forwarder     Forwarder
	Registry      Registry
	NewSimulation SimulationFactory
	Reports       ReportSink
	NextID        func() BattleID

	prep   *vm.Program
	lastID BattleID
}

func NewContext(rules Rules, world *entity.World, dip Diplomacy, clock Clock, log logx.Logger) (*Context, error) {
	if log == nil {
		log = logx.Nop()
	}
	c := &Context{
		Rules:     rules,
		World:     world,
		Diplomacy: dip,
		Clock:     clock,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:       log,
		Bus:       NewBus(),
		Authority: true,
	}
	if rules.PreparationFormula != "" {
		prog, err := expr.Compile(rules.PreparationFormula, expr.Env(preparationEnv(0, 0)), expr.AsFloat64())
		if err != nil {
			return nil, err
		}
		c.prep = prog
	}
	return c, nil
}

func (c *Context) now() time.Duration {
	if c.Clock == nil {
		return 0
	}
	return c.Clock.Now()
}

func (c *Context) nextID() BattleID {
	if c.NextID != nil {
		return c.NextID()
	}
	c.lastID++
	return c.lastID
}

// preparation 计算备战时长；公式缺失或出错时为 0（直接开战）。
func (c *Context) preparation(attackers, defenders int) time.Duration {
	if c.prep == nil {
		return 0
	}
	env := preparationEnv(float64(attackers), float64(defenders))
	out, err := expr.Run(c.prep, env)
	if err != nil {
		c.Log.Warn("preparation formula failed", zap.Error(err))
		return 0
	}
	secs, _ := out.(float64)
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
