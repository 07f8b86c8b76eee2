package engagement

import (
	"math/rand"
	"testing"
	"time"
)

func TestPlunder_场景B_中断冻结恢复减半(t *testing.T) {
	f := newFixture(t, func(r *Rules) { r.PlunderDuration = 60 * time.Second })
	f.realm(10, kSouth, 100, 100)
	v := f.village(100, 10, kSouth)
	att := f.army(kNorth, v.Position, 100)
	e := f.mustCreate(att.ID, SettlementTarget(v.ID))
	if e.Type() != TypePlunder {
		t.Fatalf("type=%s", e.Type())
	}

	f.clock.Advance(30 * time.Second)
	if !e.PlunderInterrupt() {
		t.Fatalf("PlunderInterrupt 应成功")
	}
	if got := e.Plunder().Progress(f.clock.Now()); got != 30*time.Second {
		t.Fatalf("progress=%v", got)
	}
	if e.Plunder().Rate() != 0 {
		t.Fatalf("中断后速率应为 0")
	}
	f.clock.Advance(10 * time.Second)
	if got := e.Plunder().Progress(f.clock.Now()); got != 30*time.Second {
		t.Fatalf("中断期间进度不应变化, got=%v", got)
	}

	if !e.ResumePlunder() {
		t.Fatalf("ResumePlunder 应成功")
	}
	if got := e.Plunder().Progress(f.clock.Now()); got != 15*time.Second {
		t.Fatalf("恢复后进度应减半, got=%v", got)
	}
	if e.Plunder().Rate() != 1 {
		t.Fatalf("恢复后速率应为 1")
	}
}

func TestPlunder_进度满且无守军攻方胜并分赃(t *testing.T) {
	f := newFixture(t, func(r *Rules) {
		r.PlunderDuration = 20 * time.Second
		r.PlunderBonusGold = 0
	})
	f.realm(10, kSouth, 100, 100)
	v := f.village(100, 10, kSouth)
	att := f.army(kNorth, v.Position, 100)
	gold := att.Gold
	e := f.mustCreate(att.ID, SettlementTarget(v.ID))

	f.tick(10 * time.Second)
	if e.Stage() != StageOngoing {
		t.Fatalf("进度未满不应结束, stage=%s", e.Stage())
	}
	f.tick(10 * time.Second)
	if e.Winner() != SideAttacker {
		t.Fatalf("winner=%s", e.Winner())
	}
	if !v.Pillaged {
		t.Fatalf("村庄应标记为已洗劫")
	}
	if att.Gold-gold != 40 || v.Gold != 40 {
		t.Fatalf("应拿走一半金币, army=%v village=%v", att.Gold, v.Gold)
	}
	if e.Plunder().Rate() != 0 {
		t.Fatalf("结束后速率应为 0")
	}
}

func TestPlunder_守军到来中断离开后延时恢复(t *testing.T) {
	f := newFixture(t, func(r *Rules) {
		r.PlunderDuration = time.Minute
		r.PlunderResumeDelay = 3 * time.Second
	})
	f.realm(10, kSouth, 100, 100)
	v := f.village(100, 10, kSouth)
	att := f.army(kNorth, v.Position, 100)
	e := f.mustCreate(att.ID, SettlementTarget(v.ID))

	relief := f.army(kSouth, v.Position, 60)
	if !e.Join(relief.ID) {
		t.Fatalf("守方援军应能加入")
	}
	f.tick(time.Second)
	if e.Type() != TypePlunderInterrupt {
		t.Fatalf("守军出现应中断掠夺, type=%s", e.Type())
	}

	if !e.Leave(relief.ID, false) {
		t.Fatalf("Leave 应成功")
	}
	f.tick(time.Second)
	if e.Type() != TypePlunderInterrupt {
		t.Fatalf("恢复需要等待延时")
	}
	f.tick(3 * time.Second)
	if e.Type() != TypePlunder {
		t.Fatalf("延时后应恢复掠夺, type=%s", e.Type())
	}
}

func TestPlunder_进度始终有界(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := NewPlunderTracker(time.Minute, 0)
	now := time.Duration(0)
	for i := 0; i < 500; i++ {
		now += time.Duration(rng.Intn(20)) * time.Second
		switch rng.Intn(3) {
		case 0:
			p.SetRate(now, float64(rng.Intn(2)))
		case 1:
			p.Scale(now, rng.Float64()*2)
		}
		got := p.Progress(now)
		if got < 0 || got > time.Minute {
			t.Fatalf("step %d progress=%v 越界", i, got)
		}
	}
}
