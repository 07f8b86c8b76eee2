package engagement

import "time"

// PlunderTracker 是有界的掠夺进度累加器：progress = base + rate × (now - since)，
// 夹在 [0, duration]。rate 为 1 时累加，0 时冻结。
type PlunderTracker struct {
	duration time.Duration
	base     time.Duration
	since    time.Duration
	rate     float64
}

func NewPlunderTracker(duration, now time.Duration) *PlunderTracker {
	return &PlunderTracker{duration: duration, since: now}
}

func (p *PlunderTracker) Duration() time.Duration { return p.duration }

func (p *PlunderTracker) Rate() float64 { return p.rate }

func (p *PlunderTracker) Progress(now time.Duration) time.Duration {
	v := p.base
	if p.rate != 0 && now > p.since {
		v += time.Duration(float64(now-p.since) * p.rate)
	}
	return clampDuration(v, 0, p.duration)
}

func (p *PlunderTracker) Done(now time.Duration) bool {
	return p.Progress(now) >= p.duration
}

func (p *PlunderTracker) SetRate(now time.Duration, rate float64) {
	p.base = p.Progress(now)
	p.since = now
	p.rate = rate
}

// Scale 按比例缩放当前进度（恢复掠夺时的惩罚）。
func (p *PlunderTracker) Scale(now time.Duration, mod float64) {
	p.base = clampDuration(time.Duration(float64(p.Progress(now))*mod), 0, p.duration)
	p.since = now
}

func (p *PlunderTracker) set(now, progress time.Duration, rate float64) {
	p.base = clampDuration(progress, 0, p.duration)
	p.since = now
	p.rate = rate
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RefreshPlunderProgress 让累加速率跟随战斗类型：只有 Plunder 且未结束时为 1。
// 从中断状态重新进入 Plunder 时先按 PlunderResumeMod 折算已有进度。
func (e *Engagement) RefreshPlunderProgress() {
	now := e.now()
	active := e.typ == TypePlunder && e.stage < StageFinishing
	if e.plunder == nil {
		if !active {
			return
		}
		e.plunder = NewPlunderTracker(e.ctx.Rules.PlunderDuration, now)
	}
	switch {
	case active && e.plunder.rate == 0:
		if e.plunder.Progress(now) > 0 {
			e.plunder.Scale(now, e.ctx.Rules.PlunderResumeMod)
		}
		e.plunder.SetRate(now, 1)
	case !active && e.plunder.rate != 0:
		e.plunder.SetRate(now, 0)
	}
}
