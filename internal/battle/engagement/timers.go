package engagement

import (
	"sort"
	"time"
)

type timer struct {
	name string
	at   time.Duration
	fn   func()
}

// Scheduler 是单场战斗的定时回调表，由 Update 在权威节点上触发。
type Scheduler struct {
	timers map[string]timer
}

func newScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]timer)}
}

// Schedule 同名定时器会被替换。
func (s *Scheduler) Schedule(name string, at time.Duration, fn func()) {
	s.timers[name] = timer{name: name, at: at, fn: fn}
}

func (s *Scheduler) Cancel(name string) {
	delete(s.timers, name)
}

func (s *Scheduler) Pending(name string) bool {
	_, ok := s.timers[name]
	return ok
}

func (s *Scheduler) Clear() {
	s.timers = make(map[string]timer)
}

// Fire 按 (时间, 名字) 顺序执行本次到期的回调。回调中取消的定时器不再触发，
// 新注册的定时器留到下一次 Fire。
func (s *Scheduler) Fire(now time.Duration) int {
	due := make([]timer, 0)
	for _, t := range s.timers {
		if t.at <= now {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].name < due[j].name
	})
	fired := 0
	for _, d := range due {
		t, ok := s.timers[d.name]
		if !ok || t.at != d.at {
			continue
		}
		delete(s.timers, d.name)
		t.fn()
		fired++
	}
	return fired
}
