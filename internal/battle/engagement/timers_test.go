package engagement

import (
	"testing"
	"time"
)

func TestScheduler_按时间和名字顺序触发(t *testing.T) {
	s := newScheduler()
	var got []string
	s.Schedule("b", 2*time.Second, func() { got = append(got, "b") })
	s.Schedule("a", 2*time.Second, func() { got = append(got, "a") })
	s.Schedule("c", time.Second, func() { got = append(got, "c") })
	s.Schedule("late", 10*time.Second, func() { got = append(got, "late") })

	if n := s.Fire(2 * time.Second); n != 3 {
		t.Fatalf("fired=%d", n)
	}
	if len(got) != 3 || got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("order=%v", got)
	}
	if !s.Pending("late") || s.Pending("a") {
		t.Fatalf("到期的应移除，未到期的保留")
	}
}

func TestScheduler_回调中取消和重新注册(t *testing.T) {
	s := newScheduler()
	fired := map[string]int{}
	s.Schedule("a", time.Second, func() {
		fired["a"]++
		s.Cancel("b")
		s.Schedule("a", time.Second, func() { fired["a"]++ })
	})
	s.Schedule("b", time.Second, func() { fired["b"]++ })

	s.Fire(time.Second)
	if fired["a"] != 1 || fired["b"] != 0 {
		t.Fatalf("fired=%v", fired)
	}
	// 回调中新注册的定时器留到下一次
	s.Fire(time.Second)
	if fired["a"] != 2 {
		t.Fatalf("fired=%v", fired)
	}
}

func TestBus_取消订阅(t *testing.T) {
	b := NewBus()
	var kinds, all int
	cancel := b.Subscribe(EventVictory, func(Event) { kinds++ })
	cancelAll := b.SubscribeAll(func(Event) { all++ })

	b.Publish(Event{Kind: EventVictory})
	b.Publish(Event{Kind: EventCreated})
	if kinds != 1 || all != 2 {
		t.Fatalf("kinds=%d all=%d", kinds, all)
	}
	cancel()
	cancelAll()
	b.Publish(Event{Kind: EventVictory})
	if kinds != 1 || all != 2 {
		t.Fatalf("取消后不应再收到, kinds=%d all=%d", kinds, all)
	}
}
