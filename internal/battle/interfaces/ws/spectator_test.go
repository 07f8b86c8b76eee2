package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/session"
	"Warfront/internal/shared/transport"
	sharedws "Warfront/internal/shared/transport/ws"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/errx"
)

type fakeWatcher struct {
	mu       sync.Mutex
	onEvent  func(engagement.Event)
	watched  int
	canceled int
}

func (f *fakeWatcher) Watch(_ context.Context, id engagement.BattleID, onEvent func(engagement.Event)) (service.BattleView, func(), error) {
	if id != 3 {
		return service.BattleView{}, nil, errx.ErrBattleNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched++
	f.onEvent = onEvent
	return service.BattleView{ID: 3, Viewers: f.watched}, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.canceled++
	}, nil
}

func (f *fakeWatcher) emit(ev engagement.Event) {
	f.mu.Lock()
	fn := f.onEvent
	f.mu.Unlock()
	fn(ev)
}

type leaves struct {
	mu  sync.Mutex
	ids []entity.BattleID
}

func (l *leaves) add(id entity.BattleID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *leaves) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

type frame struct {
	Seq  int64           `json:"seq"`
	Name string          `json:"name"`
	Code int             `json:"code"`
	Msg  json.RawMessage `json:"msg"`
}

func dial(t *testing.T, w Watcher, sessions session.Manager) *websocket.Conn {
	t.Helper()
	router := sharedws.NewRouter(nil)
	NewSpectator(w, sessions, nil).RegisterRoutes(router)
	srv := httptest.NewServer(sharedws.NewServer(router, false, nil))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial err=%v", err)
	}
	return conn
}

func send(t *testing.T, c *websocket.Conn, seq int64, name string, battle int64) {
	t.Helper()
	msg := map[string]any{"seq": seq, "name": name, "msg": map[string]any{"battle": battle}}
	if err := c.WriteJSON(msg); err != nil {
		t.Fatalf("write err=%v", err)
	}
}

func read(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := c.ReadJSON(&f); err != nil {
		t.Fatalf("read err=%v", err)
	}
	return f
}

func TestSpectator_观战推送事件(t *testing.T) {
	w := &fakeWatcher{}
	left := &leaves{}
	conn := dial(t, w, session.NewSessMgr(left.add))

	send(t, conn, 1, "battle.watch", 3)
	f := read(t, conn)
	if f.Seq != 1 || f.Code != transport.OK {
		t.Fatalf("观战应成功, got=%+v", f)
	}

	w.emit(engagement.Event{Kind: engagement.EventVictory, Battle: 3, Winner: engagement.SideAttacker})
	f = read(t, conn)
	var ev EventView
	if err := json.Unmarshal(f.Msg, &ev); err != nil {
		t.Fatalf("事件不是 JSON, err=%v", err)
	}
	if f.Name != EventMsg || ev.Kind != "victory" || ev.Battle != 3 {
		t.Fatalf("事件内容错误, name=%s ev=%+v", f.Name, ev)
	}

	send(t, conn, 2, "battle.watch", 3)
	if f := read(t, conn); f.Code != transport.Precondition {
		t.Fatalf("重复观战应被拒绝, code=%d", f.Code)
	}

	send(t, conn, 3, "battle.unwatch", 3)
	if f := read(t, conn); f.Code != transport.OK {
		t.Fatalf("退出观战应成功, code=%d", f.Code)
	}
	if left.len() != 1 {
		t.Fatalf("退出观战应通知战斗, got=%d", left.len())
	}
}

func TestSpectator_断线自动退出(t *testing.T) {
	w := &fakeWatcher{}
	left := &leaves{}
	conn := dial(t, w, session.NewSessMgr(left.add))

	send(t, conn, 1, "battle.watch", 9)
	if f := read(t, conn); f.Code != transport.BattleNotFound {
		t.Fatalf("未知战斗应返回 BattleNotFound, code=%d", f.Code)
	}

	send(t, conn, 2, "battle.watch", 3)
	if f := read(t, conn); f.Code != transport.OK {
		t.Fatalf("观战应成功, code=%d", f.Code)
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for left.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if left.len() != 1 {
		t.Fatalf("断线后应退出观战")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.canceled != 1 {
		t.Fatalf("断线后应取消事件订阅, got=%d", w.canceled)
	}
}
