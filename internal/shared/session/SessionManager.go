package session

import (
	"sync"

	"Warfront/internal/shared/transport/ws"
	"Warfront/internal/world/entity"
)

// Manager 记录每条连接正在观看的战斗；连接关闭后自动退出全部观战。
type Manager interface {
	Bind(conn ws.WSConn, battle entity.BattleID, cancel func()) bool
	Unbind(conn ws.WSConn, battle entity.BattleID) bool
	Watching(conn ws.WSConn) []entity.BattleID
}

type SessMgr struct {
	sync.RWMutex
	conn2watch map[ws.WSConn]map[entity.BattleID]func()
	watched    map[ws.WSConn]struct{}
	// onLeave 在取消订阅之后调用，用来通知战斗减少观战者
	onLeave func(battle entity.BattleID)
}

func NewSessMgr(onLeave func(battle entity.BattleID)) *SessMgr {
	if onLeave == nil {
		onLeave = func(entity.BattleID) {}
	}
	return &SessMgr{
		conn2watch: make(map[ws.WSConn]map[entity.BattleID]func()),
		watched:    make(map[ws.WSConn]struct{}),
		onLeave:    onLeave,
	}
}

// Bind 登记一次观战；同一连接重复观看同一场战斗返回 false。
func (s *SessMgr) Bind(conn ws.WSConn, battle entity.BattleID, cancel func()) bool {
	if conn == nil {
		return false
	}
	s.Lock()
	defer s.Unlock()

	// 为每条连接只启动一次 watcher：连接关闭后自动解绑，避免 conn2watch 逐步膨胀
	if _, ok := s.watched[conn]; !ok {
		s.watched[conn] = struct{}{}
		go s.watchConnDone(conn)
	}

	set := s.conn2watch[conn]
	if set == nil {
		set = make(map[entity.BattleID]func())
		s.conn2watch[conn] = set
	}
	if _, ok := set[battle]; ok {
		return false
	}
	set[battle] = cancel
	return true
}

func (s *SessMgr) watchConnDone(conn ws.WSConn) {
	<-conn.Done()
	s.UnbindConn(conn)
}

// UnbindConn 退出连接上的全部观战。
func (s *SessMgr) UnbindConn(conn ws.WSConn) {
	s.Lock()
	set := s.conn2watch[conn]
	delete(s.watched, conn)
	delete(s.conn2watch, conn)
	s.Unlock()

	for battle, cancel := range set {
		s.leave(battle, cancel)
	}
}

func (s *SessMgr) Unbind(conn ws.WSConn, battle entity.BattleID) bool {
	s.Lock()
	cancel, ok := s.conn2watch[conn][battle]
	if ok {
		delete(s.conn2watch[conn], battle)
	}
	s.Unlock()

	if ok {
		s.leave(battle, cancel)
	}
	return ok
}

func (s *SessMgr) Watching(conn ws.WSConn) []entity.BattleID {
	s.RLock()
	defer s.RUnlock()
	out := make([]entity.BattleID, 0, len(s.conn2watch[conn]))
	for id := range s.conn2watch[conn] {
		out = append(out, id)
	}
	return out
}

func (s *SessMgr) leave(battle entity.BattleID, cancel func()) {
	if cancel != nil {
		cancel()
	}
	s.onLeave(battle)
}
