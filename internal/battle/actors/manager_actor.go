package actors

import (
	"github.com/asynkron/protoactor-go/actor"

	"Warfront/internal/shared/actor/messages"
	"Warfront/internal/world/entity"
)

type WorldID = entity.WorldID

const defaultWorldID = WorldID(1)

// ManagerActor 按世界路由请求，每个世界一个 BattleActor。
type ManagerActor struct {
	deps         Deps
	battleActors map[WorldID]*actor.PID
}

func NewManagerActor(deps Deps) *ManagerActor {
	return &ManagerActor{
		deps:         deps,
		battleActors: make(map[WorldID]*actor.PID),
	}
}

func (m *ManagerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Terminated:
		for id, pid := range m.battleActors {
			if pid.Equal(msg.Who) {
				delete(m.battleActors, id)
			}
		}
	case messages.BattleMessage:
		worldID := WorldID(msg.WorldID())
		if worldID == 0 {
			worldID = defaultWorldID
		}
		ctx.Forward(m.getOrSpawn(ctx, worldID))
	}
}

func (m *ManagerActor) getOrSpawn(ctx actor.Context, worldID WorldID) *actor.PID {
	if pid, ok := m.battleActors[worldID]; ok && pid != nil {
		return pid
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewBattleActor(worldID, m.deps)
	})
	pid := ctx.Spawn(props)
	ctx.Watch(pid)
	m.battleActors[worldID] = pid
	return pid
}
