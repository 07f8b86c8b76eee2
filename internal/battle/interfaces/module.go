package interfaces

import (
	"github.com/gin-gonic/gin"

	"Warfront/internal/battle/interfaces/http"
	battlews "Warfront/internal/battle/interfaces/ws"
	"Warfront/internal/shared/session"
	transporthttp "Warfront/internal/shared/transport/http"
	"Warfront/internal/shared/transport/http/middleware"
	"Warfront/internal/shared/transport/ws"
	"Warfront/modules/kit/logx"
)

// Backend 同时满足 HTTP 与观战的需要，由 actor.Runtime 实现。
type Backend interface {
	http.Backend
	battlews.Watcher
}

type Module struct {
	httpHandler *http.BattleHandler
	spectator   *battlews.Spectator
	auth        bool
}

// New auth 为 true 时 HTTP 接口需要 Bearer token。
func New(backend Backend, reports http.ReportLister, sessions session.Manager, auth bool, log logx.Logger) *Module {
	return &Module{
		httpHandler: http.NewBattleHandler(backend, reports, log),
		spectator:   battlews.NewSpectator(backend, sessions, log),
		auth:        auth,
	}
}

func (m *Module) WsRegister(r *ws.Router) {
	m.spectator.RegisterRoutes(r)
}

func (m *Module) HttpRegister(g *gin.RouterGroup) {
	if m.auth {
		g = g.Group("", middleware.Auth())
	}
	m.httpHandler.RegisterRoutes(g)
}

var _ ws.Registrar = (*Module)(nil)
var _ transporthttp.Registrar = (*Module)(nil)
