package http

import (
	"context"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/interfaces/http/dto"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/transport"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/logx"
)

// Backend 是战斗操作的入口，由 actor.Runtime 实现。
type Backend interface {
	Contact(ctx context.Context, army entity.ArmyID, kind engagement.TargetKind, target int64) (service.BattleView, error)
	Command(ctx context.Context, cmd engagement.Command) error
	Join(ctx context.Context, id engagement.BattleID, army entity.ArmyID) error
	Reinforce(ctx context.Context, id engagement.BattleID, army entity.ArmyID, slot int, est time.Duration, force bool) error
	Intended(ctx context.Context, id engagement.BattleID, army entity.ArmyID) error
	Battle(ctx context.Context, id engagement.BattleID) (service.BattleView, error)
	Battles(ctx context.Context) ([]service.BattleView, error)
}

// ReportLister 查询王国相关的战报。
type ReportLister interface {
	ListByKingdom(ctx context.Context, kingdom entity.KingdomID, limit int) ([]*engagement.Report, error)
}

var targetKinds = map[string]engagement.TargetKind{
	"army":       engagement.TargetArmy,
	"settlement": engagement.TargetSettlement,
	"battle":     engagement.TargetBattle,
}

type BattleHandler struct {
	backend Backend
	reports ReportLister
	log     logx.Logger
}

func NewBattleHandler(backend Backend, reports ReportLister, log logx.Logger) *BattleHandler {
	if log == nil {
		log = logx.Nop()
	}
	return &BattleHandler{backend: backend, reports: reports, log: log}
}

func (h *BattleHandler) RegisterRoutes(group *gin.RouterGroup) {
	battles := group.Group("/battles")
	battles.GET("", h.List)
	battles.POST("/contact", h.Contact)
	battles.GET("/:id", h.Get)
	battles.POST("/:id/actions", h.Action)
	battles.POST("/:id/join", h.Join)
	battles.POST("/:id/reinforcements", h.Reinforce)
	battles.POST("/:id/intended", h.Intended)

	group.GET("/kingdoms/:id/reports", h.Reports)
}

func (h *BattleHandler) Contact(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ContactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	view, err := h.backend.Contact(ctx, entity.ArmyID(req.Army), targetKinds[req.Kind], req.Target)
	if err != nil {
		h.error(ctx, c, "battle contact", err)
		return
	}
	h.ok(c, view)
}

func (h *BattleHandler) Action(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.battleID(c)
	if !ok {
		return
	}
	var req dto.ActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	cmd := engagement.Command{
		Battle: id,
		Action: engagement.Action(req.Action),
		Side:   engagement.Side(*req.Side),
		Param:  req.Param,
	}
	if err := h.backend.Command(ctx, cmd); err != nil {
		h.error(ctx, c, "battle action", err)
		return
	}
	h.ok(c, nil)
}

func (h *BattleHandler) Join(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.battleID(c)
	if !ok {
		return
	}
	var req dto.ArmyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	if err := h.backend.Join(ctx, id, entity.ArmyID(req.Army)); err != nil {
		h.error(ctx, c, "battle join", err)
		return
	}
	h.ok(c, nil)
}

func (h *BattleHandler) Reinforce(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.battleID(c)
	if !ok {
		return
	}
	var req dto.ReinforceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	est := time.Duration(req.EstimateMs) * time.Millisecond
	if err := h.backend.Reinforce(ctx, id, entity.ArmyID(req.Army), req.Slot, est, req.Force); err != nil {
		h.error(ctx, c, "battle reinforce", err)
		return
	}
	h.ok(c, nil)
}

func (h *BattleHandler) Intended(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.battleID(c)
	if !ok {
		return
	}
	var req dto.ArmyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	if err := h.backend.Intended(ctx, id, entity.ArmyID(req.Army)); err != nil {
		h.error(ctx, c, "battle intended", err)
		return
	}
	h.ok(c, nil)
}

func (h *BattleHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.battleID(c)
	if !ok {
		return
	}
	view, err := h.backend.Battle(ctx, id)
	if err != nil {
		h.error(ctx, c, "battle get", err)
		return
	}
	h.ok(c, view)
}

func (h *BattleHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	views, err := h.backend.Battles(ctx)
	if err != nil {
		h.error(ctx, c, "battle list", err)
		return
	}
	h.ok(c, views)
}

func (h *BattleHandler) Reports(c *gin.Context) {
	ctx := c.Request.Context()

	kingdom, err := strconv.Atoi(c.Param("id"))
	if err != nil || kingdom <= 0 {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if h.reports == nil {
		h.ok(c, []*engagement.Report{})
		return
	}
	list, err := h.reports.ListByKingdom(ctx, entity.KingdomID(kingdom), limit)
	if err != nil {
		h.error(ctx, c, "battle reports", err)
		return
	}
	h.ok(c, list)
}

func (h *BattleHandler) battleID(c *gin.Context) (engagement.BattleID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, transport.InvalidParam, "参数有误")
		return 0, false
	}
	return engagement.BattleID(id), true
}

func (h *BattleHandler) ok(c *gin.Context, data any) {
	c.JSON(nethttp.StatusOK, dto.Success(transport.OK, data))
}

func (h *BattleHandler) fail(c *gin.Context, code int, msg string) {
	c.JSON(nethttp.StatusOK, dto.Error(code, msg))
}

func (h *BattleHandler) error(ctx context.Context, c *gin.Context, action string, err error) {
	code, msg := HandleError(ctx, h.log, action, err)
	h.fail(c, code, msg)
}
