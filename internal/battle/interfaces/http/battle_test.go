package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/transport"
	"Warfront/internal/world/entity"
	"Warfront/modules/kit/errx"
)

type fakeBackend struct {
	contactKind engagement.TargetKind
	cmds        []engagement.Command
	reinforced  time.Duration
	err         error
}

func (f *fakeBackend) Contact(_ context.Context, army entity.ArmyID, kind engagement.TargetKind, target int64) (service.BattleView, error) {
	f.contactKind = kind
	return service.BattleView{ID: 1, Attackers: []entity.ArmyID{army}}, f.err
}

func (f *fakeBackend) Command(_ context.Context, cmd engagement.Command) error {
	f.cmds = append(f.cmds, cmd)
	return f.err
}

func (f *fakeBackend) Join(context.Context, engagement.BattleID, entity.ArmyID) error { return f.err }

func (f *fakeBackend) Reinforce(_ context.Context, _ engagement.BattleID, _ entity.ArmyID, _ int, est time.Duration, _ bool) error {
	f.reinforced = est
	return f.err
}

func (f *fakeBackend) Intended(context.Context, engagement.BattleID, entity.ArmyID) error { return f.err }

func (f *fakeBackend) Battle(_ context.Context, id engagement.BattleID) (service.BattleView, error) {
	if id != 1 {
		return service.BattleView{}, errx.ErrBattleNotFound
	}
	return service.BattleView{ID: 1}, nil
}

func (f *fakeBackend) Battles(context.Context) ([]service.BattleView, error) {
	return []service.BattleView{{ID: 1}, {ID: 2}}, nil
}

type fakeReports struct {
	kingdom entity.KingdomID
	limit   int
}

func (f *fakeReports) ListByKingdom(_ context.Context, kingdom entity.KingdomID, limit int) ([]*engagement.Report, error) {
	f.kingdom, f.limit = kingdom, limit
	return []*engagement.Report{{Battle: 5, AttackerKingdom: kingdom}}, nil
}

type body struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newEngine(backend Backend, reports ReportLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	NewBattleHandler(backend, reports, nil).RegisterRoutes(e.Group(""))
	return e
}

func do(t *testing.T, e *gin.Engine, method, path, payload string) body {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	e.ServeHTTP(w, req)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("%s %s status=%d", method, path, w.Code)
	}
	var b body
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("响应不是 JSON: %s", w.Body.String())
	}
	return b
}

func TestBattleHandler_接战与指令(t *testing.T) {
	backend := &fakeBackend{}
	e := newEngine(backend, nil)

	b := do(t, e, nethttp.MethodPost, "/battles/contact", `{"army":3,"kind":"settlement","target":8}`)
	if b.Code != transport.OK || backend.contactKind != engagement.TargetSettlement {
		t.Fatalf("接战失败, code=%d kind=%d", b.Code, backend.contactKind)
	}

	b = do(t, e, nethttp.MethodPost, "/battles/1/actions", `{"action":"retreat","side":1}`)
	if b.Code != transport.OK {
		t.Fatalf("指令失败, code=%d msg=%s", b.Code, b.Msg)
	}
	if len(backend.cmds) != 1 || backend.cmds[0].Battle != 1 || backend.cmds[0].Side != engagement.SideDefender {
		t.Fatalf("指令内容错误, got=%+v", backend.cmds)
	}

	b = do(t, e, nethttp.MethodPost, "/battles/1/reinforcements", `{"army":4,"slot":0,"estimate_ms":1500}`)
	if b.Code != transport.OK || backend.reinforced != 1500*time.Millisecond {
		t.Fatalf("增援参数错误, code=%d est=%s", b.Code, backend.reinforced)
	}
}

func TestBattleHandler_参数与业务错误(t *testing.T) {
	backend := &fakeBackend{}
	e := newEngine(backend, nil)

	if b := do(t, e, nethttp.MethodPost, "/battles/contact", `{"army":3,"kind":"castle","target":8}`); b.Code != transport.InvalidParam {
		t.Fatalf("未知目标类型应为参数错误, code=%d", b.Code)
	}
	if b := do(t, e, nethttp.MethodPost, "/battles/abc/join", `{"army":3}`); b.Code != transport.InvalidParam {
		t.Fatalf("非法战斗 ID 应为参数错误, code=%d", b.Code)
	}
	if b := do(t, e, nethttp.MethodPost, "/battles/1/actions", `{"action":"retreat"}`); b.Code != transport.InvalidParam {
		t.Fatalf("缺少阵营应为参数错误, code=%d", b.Code)
	}
	if b := do(t, e, nethttp.MethodGet, "/battles/9", ""); b.Code != transport.BattleNotFound {
		t.Fatalf("未知战斗应返回 BattleNotFound, code=%d", b.Code)
	}

	backend.err = errx.ErrInvalidSide
	b := do(t, e, nethttp.MethodPost, "/battles/1/actions", `{"action":"retreat","side":4}`)
	if b.Code != transport.InvalidSide || b.Msg != errx.ErrInvalidSide.Msg() {
		t.Fatalf("业务错误应透出消息, code=%d msg=%s", b.Code, b.Msg)
	}

	backend.err = errx.ErrInternal
	b = do(t, e, nethttp.MethodPost, "/battles/1/join", `{"army":3}`)
	if b.Code != transport.SystemError || b.Msg != busyMsg {
		t.Fatalf("系统错误不应透出细节, code=%d msg=%s", b.Code, b.Msg)
	}
}

func TestBattleHandler_列表与战报(t *testing.T) {
	reports := &fakeReports{}
	e := newEngine(&fakeBackend{}, reports)

	b := do(t, e, nethttp.MethodGet, "/battles", "")
	var views []service.BattleView
	if err := json.Unmarshal(b.Data, &views); err != nil || len(views) != 2 {
		t.Fatalf("列表应返回两场战斗, err=%v got=%d", err, len(views))
	}

	b = do(t, e, nethttp.MethodGet, "/kingdoms/2/reports?limit=5", "")
	var list []engagement.Report
	if err := json.Unmarshal(b.Data, &list); err != nil || len(list) != 1 || list[0].Battle != 5 {
		t.Fatalf("战报内容错误, err=%v got=%+v", err, list)
	}
	if reports.kingdom != 2 || reports.limit != 5 {
		t.Fatalf("查询参数错误, kingdom=%d limit=%d", reports.kingdom, reports.limit)
	}
}
