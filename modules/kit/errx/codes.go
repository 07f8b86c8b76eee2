package errx

// 系统类错误码，跨包统一，便于告警归类。
// 战斗域的拒绝码也放在这里：engagement / service / transport 三层共用同一套语义。
const (
	CodeInternal    Code = "INTERNAL_ERROR"
	CodeUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeTimeout     Code = "TIMEOUT"
	CodeReqParam    Code = "CODE_REQ_PARAM_ERROR"

	// 结算（胜负/取消）过程中出现异常，随后会强制清理战斗。
	CodeOutcomeFailed Code = "OUTCOME_FAILED"
)

const (
	CodeInvalidSide     Code = "INVALID_SIDE"
	CodeInvalidCommand  Code = "INVALID_COMMAND"
	CodeInvalidParam    Code = "INVALID_PARAM"
	CodeBattleNotFound  Code = "BATTLE_NOT_FOUND"
	CodeArmyNotFound    Code = "ARMY_NOT_FOUND"
	CodeNotAuthority    Code = "NOT_AUTHORITY"
	CodePrecondition    Code = "PRECONDITION_FAILED"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
)

var (
	ErrInternal    = NewSys(CodeInternal, "服务器内部错误")
	ErrUnavailable = NewSys(CodeUnavailable, "服务不可用")
	ErrTimeout     = NewSys(CodeTimeout, "请求超时")
	ErrReqParam    = NewSys(CodeReqParam, "请求参数错误")

	ErrInvalidSide     = NewBiz(CodeInvalidSide, "阵营必须是 0 或 1")
	ErrInvalidCommand  = NewBiz(CodeInvalidCommand, "未知的战斗指令")
	ErrInvalidParam    = NewBiz(CodeInvalidParam, "指令参数错误")
	ErrBattleNotFound  = NewBiz(CodeBattleNotFound, "战斗不存在")
	ErrArmyNotFound    = NewBiz(CodeArmyNotFound, "军队不存在")
	ErrNotAuthority    = NewBiz(CodeNotAuthority, "当前节点无权修改战斗")
	ErrPrecondition    = NewBiz(CodePrecondition, "前置条件不满足")
	ErrUnauthenticated = NewBiz(CodeUnauthenticated, "未登录或令牌无效")
)
