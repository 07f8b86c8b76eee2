package dto

type ContactReq struct {
	Army   int64  `json:"army" binding:"required"`
	Kind   string `json:"kind" binding:"required,oneof=army settlement battle"`
	Target int64  `json:"target" binding:"required"`
}

type ActionReq struct {
	Action string `json:"action" binding:"required"`
	Side   *int   `json:"side" binding:"required"`
	Param  string `json:"param"`
}

type ArmyReq struct {
	Army int64 `json:"army" binding:"required"`
}

type ReinforceReq struct {
	Army       int64 `json:"army" binding:"required"`
	Slot       int   `json:"slot"`
	EstimateMs int64 `json:"estimate_ms"`
	Force      bool  `json:"force"`
}
