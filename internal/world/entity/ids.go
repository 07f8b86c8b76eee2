package entity

import "math"

// 世界对象之间只保存整数句柄，不持有指针：军队被销毁后句柄自然失效，
// 战斗通过完整性检查发现悬挂引用。
type (
	WorldID      int
	ArmyID       int64
	UnitID       int64
	SettlementID int64
	RealmID      int64
	KingdomID    int64
	CharacterID  int64
	BattleID     int64
)

// Point 是大地图坐标。
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}
