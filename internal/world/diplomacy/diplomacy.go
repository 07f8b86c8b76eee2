package diplomacy

import (
	"sort"

	"Warfront/internal/world/entity"
)

type KingdomID = entity.KingdomID

type pair struct {
	a, b KingdomID
}

// 无向关系（战争、同盟）统一按小 ID 在前存储
func unordered(a, b KingdomID) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// Activity 是一条战争得分/外交事件记录。
type Activity struct {
	From  KingdomID `json:"from"`
	To    KingdomID `json:"to"`
	Key   string    `json:"key"`
	Value float64   `json:"value"`
}

// Diplomacy 是内存版外交状态：战争、同盟、好感度与战争得分。
// 公式本身不在战斗域内，这里只负责记账。
type Diplomacy struct {
	wars       map[pair]bool
	alliances  map[pair]bool
	relations  map[pair]float64
	warScore   map[pair]float64
	rebels     map[KingdomID]bool
	prisoners  map[entity.CharacterID]KingdomID
	activities []Activity
}

func New() *Diplomacy {
	return &Diplomacy{
		wars:      make(map[pair]bool),
		alliances: make(map[pair]bool),
		relations: make(map[pair]float64),
		warScore:  make(map[pair]float64),
		rebels:    make(map[KingdomID]bool),
		prisoners: make(map[entity.CharacterID]KingdomID),
	}
}

func (d *Diplomacy) DeclareWar(a, b KingdomID) {
	if a == b {
		return
	}
	d.wars[unordered(a, b)] = true
	delete(d.alliances, unordered(a, b))
}

func (d *Diplomacy) MakePeace(a, b KingdomID) {
	delete(d.wars, unordered(a, b))
}

func (d *Diplomacy) Ally(a, b KingdomID) {
	if a == b {
		return
	}
	d.alliances[unordered(a, b)] = true
	delete(d.wars, unordered(a, b))
}

// MarkRebellion 叛军与所有王国敌对。
func (d *Diplomacy) MarkRebellion(k KingdomID) {
	d.rebels[k] = true
}

func (d *Diplomacy) IsHostile(a, b KingdomID) bool {
	if a == 0 || b == 0 || a == b {
		return false
	}
	if d.rebels[a] != d.rebels[b] {
		return true
	}
	return d.wars[unordered(a, b)]
}

func (d *Diplomacy) IsAlly(a, b KingdomID) bool {
	if a == 0 || b == 0 {
		return false
	}
	return a == b || d.alliances[unordered(a, b)]
}

// AddRelationship 修改 from 对 to 的好感度（有向）。
func (d *Diplomacy) AddRelationship(from, to KingdomID, key string, delta float64) {
	if from == 0 || to == 0 || from == to || delta == 0 {
		return
	}
	d.relations[pair{from, to}] += delta
	d.activities = append(d.activities, Activity{From: from, To: to, Key: key, Value: delta})
}

func (d *Diplomacy) Relationship(from, to KingdomID) float64 {
	return d.relations[pair{from, to}]
}

// AddWarActivity 为 winner 对 loser 的战争记一笔得分。
func (d *Diplomacy) AddWarActivity(winner, loser KingdomID, key string, value float64) {
	if winner == 0 || loser == 0 || winner == loser {
		return
	}
	d.warScore[pair{winner, loser}] += value
	d.activities = append(d.activities, Activity{From: winner, To: loser, Key: key, Value: value})
}

func (d *Diplomacy) WarScore(winner, loser KingdomID) float64 {
	return d.warScore[pair{winner, loser}]
}

// OnImprisoned 记录俘虏，通知对方王国（这里落为一条事件）。
func (d *Diplomacy) OnImprisoned(captor, victim KingdomID, c entity.CharacterID) {
	d.prisoners[c] = captor
	d.activities = append(d.activities, Activity{From: captor, To: victim, Key: "imprisoned", Value: float64(c)})
}

func (d *Diplomacy) PrisonerOf(c entity.CharacterID) (KingdomID, bool) {
	k, ok := d.prisoners[c]
	return k, ok
}

// Activities 返回按写入顺序排列的记录拷贝。
func (d *Diplomacy) Activities() []Activity {
	return append([]Activity(nil), d.activities...)
}

func (d *Diplomacy) ActivitiesByKey(key string) []Activity {
	out := make([]Activity, 0)
	for _, a := range d.activities {
		if a.Key == key {
			out = append(out, a)
		}
	}
	return out
}

// Wars 返回所有交战对，测试和快照使用。
func (d *Diplomacy) Wars() [][2]KingdomID {
	out := make([][2]KingdomID, 0, len(d.wars))
	for p := range d.wars {
		out = append(out, [2]KingdomID{p.a, p.b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
