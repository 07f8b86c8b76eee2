package entity

type Rank int8

const (
	RankKnight Rank = iota
	RankMarshal
	RankKing
)

func (r Rank) String() string {
	switch r {
	case RankMarshal:
		return "marshal"
	case RankKing:
		return "king"
	default:
		return "knight"
	}
}

// Character 是统领军队的将领。
type Character struct {
	ID         CharacterID `json:"id" bson:"id"`
	Name       string      `json:"name" bson:"name"`
	Kingdom    KingdomID   `json:"kingdom" bson:"kingdom"`
	Rank       Rank        `json:"rank" bson:"rank"`
	Dead       bool        `json:"dead" bson:"dead"`
	PrisonerOf KingdomID   `json:"prisoner_of" bson:"prisoner_of"`
}

// Active 表示将领仍能指挥：未阵亡也未被俘。
func (c *Character) Active() bool {
	return c != nil && !c.Dead && c.PrisonerOf == 0
}

func (c *Character) Imprison(by KingdomID) {
	if c == nil || c.Dead {
		return
	}
	c.PrisonerOf = by
}
