package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"Warfront/internal/world/diplomacy"
	"Warfront/internal/world/entity"
)

// Scenario 是开服剧本：初始世界与外交关系。
type Scenario struct {
	Title       string                `json:"title"`
	Kingdoms    []entity.Kingdom      `json:"kingdoms"`
	Realms      []entity.Realm        `json:"realms"`
	Settlements []entity.Settlement   `json:"settlements"`
	Characters  []entity.Character    `json:"characters"`
	Armies      []entity.Army         `json:"armies"`
	Wars        [][2]entity.KingdomID `json:"wars"`
	Alliances   [][2]entity.KingdomID `json:"alliances"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s := &Scenario{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

func (s *Scenario) validate() error {
	kingdoms := make(map[entity.KingdomID]bool, len(s.Kingdoms))
	for _, k := range s.Kingdoms {
		if k.ID == 0 {
			return fmt.Errorf("kingdom id must not be 0")
		}
		kingdoms[k.ID] = true
	}
	for _, a := range s.Armies {
		if !kingdoms[a.Kingdom] {
			return fmt.Errorf("army %d: unknown kingdom %d", a.ID, a.Kingdom)
		}
	}
	for _, st := range s.Settlements {
		if !kingdoms[st.Kingdom] {
			return fmt.Errorf("settlement %d: unknown kingdom %d", st.ID, st.Kingdom)
		}
	}
	for _, p := range append(append([][2]entity.KingdomID{}, s.Wars...), s.Alliances...) {
		if !kingdoms[p[0]] || !kingdoms[p[1]] {
			return fmt.Errorf("relation %v: unknown kingdom", p)
		}
	}
	return nil
}

// World 每次调用都构建一份独立的世界，剧本本身不被修改。
func (s *Scenario) World(id entity.WorldID) *entity.World {
	w := entity.NewWorld(id)
	for i := range s.Kingdoms {
		k := s.Kingdoms[i]
		w.AddKingdom(&k)
	}
	for i := range s.Realms {
		r := s.Realms[i]
		r.Neighbors = append([]entity.RealmID(nil), r.Neighbors...)
		w.AddRealm(&r)
	}
	for i := range s.Characters {
		c := s.Characters[i]
		w.AddCharacter(&c)
	}
	for i := range s.Settlements {
		st := s.Settlements[i]
		st.Garrison = cloneUnits(st.Garrison)
		w.AddSettlement(&st)
	}
	for i := range s.Armies {
		a := s.Armies[i]
		a.Units = cloneUnits(a.Units)
		w.AddArmy(&a)
	}
	return w
}

// Seed 适配 WorldRepository 的播种函数。
func (s *Scenario) Seed(id entity.WorldID) (*entity.World, error) {
	return s.World(id), nil
}

// Diplomacy 按剧本建立战争与同盟，叛军王国与所有人敌对。
func (s *Scenario) Diplomacy(w *entity.World) *diplomacy.Diplomacy {
	d := diplomacy.New()
	for _, p := range s.Wars {
		d.DeclareWar(p[0], p[1])
	}
	for _, p := range s.Alliances {
		d.Ally(p[0], p[1])
	}
	for _, k := range s.Kingdoms {
		if kk, ok := w.Kingdom(k.ID); ok && kk.Rebellion {
			d.MarkRebellion(k.ID)
		}
	}
	return d
}

func cloneUnits(in []*entity.Unit) []*entity.Unit {
	out := make([]*entity.Unit, 0, len(in))
	for _, u := range in {
		c := *u
		out = append(out, &c)
	}
	return out
}
