package scenario

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"Warfront/internal/world/entity"
)

func repoScenario(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime.Caller(0) failed")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "configs", "scenario.json")
}

func TestLoad_内置剧本可用(t *testing.T) {
	s, err := Load(repoScenario(t))
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	w := s.World(1)
	if len(w.Armies()) != len(s.Armies) || len(w.Settlements()) != len(s.Settlements) {
		t.Fatalf("世界对象数量与剧本不一致")
	}
	d := s.Diplomacy(w)
	if !d.IsHostile(1, 2) {
		t.Fatalf("剧本里 1 与 2 交战")
	}
	if !d.IsAlly(2, 3) {
		t.Fatalf("剧本里 2 与 3 结盟")
	}
	if !d.IsHostile(9, 3) {
		t.Fatalf("叛军应与所有王国敌对")
	}
}

func TestWorld_每次构建互不影响(t *testing.T) {
	s := &Scenario{
		Kingdoms: []entity.Kingdom{{ID: 1}},
		Armies: []entity.Army{{
			ID:      1,
			Kingdom: 1,
			Units:   []*entity.Unit{{Troops: 10, MaxTroops: 10}},
		}},
	}
	a, _ := s.World(1).Army(1)
	a.Units[0].TakeDamage(1)

	b, _ := s.World(1).Army(1)
	if b.Units[0].Troops != 10 {
		t.Fatalf("第二个世界不应受第一个影响, troops=%d", b.Units[0].Troops)
	}
	if s.Armies[0].Units[0].Troops != 10 {
		t.Fatalf("剧本本身不应被修改")
	}
}

func TestLoad_未知王国报错(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	body := `{"kingdoms":[{"id":1}],"armies":[{"id":1,"kingdom":2}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write err=%v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("引用未知王国应报错")
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("文件不存在应报错")
	}
}
