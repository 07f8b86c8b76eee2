package diplomacy

import "testing"

func TestHostility(t *testing.T) {
	d := New()
	d.DeclareWar(1, 2)
	if !d.IsHostile(1, 2) || !d.IsHostile(2, 1) {
		t.Fatalf("交战双方应互为敌对")
	}
	if d.IsHostile(1, 3) {
		t.Fatalf("未宣战不应敌对")
	}
	d.Ally(1, 3)
	if !d.IsAlly(3, 1) || d.IsHostile(1, 3) {
		t.Fatalf("同盟关系不对")
	}
	d.MarkRebellion(9)
	if !d.IsHostile(9, 1) || !d.IsHostile(3, 9) {
		t.Fatalf("叛军应与所有王国敌对")
	}
	if d.IsHostile(1, 1) {
		t.Fatalf("同一王国不应敌对")
	}
	d.MakePeace(1, 2)
	if d.IsHostile(1, 2) {
		t.Fatalf("议和后不应敌对")
	}
}

func TestRelationshipAndWarScore(t *testing.T) {
	d := New()
	d.AddRelationship(2, 1, "helped_enemy", -10)
	d.AddRelationship(2, 1, "helped_enemy", -5)
	if got := d.Relationship(2, 1); got != -15 {
		t.Fatalf("relationship got=%v", got)
	}
	if got := d.Relationship(1, 2); got != 0 {
		t.Fatalf("好感度是有向的, got=%v", got)
	}
	d.AddWarActivity(1, 2, "siege_won", 20)
	if d.WarScore(1, 2) != 20 {
		t.Fatalf("war score got=%v", d.WarScore(1, 2))
	}
	if len(d.ActivitiesByKey("helped_enemy")) != 2 {
		t.Fatalf("activity 记录数不对")
	}
}
