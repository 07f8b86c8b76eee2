package utils

import "testing"

func TestSnowflake_单调递增且带节点号(t *testing.T) {
	gen, err := NewSnowflake(7)
	if err != nil {
		t.Fatalf("NewSnowflake err=%v", err)
	}
	prev := int64(0)
	for i := 0; i < 10000; i++ {
		id := gen.NextID()
		if id <= prev {
			t.Fatalf("ID 应严格递增, prev=%d id=%d", prev, id)
		}
		if (id>>nodeShift)&maxNodeID != 7 {
			t.Fatalf("节点号错误, id=%d", id)
		}
		prev = id
	}
	if _, err := NewSnowflake(maxNodeID + 1); err == nil {
		t.Fatalf("越界节点号应报错")
	}
}
