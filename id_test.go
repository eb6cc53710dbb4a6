package ragged

import "testing"

func TestNewID(t *testing.T) {
	id1 := NewID()
	id2 := NewID()
	if len(id1) != 36 {
		t.Errorf("expected 36 chars (UUIDv7), got %d: %s", len(id1), id1)
	}
	if id1 == id2 {
		t.Error("two IDs should be unique")
	}
	if id1 >= id2 {
		t.Error("sequential UUIDv7s should be time-ordered")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("doc_ft_0")
	b := PointID("doc_ft_0")
	if a != b {
		t.Errorf("same chunk id produced different point ids: %s vs %s", a, b)
	}
	if len(a) != 36 {
		t.Errorf("expected 36 chars, got %d: %s", len(a), a)
	}
	if PointID("doc_ft_1") == a {
		t.Error("distinct chunk ids should produce distinct point ids")
	}
}
