package node

import "testing"

func sampleGraph() Node {
	return NewStruct().
		Set("name", String("hero")).
		Set("hp", Int(90)).
		Set("id", Uint(7)).
		Set("speed", Float(1.5)).
		Set("alive", Bool(true)).
		Set("icon", Bytes([]byte{0x01, 0x02})).
		Set("nothing", Nil()).
		Set("tags", NewSeq(String("a"), String("b"))).
		Set("inventory", &Map{Entries: []Entry{
			{Key: String("sword"), Value: Int(1)},
			{Key: String("potion"), Value: Int(3)},
		}}).
		Set("state", NewEnum("Walking", Float(0.5)))
}

func TestNode_CloneIsDeep(t *testing.T) {
	orig := sampleGraph().(*Struct)
	clone := orig.Clone().(*Struct)

	if !orig.Equal(clone) {
		t.Fatal("clone should equal original")
	}

	// Mutating the clone must not reach the original
	clone.Set("hp", Int(1))
	hp, _ := orig.Field("hp")
	if v, _ := hp.(*Opaque).Int(); v != 90 {
		t.Errorf("original hp = %d after mutating clone, want 90", v)
	}

	icon, _ := clone.Field("icon")
	b, _ := icon.(*Opaque).Bytes()
	b[0] = 0xFF
	origIcon, _ := orig.Field("icon")
	ob, _ := origIcon.(*Opaque).Bytes()
	if ob[0] != 0x01 {
		t.Error("byte slice shared between clone and original")
	}
}

func TestNode_Equal(t *testing.T) {
	a := sampleGraph()
	b := sampleGraph()
	if !a.Equal(b) {
		t.Error("identical graphs should be equal")
	}

	c := sampleGraph().(*Struct)
	c.Set("hp", Int(91))
	if a.Equal(c) {
		t.Error("graphs with different leaf values should not be equal")
	}

	if a.Equal(Int(1)) {
		t.Error("struct should not equal opaque")
	}

	// Field order matters
	x := NewStruct().Set("a", Int(1)).Set("b", Int(2))
	y := NewStruct().Set("b", Int(2)).Set("a", Int(1))
	if x.Equal(y) {
		t.Error("field order should participate in equality")
	}
}

func TestEnum_EqualPayload(t *testing.T) {
	a := NewEnum("Idle", nil)
	b := NewEnum("Idle", nil)
	c := NewEnum("Idle", Int(1))

	if !a.Equal(b) {
		t.Error("payload-less enums with same variant should be equal")
	}
	if a.Equal(c) {
		t.Error("enum with payload should not equal enum without")
	}
	if c.Equal(NewEnum("Walking", Int(1))) {
		t.Error("different variants should not be equal")
	}
}

func TestStruct_FieldHelpers(t *testing.T) {
	s := NewStruct().Set("hp", Int(10)).Set("mp", Int(5))

	if _, ok := s.Field("hp"); !ok {
		t.Error("Field() should find existing field")
	}
	if _, ok := s.Field("missing"); ok {
		t.Error("Field() should miss absent field")
	}

	s.Rename("hp", "health")
	if _, ok := s.Field("hp"); ok {
		t.Error("renamed field still reachable under old name")
	}
	v, ok := s.Field("health")
	if !ok {
		t.Fatal("renamed field not reachable under new name")
	}
	if got, _ := v.(*Opaque).Int(); got != 10 {
		t.Errorf("renamed field value = %d, want 10", got)
	}
	if s.Fields[0].Name != "health" {
		t.Error("Rename should keep field position")
	}

	s.Remove("mp")
	if _, ok := s.Field("mp"); ok {
		t.Error("removed field still present")
	}
	if len(s.Fields) != 1 {
		t.Errorf("Fields len = %d, want 1", len(s.Fields))
	}

	// Set replaces in place rather than appending
	s.Set("health", Int(99))
	if len(s.Fields) != 1 {
		t.Errorf("Set on existing field should not append, len = %d", len(s.Fields))
	}
}

func TestOpaque_Accessors(t *testing.T) {
	if v, ok := Int(-3).Int(); !ok || v != -3 {
		t.Errorf("Int() = %d, %v", v, ok)
	}
	if v, ok := Uint(3).Uint(); !ok || v != 3 {
		t.Errorf("Uint() = %d, %v", v, ok)
	}
	if v, ok := Float(2.5).Float(); !ok || v != 2.5 {
		t.Errorf("Float() = %v, %v", v, ok)
	}
	if v, ok := String("x").String(); !ok || v != "x" {
		t.Errorf("String() = %q, %v", v, ok)
	}
	if v, ok := Bool(true).Bool(); !ok || !v {
		t.Errorf("Bool() = %v, %v", v, ok)
	}
	if !Nil().IsNil() {
		t.Error("IsNil() = false for nil leaf")
	}
	if Nil().Kind() != KindOpaque {
		t.Errorf("Kind() = %v, want opaque", Nil().Kind())
	}

	// Numeric coercion across representations
	if v, ok := (&Opaque{Value: int64(9)}).Uint(); !ok || v != 9 {
		t.Errorf("Uint() over int64 = %d, %v", v, ok)
	}
	if v, ok := (&Opaque{Value: uint64(9)}).Int(); !ok || v != 9 {
		t.Errorf("Int() over uint64 = %d, %v", v, ok)
	}
	if _, ok := String("x").Int(); ok {
		t.Error("Int() over non-numeric string should fail")
	}
}
