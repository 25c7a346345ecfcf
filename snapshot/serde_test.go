package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/format"
	"github.com/driftline/keepsake/node"
)

func buildTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	w := ecs.NewWorld()
	reg := testRegistry()

	parent := w.Spawn()
	child := w.Spawn()
	w.Insert(parent, "game.Health", &health{Current: 80, Max: 100})
	w.Insert(parent, "game.Position", &position{X: 1.5, Y: -2.25})
	w.Insert(child, "game.ChildOf", &childOf{Parent: parent})
	w.InsertResource("game.Score", &score{Points: 1234})

	return NewBuilder(w, reg).ExtractAll().Build()
}

func TestSerde_RoundTripFormats(t *testing.T) {
	reg := testRegistry()
	snap := buildTestSnapshot(t)

	formats := []struct {
		name string
		f    format.Format
	}{
		{"json", format.JSON{}},
		{"pretty json", format.PrettyJSON()},
		{"gob", format.Gob{}},
		{"msgpack", format.Msgpack{}},
	}
	for _, tc := range formats {
		var buf bytes.Buffer
		if err := Write(&buf, tc.f, snap); err != nil {
			t.Fatalf("%s: Write() error = %v", tc.name, err)
		}
		got, err := Read(&buf, tc.f, reg)
		if err != nil {
			t.Fatalf("%s: Read() error = %v", tc.name, err)
		}
		if !snap.Equal(got) {
			t.Errorf("%s: round trip changed the snapshot", tc.name)
		}
	}
}

func TestSerde_EnvelopeFields(t *testing.T) {
	snap := buildTestSnapshot(t)

	var buf bytes.Buffer
	if err := Write(&buf, format.JSON{}, snap); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if doc["version"].(float64) != SchemaVersion {
		t.Errorf("envelope version = %v, want %d", doc["version"], SchemaVersion)
	}
	id, _ := doc["snapshot_id"].(string)
	if len(id) != 36 {
		t.Errorf("snapshot_id = %q, want a UUID", id)
	}
	if _, ok := doc["snapshot"]; !ok {
		t.Error("envelope missing snapshot body")
	}

	// Two writes of the same snapshot get distinct identifiers
	var second bytes.Buffer
	if err := Write(&second, format.JSON{}, snap); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	var doc2 map[string]any
	if err := json.Unmarshal(second.Bytes(), &doc2); err != nil {
		t.Fatalf("unmarshal second envelope: %v", err)
	}
	if doc2["snapshot_id"] == doc["snapshot_id"] {
		t.Error("snapshot_id should be fresh per write")
	}
}

func TestSerde_LegacyDocumentWithoutVersion(t *testing.T) {
	reg := testRegistry()
	snap := buildTestSnapshot(t)

	// Version-0 documents carried only the body
	legacy := map[string]any{"snapshot": encodeBody(snap, node.Tagged)}
	raw, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal legacy doc: %v", err)
	}

	got, err := Read(bytes.NewReader(raw), format.JSON{}, reg)
	if err != nil {
		t.Fatalf("Read() legacy error = %v", err)
	}
	if !snap.Equal(got) {
		t.Error("legacy document did not decode to the same snapshot")
	}
}

func TestSerde_RejectsFutureVersion(t *testing.T) {
	doc := `{"version": 99, "snapshot": {"entities": [], "resources": []}}`
	_, err := Read(strings.NewReader(doc), format.JSON{}, testRegistry())
	if !errors.Is(err, ErrDeserialize) {
		t.Errorf("Read() error = %v, want ErrDeserialize for future version", err)
	}
}

func TestSerde_MigratesOnRead(t *testing.T) {
	reg := testRegistry()
	old := &Snapshot{Entities: []Captured{{
		Entity: 1,
		Components: []Value{{
			TypePath: "game.Position",
			Version:  "0.1.0",
			Node: node.NewStruct().
				Set("pos_x", node.Float(7)).
				Set("pos_y", node.Float(8)),
		}},
	}}}

	var buf bytes.Buffer
	if err := Write(&buf, format.JSON{}, old); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(&buf, format.JSON{}, reg)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	v, ok := got.Entities[0].Component("game.Position")
	if !ok {
		t.Fatal("migrated component missing")
	}
	if v.Version != "0.2.0" {
		t.Errorf("version after read = %q, want 0.2.0", v.Version)
	}
	s := v.Node.(*node.Struct)
	if _, ok := s.Field("pos_x"); ok {
		t.Error("legacy field name survived read-time migration")
	}
	x, err := floatField(s, "x")
	if err != nil || x != 7 {
		t.Errorf("x = %v, %v, want 7", x, err)
	}
}

func TestSerde_DropsValuesRemovedBySchema(t *testing.T) {
	reg := testRegistry()
	// Extend the fixture registry with a type whose chain drops the value
	reg.MustRegister(newDroppedRegistration())

	old := &Snapshot{Resources: []Value{
		{TypePath: "game.Deprecated", Version: "0.1.0", Node: node.Int(1)},
	}}

	var buf bytes.Buffer
	if err := Write(&buf, format.JSON{}, old); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(&buf, format.JSON{}, reg)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Resources) != 0 {
		t.Errorf("resources = %d, want dropped value omitted", len(got.Resources))
	}
}

func TestSerde_UnregisteredTypesPassThrough(t *testing.T) {
	reg := testRegistry()
	old := &Snapshot{Resources: []Value{
		{TypePath: "game.FutureThing", Node: node.Int(1)},
	}}

	var buf bytes.Buffer
	if err := Write(&buf, format.JSON{}, old); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(&buf, format.JSON{}, reg)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, ok := got.Resource("game.FutureThing"); !ok {
		t.Error("unregistered value should survive read untouched")
	}
}

func TestSerde_GarbageInput(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    format.Format
		data string
	}{
		{"json garbage", format.JSON{}, "not json"},
		{"json wrong shape", format.JSON{}, `[1, 2, 3]`},
		{"gob garbage", format.Gob{}, "\x00\x01garbage"},
		{"msgpack garbage", format.Msgpack{}, "\xc1"},
	} {
		if _, err := Read(strings.NewReader(tc.data), tc.f, testRegistry()); !errors.Is(err, ErrDeserialize) {
			t.Errorf("%s: Read() error = %v, want ErrDeserialize", tc.name, err)
		}
	}
}
