package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

// sampleDoc mirrors the shape serialized snapshots produce: a string-keyed
// envelope over nested slices and scalars.
func sampleDoc() map[string]any {
	return map[string]any{
		"version":  int64(1),
		"encoding": int64(0),
		"snapshot": []any{
			[]any{uint64(1), []any{"game.Health", "", []any{"i", int64(42)}}},
			"tail",
		},
	}
}

func roundTrip(t *testing.T, f Format, doc any) any {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Serialize(&buf, doc); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	out, err := f.Deserialize(&buf)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	return out
}

func TestJSON_RoundTrip(t *testing.T) {
	out := roundTrip(t, JSON{}, sampleDoc())

	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("Deserialize() = %T, want map", out)
	}
	// JSON numbers come back as json.Number, preserving integer precision
	n, ok := m["version"].(json.Number)
	if !ok {
		t.Fatalf("version = %T, want json.Number", m["version"])
	}
	if v, err := n.Int64(); err != nil || v != 1 {
		t.Errorf("version = %v, %v", v, err)
	}
}

func TestJSON_PrettyIsIndented(t *testing.T) {
	var compact, pretty bytes.Buffer
	if err := (JSON{}).Serialize(&compact, sampleDoc()); err != nil {
		t.Fatal(err)
	}
	if err := PrettyJSON().Serialize(&pretty, sampleDoc()); err != nil {
		t.Fatal(err)
	}
	if pretty.Len() <= compact.Len() {
		t.Error("pretty output should be larger than compact output")
	}
	if !bytes.Contains(pretty.Bytes(), []byte("\n  ")) {
		t.Error("pretty output is not indented")
	}
}

func TestGob_RoundTrip(t *testing.T) {
	out := roundTrip(t, Gob{}, sampleDoc())

	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("Deserialize() = %T, want map", out)
	}
	if m["version"].(int64) != 1 {
		t.Errorf("version = %v, want 1", m["version"])
	}
	snap := m["snapshot"].([]any)
	entity := snap[0].([]any)
	if entity[0].(uint64) != 1 {
		t.Errorf("entity id = %v, want uint64 1", entity[0])
	}
}

func TestMsgpack_RoundTrip(t *testing.T) {
	out := roundTrip(t, Msgpack{}, sampleDoc())

	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("Deserialize() = %T, want map", out)
	}
	snap, ok := m["snapshot"].([]any)
	if !ok {
		t.Fatalf("snapshot = %T, want slice", m["snapshot"])
	}
	if snap[1] != "tail" {
		t.Errorf("snapshot tail = %v, want string to survive", snap[1])
	}
}

func TestExtensions(t *testing.T) {
	cases := []struct {
		f    Format
		want string
	}{
		{JSON{}, ".json"},
		{Gob{}, ".gob"},
		{Msgpack{}, ".sav"},
		{Compress(Msgpack{}), ".sav.zst"},
	}
	for _, tc := range cases {
		if got := tc.f.Extension(); got != tc.want {
			t.Errorf("Extension() = %q, want %q", got, tc.want)
		}
	}
}

func TestCompress_RoundTrip(t *testing.T) {
	f := Compress(JSON{})
	out := roundTrip(t, f, sampleDoc())
	if _, ok := out.(map[string]any); !ok {
		t.Fatalf("Deserialize() = %T, want map", out)
	}
}

func TestCompress_Shrinks(t *testing.T) {
	doc := map[string]any{"data": string(bytes.Repeat([]byte("abcdefgh"), 512))}

	var plain, compressed bytes.Buffer
	if err := (JSON{}).Serialize(&plain, doc); err != nil {
		t.Fatal(err)
	}
	if err := Compress(JSON{}).Serialize(&compressed, doc); err != nil {
		t.Fatal(err)
	}
	if compressed.Len() >= plain.Len() {
		t.Errorf("compressed %d bytes >= plain %d bytes", compressed.Len(), plain.Len())
	}
}

func TestCompress_GarbageInput(t *testing.T) {
	f := Compress(JSON{})
	if _, err := f.Deserialize(bytes.NewReader([]byte("not zstd"))); err == nil {
		t.Error("Deserialize() of non-zstd data should fail")
	}
}

func TestEncrypt_RoundTrip(t *testing.T) {
	f, err := Encrypt(Msgpack{}, []byte("correct horse battery staple"), []byte("salt"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	out := roundTrip(t, f, sampleDoc())
	if _, ok := out.(map[string]any); !ok {
		t.Fatalf("Deserialize() = %T, want map", out)
	}
	if got := f.Extension(); got != ".sav.enc" {
		t.Errorf("Extension() = %q, want .sav.enc", got)
	}
}

func TestEncrypt_ShortPassphrase(t *testing.T) {
	if _, err := Encrypt(JSON{}, []byte("short"), []byte("salt")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Encrypt() error = %v, want ErrInvalidKey", err)
	}
}

func TestEncrypt_WrongKeyFails(t *testing.T) {
	writer, err := Encrypt(JSON{}, []byte("correct horse battery staple"), []byte("salt"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := writer.Serialize(&buf, sampleDoc()); err != nil {
		t.Fatal(err)
	}

	reader, err := Encrypt(JSON{}, []byte("completely different secret!"), []byte("salt"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reader.Deserialize(&buf); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Deserialize() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestEncrypt_TamperedCiphertext(t *testing.T) {
	f, err := Encrypt(JSON{}, []byte("correct horse battery staple"), []byte("salt"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Serialize(&buf, sampleDoc()); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF
	if _, err := f.Deserialize(bytes.NewReader(data)); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Deserialize() of tampered data error = %v, want ErrDecryptionFailed", err)
	}

	if _, err := f.Deserialize(bytes.NewReader([]byte("x"))); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Deserialize() of truncated data error = %v, want ErrDecryptionFailed", err)
	}
}

func TestEncrypt_NonceIsFresh(t *testing.T) {
	f, err := Encrypt(JSON{}, []byte("correct horse battery staple"), []byte("salt"))
	if err != nil {
		t.Fatal(err)
	}
	var a, b bytes.Buffer
	if err := f.Serialize(&a, sampleDoc()); err != nil {
		t.Fatal(err)
	}
	if err := f.Serialize(&b, sampleDoc()); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two encryptions of the same document should differ")
	}
}
