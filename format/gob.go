package format

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/driftline/keepsake/node"
)

func init() {
	// Wire documents are interface trees; gob needs every concrete type
	// that can appear inside them registered up front.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(int64(0))
	gob.Register(uint64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
	gob.Register([]byte(nil))
}

// Gob is a binary Format using the compact node encoding, backed by
// encoding/gob. It is Go-to-Go only; prefer Msgpack for saves that other
// tooling may need to read.
type Gob struct{}

func (Gob) Extension() string { return ".gob" }

func (Gob) Encoding() node.Encoding { return node.Compact }

func (Gob) Serialize(w io.Writer, doc any) error {
	if err := gob.NewEncoder(w).Encode(&doc); err != nil {
		return fmt.Errorf("%w: gob: %v", ErrEncode, err)
	}
	return nil
}

func (Gob) Deserialize(r io.Reader) (any, error) {
	var doc any
	if err := gob.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: gob: %v", ErrDecode, err)
	}
	return doc, nil
}
