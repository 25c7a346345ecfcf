package format

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/driftline/keepsake/node"
)

// Msgpack is the default binary Format, using the compact node encoding over
// MessagePack.
type Msgpack struct{}

func (Msgpack) Extension() string { return ".sav" }

func (Msgpack) Encoding() node.Encoding { return node.Compact }

func (Msgpack) Serialize(w io.Writer, doc any) error {
	if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("%w: msgpack: %v", ErrEncode, err)
	}
	return nil
}

func (Msgpack) Deserialize(r io.Reader) (any, error) {
	var doc any
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: msgpack: %v", ErrDecode, err)
	}
	return doc, nil
}
