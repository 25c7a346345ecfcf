// Package format handles lowering wire documents to bytes and back.
//
// A Format is a pluggable codec over the generic wire trees produced by the
// snapshot serializer. Formats choose which node encoding they carry:
// human-readable formats use the self-describing tagged encoding, binary
// formats the compact positional one. Middleware (compression, encryption)
// wraps any Format.
package format

import (
	"errors"
	"io"

	"github.com/driftline/keepsake/node"
)

var (
	// ErrEncode wraps failures while writing a document.
	ErrEncode = errors.New("format: encode failed")

	// ErrDecode wraps failures while reading a document.
	ErrDecode = errors.New("format: decode failed")
)

// Format serializes wire documents (trees of maps, slices and scalars) to
// a byte stream and back.
type Format interface {
	// Extension is the file extension backends may append to keys,
	// including the leading dot.
	Extension() string

	// Encoding is the node encoding this format carries.
	Encoding() node.Encoding

	// Serialize writes the document to the writer.
	Serialize(w io.Writer, doc any) error

	// Deserialize reads one document from the reader.
	Deserialize(r io.Reader) (any, error)
}
