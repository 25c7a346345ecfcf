package format

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/driftline/keepsake/node"
)

// Compressed wraps another Format with zstd compression.
type Compressed struct {
	Inner Format
	Level zstd.EncoderLevel
}

// Compress wraps the format with default-level zstd compression.
func Compress(inner Format) Compressed {
	return Compressed{Inner: inner, Level: zstd.SpeedDefault}
}

func (f Compressed) Extension() string { return f.Inner.Extension() + ".zst" }

func (f Compressed) Encoding() node.Encoding { return f.Inner.Encoding() }

func (f Compressed) Serialize(w io.Writer, doc any) error {
	level := f.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	if err != nil {
		return fmt.Errorf("%w: zstd: %v", ErrEncode, err)
	}
	if err := f.Inner.Serialize(zw, doc); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: zstd: %v", ErrEncode, err)
	}
	return nil
}

func (f Compressed) Deserialize(r io.Reader) (any, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrDecode, err)
	}
	defer zr.Close()
	return f.Inner.Deserialize(zr)
}
