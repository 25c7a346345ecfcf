package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/driftline/keepsake/node"
)

// JSON is a human-readable Format using the tagged node encoding.
//
// Numbers are decoded through json.Number so integer precision survives the
// round trip; the node layer coerces them back.
type JSON struct {
	// Indent enables pretty printing with the given indent string.
	Indent string
}

// PrettyJSON returns a JSON format indented for readability, suitable for
// debug saves that are meant to be diffed or edited by hand.
func PrettyJSON() JSON {
	return JSON{Indent: "  "}
}

func (JSON) Extension() string { return ".json" }

func (JSON) Encoding() node.Encoding { return node.Tagged }

func (f JSON) Serialize(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: json: %v", ErrEncode, err)
	}
	return nil
}

func (JSON) Deserialize(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrDecode, err)
	}
	return doc, nil
}
