package proto

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode marshals one outbound payload into a binary frame. Structs
// encode as msgpack maps keyed by their tags.
func Encode(payload any) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return b, nil
}
