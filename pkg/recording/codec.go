package recording

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// File layout: 4-byte magic, 1-byte version, CBOR body.
const (
	Magic   = "SPMR"
	Version = byte(1)

	headerLen = len(Magic) + 1
)

// Long recording windows produce large snapshot arrays; lift the decoder's
// default element cap.
var decMode = mustDecMode()

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		MaxArrayElements: math.MaxInt32,
		MaxMapPairs:      math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// Marshal encodes rec in the on-disk container format.
func Marshal(rec *Recording) ([]byte, error) {
	body, err := cbor.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	out := make([]byte, 0, headerLen+len(body))
	out = append(out, Magic...)
	out = append(out, Version)
	return append(out, body...), nil
}

// Unmarshal decodes a full recording, validating magic and version first.
func Unmarshal(data []byte) (*Recording, error) {
	var rec Recording
	if err := decode(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UnmarshalMetadata decodes only the metadata of a recording file.
func UnmarshalMetadata(data []byte) (Metadata, error) {
	var h header
	if err := decode(data, &h); err != nil {
		return Metadata{}, err
	}
	return h.Metadata, nil
}

func decode(data []byte, v any) error {
	if len(data) < headerLen {
		return fmt.Errorf("%w: %d bytes", ErrInvalidFormat, len(data))
	}
	if !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidFormat, data[:len(Magic)])
	}
	if ver := data[len(Magic)]; ver != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, ver)
	}
	if err := decMode.Unmarshal(data[headerLen:], v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}
