package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrDecompress is wrapped by Decode when the gzip layer is malformed.
	ErrDecompress = errors.New("decompress envelope")
	// ErrParse is wrapped by Decode when the JSON layer is malformed.
	ErrParse = errors.New("parse envelope")
)

// Decode gunzips raw and parses the resulting JSON envelope.
func Decode(raw []byte) (*LogEnvelope, error) {
	data, err := Decompress(raw)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Decompress returns the gunzipped contents of raw.
func Decompress(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	return data, nil
}

// Parse decodes a JSON envelope.
func Parse(data []byte) (*LogEnvelope, error) {
	var env LogEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &env, nil
}

// Encode is the inverse of Decode. It is used to build fixtures and by
// callers that need to synthesize subscription records.
func Encode(env *LogEnvelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compress envelope: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress envelope: %w", err)
	}
	return buf.Bytes(), nil
}
