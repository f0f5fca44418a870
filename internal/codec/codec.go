// Package codec implements the wire encoding for job payloads and metadata
// stored in the shared store: JSON compressed with zlib. Workers reading the
// same records use the identical encoding, so the format is load-bearing.
package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
)

// Encode marshals v to JSON and compresses the result with zlib.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err = zw.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err = zw.Close(); err != nil {
		return nil, fmt.Errorf("compress close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses a zlib blob and unmarshals the JSON into v.
func Decode(data []byte, v any) error {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress read: %w", err)
	}
	if err = json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
