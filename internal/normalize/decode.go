package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotArray = errors.New("expected a JSON array of event objects")

// DecodeRecords decodes a JSON array of objects. Any other top-level shape
// yields ErrNotArray.
func DecodeRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var records []Record
	if err := newDecoder(trimmed).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrNotArray, i)
		}
	}
	return records, nil
}

// DecodeRecord decodes a single JSON object. An empty body returns (nil, nil).
func DecodeRecord(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var r Record
	if err := newDecoder(trimmed).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode event object: %w", err)
	}
	return r, nil
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}
