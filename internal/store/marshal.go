package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/fluentchain/internal/trace"
)

// marshalValue converts a snapshot value to canonical JSON TEXT.
func marshalValue(v any) (string, error) {
	data, err := trace.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back into snapshot form.
// Numbers go through json.Number so integers above 2^53 keep their value.
func unmarshalValue(data string) (any, error) {
	if data == "" || data == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v)
}

func normalizeNumbers(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return f, nil
	case []any:
		for i, e := range x {
			n, err := normalizeNumbers(e)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	case map[string]any:
		for k, e := range x {
			n, err := normalizeNumbers(e)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	}
	return v, nil
}
