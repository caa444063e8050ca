package store

import (
	"fmt"

	"github.com/roach88/northwind/internal/ir"
)

// marshalPayload converts a record payload to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so that identical records produce identical
// bytes, which keeps packaged files reproducible.
func marshalPayload(payload ir.Object) (string, error) {
	if payload == nil {
		payload = ir.Object{}
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses a stored payload. Values come back loosely typed;
// the registry narrows them to each attribute's kind.
func unmarshalPayload(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal payload: expected object, got %s", v.Kind())
	}
	return obj, nil
}
