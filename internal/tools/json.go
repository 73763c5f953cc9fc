package tools

import (
	"encoding/json"
	"fmt"
)

// ParseArgs decodes the model-supplied JSON arguments into T.
// An empty string decodes as an empty object.
func ParseArgs[T any](argsJSON string) (T, error) {
	var v T
	if argsJSON == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(argsJSON), &v); err != nil {
		return v, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return v, nil
}

// JSONResult marshals v as the text returned to the model.
func JSONResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(b), nil
}
