package network

import (
	"fmt"
	"math"
)

// Pipeline files are decoded into generic maps, so numbers arrive as int,
// int64, uint64 or float64 depending on the decoder.

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("parameter %s: expected a number, got %T", key, raw)
}

func intParam(params map[string]any, key string, def int) (int, error) {
	f, err := floatParam(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("parameter %s: expected an integer, got %g", key, f)
	}
	return int(f), nil
}

func stringParam(params map[string]any, key, def string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s: expected a string, got %T", key, raw)
	}
	return s, nil
}

// cellsParam reads a list of [col, row] pairs.
func cellsParam(params map[string]any, key string) ([][2]int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %s: expected a list of [col, row] pairs", key)
	}
	out := make([][2]int, 0, len(list))
	for i, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("parameter %s[%d]: expected [col, row]", key, i)
		}
		var cell [2]int
		for k := range cell {
			n, err := intParam(map[string]any{"v": pair[k]}, "v", 0)
			if err != nil {
				return nil, fmt.Errorf("parameter %s[%d]: %w", key, i, err)
			}
			cell[k] = n
		}
		out = append(out, cell)
	}
	return out, nil
}

func positive(key string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("parameter %s must be positive, got %g", key, v)
	}
	return nil
}
