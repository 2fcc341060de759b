package games

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// intParam reads an integer parameter from a JSON-decoded params map. Missing
// keys yield def; the first key present wins.
func intParam(params map[string]any, def int, keys ...string) (int, error) {
	if params == nil {
		return def, nil
	}

	for _, key := range keys {
		raw, ok := params[key]
		if !ok || raw == nil {
			continue
		}

		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case uint64:
			return int(v), nil
		case float64:
			if math.Mod(v, 1) != 0 {
				return 0, fmt.Errorf("%w: %s must be an integer, got %f", ErrInvalidConfiguration, key, v)
			}
			return int(v), nil
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return 0, fmt.Errorf("%w: invalid %s value %q", ErrInvalidConfiguration, key, v)
			}
			return parsed, nil
		default:
			return 0, fmt.Errorf("%w: unsupported type for %s: %T", ErrInvalidConfiguration, key, raw)
		}
	}

	return def, nil
}

// stringParam reads a lower-cased string parameter.
func stringParam(params map[string]any, def string, key string) (string, error) {
	if params == nil {
		return def, nil
	}

	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: unsupported type for %s: %T", ErrInvalidConfiguration, key, raw)
	}

	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def, nil
	}
	return s, nil
}
