// Package config provides configuration loading and parsing for feedrig.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupSetting searches for a value in settings using multiple candidate keys.
// It performs case-insensitive matching by also checking lowercase versions.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		lower := strings.ToLower(key)
		if val, ok := settings[lower]; ok {
			return val, true
		}
	}
	return nil, false
}

// asString converts an interface value to a string.
func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// asInt converts an interface value to an int, accepting numeric types
// and numeric strings.
func asInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", value)
	}
}

// asInt64 converts an interface value to an int64.
func asInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		return n, nil
	default:
		n, err := asInt(value)
		return int64(n), err
	}
}

// asFloat converts an interface value to a float64.
func asFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}

// asBool converts an interface value to a bool.
func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("cannot parse %q as boolean", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

// asDuration converts an interface value to a time.Duration. Strings use
// Go duration syntax ("30s", "1m"); bare numbers are taken as seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as duration", v)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to duration", value)
	}
}

// asStringSlice converts an interface value to []string.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to string list", value)
	}
}

// asSettingsMap converts an interface value to a settings map.
func asSettingsMap(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			s, err := asString(key)
			if err != nil {
				return nil, err
			}
			out[strings.ToLower(s)] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to mapping", value)
	}
}

// asSettingsList converts an interface value to a list of settings maps.
func asSettingsList(value interface{}) ([]map[string]interface{}, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to list", value)
	}
	out := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		m, err := asSettingsMap(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// asStringMap converts an interface value to map[string]string.
func asStringMap(value interface{}) (map[string]string, error) {
	m, err := asSettingsMap(value)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for key, val := range m {
		s, err := asString(val)
		if err != nil {
			return nil, err
		}
		out[key] = s
	}
	return out, nil
}
