package fees

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalText implements encoding.TextMarshaler so modes render as words in
// JSON and TOML.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Schedule is the operator-facing fee configuration.
type Schedule struct {
	Rate uint64 `json:"rate"`
	Mode Mode   `json:"mode"`
}

// Validate ensures the schedule respects the platform cap.
func (s Schedule) Validate() error {
	return Validate(s.Rate, s.Mode)
}

// UnmarshalTOML accepts both the camelCase JSON keys and the snake_case
// spellings operators tend to write in TOML files (platform_fee_bps,
// fee_mode).
func (s *Schedule) UnmarshalTOML(data interface{}) error {
	table, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("fees: schedule must decode from a table")
	}
	normalized := make(map[string]interface{}, len(table))
	for key, value := range table {
		switch {
		case strings.EqualFold(key, "rate"), strings.EqualFold(key, "platform_fee"),
			strings.EqualFold(key, "platform_fee_bps"), strings.EqualFold(key, "platformFeeBps"):
			normalized["rate"] = value
		case strings.EqualFold(key, "mode"), strings.EqualFold(key, "fee_mode"), strings.EqualFold(key, "feeMode"):
			normalized["mode"] = value
		default:
			normalized[key] = value
		}
	}
	type alias Schedule
	var decoded alias
	blob, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(blob, &decoded); err != nil {
		return err
	}
	*s = Schedule(decoded)
	return nil
}
