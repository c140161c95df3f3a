package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseInt64 extracts a test run id from a Sidekiq argument. Ruby clients send
// it as a JSON number, occasionally as 12.0, or as a quoted string.
func parseInt64(raw json.RawMessage) (int64, error) {
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if v, err := asNumber.Int64(); err == nil {
			return v, nil
		}
		f, err := asNumber.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
			return 0, fmt.Errorf("not an integer id: %s", asNumber)
		}
		return int64(f), nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if asString == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseInt(asString, 10, 64)
	}

	return 0, fmt.Errorf("unsupported arg: %s", string(raw))
}
