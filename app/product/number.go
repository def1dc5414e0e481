// Package product contains the catalog endpoints
package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// number accepts both JSON numbers and numeric strings, admin forms send either
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		if s == "" {
			*n = 0
			return nil
		}

		b = []byte(s)
	}

	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid number %q", b)
	}

	*n = number(f)
	return nil
}
