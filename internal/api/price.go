package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errInvalidPrice = errors.New("price must be a number")

// price accepts a JSON number or a numeric string.
type price float64

func (p *price) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return errInvalidPrice
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errInvalidPrice
		}
		*p = price(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return errInvalidPrice
	}
	*p = price(f)
	return nil
}
