package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in the resort's single currency.
//
// Stored documents are not strictly typed: a price may arrive as a number, a
// numeric string, an empty string, null or not at all. Anything that is not a
// finite number decodes to zero instead of failing the whole collection.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	*a = 0

	if raw == "" || raw == "null" {
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*a = Amount(v)
	return nil
}

// Float64 returns the amount as a plain float.
func (a Amount) Float64() float64 {
	return float64(a)
}

// String renders the amount the way the site displays prices, e.g. "$300".
func (a Amount) String() string {
	return "$" + strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// Price returns the total for a stay of nights in room.
// A missing room or a non-positive night count prices at zero.
func Price(nights int, room *Room) Amount {
	if room == nil || nights <= 0 {
		return 0
	}
	return Amount(float64(nights) * float64(room.Price))
}
