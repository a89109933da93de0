package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"notes-credit-ledger/internal/domain"
)

// Minutes is a credit amount in hundredths of a minute. All balances, costs
// and transaction amounts in the ledger use this fixed-point representation,
// so arithmetic is exact and the wire format ("5.50") round-trips.
type Minutes int64

const minutesScale = 100

// MinutesFromFloat converts a float amount of minutes, rounding half-up to
// two decimal places.
func MinutesFromFloat(v float64) Minutes {
	return Minutes(math.Round(v * minutesScale))
}

// MinutesFromSeconds converts a media duration in seconds to billable
// minutes, rounded half-up to two decimal places.
func MinutesFromSeconds(sec float64) Minutes {
	return MinutesFromFloat(sec / 60.0)
}

// ParseMinutes parses a decimal string such as "5.5", "5.50" or "120".
// More than two fractional digits is an error: amounts are defined with
// two-digit precision and silent truncation would break conservation.
func ParseMinutes(s string) (Minutes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, domain.ErrInvalidArgument
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, domain.ErrInvalidArgument
	}
	if len(frac) > 2 {
		return 0, domain.ErrInvalidArgument
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var n int64
	if whole != "" {
		w, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, domain.ErrInvalidArgument
		}
		n = w * minutesScale
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	n += f
	if neg {
		n = -n
	}
	return Minutes(n), nil
}

func (m Minutes) Float64() float64 { return float64(m) / minutesScale }

// String renders the amount as a decimal with exactly two fractional digits.
func (m Minutes) String() string {
	n := int64(m)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d.%02d", sign, n/minutesScale, n%minutesScale)
}

// MarshalJSON emits a bare decimal literal, e.g. 5.50.
func (m Minutes) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Minutes) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseMinutes(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
