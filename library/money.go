package library

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is an amount of money in hundredths of a dollar. Fines are kept as
// integers so repeated accrual never drifts.
type Cents int64

func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, int64(c)/100, int64(c)%100)
}

// ParseCents reads a non-negative amount such as "3", "3.5", "3.50" or "$3.50".
func ParseCents(s string) (Cents, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if units > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	var cents uint64
	if hasFrac {
		if frac == "" || len(frac) > 2 {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		if cents, err = strconv.ParseUint(frac, 10, 8); err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	return Cents(units*100 + cents), nil
}
