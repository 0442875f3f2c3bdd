package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidSizeFormat indicates a capacity string that could not be parsed.
var ErrInvalidSizeFormat = errors.New("invalid size format")

// Multipliers are powers of 1024, K through P.
var multipliers = map[byte]int64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
	'P': 1 << 50,
}

// ParseSize converts a human-readable capacity string to a byte count.
// Accepted forms: bare digits ("1024"), digits with a decimal point and a
// unit suffix ("1.5G"), an optional trailing "B" ("500GB"). Unit multipliers
// are powers of 1024. Bare digits are interpreted as a literal byte count.
func ParseSize(spec string) (int64, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSizeFormat)
	}

	// Strip optional trailing "B": "500GB" == "500G", "123B" == "123".
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "B") && len(upper) > 1 {
		prev := upper[len(upper)-2]
		_, isUnit := multipliers[prev]
		if isUnit || (prev >= '0' && prev <= '9') {
			upper = upper[:len(upper)-1]
		}
	}

	mult := int64(1)
	numPart := upper
	last := upper[len(upper)-1]
	if m, ok := multipliers[last]; ok {
		mult = m
		numPart = upper[:len(upper)-1]
	}

	// Only plain decimal numbers qualify. ParseFloat alone would also
	// accept "nan", "inf" and exponent notation.
	if !isDecimal(numPart) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSizeFormat, spec)
	}

	// Fast path for integer counts; avoids float rounding for large values.
	if n, err := strconv.ParseInt(numPart, 10, 64); err == nil {
		if mult > 1 && n > math.MaxInt64/mult {
			return 0, fmt.Errorf("%w: %q exceeds the representable range", ErrInvalidSizeFormat, spec)
		}
		return n * mult, nil
	}

	f, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSizeFormat, spec)
	}
	if f > float64(math.MaxInt64)/float64(mult) {
		return 0, fmt.Errorf("%w: %q exceeds the representable range", ErrInvalidSizeFormat, spec)
	}
	return int64(f * float64(mult)), nil
}

// isDecimal reports whether s is digits with at most one decimal point
// and at least one digit.
func isDecimal(s string) bool {
	digits := 0
	dots := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
