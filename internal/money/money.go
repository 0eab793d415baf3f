package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Amount is an exact monetary value: a decimal string such as "500.00" paired
// with an ISO currency code. Arithmetic and comparison happen in integer minor
// units (cents), never in binary floating point.
type Amount struct {
	minor    int64
	currency string
}

var (
	ErrInvalidAmount    = errors.New("invalid decimal amount")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Parse converts a decimal string with at most two fractional digits into an
// Amount. Supplier and processor APIs both quote prices in this form.
func Parse(value, currency string) (Amount, error) {
	value = strings.TrimSpace(value)
	if value == "" || currency == "" {
		return Amount{}, fmt.Errorf("%w: %q %q", ErrInvalidAmount, value, currency)
	}

	negative := false
	if strings.HasPrefix(value, "-") {
		negative = true
		value = value[1:]
	}

	wholePart := value
	fracPart := ""
	if i := strings.IndexByte(value, '.'); i >= 0 {
		wholePart, fracPart = value[:i], value[i+1:]
	}
	if wholePart == "" {
		wholePart = "0"
	}
	if len(fracPart) > 2 {
		return Amount{}, fmt.Errorf("%w: %q has more than two fractional digits", ErrInvalidAmount, value)
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	whole, err := strconv.ParseInt(wholePart, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	minor := whole*100 + frac
	if negative {
		minor = -minor
	}
	return Amount{minor: minor, currency: strings.ToUpper(currency)}, nil
}

// MustParse is Parse for test fixtures and constants known to be well formed.
func MustParse(value, currency string) Amount {
	a, err := Parse(value, currency)
	if err != nil {
		panic(err)
	}
	return a
}

// MinorUnits returns the amount in cents, the unit Stripe charges in.
func (a Amount) MinorUnits() int64 { return a.minor }

// Currency returns the ISO currency code, upper case.
func (a Amount) Currency() string { return a.currency }

// IsZero reports whether the amount is the zero value.
func (a Amount) IsZero() bool { return a.currency == "" }

// String renders the canonical decimal form, e.g. "500.00".
func (a Amount) String() string {
	minor := a.minor
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// Sub returns a-b. Both amounts must share a currency.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.currency != b.currency {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.currency, b.currency)
	}
	return Amount{minor: a.minor - b.minor, currency: a.currency}, nil
}

// LessOrEqual reports a <= b. Both amounts must share a currency.
func (a Amount) LessOrEqual(b Amount) (bool, error) {
	if a.currency != b.currency {
		return false, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.currency, b.currency)
	}
	return a.minor <= b.minor, nil
}

// Equal reports whether both value and currency match.
func (a Amount) Equal(b Amount) bool {
	return a.currency == b.currency && a.minor == b.minor
}
