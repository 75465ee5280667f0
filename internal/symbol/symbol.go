// Package symbol handles stock ticker normalization and validation.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// tickerRegex matches 1-5 uppercase letters, optionally followed by a
// single-letter class suffix. Examples: AAPL, MSFT, BRK.B
var tickerRegex = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)

// ErrInvalidTicker is returned for symbols that do not look like a listed
// stock ticker.
var ErrInvalidTicker = errors.New("symbol: invalid ticker")

// Normalize upper-cases and trims a raw ticker string and validates it.
func Normalize(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerRegex.MatchString(ticker) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	return ticker, nil
}
