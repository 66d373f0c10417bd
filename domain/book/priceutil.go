package book

import (
	"fmt"
	"strconv"
	"strings"
)

// decimalTickScale fixes decimal prices at exactly 4 fractional
// digits, so "123.4567" becomes the tick count 1234567.
const decimalTickScale = 10000

// TicksFromDecimal parses a decimal price string with up to 4
// fractional digits into a Price expressed in ticks. It rejects more
// precision than the engine can represent rather than silently
// truncating it.
func TicksFromDecimal(s string) (Price, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && len(frac) > 4 {
		return 0, fmt.Errorf("book: price %q has more than 4 fractional digits", s)
	}
	for len(frac) < 4 {
		frac += "0"
	}

	wholeTicks, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("book: invalid price %q: %w", s, err)
	}
	fracTicks, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("book: invalid price %q: %w", s, err)
	}

	ticks := wholeTicks*decimalTickScale + fracTicks
	if neg {
		ticks = -ticks
	}
	return Price(ticks), nil
}

// Spread returns snap.BestAsk - snap.BestBid, or false if either side
// is currently empty.
func Spread(snap *DepthSnapshot) (Price, bool) {
	if snap == nil || snap.BestBid == nil || snap.BestAsk == nil {
		return 0, false
	}
	return *snap.BestAsk - *snap.BestBid, true
}

// MidPrice returns the integer-truncated midpoint of the best bid and
// ask, or false if either side is currently empty.
func MidPrice(snap *DepthSnapshot) (Price, bool) {
	if snap == nil || snap.BestBid == nil || snap.BestAsk == nil {
		return 0, false
	}
	return (*snap.BestBid + *snap.BestAsk) / 2, true
}
