package market

import "testing"

func TestMarketEvent_AffectsBook(t *testing.T) {
	cases := []struct {
		kind EventKind
		want bool
	}{
		{EventOrder, true},
		{EventCancel, true},
		{EventTrade, false},
		{EventQuote, false},
	}
	for _, c := range cases {
		if got := (MarketEvent{Kind: c.kind}).AffectsBook(); got != c.want {
			t.Errorf("AffectsBook(%v) = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestMarketEvent_IsMarketData(t *testing.T) {
	cases := []struct {
		kind EventKind
		want bool
	}{
		{EventTrade, true},
		{EventQuote, true},
		{EventOrder, false},
		{EventCancel, false},
	}
	for _, c := range cases {
		if got := (MarketEvent{Kind: c.kind}).IsMarketData(); got != c.want {
			t.Errorf("IsMarketData(%v) = %v, want %v", c.kind, got, c.want)
		}
	}
}
