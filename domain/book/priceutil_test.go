package book

import "testing"

func TestTicksFromDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    Price
		wantErr bool
	}{
		{"100", 1000000, false},
		{"100.5", 1005000, false},
		{"100.1234", 1001234, false},
		{"-50.25", -502500, false},
		{"100.12345", 0, true},
		{"not-a-number", 0, true},
	}
	for _, c := range cases {
		got, err := TicksFromDecimal(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("TicksFromDecimal(%q) expected error, got nil", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("TicksFromDecimal(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("TicksFromDecimal(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSpreadAndMidPrice(t *testing.T) {
	bid, ask := Price(100), Price(104)
	snap := &DepthSnapshot{BestBid: &bid, BestAsk: &ask}

	spread, ok := Spread(snap)
	if !ok || spread != 4 {
		t.Errorf("Spread() = %d, %v; want 4, true", spread, ok)
	}

	mid, ok := MidPrice(snap)
	if !ok || mid != 102 {
		t.Errorf("MidPrice() = %d, %v; want 102, true", mid, ok)
	}
}

func TestSpreadAndMidPrice_EmptySideReturnsFalse(t *testing.T) {
	snap := &DepthSnapshot{}
	if _, ok := Spread(snap); ok {
		t.Error("Spread() on empty snapshot should return false")
	}
	if _, ok := MidPrice(snap); ok {
		t.Error("MidPrice() on empty snapshot should return false")
	}
}
