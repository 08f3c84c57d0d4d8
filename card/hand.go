package card

// Value is a computed hand total.
type Value struct {
	Total int  `json:"value"`
	Soft  bool `json:"isSoft"`
}

func (v Value) Bust() bool {
	return v.Total > 21
}

// HandValue sums ranks with aces as 1, then promotes each ace to 11 while the
// total stays at or below 21. Soft reports whether an ace currently counts 11.
func HandValue(cards []Card) Value {
	total := 0
	aces := 0
	for _, c := range cards {
		total += c.Points()
		if c.IsAce() {
			aces++
		}
	}
	soft := false
	for i := 0; i < aces; i++ {
		if total+10 > 21 {
			break
		}
		total += 10
		soft = true
	}
	return Value{Total: total, Soft: soft}
}

// IsNatural reports a two-card 21.
func IsNatural(cards []Card) bool {
	return len(cards) == 2 && HandValue(cards).Total == 21
}
