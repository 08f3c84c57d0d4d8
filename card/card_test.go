package card

import (
	"encoding/json"
	"math/rand"
	"testing"
)

func TestParseAndString(t *testing.T) {
	for _, tok := range []string{"2c", "9d", "Th", "Js", "Qc", "Kd", "Ah"} {
		c, err := Parse(tok)
		if err != nil {
			t.Fatalf("parse %q: %v", tok, err)
		}
		if got := c.String(); got != tok {
			t.Fatalf("round trip %q -> %q", tok, got)
		}
	}
	for _, bad := range []string{"", "A", "1c", "Ax", "10h", "Ahh"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCardJSONUsesToken(t *testing.T) {
	hand := MustParseList("As", "Td")
	raw, err := json.Marshal(hand)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `["As","Td"]` {
		t.Fatalf("unexpected json %s", raw)
	}
	var back []Card
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[0] != hand[0] || back[1] != hand[1] {
		t.Fatalf("unexpected cards %v", back)
	}
}

func TestHandValueSoftAce(t *testing.T) {
	cases := []struct {
		hand  []string
		total int
		soft  bool
	}{
		{[]string{"Ah", "6c"}, 17, true},
		{[]string{"Ah", "6c", "9d"}, 16, false},
		{[]string{"Ah", "Ad"}, 12, true},
		{[]string{"Ah", "Ad", "Ac", "As"}, 14, true},
		{[]string{"Ks", "Qh"}, 20, false},
		{[]string{"Ks", "Qh", "5c"}, 25, false},
		{[]string{"As", "Kd"}, 21, true},
		{nil, 0, false},
	}
	for _, tc := range cases {
		v := HandValue(MustParseList(tc.hand...))
		if v.Total != tc.total || v.Soft != tc.soft {
			t.Fatalf("hand %v: got %+v, want total=%d soft=%v", tc.hand, v, tc.total, tc.soft)
		}
	}
}

// bestTotal tries every ace assignment and returns the best total <= 21,
// or the all-ones total when everything busts.
func bestTotal(cards []Card) int {
	base, aces := 0, 0
	for _, c := range cards {
		base += c.Points()
		if c.IsAce() {
			aces++
		}
	}
	best := -1
	for promoted := 0; promoted <= aces; promoted++ {
		total := base + 10*promoted
		if total <= 21 && total > best {
			best = total
		}
	}
	if best < 0 {
		return base
	}
	return best
}

func TestHandValueMatchesExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	full := FullDeck()
	for i := 0; i < 2000; i++ {
		n := 1 + rng.Intn(7)
		hand := make([]Card, 0, n)
		for _, idx := range rng.Perm(len(full))[:n] {
			hand = append(hand, full[idx])
		}
		v := HandValue(hand)
		if want := bestTotal(hand); v.Total != want {
			t.Fatalf("hand %v: got %d want %d", Tokens(hand), v.Total, want)
		}
		reversed := make([]Card, len(hand))
		for j := range hand {
			reversed[len(hand)-1-j] = hand[j]
		}
		if HandValue(reversed).Total != v.Total {
			t.Fatalf("hand %v: order dependent total", Tokens(hand))
		}
	}
}

func TestCreateDeckHasUniqueCards(t *testing.T) {
	d := CreateDeck()
	if d.Remaining() != 52 {
		t.Fatalf("expected 52 cards, got %d", d.Remaining())
	}
	seen := make(map[Card]bool, 52)
	for _, c := range d.Cards() {
		if !c.Valid() {
			t.Fatalf("invalid card %v", c)
		}
		if seen[c] {
			t.Fatalf("duplicate card %v", c)
		}
		seen[c] = true
	}
}

func TestCreateDeckOrderingsDiffer(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(1))).Cards()
	b := NewDeck(rand.New(rand.NewSource(2))).Cards()
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected different orderings for different seeds")
	}
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	counts := make(map[Card]int)
	for i := range a {
		counts[a[i]]++
		counts[b[i]]--
	}
	for c, n := range counts {
		if n != 0 {
			t.Fatalf("multiset mismatch on %v", c)
		}
	}
}

func TestDrawUntilExhausted(t *testing.T) {
	d := StackedDeck(MustParseList("Ah", "Kd"))
	first, err := d.Draw()
	if err != nil || first.String() != "Ah" {
		t.Fatalf("first draw: %v %v", first, err)
	}
	second, err := d.Draw()
	if err != nil || second.String() != "Kd" {
		t.Fatalf("second draw: %v %v", second, err)
	}
	if _, err := d.Draw(); err != ErrDeckExhausted {
		t.Fatalf("expected ErrDeckExhausted, got %v", err)
	}
}
