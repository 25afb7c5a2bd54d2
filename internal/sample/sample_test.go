package sample

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestPickFromRoster(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	for range 100 {
		if s := Sender(r); !slices.Contains(Senders, s) {
			t.Fatalf("Sender() = %q, not in roster", s)
		}
		if b := Body(nil); !slices.Contains(Templates, b) {
			t.Fatalf("Body() = %q, not a template", b)
		}
	}
}
