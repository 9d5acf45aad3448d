package ledger

import (
	"math/big"
	"testing"
)

// TestIsUnlocked_TruthTable covers P5: for all 4 combinations of
// (timeOk, paymentOk) across the 3 non-empty masks, the predicate matches
// timeOk AND paymentOk.
func TestIsUnlocked_TruthTable(t *testing.T) {
	const unlockTime = int64(1000)
	const requiredPayment = int64(500)

	cases := []struct {
		name            string
		now             int64
		paidAmount      int64
		timeOk          bool
		paymentOk       bool
	}{
		{"both false", 500, 0, false, false},
		{"time only", 1500, 0, true, false},
		{"payment only", 500, 500, false, true},
		{"both true", 1500, 500, true, true},
	}

	masks := []uint8{MaskTime, MaskPayment, MaskTime | MaskPayment}

	for _, mask := range masks {
		for _, c := range cases {
			got := IsUnlocked(mask, c.now, unlockTime, big.NewInt(c.paidAmount), big.NewInt(requiredPayment))

			var want bool
			switch mask {
			case MaskTime:
				want = c.timeOk
			case MaskPayment:
				want = c.paymentOk
			case MaskTime | MaskPayment:
				want = c.timeOk && c.paymentOk
			}

			if got != want {
				t.Errorf("mask=%d case=%s: got %v want %v", mask, c.name, got, want)
			}
		}
	}
}

func TestIsUnlocked_EmptyMaskAlwaysUnlocked(t *testing.T) {
	if !IsUnlocked(0, 0, 1000, big.NewInt(0), big.NewInt(500)) {
		t.Fatal("an empty condition mask should always be unlocked")
	}
}
