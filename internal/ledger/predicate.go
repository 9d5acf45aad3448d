package ledger

import "math/big"

// IsUnlocked mirrors the ledger's unlock predicate exactly:
//
//	timeOk    = (mask & TIME)    == 0 OR now >= unlockTime
//	paymentOk = (mask & PAYMENT) == 0 OR paidAmount >= requiredPayment
//	isUnlocked = timeOk AND paymentOk
//
// Both flags are ANDed; the historical "OR" semantics are rejected.
func IsUnlocked(mask uint8, now, unlockTime int64, paidAmount, requiredPayment *big.Int) bool {
	timeOk := mask&MaskTime == 0 || now >= unlockTime
	paymentOk := mask&MaskPayment == 0 || paidAmount.Cmp(requiredPayment) >= 0
	return timeOk && paymentOk
}
