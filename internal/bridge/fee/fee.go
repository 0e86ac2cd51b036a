// Package fee computes the total fee charged on a cross-chain transfer.
package fee

import "math/bits"

// BasisPointsDenominator is 100% expressed in basis points.
const BasisPointsDenominator = 10_000

// Compute returns floor(amount*protocolFeeBps/10000) + relayerFee.
//
// The product is computed in 128 bits so it cannot overflow for any amount.
// Bps above 10000 are accepted and yield a fee above the amount; callers bound
// that. A result that does not fit in 64 bits saturates at MaxUint64.
func Compute(amount uint64, protocolFeeBps uint16, relayerFee uint64) uint64 {
	hi, lo := bits.Mul64(amount, uint64(protocolFeeBps))
	if hi >= BasisPointsDenominator {
		return ^uint64(0)
	}
	protocol, _ := bits.Div64(hi, lo, BasisPointsDenominator)
	total, carry := bits.Add64(protocol, relayerFee, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return total
}

// Net returns amount minus the fee, or zero when the fee exceeds the amount.
func Net(amount, fee uint64) uint64 {
	if fee >= amount {
		return 0
	}
	return amount - fee
}
