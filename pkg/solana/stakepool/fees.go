package stakepool

import (
	"fmt"
	"math/big"
)

// LamportsPerSol is the number of lamports in one SOL.
const LamportsPerSol = 1_000_000_000

// PoolTokensForDeposit converts a lamport deposit into the number of
// pool tokens to mint, before fees. The intermediate product can exceed
// 64 bits, so the math is done with big integers and the result floored.
//
// A pool with no supply or no lamports prices deposits 1:1.
func (s *StakePool) PoolTokensForDeposit(lamports uint64) uint64 {
	if s.PoolTokenSupply == 0 || s.TotalLamports == 0 {
		return lamports
	}

	num := new(big.Int).Mul(
		new(big.Int).SetUint64(lamports),
		new(big.Int).SetUint64(s.PoolTokenSupply),
	)
	return num.Div(num, new(big.Int).SetUint64(s.TotalLamports)).Uint64()
}

// LamportsForPoolTokens converts a pool token amount into the lamports
// it redeems for, floored.
func (s *StakePool) LamportsForPoolTokens(poolTokens uint64) uint64 {
	if s.PoolTokenSupply == 0 {
		return 0
	}

	num := new(big.Int).Mul(
		new(big.Int).SetUint64(poolTokens),
		new(big.Int).SetUint64(s.TotalLamports),
	)
	return num.Div(num, new(big.Int).SetUint64(s.PoolTokenSupply)).Uint64()
}

// Apply returns the fee taken from amount, floored.
func (f Fee) Apply(amount uint64) uint64 {
	if f.IsZero() {
		return 0
	}

	num := new(big.Int).Mul(
		new(big.Int).SetUint64(amount),
		new(big.Int).SetUint64(f.Numerator),
	)
	return num.Div(num, new(big.Int).SetUint64(f.Denominator)).Uint64()
}

// inverse returns the gross amount that nets to amount after the fee is
// taken, floored. Used to size withdrawals so the post-fee amount
// matches a stake account's capacity.
func (f Fee) inverse(amount uint64) uint64 {
	if f.IsZero() || f.Numerator >= f.Denominator {
		return amount
	}

	num := new(big.Int).Mul(
		new(big.Int).SetUint64(amount),
		new(big.Int).SetUint64(f.Denominator),
	)
	return num.Div(num, new(big.Int).SetUint64(f.Denominator-f.Numerator)).Uint64()
}

// FormatLamports renders a lamport amount as a decimal SOL string.
func FormatLamports(lamports uint64) string {
	return fmt.Sprintf("%d.%09d", lamports/LamportsPerSol, lamports%LamportsPerSol)
}
