package stakepool

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// MaxWithdrawAccounts bounds how many stake accounts a single withdraw
// operation will split from. Each split needs a fresh destination stake
// account and its own instruction, so an unbounded walk would not fit
// in one transaction.
const MaxWithdrawAccounts = 5

// WithdrawAccount is a single source the withdraw operation pulls from.
type WithdrawAccount struct {
	// The validator or reserve stake account to split from.
	StakeAddress ed25519.PublicKey
	// The validator's vote account, or nil when pulling from the reserve.
	VoteAddress ed25519.PublicKey
	// The pool tokens to redeem against this account.
	PoolTokens uint64
}

// WithdrawCandidate is a stake account eligible for withdrawal, as seen
// by a CandidateCompare.
type WithdrawCandidate struct {
	StakeAddress ed25519.PublicKey
	VoteAddress  ed25519.PublicKey
	Lamports     uint64
}

// CandidateCompare orders withdraw candidates within a tier. It follows
// the slices.SortStableFunc contract: negative when a sorts before b.
type CandidateCompare func(a, b WithdrawCandidate) int

type candidateTier int

const (
	tierPreferred candidateTier = iota
	tierActive
	tierTransient
	tierReserve
)

type withdrawCandidate struct {
	tier candidateTier
	WithdrawCandidate
}

// prepareWithdrawAccounts selects the stake accounts to split a
// withdrawal across. Candidates are walked tier by tier, preferred
// validator first, then active stake, transient stake, and finally the
// reserve; within a tier the largest balance goes first unless the
// caller supplies a comparator.
//
// Unless the withdrawal fee is waived (deposits to the manager's fee
// account), each account's capacity is inflated by the inverse of the
// fee so the requested amount survives the fee deduction.
func prepareWithdrawAccounts(
	pool *StakePool,
	validatorList *ValidatorList,
	stakePool ed25519.PublicKey,
	poolTokens uint64,
	reserveLamports uint64,
	rentExemption uint64,
	skipFee bool,
	compare CandidateCompare,
) ([]WithdrawAccount, error) {
	minBalance := rentExemption + MinimumActiveStake

	var candidates []withdrawCandidate
	for i := range validatorList.Validators {
		validator := &validatorList.Validators[i]
		if validator.Status != ValidatorStakeStatusActive {
			continue
		}

		if validator.ActiveStakeLamports > 0 {
			stakeAddress, err := DeriveValidatorStakeAccount(stakePool, validator.VoteAccountAddress, 0)
			if err != nil {
				return nil, errors.Wrap(err, "failed to derive validator stake account")
			}

			tier := tierActive
			if pool.PreferredWithdrawValidator.Equal(validator.VoteAccountAddress) {
				tier = tierPreferred
			}

			candidates = append(candidates, withdrawCandidate{
				tier: tier,
				WithdrawCandidate: WithdrawCandidate{
					StakeAddress: stakeAddress,
					VoteAddress:  validator.VoteAccountAddress,
					Lamports:     validator.ActiveStakeLamports,
				},
			})
		}

		if validator.TransientStakeLamports > minBalance {
			stakeAddress, err := DeriveTransientStakeAccount(stakePool, validator.VoteAccountAddress, validator.TransientSeedSuffixStart)
			if err != nil {
				return nil, errors.Wrap(err, "failed to derive transient stake account")
			}

			candidates = append(candidates, withdrawCandidate{
				tier: tierTransient,
				WithdrawCandidate: WithdrawCandidate{
					StakeAddress: stakeAddress,
					VoteAddress:  validator.VoteAccountAddress,
					Lamports:     validator.TransientStakeLamports - minBalance,
				},
			})
		}
	}

	if compare == nil {
		compare = func(a, b WithdrawCandidate) int {
			switch {
			case b.Lamports > a.Lamports:
				return 1
			case b.Lamports < a.Lamports:
				return -1
			}
			return 0
		}
	}
	slices.SortStableFunc(candidates, func(a, b withdrawCandidate) int {
		return compare(a.WithdrawCandidate, b.WithdrawCandidate)
	})

	// The reserve can be drained down to its rent exemption, plus one
	// lamport so the account survives.
	if reserveLamports > rentExemption+1 {
		candidates = append(candidates, withdrawCandidate{
			tier: tierReserve,
			WithdrawCandidate: WithdrawCandidate{
				StakeAddress: pool.ReserveStake,
				Lamports:     reserveLamports - rentExemption - 1,
			},
		})
	}

	fee := pool.StakeWithdrawalFee

	// A zero request consumes no candidates.
	if poolTokens == 0 {
		return nil, nil
	}

	var withdrawFrom []WithdrawAccount
	remaining := poolTokens
	for _, tier := range []candidateTier{tierPreferred, tierActive, tierTransient, tierReserve} {
		for _, candidate := range candidates {
			if candidate.tier != tier {
				continue
			}

			available := pool.PoolTokensForDeposit(candidate.Lamports)
			if !skipFee {
				available = fee.inverse(available)
			}
			if available == 0 {
				continue
			}

			amount := available
			if remaining < amount {
				amount = remaining
			}

			withdrawFrom = append(withdrawFrom, WithdrawAccount{
				StakeAddress: candidate.StakeAddress,
				VoteAddress:  candidate.VoteAddress,
				PoolTokens:   amount,
			})
			if len(withdrawFrom) > MaxWithdrawAccounts {
				return nil, errors.Errorf("withdrawal of %d pool tokens requires more than %d stake accounts", poolTokens, MaxWithdrawAccounts)
			}

			remaining -= amount
			if remaining == 0 {
				break
			}
		}
		if remaining == 0 {
			break
		}
	}

	if remaining > 0 {
		return nil, errors.Errorf("not enough stake in the pool to withdraw %d pool tokens, short %d", poolTokens, remaining)
	}

	return withdrawFrom, nil
}
