package stakepool

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/stakemint/stakepool-go/pkg/solana"
	"github.com/stakemint/stakepool-go/pkg/solana/stake"
	"github.com/stakemint/stakepool-go/pkg/solana/system"
	"github.com/stakemint/stakepool-go/pkg/solana/token"
)

// FeeType selects which of the pool's fees a SetFee instruction updates.
type FeeType uint8

const (
	FeeTypeSolReferral FeeType = iota
	FeeTypeStakeReferral
	FeeTypeEpoch
	FeeTypeStakeWithdrawal
	FeeTypeSolDeposit
	FeeTypeStakeDeposit
	FeeTypeSolWithdrawal
)

// FundingType selects which funding authority a SetFundingAuthority
// instruction updates.
type FundingType uint8

const (
	FundingTypeStakeDeposit FundingType = iota
	FundingTypeSolDeposit
	FundingTypeSolWithdraw
)

// PreferredValidatorType selects which preferred validator a
// SetPreferredValidator instruction updates.
type PreferredValidatorType uint8

const (
	PreferredValidatorTypeDeposit PreferredValidatorType = iota
	PreferredValidatorTypeWithdraw
)

// InitializeInstruction creates a new stake pool. The stake pool,
// validator list, reserve, mint and fee accounts must already exist.
// depositAuthority is only provided for pools restricting stake
// deposits, and must then sign.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L77
func InitializeInstruction(
	stakePool ed25519.PublicKey,
	manager ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	poolMint ed25519.PublicKey,
	managerFeeAccount ed25519.PublicKey,
	depositAuthority ed25519.PublicKey,
	epochFee Fee,
	withdrawalFee Fee,
	depositFee Fee,
	referralFee uint8,
	maxValidators uint32,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` New StakePool to create
	//   1. `[signer]` Manager
	//   2. `[]` Staker
	//   3. `[]` Stake pool withdraw authority
	//   4. `[writable]` Uninitialized validator stake list storage account
	//   5. `[]` Reserve stake account
	//   6. `[]` Pool token mint
	//   7. `[]` Pool account to deposit the generated fee for manager
	//   8. `[]` Token program id
	//   9. `[]` (Optional) Deposit authority that must sign all deposits
	data := make([]byte, 1+3*16+1+4)

	var offset int
	data[offset] = byte(CommandInitialize)
	offset++
	for _, f := range []Fee{epochFee, withdrawalFee, depositFee} {
		binary.LittleEndian.PutUint64(data[offset:], f.Denominator)
		binary.LittleEndian.PutUint64(data[offset+8:], f.Numerator)
		offset += 16
	}
	data[offset] = referralFee
	offset++
	binary.LittleEndian.PutUint32(data[offset:], maxValidators)

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(manager, true),
		solana.NewReadonlyAccountMeta(staker, false),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewReadonlyAccountMeta(reserveStake, false),
		solana.NewReadonlyAccountMeta(poolMint, false),
		solana.NewReadonlyAccountMeta(managerFeeAccount, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	}
	if len(depositAuthority) > 0 {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(depositAuthority, true))
	}

	return solana.NewInstruction(ProgramKey, data, accounts...)
}

// AddValidatorToPoolInstruction adds a validator to the pool by
// creating its validator stake account, funded from the reserve. A
// non-zero seed selects an alternate validator stake account address.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L95
func AddValidatorToPoolInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	validatorStake ed25519.PublicKey,
	validatorVote ed25519.PublicKey,
	seed uint32,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[signer]` Staker
	//   2. `[writable]` Reserve stake account
	//   3. `[]` Stake pool withdraw authority
	//   4. `[writable]` Validator stake list storage account
	//   5. `[writable]` Stake account to add to the pool
	//   6. `[]` Validator this stake account will be delegated to
	//   7. `[]` Rent sysvar
	//   8. `[]` Clock sysvar
	//   9. `[]` Stake history sysvar
	//  10. `[]` Stake config sysvar
	//  11. `[]` System program
	//  12. `[]` Stake program
	// The seed is always on the wire; zero selects the default validator
	// stake address.
	data := make([]byte, 1+4)
	data[0] = byte(CommandAddValidatorToPool)
	binary.LittleEndian.PutUint32(data[1:], seed)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(validatorStake, false),
		solana.NewReadonlyAccountMeta(validatorVote, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(stake.ConfigKey, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// RemoveValidatorFromPoolInstruction removes a validator from the pool,
// deactivating its validator stake account. The entry is dropped from
// the list by the next epoch update's cleanup.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L113
func RemoveValidatorFromPoolInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	validatorStake ed25519.PublicKey,
	transientStake ed25519.PublicKey,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[signer]` Staker
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator stake list storage account
	//   4. `[writable]` Stake account to remove from the pool
	//   5. `[writable]` Transient stake account, to deactivate if necessary
	//   6. `[]` Sysvar clock
	//   7. `[]` Stake program id
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandRemoveValidatorFromPool)},
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(validatorStake, false),
		solana.NewAccountMeta(transientStake, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// SetPreferredValidatorInstruction pins deposits or withdrawals to a
// single validator. A nil validatorVote clears the preference.
func SetPreferredValidatorInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	validatorType PreferredValidatorType,
	validatorVote ed25519.PublicKey,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[signer]` Stake pool staker
	//   2. `[]` Validator list
	data := []byte{byte(CommandSetPreferredValidator), byte(validatorType)}
	if len(validatorVote) > 0 {
		data = append(data, 1)
		data = append(data, validatorVote...)
	} else {
		data = append(data, 0)
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(validatorList, false),
	)
}

// SetManagerInstruction transfers the pool's manager authority. Both
// the current and the new manager must sign.
func SetManagerInstruction(
	stakePool ed25519.PublicKey,
	manager ed25519.PublicKey,
	newManager ed25519.PublicKey,
	newManagerFeeAccount ed25519.PublicKey,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[signer]` Manager
	//   2. `[signer]` New manager
	//   3. `[]` New manager fee account
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandSetManager)},
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(manager, true),
		solana.NewReadonlyAccountMeta(newManager, true),
		solana.NewReadonlyAccountMeta(newManagerFeeAccount, false),
	)
}

// SetFeeInstruction updates one of the pool's fees. Fee increases take
// effect after the following epoch boundary.
func SetFeeInstruction(
	stakePool ed25519.PublicKey,
	manager ed25519.PublicKey,
	feeType FeeType,
	fee Fee,
	referralFee uint8,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[signer]` Manager
	//
	// The payload is a borsh enum. Referral variants carry a single
	// basis point byte, the rest carry a Fee.
	data := []byte{byte(CommandSetFee), byte(feeType)}
	switch feeType {
	case FeeTypeSolReferral, FeeTypeStakeReferral:
		data = append(data, referralFee)
	default:
		var b [16]byte
		binary.LittleEndian.PutUint64(b[:], fee.Denominator)
		binary.LittleEndian.PutUint64(b[8:], fee.Numerator)
		data = append(data, b[:]...)
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(manager, true),
	)
}

// SetStakerInstruction replaces the pool's staker authority. Signed by
// either the manager or the current staker.
func SetStakerInstruction(
	stakePool ed25519.PublicKey,
	signer ed25519.PublicKey,
	newStaker ed25519.PublicKey,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[signer]` Manager or current staker
	//   2. `[]` New staker pubkey
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandSetStaker)},
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(signer, true),
		solana.NewReadonlyAccountMeta(newStaker, false),
	)
}

// SetFundingAuthorityInstruction replaces one of the pool's funding
// authorities. A nil newAuthority makes the funding type public.
func SetFundingAuthorityInstruction(
	stakePool ed25519.PublicKey,
	manager ed25519.PublicKey,
	newAuthority ed25519.PublicKey,
	fundingType FundingType,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[signer]` Manager
	//   2. `[]` (Optional) New funding authority
	data := []byte{byte(CommandSetFundingAuthority), byte(fundingType)}

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(manager, true),
	}
	if len(newAuthority) > 0 {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(newAuthority, false))
	}

	return solana.NewInstruction(ProgramKey, data, accounts...)
}
