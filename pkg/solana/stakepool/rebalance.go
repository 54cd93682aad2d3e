package stakepool

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/stakemint/stakepool-go/pkg/solana"
	"github.com/stakemint/stakepool-go/pkg/solana/stake"
	"github.com/stakemint/stakepool-go/pkg/solana/system"
	"github.com/stakemint/stakepool-go/pkg/solana/token"
)

// IncreaseValidatorStakeInstruction moves lamports from the reserve
// onto a validator through a freshly derived transient stake account.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L150
func IncreaseValidatorStakeInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	transientStake ed25519.PublicKey,
	validatorVote ed25519.PublicKey,
	lamports uint64,
	transientStakeSeed uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Stake pool staker
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator list
	//   4. `[writable]` Stake pool reserve stake
	//   5. `[writable]` Transient stake account
	//   6. `[]` Validator vote account to delegate to
	//   7. `[]` Clock sysvar
	//   8. `[]` Rent sysvar
	//   9. `[]` Stake History sysvar
	//  10. `[]` Stake Config sysvar
	//  11. `[]` System program
	//  12. `[]` Stake program
	data := make([]byte, 1+8+8)
	data[0] = byte(CommandIncreaseValidatorStake)
	binary.LittleEndian.PutUint64(data[1:], lamports)
	binary.LittleEndian.PutUint64(data[9:], transientStakeSeed)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewAccountMeta(transientStake, false),
		solana.NewReadonlyAccountMeta(validatorVote, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(stake.ConfigKey, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

type DecompiledIncreaseValidatorStake struct {
	StakePool          ed25519.PublicKey
	Staker             ed25519.PublicKey
	WithdrawAuthority  ed25519.PublicKey
	ValidatorList      ed25519.PublicKey
	ReserveStake       ed25519.PublicKey
	TransientStake     ed25519.PublicKey
	ValidatorVote      ed25519.PublicKey
	Lamports           uint64
	TransientStakeSeed uint64
}

func DecompileIncreaseValidatorStake(m solana.Message, index int) (*DecompiledIncreaseValidatorStake, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || i.Data[0] != byte(CommandIncreaseValidatorStake) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Data) != 17 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	if len(i.Accounts) != 13 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	return &DecompiledIncreaseValidatorStake{
		StakePool:          m.Accounts[i.Accounts[0]],
		Staker:             m.Accounts[i.Accounts[1]],
		WithdrawAuthority:  m.Accounts[i.Accounts[2]],
		ValidatorList:      m.Accounts[i.Accounts[3]],
		ReserveStake:       m.Accounts[i.Accounts[4]],
		TransientStake:     m.Accounts[i.Accounts[5]],
		ValidatorVote:      m.Accounts[i.Accounts[6]],
		Lamports:           binary.LittleEndian.Uint64(i.Data[1:]),
		TransientStakeSeed: binary.LittleEndian.Uint64(i.Data[9:]),
	}, nil
}

// IncreaseAdditionalValidatorStakeInstruction increases stake onto a
// transient account that already exists, hopping through an ephemeral
// stake account so the in-flight transient balance is left untouched.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L549
func IncreaseAdditionalValidatorStakeInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	ephemeralStake ed25519.PublicKey,
	transientStake ed25519.PublicKey,
	validatorVote ed25519.PublicKey,
	lamports uint64,
	transientStakeSeed uint64,
	ephemeralStakeSeed uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Stake pool staker
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator list
	//   4. `[writable]` Stake pool reserve stake
	//   5. `[writable]` Uninitialized ephemeral stake account to receive stake
	//   6. `[writable]` Transient stake account
	//   7. `[]` Validator vote account to delegate to
	//   8. `[]` Clock sysvar
	//   9. `[]` Stake History sysvar
	//  10. `[]` Stake Config sysvar
	//  11. `[]` System program
	//  12. `[]` Stake program
	data := make([]byte, 1+8+8+8)
	data[0] = byte(CommandIncreaseAdditionalValidatorStake)
	binary.LittleEndian.PutUint64(data[1:], lamports)
	binary.LittleEndian.PutUint64(data[9:], transientStakeSeed)
	binary.LittleEndian.PutUint64(data[17:], ephemeralStakeSeed)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewAccountMeta(ephemeralStake, false),
		solana.NewAccountMeta(transientStake, false),
		solana.NewReadonlyAccountMeta(validatorVote, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(stake.ConfigKey, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// DecreaseValidatorStakeWithReserveInstruction deactivates stake from a
// validator into a transient account, paying the transient rent from
// the pool reserve.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L663
func DecreaseValidatorStakeWithReserveInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	validatorStake ed25519.PublicKey,
	transientStake ed25519.PublicKey,
	lamports uint64,
	transientStakeSeed uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Stake pool staker
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator list
	//   4. `[writable]` Reserve stake account, to fund rent exempt reserve
	//   5. `[writable]` Canonical stake account to split from
	//   6. `[writable]` Transient stake account to receive split
	//   7. `[]` Clock sysvar
	//   8. `[]` Stake history sysvar
	//   9. `[]` System program
	//  10. `[]` Stake program
	data := make([]byte, 1+8+8)
	data[0] = byte(CommandDecreaseValidatorStakeWithReserve)
	binary.LittleEndian.PutUint64(data[1:], lamports)
	binary.LittleEndian.PutUint64(data[9:], transientStakeSeed)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewAccountMeta(validatorStake, false),
		solana.NewAccountMeta(transientStake, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

type DecompiledDecreaseValidatorStakeWithReserve struct {
	StakePool          ed25519.PublicKey
	Staker             ed25519.PublicKey
	WithdrawAuthority  ed25519.PublicKey
	ValidatorList      ed25519.PublicKey
	ReserveStake       ed25519.PublicKey
	ValidatorStake     ed25519.PublicKey
	TransientStake     ed25519.PublicKey
	Lamports           uint64
	TransientStakeSeed uint64
}

func DecompileDecreaseValidatorStakeWithReserve(m solana.Message, index int) (*DecompiledDecreaseValidatorStakeWithReserve, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || i.Data[0] != byte(CommandDecreaseValidatorStakeWithReserve) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Data) != 17 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	if len(i.Accounts) != 11 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	return &DecompiledDecreaseValidatorStakeWithReserve{
		StakePool:          m.Accounts[i.Accounts[0]],
		Staker:             m.Accounts[i.Accounts[1]],
		WithdrawAuthority:  m.Accounts[i.Accounts[2]],
		ValidatorList:      m.Accounts[i.Accounts[3]],
		ReserveStake:       m.Accounts[i.Accounts[4]],
		ValidatorStake:     m.Accounts[i.Accounts[5]],
		TransientStake:     m.Accounts[i.Accounts[6]],
		Lamports:           binary.LittleEndian.Uint64(i.Data[1:]),
		TransientStakeSeed: binary.LittleEndian.Uint64(i.Data[9:]),
	}, nil
}

// DecreaseValidatorStakeInstruction is the legacy form of
// DecreaseValidatorStakeWithReserveInstruction. It funds the transient
// account's rent from the validator stake account itself, which leaves
// inactive lamports on the transient account for an epoch.
//
// Deprecated: use DecreaseValidatorStakeWithReserveInstruction.
func DecreaseValidatorStakeInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	validatorStake ed25519.PublicKey,
	transientStake ed25519.PublicKey,
	lamports uint64,
	transientStakeSeed uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Stake pool staker
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator list
	//   4. `[writable]` Canonical stake account to split from
	//   5. `[writable]` Transient stake account to receive split
	//   6. `[]` Clock sysvar
	//   7. `[]` Rent sysvar
	//   8. `[]` System program
	//   9. `[]` Stake program
	data := make([]byte, 1+8+8)
	data[0] = byte(CommandDecreaseValidatorStake)
	binary.LittleEndian.PutUint64(data[1:], lamports)
	binary.LittleEndian.PutUint64(data[9:], transientStakeSeed)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(validatorStake, false),
		solana.NewAccountMeta(transientStake, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// DecreaseAdditionalValidatorStakeInstruction deactivates additional
// stake while a transient account is already in flight, hopping through
// an ephemeral stake account.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L604
func DecreaseAdditionalValidatorStakeInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	validatorStake ed25519.PublicKey,
	ephemeralStake ed25519.PublicKey,
	transientStake ed25519.PublicKey,
	lamports uint64,
	transientStakeSeed uint64,
	ephemeralStakeSeed uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Stake pool staker
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator list
	//   4. `[writable]` Reserve stake account, to fund rent exempt reserve
	//   5. `[writable]` Canonical stake account to split from
	//   6. `[writable]` Uninitialized ephemeral stake account to receive stake
	//   7. `[writable]` Transient stake account
	//   8. `[]` Clock sysvar
	//   9. `[]` Stake history sysvar
	//  10. `[]` System program
	//  11. `[]` Stake program
	data := make([]byte, 1+8+8+8)
	data[0] = byte(CommandDecreaseAdditionalValidatorStake)
	binary.LittleEndian.PutUint64(data[1:], lamports)
	binary.LittleEndian.PutUint64(data[9:], transientStakeSeed)
	binary.LittleEndian.PutUint64(data[17:], ephemeralStakeSeed)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewAccountMeta(validatorStake, false),
		solana.NewAccountMeta(ephemeralStake, false),
		solana.NewAccountMeta(transientStake, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// RedelegateInstruction moves active stake from one validator to
// another without passing through the reserve. The stake activates on
// the destination over the following epoch.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L715
func RedelegateInstruction(
	stakePool ed25519.PublicKey,
	staker ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	sourceValidatorStake ed25519.PublicKey,
	sourceTransientStake ed25519.PublicKey,
	ephemeralStake ed25519.PublicKey,
	destinationTransientStake ed25519.PublicKey,
	destinationValidatorStake ed25519.PublicKey,
	destinationValidatorVote ed25519.PublicKey,
	lamports uint64,
	sourceTransientStakeSeed uint64,
	ephemeralStakeSeed uint64,
	destinationTransientStakeSeed uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Stake pool staker
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator list
	//   4. `[writable]` Source canonical stake account to split from
	//   5. `[writable]` Source transient stake account
	//   6. `[writable]` Uninitialized ephemeral stake account
	//   7. `[writable]` Destination transient stake account
	//   8. `[]` Destination stake account
	//   9. `[]` Destination validator vote account
	//  10. `[]` Clock sysvar
	//  11. `[]` Stake History sysvar
	//  12. `[]` Stake Config sysvar
	//  13. `[]` System program
	//  14. `[]` Stake program
	data := make([]byte, 1+4*8)
	data[0] = byte(CommandRedelegate)
	binary.LittleEndian.PutUint64(data[1:], lamports)
	binary.LittleEndian.PutUint64(data[9:], sourceTransientStakeSeed)
	binary.LittleEndian.PutUint64(data[17:], ephemeralStakeSeed)
	binary.LittleEndian.PutUint64(data[25:], destinationTransientStakeSeed)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(staker, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(sourceValidatorStake, false),
		solana.NewAccountMeta(sourceTransientStake, false),
		solana.NewAccountMeta(ephemeralStake, false),
		solana.NewAccountMeta(destinationTransientStake, false),
		solana.NewReadonlyAccountMeta(destinationValidatorStake, false),
		solana.NewReadonlyAccountMeta(destinationValidatorVote, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(stake.ConfigKey, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// UpdateValidatorListBalanceInstruction merges completed transient
// stake for a window of the validator list, starting at startIndex.
// Each entry in validatorStakePairs is the (validator stake, transient
// stake) account pair for one validator in the window, in list order.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L204
func UpdateValidatorListBalanceInstruction(
	stakePool ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	validatorStakePairs [][2]ed25519.PublicKey,
	startIndex uint32,
	noMerge bool,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[]` Stake pool withdraw authority
	//   2. `[writable]` Validator stake list storage account
	//   3. `[writable]` Reserve stake account
	//   4. `[]` Sysvar clock
	//   5. `[]` Sysvar stake history
	//   6. `[]` Stake program
	//   7. ..7+2N `[writable]` N pairs of validator and transient stake accounts
	data := make([]byte, 1+4+1)
	data[0] = byte(CommandUpdateValidatorListBalance)
	binary.LittleEndian.PutUint32(data[1:], startIndex)
	if noMerge {
		data[5] = 1
	}

	accounts := []solana.AccountMeta{
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	}
	for _, pair := range validatorStakePairs {
		accounts = append(accounts,
			solana.NewAccountMeta(pair[0], false),
			solana.NewAccountMeta(pair[1], false),
		)
	}

	return solana.NewInstruction(ProgramKey, data, accounts...)
}

// UpdateStakePoolBalanceInstruction recomputes the pool's total
// lamports and mints the epoch fee to the manager.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L223
func UpdateStakePoolBalanceInstruction(
	stakePool ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	managerFeeAccount ed25519.PublicKey,
	poolMint ed25519.PublicKey,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[]` Stake pool withdraw authority
	//   2. `[writable]` Validator stake list storage account
	//   3. `[]` Reserve stake account
	//   4. `[writable]` Account to receive pool fee tokens
	//   5. `[writable]` Pool mint account
	//   6. `[]` Pool token program
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandUpdateStakePoolBalance)},
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewReadonlyAccountMeta(reserveStake, false),
		solana.NewAccountMeta(managerFeeAccount, false),
		solana.NewAccountMeta(poolMint, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

// CleanupRemovedValidatorEntriesInstruction drops validator list
// entries that have reached ReadyForRemoval.
func CleanupRemovedValidatorEntriesInstruction(
	stakePool ed25519.PublicKey,
	validatorList ed25519.PublicKey,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[writable]` Validator stake list storage account
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandCleanupRemovedValidatorEntries)},
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewAccountMeta(validatorList, false),
	)
}
