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

// DepositSolInstruction deposits lamports into the pool reserve in
// exchange for pool tokens. solDepositAuthority is only provided for
// pools with a private SOL deposit authority, and must then sign.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L415
func DepositSolInstruction(
	stakePool ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	fundingAccount ed25519.PublicKey,
	destinationPoolAccount ed25519.PublicKey,
	managerFeeAccount ed25519.PublicKey,
	referralPoolAccount ed25519.PublicKey,
	poolMint ed25519.PublicKey,
	solDepositAuthority ed25519.PublicKey,
	lamports uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[]` Stake pool withdraw authority
	//   2. `[writable]` Reserve stake account
	//   3. `[writable, signer]` Account providing the lamports to be deposited into the pool
	//   4. `[writable]` User account to receive pool tokens
	//   5. `[writable]` Account to receive fee tokens
	//   6. `[writable]` Account to receive a portion of fee as referral fees
	//   7. `[writable]` Pool token mint account
	//   8. `[]` System program account
	//   9. `[]` Token program id
	//  10. `[signer]` (Optional) Stake pool sol deposit authority
	data := make([]byte, 1+8)
	data[0] = byte(CommandDepositSol)
	binary.LittleEndian.PutUint64(data[1:], lamports)

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewAccountMeta(fundingAccount, true),
		solana.NewAccountMeta(destinationPoolAccount, false),
		solana.NewAccountMeta(managerFeeAccount, false),
		solana.NewAccountMeta(referralPoolAccount, false),
		solana.NewAccountMeta(poolMint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	}
	if len(solDepositAuthority) > 0 {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(solDepositAuthority, true))
	}

	return solana.NewInstruction(ProgramKey, data, accounts...)
}

// DepositStakeInstruction deposits an active stake account into the
// pool in exchange for pool tokens. depositAuthoritySigns is set for
// pools with a private stake deposit authority.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L244
func DepositStakeInstruction(
	stakePool ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	depositAuthority ed25519.PublicKey,
	depositAuthoritySigns bool,
	withdrawAuthority ed25519.PublicKey,
	depositStake ed25519.PublicKey,
	validatorStake ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	destinationPoolAccount ed25519.PublicKey,
	managerFeeAccount ed25519.PublicKey,
	referralPoolAccount ed25519.PublicKey,
	poolMint ed25519.PublicKey,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[writable]` Validator stake list storage account
	//   2. `[signer]/[]` Stake pool deposit authority
	//   3. `[]` Stake pool withdraw authority
	//   4. `[writable]` Stake account to join the pool
	//   5. `[writable]` Validator stake account for the stake account to be merged with
	//   6. `[writable]` Reserve stake account, to withdraw rent exempt reserve
	//   7. `[writable]` User account to receive pool tokens
	//   8. `[writable]` Account to receive pool fee tokens
	//   9. `[writable]` Account to receive a portion of pool fee tokens as referral fees
	//  10. `[writable]` Pool token mint account
	//  11. `[]` Sysvar clock account
	//  12. `[]` Sysvar stake history account
	//  13. `[]` Pool token program id
	//  14. `[]` Stake program id
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandDepositStake)},
		solana.NewAccountMeta(stakePool, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewReadonlyAccountMeta(depositAuthority, depositAuthoritySigns),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(depositStake, false),
		solana.NewAccountMeta(validatorStake, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewAccountMeta(destinationPoolAccount, false),
		solana.NewAccountMeta(managerFeeAccount, false),
		solana.NewAccountMeta(referralPoolAccount, false),
		solana.NewAccountMeta(poolMint, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// WithdrawStakeInstruction burns pool tokens and splits the redeemed
// lamports out of sourceStake into destinationStake.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L304
func WithdrawStakeInstruction(
	stakePool ed25519.PublicKey,
	validatorList ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	sourceStake ed25519.PublicKey,
	destinationStake ed25519.PublicKey,
	destinationStakeAuthority ed25519.PublicKey,
	sourceTransferAuthority ed25519.PublicKey,
	sourcePoolAccount ed25519.PublicKey,
	managerFeeAccount ed25519.PublicKey,
	poolMint ed25519.PublicKey,
	poolTokens uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[writable]` Validator stake list storage account
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Validator or reserve stake account to split
	//   4. `[writable]` Uninitialized stake account to receive withdrawal
	//   5. `[]` User account to set as a new withdraw authority
	//   6. `[signer]` User transfer authority, for pool token account
	//   7. `[writable]` User account with pool tokens to burn from
	//   8. `[writable]` Account to receive pool fee tokens
	//   9. `[writable]` Pool token mint account
	//  10. `[]` Sysvar clock account
	//  11. `[]` Pool token program id
	//  12. `[]` Stake program id
	data := make([]byte, 1+8)
	data[0] = byte(CommandWithdrawStake)
	binary.LittleEndian.PutUint64(data[1:], poolTokens)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(stakePool, false),
		solana.NewAccountMeta(validatorList, false),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(sourceStake, false),
		solana.NewAccountMeta(destinationStake, false),
		solana.NewReadonlyAccountMeta(destinationStakeAuthority, false),
		solana.NewReadonlyAccountMeta(sourceTransferAuthority, true),
		solana.NewAccountMeta(sourcePoolAccount, false),
		solana.NewAccountMeta(managerFeeAccount, false),
		solana.NewAccountMeta(poolMint, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
	)
}

// WithdrawSolInstruction burns pool tokens and withdraws lamports
// directly from the pool reserve into a system account.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L469
func WithdrawSolInstruction(
	stakePool ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	userTransferAuthority ed25519.PublicKey,
	poolTokensFrom ed25519.PublicKey,
	reserveStake ed25519.PublicKey,
	destinationSystemAccount ed25519.PublicKey,
	managerFeeAccount ed25519.PublicKey,
	poolMint ed25519.PublicKey,
	solWithdrawAuthority ed25519.PublicKey,
	poolTokens uint64,
) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` Stake pool
	//   1. `[]` Stake pool withdraw authority
	//   2. `[signer]` User transfer authority, for pool token account
	//   3. `[writable]` User account to burn pool tokens
	//   4. `[writable]` Reserve stake account, to withdraw SOL
	//   5. `[writable]` Account receiving the lamports from the reserve
	//   6. `[writable]` Account to receive pool fee tokens
	//   7. `[writable]` Pool token mint account
	//   8. `[]` Clock sysvar
	//   9. `[]` Stake history sysvar
	//  10. `[]` Stake program account
	//  11. `[]` Token program id
	//  12. `[signer]` (Optional) Stake pool sol withdraw authority
	data := make([]byte, 1+8)
	data[0] = byte(CommandWithdrawSol)
	binary.LittleEndian.PutUint64(data[1:], poolTokens)

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewReadonlyAccountMeta(userTransferAuthority, true),
		solana.NewAccountMeta(poolTokensFrom, false),
		solana.NewAccountMeta(reserveStake, false),
		solana.NewAccountMeta(destinationSystemAccount, false),
		solana.NewAccountMeta(managerFeeAccount, false),
		solana.NewAccountMeta(poolMint, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(system.StakeHistorySysVar, false),
		solana.NewReadonlyAccountMeta(stake.ProgramKey, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	}
	if len(solWithdrawAuthority) > 0 {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(solWithdrawAuthority, true))
	}

	return solana.NewInstruction(ProgramKey, data, accounts...)
}

type DecompiledDepositSol struct {
	StakePool              ed25519.PublicKey
	WithdrawAuthority      ed25519.PublicKey
	ReserveStake           ed25519.PublicKey
	FundingAccount         ed25519.PublicKey
	DestinationPoolAccount ed25519.PublicKey
	ManagerFeeAccount      ed25519.PublicKey
	ReferralPoolAccount    ed25519.PublicKey
	PoolMint               ed25519.PublicKey
	SolDepositAuthority    ed25519.PublicKey
	Lamports               uint64
}

func DecompileDepositSol(m solana.Message, index int) (*DecompiledDepositSol, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || i.Data[0] != byte(CommandDepositSol) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Data) != 9 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	if len(i.Accounts) != 10 && len(i.Accounts) != 11 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	v := &DecompiledDepositSol{
		StakePool:              m.Accounts[i.Accounts[0]],
		WithdrawAuthority:      m.Accounts[i.Accounts[1]],
		ReserveStake:           m.Accounts[i.Accounts[2]],
		FundingAccount:         m.Accounts[i.Accounts[3]],
		DestinationPoolAccount: m.Accounts[i.Accounts[4]],
		ManagerFeeAccount:      m.Accounts[i.Accounts[5]],
		ReferralPoolAccount:    m.Accounts[i.Accounts[6]],
		PoolMint:               m.Accounts[i.Accounts[7]],
		Lamports:               binary.LittleEndian.Uint64(i.Data[1:]),
	}
	if len(i.Accounts) == 11 {
		v.SolDepositAuthority = m.Accounts[i.Accounts[10]]
	}

	return v, nil
}

type DecompiledWithdrawStake struct {
	StakePool                 ed25519.PublicKey
	ValidatorList             ed25519.PublicKey
	WithdrawAuthority         ed25519.PublicKey
	SourceStake               ed25519.PublicKey
	DestinationStake          ed25519.PublicKey
	DestinationStakeAuthority ed25519.PublicKey
	SourceTransferAuthority   ed25519.PublicKey
	SourcePoolAccount         ed25519.PublicKey
	ManagerFeeAccount         ed25519.PublicKey
	PoolMint                  ed25519.PublicKey
	PoolTokens                uint64
}

func DecompileWithdrawStake(m solana.Message, index int) (*DecompiledWithdrawStake, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || i.Data[0] != byte(CommandWithdrawStake) {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Data) != 9 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	if len(i.Accounts) != 13 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	return &DecompiledWithdrawStake{
		StakePool:                 m.Accounts[i.Accounts[0]],
		ValidatorList:             m.Accounts[i.Accounts[1]],
		WithdrawAuthority:         m.Accounts[i.Accounts[2]],
		SourceStake:               m.Accounts[i.Accounts[3]],
		DestinationStake:          m.Accounts[i.Accounts[4]],
		DestinationStakeAuthority: m.Accounts[i.Accounts[5]],
		SourceTransferAuthority:   m.Accounts[i.Accounts[6]],
		SourcePoolAccount:         m.Accounts[i.Accounts[7]],
		ManagerFeeAccount:         m.Accounts[i.Accounts[8]],
		PoolMint:                  m.Accounts[i.Accounts[9]],
		PoolTokens:                binary.LittleEndian.Uint64(i.Data[1:]),
	}, nil
}
