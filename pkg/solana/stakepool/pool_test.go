package stakepool

import (
	"crypto/ed25519"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemint/stakepool-go/pkg/solana"
	compute_budget "github.com/stakemint/stakepool-go/pkg/solana/computebudget"
	"github.com/stakemint/stakepool-go/pkg/solana/stake"
	"github.com/stakemint/stakepool-go/pkg/solana/system"
	"github.com/stakemint/stakepool-go/pkg/solana/token"
)

func newPoolEnv(t *testing.T) (*testClient, *Pool, StakePool) {
	sc := newTestClient()
	sc.rentExemption = 2_282_880

	state := testStakePool()
	list := ValidatorList{
		AccountType:   AccountTypeValidatorList,
		MaxValidators: 100,
		Validators: []ValidatorStakeInfo{
			{VoteAccountAddress: testKey(1), ActiveStakeLamports: 5 * LamportsPerSol, TransientSeedSuffixStart: 4},
			{VoteAccountAddress: testKey(2), ActiveStakeLamports: 3 * LamportsPerSol},
		},
	}

	address := testKey(50)
	sc.setAccount(address, ProgramKey, state.Marshal())
	sc.setAccount(state.ValidatorList, ProgramKey, list.Marshal())

	return sc, NewPool(sc, address), state
}

func setTokenAccount(sc *testClient, address, owner, mint ed25519.PublicKey, amount uint64) {
	account := token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.AccountStateInitialized,
	}
	sc.setAccount(address, token.ProgramKey, account.Marshal())
}

func TestPool_DepositSol(t *testing.T) {
	sc, pool, state := newPoolEnv(t)

	from := testKey(60)
	sc.balances[string(from)] = 10 * LamportsPerSol

	plan, err := pool.DepositSol(from, nil, nil, 2*LamportsPerSol)
	require.NoError(t, err)

	require.Len(t, plan.Instructions, 3)
	require.Len(t, plan.Signers, 1)

	// the lamports hop through the ephemeral funding account
	transfer, err := system.DecompileTransfer(solana.NewTransaction(from, plan.Instructions[0]).Message, 0)
	require.NoError(t, err)
	assert.Equal(t, from, transfer.Sender)
	assert.EqualValues(t, 2*LamportsPerSol, transfer.Lamports)

	assert.Equal(t, token.AssociatedTokenAccountProgramKey, plan.Instructions[1].Program)

	deposit := plan.Instructions[2]
	assert.EqualValues(t, CommandDepositSol, deposit.Data[0])
	assert.EqualValues(t, 2*LamportsPerSol, binary.LittleEndian.Uint64(deposit.Data[1:]))
	require.Len(t, deposit.Accounts, 10)

	funding := plan.Signers[0].Public().(ed25519.PublicKey)
	assert.Equal(t, funding, deposit.Accounts[3].PublicKey)
	assert.Equal(t, transfer.Recipient, funding)

	ata, err := token.GetAssociatedAccount(from, state.PoolMint)
	require.NoError(t, err)
	assert.Equal(t, ata, deposit.Accounts[4].PublicKey)

	// the referral fee defaults back to the depositor
	assert.Equal(t, ata, deposit.Accounts[6].PublicKey)
}

func TestPool_DepositSol_InsufficientBalance(t *testing.T) {
	sc, pool, _ := newPoolEnv(t)

	from := testKey(60)
	sc.balances[string(from)] = LamportsPerSol

	_, err := pool.DepositSol(from, nil, nil, 2*LamportsPerSol)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "not enough SOL")
	assert.Contains(t, err.Error(), "1.000000000")
}

func TestPool_DepositStake(t *testing.T) {
	_, pool, state := newPoolEnv(t)

	depositStake := testKey(61)
	authority := testKey(62)
	poolTokenAccount := testKey(63)

	plan, err := pool.DepositStake(depositStake, testKey(1), authority, poolTokenAccount)
	require.NoError(t, err)

	require.Len(t, plan.Instructions, 3)
	assert.Empty(t, plan.Signers)

	// both stake authorities move to the pool's deposit authority first
	for _, instruction := range plan.Instructions[:2] {
		assert.EqualValues(t, stake.ProgramKey, instruction.Program)
		assert.Equal(t, depositStake, instruction.Accounts[0].PublicKey)
	}

	deposit := plan.Instructions[2]
	assert.EqualValues(t, CommandDepositStake, deposit.Data[0])
	require.Len(t, deposit.Accounts, 15)
	assert.Equal(t, state.StakeDepositAuthority, deposit.Accounts[2].PublicKey)
	assert.False(t, deposit.Accounts[2].IsSigner)

	validatorStake, err := DeriveValidatorStakeAccount(pool.Address(), testKey(1), 0)
	require.NoError(t, err)
	assert.Equal(t, validatorStake, deposit.Accounts[5].PublicKey)
}

func TestPool_WithdrawStake_Reserve(t *testing.T) {
	sc, pool, state := newPoolEnv(t)

	owner := testKey(64)
	poolTokenAccount := testKey(65)
	setTokenAccount(sc, poolTokenAccount, owner, state.PoolMint, 10*LamportsPerSol)

	plan, err := pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       LamportsPerSol,
		UseReserve:       true,
		PoolTokenAccount: poolTokenAccount,
	})
	require.NoError(t, err)

	// approve, create stake account, withdraw
	require.Len(t, plan.Instructions, 3)
	require.Len(t, plan.Signers, 2)

	assert.EqualValues(t, token.ProgramKey, plan.Instructions[0].Program)
	assert.EqualValues(t, byte(token.CommandApprove), plan.Instructions[0].Data[0])

	create, err := system.DecompileCreateAccount(solana.NewTransaction(owner, plan.Instructions[1]).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, stake.ProgramKey, create.Owner)
	assert.EqualValues(t, stake.AccountSize, create.Size)
	assert.EqualValues(t, sc.rentExemption, create.Lamports)

	withdraw := plan.Instructions[2]
	assert.EqualValues(t, CommandWithdrawStake, withdraw.Data[0])
	assert.EqualValues(t, LamportsPerSol, binary.LittleEndian.Uint64(withdraw.Data[1:]))
	assert.Equal(t, state.ReserveStake, withdraw.Accounts[3].PublicKey)
	assert.Equal(t, create.Address, withdraw.Accounts[4].PublicKey)
	assert.Equal(t, owner, withdraw.Accounts[5].PublicKey)
}

func TestPool_WithdrawStake_Validator(t *testing.T) {
	sc, pool, state := newPoolEnv(t)

	owner := testKey(64)
	poolTokenAccount := testKey(65)
	setTokenAccount(sc, poolTokenAccount, owner, state.PoolMint, 10*LamportsPerSol)

	plan, err := pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       LamportsPerSol,
		VoteAccount:      testKey(1),
		PoolTokenAccount: poolTokenAccount,
	})
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 3)

	validatorStake, err := DeriveValidatorStakeAccount(pool.Address(), testKey(1), 0)
	require.NoError(t, err)
	assert.Equal(t, validatorStake, plan.Instructions[2].Accounts[3].PublicKey)

	// more than the validator can cover
	_, err = pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       8 * LamportsPerSol,
		VoteAccount:      testKey(1),
		PoolTokenAccount: poolTokenAccount,
	})
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "not enough stake on the validator")

	_, err = pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       LamportsPerSol,
		VoteAccount:      testKey(9),
		PoolTokenAccount: poolTokenAccount,
	})
	assert.Equal(t, ErrValidatorNotInPool, err)
}

func TestPool_WithdrawStake_StakeReceiver(t *testing.T) {
	sc, pool, state := newPoolEnv(t)

	owner := testKey(64)
	poolTokenAccount := testKey(65)
	setTokenAccount(sc, poolTokenAccount, owner, state.PoolMint, 10*LamportsPerSol)

	stakeReceiver := testKey(66)
	sc.delegations[string(stakeReceiver)] = &solana.StakeDelegation{
		Voter: testKey(1),
		Stake: 2 * LamportsPerSol,
	}

	plan, err := pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       LamportsPerSol,
		StakeReceiver:    stakeReceiver,
		PoolTokenAccount: poolTokenAccount,
	})
	require.NoError(t, err)

	// no stake account creation when the receiver already exists
	require.Len(t, plan.Instructions, 2)
	require.Len(t, plan.Signers, 1)

	withdraw := plan.Instructions[1]
	assert.Equal(t, stakeReceiver, withdraw.Accounts[4].PublicKey)

	// the receiver's delegation pins the source validator
	validatorStake, err := DeriveValidatorStakeAccount(pool.Address(), testKey(1), 0)
	require.NoError(t, err)
	assert.Equal(t, validatorStake, withdraw.Accounts[3].PublicKey)

	// an explicit vote account must match the receiver's delegation
	_, err = pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       LamportsPerSol,
		VoteAccount:      testKey(2),
		StakeReceiver:    stakeReceiver,
		PoolTokenAccount: poolTokenAccount,
	})
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "different validator")
}

func TestPool_WithdrawStake_UndelegatedReceiver(t *testing.T) {
	sc, pool, state := newPoolEnv(t)

	owner := testKey(64)
	poolTokenAccount := testKey(65)
	setTokenAccount(sc, poolTokenAccount, owner, state.PoolMint, 10*LamportsPerSol)

	// the receiver exists but carries no delegation, so it cannot take
	// a split from more than one source
	stakeReceiver := testKey(66)

	plan, err := pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       5 * LamportsPerSol,
		StakeReceiver:    stakeReceiver,
		PoolTokenAccount: poolTokenAccount,
	})
	require.NoError(t, err)

	// Approve plus a CreateAccount/Withdraw pair per source
	require.Len(t, plan.Instructions, 5)
	require.Len(t, plan.Signers, 3)

	message := solana.NewTransaction(owner, plan.Instructions...).Message

	first, err := system.DecompileCreateAccount(message, 1)
	require.NoError(t, err)
	second, err := system.DecompileCreateAccount(message, 3)
	require.NoError(t, err)

	firstWithdraw, err := DecompileWithdrawStake(message, 2)
	require.NoError(t, err)
	secondWithdraw, err := DecompileWithdrawStake(message, 4)
	require.NoError(t, err)

	// each split lands in its own fresh stake account
	assert.Equal(t, first.Address, firstWithdraw.DestinationStake)
	assert.Equal(t, second.Address, secondWithdraw.DestinationStake)
	assert.NotEqual(t, firstWithdraw.DestinationStake, secondWithdraw.DestinationStake)
	assert.NotEqual(t, stakeReceiver, firstWithdraw.DestinationStake)
	assert.NotEqual(t, stakeReceiver, secondWithdraw.DestinationStake)
}

func TestPool_WithdrawStake_InsufficientTokens(t *testing.T) {
	sc, pool, state := newPoolEnv(t)

	owner := testKey(64)
	poolTokenAccount := testKey(65)
	setTokenAccount(sc, poolTokenAccount, owner, state.PoolMint, 100)

	_, err := pool.WithdrawStake(WithdrawStakeParams{
		TokenOwner:       owner,
		PoolTokens:       101,
		UseReserve:       true,
		PoolTokenAccount: poolTokenAccount,
	})
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "not enough pool tokens")
}

func TestPool_WithdrawSol(t *testing.T) {
	sc, pool, state := newPoolEnv(t)

	owner := testKey(64)
	solReceiver := testKey(67)
	poolTokenAccount := testKey(65)
	setTokenAccount(sc, poolTokenAccount, owner, state.PoolMint, 10*LamportsPerSol)

	plan, err := pool.WithdrawSol(owner, solReceiver, poolTokenAccount, LamportsPerSol)
	require.NoError(t, err)

	require.Len(t, plan.Instructions, 2)
	require.Len(t, plan.Signers, 1)

	assert.EqualValues(t, byte(token.CommandApprove), plan.Instructions[0].Data[0])

	withdraw := plan.Instructions[1]
	assert.EqualValues(t, CommandWithdrawSol, withdraw.Data[0])
	require.Len(t, withdraw.Accounts, 12)
	assert.Equal(t, state.ReserveStake, withdraw.Accounts[4].PublicKey)
	assert.Equal(t, solReceiver, withdraw.Accounts[5].PublicKey)
}

func TestPool_IncreaseValidatorStake(t *testing.T) {
	_, pool, state := newPoolEnv(t)

	plan, err := pool.IncreaseValidatorStake(testKey(1), LamportsPerSol, nil)
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)

	instruction := plan.Instructions[0]
	assert.EqualValues(t, CommandIncreaseValidatorStake, instruction.Data[0])
	assert.EqualValues(t, LamportsPerSol, binary.LittleEndian.Uint64(instruction.Data[1:]))

	// the transient seed is bumped past the in-flight suffix
	assert.EqualValues(t, 5, binary.LittleEndian.Uint64(instruction.Data[9:]))

	transientStake, err := DeriveTransientStakeAccount(pool.Address(), testKey(1), 5)
	require.NoError(t, err)
	assert.Equal(t, transientStake, instruction.Accounts[5].PublicKey)
	assert.Equal(t, state.Staker, instruction.Accounts[1].PublicKey)

	_, err = pool.IncreaseValidatorStake(testKey(9), LamportsPerSol, nil)
	assert.Equal(t, ErrValidatorNotInPool, err)
}

func TestPool_IncreaseValidatorStake_Additional(t *testing.T) {
	_, pool, _ := newPoolEnv(t)

	seed := uint64(7)
	plan, err := pool.IncreaseValidatorStake(testKey(1), LamportsPerSol, &seed)
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)

	instruction := plan.Instructions[0]
	assert.EqualValues(t, CommandIncreaseAdditionalValidatorStake, instruction.Data[0])

	// the in-flight transient account is reused as-is
	assert.EqualValues(t, 4, binary.LittleEndian.Uint64(instruction.Data[9:]))
	assert.EqualValues(t, 7, binary.LittleEndian.Uint64(instruction.Data[17:]))

	ephemeralStake, err := DeriveEphemeralStakeAccount(pool.Address(), seed)
	require.NoError(t, err)
	assert.Equal(t, ephemeralStake, instruction.Accounts[5].PublicKey)
}

func TestPool_DecreaseValidatorStake(t *testing.T) {
	_, pool, _ := newPoolEnv(t)

	plan, err := pool.DecreaseValidatorStake(testKey(1), LamportsPerSol, nil)
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)

	instruction := plan.Instructions[0]
	assert.EqualValues(t, CommandDecreaseValidatorStakeWithReserve, instruction.Data[0])
	assert.EqualValues(t, 5, binary.LittleEndian.Uint64(instruction.Data[9:]))

	validatorStake, err := DeriveValidatorStakeAccount(pool.Address(), testKey(1), 0)
	require.NoError(t, err)
	assert.Equal(t, validatorStake, instruction.Accounts[5].PublicKey)

	seed := uint64(3)
	plan, err = pool.DecreaseValidatorStake(testKey(1), LamportsPerSol, &seed)
	require.NoError(t, err)
	assert.EqualValues(t, CommandDecreaseAdditionalValidatorStake, plan.Instructions[0].Data[0])
}

func TestPool_UpdateStakePool(t *testing.T) {
	sc := newTestClient()

	state := testStakePool()
	var list ValidatorList
	list.AccountType = AccountTypeValidatorList
	list.MaxValidators = 100
	for i := byte(1); i <= 7; i++ {
		list.Validators = append(list.Validators, ValidatorStakeInfo{
			VoteAccountAddress:  testKey(i),
			ActiveStakeLamports: LamportsPerSol,
		})
	}

	address := testKey(50)
	sc.setAccount(address, ProgramKey, state.Marshal())
	sc.setAccount(state.ValidatorList, ProgramKey, list.Marshal())

	update, err := NewPool(sc, address).UpdateStakePool()
	require.NoError(t, err)

	// seven validators merge in windows of five
	require.Len(t, update.UpdateListInstructions, 2)

	first := update.UpdateListInstructions[0]
	assert.EqualValues(t, CommandUpdateValidatorListBalance, first.Data[0])
	assert.EqualValues(t, 0, binary.LittleEndian.Uint32(first.Data[1:]))
	assert.Len(t, first.Accounts, 7+2*5)

	second := update.UpdateListInstructions[1]
	assert.EqualValues(t, 5, binary.LittleEndian.Uint32(second.Data[1:]))
	assert.Len(t, second.Accounts, 7+2*2)

	require.Len(t, update.FinalInstructions, 3)
	assert.EqualValues(t, compute_budget.ProgramKey, update.FinalInstructions[0].Program)
	limit, err := compute_budget.ParseSetComputeUnitLimitIxnData(update.FinalInstructions[0].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 1_400_000, limit)
	assert.EqualValues(t, CommandUpdateStakePoolBalance, update.FinalInstructions[1].Data[0])
	assert.EqualValues(t, CommandCleanupRemovedValidatorEntries, update.FinalInstructions[2].Data[0])
}

func TestPool_Redelegate(t *testing.T) {
	_, pool, _ := newPoolEnv(t)

	plan, err := pool.Redelegate(testKey(1), testKey(2), LamportsPerSol, 9)
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)

	instruction := plan.Instructions[0]
	assert.EqualValues(t, CommandRedelegate, instruction.Data[0])
	assert.EqualValues(t, LamportsPerSol, binary.LittleEndian.Uint64(instruction.Data[1:]))
	assert.EqualValues(t, 5, binary.LittleEndian.Uint64(instruction.Data[9:]))
	assert.EqualValues(t, 9, binary.LittleEndian.Uint64(instruction.Data[17:]))
	assert.EqualValues(t, 1, binary.LittleEndian.Uint64(instruction.Data[25:]))

	sourceTransient, err := DeriveTransientStakeAccount(pool.Address(), testKey(1), 5)
	require.NoError(t, err)
	assert.Equal(t, sourceTransient, instruction.Accounts[5].PublicKey)

	destinationTransient, err := DeriveTransientStakeAccount(pool.Address(), testKey(2), 1)
	require.NoError(t, err)
	assert.Equal(t, destinationTransient, instruction.Accounts[7].PublicKey)

	assert.Equal(t, testKey(2), instruction.Accounts[9].PublicKey)

	_, err = pool.Redelegate(testKey(1), testKey(9), LamportsPerSol, 9)
	assert.Equal(t, ErrValidatorNotInPool, err)
}

func TestPool_TokenMetadata(t *testing.T) {
	_, pool, state := newPoolEnv(t)

	payer := testKey(70)
	plan, err := pool.CreatePoolTokenMetadata(payer, "Test Pool", "TEST", "https://example.com/pool.json")
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)

	instruction := plan.Instructions[0]
	assert.EqualValues(t, CommandCreateTokenMetadata, instruction.Data[0])
	assert.Equal(t, state.Manager, instruction.Accounts[1].PublicKey)
	assert.Equal(t, payer, instruction.Accounts[4].PublicKey)

	metadata, err := DeriveTokenMetadata(state.PoolMint)
	require.NoError(t, err)
	assert.Equal(t, metadata, instruction.Accounts[5].PublicKey)

	_, err = pool.CreatePoolTokenMetadata(payer, strings.Repeat("a", MaxMetadataNameLength+1), "TEST", "uri")
	assert.Equal(t, ErrMetadataNameTooLong, err)

	plan, err = pool.UpdatePoolTokenMetadata("Renamed", "RPOOL", "https://example.com/renamed.json")
	require.NoError(t, err)
	assert.EqualValues(t, CommandUpdateTokenMetadata, plan.Instructions[0].Data[0])
}

func TestTransactionPlan_SetComputeBudget(t *testing.T) {
	_, pool, _ := newPoolEnv(t)

	plan, err := pool.IncreaseValidatorStake(testKey(1), LamportsPerSol, nil)
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 1)

	plan.SetComputeBudget(600_000, 5_000)
	require.Len(t, plan.Instructions, 3)

	limit, err := compute_budget.ParseSetComputeUnitLimitIxnData(plan.Instructions[0].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 600_000, limit)

	price, err := compute_budget.ParseSetComputeUnitPriceIxnData(plan.Instructions[1].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 5_000, price)

	assert.EqualValues(t, CommandIncreaseValidatorStake, plan.Instructions[2].Data[0])

	// zero values add nothing
	plan, err = pool.IncreaseValidatorStake(testKey(1), LamportsPerSol, nil)
	require.NoError(t, err)
	plan.SetComputeBudget(0, 0)
	assert.Len(t, plan.Instructions, 1)
}

func TestTransactionPlan_Transaction(t *testing.T) {
	sc, pool, _ := newPoolEnv(t)

	payerPub, payerPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sc.balances[string(payerPub)] = 10 * LamportsPerSol

	plan, err := pool.DepositSol(payerPub, nil, nil, LamportsPerSol)
	require.NoError(t, err)

	var blockhash solana.Blockhash
	blockhash[0] = 1

	txn, err := plan.Transaction(payerPriv, blockhash)
	require.NoError(t, err)

	assert.Equal(t, payerPub, txn.Message.Accounts[0])
	assert.Equal(t, blockhash, txn.Message.RecentBlockhash)

	// payer plus the ephemeral funding account
	require.Len(t, txn.Signatures, 2)
	assert.True(t, ed25519.Verify(payerPub, txn.Message.Marshal(), txn.Signatures[0][:]))
}
