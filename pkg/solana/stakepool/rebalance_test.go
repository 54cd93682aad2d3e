package stakepool

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemint/stakepool-go/pkg/solana"
	"github.com/stakemint/stakepool-go/pkg/solana/stake"
	"github.com/stakemint/stakepool-go/pkg/solana/system"
)

func TestIncreaseValidatorStakeInstruction(t *testing.T) {
	keys := generateKeys(t, 7)

	instruction := IncreaseValidatorStakeInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5], keys[6],
		1_000_000_000,
		3,
	)

	require.Len(t, instruction.Data, 17)
	assert.EqualValues(t, CommandIncreaseValidatorStake, instruction.Data[0])
	assert.EqualValues(t, 1_000_000_000, binary.LittleEndian.Uint64(instruction.Data[1:]))
	assert.EqualValues(t, 3, binary.LittleEndian.Uint64(instruction.Data[9:]))

	require.Len(t, instruction.Accounts, 13)
	assert.True(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[3].IsWritable)
	assert.True(t, instruction.Accounts[4].IsWritable)
	assert.True(t, instruction.Accounts[5].IsWritable)
	assert.EqualValues(t, system.RentSysVar, instruction.Accounts[8].PublicKey)
	assert.EqualValues(t, stake.ConfigKey, instruction.Accounts[10].PublicKey)
	assert.EqualValues(t, stake.ProgramKey, instruction.Accounts[12].PublicKey)
}

func TestDecompileIncreaseValidatorStake(t *testing.T) {
	keys := generateKeys(t, 7)

	instruction := IncreaseValidatorStakeInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5], keys[6],
		1_000_000_000,
		3,
	)

	message := solana.NewTransaction(keys[0], instruction).Message
	decompiled, err := DecompileIncreaseValidatorStake(message, 0)
	require.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.StakePool)
	assert.Equal(t, keys[1], decompiled.Staker)
	assert.Equal(t, keys[4], decompiled.ReserveStake)
	assert.Equal(t, keys[5], decompiled.TransientStake)
	assert.Equal(t, keys[6], decompiled.ValidatorVote)
	assert.EqualValues(t, 1_000_000_000, decompiled.Lamports)
	assert.EqualValues(t, 3, decompiled.TransientStakeSeed)

	_, err = DecompileIncreaseValidatorStake(message, 1)
	assert.Error(t, err)

	instruction.Data[0] = byte(CommandDecreaseValidatorStake)
	message = solana.NewTransaction(keys[0], instruction).Message
	_, err = DecompileIncreaseValidatorStake(message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction.Data[0] = byte(CommandIncreaseValidatorStake)
	instruction.Program = keys[1]
	message = solana.NewTransaction(keys[0], instruction).Message
	_, err = DecompileIncreaseValidatorStake(message, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func TestIncreaseAdditionalValidatorStakeInstruction(t *testing.T) {
	keys := generateKeys(t, 8)

	instruction := IncreaseAdditionalValidatorStakeInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5], keys[6], keys[7],
		500,
		3,
		4,
	)

	require.Len(t, instruction.Data, 25)
	assert.EqualValues(t, CommandIncreaseAdditionalValidatorStake, instruction.Data[0])
	assert.EqualValues(t, 500, binary.LittleEndian.Uint64(instruction.Data[1:]))
	assert.EqualValues(t, 3, binary.LittleEndian.Uint64(instruction.Data[9:]))
	assert.EqualValues(t, 4, binary.LittleEndian.Uint64(instruction.Data[17:]))

	require.Len(t, instruction.Accounts, 13)

	// the ephemeral account precedes the transient account
	assert.Equal(t, keys[5], instruction.Accounts[5].PublicKey)
	assert.Equal(t, keys[6], instruction.Accounts[6].PublicKey)

	// no rent sysvar in the additional variant
	for _, a := range instruction.Accounts {
		assert.NotEqual(t, []byte(system.RentSysVar), []byte(a.PublicKey))
	}
}

func TestDecreaseValidatorStakeWithReserveInstruction(t *testing.T) {
	keys := generateKeys(t, 7)

	instruction := DecreaseValidatorStakeWithReserveInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5], keys[6],
		250,
		9,
	)

	require.Len(t, instruction.Data, 17)
	assert.EqualValues(t, CommandDecreaseValidatorStakeWithReserve, instruction.Data[0])
	assert.EqualValues(t, 250, binary.LittleEndian.Uint64(instruction.Data[1:]))
	assert.EqualValues(t, 9, binary.LittleEndian.Uint64(instruction.Data[9:]))

	require.Len(t, instruction.Accounts, 11)
	assert.True(t, instruction.Accounts[1].IsSigner)
	assert.Equal(t, keys[4], instruction.Accounts[4].PublicKey)
	assert.EqualValues(t, stake.ProgramKey, instruction.Accounts[10].PublicKey)
}

func TestDecompileDecreaseValidatorStakeWithReserve(t *testing.T) {
	keys := generateKeys(t, 7)

	instruction := DecreaseValidatorStakeWithReserveInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5], keys[6],
		250,
		9,
	)

	message := solana.NewTransaction(keys[0], instruction).Message
	decompiled, err := DecompileDecreaseValidatorStakeWithReserve(message, 0)
	require.NoError(t, err)
	assert.Equal(t, keys[4], decompiled.ReserveStake)
	assert.Equal(t, keys[5], decompiled.ValidatorStake)
	assert.Equal(t, keys[6], decompiled.TransientStake)
	assert.EqualValues(t, 250, decompiled.Lamports)
	assert.EqualValues(t, 9, decompiled.TransientStakeSeed)

	instruction.Data = instruction.Data[:5]
	message = solana.NewTransaction(keys[0], instruction).Message
	_, err = DecompileDecreaseValidatorStakeWithReserve(message, 0)
	assert.Error(t, err)
	assert.NotEqual(t, solana.ErrIncorrectInstruction, err)
}

func TestDecreaseValidatorStakeInstruction(t *testing.T) {
	keys := generateKeys(t, 6)

	instruction := DecreaseValidatorStakeInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5],
		250,
		9,
	)

	require.Len(t, instruction.Data, 17)
	assert.EqualValues(t, CommandDecreaseValidatorStake, instruction.Data[0])

	// the legacy variant funds rent from the split, so there is no
	// reserve account
	require.Len(t, instruction.Accounts, 10)
	assert.EqualValues(t, system.RentSysVar, instruction.Accounts[7].PublicKey)
}

func TestDecreaseAdditionalValidatorStakeInstruction(t *testing.T) {
	keys := generateKeys(t, 8)

	instruction := DecreaseAdditionalValidatorStakeInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5], keys[6], keys[7],
		250,
		9,
		10,
	)

	require.Len(t, instruction.Data, 25)
	assert.EqualValues(t, CommandDecreaseAdditionalValidatorStake, instruction.Data[0])
	assert.EqualValues(t, 10, binary.LittleEndian.Uint64(instruction.Data[17:]))

	require.Len(t, instruction.Accounts, 12)
	assert.Equal(t, keys[6], instruction.Accounts[6].PublicKey)
	assert.Equal(t, keys[7], instruction.Accounts[7].PublicKey)
}

func TestRedelegateInstruction(t *testing.T) {
	keys := generateKeys(t, 10)

	instruction := RedelegateInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5], keys[6],
		keys[7], keys[8], keys[9],
		1_000_000_000,
		2,
		3,
		4,
	)

	require.Len(t, instruction.Data, 33)
	assert.EqualValues(t, CommandRedelegate, instruction.Data[0])
	assert.EqualValues(t, 1_000_000_000, binary.LittleEndian.Uint64(instruction.Data[1:]))
	assert.EqualValues(t, 2, binary.LittleEndian.Uint64(instruction.Data[9:]))
	assert.EqualValues(t, 3, binary.LittleEndian.Uint64(instruction.Data[17:]))
	assert.EqualValues(t, 4, binary.LittleEndian.Uint64(instruction.Data[25:]))

	require.Len(t, instruction.Accounts, 15)
	assert.True(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[7].IsWritable)
	assert.False(t, instruction.Accounts[8].IsWritable)
	assert.EqualValues(t, stake.ConfigKey, instruction.Accounts[12].PublicKey)
}

func TestUpdateValidatorListBalanceInstruction(t *testing.T) {
	keys := generateKeys(t, 8)

	instruction := UpdateValidatorListBalanceInstruction(
		keys[0], keys[1], keys[2], keys[3],
		[][2]ed25519.PublicKey{
			{keys[4], keys[5]},
			{keys[6], keys[7]},
		},
		10,
		true,
	)

	require.Len(t, instruction.Data, 6)
	assert.EqualValues(t, CommandUpdateValidatorListBalance, instruction.Data[0])
	assert.EqualValues(t, 10, binary.LittleEndian.Uint32(instruction.Data[1:]))
	assert.EqualValues(t, 1, instruction.Data[5])

	require.Len(t, instruction.Accounts, 7+4)
	assert.Equal(t, keys[4], instruction.Accounts[7].PublicKey)
	assert.Equal(t, keys[5], instruction.Accounts[8].PublicKey)
	assert.True(t, instruction.Accounts[7].IsWritable)
	assert.True(t, instruction.Accounts[8].IsWritable)
}

func TestUpdateStakePoolBalanceInstruction(t *testing.T) {
	keys := generateKeys(t, 6)

	instruction := UpdateStakePoolBalanceInstruction(
		keys[0], keys[1], keys[2], keys[3], keys[4], keys[5],
	)

	assert.Equal(t, []byte{byte(CommandUpdateStakePoolBalance)}, instruction.Data)
	require.Len(t, instruction.Accounts, 7)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[3].IsWritable)
}

func TestCleanupRemovedValidatorEntriesInstruction(t *testing.T) {
	keys := generateKeys(t, 2)

	instruction := CleanupRemovedValidatorEntriesInstruction(keys[0], keys[1])

	assert.Equal(t, []byte{byte(CommandCleanupRemovedValidatorEntries)}, instruction.Data)
	require.Len(t, instruction.Accounts, 2)
	assert.False(t, instruction.Accounts[0].IsWritable)
	assert.True(t, instruction.Accounts[1].IsWritable)
}
