package stakepool

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(fill byte) ed25519.PublicKey {
	k := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := range k {
		k[i] = fill
	}
	return k
}

func testStakePool() StakePool {
	return StakePool{
		AccountType:           AccountTypeStakePool,
		Manager:               testKey(1),
		Staker:                testKey(2),
		StakeDepositAuthority: testKey(3),
		StakeWithdrawBumpSeed: 254,
		ValidatorList:         testKey(4),
		ReserveStake:          testKey(5),
		PoolMint:              testKey(6),
		ManagerFeeAccount:     testKey(7),
		TokenProgramID:        testKey(8),
		TotalLamports:         1_000_000_000,
		PoolTokenSupply:       900_000_000,
		LastUpdateEpoch:       412,
		Lockup: Lockup{
			UnixTimestamp: 1700000000,
			Epoch:         400,
			Custodian:     testKey(9),
		},
		EpochFee:                 Fee{Denominator: 100, Numerator: 4},
		StakeDepositFee:          Fee{Denominator: 1000, Numerator: 1},
		StakeWithdrawalFee:       Fee{Denominator: 1000, Numerator: 3},
		StakeReferralFee:         50,
		SolDepositFee:            Fee{Denominator: 1000, Numerator: 2},
		SolReferralFee:           25,
		SolWithdrawalFee:         Fee{Denominator: 1000, Numerator: 3},
		LastEpochPoolTokenSupply: 890_000_000,
		LastEpochTotalLamports:   980_000_000,
	}
}

func TestStakePool_RoundTrip(t *testing.T) {
	expected := testStakePool()

	var actual StakePool
	require.True(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, actual)

	assert.Nil(t, actual.NextEpochFee)
	assert.Nil(t, actual.PreferredDepositValidator)
	assert.Nil(t, actual.PreferredWithdrawValidator)
	assert.Nil(t, actual.SolDepositAuthority)
	assert.Nil(t, actual.SolWithdrawAuthority)
}

func TestStakePool_RoundTrip_Options(t *testing.T) {
	expected := testStakePool()
	expected.NextEpochFee = &Fee{Denominator: 100, Numerator: 5}
	expected.NextStakeWithdrawalFee = &Fee{Denominator: 1000, Numerator: 4}
	expected.NextSolWithdrawalFee = &Fee{Denominator: 1000, Numerator: 5}
	expected.PreferredDepositValidator = testKey(10)
	expected.PreferredWithdrawValidator = testKey(11)
	expected.SolDepositAuthority = testKey(12)
	expected.SolWithdrawAuthority = testKey(13)

	// The option payloads change the serialized size.
	base := testStakePool()
	assert.NotEqual(t, len(base.Marshal()), len(expected.Marshal()))

	var actual StakePool
	require.True(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, actual)
}

func TestStakePool_Unmarshal_Invalid(t *testing.T) {
	pool := testStakePool()
	data := pool.Marshal()

	var actual StakePool

	// wrong account type tag
	for _, tag := range []byte{byte(AccountTypeUninitialized), byte(AccountTypeValidatorList), 5} {
		bad := append([]byte{}, data...)
		bad[0] = tag
		assert.False(t, actual.Unmarshal(bad))
	}

	// truncated
	assert.False(t, actual.Unmarshal(data[:len(data)-1]))
	assert.False(t, actual.Unmarshal(nil))
}

func TestValidatorList_RoundTrip(t *testing.T) {
	expected := ValidatorList{
		AccountType:   AccountTypeValidatorList,
		MaxValidators: 100,
		Validators: []ValidatorStakeInfo{
			{
				ActiveStakeLamports:      5_000_000_000,
				TransientStakeLamports:   1_000_000_000,
				LastUpdateEpoch:          412,
				TransientSeedSuffixStart: 3,
				Status:                   ValidatorStakeStatusActive,
				VoteAccountAddress:       testKey(1),
			},
			{
				ActiveStakeLamports: 2_000_000_000,
				LastUpdateEpoch:     412,
				Status:              ValidatorStakeStatusDeactivatingTransient,
				VoteAccountAddress:  testKey(2),
			},
		},
	}

	data := expected.Marshal()
	assert.Equal(t, 1+4+4+2*ValidatorStakeInfoSize, len(data))

	var actual ValidatorList
	require.True(t, actual.Unmarshal(data))
	assert.Equal(t, expected, actual)
}

func TestValidatorList_Unmarshal_Invalid(t *testing.T) {
	list := ValidatorList{
		AccountType:   AccountTypeValidatorList,
		MaxValidators: 10,
		Validators: []ValidatorStakeInfo{
			{VoteAccountAddress: testKey(1)},
		},
	}
	data := list.Marshal()

	var actual ValidatorList

	bad := append([]byte{}, data...)
	bad[0] = byte(AccountTypeStakePool)
	assert.False(t, actual.Unmarshal(bad))

	// count larger than the remaining data
	bad = append([]byte{}, data...)
	bad[5] = 200
	assert.False(t, actual.Unmarshal(bad))

	assert.False(t, actual.Unmarshal(data[:len(data)-1]))
}

func TestValidatorList_Find(t *testing.T) {
	list := ValidatorList{
		AccountType:   AccountTypeValidatorList,
		MaxValidators: 10,
		Validators: []ValidatorStakeInfo{
			{VoteAccountAddress: testKey(1), ActiveStakeLamports: 100},
			{VoteAccountAddress: testKey(2), ActiveStakeLamports: 200},
		},
	}

	entry := list.Find(testKey(2))
	require.NotNil(t, entry)
	assert.EqualValues(t, 200, entry.ActiveStakeLamports)

	assert.Nil(t, list.Find(testKey(3)))
}
