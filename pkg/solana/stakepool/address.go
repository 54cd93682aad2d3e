package stakepool

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/stakemint/stakepool-go/pkg/solana"
)

// DeriveWithdrawAuthority returns the withdraw authority for the given
// stake pool. The pool program signs for every pool managed stake
// account with this address.
func DeriveWithdrawAuthority(stakePool ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		ProgramKey,
		stakePool,
		[]byte("withdraw"),
	)
}

// DeriveValidatorStakeAccount returns the address of the stake account
// the pool delegates to the given vote account. A non-zero seed selects
// an alternate account, which newer pools use to work around the
// minimum delegation for duplicate validator entries.
func DeriveValidatorStakeAccount(stakePool, voteAccount ed25519.PublicKey, seed uint32) (ed25519.PublicKey, error) {
	seeds := [][]byte{
		voteAccount,
		stakePool,
	}
	if seed != 0 {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], seed)
		seeds = append(seeds, b[:])
	}

	return solana.FindProgramAddress(ProgramKey, seeds...)
}

// DeriveTransientStakeAccount returns the address of the transient
// stake account used to activate or deactivate stake for the given vote
// account. The seed is bumped on every rebalance so an in-flight
// transient account never collides with the next one.
func DeriveTransientStakeAccount(stakePool, voteAccount ed25519.PublicKey, seed uint64) (ed25519.PublicKey, error) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)

	return solana.FindProgramAddress(
		ProgramKey,
		[]byte("transient"),
		voteAccount,
		stakePool,
		b[:],
	)
}

// DeriveEphemeralStakeAccount returns the address of the ephemeral
// stake account used as an intermediate hop by the additional
// increase/decrease and redelegate instructions.
func DeriveEphemeralStakeAccount(stakePool ed25519.PublicKey, seed uint64) (ed25519.PublicKey, error) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)

	return solana.FindProgramAddress(
		ProgramKey,
		[]byte("ephemeral"),
		stakePool,
		b[:],
	)
}

// DeriveTokenMetadata returns the Metaplex metadata address for the
// given pool mint.
func DeriveTokenMetadata(poolMint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		MetadataProgramKey,
		[]byte("metadata"),
		MetadataProgramKey,
		poolMint,
	)
}
