// Package stake provides the subset of the stake program needed to
// manage pool managed stake accounts.
package stake

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/mr-tron/base58/base58"

	"github.com/stakemint/stakepool-go/pkg/solana"
	"github.com/stakemint/stakepool-go/pkg/solana/system"
)

// ProgramKey is the address of the stake program.
//
// Current key: Stake11111111111111111111111111111111111111
var ProgramKey ed25519.PublicKey

// ConfigKey is the address of the stake config account.
//
// Current key: StakeConfig11111111111111111111111111111111
var ConfigKey ed25519.PublicKey

func init() {
	var err error

	ProgramKey, err = base58.Decode("Stake11111111111111111111111111111111111111")
	if err != nil {
		panic(err)
	}

	ConfigKey, err = base58.Decode("StakeConfig11111111111111111111111111111111")
	if err != nil {
		panic(err)
	}
}

// Reference: https://github.com/solana-labs/solana/blob/7700cb3128c1f19820de67b81aa45d18f73d2ac0/sdk/program/src/stake/state.rs#L60
const AccountSize = 200

type Authority uint32

const (
	AuthorityStaker Authority = iota
	AuthorityWithdrawer
)

// Stake program instructions use 4 byte little endian enum prefixes.
const commandAuthorize uint32 = 1

// Authorize reassigns the staker or withdrawer authority of a stake account.
//
// Reference: https://github.com/solana-labs/solana/blob/7700cb3128c1f19820de67b81aa45d18f73d2ac0/sdk/program/src/stake/instruction.rs#L80-L88
func Authorize(stakeAccount, currentAuthority, newAuthority ed25519.PublicKey, authority Authority) solana.Instruction {
	// # Account references
	//   0. [WRITE] Stake account to be updated
	//   1. [] Clock sysvar
	//   2. [SIGNER] The stake or withdraw authority
	data := make([]byte, 4+ed25519.PublicKeySize+4)

	var offset int
	binary.LittleEndian.PutUint32(data, commandAuthorize)
	offset += 4
	copy(data[offset:], newAuthority)
	offset += ed25519.PublicKeySize
	binary.LittleEndian.PutUint32(data[offset:], uint32(authority))

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(stakeAccount, false),
		solana.NewReadonlyAccountMeta(system.ClockSysVar, false),
		solana.NewReadonlyAccountMeta(currentAuthority, true),
	)
}
