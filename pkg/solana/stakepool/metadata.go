package stakepool

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/stakemint/stakepool-go/pkg/solana"
	"github.com/stakemint/stakepool-go/pkg/solana/system"
)

// Metaplex metadata field limits.
//
// Reference: https://github.com/metaplex-foundation/metaplex-program-library/blob/caeab0f7/token-metadata/program/src/state/mod.rs#L22
const (
	MaxMetadataNameLength   = 32
	MaxMetadataSymbolLength = 10
	MaxMetadataURILength    = 200
)

var (
	ErrMetadataNameTooLong   = errors.Errorf("metadata name exceeds %d bytes", MaxMetadataNameLength)
	ErrMetadataSymbolTooLong = errors.Errorf("metadata symbol exceeds %d bytes", MaxMetadataSymbolLength)
	ErrMetadataURITooLong    = errors.Errorf("metadata uri exceeds %d bytes", MaxMetadataURILength)
)

func validateMetadata(name, symbol, uri string) error {
	if len(name) > MaxMetadataNameLength {
		return ErrMetadataNameTooLong
	}
	if len(symbol) > MaxMetadataSymbolLength {
		return ErrMetadataSymbolTooLong
	}
	if len(uri) > MaxMetadataURILength {
		return ErrMetadataURITooLong
	}
	return nil
}

func marshalMetadataArgs(command Command, name, symbol, uri string) []byte {
	data := make([]byte, 0, 1+3*4+len(name)+len(symbol)+len(uri))
	data = append(data, byte(command))
	for _, s := range []string{name, symbol, uri} {
		data = binary.LittleEndian.AppendUint32(data, uint32(len(s)))
		data = append(data, s...)
	}
	return data
}

// CreateTokenMetadataInstruction creates the Metaplex metadata account
// for the pool mint. Field lengths are validated before any account is
// touched so oversized values fail without a network round trip.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/instruction.rs#L513
func CreateTokenMetadataInstruction(
	stakePool ed25519.PublicKey,
	manager ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	poolMint ed25519.PublicKey,
	payer ed25519.PublicKey,
	tokenMetadata ed25519.PublicKey,
	name, symbol, uri string,
) (solana.Instruction, error) {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Manager
	//   2. `[]` Stake pool withdraw authority
	//   3. `[]` Pool token mint account
	//   4. `[signer, writable]` Payer for creation of token metadata account
	//   5. `[writable]` Token metadata account
	//   6. `[]` Metadata program id
	//   7. `[]` System program id
	if err := validateMetadata(name, symbol, uri); err != nil {
		return solana.Instruction{}, err
	}

	return solana.NewInstruction(
		ProgramKey,
		marshalMetadataArgs(CommandCreateTokenMetadata, name, symbol, uri),
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(manager, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewReadonlyAccountMeta(poolMint, false),
		solana.NewAccountMeta(payer, true),
		solana.NewAccountMeta(tokenMetadata, false),
		solana.NewReadonlyAccountMeta(MetadataProgramKey, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	), nil
}

// UpdateTokenMetadataInstruction rewrites the pool mint's Metaplex
// metadata fields.
func UpdateTokenMetadataInstruction(
	stakePool ed25519.PublicKey,
	manager ed25519.PublicKey,
	withdrawAuthority ed25519.PublicKey,
	tokenMetadata ed25519.PublicKey,
	name, symbol, uri string,
) (solana.Instruction, error) {
	// Accounts expected by this instruction:
	//
	//   0. `[]` Stake pool
	//   1. `[signer]` Manager
	//   2. `[]` Stake pool withdraw authority
	//   3. `[writable]` Token metadata account
	//   4. `[]` Metadata program id
	if err := validateMetadata(name, symbol, uri); err != nil {
		return solana.Instruction{}, err
	}

	return solana.NewInstruction(
		ProgramKey,
		marshalMetadataArgs(CommandUpdateTokenMetadata, name, symbol, uri),
		solana.NewReadonlyAccountMeta(stakePool, false),
		solana.NewReadonlyAccountMeta(manager, true),
		solana.NewReadonlyAccountMeta(withdrawAuthority, false),
		solana.NewAccountMeta(tokenMetadata, false),
		solana.NewReadonlyAccountMeta(MetadataProgramKey, false),
	), nil
}
