package stakepool

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stakemint/stakepool-go/pkg/solana"
	compute_budget "github.com/stakemint/stakepool-go/pkg/solana/computebudget"
	"github.com/stakemint/stakepool-go/pkg/solana/stake"
	"github.com/stakemint/stakepool-go/pkg/solana/system"
	"github.com/stakemint/stakepool-go/pkg/solana/token"
)

// ErrValidatorNotInPool indicates the requested vote account has no
// entry in the pool's validator list.
var ErrValidatorNotInPool = errors.New("vote account not found in the pool")

// UpdateStakePoolBalance walks every validator entry, which exceeds the
// default compute allowance on large pools.
const updateComputeUnitLimit = 1_400_000

// TransactionPlan is the instruction sequence and the ephemeral signers
// produced by a high level operation. The fee payer and any authority
// named in the instructions sign separately.
type TransactionPlan struct {
	Instructions []solana.Instruction
	Signers      []ed25519.PrivateKey
}

// SetComputeBudget prepends compute budget instructions to the plan,
// raising the unit limit or bidding a priority fee. A zero value leaves
// the corresponding runtime default in place.
func (p *TransactionPlan) SetComputeBudget(unitLimit uint32, unitPrice uint64) {
	var budget []solana.Instruction
	if unitLimit > 0 {
		budget = append(budget, compute_budget.SetComputeUnitLimit(unitLimit))
	}
	if unitPrice > 0 {
		budget = append(budget, compute_budget.SetComputeUnitPrice(unitPrice))
	}
	p.Instructions = append(budget, p.Instructions...)
}

// Transaction assembles the plan into a transaction signed by the
// payer and the plan's ephemeral signers.
func (p *TransactionPlan) Transaction(payer ed25519.PrivateKey, blockhash solana.Blockhash) (solana.Transaction, error) {
	txn := solana.NewTransaction(payer.Public().(ed25519.PublicKey), p.Instructions...)
	txn.SetBlockhash(blockhash)

	signers := append([]ed25519.PrivateKey{payer}, p.Signers...)
	if err := txn.Sign(signers...); err != nil {
		return solana.Transaction{}, errors.Wrap(err, "failed to sign transaction")
	}

	return txn, nil
}

// Pool provides high level operations against a single stake pool.
type Pool struct {
	log     *logrus.Entry
	sc      solana.Client
	client  *Client
	address ed25519.PublicKey
}

func NewPool(sc solana.Client, address ed25519.PublicKey) *Pool {
	return &Pool{
		log:     logrus.StandardLogger().WithField("type", "stakepool/pool"),
		sc:      sc,
		client:  NewClient(sc),
		address: address,
	}
}

func (p *Pool) Address() ed25519.PublicKey {
	return p.address
}

// DepositSol deposits lamports from the given system account in
// exchange for pool tokens.
//
// The lamports hop through an ephemeral account so the funding account
// never signs an instruction of the stake pool program directly. When
// destinationTokenAccount is nil, the depositor's associated token
// account is used and created idempotently. A nil referrer directs the
// referral fee to the destination account.
func (p *Pool) DepositSol(from, destinationTokenAccount, referrer ed25519.PublicKey, lamports uint64) (*TransactionPlan, error) {
	balance, err := p.sc.GetBalance(from)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get depositor balance")
	}
	if balance < lamports {
		return nil, errors.Errorf("not enough SOL to deposit: %s available, %s requested", FormatLamports(balance), FormatLamports(lamports))
	}

	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}

	fundingPub, fundingPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate transfer keypair")
	}

	plan := &TransactionPlan{
		Signers: []ed25519.PrivateKey{fundingPriv},
	}
	plan.Instructions = append(plan.Instructions, system.Transfer(from, fundingPub, lamports))

	if destinationTokenAccount == nil {
		createInstruction, ata, err := token.CreateAssociatedTokenAccountIdempotent(from, from, pool.PoolMint)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive associated token account")
		}

		destinationTokenAccount = ata
		plan.Instructions = append(plan.Instructions, createInstruction)
	}
	if referrer == nil {
		referrer = destinationTokenAccount
	}

	plan.Instructions = append(plan.Instructions, DepositSolInstruction(
		p.address,
		withdrawAuthority,
		pool.ReserveStake,
		fundingPub,
		destinationTokenAccount,
		pool.ManagerFeeAccount,
		referrer,
		pool.PoolMint,
		pool.SolDepositAuthority,
		lamports,
	))

	return plan, nil
}

// DepositStake deposits an active stake account delegated to
// voteAccount in exchange for pool tokens. authority is the stake
// account's current staker and withdrawer, and becomes the owner of the
// minted tokens.
func (p *Pool) DepositStake(depositStake, voteAccount, authority, poolTokenAccount ed25519.PublicKey) (*TransactionPlan, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}
	validatorStake, err := DeriveValidatorStakeAccount(p.address, voteAccount, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive validator stake account")
	}

	plan := &TransactionPlan{}

	if poolTokenAccount == nil {
		createInstruction, ata, err := token.CreateAssociatedTokenAccountIdempotent(authority, authority, pool.PoolMint)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive associated token account")
		}

		poolTokenAccount = ata
		plan.Instructions = append(plan.Instructions, createInstruction)
	}

	// Both authorities move to the pool's deposit authority before the
	// deposit instruction runs.
	plan.Instructions = append(plan.Instructions,
		stake.Authorize(depositStake, authority, pool.StakeDepositAuthority, stake.AuthorityStaker),
		stake.Authorize(depositStake, authority, pool.StakeDepositAuthority, stake.AuthorityWithdrawer),
		DepositStakeInstruction(
			p.address,
			pool.ValidatorList,
			pool.StakeDepositAuthority,
			false,
			withdrawAuthority,
			depositStake,
			validatorStake,
			pool.ReserveStake,
			poolTokenAccount,
			pool.ManagerFeeAccount,
			poolTokenAccount,
			pool.PoolMint,
		),
	)

	return plan, nil
}

// WithdrawStakeParams configures a stake withdrawal.
type WithdrawStakeParams struct {
	// TokenOwner owns the pool token account being debited, and becomes
	// the authority of every withdrawn stake account.
	TokenOwner ed25519.PublicKey
	// PoolTokens is the amount to burn.
	PoolTokens uint64

	// UseReserve forces the withdrawal out of the pool reserve.
	UseReserve bool
	// VoteAccount pins the withdrawal to a single validator.
	VoteAccount ed25519.PublicKey
	// StakeReceiver is an existing stake account to receive the split.
	// When it is delegated, the withdrawal is pinned to its validator.
	StakeReceiver ed25519.PublicKey
	// PoolTokenAccount overrides the token account to burn from.
	// Defaults to the owner's associated token account.
	PoolTokenAccount ed25519.PublicKey
	// Compare overrides the largest balance first ordering within each
	// candidate tier.
	Compare CandidateCompare
}

// WithdrawStake burns pool tokens and withdraws the redeemed lamports
// as stake. The sources are selected per the params; each source is
// split into its own destination stake account owned by TokenOwner.
func (p *Pool) WithdrawStake(params WithdrawStakeParams) (*TransactionPlan, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}
	validatorList, err := p.client.GetValidatorList(pool.ValidatorList, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	poolTokenAccount := params.PoolTokenAccount
	if poolTokenAccount == nil {
		poolTokenAccount, err = token.GetAssociatedAccount(params.TokenOwner, pool.PoolMint)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive associated token account")
		}
	}

	tokenAccount, err := token.NewClient(p.sc, pool.PoolMint).GetAccount(poolTokenAccount, solana.CommitmentConfirmed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool token account")
	}
	if tokenAccount.Amount < params.PoolTokens {
		return nil, errors.Errorf("not enough pool tokens to withdraw: %d available, %d requested", tokenAccount.Amount, params.PoolTokens)
	}

	rentExemption, err := p.sc.GetMinimumBalanceForRentExemption(stake.AccountSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get rent exemption")
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}

	// The receiver is only reused as a split destination when it is a
	// delegated stake account the withdrawal merges into. An undelegated
	// receiver cannot take a second split, so every split gets a fresh
	// stake account instead.
	voteAccount := params.VoteAccount
	var mergeReceiver ed25519.PublicKey
	if params.StakeReceiver != nil {
		delegation, err := p.sc.GetStakeDelegation(params.StakeReceiver)
		if err != nil && err != solana.ErrNoAccountInfo {
			return nil, errors.Wrap(err, "failed to get stake receiver delegation")
		}
		if delegation != nil {
			if voteAccount != nil && !bytes.Equal(voteAccount, delegation.Voter) {
				return nil, errors.Errorf("stake receiver is delegated to a different validator than requested")
			}
			voteAccount = delegation.Voter
			mergeReceiver = params.StakeReceiver
		}
	}

	// Deposits into the manager's own fee account are not charged the
	// withdrawal fee, so capacities are not inflated for it either.
	skipFee := bytes.Equal(poolTokenAccount, pool.ManagerFeeAccount)

	var withdrawAccounts []WithdrawAccount
	switch {
	case params.UseReserve:
		withdrawAccounts = []WithdrawAccount{{
			StakeAddress: pool.ReserveStake,
			PoolTokens:   params.PoolTokens,
		}}
	case voteAccount != nil:
		entry := validatorList.Find(voteAccount)
		if entry == nil {
			return nil, ErrValidatorNotInPool
		}

		stakeAddress, err := DeriveValidatorStakeAccount(p.address, voteAccount, 0)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive validator stake account")
		}

		minBalance := rentExemption + MinimumActiveStake
		if entry.ActiveStakeLamports <= minBalance {
			return nil, errors.Errorf("validator has no withdrawable stake")
		}

		available := pool.PoolTokensForDeposit(entry.ActiveStakeLamports - minBalance)
		if !skipFee {
			available = pool.StakeWithdrawalFee.inverse(available)
		}
		if available < params.PoolTokens {
			return nil, errors.Errorf("not enough stake on the validator to withdraw %d pool tokens, %d available", params.PoolTokens, available)
		}

		withdrawAccounts = []WithdrawAccount{{
			StakeAddress: stakeAddress,
			VoteAddress:  voteAccount,
			PoolTokens:   params.PoolTokens,
		}}
	default:
		reserveLamports, err := p.sc.GetBalance(pool.ReserveStake)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get reserve balance")
		}

		withdrawAccounts, err = prepareWithdrawAccounts(
			pool,
			validatorList,
			p.address,
			params.PoolTokens,
			reserveLamports,
			rentExemption,
			skipFee,
			params.Compare,
		)
		if err != nil {
			return nil, err
		}
	}

	transferAuthorityPub, transferAuthorityPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate transfer authority")
	}

	plan := &TransactionPlan{
		Signers: []ed25519.PrivateKey{transferAuthorityPriv},
	}
	plan.Instructions = append(plan.Instructions, token.Approve(
		poolTokenAccount,
		transferAuthorityPub,
		params.TokenOwner,
		params.PoolTokens,
	))

	for _, withdrawAccount := range withdrawAccounts {
		destination := mergeReceiver
		if destination == nil {
			stakePub, stakePriv, err := ed25519.GenerateKey(nil)
			if err != nil {
				return nil, errors.Wrap(err, "failed to generate stake keypair")
			}

			plan.Signers = append(plan.Signers, stakePriv)
			plan.Instructions = append(plan.Instructions, system.CreateAccount(
				params.TokenOwner,
				stakePub,
				stake.ProgramKey,
				rentExemption,
				stake.AccountSize,
			))
			destination = stakePub
		}

		plan.Instructions = append(plan.Instructions, WithdrawStakeInstruction(
			p.address,
			pool.ValidatorList,
			withdrawAuthority,
			withdrawAccount.StakeAddress,
			destination,
			params.TokenOwner,
			transferAuthorityPub,
			poolTokenAccount,
			pool.ManagerFeeAccount,
			pool.PoolMint,
			withdrawAccount.PoolTokens,
		))
	}

	return plan, nil
}

// WithdrawSol burns pool tokens and withdraws lamports from the pool
// reserve directly into solReceiver.
func (p *Pool) WithdrawSol(tokenOwner, solReceiver, poolTokenAccount ed25519.PublicKey, poolTokens uint64) (*TransactionPlan, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	if poolTokenAccount == nil {
		poolTokenAccount, err = token.GetAssociatedAccount(tokenOwner, pool.PoolMint)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive associated token account")
		}
	}

	tokenAccount, err := token.NewClient(p.sc, pool.PoolMint).GetAccount(poolTokenAccount, solana.CommitmentConfirmed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool token account")
	}
	if tokenAccount.Amount < poolTokens {
		return nil, errors.Errorf("not enough pool tokens to withdraw: %d available, %d requested", tokenAccount.Amount, poolTokens)
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}

	transferAuthorityPub, transferAuthorityPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate transfer authority")
	}

	return &TransactionPlan{
		Instructions: []solana.Instruction{
			token.Approve(poolTokenAccount, transferAuthorityPub, tokenOwner, poolTokens),
			WithdrawSolInstruction(
				p.address,
				withdrawAuthority,
				transferAuthorityPub,
				poolTokenAccount,
				pool.ReserveStake,
				solReceiver,
				pool.ManagerFeeAccount,
				pool.PoolMint,
				pool.SolWithdrawAuthority,
				poolTokens,
			),
		},
		Signers: []ed25519.PrivateKey{transferAuthorityPriv},
	}, nil
}

// IncreaseValidatorStake activates additional stake on a validator from
// the pool reserve. With a nil ephemeralStakeSeed, the rebalance uses a
// fresh transient account at the entry's next seed; supplying a seed
// targets an in-flight transient account through an ephemeral hop.
//
// The pool's staker must sign the resulting transaction.
func (p *Pool) IncreaseValidatorStake(voteAccount ed25519.PublicKey, lamports uint64, ephemeralStakeSeed *uint64) (*TransactionPlan, error) {
	pool, _, entry, err := p.validatorEntry(voteAccount)
	if err != nil {
		return nil, err
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}

	if ephemeralStakeSeed == nil {
		transientStakeSeed := entry.TransientSeedSuffixStart + 1
		transientStake, err := DeriveTransientStakeAccount(p.address, voteAccount, transientStakeSeed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive transient stake account")
		}

		return &TransactionPlan{
			Instructions: []solana.Instruction{IncreaseValidatorStakeInstruction(
				p.address,
				pool.Staker,
				withdrawAuthority,
				pool.ValidatorList,
				pool.ReserveStake,
				transientStake,
				voteAccount,
				lamports,
				transientStakeSeed,
			)},
		}, nil
	}

	transientStakeSeed := entry.TransientSeedSuffixStart
	transientStake, err := DeriveTransientStakeAccount(p.address, voteAccount, transientStakeSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive transient stake account")
	}
	ephemeralStake, err := DeriveEphemeralStakeAccount(p.address, *ephemeralStakeSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive ephemeral stake account")
	}

	return &TransactionPlan{
		Instructions: []solana.Instruction{IncreaseAdditionalValidatorStakeInstruction(
			p.address,
			pool.Staker,
			withdrawAuthority,
			pool.ValidatorList,
			pool.ReserveStake,
			ephemeralStake,
			transientStake,
			voteAccount,
			lamports,
			transientStakeSeed,
			*ephemeralStakeSeed,
		)},
	}, nil
}

// DecreaseValidatorStake deactivates stake from a validator back toward
// the pool reserve. Seed semantics match IncreaseValidatorStake.
//
// The pool's staker must sign the resulting transaction.
func (p *Pool) DecreaseValidatorStake(voteAccount ed25519.PublicKey, lamports uint64, ephemeralStakeSeed *uint64) (*TransactionPlan, error) {
	pool, _, entry, err := p.validatorEntry(voteAccount)
	if err != nil {
		return nil, err
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}
	validatorStake, err := DeriveValidatorStakeAccount(p.address, voteAccount, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive validator stake account")
	}

	if ephemeralStakeSeed == nil {
		transientStakeSeed := entry.TransientSeedSuffixStart + 1
		transientStake, err := DeriveTransientStakeAccount(p.address, voteAccount, transientStakeSeed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive transient stake account")
		}

		return &TransactionPlan{
			Instructions: []solana.Instruction{DecreaseValidatorStakeWithReserveInstruction(
				p.address,
				pool.Staker,
				withdrawAuthority,
				pool.ValidatorList,
				pool.ReserveStake,
				validatorStake,
				transientStake,
				lamports,
				transientStakeSeed,
			)},
		}, nil
	}

	transientStakeSeed := entry.TransientSeedSuffixStart
	transientStake, err := DeriveTransientStakeAccount(p.address, voteAccount, transientStakeSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive transient stake account")
	}
	ephemeralStake, err := DeriveEphemeralStakeAccount(p.address, *ephemeralStakeSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive ephemeral stake account")
	}

	return &TransactionPlan{
		Instructions: []solana.Instruction{DecreaseAdditionalValidatorStakeInstruction(
			p.address,
			pool.Staker,
			withdrawAuthority,
			pool.ValidatorList,
			pool.ReserveStake,
			validatorStake,
			ephemeralStake,
			transientStake,
			lamports,
			transientStakeSeed,
			*ephemeralStakeSeed,
		)},
	}, nil
}

// EpochUpdate is the instruction set refreshing a pool's balances for
// the current epoch. The update list instructions can be spread across
// transactions; the final instructions run once after all of them land.
type EpochUpdate struct {
	UpdateListInstructions []solana.Instruction
	FinalInstructions      []solana.Instruction
}

// UpdateStakePool builds the epoch update for the pool, merging
// completed transient stake in windows of MaxValidatorsToUpdate
// validators.
func (p *Pool) UpdateStakePool() (*EpochUpdate, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}
	validatorList, err := p.client.GetValidatorList(pool.ValidatorList, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}

	update := &EpochUpdate{}
	for start := 0; start < len(validatorList.Validators); start += MaxValidatorsToUpdate {
		end := start + MaxValidatorsToUpdate
		if end > len(validatorList.Validators) {
			end = len(validatorList.Validators)
		}

		var pairs [][2]ed25519.PublicKey
		for _, validator := range validatorList.Validators[start:end] {
			validatorStake, err := DeriveValidatorStakeAccount(p.address, validator.VoteAccountAddress, 0)
			if err != nil {
				return nil, errors.Wrap(err, "failed to derive validator stake account")
			}
			transientStake, err := DeriveTransientStakeAccount(p.address, validator.VoteAccountAddress, validator.TransientSeedSuffixStart)
			if err != nil {
				return nil, errors.Wrap(err, "failed to derive transient stake account")
			}

			pairs = append(pairs, [2]ed25519.PublicKey{validatorStake, transientStake})
		}

		update.UpdateListInstructions = append(update.UpdateListInstructions, UpdateValidatorListBalanceInstruction(
			p.address,
			withdrawAuthority,
			pool.ValidatorList,
			pool.ReserveStake,
			pairs,
			uint32(start),
			false,
		))
	}

	update.FinalInstructions = []solana.Instruction{
		compute_budget.SetComputeUnitLimit(updateComputeUnitLimit),
		UpdateStakePoolBalanceInstruction(
			p.address,
			withdrawAuthority,
			pool.ValidatorList,
			pool.ReserveStake,
			pool.ManagerFeeAccount,
			pool.PoolMint,
		),
		CleanupRemovedValidatorEntriesInstruction(p.address, pool.ValidatorList),
	}

	return update, nil
}

// Redelegate moves active stake from one validator to another without
// passing through the reserve.
//
// The pool's staker must sign the resulting transaction.
func (p *Pool) Redelegate(sourceVote, destinationVote ed25519.PublicKey, lamports, ephemeralStakeSeed uint64) (*TransactionPlan, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}
	validatorList, err := p.client.GetValidatorList(pool.ValidatorList, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	sourceEntry := validatorList.Find(sourceVote)
	if sourceEntry == nil {
		return nil, ErrValidatorNotInPool
	}
	destinationEntry := validatorList.Find(destinationVote)
	if destinationEntry == nil {
		return nil, ErrValidatorNotInPool
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}

	sourceTransientSeed := sourceEntry.TransientSeedSuffixStart + 1
	destinationTransientSeed := destinationEntry.TransientSeedSuffixStart + 1

	sourceValidatorStake, err := DeriveValidatorStakeAccount(p.address, sourceVote, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive source validator stake account")
	}
	sourceTransientStake, err := DeriveTransientStakeAccount(p.address, sourceVote, sourceTransientSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive source transient stake account")
	}
	ephemeralStake, err := DeriveEphemeralStakeAccount(p.address, ephemeralStakeSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive ephemeral stake account")
	}
	destinationTransientStake, err := DeriveTransientStakeAccount(p.address, destinationVote, destinationTransientSeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive destination transient stake account")
	}
	destinationValidatorStake, err := DeriveValidatorStakeAccount(p.address, destinationVote, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive destination validator stake account")
	}

	return &TransactionPlan{
		Instructions: []solana.Instruction{RedelegateInstruction(
			p.address,
			pool.Staker,
			withdrawAuthority,
			pool.ValidatorList,
			sourceValidatorStake,
			sourceTransientStake,
			ephemeralStake,
			destinationTransientStake,
			destinationValidatorStake,
			destinationVote,
			lamports,
			sourceTransientSeed,
			ephemeralStakeSeed,
			destinationTransientSeed,
		)},
	}, nil
}

// CreatePoolTokenMetadata creates the Metaplex metadata for the pool
// mint. The pool's manager must sign the resulting transaction.
func (p *Pool) CreatePoolTokenMetadata(payer ed25519.PublicKey, name, symbol, uri string) (*TransactionPlan, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}
	tokenMetadata, err := DeriveTokenMetadata(pool.PoolMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive token metadata")
	}

	instruction, err := CreateTokenMetadataInstruction(
		p.address,
		pool.Manager,
		withdrawAuthority,
		pool.PoolMint,
		payer,
		tokenMetadata,
		name, symbol, uri,
	)
	if err != nil {
		return nil, err
	}

	return &TransactionPlan{Instructions: []solana.Instruction{instruction}}, nil
}

// UpdatePoolTokenMetadata rewrites the Metaplex metadata for the pool
// mint. The pool's manager must sign the resulting transaction.
func (p *Pool) UpdatePoolTokenMetadata(name, symbol, uri string) (*TransactionPlan, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	withdrawAuthority, err := DeriveWithdrawAuthority(p.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive withdraw authority")
	}
	tokenMetadata, err := DeriveTokenMetadata(pool.PoolMint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive token metadata")
	}

	instruction, err := UpdateTokenMetadataInstruction(
		p.address,
		pool.Manager,
		withdrawAuthority,
		tokenMetadata,
		name, symbol, uri,
	)
	if err != nil {
		return nil, err
	}

	return &TransactionPlan{Instructions: []solana.Instruction{instruction}}, nil
}

func (p *Pool) validatorEntry(voteAccount ed25519.PublicKey) (*StakePool, *ValidatorList, *ValidatorStakeInfo, error) {
	pool, err := p.client.GetStakePool(p.address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, nil, nil, err
	}
	validatorList, err := p.client.GetValidatorList(pool.ValidatorList, solana.CommitmentConfirmed)
	if err != nil {
		return nil, nil, nil, err
	}

	entry := validatorList.Find(voteAccount)
	if entry == nil {
		return nil, nil, nil, ErrValidatorNotInPool
	}

	return pool, validatorList, entry, nil
}
