package stakepool

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stakemint/stakepool-go/pkg/solana"
)

var (
	// ErrStakePoolNotFound indicates there is no account at the given
	// stake pool address.
	ErrStakePoolNotFound = errors.New("stake pool not found")
	// ErrValidatorListNotFound indicates there is no account at the given
	// validator list address.
	ErrValidatorListNotFound = errors.New("validator list not found")
	// ErrInvalidStakePoolAccount indicates that an account exists at the
	// given address, but it does not decode as a stake pool.
	ErrInvalidStakePoolAccount = errors.New("invalid stake pool account")
	// ErrInvalidValidatorListAccount indicates that an account exists at
	// the given address, but it does not decode as a validator list.
	ErrInvalidValidatorListAccount = errors.New("invalid validator list account")
	// ErrNotStakePoolProgram indicates the account is owned by a
	// different program than expected.
	ErrNotStakePoolProgram = errors.New("account not owned by the stake pool program")
)

// Client reads and decodes stake pool program accounts.
type Client struct {
	log *logrus.Entry
	sc  solana.Client
}

func NewClient(sc solana.Client) *Client {
	return &Client{
		log: logrus.StandardLogger().WithField("type", "stakepool/client"),
		sc:  sc,
	}
}

// GetStakePool returns the decoded stake pool at the given address.
func (c *Client) GetStakePool(address ed25519.PublicKey, commitment solana.Commitment) (*StakePool, error) {
	accountInfo, err := c.sc.GetAccountInfo(address, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrStakePoolNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	if !bytes.Equal(accountInfo.Owner, ProgramKey) {
		return nil, ErrNotStakePoolProgram
	}

	var pool StakePool
	if !pool.Unmarshal(accountInfo.Data) {
		return nil, ErrInvalidStakePoolAccount
	}

	return &pool, nil
}

// GetValidatorList returns the decoded validator list at the given
// address. The address comes from the stake pool's ValidatorList field.
func (c *Client) GetValidatorList(address ed25519.PublicKey, commitment solana.Commitment) (*ValidatorList, error) {
	accountInfo, err := c.sc.GetAccountInfo(address, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrValidatorListNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	if !bytes.Equal(accountInfo.Owner, ProgramKey) {
		return nil, ErrNotStakePoolProgram
	}

	var list ValidatorList
	if !list.Unmarshal(accountInfo.Data) {
		return nil, ErrInvalidValidatorListAccount
	}

	return &list, nil
}

// ProgramAccountEntry is one account from a program wide scan. Exactly
// one of StakePool, ValidatorList, or Err is set.
type ProgramAccountEntry struct {
	PublicKey ed25519.PublicKey

	StakePool     *StakePool
	ValidatorList *ValidatorList
	Err           error
}

// GetStakePoolAccounts scans every account owned by the stake pool
// program and decodes each by its account type tag. A decode failure is
// recorded on the entry rather than failing the scan, so one corrupt
// account cannot hide the rest.
func (c *Client) GetStakePoolAccounts() ([]ProgramAccountEntry, error) {
	accounts, err := c.sc.GetProgramAccounts(ProgramKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get program accounts")
	}

	entries := make([]ProgramAccountEntry, 0, len(accounts))
	for _, account := range accounts {
		entry := ProgramAccountEntry{
			PublicKey: account.PublicKey,
		}

		if len(account.Account.Data) == 0 {
			entry.Err = errors.New("empty account data")
			entries = append(entries, entry)
			continue
		}

		switch AccountType(account.Account.Data[0]) {
		case AccountTypeStakePool:
			var pool StakePool
			if pool.Unmarshal(account.Account.Data) {
				entry.StakePool = &pool
			} else {
				entry.Err = ErrInvalidStakePoolAccount
			}
		case AccountTypeValidatorList:
			var list ValidatorList
			if list.Unmarshal(account.Account.Data) {
				entry.ValidatorList = &list
			} else {
				entry.Err = ErrInvalidValidatorListAccount
			}
		default:
			entry.Err = errors.Errorf("unknown account type: %d", account.Account.Data[0])
		}

		if entry.Err != nil {
			c.log.WithError(entry.Err).
				WithField("account", base58.Encode(account.PublicKey)).
				Warn("skipping undecodable program account")
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
