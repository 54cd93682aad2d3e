package stakepool

import (
	"crypto/ed25519"
	"encoding/binary"
)

type AccountType uint8

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeStakePool
	AccountTypeValidatorList
)

type ValidatorStakeStatus uint8

const (
	ValidatorStakeStatusActive ValidatorStakeStatus = iota
	ValidatorStakeStatusDeactivatingTransient
	ValidatorStakeStatusReadyForRemoval
)

// Fee is a protocol fee expressed as numerator/denominator of the amount
// it applies to. A zero denominator means no fee.
type Fee struct {
	Denominator uint64
	Numerator   uint64
}

func (f Fee) IsZero() bool {
	return f.Numerator == 0 || f.Denominator == 0
}

// Lockup constrains withdrawals from the pool reserve until the given
// time or epoch has passed, unless signed by the custodian.
type Lockup struct {
	UnixTimestamp int64
	Epoch         uint64
	Custodian     ed25519.PublicKey
}

// StakePool is the deserialized state of a stake pool account.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/bd3bde3cee89b0e02cf1f0b4bbdd8a3b51c5a29d/stake-pool/program/src/state.rs#L72
type StakePool struct {
	AccountType AccountType

	Manager               ed25519.PublicKey
	Staker                ed25519.PublicKey
	StakeDepositAuthority ed25519.PublicKey
	StakeWithdrawBumpSeed uint8
	ValidatorList         ed25519.PublicKey
	ReserveStake          ed25519.PublicKey
	PoolMint              ed25519.PublicKey
	ManagerFeeAccount     ed25519.PublicKey
	TokenProgramID        ed25519.PublicKey

	TotalLamports   uint64
	PoolTokenSupply uint64
	LastUpdateEpoch uint64
	Lockup          Lockup

	EpochFee     Fee
	NextEpochFee *Fee

	PreferredDepositValidator  ed25519.PublicKey
	PreferredWithdrawValidator ed25519.PublicKey

	StakeDepositFee          Fee
	StakeWithdrawalFee       Fee
	NextStakeWithdrawalFee   *Fee
	StakeReferralFee         uint8
	SolDepositAuthority      ed25519.PublicKey
	SolDepositFee            Fee
	SolReferralFee           uint8
	SolWithdrawAuthority     ed25519.PublicKey
	SolWithdrawalFee         Fee
	NextSolWithdrawalFee     *Fee
	LastEpochPoolTokenSupply uint64
	LastEpochTotalLamports   uint64
}

func (s *StakePool) Marshal() []byte {
	var w writer

	w.uint8(uint8(s.AccountType))
	w.key(s.Manager)
	w.key(s.Staker)
	w.key(s.StakeDepositAuthority)
	w.uint8(s.StakeWithdrawBumpSeed)
	w.key(s.ValidatorList)
	w.key(s.ReserveStake)
	w.key(s.PoolMint)
	w.key(s.ManagerFeeAccount)
	w.key(s.TokenProgramID)
	w.uint64(s.TotalLamports)
	w.uint64(s.PoolTokenSupply)
	w.uint64(s.LastUpdateEpoch)
	w.int64(s.Lockup.UnixTimestamp)
	w.uint64(s.Lockup.Epoch)
	w.key(s.Lockup.Custodian)
	w.fee(s.EpochFee)
	w.optionFee(s.NextEpochFee)
	w.optionKey(s.PreferredDepositValidator)
	w.optionKey(s.PreferredWithdrawValidator)
	w.fee(s.StakeDepositFee)
	w.fee(s.StakeWithdrawalFee)
	w.optionFee(s.NextStakeWithdrawalFee)
	w.uint8(s.StakeReferralFee)
	w.optionKey(s.SolDepositAuthority)
	w.fee(s.SolDepositFee)
	w.uint8(s.SolReferralFee)
	w.optionKey(s.SolWithdrawAuthority)
	w.fee(s.SolWithdrawalFee)
	w.optionFee(s.NextSolWithdrawalFee)
	w.uint64(s.LastEpochPoolTokenSupply)
	w.uint64(s.LastEpochTotalLamports)

	return w.b
}

func (s *StakePool) Unmarshal(b []byte) bool {
	r := reader{b: b}

	s.AccountType = AccountType(r.uint8())
	if s.AccountType != AccountTypeStakePool {
		return false
	}

	r.key(&s.Manager)
	r.key(&s.Staker)
	r.key(&s.StakeDepositAuthority)
	s.StakeWithdrawBumpSeed = r.uint8()
	r.key(&s.ValidatorList)
	r.key(&s.ReserveStake)
	r.key(&s.PoolMint)
	r.key(&s.ManagerFeeAccount)
	r.key(&s.TokenProgramID)
	s.TotalLamports = r.uint64()
	s.PoolTokenSupply = r.uint64()
	s.LastUpdateEpoch = r.uint64()
	s.Lockup.UnixTimestamp = r.int64()
	s.Lockup.Epoch = r.uint64()
	r.key(&s.Lockup.Custodian)
	s.EpochFee = r.fee()
	s.NextEpochFee = r.optionFee()
	s.PreferredDepositValidator = r.optionKey()
	s.PreferredWithdrawValidator = r.optionKey()
	s.StakeDepositFee = r.fee()
	s.StakeWithdrawalFee = r.fee()
	s.NextStakeWithdrawalFee = r.optionFee()
	s.StakeReferralFee = r.uint8()
	s.SolDepositAuthority = r.optionKey()
	s.SolDepositFee = r.fee()
	s.SolReferralFee = r.uint8()
	s.SolWithdrawAuthority = r.optionKey()
	s.SolWithdrawalFee = r.fee()
	s.NextSolWithdrawalFee = r.optionFee()
	s.LastEpochPoolTokenSupply = r.uint64()
	s.LastEpochTotalLamports = r.uint64()

	return !r.failed
}

// ValidatorStakeInfoSize is the serialized size of a single validator
// list entry.
const ValidatorStakeInfoSize = 5*8 + 1 + ed25519.PublicKeySize

// ValidatorStakeInfo is a single entry of a validator list account.
type ValidatorStakeInfo struct {
	// The balance of the validator stake account, including rent.
	ActiveStakeLamports uint64
	// The balance of the transient stake account, or zero when no
	// rebalance is in flight.
	TransientStakeLamports   uint64
	LastUpdateEpoch          uint64
	TransientSeedSuffixStart uint64
	TransientSeedSuffixEnd   uint64
	Status                   ValidatorStakeStatus
	VoteAccountAddress       ed25519.PublicKey
}

func (v *ValidatorStakeInfo) marshalTo(w *writer) {
	w.uint64(v.ActiveStakeLamports)
	w.uint64(v.TransientStakeLamports)
	w.uint64(v.LastUpdateEpoch)
	w.uint64(v.TransientSeedSuffixStart)
	w.uint64(v.TransientSeedSuffixEnd)
	w.uint8(uint8(v.Status))
	w.key(v.VoteAccountAddress)
}

func (v *ValidatorStakeInfo) unmarshalFrom(r *reader) {
	v.ActiveStakeLamports = r.uint64()
	v.TransientStakeLamports = r.uint64()
	v.LastUpdateEpoch = r.uint64()
	v.TransientSeedSuffixStart = r.uint64()
	v.TransientSeedSuffixEnd = r.uint64()
	v.Status = ValidatorStakeStatus(r.uint8())
	r.key(&v.VoteAccountAddress)
}

// ValidatorList is the deserialized state of a validator list account.
type ValidatorList struct {
	AccountType   AccountType
	MaxValidators uint32
	Validators    []ValidatorStakeInfo
}

func (l *ValidatorList) Marshal() []byte {
	var w writer

	w.uint8(uint8(l.AccountType))
	w.uint32(l.MaxValidators)
	w.uint32(uint32(len(l.Validators)))
	for i := range l.Validators {
		l.Validators[i].marshalTo(&w)
	}

	return w.b
}

func (l *ValidatorList) Unmarshal(b []byte) bool {
	r := reader{b: b}

	l.AccountType = AccountType(r.uint8())
	if l.AccountType != AccountTypeValidatorList {
		return false
	}

	l.MaxValidators = r.uint32()
	count := r.uint32()
	if r.failed || uint64(count)*ValidatorStakeInfoSize > uint64(len(b)) {
		return false
	}

	l.Validators = make([]ValidatorStakeInfo, count)
	for i := range l.Validators {
		l.Validators[i].unmarshalFrom(&r)
	}

	return !r.failed
}

// Find returns the entry for the given vote account, or nil if the
// validator is not part of the pool.
func (l *ValidatorList) Find(voteAccount ed25519.PublicKey) *ValidatorStakeInfo {
	for i := range l.Validators {
		if l.Validators[i].VoteAccountAddress.Equal(voteAccount) {
			return &l.Validators[i]
		}
	}
	return nil
}

// reader decodes the borsh layouts used by stake pool accounts. Options
// are a single presence byte followed by the payload only when set, so
// offsets cannot be computed up front.
type reader struct {
	b      []byte
	failed bool
}

func (r *reader) take(n int) []byte {
	if r.failed || len(r.b) < n {
		r.failed = true
		return nil
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v
}

func (r *reader) uint8() uint8 {
	v := r.take(1)
	if v == nil {
		return 0
	}
	return v[0]
}

func (r *reader) uint32() uint32 {
	v := r.take(4)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(v)
}

func (r *reader) uint64() uint64 {
	v := r.take(8)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

func (r *reader) int64() int64 {
	return int64(r.uint64())
}

func (r *reader) key(dst *ed25519.PublicKey) {
	v := r.take(ed25519.PublicKeySize)
	if v == nil {
		return
	}
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, v)
}

func (r *reader) optionKey() ed25519.PublicKey {
	if r.uint8() == 0 {
		return nil
	}
	var k ed25519.PublicKey
	r.key(&k)
	return k
}

func (r *reader) fee() Fee {
	return Fee{
		Denominator: r.uint64(),
		Numerator:   r.uint64(),
	}
}

func (r *reader) optionFee() *Fee {
	if r.uint8() == 0 {
		return nil
	}
	f := r.fee()
	return &f
}

type writer struct {
	b []byte
}

func (w *writer) uint8(v uint8) {
	w.b = append(w.b, v)
}

func (w *writer) uint32(v uint32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
}

func (w *writer) uint64(v uint64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, v)
}

func (w *writer) int64(v int64) {
	w.uint64(uint64(v))
}

func (w *writer) key(k ed25519.PublicKey) {
	var zero [ed25519.PublicKeySize]byte
	if len(k) == 0 {
		w.b = append(w.b, zero[:]...)
		return
	}
	w.b = append(w.b, k...)
}

func (w *writer) optionKey(k ed25519.PublicKey) {
	if len(k) == 0 {
		w.uint8(0)
		return
	}
	w.uint8(1)
	w.b = append(w.b, k...)
}

func (w *writer) fee(f Fee) {
	w.uint64(f.Denominator)
	w.uint64(f.Numerator)
}

func (w *writer) optionFee(f *Fee) {
	if f == nil {
		w.uint8(0)
		return
	}
	w.uint8(1)
	w.fee(*f)
}
