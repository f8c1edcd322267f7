package stakepool

import (
	"math/big"

	"nhbchain/core/types"
	"nhbchain/crypto"
	nativecommon "nhbchain/native/common"
	"nhbchain/native/token"
	"nhbchain/observability/metrics"
)

const moduleName = "stakepool"

// engineState is the persistence surface the engine needs; callers wire a
// core/state-backed implementation via SetState.
type engineState interface {
	GetPool(addr crypto.Address) (*Pool, error)
	PutPool(addr crypto.Address, pool *Pool) error
	GetValidatorList(addr crypto.Address) (*ValidatorList, error)
	PutValidatorList(addr crypto.Address, list *ValidatorList) error
	GetNativeAccount(addr crypto.Address) (*types.Account, error)
	PutNativeAccount(addr crypto.Address, account *types.Account) error
}

// Engine orchestrates the delegated stake pool's lifecycle: validator
// roster management, the two-phase epoch update pipeline, and pool-token
// issuance/redemption against the fair-share exchange rate.
type Engine struct {
	state   engineState
	token   *token.Engine
	pauses  nativecommon.PauseView
	epoch   uint64
	limiter *nativecommon.RateLimiter
}

// NewEngine constructs an unconfigured pool engine; SetState and
// SetTokenLedger must be called before any operation is invoked.
func NewEngine() *Engine {
	return &Engine{}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetTokenLedger wires the engine to the TokenLedger engine used to mint and
// burn pool tokens.
func (e *Engine) SetTokenLedger(tok *token.Engine) {
	if e == nil {
		return
	}
	e.token = tok
}

// SetPauses wires the engine to the shared module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEpoch records the current epoch used by the update pipeline and
// removal staleness checks.
func (e *Engine) SetEpoch(epoch uint64) {
	if e == nil {
		return
	}
	e.epoch = epoch
}

func (e *Engine) guard() error {
	return nativecommon.Guard(e.pauses, moduleName)
}

// SetRateLimiter wires a per-pool token-bucket limiter over
// UpdateValidatorListBalance, the most call-frequent step of the epoch
// update pipeline. A nil limiter (the zero value) disables limiting.
func (e *Engine) SetRateLimiter(limiter *nativecommon.RateLimiter) {
	if e == nil {
		return
	}
	e.limiter = limiter
}

func (e *Engine) balance(addr crypto.Address) (*big.Int, error) {
	acct, err := e.state.GetNativeAccount(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.BalanceNHB == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(acct.BalanceNHB), nil
}

func (e *Engine) setBalance(addr crypto.Address, amount *big.Int) error {
	acct, err := e.state.GetNativeAccount(addr)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = &types.Account{}
	}
	acct.BalanceNHB = amount
	return e.state.PutNativeAccount(addr, acct)
}

func (e *Engine) moveLamports(from, to crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	amt := new(big.Int).SetUint64(amount)
	fromBal, err := e.balance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientStake
	}
	toBal, err := e.balance(to)
	if err != nil {
		return err
	}
	if err := e.setBalance(from, new(big.Int).Sub(fromBal, amt)); err != nil {
		return err
	}
	return e.setBalance(to, new(big.Int).Add(toBal, amt))
}

// Initialize creates a new pool and its (initially empty) validator list.
// The caller is responsible for having already created poolMint via the
// TokenLedger (InitializeMint with this engine's withdraw authority as the
// mint authority).
func (e *Engine) Initialize(poolAddr crypto.Address, pool *Pool, maxValidators uint32) error {
	if err := e.guard(); err != nil {
		return err
	}
	existing, err := e.state.GetPool(poolAddr)
	if err != nil {
		return err
	}
	if existing != nil && existing.AccountType != AccountTypeUninitialized {
		return ErrPoolAlreadyInUse
	}
	if err := pool.EpochFee.validate(); err != nil {
		return err
	}
	if maxValidators == 0 {
		maxValidators = MaxValidatorsDefault
	}
	pool.AccountType = AccountTypePool
	pool.StakeWithdrawBumpSeed = 0
	if err := e.state.PutPool(poolAddr, pool); err != nil {
		return err
	}
	list := &ValidatorList{AccountType: AccountTypeValidatorList, MaxValidators: maxValidators}
	return e.state.PutValidatorList(pool.ValidatorList, list)
}

func (e *Engine) loadPool(poolAddr crypto.Address) (*Pool, *ValidatorList, error) {
	pool, err := e.state.GetPool(poolAddr)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil || pool.AccountType != AccountTypePool {
		return nil, nil, ErrPoolNotFound
	}
	list, err := e.state.GetValidatorList(pool.ValidatorList)
	if err != nil {
		return nil, nil, err
	}
	if list == nil {
		list = &ValidatorList{AccountType: AccountTypeValidatorList, MaxValidators: MaxValidatorsDefault}
	}
	return pool, list, nil
}

// mintAuthoritySigners returns the signer set satisfying a pool token
// mint's MintAuthority, which by convention is configured to
// DeriveAuthority(poolAddr, SeedWithdraw) at InitializeMint time: the
// engine "signs" with its own deterministically-derived authority the same
// way a PDA invoke_signed would, without a private key changing hands.
func mintAuthoritySigners(poolAddr crypto.Address) token.SignerSet {
	return token.NewSignerSet(DeriveAuthority(poolAddr, SeedWithdraw))
}

func requireSigner(expected crypto.Address, signers token.SignerSet) error {
	if signers == nil || !signers[expected.String()] {
		return ErrMissingRequiredSignature
	}
	return nil
}

// AddValidatorToPool registers voteAccount as a pool member, authorized by
// the pool's StakingAuthority.
func (e *Engine) AddValidatorToPool(poolAddr, voteAccount crypto.Address, seedSuffix uint64, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.StakingAuthority, signers); err != nil {
		return err
	}
	if list.find(voteAccount) >= 0 {
		return ErrValidatorAlreadyAdded
	}
	if uint32(len(list.Validators)) >= list.MaxValidators {
		return ErrValidatorListOverflow
	}
	list.Validators = append(list.Validators, ValidatorStakeInfo{
		LastUpdateEpoch:     e.epoch,
		ValidatorSeedSuffix: seedSuffix,
		Status:              ValidatorStatusActive,
		VoteAccountAddr:     voteAccount,
	})
	return e.state.PutValidatorList(pool.ValidatorList, list)
}

// RemoveValidatorFromPool marks voteAccount for removal: its active and any
// transient stake begin deactivating, and CleanupRemovedValidatorEntries
// will drop the entry once both reach zero.
func (e *Engine) RemoveValidatorFromPool(poolAddr, voteAccount crypto.Address, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.StakingAuthority, signers); err != nil {
		return err
	}
	idx := list.find(voteAccount)
	if idx < 0 {
		return ErrValidatorNotFound
	}
	entry := &list.Validators[idx]
	if entry.LastUpdateEpoch != e.epoch {
		return ErrStaleValidatorListBalance
	}
	entry.Status = ValidatorStatusDeactivatingAll
	return e.state.PutValidatorList(pool.ValidatorList, list)
}

// IncreaseValidatorStake moves lamports out of the pool's reserve into a
// transient stake account activating against voteAccount, authorized by the
// pool's StakingAuthority.
func (e *Engine) IncreaseValidatorStake(poolAddr, voteAccount crypto.Address, lamports uint64, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	if lamports < MinimumDelegationLamports {
		return ErrMinimumDelegation
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.StakingAuthority, signers); err != nil {
		return err
	}
	idx := list.find(voteAccount)
	if idx < 0 {
		return ErrValidatorNotFound
	}
	entry := &list.Validators[idx]
	if entry.Status != ValidatorStatusActive {
		return ErrValidatorNotFound
	}
	if entry.TransientStakeLamports != 0 {
		return ErrTransientStakeInProgress
	}
	reserveBal, err := e.balance(pool.ReserveStake)
	if err != nil {
		return err
	}
	needed := new(big.Int).SetUint64(lamports + MinimumReserveLamports)
	if reserveBal.Cmp(needed) < 0 {
		return ErrInsufficientStake
	}
	transientAddr := DeriveTransientStakeAddress(poolAddr, voteAccount, entry.TransientSeedSuffix+1)
	if err := e.moveLamports(pool.ReserveStake, transientAddr, lamports); err != nil {
		return err
	}
	entry.TransientSeedSuffix++
	entry.TransientStakeLamports += lamports
	return e.state.PutValidatorList(pool.ValidatorList, list)
}

// DecreaseValidatorStake begins deactivating lamports of voteAccount's
// active stake, moving them to a transient account that
// UpdateValidatorListBalance will later merge back into the reserve.
func (e *Engine) DecreaseValidatorStake(poolAddr, voteAccount crypto.Address, lamports uint64, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.StakingAuthority, signers); err != nil {
		return err
	}
	idx := list.find(voteAccount)
	if idx < 0 {
		return ErrValidatorNotFound
	}
	entry := &list.Validators[idx]
	if entry.ActiveStakeLamports < lamports {
		return ErrInsufficientStake
	}
	if entry.TransientStakeLamports != 0 {
		return ErrTransientStakeInProgress
	}
	validatorAddr := DeriveValidatorStakeAddress(poolAddr, voteAccount, entry.ValidatorSeedSuffix)
	transientAddr := DeriveTransientStakeAddress(poolAddr, voteAccount, entry.TransientSeedSuffix+1)
	if err := e.moveLamports(validatorAddr, transientAddr, lamports); err != nil {
		return err
	}
	entry.ActiveStakeLamports -= lamports
	entry.TransientSeedSuffix++
	entry.TransientStakeLamports += lamports
	entry.Status = ValidatorStatusDeactivatingTransient
	return e.state.PutValidatorList(pool.ValidatorList, list)
}

// UpdateValidatorListBalance rolls every validator's finished transient
// stake movement (deposits become active stake; withdrawals return to the
// reserve) forward to the current epoch. It must run before
// UpdateStakePoolBalance each epoch.
func (e *Engine) UpdateValidatorListBalance(poolAddr crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	if e.limiter != nil {
		if err := e.limiter.CheckRateLimit(poolAddr.Bytes()); err != nil {
			metrics.StakePool().IncRateLimited("update_validator_list_balance")
			return err
		}
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	for i := range list.Validators {
		entry := &list.Validators[i]
		if entry.LastUpdateEpoch == e.epoch {
			continue
		}
		if entry.TransientStakeLamports > 0 {
			switch entry.Status {
			case ValidatorStatusDeactivatingTransient, ValidatorStatusDeactivatingAll:
				transientAddr := DeriveTransientStakeAddress(poolAddr, entry.VoteAccountAddr, entry.TransientSeedSuffix)
				if err := e.moveLamports(transientAddr, pool.ReserveStake, entry.TransientStakeLamports); err != nil {
					return err
				}
				entry.TransientStakeLamports = 0
			default:
				entry.ActiveStakeLamports += entry.TransientStakeLamports
				entry.TransientStakeLamports = 0
			}
		}
		if entry.Status == ValidatorStatusDeactivatingAll && entry.ActiveStakeLamports > 0 {
			validatorAddr := DeriveValidatorStakeAddress(poolAddr, entry.VoteAccountAddr, entry.ValidatorSeedSuffix)
			transientAddr := DeriveTransientStakeAddress(poolAddr, entry.VoteAccountAddr, entry.TransientSeedSuffix+1)
			if err := e.moveLamports(validatorAddr, transientAddr, entry.ActiveStakeLamports); err != nil {
				return err
			}
			entry.TransientSeedSuffix++
			entry.TransientStakeLamports = entry.ActiveStakeLamports
			entry.ActiveStakeLamports = 0
			entry.Status = ValidatorStatusDeactivatingTransient
		} else if (entry.Status == ValidatorStatusDeactivatingTransient || entry.Status == ValidatorStatusDeactivatingAll) && entry.TransientStakeLamports == 0 && entry.ActiveStakeLamports == 0 {
			entry.Status = ValidatorStatusReadyForRemoval
		}
		entry.LastUpdateEpoch = e.epoch
	}
	if err := e.state.PutValidatorList(pool.ValidatorList, list); err != nil {
		return err
	}
	metrics.StakePool().ObserveValidatorUpdate(poolAddr.String())
	return nil
}

// UpdateStakePoolBalance recomputes the pool's TotalLamports across the
// reserve and every validator's active+transient stake, then mints the
// manager's epoch fee in pool tokens against the growth since the last
// epoch snapshot. Must run after UpdateValidatorListBalance.
func (e *Engine) UpdateStakePoolBalance(poolAddr crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if pool.LastUpdateEpoch == e.epoch {
		return ErrAlreadyUpdatedThisEpoch
	}
	reserveBal, err := e.balance(pool.ReserveStake)
	if err != nil {
		return err
	}
	total := new(big.Int).Set(reserveBal)
	for _, v := range list.Validators {
		total.Add(total, new(big.Int).SetUint64(v.ActiveStakeLamports))
		total.Add(total, new(big.Int).SetUint64(v.TransientStakeLamports))
	}
	if !total.IsUint64() {
		return ErrMathOverflow
	}
	totalLamports := total.Uint64()

	if pool.EpochFee.Denominator != 0 && totalLamports > pool.LastEpochTotalLamports && pool.LastEpochPoolTokenSupply > 0 {
		growth := totalLamports - pool.LastEpochTotalLamports
		feeLamports := pool.EpochFee.apply(growth)
		if feeLamports > 0 && e.token != nil {
			feeTokens := e.lamportsToPoolTokens(pool, feeLamports, totalLamports)
			if feeTokens > 0 {
				if err := e.token.MintTo(pool.PoolMint, pool.ManagerFeeAccount, feeTokens, mintAuthoritySigners(poolAddr)); err != nil {
					return err
				}
				pool.PoolTokenSupply += feeTokens
			}
		}
	}

	pool.TotalLamports = totalLamports
	pool.LastUpdateEpoch = e.epoch
	pool.LastEpochPoolTokenSupply = pool.PoolTokenSupply
	pool.LastEpochTotalLamports = totalLamports
	if pool.EpochFee.Numerator != pool.NextEpochFee.Numerator || pool.EpochFee.Denominator != pool.NextEpochFee.Denominator {
		pool.EpochFee = pool.NextEpochFee
	}
	if pool.StakeWithdrawalFee != pool.NextStakeWithdrawalFee {
		pool.StakeWithdrawalFee = pool.NextStakeWithdrawalFee
	}
	if pool.SolWithdrawalFee != pool.NextSolWithdrawalFee {
		pool.SolWithdrawalFee = pool.NextSolWithdrawalFee
	}
	if err := e.state.PutPool(poolAddr, pool); err != nil {
		return err
	}
	metrics.StakePool().SetPoolTotals(poolAddr.String(), float64(pool.TotalLamports), float64(pool.PoolTokenSupply))
	return nil
}

// CleanupRemovedValidatorEntries drops every validator entry that has
// reached ValidatorStatusReadyForRemoval with zero stake outstanding.
func (e *Engine) CleanupRemovedValidatorEntries(poolAddr crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	kept := list.Validators[:0]
	for _, v := range list.Validators {
		if v.Status == ValidatorStatusReadyForRemoval && v.ActiveStakeLamports == 0 && v.TransientStakeLamports == 0 {
			continue
		}
		kept = append(kept, v)
	}
	list.Validators = kept
	return e.state.PutValidatorList(pool.ValidatorList, list)
}

// exchangeRate returns how many lamports one pool token is currently worth,
// as a (numerator, denominator) pair to avoid lossy intermediate division.
func exchangeRate(pool *Pool) (num, den uint64) {
	if pool.PoolTokenSupply == 0 || pool.TotalLamports == 0 {
		return 1, 1
	}
	return pool.TotalLamports, pool.PoolTokenSupply
}

func (e *Engine) lamportsToPoolTokens(pool *Pool, lamports uint64, totalOverride uint64) uint64 {
	snapshot := *pool
	if totalOverride > 0 {
		snapshot.TotalLamports = pool.LastEpochTotalLamports
	}
	num, den := exchangeRate(&snapshot)
	if num == 0 {
		return 0
	}
	return lamports * den / num
}

func poolTokensToLamports(pool *Pool, tokens uint64) uint64 {
	num, den := exchangeRate(pool)
	if den == 0 {
		return 0
	}
	return tokens * num / den
}

// DepositStake converts depositAmount lamports of already-activated stake
// delegated to voteAccount into pool active stake, minting pool tokens to
// poolTokenAccount at the current exchange rate less the stake deposit fee.
func (e *Engine) DepositStake(poolAddr, voteAccount, poolTokenAccount crypto.Address, depositAmount uint64, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if !nativecommon.AddressIsZero(pool.StakeDepositAuthority) {
		if err := requireSigner(pool.StakeDepositAuthority, signers); err != nil {
			return err
		}
	}
	idx := list.find(voteAccount)
	if idx < 0 {
		return ErrValidatorNotFound
	}
	entry := &list.Validators[idx]
	poolTokens := poolTokensForDeposit(pool, depositAmount, pool.StakeDepositFee)
	if poolTokens == 0 {
		return ErrMinimumDelegation
	}
	validatorAddr := DeriveValidatorStakeAddress(poolAddr, voteAccount, entry.ValidatorSeedSuffix)
	if err := e.setBalance(validatorAddr, addUint64(mustBalance(e, validatorAddr), depositAmount)); err != nil {
		return err
	}
	entry.ActiveStakeLamports += depositAmount
	pool.TotalLamports += depositAmount
	pool.PoolTokenSupply += poolTokens
	if e.token != nil {
		if err := e.token.MintTo(pool.PoolMint, poolTokenAccount, poolTokens, mintAuthoritySigners(poolAddr)); err != nil {
			return err
		}
	}
	if err := e.state.PutValidatorList(pool.ValidatorList, list); err != nil {
		return err
	}
	if err := e.state.PutPool(poolAddr, pool); err != nil {
		return err
	}
	metrics.StakePool().ObserveDeposit(poolAddr.String(), "stake")
	return nil
}

func mustBalance(e *Engine, addr crypto.Address) *big.Int {
	bal, err := e.balance(addr)
	if err != nil || bal == nil {
		return big.NewInt(0)
	}
	return bal
}

func addUint64(b *big.Int, amount uint64) *big.Int {
	return new(big.Int).Add(b, new(big.Int).SetUint64(amount))
}

func poolTokensForDeposit(pool *Pool, lamports uint64, fee Fee) uint64 {
	num, den := exchangeRate(pool)
	if num == 0 {
		return 0
	}
	gross := lamports * den / num
	return gross - fee.apply(gross)
}

// WithdrawStake burns poolTokenAmount of the caller's pool tokens and moves
// the corresponding share of voteAccount's active stake (less the
// withdrawal fee) to destinationStake.
func (e *Engine) WithdrawStake(poolAddr, voteAccount, sourcePoolTokenAccount, destinationStake crypto.Address, poolTokenAmount uint64, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, list, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	idx := list.find(voteAccount)
	if idx < 0 {
		return ErrValidatorNotFound
	}
	entry := &list.Validators[idx]
	lamports := poolTokensToLamports(pool, poolTokenAmount)
	net := lamports - pool.StakeWithdrawalFee.apply(lamports)
	if net == 0 || entry.ActiveStakeLamports < net {
		return ErrInsufficientStake
	}
	if e.token != nil {
		if err := e.token.Burn(sourcePoolTokenAccount, poolTokenAmount, signers); err != nil {
			return err
		}
	}
	validatorAddr := DeriveValidatorStakeAddress(poolAddr, voteAccount, entry.ValidatorSeedSuffix)
	if err := e.moveLamports(validatorAddr, destinationStake, net); err != nil {
		return err
	}
	entry.ActiveStakeLamports -= net
	pool.TotalLamports -= net
	pool.PoolTokenSupply -= poolTokenAmount
	if err := e.state.PutValidatorList(pool.ValidatorList, list); err != nil {
		return err
	}
	if err := e.state.PutPool(poolAddr, pool); err != nil {
		return err
	}
	metrics.StakePool().ObserveWithdrawal(poolAddr.String(), "stake")
	return nil
}

// DepositSol deposits amountLamports directly into the pool's reserve,
// minting pool tokens to poolTokenAccount at the current exchange rate less
// the SOL deposit fee. fromAccount funds the deposit.
func (e *Engine) DepositSol(poolAddr, fromAccount, poolTokenAccount crypto.Address, amountLamports uint64, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, _, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if !nativecommon.AddressIsZero(pool.SolDepositAuthority) {
		if err := requireSigner(pool.SolDepositAuthority, signers); err != nil {
			return err
		}
	}
	poolTokens := poolTokensForDeposit(pool, amountLamports, pool.SolDepositFee)
	if poolTokens == 0 {
		return ErrMinimumDelegation
	}
	if err := e.moveLamports(fromAccount, pool.ReserveStake, amountLamports); err != nil {
		return err
	}
	pool.TotalLamports += amountLamports
	pool.PoolTokenSupply += poolTokens
	if e.token != nil {
		if err := e.token.MintTo(pool.PoolMint, poolTokenAccount, poolTokens, mintAuthoritySigners(poolAddr)); err != nil {
			return err
		}
	}
	if err := e.state.PutPool(poolAddr, pool); err != nil {
		return err
	}
	metrics.StakePool().ObserveDeposit(poolAddr.String(), "sol")
	return nil
}

// WithdrawSol burns poolTokenAmount of pool tokens and pays out the
// corresponding share of the reserve (less the SOL withdrawal fee) to
// destination. Requires SolWithdrawAuthority's signature if configured.
func (e *Engine) WithdrawSol(poolAddr, sourcePoolTokenAccount, destination crypto.Address, poolTokenAmount uint64, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, _, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if !nativecommon.AddressIsZero(pool.SolWithdrawAuthority) {
		if err := requireSigner(pool.SolWithdrawAuthority, signers); err != nil {
			return ErrSolWithdrawalsUnavailable
		}
	}
	lamports := poolTokensToLamports(pool, poolTokenAmount)
	net := lamports - pool.SolWithdrawalFee.apply(lamports)
	reserveBal, err := e.balance(pool.ReserveStake)
	if err != nil {
		return err
	}
	remaining := new(big.Int).Sub(reserveBal, new(big.Int).SetUint64(net))
	if remaining.Cmp(new(big.Int).SetUint64(MinimumReserveLamports)) < 0 {
		return ErrInsufficientStake
	}
	if e.token != nil {
		if err := e.token.Burn(sourcePoolTokenAccount, poolTokenAmount, signers); err != nil {
			return err
		}
	}
	if err := e.moveLamports(pool.ReserveStake, destination, net); err != nil {
		return err
	}
	pool.TotalLamports -= net
	pool.PoolTokenSupply -= poolTokenAmount
	if err := e.state.PutPool(poolAddr, pool); err != nil {
		return err
	}
	metrics.StakePool().ObserveWithdrawal(poolAddr.String(), "sol")
	return nil
}

// SetFee updates the pool's epoch or stake-withdrawal fee to take effect
// next epoch, rejecting any increase larger than the configured maximum.
func (e *Engine) SetFee(poolAddr crypto.Address, isEpochFee bool, next Fee, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, _, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.Manager, signers); err != nil {
		return err
	}
	if isEpochFee {
		if err := checkFeeIncrease(pool.EpochFee, next); err != nil {
			return err
		}
		pool.NextEpochFee = next
	} else {
		if err := checkFeeIncrease(pool.StakeWithdrawalFee, next); err != nil {
			return err
		}
		pool.NextStakeWithdrawalFee = next
	}
	return e.state.PutPool(poolAddr, pool)
}

// SetManager reassigns the pool's manager authority, the signer required by
// SetFee, SetStakingAuthority, and SetManager itself. Both the current and
// incoming manager must sign, mirroring the two-signature manager handoff the
// upstream program requires before a manager key can be rotated.
func (e *Engine) SetManager(poolAddr crypto.Address, newManager, newManagerFeeAccount crypto.Address, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, _, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.Manager, signers); err != nil {
		return err
	}
	if err := requireSigner(newManager, signers); err != nil {
		return err
	}
	pool.Manager = newManager
	pool.ManagerFeeAccount = newManagerFeeAccount
	return e.state.PutPool(poolAddr, pool)
}

// SetStakingAuthority reassigns the pool's staking authority, the signer
// required by AddValidatorToPool/RemoveValidatorFromPool and
// IncreaseValidatorStake/DecreaseValidatorStake. Only the current manager may
// authorize the change.
func (e *Engine) SetStakingAuthority(poolAddr crypto.Address, newStakingAuthority crypto.Address, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, _, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.Manager, signers); err != nil {
		return err
	}
	pool.StakingAuthority = newStakingAuthority
	return e.state.PutPool(poolAddr, pool)
}

// SetStaker is an alias for SetStakingAuthority.
func (e *Engine) SetStaker(poolAddr crypto.Address, newStaker crypto.Address, signers token.SignerSet) error {
	return e.SetStakingAuthority(poolAddr, newStaker, signers)
}

// SetStakeDepositAuthority reassigns, or clears (by passing the zero
// address), the pool's deposit gate. Only the current manager may authorize
// the change; a zero StakeDepositAuthority makes DepositStake permissionless
// again. DepositSol is gated by SolDepositAuthority, not by this field.
func (e *Engine) SetStakeDepositAuthority(poolAddr crypto.Address, newAuthority crypto.Address, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	pool, _, err := e.loadPool(poolAddr)
	if err != nil {
		return err
	}
	if err := requireSigner(pool.Manager, signers); err != nil {
		return err
	}
	pool.StakeDepositAuthority = newAuthority
	return e.state.PutPool(poolAddr, pool)
}
