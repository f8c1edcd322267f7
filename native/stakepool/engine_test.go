package stakepool_test

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"

	"nhbchain/core/types"
	"nhbchain/crypto"
	"nhbchain/native/stakepool"
	"nhbchain/native/token"
	"nhbchain/native/token/memledger"
)

type mockState struct {
	pools          map[string]*stakepool.Pool
	validatorLists map[string]*stakepool.ValidatorList
	accounts       map[string]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		pools:          make(map[string]*stakepool.Pool),
		validatorLists: make(map[string]*stakepool.ValidatorList),
		accounts:       make(map[string]*types.Account),
	}
}

func key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockState) GetPool(addr crypto.Address) (*stakepool.Pool, error) {
	if p, ok := m.pools[key(addr)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockState) PutPool(addr crypto.Address, pool *stakepool.Pool) error {
	cp := *pool
	m.pools[key(addr)] = &cp
	return nil
}

func (m *mockState) GetValidatorList(addr crypto.Address) (*stakepool.ValidatorList, error) {
	if l, ok := m.validatorLists[key(addr)]; ok {
		cp := *l
		cp.Validators = append([]stakepool.ValidatorStakeInfo(nil), l.Validators...)
		return &cp, nil
	}
	return nil, nil
}

func (m *mockState) PutValidatorList(addr crypto.Address, list *stakepool.ValidatorList) error {
	cp := *list
	cp.Validators = append([]stakepool.ValidatorStakeInfo(nil), list.Validators...)
	m.validatorLists[key(addr)] = &cp
	return nil
}

func (m *mockState) GetNativeAccount(addr crypto.Address) (*types.Account, error) {
	if a, ok := m.accounts[key(addr)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *mockState) PutNativeAccount(addr crypto.Address, account *types.Account) error {
	cp := *account
	m.accounts[key(addr)] = &cp
	return nil
}

func (m *mockState) fund(addr crypto.Address, lamports int64) {
	m.accounts[key(addr)] = &types.Account{BalanceNHB: big.NewInt(lamports)}
}

func newAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[19] = seed
	addr, err := crypto.NewAddress(crypto.NHBPrefix, raw)
	require.NoError(t, err)
	return addr
}

// newUniqueAddr derives a fresh, collision-free test address from a random
// UUID rather than a hand-picked seed byte, for tests (e.g. validator-list
// overflow) that need many distinct addresses without risking an accidental
// seed collision. The UUID is hashed down to 20 bytes with BLAKE3 rather than
// truncated, so every byte of the address depends on the whole UUID.
func newUniqueAddr(t *testing.T) crypto.Address {
	t.Helper()
	id := uuid.New()
	h := blake3.New()
	h.Write(id[:])
	var digest [20]byte
	_, err := h.Digest().Read(digest[:])
	require.NoError(t, err)
	addr, err := crypto.NewAddress(crypto.NHBPrefix, digest[:])
	require.NoError(t, err)
	return addr
}

func setupPool(t *testing.T) (*stakepool.Engine, *mockState, crypto.Address, *token.Engine) {
	t.Helper()
	state := newMockState()
	tokEngine, _ := memledger.NewEngine()

	eng := stakepool.NewEngine()
	eng.SetState(state)
	eng.SetTokenLedger(tokEngine)

	poolAddr := newAddr(t, 1)
	manager := newAddr(t, 2)
	stakingAuthority := newAddr(t, 3)
	validatorList := newAddr(t, 4)
	reserve := newAddr(t, 5)
	poolMint := newAddr(t, 6)
	managerFeeAccount := newAddr(t, 7)

	withdrawAuthority := stakepool.DeriveAuthority(poolAddr, stakepool.SeedWithdraw)
	require.NoError(t, tokEngine.InitializeMint(poolMint, 9, token.SomeAddress(withdrawAuthority), token.NoAddress))
	require.NoError(t, tokEngine.InitializeAccount(managerFeeAccount, poolMint, manager))

	pool := &stakepool.Pool{
		Manager:           manager,
		StakingAuthority:  stakingAuthority,
		ValidatorList:     validatorList,
		ReserveStake:      reserve,
		PoolMint:          poolMint,
		ManagerFeeAccount: managerFeeAccount,
		EpochFee:          stakepool.Fee{Numerator: 1, Denominator: 100},
		NextEpochFee:      stakepool.Fee{Numerator: 1, Denominator: 100},
	}
	require.NoError(t, eng.Initialize(poolAddr, pool, 0))
	state.fund(reserve, 10_000_000)
	return eng, state, poolAddr, tokEngine
}

func TestAddValidatorAndIncreaseStake(t *testing.T) {
	eng, _, poolAddr, _ := setupPool(t)
	stakingAuthority := newAddr(t, 3)
	voteAccount := newAddr(t, 10)

	require.NoError(t, eng.AddValidatorToPool(poolAddr, voteAccount, 0, token.NewSignerSet(stakingAuthority)))
	require.NoError(t, eng.IncreaseValidatorStake(poolAddr, voteAccount, 2_000_000, token.NewSignerSet(stakingAuthority)))
}

func TestDepositSolMintsPoolTokensAtParForEmptyPool(t *testing.T) {
	eng, state, poolAddr, tokEngine := setupPool(t)
	depositor := newAddr(t, 20)
	poolTokenAccount := newAddr(t, 21)

	pool, err := state.GetPool(poolAddr)
	require.NoError(t, err)
	require.NoError(t, tokEngine.InitializeAccount(poolTokenAccount, pool.PoolMint, depositor))
	state.fund(depositor, 5_000_000)

	require.NoError(t, eng.DepositSol(poolAddr, depositor, poolTokenAccount, 1_000_000, nil))

	updated, err := state.GetPool(poolAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), updated.PoolTokenSupply, "expected 1_000_000 pool tokens minted at par")
	require.Equal(t, uint64(1_000_000), updated.TotalLamports, "expected TotalLamports to grow by the deposit")
}

func TestUpdateStakePoolBalanceRecomputesTotalOncePerEpoch(t *testing.T) {
	eng, state, poolAddr, _ := setupPool(t)
	stakingAuthority := newAddr(t, 3)
	voteAccount := newAddr(t, 30)

	require.NoError(t, eng.AddValidatorToPool(poolAddr, voteAccount, 0, token.NewSignerSet(stakingAuthority)))
	require.NoError(t, eng.IncreaseValidatorStake(poolAddr, voteAccount, 2_000_000, token.NewSignerSet(stakingAuthority)))

	eng.SetEpoch(1)
	require.NoError(t, eng.UpdateValidatorListBalance(poolAddr))
	require.NoError(t, eng.UpdateStakePoolBalance(poolAddr))

	pool, err := state.GetPool(poolAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000), pool.TotalLamports, "expected TotalLamports unchanged")
	require.Error(t, eng.UpdateStakePoolBalance(poolAddr), "expected ErrAlreadyUpdatedThisEpoch on repeat call")
}

func TestValidatorListOverflowRejected(t *testing.T) {
	state := newMockState()
	tokEngine, _ := memledger.NewEngine()

	eng := stakepool.NewEngine()
	eng.SetState(state)
	eng.SetTokenLedger(tokEngine)

	poolAddr := newUniqueAddr(t)
	manager := newUniqueAddr(t)
	stakingAuthority := newUniqueAddr(t)
	validatorList := newUniqueAddr(t)
	reserve := newUniqueAddr(t)
	poolMint := newUniqueAddr(t)
	managerFeeAccount := newUniqueAddr(t)

	withdrawAuthority := stakepool.DeriveAuthority(poolAddr, stakepool.SeedWithdraw)
	require.NoError(t, tokEngine.InitializeMint(poolMint, 9, token.SomeAddress(withdrawAuthority), token.NoAddress))
	require.NoError(t, tokEngine.InitializeAccount(managerFeeAccount, poolMint, manager))

	pool := &stakepool.Pool{
		Manager:           manager,
		StakingAuthority:  stakingAuthority,
		ValidatorList:     validatorList,
		ReserveStake:      reserve,
		PoolMint:          poolMint,
		ManagerFeeAccount: managerFeeAccount,
		EpochFee:          stakepool.Fee{Numerator: 1, Denominator: 100},
		NextEpochFee:      stakepool.Fee{Numerator: 1, Denominator: 100},
	}
	const maxValidators = 2
	require.NoError(t, eng.Initialize(poolAddr, pool, maxValidators))

	signers := token.NewSignerSet(stakingAuthority)
	for i := 0; i < maxValidators; i++ {
		voteAccount := newUniqueAddr(t)
		require.NoError(t, eng.AddValidatorToPool(poolAddr, voteAccount, 0, signers))
	}

	overflowVoteAccount := newUniqueAddr(t)
	require.ErrorIs(t, eng.AddValidatorToPool(poolAddr, overflowVoteAccount, 0, signers), stakepool.ErrValidatorListOverflow)
}
