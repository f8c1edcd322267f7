package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StakePoolMetrics instruments the validator stake pool: deposit/withdraw
// volume, epoch update progress, and the per-pool rate limiter.
type StakePoolMetrics struct {
	depositsTotal     *prometheus.CounterVec
	withdrawalsTotal  *prometheus.CounterVec
	validatorUpdates  *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
	poolTotalLamports *prometheus.GaugeVec
	poolTokenSupply   *prometheus.GaugeVec
}

var (
	stakePoolOnce     sync.Once
	stakePoolRegistry *StakePoolMetrics
)

// StakePool returns the process-wide StakePoolMetrics registry, constructing
// and registering it with the default prometheus registerer on first use.
func StakePool() *StakePoolMetrics {
	stakePoolOnce.Do(func() {
		stakePoolRegistry = &StakePoolMetrics{
			depositsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stakepool_deposits_total",
				Help: "Count of DepositStake/DepositSol calls by pool and kind.",
			}, []string{"pool", "kind"}),
			withdrawalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stakepool_withdrawals_total",
				Help: "Count of WithdrawStake/WithdrawSol calls by pool and kind.",
			}, []string{"pool", "kind"}),
			validatorUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stakepool_validator_updates_total",
				Help: "Count of UpdateValidatorListBalance calls by pool.",
			}, []string{"pool"}),
			rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "stakepool_rate_limited_total",
				Help: "Count of calls rejected by the per-pool rate limiter.",
			}, []string{"operation"}),
			poolTotalLamports: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stakepool_total_lamports",
				Help: "Most recently observed total lamports under management for a pool.",
			}, []string{"pool"}),
			poolTokenSupply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stakepool_token_supply",
				Help: "Most recently observed pool-token supply for a pool.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			stakePoolRegistry.depositsTotal,
			stakePoolRegistry.withdrawalsTotal,
			stakePoolRegistry.validatorUpdates,
			stakePoolRegistry.rateLimited,
			stakePoolRegistry.poolTotalLamports,
			stakePoolRegistry.poolTokenSupply,
		)
	})
	return stakePoolRegistry
}

func (m *StakePoolMetrics) ObserveDeposit(pool, kind string) {
	if m == nil {
		return
	}
	m.depositsTotal.WithLabelValues(pool, kind).Inc()
}

func (m *StakePoolMetrics) ObserveWithdrawal(pool, kind string) {
	if m == nil {
		return
	}
	m.withdrawalsTotal.WithLabelValues(pool, kind).Inc()
}

func (m *StakePoolMetrics) ObserveValidatorUpdate(pool string) {
	if m == nil {
		return
	}
	m.validatorUpdates.WithLabelValues(pool).Inc()
}

func (m *StakePoolMetrics) IncRateLimited(operation string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(operation).Inc()
}

func (m *StakePoolMetrics) SetPoolTotals(pool string, totalLamports, tokenSupply float64) {
	if m == nil {
		return
	}
	m.poolTotalLamports.WithLabelValues(pool).Set(totalLamports)
	m.poolTokenSupply.WithLabelValues(pool).Set(tokenSupply)
}
