package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics instruments the multi-reserve lending market: reserve
// refreshes, borrow/repay/liquidate volume, and flash-loan activity.
type LendingMetrics struct {
	reservesRefreshed *prometheus.CounterVec
	borrowsTotal      *prometheus.CounterVec
	repaysTotal       *prometheus.CounterVec
	liquidationsTotal *prometheus.CounterVec
	flashLoansTotal   *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
	obligationHealth  *prometheus.GaugeVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the process-wide LendingMetrics registry, constructing and
// registering it with the default prometheus registerer on first use.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			reservesRefreshed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_reserve_refresh_total",
				Help: "Count of reserve refreshes by oracle price key.",
			}, []string{"source"}),
			borrowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_borrows_total",
				Help: "Count of successful BorrowObligationLiquidity calls by reserve.",
			}, []string{"reserve"}),
			repaysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_repays_total",
				Help: "Count of successful RepayObligationLiquidity calls by reserve.",
			}, []string{"reserve"}),
			liquidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_liquidations_total",
				Help: "Count of successful LiquidateObligation calls by reserve pair.",
			}, []string{"repay_reserve", "withdraw_reserve"}),
			flashLoansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_flash_loans_total",
				Help: "Count of FlashLoan calls by reserve and outcome.",
			}, []string{"reserve", "outcome"}),
			rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_rate_limited_total",
				Help: "Count of borrow/liquidate calls rejected by the per-obligation rate limiter.",
			}, []string{"operation"}),
			obligationHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "lending_obligation_health_factor",
				Help: "Most recently observed health factor for a refreshed obligation.",
			}, []string{"obligation"}),
		}
		prometheus.MustRegister(
			lendingRegistry.reservesRefreshed,
			lendingRegistry.borrowsTotal,
			lendingRegistry.repaysTotal,
			lendingRegistry.liquidationsTotal,
			lendingRegistry.flashLoansTotal,
			lendingRegistry.rateLimited,
			lendingRegistry.obligationHealth,
		)
	})
	return lendingRegistry
}

func (m *LendingMetrics) ObserveReserveRefreshed(source string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.reservesRefreshed.WithLabelValues(source).Inc()
}

func (m *LendingMetrics) ObserveBorrow(reserve string) {
	if m == nil {
		return
	}
	m.borrowsTotal.WithLabelValues(reserve).Inc()
}

func (m *LendingMetrics) ObserveRepay(reserve string) {
	if m == nil {
		return
	}
	m.repaysTotal.WithLabelValues(reserve).Inc()
}

func (m *LendingMetrics) ObserveLiquidation(repayReserve, withdrawReserve string) {
	if m == nil {
		return
	}
	m.liquidationsTotal.WithLabelValues(repayReserve, withdrawReserve).Inc()
}

func (m *LendingMetrics) ObserveFlashLoan(reserve, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.flashLoansTotal.WithLabelValues(reserve, outcome).Inc()
}

func (m *LendingMetrics) IncRateLimited(operation string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(operation).Inc()
}

func (m *LendingMetrics) SetObligationHealth(obligation string, factor float64) {
	if m == nil {
		return
	}
	m.obligationHealth.WithLabelValues(obligation).Set(factor)
}
