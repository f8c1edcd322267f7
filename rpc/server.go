// Package rpc exposes a read-only HTTP view over the TokenLedger, StakePool
// and LendingMarket state, the same chi-router-plus-bearer-auth shape the
// teacher's gateway uses for its service routes, scaled down to a single
// in-process router with no upstream proxying.
package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nhbchain/core/state"
	"nhbchain/crypto"
	"nhbchain/native/stakepool"
	"nhbchain/native/token"
	"nhbchain/rpc/auth"
)

// Config wires the router to its backing engines and authenticator.
type Config struct {
	State         *state.Manager
	TokenLedger   *token.Engine
	Authenticator *auth.Authenticator
}

// New builds the read-only rpc router. Authenticator may be nil, in which
// case every route is open.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.Authenticator != nil {
			v1.Use(cfg.Authenticator.Middleware("read"))
		}
		v1.Get("/token/accounts/{address}", handleTokenAccount(cfg.TokenLedger))
		v1.Get("/stakepool/pools/{address}", handlePool(cfg.State))
		v1.Get("/lending/reserves/{address}", handleReserve(cfg.State))
		v1.Get("/lending/obligations/{address}", handleObligation(cfg.State))
	})

	return otelhttp.NewHandler(r, "corevmd.rpc")
}

func parseAddress(w http.ResponseWriter, raw string) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		http.Error(w, "invalid address: "+err.Error(), http.StatusBadRequest)
		return crypto.Address{}, false
	}
	return addr, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type tokenAccountView struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func handleTokenAccount(eng *token.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, ok := parseAddress(w, chi.URLParam(r, "address"))
		if !ok {
			return
		}
		balance, err := eng.AccountBalance(addr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, tokenAccountView{Address: addr.String(), Balance: balance})
	}
}

type poolView struct {
	Address         string `json:"address"`
	Manager         string `json:"manager"`
	TotalLamports   uint64 `json:"total_lamports"`
	PoolTokenSupply uint64 `json:"pool_token_supply"`
	LastUpdateEpoch uint64 `json:"last_update_epoch"`
}

func handlePool(st *state.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, ok := parseAddress(w, chi.URLParam(r, "address"))
		if !ok {
			return
		}
		pool, err := st.GetPool(addr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if pool == nil || pool.AccountType != stakepool.AccountTypePool {
			http.Error(w, "pool not found", http.StatusNotFound)
			return
		}
		writeJSON(w, poolView{
			Address:         addr.String(),
			Manager:         pool.Manager.String(),
			TotalLamports:   pool.TotalLamports,
			PoolTokenSupply: pool.PoolTokenSupply,
			LastUpdateEpoch: pool.LastUpdateEpoch,
		})
	}
}

type reserveView struct {
	Address         string `json:"address"`
	AvailableAmount uint64 `json:"available_amount"`
	BorrowedWad     string `json:"borrowed_wad"`
	MarketPriceWad  string `json:"market_price_wad"`
	LastUpdateSlot  uint64 `json:"last_update_slot"`
}

func handleReserve(st *state.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, ok := parseAddress(w, chi.URLParam(r, "address"))
		if !ok {
			return
		}
		reserve, err := st.GetReserve(addr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if reserve == nil {
			http.Error(w, "reserve not found", http.StatusNotFound)
			return
		}
		writeJSON(w, reserveView{
			Address:         addr.String(),
			AvailableAmount: reserve.Liquidity.AvailableAmount,
			BorrowedWad:     reserve.Liquidity.BorrowedAmountWads.Wad().String(),
			MarketPriceWad:  reserve.Liquidity.MarketPrice.Wad().String(),
			LastUpdateSlot:  reserve.LastUpdateSlot,
		})
	}
}

type obligationView struct {
	Address              string `json:"address"`
	Owner                string `json:"owner"`
	DepositedValueWad    string `json:"deposited_value_wad"`
	BorrowedValueWad     string `json:"borrowed_value_wad"`
	UnhealthyBorrowValue string `json:"unhealthy_borrow_value_wad"`
	LastUpdateSlot       uint64 `json:"last_update_slot"`
}

func handleObligation(st *state.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, ok := parseAddress(w, chi.URLParam(r, "address"))
		if !ok {
			return
		}
		obligation, err := st.GetObligation(addr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if obligation == nil {
			http.Error(w, "obligation not found", http.StatusNotFound)
			return
		}
		writeJSON(w, obligationView{
			Address:              addr.String(),
			Owner:                obligation.Owner.String(),
			DepositedValueWad:    obligation.DepositedValue.Wad().String(),
			BorrowedValueWad:     obligation.BorrowedValue.Wad().String(),
			UnhealthyBorrowValue: obligation.UnhealthyBorrowValue.Wad().String(),
			LastUpdateSlot:       obligation.LastUpdateSlot,
		})
	}
}
