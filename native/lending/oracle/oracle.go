// Package oracle defines the price-feed interface RefreshReserve consults,
// with a Pyth-then-Switchboard fallback composition and a deterministic
// in-memory double for tests.
package oracle

import (
	"errors"
	"math/big"
)

// ErrPriceUnavailable is returned by a Source when it has no quote for key.
var ErrPriceUnavailable = errors.New("oracle: price unavailable")

// Price is a 1e18-scaled quote plus the slot it was last published at.
type Price struct {
	Mantissa *big.Int
	Slot     uint64
}

// Source quotes a price for a reserve's configured key (e.g. "ZNHB/NHB").
type Source interface {
	GetPrice(key string) (Price, error)
}

// Fallback tries Primary first and falls through to Secondary on any error,
// mirroring the Pyth-then-Switchboard fallback chain real lending markets
// configure per reserve.
type Fallback struct {
	Primary   Source
	Secondary Source
}

// NewFallback builds a Fallback source. Secondary may be nil, in which case
// Fallback behaves exactly like Primary.
func NewFallback(primary, secondary Source) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

func (f *Fallback) GetPrice(key string) (Price, error) {
	if f.Primary != nil {
		if price, err := f.Primary.GetPrice(key); err == nil {
			return price, nil
		}
	}
	if f.Secondary != nil {
		return f.Secondary.GetPrice(key)
	}
	return Price{}, ErrPriceUnavailable
}

// Static is a deterministic in-memory test double: a fixed map of key to
// Price, with no notion of live staleness beyond whatever Slot it was
// constructed with.
type Static struct {
	prices map[string]Price
}

// NewStatic builds a Static source from a key->Price map.
func NewStatic(prices map[string]Price) *Static {
	cp := make(map[string]Price, len(prices))
	for k, v := range prices {
		cp[k] = v
	}
	return &Static{prices: cp}
}

func (s *Static) GetPrice(key string) (Price, error) {
	p, ok := s.prices[key]
	if !ok {
		return Price{}, ErrPriceUnavailable
	}
	return p, nil
}

// Set updates or inserts the quote for key, used by tests to simulate a
// price moving between RefreshReserve calls.
func (s *Static) Set(key string, price Price) {
	s.prices[key] = price
}
