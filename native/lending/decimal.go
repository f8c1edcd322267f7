package lending

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// wad is the implicit denominator under every Decimal value: 1e18.
var wad = big.NewInt(1_000_000_000_000_000_000)

// Decimal is a fixed-point value with an implicit 1e18 denominator, carried
// as a big.Int mantissa. Reserve/obligation market-value and interest-rate
// fields use Decimal rather than a plain uint64 so that fractional borrow
// rates and prices under one native unit don't round away to zero.
type Decimal struct {
	mantissa *big.Int
}

// ZeroDecimal is the additive identity.
func ZeroDecimal() Decimal { return Decimal{mantissa: big.NewInt(0)} }

// OneDecimal is the multiplicative identity.
func OneDecimal() Decimal { return Decimal{mantissa: new(big.Int).Set(wad)} }

// DecimalFromU64 lifts a whole native-unit amount into Decimal.
func DecimalFromU64(v uint64) Decimal {
	return Decimal{mantissa: new(big.Int).Mul(new(big.Int).SetUint64(v), wad)}
}

// DecimalFromBps lifts a basis-points value (out of 10,000) into Decimal.
func DecimalFromBps(bps uint64) Decimal {
	d := Decimal{mantissa: new(big.Int).Mul(new(big.Int).SetUint64(bps), wad)}
	d.mantissa.Quo(d.mantissa, big.NewInt(10_000))
	return d
}

// DecimalFromWad wraps a raw 1e18-scaled mantissa, e.g. one read back from an
// Oracle price quote.
func DecimalFromWad(mantissa *big.Int) Decimal {
	if mantissa == nil {
		return ZeroDecimal()
	}
	return Decimal{mantissa: new(big.Int).Set(mantissa)}
}

// EncodeRLP implements rlp.Encoder, persisting the mantissa bytes directly
// since Decimal's field is unexported and otherwise invisible to reflection.
func (d Decimal) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, d.m().Bytes())
}

// DecodeRLP implements rlp.Decoder.
func (d *Decimal) DecodeRLP(s *rlp.Stream) error {
	var raw []byte
	if err := s.Decode(&raw); err != nil {
		return err
	}
	d.mantissa = new(big.Int).SetBytes(raw)
	return nil
}

func (d Decimal) m() *big.Int {
	if d.mantissa == nil {
		return big.NewInt(0)
	}
	return d.mantissa
}

// Wad returns the raw 1e18-scaled mantissa.
func (d Decimal) Wad() *big.Int { return new(big.Int).Set(d.m()) }

// Add returns d+other.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{mantissa: new(big.Int).Add(d.m(), other.m())}
}

// Sub returns d-other, or an error if the result would be negative.
func (d Decimal) Sub(other Decimal) (Decimal, error) {
	r := new(big.Int).Sub(d.m(), other.m())
	if r.Sign() < 0 {
		return Decimal{}, ErrMathOverflow
	}
	return Decimal{mantissa: r}, nil
}

// Mul returns d*other, rescaled back to 1e18 precision.
func (d Decimal) Mul(other Decimal) Decimal {
	product := new(big.Int).Mul(d.m(), other.m())
	product.Quo(product, wad)
	return Decimal{mantissa: product}
}

// Div returns d/other, rescaled to 1e18 precision. Division by zero returns
// ErrMathOverflow rather than panicking.
func (d Decimal) Div(other Decimal) (Decimal, error) {
	if other.m().Sign() == 0 {
		return Decimal{}, ErrMathOverflow
	}
	scaled := new(big.Int).Mul(d.m(), wad)
	scaled.Quo(scaled, other.m())
	return Decimal{mantissa: scaled}, nil
}

// Cmp compares d and other the way big.Int.Cmp does.
func (d Decimal) Cmp(other Decimal) int { return d.m().Cmp(other.m()) }

// FloorU64 truncates towards zero into a native-unit amount.
func (d Decimal) FloorU64() (uint64, error) {
	q := new(big.Int).Quo(d.m(), wad)
	if !q.IsUint64() {
		return 0, ErrMathOverflow
	}
	return q.Uint64(), nil
}

// CeilU64 rounds up towards a native-unit amount.
func (d Decimal) CeilU64() (uint64, error) {
	q, r := new(big.Int).QuoRem(d.m(), wad, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsUint64() {
		return 0, ErrMathOverflow
	}
	return q.Uint64(), nil
}
