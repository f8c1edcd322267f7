package common

import (
	"bytes"

	"nhbchain/crypto"
)

// AddressEqual reports whether two addresses carry the same underlying bytes,
// ignoring the human-readable prefix so an nhb-prefixed and znhb-prefixed view
// of the same 20 bytes still compare equal.
func AddressEqual(a, b crypto.Address) bool {
	return bytes.Equal(a.Bytes(), b.Bytes())
}

// AddressIsZero reports whether the address is unset or all-zero, the
// sentinel used throughout the ledger for "no authority configured".
func AddressIsZero(a crypto.Address) bool {
	raw := a.Bytes()
	if len(raw) == 0 {
		return true
	}
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}

// CloneAddress returns a deep copy of addr so callers cannot mutate shared
// backing byte slices across stored structs.
func CloneAddress(addr crypto.Address) crypto.Address {
	raw := addr.Bytes()
	if len(raw) == 0 {
		return crypto.Address{}
	}
	cloned, err := crypto.NewAddress(addr.Prefix(), append([]byte(nil), raw...))
	if err != nil {
		return crypto.Address{}
	}
	return cloned
}
