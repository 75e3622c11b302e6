// Package derive computes program-derived addresses (PDAs).
//
// A derived address is a pure function of a program ID and an ordered list of
// seed byte-sequences. The same inputs always produce the same address and
// bump, so callers never need to persist them.
package derive

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrSeedTooLong is returned when a single seed exceeds solana.MaxSeedLength.
var ErrSeedTooLong = errors.New("seed exceeds maximum length")

// Address is a derived address together with the bump that produced it.
type Address struct {
	Key  solana.PublicKey `json:"key"`
	Bump uint8            `json:"bump"`
}

// String returns the base58 form of the derived key.
func (a Address) String() string {
	return a.Key.String()
}

// Derive finds the program address for the given seeds.
func Derive(program solana.PublicKey, seeds ...[]byte) (Address, error) {
	for i, seed := range seeds {
		if len(seed) > solana.MaxSeedLength {
			return Address{}, fmt.Errorf("seed %d is %d bytes: %w", i, len(seed), ErrSeedTooLong)
		}
	}

	key, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return Address{}, fmt.Errorf("deriving address under %s: %w", program, err)
	}
	return Address{Key: key, Bump: bump}, nil
}

// MustDerive is like Derive but panics on failure. Use it only with seeds
// whose lengths are known statically.
func MustDerive(program solana.PublicKey, seeds ...[]byte) Address {
	addr, err := Derive(program, seeds...)
	if err != nil {
		panic(err)
	}
	return addr
}

// Str converts a UTF-8 string seed.
func Str(s string) []byte {
	return []byte(s)
}

// Key converts a public key seed.
func Key(k solana.PublicKey) []byte {
	return k.Bytes()
}
