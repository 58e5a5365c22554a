/*
Package pda derives program addresses.

A program-derived address is a hash of an ordered seed list and the owning
program identity. It is deliberately not a valid ed25519 public key, so no
private key exists for it and only the deriving program can sign for it by
presenting the seeds. A single trailing "bump" byte is appended to the seeds
to push the hash off the curve.

Two modes produce the same mapping: Find searches bump values from 255 down
and returns the first valid address, Derive/Create compute the address for
exactly one caller-supplied bump.
*/
package pda

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neofs-vault/host"
)

const (
	// MaxSeeds is the maximum number of seeds including the bump.
	MaxSeeds = 16
	// MaxSeedLen is the maximum length of a single seed.
	MaxSeedLen = 32

	marker = "ProgramDerivedAddress"
)

var (
	// ErrMaxSeedLength is returned when too many or too long seeds are given.
	ErrMaxSeedLength = errors.New("length of the seed is too long for address generation")

	// ErrInvalidSeeds is returned when seeds produce a valid curve point.
	ErrInvalidSeeds = errors.New("provided seeds do not result in a valid address")

	// ErrNoViableBump is returned by Find if no bump produces a valid address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// Derive computes the address for the seeds and the optional bump without
// checking that the result is off the curve. It is the cheapest way to verify
// an address whose bump is already known and has been validated before.
func Derive(seeds [][]byte, bump *byte, programID host.Pubkey) (host.Pubkey, error) {
	n := len(seeds)
	if bump != nil {
		n++
	}
	if n > MaxSeeds {
		return host.Pubkey{}, ErrMaxSeedLength
	}

	var buf []byte
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return host.Pubkey{}, ErrMaxSeedLength
		}
		buf = append(buf, s...)
	}
	if bump != nil {
		buf = append(buf, *bump)
	}
	buf = append(buf, programID[:]...)
	buf = append(buf, marker...)

	return host.Pubkey(hash.Sha256(buf)), nil
}

// Create computes the address for the seeds (bump included as the last seed)
// and checks that it is not a valid ed25519 public key.
func Create(seeds [][]byte, programID host.Pubkey) (host.Pubkey, error) {
	addr, err := Derive(seeds, nil, programID)
	if err != nil {
		return host.Pubkey{}, err
	}

	if IsOnCurve(addr) {
		return host.Pubkey{}, ErrInvalidSeeds
	}

	return addr, nil
}

// Find searches for the largest bump that makes the seeds produce a valid
// program address.
func Find(seeds [][]byte, programID host.Pubkey) (host.Pubkey, byte, error) {
	for b := 255; b >= 0; b-- {
		bump := byte(b)

		addr, err := Create(append(seeds[:len(seeds):len(seeds)], []byte{bump}), programID)
		switch {
		case err == nil:
			return addr, bump, nil
		case errors.Is(err, ErrInvalidSeeds):
			continue
		default:
			return host.Pubkey{}, 0, err
		}
	}

	return host.Pubkey{}, 0, ErrNoViableBump
}

// IsOnCurve returns true if the 32-byte value decodes to a valid edwards25519
// point, i.e. could be an ed25519 public key.
func IsOnCurve(addr host.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(addr[:])
	return err == nil
}
