/*
Package host describes the runtime that executes ledger programs.

A program never touches the ledger directly. It receives the accounts listed
by the caller as a slice of *Account, mutates the ones it owns and asks the
Invoker to perform everything else (account creation, native value transfer)
on its behalf. The whole invocation is one atomic unit: if the program returns
an error, the host discards every change made during the call.
*/
package host

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeyLen is the length of an account address in bytes.
const PubkeyLen = 32

// Pubkey is an account address. It is either an ed25519 public key of some
// identity or an address derived by a program (see package pda).
type Pubkey [PubkeyLen]byte

var (
	// SystemProgramID is the address of the native program owning all
	// plain value-holding accounts.
	SystemProgramID = Pubkey{}

	// NativeLoaderID owns executable program accounts.
	NativeLoaderID = Pubkey{0x05, 0x4a, 0x53, 0x5a, 0x99, 0x29, 0x21, 0x06, 0x4d, 0x24, 0xe8, 0x71,
		0x60, 0xda, 0x38, 0x7c, 0x7c, 0x35, 0xb5, 0xdd, 0xbc, 0x92, 0xbb, 0x81,
		0xe4, 0x1f, 0xa8, 0x40, 0x41, 0x05, 0x44, 0x8d}
)

var errPubkeyLen = errors.New("invalid public key length")

// String returns base58 representation of the key.
func (k Pubkey) String() string {
	return base58.Encode(k[:])
}

// Equals checks whether two keys are the same.
func (k Pubkey) Equals(other Pubkey) bool {
	return k == other
}

// IsZero checks whether k is an all-zero key.
func (k Pubkey) IsZero() bool {
	return k == Pubkey{}
}

// MarshalText implements encoding.TextMarshaler.
func (k Pubkey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Pubkey) UnmarshalText(text []byte) error {
	p, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*k = p
	return nil
}

// ParsePubkey decodes base58 string into Pubkey.
func ParsePubkey(s string) (Pubkey, error) {
	var res Pubkey

	b, err := base58.Decode(s)
	if err != nil {
		return res, fmt.Errorf("decode base58: %w", err)
	}

	if len(b) != PubkeyLen {
		return res, fmt.Errorf("%w: %d", errPubkeyLen, len(b))
	}

	copy(res[:], b)
	return res, nil
}

// PubkeyFromBytes converts 32-byte slice to Pubkey.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var res Pubkey
	if len(b) != PubkeyLen {
		return res, fmt.Errorf("%w: %d", errPubkeyLen, len(b))
	}
	copy(res[:], b)
	return res, nil
}

// Account is a view of a ledger account passed to a program. Key, IsSigner
// and IsWritable are fixed by the transaction, the rest reflects the current
// account state and may be changed by the owning program.
type Account struct {
	Key        Pubkey
	Owner      Pubkey
	Lamports   uint64
	Data       []byte
	Executable bool

	IsSigner   bool
	IsWritable bool
}

// IsOwnedBy checks whether the account is owned by the given program.
func (a *Account) IsOwnedBy(program Pubkey) bool {
	return a.Owner == program
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	c := *a
	c.Data = bytes.Clone(a.Data)
	return &c
}

// Seeds is a list of seeds of a program-derived address. Passing it to the
// Invoker proves the calling program may sign for that address.
type Seeds [][]byte

// Invoker is a set of services provided by the host to the running program.
type Invoker interface {
	// Rent returns current rent parameters.
	Rent() Rent

	// CreateAccount creates a new account of the given size, funds it from
	// the from account and assigns it to the owner program. The new account
	// must sign the transaction or be derived from one of signers.
	CreateAccount(from, to *Account, lamports, space uint64, owner Pubkey, signers ...Seeds) error

	// Transfer moves native value between two system-owned accounts. The
	// source account must sign the transaction or be derived from one of
	// signers.
	Transfer(from, to *Account, lamports uint64, signers ...Seeds) error

	// Log appends a message to the transaction log.
	Log(msg string)
}

// Program is an executable ledger program.
type Program interface {
	Process(inv Invoker, programID Pubkey, accounts []*Account, data []byte) error
}
