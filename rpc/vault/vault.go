// Package vault contains client wrappers for Vault program.
package vault

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	program "github.com/nspcc-dev/neofs-vault/contracts/vault"
	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/nspcc-dev/neofs-vault/ledger"
	"github.com/nspcc-dev/neofs-vault/pda"
)

// ErrNotInitialized is returned for identities that have no vault yet.
var ErrNotInitialized = errors.New("vault is not initialized")

// Addresses are derived accounts of the identity vault.
type Addresses struct {
	State     host.Pubkey
	StateBump byte
	Vault     host.Pubkey
	VaultBump byte
}

// Record returns the state record matching the addresses.
func (a Addresses) Record() program.Record {
	return program.Record{VaultBump: a.VaultBump, StateBump: a.StateBump}
}

// FindAddresses derives vault accounts of the identity using the largest
// viable bumps.
func FindAddresses(programID, identity host.Pubkey) (Addresses, error) {
	var (
		a   Addresses
		err error
	)

	a.State, a.StateBump, err = pda.Find(program.StateSeeds(identity), programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("state address: %w", err)
	}

	a.Vault, a.VaultBump, err = pda.Find(program.VaultSeeds(a.State), programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("vault address: %w", err)
	}

	return a, nil
}

// NewDepositInstruction returns deposit of amount from the identity into the
// vault at the given addresses.
func NewDepositInstruction(programID, identity host.Pubkey, a Addresses, amount uint64) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: programID,
		Accounts:  accountMetas(identity, a),
		Data: program.DepositArgs{
			VaultBump: a.VaultBump,
			StateBump: a.StateBump,
			Amount:    amount,
		}.Bytes(),
	}
}

// NewWithdrawInstruction returns withdrawal of amount from the vault at the
// given addresses back to the identity.
func NewWithdrawInstruction(programID, identity host.Pubkey, a Addresses, amount uint64) ledger.Instruction {
	return ledger.Instruction{
		ProgramID: programID,
		Accounts:  accountMetas(identity, a),
		Data:      program.WithdrawArgs{Amount: amount}.Bytes(),
	}
}

func accountMetas(identity host.Pubkey, a Addresses) []ledger.AccountMeta {
	return []ledger.AccountMeta{
		ledger.Writable(identity, true),
		ledger.Writable(a.Vault, false),
		ledger.Writable(a.State, false),
		ledger.Readonly(host.SystemProgramID, false),
	}
}

// Reader is the ledger interface required by ContractReader.
type Reader interface {
	Account(host.Pubkey) (*host.Account, error)
}

// Sender is the ledger interface required by Contract.
type Sender interface {
	Reader
	Send(context.Context, *ledger.Transaction) (*ledger.Receipt, error)
}

// ContractReader implements safe read-only methods of Vault program.
type ContractReader struct {
	reader    Reader
	programID host.Pubkey
}

// Contract implements all Vault program methods on behalf of a single
// identity.
type Contract struct {
	ContractReader
	sender   Sender
	key      ed25519.PrivateKey
	identity host.Pubkey
}

// NewReader creates an instance of ContractReader using the given program
// address.
func NewReader(r Reader, programID host.Pubkey) *ContractReader {
	return &ContractReader{reader: r, programID: programID}
}

// New creates an instance of Contract acting on behalf of the key owner.
func New(s Sender, programID host.Pubkey, key ed25519.PrivateKey) *Contract {
	var identity host.Pubkey
	copy(identity[:], key.Public().(ed25519.PublicKey))

	return &Contract{
		ContractReader: ContractReader{reader: s, programID: programID},
		sender:         s,
		key:            key,
		identity:       identity,
	}
}

// Identity returns the identity the contract acts for.
func (c *Contract) Identity() host.Pubkey {
	return c.identity
}

// Addresses returns vault accounts of the identity.
func (c *ContractReader) Addresses(identity host.Pubkey) (Addresses, error) {
	return FindAddresses(c.programID, identity)
}

// State returns the state record of the identity vault or ErrNotInitialized.
func (c *ContractReader) State(identity host.Pubkey) (program.Record, error) {
	a, err := c.Addresses(identity)
	if err != nil {
		return program.Record{}, err
	}

	acc, err := c.reader.Account(a.State)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return program.Record{}, ErrNotInitialized
		}
		return program.Record{}, err
	}

	if !acc.IsOwnedBy(c.programID) {
		return program.Record{}, ErrNotInitialized
	}

	return program.DecodeRecord(acc.Data)
}

// VaultBalance returns the value held in the identity vault. Missing vault
// has zero balance.
func (c *ContractReader) VaultBalance(identity host.Pubkey) (uint64, error) {
	a, err := c.Addresses(identity)
	if err != nil {
		return 0, err
	}

	acc, err := c.reader.Account(a.Vault)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return acc.Lamports, nil
}

// Deposit sends deposit transaction and waits for its execution.
func (c *Contract) Deposit(ctx context.Context, amount uint64) (*ledger.Receipt, error) {
	a, err := c.Addresses(c.identity)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, NewDepositInstruction(c.programID, c.identity, a, amount))
}

// Withdraw sends withdrawal transaction and waits for its execution.
func (c *Contract) Withdraw(ctx context.Context, amount uint64) (*ledger.Receipt, error) {
	a, err := c.Addresses(c.identity)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, NewWithdrawInstruction(c.programID, c.identity, a, amount))
}

func (c *Contract) send(ctx context.Context, ix ledger.Instruction) (*ledger.Receipt, error) {
	tx := ledger.NewTransaction(c.identity, ix)
	tx.Sign(c.key)

	return c.sender.Send(ctx, tx)
}
