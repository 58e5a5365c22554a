package vault

import (
	"fmt"

	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/nspcc-dev/neofs-vault/pda"
)

// minAccounts is the number of accounts both instructions expect. Extra
// trailing accounts are ignored.
const minAccounts = 4

// Config groups parameters of the Vault program.
type Config struct {
	// Address the program is registered under. Every derived address is
	// bound to it.
	ID host.Pubkey
}

// Contract is the Vault program. It keeps no state between invocations and
// is safe for concurrent use.
type Contract struct {
	id host.Pubkey
}

// New returns Vault program registered under the configured address.
func New(cfg Config) *Contract {
	return &Contract{id: cfg.ID}
}

// ID returns the address of the program.
func (c *Contract) ID() host.Pubkey {
	return c.id
}

// Process implements host.Program.
func (c *Contract) Process(inv host.Invoker, programID host.Pubkey, accounts []*host.Account, data []byte) error {
	if !programID.Equals(c.id) {
		return fmt.Errorf("%w: invoked as %s, registered as %s", ErrAuthorization, programID, c.id)
	}

	if len(data) == 0 {
		return fmt.Errorf("%w: empty instruction data", ErrMalformedInput)
	}

	switch i := Instruction(data[0]); i {
	case InstructionDeposit:
		return c.deposit(inv, accounts, data[1:])
	case InstructionWithdraw:
		return c.withdraw(inv, accounts, data[1:])
	default:
		return fmt.Errorf("%w: instruction %s", ErrMalformedInput, i)
	}
}

type deriveFunc func(seeds [][]byte, programID host.Pubkey) (host.Pubkey, error)

// deriveUnchecked derives an address with a known bump, skipping the curve
// check.
func deriveUnchecked(seeds [][]byte, programID host.Pubkey) (host.Pubkey, error) {
	return pda.Derive(seeds, nil, programID)
}

// verifyAddresses checks that state and vault accounts are derived from the
// identity with the bumps of the record.
func (c *Contract) verifyAddresses(derive deriveFunc, identity, state, vault *host.Account, r Record) error {
	stateAddr, err := derive(withBump(StateSeeds(identity.Key), r.StateBump), c.id)
	if err != nil {
		return fmt.Errorf("%w: state address: %w", ErrAddressDerivationMismatch, err)
	}

	if !stateAddr.Equals(state.Key) {
		return fmt.Errorf("%w: state account is %s, derived %s",
			ErrAddressDerivationMismatch, state.Key, stateAddr)
	}

	vaultAddr, err := derive(withBump(VaultSeeds(stateAddr), r.VaultBump), c.id)
	if err != nil {
		return fmt.Errorf("%w: vault address: %w", ErrAddressDerivationMismatch, err)
	}

	if !vaultAddr.Equals(vault.Key) {
		return fmt.Errorf("%w: vault account is %s, derived %s",
			ErrAddressDerivationMismatch, vault.Key, vaultAddr)
	}

	return nil
}
