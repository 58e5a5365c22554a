package vault

import (
	"fmt"

	"github.com/nspcc-dev/neofs-vault/host"
)

// deposit moves value from the depositor into the vault, creating the state
// account on the first call.
func (c *Contract) deposit(inv host.Invoker, accounts []*host.Account, data []byte) error {
	inv.Log("Processing deposit instruction")

	if len(accounts) < minAccounts {
		return fmt.Errorf("%w: deposit expects %d accounts, got %d", ErrAccountArity, minAccounts, len(accounts))
	}

	user, vault, state := accounts[0], accounts[1], accounts[2]

	if !user.IsSigner {
		return fmt.Errorf("%w: depositor %s is not a signer", ErrAuthorization, user.Key)
	}

	if !vault.IsOwnedBy(host.SystemProgramID) {
		return fmt.Errorf("%w: vault account is owned by %s", ErrAuthorization, vault.Owner)
	}

	args, err := DecodeDepositArgs(data)
	if err != nil {
		return fmt.Errorf("deposit arguments: %w", err)
	}

	declared := Record{VaultBump: args.VaultBump, StateBump: args.StateBump}

	err = c.verifyAddresses(deriveUnchecked, user, state, vault, declared)
	if err != nil {
		return err
	}

	rent := inv.Rent()

	if !state.IsOwnedBy(c.id) {
		// the vault account must end up above the minimum balance on its own
		if minimum := rent.MinimumBalance(0); args.Amount < minimum {
			return fmt.Errorf("%w: first deposit %d is below minimum balance %d",
				ErrPolicyViolation, args.Amount, minimum)
		}

		err = inv.CreateAccount(user, state, rent.MinimumBalance(RecordLen), RecordLen, c.id,
			withBump(StateSeeds(user.Key), args.StateBump))
		if err != nil {
			return fmt.Errorf("create state account: %w", err)
		}

		if err = writeRecord(state, declared); err != nil {
			return err
		}

		inv.Log("Vault state account initialized")
		inv.Log("Vault: " + vault.Key.String())
	} else {
		if args.Amount == 0 {
			return fmt.Errorf("%w: zero deposit", ErrPolicyViolation)
		}

		stored, err := DecodeRecord(state.Data)
		if err != nil {
			return err
		}

		if stored != declared {
			return fmt.Errorf("%w: declared bumps %d/%d, stored %d/%d", ErrAddressDerivationMismatch,
				declared.VaultBump, declared.StateBump, stored.VaultBump, stored.StateBump)
		}
	}

	if err = inv.Transfer(user, vault, args.Amount); err != nil {
		return fmt.Errorf("transfer to vault: %w", err)
	}

	inv.Log("SOL deposited to vault")

	return nil
}
