package vault

import (
	"fmt"
	"math/bits"

	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/nspcc-dev/neofs-vault/pda"
)

// withdraw moves value from the vault back to its owner. Bumps are read from
// the state account only, so a withdrawer can't present a forged derivation.
func (c *Contract) withdraw(inv host.Invoker, accounts []*host.Account, data []byte) error {
	inv.Log("Processing withdraw instruction")

	if len(accounts) < minAccounts {
		return fmt.Errorf("%w: withdraw expects %d accounts, got %d", ErrAccountArity, minAccounts, len(accounts))
	}

	user, vault, state := accounts[0], accounts[1], accounts[2]

	if !user.IsSigner {
		return fmt.Errorf("%w: withdrawer %s is not a signer", ErrAuthorization, user.Key)
	}

	if !vault.IsOwnedBy(host.SystemProgramID) {
		return fmt.Errorf("%w: vault account is owned by %s", ErrAuthorization, vault.Owner)
	}

	if !state.IsOwnedBy(c.id) {
		return fmt.Errorf("%w: state account is owned by %s", ErrAuthorization, state.Owner)
	}

	args, err := DecodeWithdrawArgs(data)
	if err != nil {
		return fmt.Errorf("withdraw arguments: %w", err)
	}

	r, err := DecodeRecord(state.Data)
	if err != nil {
		return err
	}

	err = c.verifyAddresses(pda.Create, user, state, vault, r)
	if err != nil {
		return err
	}

	switch {
	case args.Amount > vault.Lamports:
		return fmt.Errorf("%w: amount %d exceeds vault balance %d", ErrPolicyViolation, args.Amount, vault.Lamports)
	case args.Amount == 0:
		return fmt.Errorf("%w: zero withdrawal", ErrPolicyViolation)
	}

	signer := withBump(VaultSeeds(state.Key), r.VaultBump)

	if vault.Lamports-args.Amount >= inv.Rent().MinimumBalance(0) {
		if err = inv.Transfer(vault, user, args.Amount, signer); err != nil {
			return fmt.Errorf("transfer from vault: %w", err)
		}

		inv.Log("SOL amount withdrawn from vault")
		return nil
	}

	// nothing below the minimum balance is left behind: the whole vault is
	// paid out and the state account is closed
	if err = inv.Transfer(vault, user, vault.Lamports, signer); err != nil {
		return fmt.Errorf("transfer from vault: %w", err)
	}

	if err = closeInto(state, user); err != nil {
		return err
	}

	inv.Log("SOL balance withdrawn from vault and closed accounts")

	return nil
}

// closeInto credits the whole balance of acc to dst and only after that sets
// acc balance to zero, so the value is never counted twice or lost. The host
// reclaims zero-balance accounts when the transaction is committed.
func closeInto(acc, dst *host.Account) error {
	credited, carry := bits.Add64(dst.Lamports, acc.Lamports, 0)
	if carry != 0 {
		return fmt.Errorf("%w: balance overflow closing %s", ErrPolicyViolation, acc.Key)
	}

	dst.Lamports = credited
	acc.Lamports = 0

	return nil
}
