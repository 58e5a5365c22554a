/*
Package vault implements Vault program which keeps native value on behalf of
a single identity.

Every identity owns at most one vault made of two program-derived accounts:

	state = derive(["state", identity, state_bump])
	vault = derive(["vault", state, vault_bump])

State account is owned by the program and stores the two bumps (see Record).
Vault account is a plain system account without data that holds deposited
value; the program signs for it with its seeds.

# Instructions

The first byte of instruction data selects the instruction.

Deposit (0). Data: vault_bump u8, state_bump u8, amount u64 LE. Accounts:

	0. [signer, writable] depositor
	1. [writable] vault
	2. [writable] state
	3. [] system program

The first deposit creates the state account and writes the bumps into it, the
amount must be enough to keep the vault account above the minimum balance.
Later deposits only require a positive amount.

Withdraw (1). Data: amount u64 LE. Accounts:

	0. [signer, writable] withdrawer
	1. [writable] vault
	2. [writable] state
	3. [] system program

Bumps are taken from the state account. If the vault balance left after the
withdrawal would fall below the minimum balance, the whole vault balance is
paid out and the state account is closed: its balance is credited to the
withdrawer and zeroed.

# Errors

All failures wrap one of ErrAccountArity, ErrAuthorization, ErrMalformedInput,
ErrPolicyViolation or ErrAddressDerivationMismatch.
*/
package vault
