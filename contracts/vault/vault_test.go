package vault_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neofs-vault/contracts/vault"
	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/nspcc-dev/neofs-vault/ledger"
	rpcvault "github.com/nspcc-dev/neofs-vault/rpc/vault"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sol = 1_000_000_000

var programID = host.Pubkey{'v', 'a', 'u', 'l', 't'}

type testEnv struct {
	t      *testing.T
	ledger *ledger.Ledger
	rent   host.Rent
}

func newEnv(t *testing.T) *testEnv {
	l, err := ledger.New(storage.NewMemoryStore(), ledger.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	require.NoError(t, l.AddProgram(programID, vault.New(vault.Config{ID: programID}), nil))

	return &testEnv{t: t, ledger: l, rent: l.Rent()}
}

type user struct {
	key  ed25519.PrivateKey
	id   host.Pubkey
	addr rpcvault.Addresses
	c    *rpcvault.Contract
}

func (e *testEnv) newUser(lamports uint64) *user {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(e.t, err)

	u := &user{key: priv, c: rpcvault.New(e.ledger, programID, priv)}
	u.id = u.c.Identity()
	u.addr, err = rpcvault.FindAddresses(programID, u.id)
	require.NoError(e.t, err)

	if lamports > 0 {
		require.NoError(e.t, e.ledger.Airdrop(u.id, lamports))
	}

	return u
}

func (e *testEnv) balance(key host.Pubkey) uint64 {
	b, err := e.ledger.Balance(key)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) send(payer ed25519.PrivateKey, ix ledger.Instruction) (*ledger.Receipt, error) {
	var id host.Pubkey
	copy(id[:], payer.Public().(ed25519.PublicKey))

	tx := ledger.NewTransaction(id, ix)
	tx.Sign(payer)
	return e.ledger.Send(context.Background(), tx)
}

// snapshot returns balances of the user vault accounts.
func (e *testEnv) snapshot(u *user) [3]uint64 {
	return [3]uint64{e.balance(u.id), e.balance(u.addr.Vault), e.balance(u.addr.State)}
}

func TestVaultLifecycle(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(20 * sol)
	ctx := context.Background()
	stateRent := e.rent.MinimumBalance(vault.RecordLen)

	_, err := u.c.State(u.id)
	require.ErrorIs(t, err, rpcvault.ErrNotInitialized)

	rcpt, err := u.c.Deposit(ctx, 10*sol)
	require.NoError(t, err)
	require.Equal(t, []string{
		"Processing deposit instruction",
		"Vault state account initialized",
		"Vault: " + u.addr.Vault.String(),
		"SOL deposited to vault",
	}, rcpt.Logs)

	require.EqualValues(t, 10*sol, e.balance(u.addr.Vault))
	require.Equal(t, stateRent, e.balance(u.addr.State))
	require.Equal(t, 10*sol-stateRent, e.balance(u.id))

	state, err := e.ledger.Account(u.addr.State)
	require.NoError(t, err)
	require.Equal(t, programID, state.Owner)
	require.Equal(t, []byte{u.addr.VaultBump, u.addr.StateBump}, state.Data)

	rec, err := u.c.State(u.id)
	require.NoError(t, err)
	require.Equal(t, u.addr.Record(), rec)

	vaultAcc, err := e.ledger.Account(u.addr.Vault)
	require.NoError(t, err)
	require.Equal(t, host.SystemProgramID, vaultAcc.Owner)
	require.Empty(t, vaultAcc.Data)

	rcpt, err = u.c.Deposit(ctx, 5*sol)
	require.NoError(t, err)
	require.Equal(t, []string{"Processing deposit instruction", "SOL deposited to vault"}, rcpt.Logs)
	require.EqualValues(t, 15*sol, e.balance(u.addr.Vault))
	require.Equal(t, stateRent, e.balance(u.addr.State))

	rcpt, err = u.c.Withdraw(ctx, 3*sol)
	require.NoError(t, err)
	require.Equal(t, []string{"Processing withdraw instruction", "SOL amount withdrawn from vault"}, rcpt.Logs)
	require.EqualValues(t, 12*sol, e.balance(u.addr.Vault))
	require.Equal(t, 8*sol-stateRent, e.balance(u.id))

	vb, err := u.c.VaultBalance(u.id)
	require.NoError(t, err)
	require.EqualValues(t, 12*sol, vb)

	rcpt, err = u.c.Withdraw(ctx, 12*sol)
	require.NoError(t, err)
	require.Equal(t, []string{
		"Processing withdraw instruction",
		"SOL balance withdrawn from vault and closed accounts",
	}, rcpt.Logs)
	require.EqualValues(t, 20*sol, e.balance(u.id))

	_, err = e.ledger.Account(u.addr.Vault)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
	_, err = e.ledger.Account(u.addr.State)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	_, err = u.c.State(u.id)
	require.ErrorIs(t, err, rpcvault.ErrNotInitialized)

	// closed accounts can't be withdrawn from
	_, err = u.c.Withdraw(ctx, 1)
	require.ErrorIs(t, err, vault.ErrAuthorization)
}

func TestWithdrawBelowMinimumCloses(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)
	ctx := context.Background()

	_, err := u.c.Deposit(ctx, 2*sol)
	require.NoError(t, err)

	// leaving less than the minimum balance pays out everything
	rcpt, err := u.c.Withdraw(ctx, 2*sol-e.rent.MinimumBalance(0)+1)
	require.NoError(t, err)
	require.Contains(t, rcpt.Logs, "SOL balance withdrawn from vault and closed accounts")
	require.EqualValues(t, 10*sol, e.balance(u.id))
	require.Zero(t, e.balance(u.addr.Vault))
	require.Zero(t, e.balance(u.addr.State))

	// vault can be opened again afterwards
	_, err = u.c.Deposit(ctx, sol)
	require.NoError(t, err)
	require.EqualValues(t, sol, e.balance(u.addr.Vault))
}

func TestWithdrawAtMinimumKeepsVault(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)
	ctx := context.Background()

	_, err := u.c.Deposit(ctx, 2*sol)
	require.NoError(t, err)

	_, err = u.c.Withdraw(ctx, 2*sol-e.rent.MinimumBalance(0))
	require.NoError(t, err)
	require.Equal(t, e.rent.MinimumBalance(0), e.balance(u.addr.Vault))
	require.Equal(t, e.rent.MinimumBalance(vault.RecordLen), e.balance(u.addr.State))
}

func TestDepositPolicy(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)
	ctx := context.Background()
	minimum := e.rent.MinimumBalance(0)

	before := e.snapshot(u)
	_, err := u.c.Deposit(ctx, minimum-1)
	require.ErrorIs(t, err, vault.ErrPolicyViolation)
	require.Equal(t, before, e.snapshot(u))

	_, err = u.c.Deposit(ctx, 0)
	require.ErrorIs(t, err, vault.ErrPolicyViolation)

	_, err = u.c.Deposit(ctx, minimum)
	require.NoError(t, err)
	require.Equal(t, minimum, e.balance(u.addr.Vault))

	before = e.snapshot(u)
	_, err = u.c.Deposit(ctx, 0)
	require.ErrorIs(t, err, vault.ErrPolicyViolation)
	require.Equal(t, before, e.snapshot(u))

	// small top-ups are fine once the vault exists
	_, err = u.c.Deposit(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, minimum+1, e.balance(u.addr.Vault))

	rec, err := u.c.State(u.id)
	require.NoError(t, err)
	require.Equal(t, u.addr.Record(), rec)
	require.Equal(t, e.rent.MinimumBalance(vault.RecordLen), e.balance(u.addr.State))
}

func TestDepositInsufficientFunds(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(sol)

	// depositor pays for the state account on top of the amount
	_, err := u.c.Deposit(context.Background(), sol)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.EqualValues(t, sol, e.balance(u.id))
	require.Zero(t, e.balance(u.addr.State))
}

func TestWithdrawPolicy(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)
	ctx := context.Background()

	_, err := u.c.Withdraw(ctx, 1)
	require.ErrorIs(t, err, vault.ErrAuthorization)

	_, err = u.c.Deposit(ctx, 2*sol)
	require.NoError(t, err)

	before := e.snapshot(u)

	_, err = u.c.Withdraw(ctx, 2*sol+1)
	require.ErrorIs(t, err, vault.ErrPolicyViolation)
	require.Equal(t, before, e.snapshot(u))

	_, err = u.c.Withdraw(ctx, 0)
	require.ErrorIs(t, err, vault.ErrPolicyViolation)
	require.Equal(t, before, e.snapshot(u))
}

func TestForeignVault(t *testing.T) {
	e := newEnv(t)
	victim := e.newUser(10 * sol)
	thief := e.newUser(10 * sol)

	_, err := victim.c.Deposit(context.Background(), 5*sol)
	require.NoError(t, err)
	before := e.snapshot(victim)

	_, err = e.send(thief.key, rpcvault.NewWithdrawInstruction(programID, thief.id, victim.addr, sol))
	require.ErrorIs(t, err, vault.ErrAddressDerivationMismatch)

	_, err = e.send(thief.key, rpcvault.NewDepositInstruction(programID, thief.id, victim.addr, sol))
	require.ErrorIs(t, err, vault.ErrAddressDerivationMismatch)

	require.Equal(t, before, e.snapshot(victim))
	require.EqualValues(t, 10*sol, e.balance(thief.id))
}

func TestForgedAddresses(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)
	other := e.newUser(0)

	forged := u.addr
	forged.State = other.id
	_, err := e.send(u.key, rpcvault.NewDepositInstruction(programID, u.id, forged, sol))
	require.ErrorIs(t, err, vault.ErrAddressDerivationMismatch)

	forged = u.addr
	forged.Vault = other.id
	_, err = e.send(u.key, rpcvault.NewDepositInstruction(programID, u.id, forged, sol))
	require.ErrorIs(t, err, vault.ErrAddressDerivationMismatch)

	forged = u.addr
	forged.StateBump--
	_, err = e.send(u.key, rpcvault.NewDepositInstruction(programID, u.id, forged, sol))
	require.ErrorIs(t, err, vault.ErrAddressDerivationMismatch)

	_, err = u.c.Deposit(context.Background(), sol)
	require.NoError(t, err)

	// declared bumps of a later deposit must match the stored ones
	forged = u.addr
	forged.VaultBump--
	_, err = e.send(u.key, rpcvault.NewDepositInstruction(programID, u.id, forged, sol))
	require.ErrorIs(t, err, vault.ErrAddressDerivationMismatch)

	ix := rpcvault.NewDepositInstruction(programID, u.id, u.addr, sol)
	ix.Data[2]--
	_, err = e.send(u.key, ix)
	require.ErrorIs(t, err, vault.ErrAddressDerivationMismatch)
}

func TestAccountChecks(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)
	payer := e.newUser(sol)

	_, err := u.c.Deposit(context.Background(), 2*sol)
	require.NoError(t, err)
	before := e.snapshot(u)

	t.Run("not a signer", func(t *testing.T) {
		for _, ix := range []ledger.Instruction{
			rpcvault.NewDepositInstruction(programID, u.id, u.addr, sol),
			rpcvault.NewWithdrawInstruction(programID, u.id, u.addr, sol),
		} {
			ix.Accounts[0].IsSigner = false
			_, err := e.send(payer.key, ix)
			require.ErrorIs(t, err, vault.ErrAuthorization)
		}
	})

	t.Run("vault owned by program", func(t *testing.T) {
		swapped := u.addr
		swapped.Vault, swapped.State = u.addr.State, u.addr.Vault

		_, err := e.send(u.key, rpcvault.NewWithdrawInstruction(programID, u.id, swapped, sol))
		require.ErrorIs(t, err, vault.ErrAuthorization)

		_, err = e.send(u.key, rpcvault.NewDepositInstruction(programID, u.id, swapped, sol))
		require.ErrorIs(t, err, vault.ErrAuthorization)
	})

	t.Run("too few accounts", func(t *testing.T) {
		for _, ix := range []ledger.Instruction{
			rpcvault.NewDepositInstruction(programID, u.id, u.addr, sol),
			rpcvault.NewWithdrawInstruction(programID, u.id, u.addr, sol),
		} {
			ix.Accounts = ix.Accounts[:3]
			_, err := e.send(u.key, ix)
			require.ErrorIs(t, err, vault.ErrAccountArity)
		}
	})

	t.Run("malformed data", func(t *testing.T) {
		dep := rpcvault.NewDepositInstruction(programID, u.id, u.addr, sol).Data
		wd := rpcvault.NewWithdrawInstruction(programID, u.id, u.addr, sol).Data

		for _, data := range [][]byte{
			nil,
			{2},
			{0xff, 1, 2},
			dep[:len(dep)-1],
			append(dep[:len(dep):len(dep)], 0),
			wd[:len(wd)-1],
			append(wd[:len(wd):len(wd)], 0),
		} {
			ix := rpcvault.NewDepositInstruction(programID, u.id, u.addr, sol)
			ix.Data = data
			_, err := e.send(u.key, ix)
			require.ErrorIs(t, err, vault.ErrMalformedInput, "data %x", data)
		}
	})

	require.Equal(t, before, e.snapshot(u))
}

func TestWrongProgramID(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)

	otherID := host.Pubkey{'o', 't', 'h', 'e', 'r'}
	require.NoError(t, e.ledger.AddProgram(otherID, vault.New(vault.Config{ID: programID}), nil))

	addr, err := rpcvault.FindAddresses(otherID, u.id)
	require.NoError(t, err)

	_, err = e.send(u.key, rpcvault.NewDepositInstruction(otherID, u.id, addr, sol))
	require.ErrorIs(t, err, vault.ErrAuthorization)
	require.EqualValues(t, 10*sol, e.balance(u.id))
}

func TestIndependentVaults(t *testing.T) {
	e := newEnv(t)
	a := e.newUser(10 * sol)
	b := e.newUser(10 * sol)
	ctx := context.Background()

	require.NotEqual(t, a.addr.State, b.addr.State)
	require.NotEqual(t, a.addr.Vault, b.addr.Vault)

	_, err := a.c.Deposit(ctx, 3*sol)
	require.NoError(t, err)
	_, err = b.c.Deposit(ctx, 4*sol)
	require.NoError(t, err)

	_, err = a.c.Withdraw(ctx, 3*sol)
	require.NoError(t, err)

	require.Zero(t, e.balance(a.addr.Vault))
	require.EqualValues(t, 4*sol, e.balance(b.addr.Vault))
	require.EqualValues(t, 10*sol, e.balance(a.id))
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, amount := range []uint64{
		e.rent.MinimumBalance(0),
		e.rent.MinimumBalance(0) + 1,
		sol,
		7*sol + 12345,
	} {
		u := e.newUser(10 * sol)

		_, err := u.c.Deposit(ctx, amount)
		require.NoError(t, err)
		_, err = u.c.Withdraw(ctx, amount)
		require.NoError(t, err)

		require.EqualValues(t, 10*sol, e.balance(u.id), "amount %d", amount)
		require.Zero(t, e.balance(u.addr.Vault))
		require.Zero(t, e.balance(u.addr.State))
	}
}

func TestDepositWithdrawRoundTripOpenVault(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.newUser(20 * sol)

	_, err := u.c.Deposit(ctx, 5*sol)
	require.NoError(t, err)
	before := e.snapshot(u)

	for _, amount := range []uint64{
		1,
		e.rent.MinimumBalance(0),
		sol,
		3*sol + 12345,
	} {
		_, err = u.c.Deposit(ctx, amount)
		require.NoError(t, err)
		_, err = u.c.Withdraw(ctx, amount)
		require.NoError(t, err)

		require.Equal(t, before, e.snapshot(u), "amount %d", amount)
		require.EqualValues(t, 5*sol, e.balance(u.addr.Vault))

		rec, err := u.c.State(u.id)
		require.NoError(t, err)
		require.Equal(t, u.addr.Record(), rec)
	}
}

func TestReopenInSameTransaction(t *testing.T) {
	e := newEnv(t)
	u := e.newUser(10 * sol)
	stateRent := e.rent.MinimumBalance(vault.RecordLen)

	_, err := u.c.Deposit(context.Background(), 2*sol)
	require.NoError(t, err)

	tx := ledger.NewTransaction(u.id,
		rpcvault.NewWithdrawInstruction(programID, u.id, u.addr, 2*sol),
		rpcvault.NewDepositInstruction(programID, u.id, u.addr, sol),
	)
	tx.Sign(u.key)
	rcpt, err := e.ledger.Send(context.Background(), tx)
	require.NoError(t, err)
	require.Contains(t, rcpt.Logs, "Vault state account initialized")

	require.EqualValues(t, sol, e.balance(u.addr.Vault))
	require.Equal(t, stateRent, e.balance(u.addr.State))
	require.Equal(t, 9*sol-stateRent, e.balance(u.id))

	state, err := e.ledger.Account(u.addr.State)
	require.NoError(t, err)
	require.Equal(t, programID, state.Owner)
	require.Equal(t, u.addr.Record().Bytes(), state.Data)

	// the reopened vault behaves as a fresh one
	_, err = u.c.Withdraw(context.Background(), sol)
	require.NoError(t, err)
	require.Zero(t, e.balance(u.addr.Vault))
	require.Zero(t, e.balance(u.addr.State))
	require.EqualValues(t, 10*sol, e.balance(u.id))
}
