/*
Package ledger implements an account-based ledger hosting native programs.

Ledger keeps accounts in a neo-go storage.Store. Every transaction is
executed against a storage.MemCachedStore layered over it and persisted only
if all instructions succeed, so a failed transaction leaves no trace.
Transactions are applied one at a time.

After each program call the ledger checks that:
  - the sum of balances of the instruction accounts is unchanged;
  - only accounts owned by the program were debited or had their data changed;
  - read-only and executable accounts are unchanged.

Changes made through the Invoker (account creation, transfers) are trusted
system operations and are not attributed to the program. Accounts left with
zero balance are removed when the transaction is committed.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Receipt describes an executed transaction.
type Receipt struct {
	ID   uuid.UUID
	Hash util.Uint256
	Slot uint64
	Logs []string
}

// Option configures Ledger.
type Option func(*Ledger)

// WithLogger sets the logger, zap.NewNop is used by default.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithRent sets rent parameters, host.DefaultRent is used by default.
func WithRent(r host.Rent) Option {
	return func(l *Ledger) {
		l.rent = r
	}
}

// WithRegisterer registers ledger metrics in the given registry. Metrics are
// not exported by default.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Ledger) {
		l.registerer = reg
	}
}

// Ledger is an account ledger executing programs.
type Ledger struct {
	log        *zap.Logger
	rent       host.Rent
	registerer prometheus.Registerer
	metrics    *metrics

	mtx      sync.Mutex
	store    storage.Store
	programs map[host.Pubkey]host.Program
	slot     uint64
}

// New opens the ledger over the given store. The store is owned by the
// ledger from now on and is closed by Close.
func New(store storage.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		log:      zap.NewNop(),
		rent:     host.DefaultRent(),
		store:    store,
		programs: make(map[host.Pubkey]host.Program),
	}

	for _, o := range opts {
		o(l)
	}

	var err error
	l.metrics, err = newMetrics(l.registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	raw, err := store.Get([]byte{slotKey})
	switch {
	case err == nil:
		l.slot, err = decodeSlot(raw)
		if err != nil {
			return nil, fmt.Errorf("decode slot: %w", err)
		}
	case errors.Is(err, storage.ErrKeyNotFound):
	default:
		return nil, fmt.Errorf("read slot: %w", err)
	}

	cache := storage.NewMemCachedStore(store)
	putAccount(cache, &host.Account{
		Key:        host.SystemProgramID,
		Owner:      host.NativeLoaderID,
		Lamports:   1,
		Executable: true,
	})
	if _, err = cache.Persist(); err != nil {
		return nil, fmt.Errorf("store system program: %w", err)
	}

	l.metrics.slot.Set(float64(l.slot))
	l.log.Debug("ledger opened", zap.Uint64("slot", l.slot))

	return l, nil
}

// Rent returns rent parameters of the ledger.
func (l *Ledger) Rent() host.Rent {
	return l.rent
}

// Slot returns the number of the last applied transaction.
func (l *Ledger) Slot() uint64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.slot
}

// AddProgram makes the program executable under id. The program account is
// created (or overwritten) with the given data, it can be read back with
// ProgramData.
func (l *Ledger) AddProgram(id host.Pubkey, p host.Program, data []byte) error {
	if id.Equals(host.SystemProgramID) {
		return fmt.Errorf("%w: %s is reserved", ErrAccountInUse, id)
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	cache := storage.NewMemCachedStore(l.store)

	acc, err := loadAccount(cache, id)
	if err != nil {
		return err
	}

	if !acc.Executable && (acc.Lamports > 0 || len(acc.Data) > 0) {
		return fmt.Errorf("%w: %s is a regular account", ErrAccountInUse, id)
	}

	acc.Owner = host.NativeLoaderID
	acc.Executable = true
	acc.Data = data
	acc.Lamports = l.rent.MinimumBalance(len(data))
	putAccount(cache, acc)

	if _, err = cache.Persist(); err != nil {
		return fmt.Errorf("store program account: %w", err)
	}

	l.programs[id] = p
	l.log.Info("program registered", zap.Stringer("id", id))

	return nil
}

// ProgramData returns data of the program account.
func (l *Ledger) ProgramData(id host.Pubkey) ([]byte, error) {
	acc, err := l.Account(id)
	if err != nil {
		return nil, err
	}
	if !acc.Executable {
		return nil, fmt.Errorf("%w: %s is not a program", ErrUnknownProgram, id)
	}
	return acc.Data, nil
}

// Airdrop mints lamports to the account.
func (l *Ledger) Airdrop(to host.Pubkey, lamports uint64) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	cache := storage.NewMemCachedStore(l.store)

	acc, err := loadAccount(cache, to)
	if err != nil {
		return err
	}

	if err = credit(acc, lamports); err != nil {
		return err
	}
	putAccount(cache, acc)

	if _, err = cache.Persist(); err != nil {
		return fmt.Errorf("persist airdrop: %w", err)
	}

	l.log.Debug("airdrop", zap.Stringer("to", to), zap.Uint64("lamports", lamports))

	return nil
}

// Account returns current state of the account or ErrAccountNotFound.
func (l *Ledger) Account(key host.Pubkey) (*host.Account, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return getAccount(l.store, key)
}

// Balance returns balance of the account, zero for missing accounts.
func (l *Ledger) Balance(key host.Pubkey) (uint64, error) {
	acc, err := l.Account(key)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return acc.Lamports, nil
}

// IterateAccounts calls f for every stored account until f returns false.
func (l *Ledger) IterateAccounts(f func(*host.Account) bool) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var iterErr error

	l.store.Seek(storage.SeekRange{Prefix: []byte{accountPrefix}}, func(k, v []byte) bool {
		if len(k) == 1+host.PubkeyLen {
			k = k[1:]
		}

		key, err := host.PubkeyFromBytes(k)
		if err != nil {
			iterErr = fmt.Errorf("account key: %w", err)
			return false
		}

		acc, err := decodeAccount(key, v)
		if err != nil {
			iterErr = fmt.Errorf("decode account %s: %w", key, err)
			return false
		}

		return f(acc)
	})

	return iterErr
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.store.Close()
}

// Send executes the transaction. The receipt is returned even if execution
// fails, it carries the program logs collected up to the failure.
func (l *Ledger) Send(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	rcpt := &Receipt{
		ID:   uuid.New(),
		Hash: tx.Hash(),
		Slot: l.slot + 1,
	}

	err := l.execute(tx, rcpt)
	if err != nil {
		l.metrics.transactions.WithLabelValues(statusFailed).Inc()
		l.log.Debug("transaction failed",
			zap.Stringer("id", rcpt.ID),
			zap.Stringer("hash", rcpt.Hash),
			zap.Error(err))
		return rcpt, err
	}

	l.slot = rcpt.Slot
	l.metrics.transactions.WithLabelValues(statusOK).Inc()
	l.metrics.slot.Set(float64(l.slot))
	l.log.Debug("transaction applied",
		zap.Stringer("id", rcpt.ID),
		zap.Stringer("hash", rcpt.Hash),
		zap.Uint64("slot", rcpt.Slot))

	return rcpt, nil
}

func (l *Ledger) execute(tx *Transaction, rcpt *Receipt) error {
	_, err := tx.verify()
	if err != nil {
		return err
	}

	cache := storage.NewMemCachedStore(l.store)

	txKey := transactionKey(rcpt.Hash[:])
	if _, err = cache.Get(txKey); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, rcpt.Hash)
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("check transaction: %w", err)
	}

	x := &txContext{
		ledger:   l,
		rcpt:     rcpt,
		accounts: make(map[host.Pubkey]*host.Account),
		loaded:   make(map[host.Pubkey]*host.Account),
		writable: make(map[host.Pubkey]bool),
		cache:    cache,
	}

	for i := range tx.Instructions {
		if err = x.executeInstruction(&tx.Instructions[i]); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	for key, acc := range x.accounts {
		if !x.writable[key] || sameState(acc, x.loaded[key]) {
			continue
		}

		if acc.Lamports > 0 && acc.Lamports < l.rent.MinimumBalance(len(acc.Data)) {
			return fmt.Errorf("%w: account %s holds %d, needs %d", ErrInsufficientFundsForRent,
				key, acc.Lamports, l.rent.MinimumBalance(len(acc.Data)))
		}

		putAccount(cache, acc)
	}

	slot := encodeSlot(rcpt.Slot)
	cache.Put(txKey, slot)
	cache.Put([]byte{slotKey}, slot)

	if _, err = cache.Persist(); err != nil {
		return fmt.Errorf("persist transaction: %w", err)
	}

	return nil
}
