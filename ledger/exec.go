package ledger

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/nspcc-dev/neofs-vault/pda"
	"go.uber.org/zap"
)

// txContext holds account views shared by all instructions of a transaction.
type txContext struct {
	ledger *Ledger
	rcpt   *Receipt
	cache  *storage.MemCachedStore

	// current views, state at transaction start and write flags
	accounts map[host.Pubkey]*host.Account
	loaded   map[host.Pubkey]*host.Account
	writable map[host.Pubkey]bool
}

func (x *txContext) account(key host.Pubkey) (*host.Account, error) {
	if acc, ok := x.accounts[key]; ok {
		return acc, nil
	}

	acc, err := loadAccount(x.cache, key)
	if err != nil {
		return nil, err
	}

	x.accounts[key] = acc
	x.loaded[key] = acc.Clone()

	return acc, nil
}

func (x *txContext) executeInstruction(ix *Instruction) error {
	prog, ok := x.ledger.programs[ix.ProgramID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID)
	}

	// flags of an account listed several times are merged
	flags := make(map[host.Pubkey]AccountMeta, len(ix.Accounts))
	for _, m := range ix.Accounts {
		f := flags[m.Key]
		f.IsSigner = f.IsSigner || m.IsSigner
		f.IsWritable = f.IsWritable || m.IsWritable
		flags[m.Key] = f
	}

	accounts := make([]*host.Account, 0, len(ix.Accounts))
	for _, m := range ix.Accounts {
		acc, err := x.account(m.Key)
		if err != nil {
			return err
		}

		acc.IsSigner = flags[m.Key].IsSigner
		acc.IsWritable = flags[m.Key].IsWritable
		if acc.IsWritable {
			x.writable[m.Key] = true
		}

		accounts = append(accounts, acc)
	}

	inv := &invocation{
		tx:      x,
		program: ix.ProgramID,
		pre:     make(map[host.Pubkey]*host.Account, len(flags)),
	}
	for key := range flags {
		inv.pre[key] = x.accounts[key].Clone()
	}

	x.ledger.metrics.instructions.WithLabelValues(ix.ProgramID.String()).Inc()

	err := prog.Process(inv, ix.ProgramID, accounts, bytes.Clone(ix.Data))
	if err != nil {
		return err
	}

	if err = inv.verify(); err != nil {
		return err
	}

	for key := range flags {
		reclaim(x.accounts[key])
	}

	return nil
}

// reclaim turns a drained account into an empty system account, so later
// instructions of the transaction see it as never created.
func reclaim(acc *host.Account) {
	if acc.Lamports != 0 || acc.Executable {
		return
	}
	acc.Owner = host.SystemProgramID
	acc.Data = nil
}

// invocation is a single program call, it implements host.Invoker.
type invocation struct {
	tx      *txContext
	program host.Pubkey

	// account states the program is accountable for, system operations
	// performed on its behalf are reflected here
	pre map[host.Pubkey]*host.Account
}

// Rent implements host.Invoker.
func (inv *invocation) Rent() host.Rent {
	return inv.tx.ledger.rent
}

// Log implements host.Invoker.
func (inv *invocation) Log(msg string) {
	inv.tx.rcpt.Logs = append(inv.tx.rcpt.Logs, msg)
	inv.tx.ledger.log.Debug("program log",
		zap.Stringer("program", inv.program),
		zap.String("msg", msg))
}

// CreateAccount implements host.Invoker.
func (inv *invocation) CreateAccount(from, to *host.Account, lamports, space uint64, owner host.Pubkey, signers ...host.Seeds) error {
	if err := inv.checkWritable(from, to); err != nil {
		return err
	}

	if err := inv.authorize(from, signers); err != nil {
		return err
	}

	if err := inv.authorize(to, signers); err != nil {
		return err
	}

	if to.Lamports > 0 || len(to.Data) > 0 || !to.IsOwnedBy(host.SystemProgramID) {
		return fmt.Errorf("%w: %s", ErrAccountInUse, to.Key)
	}

	if err := checkSystemSource(from); err != nil {
		return err
	}

	if space > MaxAccountDataLen {
		return fmt.Errorf("requested space %d exceeds limit %d", space, MaxAccountDataLen)
	}

	if from.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from.Key, from.Lamports, lamports)
	}

	from.Lamports -= lamports
	to.Lamports = lamports
	to.Data = make([]byte, space)
	to.Owner = owner

	inv.sync(from, to)

	return nil
}

// Transfer implements host.Invoker.
func (inv *invocation) Transfer(from, to *host.Account, lamports uint64, signers ...host.Seeds) error {
	if err := inv.checkWritable(from, to); err != nil {
		return err
	}

	if err := inv.authorize(from, signers); err != nil {
		return err
	}

	if err := checkSystemSource(from); err != nil {
		return err
	}

	if from.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from.Key, from.Lamports, lamports)
	}

	from.Lamports -= lamports
	if err := credit(to, lamports); err != nil {
		from.Lamports += lamports
		return err
	}

	inv.sync(from, to)

	return nil
}

func (inv *invocation) checkWritable(accs ...*host.Account) error {
	for _, a := range accs {
		if !a.IsWritable {
			return fmt.Errorf("%w: %s", ErrReadonlyModified, a.Key)
		}
	}
	return nil
}

// authorize checks that the account signed the transaction or is derived by
// the calling program from one of signers.
func (inv *invocation) authorize(acc *host.Account, signers []host.Seeds) error {
	if acc.IsSigner {
		return nil
	}

	for _, s := range signers {
		addr, err := pda.Create(s, inv.program)
		if err == nil && addr.Equals(acc.Key) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrMissingSignature, acc.Key)
}

// sync makes system changes of the accounts part of the expected state.
func (inv *invocation) sync(accs ...*host.Account) {
	for _, a := range accs {
		if _, ok := inv.pre[a.Key]; ok {
			inv.pre[a.Key] = a.Clone()
		}
	}
}

// verify checks changes made by the program itself.
func (inv *invocation) verify() error {
	var preHi, preLo, postHi, postLo, c uint64

	for key, pre := range inv.pre {
		post := inv.tx.accounts[key]

		preLo, c = bits.Add64(preLo, pre.Lamports, 0)
		preHi += c
		postLo, c = bits.Add64(postLo, post.Lamports, 0)
		postHi += c

		if sameState(pre, post) {
			continue
		}

		if !post.IsWritable || pre.Executable {
			return fmt.Errorf("%w: %s", ErrReadonlyModified, key)
		}

		if post.Owner != pre.Owner || post.Executable != pre.Executable {
			return fmt.Errorf("%w: owner or executable flag of %s changed", ErrExternalDataChange, key)
		}

		owned := pre.IsOwnedBy(inv.program)

		if post.Lamports < pre.Lamports && !owned {
			return fmt.Errorf("%w: %s", ErrExternalDebit, key)
		}

		if !bytes.Equal(post.Data, pre.Data) && !owned {
			return fmt.Errorf("%w: %s", ErrExternalDataChange, key)
		}
	}

	if preHi != postHi || preLo != postLo {
		return ErrUnbalancedTransaction
	}

	return nil
}

// checkSystemSource checks that the account can be a source of system
// transfers: it belongs to the system program and carries no data.
func checkSystemSource(acc *host.Account) error {
	if !acc.IsOwnedBy(host.SystemProgramID) || len(acc.Data) > 0 {
		return fmt.Errorf("%w: %s is owned by %s with %d bytes of data",
			ErrInvalidAccountOwner, acc.Key, acc.Owner, len(acc.Data))
	}
	return nil
}

func credit(acc *host.Account, lamports uint64) error {
	sum, carry := bits.Add64(acc.Lamports, lamports, 0)
	if carry != 0 {
		return fmt.Errorf("%w: crediting %s", ErrArithmeticOverflow, acc.Key)
	}
	acc.Lamports = sum
	return nil
}
