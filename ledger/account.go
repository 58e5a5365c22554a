package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neofs-vault/host"
)

// Storage layout:
//
//	0x01 || key  -> account state
//	0x02 || hash -> slot the transaction was applied in
//	0x03         -> current slot
const (
	accountPrefix     = 0x01
	transactionPrefix = 0x02
	slotKey           = 0x03
)

// MaxAccountDataLen limits data size of a single account.
const MaxAccountDataLen = 10 * 1024 * 1024

// accountState is a persisted form of the account.
type accountState struct {
	Owner      host.Pubkey
	Lamports   uint64
	Executable bool
	Data       []byte
}

// EncodeBinary implements io.Serializable.
func (a *accountState) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(a.Owner[:])
	w.WriteU64LE(a.Lamports)
	w.WriteBool(a.Executable)
	w.WriteVarBytes(a.Data)
}

// DecodeBinary implements io.Serializable.
func (a *accountState) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(a.Owner[:])
	a.Lamports = r.ReadU64LE()
	a.Executable = r.ReadBool()
	a.Data = r.ReadVarBytes(MaxAccountDataLen)
}

func accountKey(key host.Pubkey) []byte {
	return append([]byte{accountPrefix}, key[:]...)
}

func transactionKey(hash []byte) []byte {
	return append([]byte{transactionPrefix}, hash...)
}

// getter is a part of storage.Store and storage.MemCachedStore used for reads.
type getter interface {
	Get([]byte) ([]byte, error)
}

// getAccount reads an account from the store. Missing accounts are reported
// with ErrAccountNotFound.
func getAccount(s getter, key host.Pubkey) (*host.Account, error) {
	raw, err := s.Get(accountKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
		}
		return nil, fmt.Errorf("read account %s: %w", key, err)
	}

	acc, err := decodeAccount(key, raw)
	if err != nil {
		return nil, fmt.Errorf("decode account %s: %w", key, err)
	}

	return acc, nil
}

// loadAccount is like getAccount, but returns an empty system account if
// nothing is stored under the key.
func loadAccount(s getter, key host.Pubkey) (*host.Account, error) {
	acc, err := getAccount(s, key)
	if errors.Is(err, ErrAccountNotFound) {
		return &host.Account{Key: key, Owner: host.SystemProgramID}, nil
	}
	return acc, err
}

func decodeAccount(key host.Pubkey, raw []byte) (*host.Account, error) {
	var st accountState

	r := io.NewBinReaderFromBuf(raw)
	st.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}

	return &host.Account{
		Key:        key,
		Owner:      st.Owner,
		Lamports:   st.Lamports,
		Executable: st.Executable,
		Data:       st.Data,
	}, nil
}

func encodeAccount(acc *host.Account) []byte {
	st := accountState{
		Owner:      acc.Owner,
		Lamports:   acc.Lamports,
		Executable: acc.Executable,
		Data:       acc.Data,
	}

	w := io.NewBufBinWriter()
	st.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// slotLen is the size of the encoded slot number.
const slotLen = 8

func encodeSlot(slot uint64) []byte {
	w := io.NewBufBinWriter()
	w.WriteU64LE(slot)
	return w.Bytes()
}

func decodeSlot(raw []byte) (uint64, error) {
	if len(raw) != slotLen {
		return 0, fmt.Errorf("invalid slot record length %d", len(raw))
	}

	r := io.NewBinReaderFromBuf(raw)
	slot := r.ReadU64LE()
	return slot, r.Err
}

// putAccount stores the account into the cache. Accounts with zero balance
// are reclaimed.
func putAccount(s *storage.MemCachedStore, acc *host.Account) {
	if acc.Lamports == 0 {
		s.Delete(accountKey(acc.Key))
		return
	}
	s.Put(accountKey(acc.Key), encodeAccount(acc))
}

// sameState checks whether two views hold the same account state.
func sameState(a, b *host.Account) bool {
	return a.Owner == b.Owner &&
		a.Lamports == b.Lamports &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}
