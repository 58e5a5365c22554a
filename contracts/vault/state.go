package vault

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neofs-vault/host"
)

// RecordLen is the size of the state account data.
const RecordLen = 2

var (
	stateSeedPrefix = []byte("state")
	vaultSeedPrefix = []byte("vault")
)

// Record is the content of the state account: bumps of both vault addresses.
// It is written once when the vault is created and never changed.
type Record struct {
	VaultBump byte
	StateBump byte
}

// EncodeBinary implements io.Serializable.
func (r *Record) EncodeBinary(w *io.BinWriter) {
	w.WriteB(r.VaultBump)
	w.WriteB(r.StateBump)
}

// DecodeBinary implements io.Serializable.
func (r *Record) DecodeBinary(br *io.BinReader) {
	r.VaultBump = br.ReadB()
	r.StateBump = br.ReadB()
}

// Bytes returns serialized record.
func (r Record) Bytes() []byte {
	w := io.NewBufBinWriter()
	r.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// DecodeRecord decodes state account data. Data of any length other than
// RecordLen is rejected.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := decodeExact(data, RecordLen, &r); err != nil {
		return r, fmt.Errorf("vault state: %w", err)
	}
	return r, nil
}

// writeRecord stores the record into already allocated account data.
func writeRecord(acc *host.Account, r Record) error {
	if len(acc.Data) != RecordLen {
		return fmt.Errorf("%w: state account data length %d, expected %d",
			ErrMalformedInput, len(acc.Data), RecordLen)
	}
	copy(acc.Data, r.Bytes())
	return nil
}

// StateSeeds returns seeds of the state account of the identity, the bump is
// not included.
func StateSeeds(identity host.Pubkey) host.Seeds {
	return host.Seeds{stateSeedPrefix, identity[:]}
}

// VaultSeeds returns seeds of the vault account bound to the state account,
// the bump is not included.
func VaultSeeds(state host.Pubkey) host.Seeds {
	return host.Seeds{vaultSeedPrefix, state[:]}
}

func withBump(seeds host.Seeds, bump byte) host.Seeds {
	return append(seeds, []byte{bump})
}
