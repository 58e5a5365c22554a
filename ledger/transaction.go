package ledger

import (
	"crypto/ed25519"
	"fmt"
	"math/rand/v2"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neofs-vault/host"
)

// AccountMeta describes how an instruction uses an account.
type AccountMeta struct {
	Key        host.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Writable returns meta of a writable account.
func Writable(key host.Pubkey, signer bool) AccountMeta {
	return AccountMeta{Key: key, IsSigner: signer, IsWritable: true}
}

// Readonly returns meta of a read-only account.
func Readonly(key host.Pubkey, signer bool) AccountMeta {
	return AccountMeta{Key: key, IsSigner: signer}
}

// Instruction is a single program call.
type Instruction struct {
	ProgramID host.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Signature binds a signer to the transaction message.
type Signature struct {
	Signer host.Pubkey
	Sig    []byte
}

// Transaction is an atomic list of instructions. Either all of them are
// applied or none.
type Transaction struct {
	FeePayer     host.Pubkey
	Nonce        uint64
	Instructions []Instruction
	Signatures   []Signature
}

// NewTransaction returns unsigned transaction with a random nonce.
func NewTransaction(feePayer host.Pubkey, instructions ...Instruction) *Transaction {
	return &Transaction{
		FeePayer:     feePayer,
		Nonce:        rand.Uint64(),
		Instructions: instructions,
	}
}

// Message returns signed part of the transaction.
func (t *Transaction) Message() []byte {
	w := io.NewBufBinWriter()

	w.WriteBytes(t.FeePayer[:])
	w.WriteU64LE(t.Nonce)
	w.WriteVarUint(uint64(len(t.Instructions)))
	for _, ix := range t.Instructions {
		w.WriteBytes(ix.ProgramID[:])
		w.WriteVarUint(uint64(len(ix.Accounts)))
		for _, m := range ix.Accounts {
			w.WriteBytes(m.Key[:])
			w.WriteBool(m.IsSigner)
			w.WriteBool(m.IsWritable)
		}
		w.WriteVarBytes(ix.Data)
	}

	return w.Bytes()
}

// Hash returns transaction identifier.
func (t *Transaction) Hash() util.Uint256 {
	return hash.Sha256(t.Message())
}

// Sign appends signatures of the given keys. Signatures are made over the
// current message, so instructions must not be changed afterwards.
func (t *Transaction) Sign(keys ...ed25519.PrivateKey) {
	msg := t.Message()
	for _, k := range keys {
		var signer host.Pubkey
		copy(signer[:], k.Public().(ed25519.PublicKey))

		t.Signatures = append(t.Signatures, Signature{
			Signer: signer,
			Sig:    ed25519.Sign(k, msg),
		})
	}
}

// verify checks signatures and returns the set of signers. The fee payer and
// every account marked as signer must be among them.
func (t *Transaction) verify() (map[host.Pubkey]struct{}, error) {
	msg := t.Message()
	signers := make(map[host.Pubkey]struct{}, len(t.Signatures))

	for _, s := range t.Signatures {
		if !ed25519.Verify(s.Signer[:], msg, s.Sig) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, s.Signer)
		}
		signers[s.Signer] = struct{}{}
	}

	if _, ok := signers[t.FeePayer]; !ok {
		return nil, fmt.Errorf("%w: fee payer %s", ErrMissingSignature, t.FeePayer)
	}

	for i, ix := range t.Instructions {
		for _, m := range ix.Accounts {
			if _, ok := signers[m.Key]; m.IsSigner && !ok {
				return nil, fmt.Errorf("%w: instruction %d account %s", ErrMissingSignature, i, m.Key)
			}
		}
	}

	return signers, nil
}
