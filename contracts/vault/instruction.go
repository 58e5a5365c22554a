package vault

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
)

// Instruction is a discriminator of the vault instruction, it is the first
// byte of instruction data.
type Instruction byte

// Supported instructions.
const (
	InstructionDeposit  Instruction = 0
	InstructionWithdraw Instruction = 1
)

// Lengths of instruction arguments following the discriminator.
const (
	DepositArgsLen  = 1 + 1 + 8
	WithdrawArgsLen = 8
)

// String implements fmt.Stringer.
func (i Instruction) String() string {
	switch i {
	case InstructionDeposit:
		return "deposit"
	case InstructionWithdraw:
		return "withdraw"
	default:
		return fmt.Sprintf("unknown(%d)", byte(i))
	}
}

// DepositArgs are arguments of the deposit instruction.
type DepositArgs struct {
	VaultBump byte
	StateBump byte
	Amount    uint64
}

// EncodeBinary implements io.Serializable.
func (a *DepositArgs) EncodeBinary(w *io.BinWriter) {
	w.WriteB(a.VaultBump)
	w.WriteB(a.StateBump)
	w.WriteU64LE(a.Amount)
}

// DecodeBinary implements io.Serializable.
func (a *DepositArgs) DecodeBinary(r *io.BinReader) {
	a.VaultBump = r.ReadB()
	a.StateBump = r.ReadB()
	a.Amount = r.ReadU64LE()
}

// Bytes returns full instruction data including the discriminator.
func (a DepositArgs) Bytes() []byte {
	return instructionData(InstructionDeposit, &a)
}

// DecodeDepositArgs decodes deposit arguments. Data must be exactly
// DepositArgsLen bytes long.
func DecodeDepositArgs(data []byte) (DepositArgs, error) {
	var a DepositArgs
	return a, decodeExact(data, DepositArgsLen, &a)
}

// WithdrawArgs are arguments of the withdraw instruction.
type WithdrawArgs struct {
	Amount uint64
}

// EncodeBinary implements io.Serializable.
func (a *WithdrawArgs) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(a.Amount)
}

// DecodeBinary implements io.Serializable.
func (a *WithdrawArgs) DecodeBinary(r *io.BinReader) {
	a.Amount = r.ReadU64LE()
}

// Bytes returns full instruction data including the discriminator.
func (a WithdrawArgs) Bytes() []byte {
	return instructionData(InstructionWithdraw, &a)
}

// DecodeWithdrawArgs decodes withdraw arguments. Data must be exactly
// WithdrawArgsLen bytes long.
func DecodeWithdrawArgs(data []byte) (WithdrawArgs, error) {
	var a WithdrawArgs
	return a, decodeExact(data, WithdrawArgsLen, &a)
}

func instructionData(i Instruction, args io.Serializable) []byte {
	w := io.NewBufBinWriter()
	w.WriteB(byte(i))
	args.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

func decodeExact(data []byte, size int, v io.Serializable) error {
	if len(data) != size {
		return fmt.Errorf("%w: data length %d, expected %d", ErrMalformedInput, len(data), size)
	}

	r := io.NewBinReaderFromBuf(data)
	v.DecodeBinary(r)
	if r.Err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedInput, r.Err)
	}

	return nil
}
