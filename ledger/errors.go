package ledger

import "errors"

var (
	// ErrAccountNotFound is returned for accounts missing in the ledger.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnknownProgram is returned when an instruction targets an
	// unregistered program.
	ErrUnknownProgram = errors.New("unknown program")

	// ErrMissingSignature is returned when a required signature is absent.
	ErrMissingSignature = errors.New("missing required signature")

	// ErrInvalidSignature is returned when a signature doesn't verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrAlreadyProcessed is returned for transactions already applied.
	ErrAlreadyProcessed = errors.New("transaction already processed")

	// ErrInsufficientFunds is returned when the source can't cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientFundsForRent is returned when an account would be left
	// with a positive balance below its minimum balance.
	ErrInsufficientFundsForRent = errors.New("insufficient funds for rent")

	// ErrAccountInUse is returned when creating an account that already exists.
	ErrAccountInUse = errors.New("account already in use")

	// ErrInvalidAccountOwner is returned when an account has unexpected owner
	// or shape for the system operation.
	ErrInvalidAccountOwner = errors.New("invalid account owner")

	// ErrReadonlyModified is returned when a non-writable account was changed.
	ErrReadonlyModified = errors.New("read-only account modified")

	// ErrExternalDebit is returned when a program debits an account it
	// doesn't own.
	ErrExternalDebit = errors.New("program debited an account it does not own")

	// ErrExternalDataChange is returned when a program modifies data or owner
	// of an account it doesn't own.
	ErrExternalDataChange = errors.New("program modified an account it does not own")

	// ErrUnbalancedTransaction is returned when an instruction creates or
	// destroys value.
	ErrUnbalancedTransaction = errors.New("sum of account balances changed")

	// ErrArithmeticOverflow is returned when a balance would overflow.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)
