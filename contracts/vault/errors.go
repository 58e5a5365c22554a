package vault

import "errors"

var (
	// ErrAccountArity is returned when fewer accounts than required are passed.
	ErrAccountArity = errors.New("not enough account keys")

	// ErrAuthorization is returned on a missing signature or wrong account owner.
	ErrAuthorization = errors.New("authorization failed")

	// ErrMalformedInput is returned on instruction or account data of wrong shape.
	ErrMalformedInput = errors.New("malformed input")

	// ErrPolicyViolation is returned when the amount breaks vault rules.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrAddressDerivationMismatch is returned when an account address does not
	// match the address derived from its seeds.
	ErrAddressDerivationMismatch = errors.New("address derivation mismatch")
)
