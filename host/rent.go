package host

// AccountStorageOverhead is the number of bytes every account is charged for
// on top of its data.
const AccountStorageOverhead = 128

// Rent parameters of the ledger. Accounts holding at least MinimumBalance of
// their size are never reclaimed.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent returns rent parameters used when nothing else is configured.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionYears:      2,
	}
}

// MinimumBalance returns the minimum balance an account with dataLen bytes
// of data must hold.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionYears
}
