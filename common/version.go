package common

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
)

const (
	major = 0
	minor = 2
	patch = 0

	// Versions from which an update should be performed.
	// These should be used in a group (so prevMinor can be equal to minor if there are
	// any migration routines.
	prevMajor = 0
	prevMinor = 1
	prevPatch = 0

	Version = major*1_000_000 + minor*1_000 + patch

	PrevVersion = prevMajor*1_000_000 + prevMinor*1_000 + prevPatch

	// VersionLen is the size of the encoded version.
	VersionLen = 4
)

var (
	// ErrVersionMismatch is returned by CheckVersion in case of error.
	ErrVersionMismatch = errors.New("previous version mismatch")

	// ErrAlreadyUpdated is returned by CheckVersion if current version equals to
	// version program is being updated from.
	ErrAlreadyUpdated = errors.New("program is already of the latest version")
)

// CheckVersion checks that previous version is more than PrevVersion to ensure migrating program data
// was done successfully.
func CheckVersion(from int) error {
	if from < PrevVersion {
		return fmt.Errorf("%w: expected >=%d, got %d", ErrVersionMismatch, PrevVersion, from)
	}
	if from == Version {
		return fmt.Errorf("%w: %d", ErrAlreadyUpdated, Version)
	}
	return nil
}

// VersionString returns human-readable form of the version.
func VersionString(v int) string {
	return fmt.Sprintf("%d.%d.%d", v/1_000_000, v/1_000%1_000, v%1_000)
}

// EncodeVersion returns program account data carrying the version.
func EncodeVersion(v int) []byte {
	w := io.NewBufBinWriter()
	w.WriteU32LE(uint32(v))
	return w.Bytes()
}

// DecodeVersion reads version from the program account data.
func DecodeVersion(data []byte) (int, error) {
	if len(data) != VersionLen {
		return 0, fmt.Errorf("invalid version data length %d", len(data))
	}

	r := io.NewBinReaderFromBuf(data)
	v := r.ReadU32LE()
	if r.Err != nil {
		return 0, r.Err
	}

	return int(v), nil
}
