package dump

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neofs-vault/host"
)

// ID is a unique identifier of the dump prepared according to the model
// described in the current package.
type ID struct {
	// Label of the dump source (e.g. devnet, local). Must not contain '-'.
	Label string
	// Ledger slot at which the state was pulled.
	Slot uint64
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatUint(x.Slot, 10)
}

// decodes ID fields from the hyphen-separated string.
func (x *ID) decodeString(s string) error {
	ss := strings.Split(s, sep)
	if len(ss) < 2 {
		return fmt.Errorf("expected '%s'-separated string with at least 2 items", sep)
	}

	n, err := strconv.ParseUint(ss[1], 10, 64)
	if err != nil {
		return fmt.Errorf("decode slot number from '%s': %w", ss[1], err)
	}

	x.Label = ss[0]
	x.Slot = n

	return nil
}

// Summary is a JSON-encoded information about the dumped ledger.
type Summary struct {
	Label    string        `json:"label"`
	Slot     uint64        `json:"slot"`
	Accounts int           `json:"accounts"`
	Lamports *big.Int      `json:"lamports"`
	Programs []host.Pubkey `json:"programs"`
}

// global encoding of binary values.
var _encoding = base64.StdEncoding

// dumpStreams groups data streams for the summary and accounts.
type dumpStreams struct {
	summary, accounts io.ReadWriteCloser
}

// close closes all streams.
func (x *dumpStreams) close() {
	_ = x.accounts.Close()
	_ = x.summary.Close()
}

const (
	// word separator used in dump file naming
	sep = "-"
	// suffix of file with the summary
	summaryFileSuffix = "summary.json"
	// suffix of file with accounts
	accountsFileSuffix = "accounts.csv"
	// number of CSV fields per account
	accountFields = 5
)

// initDumpStreams opens data streams for the dump files located in the
// specified directory. If read flag is set, streams are read-only. Otherwise,
// files must not exist, and streams are write only.
func initDumpStreams(d *dumpStreams, dir string, id ID, read bool) error {
	var err error

	pathAccounts := filepath.Join(dir, strings.Join([]string{id.String(), accountsFileSuffix}, sep))
	pathSummary := filepath.Join(dir, strings.Join([]string{id.String(), summaryFileSuffix}, sep))

	if !read {
		for _, p := range []string{pathAccounts, pathSummary} {
			if err = checkFileNotExists(p); err != nil {
				return err
			}
		}
	}

	var flag int
	var perm os.FileMode

	if read {
		flag = os.O_RDONLY
	} else {
		flag = os.O_CREATE | os.O_WRONLY
		perm = 0600
	}

	d.accounts, err = os.OpenFile(pathAccounts, flag, perm)
	if err != nil {
		return fmt.Errorf("open file with accounts: %w", err)
	}

	d.summary, err = os.OpenFile(pathSummary, flag, perm)
	if err != nil {
		_ = d.accounts.Close()
		return fmt.Errorf("open file with summary: %w", err)
	}

	return nil
}

// checkFileNotExists checks that there is no file at the specified path.
func checkFileNotExists(p string) error {
	_, err := os.Stat(p)
	if !errors.Is(err, os.ErrNotExist) {
		if err == nil {
			err = os.ErrExist
		}
		return fmt.Errorf("file '%s' absence check failed: %w", p, err)
	}
	return nil
}
