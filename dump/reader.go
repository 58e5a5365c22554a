package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neofs-vault/host"
)

// IterateDumps iterates over all dumps collected by the Creator model in the
// specified directory, and passes ID and Reader of each dump into f. Files
// not looking like dump summaries are skipped.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	var id ID
	var r Reader
	var streams dumpStreams

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, e error) error {
		if errors.Is(e, fs.ErrNotExist) {
			return nil
		}
		if e != nil {
			return e
		}

		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(name, sep+summaryFileSuffix) {
			return nil
		}

		err := id.decodeString(name)
		if err != nil {
			return fmt.Errorf("decode dump ID from file name '%s': %w", name, err)
		}

		err = initDumpStreams(&streams, dir, id, true)
		if err != nil {
			return fmt.Errorf("init dump streams ('%s'): %w", name, err)
		}

		err = r.fromDumpStreams(streams.summary, streams.accounts)
		streams.close()
		if err != nil {
			return fmt.Errorf("init dump reader ('%s'): %w", name, err)
		}

		f(id, &r)

		return nil
	})
}

// Reader reads accounts collected in the superior dump.
type Reader struct {
	summary  Summary
	accounts []*host.Account
}

func (x *Reader) fromDumpStreams(rSummary, rAccounts io.Reader) error {
	x.summary = Summary{}
	x.accounts = x.accounts[:0]

	err := json.NewDecoder(rSummary).Decode(&x.summary)
	if err != nil {
		return fmt.Errorf("decode summary from JSON: %w", err)
	}

	_csv := csv.NewReader(rAccounts)
	_csv.FieldsPerRecord = accountFields
	_csv.ReuseRecord = true

	for {
		rec, err := _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		acc, err := decodeAccount(rec)
		if err != nil {
			return fmt.Errorf("decode account: %w", err)
		}

		x.accounts = append(x.accounts, acc)
	}
}

// out-of-range safety guaranteed by csv settings.
func decodeAccount(rec []string) (*host.Account, error) {
	var (
		acc host.Account
		err error
	)

	acc.Key, err = host.ParsePubkey(rec[0])
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}

	acc.Owner, err = host.ParsePubkey(rec[1])
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}

	acc.Lamports, err = strconv.ParseUint(rec[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("lamports: %w", err)
	}

	acc.Executable, err = strconv.ParseBool(rec[3])
	if err != nil {
		return nil, fmt.Errorf("executable flag: %w", err)
	}

	acc.Data, err = _encoding.DecodeString(rec[4])
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}

	return &acc, nil
}

// Summary returns summary of the superior dump.
func (x *Reader) Summary() Summary {
	return x.summary
}

// IterateAccounts iterates over all accounts from the superior dump and
// passes them into f.
func (x *Reader) IterateAccounts(f func(*host.Account)) {
	for i := range x.accounts {
		f(x.accounts[i])
	}
}
