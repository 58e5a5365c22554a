package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neofs-vault/host"
)

// Creator dumps ledger accounts. Output file format:
//
//	'<label>-<slot>-summary.json': JSON object with Summary
//	'<label>-<slot>-accounts.csv': CSV of accounts
//
// Accounts CSV are 'key,owner,lamports,executable,data' where keys are
// base58-encoded and binary data is base64-encoded.
//
// Use IterateDumps to access existing dumps.
type Creator struct {
	dumpStreams

	summary Summary

	accountsCSV *csv.Writer
}

// NewCreator returns Creator which dumps accounts into given directory. The
// dump is identified by specified ID. Resulting Creator should be closed when
// finished working with it.
//
// NewCreator fails if dump with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	if id.Label == "" || strings.Contains(id.Label, sep) {
		return nil, fmt.Errorf("invalid dump label '%s'", id.Label)
	}

	var res Creator

	err := initDumpStreams(&res.dumpStreams, dir, id, false)
	if err != nil {
		return nil, err
	}

	res.accountsCSV = csv.NewWriter(res.dumpStreams.accounts)
	res.summary = Summary{
		Label:    id.Label,
		Slot:     id.Slot,
		Lamports: new(big.Int),
		Programs: []host.Pubkey{},
	}

	return &res, nil
}

// AddAccount adds given account to the resulting dump. After all needed
// accounts are added, they should be flushed via Flush method.
func (x *Creator) AddAccount(acc *host.Account) error {
	err := x.accountsCSV.Write([]string{
		acc.Key.String(),
		acc.Owner.String(),
		strconv.FormatUint(acc.Lamports, 10),
		strconv.FormatBool(acc.Executable),
		_encoding.EncodeToString(acc.Data),
	})
	if err != nil {
		return fmt.Errorf("write account as CSV data: %w", err)
	}

	x.summary.Accounts++
	x.summary.Lamports.Add(x.summary.Lamports, new(big.Int).SetUint64(acc.Lamports))
	if acc.Executable {
		x.summary.Programs = append(x.summary.Programs, acc.Key)
	}

	return nil
}

// Flush flushes accumulated dump to the file system.
func (x *Creator) Flush() error {
	jEnc := json.NewEncoder(x.dumpStreams.summary)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(x.summary)
	if err != nil {
		return fmt.Errorf("encode summary to JSON: %w", err)
	}

	x.accountsCSV.Flush()

	err = x.accountsCSV.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Creator and makes it unusable.
func (x *Creator) Close() {
	x.close()
}

// AccountSource is anything able to iterate over accounts.
type AccountSource interface {
	IterateAccounts(f func(*host.Account) bool) error
}

// Accounts dumps all accounts of src into a new dump in dir and flushes it.
func Accounts(dir string, id ID, src AccountSource) (Summary, error) {
	c, err := NewCreator(dir, id)
	if err != nil {
		return Summary{}, err
	}
	defer c.Close()

	var addErr error

	err = src.IterateAccounts(func(acc *host.Account) bool {
		addErr = c.AddAccount(acc)
		return addErr == nil
	})
	if err = errors.Join(err, addErr); err != nil {
		return Summary{}, fmt.Errorf("collect accounts: %w", err)
	}

	if err = c.Flush(); err != nil {
		return Summary{}, err
	}

	return c.summary, nil
}
