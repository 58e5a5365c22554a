package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neofs-vault/common"
	"github.com/nspcc-dev/neofs-vault/contracts/vault"
	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/nspcc-dev/neofs-vault/ledger"
	"go.uber.org/zap"
)

// Ledger groups services provided by the ledger that are required for
// program deployment.
type Ledger interface {
	// AddProgram makes the program executable under the given address and
	// stores data in the program account.
	AddProgram(id host.Pubkey, p host.Program, data []byte) error

	// ProgramData returns data of the program account. ProgramData returns
	// ledger.ErrAccountNotFound if the account is missing and
	// ledger.ErrUnknownProgram if the account is not a program.
	ProgramData(id host.Pubkey) ([]byte, error)
}

// Prm groups all parameters of the Vault program deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Ledger to deploy the program to.
	Ledger Ledger

	// Address the program is registered under.
	ProgramID host.Pubkey
}

// Vault registers the Vault program in the ledger and returns it.
//
// Program account data holds the version of the program. If the program is
// already registered with the current version, it is attached as is. Older
// registrations are updated if they can be updated from, see
// [common.CheckVersion].
func Vault(ctx context.Context, prm Prm) (*vault.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}

	if prm.ProgramID.IsZero() {
		return nil, errors.New("missing program address")
	}

	log := prm.Logger.With(zap.Stringer("address", prm.ProgramID))
	c := vault.New(vault.Config{ID: prm.ProgramID})

	data, err := prm.Ledger.ProgramData(prm.ProgramID)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		log.Info("Vault program is missing in the ledger, registering...")
	case err != nil:
		return nil, fmt.Errorf("read Vault program account: %w", err)
	default:
		onChain, err := common.DecodeVersion(data)
		if err != nil {
			return nil, fmt.Errorf("decode version of the registered Vault program: %w", err)
		}

		switch {
		case onChain == common.Version:
			log.Debug("Vault program is already of the latest version",
				zap.String("version", common.VersionString(onChain)))
		case onChain > common.Version:
			return nil, fmt.Errorf("%w: registered version %s is newer than %s", common.ErrVersionMismatch,
				common.VersionString(onChain), common.VersionString(common.Version))
		default:
			if err = common.CheckVersion(onChain); err != nil {
				return nil, fmt.Errorf("update Vault program: %w", err)
			}
			log.Info("updating Vault program...",
				zap.String("from", common.VersionString(onChain)),
				zap.String("to", common.VersionString(common.Version)))
		}
	}

	err = prm.Ledger.AddProgram(prm.ProgramID, c, common.EncodeVersion(common.Version))
	if err != nil {
		return nil, fmt.Errorf("register Vault program: %w", err)
	}

	log.Info("Vault program successfully synchronized", zap.String("version", common.VersionString(common.Version)))

	return c, nil
}
