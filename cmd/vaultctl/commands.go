package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neofs-vault/common"
	"github.com/nspcc-dev/neofs-vault/config"
	"github.com/nspcc-dev/neofs-vault/deploy"
	"github.com/nspcc-dev/neofs-vault/dump"
	"github.com/nspcc-dev/neofs-vault/host"
	"github.com/nspcc-dev/neofs-vault/ledger"
	rpcvault "github.com/nspcc-dev/neofs-vault/rpc/vault"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var (
	keyFlag = cli.StringFlag{
		Name:  "key, k",
		Usage: "path to the private key file",
	}
	identityFlag = cli.StringFlag{
		Name:  "identity, i",
		Usage: "base58 address of the vault owner (alternative to --key)",
	}
	amountFlag = cli.Uint64Flag{
		Name:  "amount, a",
		Usage: "amount in lamports",
	}
)

// node is an opened ledger with the registered Vault program.
type node struct {
	cfg    config.Config
	log    *zap.Logger
	ledger *ledger.Ledger
}

func openNode(ctx context.Context, c *cli.Context) (*node, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	log, err := cfg.Logger.Build()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := storage.NewStore(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Type, err)
	}

	l, err := ledger.New(store, ledger.WithLogger(log), ledger.WithRent(cfg.Rent.HostRent()))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	_, err = deploy.Vault(ctx, deploy.Prm{
		Logger:    log,
		Ledger:    l,
		ProgramID: cfg.ProgramID,
	})
	if err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("deploy Vault program: %w", err)
	}

	return &node{cfg: cfg, log: log, ledger: l}, nil
}

func (n *node) close() {
	if err := n.ledger.Close(); err != nil {
		n.log.Warn("failed to close ledger", zap.Error(err))
	}
	_ = n.log.Sync()
}

// withNode opens the node for the duration of the action.
func withNode(ctx context.Context, f func(*cli.Context, *node) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		n, err := openNode(ctx, c)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer n.close()

		if err = f(c, n); err != nil {
			return cli.NewExitError(err, 1)
		}
		return nil
	}
}

func newCommands(ctx context.Context) []cli.Command {
	return []cli.Command{
		{
			Name:  "keygen",
			Usage: "Generate new identity key",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out, o", Usage: "path to the new key file"},
			},
			Action: keygen,
		},
		{
			Name:   "airdrop",
			Usage:  "Mint lamports to the account",
			Flags:  []cli.Flag{cli.StringFlag{Name: "to", Usage: "base58 address of the receiver"}, amountFlag},
			Action: withNode(ctx, airdrop),
		},
		{
			Name:   "addresses",
			Usage:  "Print vault accounts of the identity",
			Flags:  []cli.Flag{keyFlag, identityFlag},
			Action: withNode(ctx, addresses),
		},
		{
			Name:   "deposit",
			Usage:  "Deposit lamports into the vault",
			Flags:  []cli.Flag{keyFlag, amountFlag},
			Action: withNode(ctx, transact(ctx, (*rpcvault.Contract).Deposit)),
		},
		{
			Name:   "withdraw",
			Usage:  "Withdraw lamports from the vault",
			Flags:  []cli.Flag{keyFlag, amountFlag},
			Action: withNode(ctx, transact(ctx, (*rpcvault.Contract).Withdraw)),
		},
		{
			Name:   "balance",
			Usage:  "Print balance of the account",
			Flags:  []cli.Flag{cli.StringFlag{Name: "address", Usage: "base58 address of the account"}},
			Action: withNode(ctx, balance),
		},
		{
			Name:   "dump",
			Usage:  "Dump all ledger accounts into the directory",
			Flags:  []cli.Flag{cli.StringFlag{Name: "dir, d", Value: "."}, cli.StringFlag{Name: "label, l", Value: "local"}},
			Action: withNode(ctx, dumpAccounts),
		},
		{
			Name:   "dumps",
			Usage:  "List dumps stored in the directory",
			Flags:  []cli.Flag{cli.StringFlag{Name: "dir, d", Value: "."}},
			Action: listDumps,
		},
		{
			Name:   "version",
			Usage:  "Print versions of the tool and the registered program",
			Action: withNode(ctx, version),
		},
	}
}

func keygen(c *cli.Context) error {
	out := c.String("out")
	if out == "" {
		return cli.NewExitError("missing --out", 1)
	}

	_, key, err := ed25519.GenerateKey(nil)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if err = writeKey(out, key); err != nil {
		return cli.NewExitError(err, 1)
	}

	fmt.Fprintln(c.App.Writer, publicKey(key))
	return nil
}

func airdrop(c *cli.Context, n *node) error {
	to, err := host.ParsePubkey(c.String("to"))
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	if err = n.ledger.Airdrop(to, c.Uint64("amount")); err != nil {
		return err
	}

	b, err := n.ledger.Balance(to)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s: %d\n", to, b)
	return nil
}

// identity returns the identity given by --identity or --key.
func identity(c *cli.Context) (host.Pubkey, error) {
	if s := c.String("identity"); s != "" {
		return host.ParsePubkey(s)
	}

	path := c.String("key")
	if path == "" {
		return host.Pubkey{}, errors.New("either --identity or --key is required")
	}

	key, err := readKey(path)
	if err != nil {
		return host.Pubkey{}, err
	}

	return publicKey(key), nil
}

func addresses(c *cli.Context, n *node) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	r := rpcvault.NewReader(n.ledger, n.cfg.ProgramID)

	a, err := r.Addresses(id)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "program:  %s\n", n.cfg.ProgramID)
	fmt.Fprintf(w, "identity: %s\n", id)
	fmt.Fprintf(w, "state:    %s (bump %d)\n", a.State, a.StateBump)
	fmt.Fprintf(w, "vault:    %s (bump %d)\n", a.Vault, a.VaultBump)

	_, err = r.State(id)
	switch {
	case errors.Is(err, rpcvault.ErrNotInitialized):
		fmt.Fprintln(w, "status:   not initialized")
	case err != nil:
		return err
	default:
		b, err := r.VaultBalance(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "status:   open, %d lamports\n", b)
	}

	return nil
}

type vaultOp func(*rpcvault.Contract, context.Context, uint64) (*ledger.Receipt, error)

func transact(ctx context.Context, op vaultOp) func(*cli.Context, *node) error {
	return func(c *cli.Context, n *node) error {
		key, err := readKey(c.String("key"))
		if err != nil {
			return err
		}

		vc := rpcvault.New(n.ledger, n.cfg.ProgramID, key)

		rcpt, err := op(vc, ctx, c.Uint64("amount"))
		if rcpt != nil {
			printLogs(c.App.Writer, rcpt.Logs)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "transaction %s applied at slot %d\n", rcpt.Hash.StringLE(), rcpt.Slot)

		b, err := vc.VaultBalance(vc.Identity())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "vault balance: %d\n", b)

		return nil
	}
}

func printLogs(w io.Writer, logs []string) {
	for _, l := range logs {
		fmt.Fprintln(w, "  log:", l)
	}
}

func balance(c *cli.Context, n *node) error {
	addr, err := host.ParsePubkey(c.String("address"))
	if err != nil {
		return fmt.Errorf("invalid --address: %w", err)
	}

	b, err := n.ledger.Balance(addr)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, b)
	return nil
}

func dumpAccounts(c *cli.Context, n *node) error {
	dir := c.String("dir")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}

	sum, err := dump.Accounts(dir, dump.ID{Label: c.String("label"), Slot: n.ledger.Slot()}, n.ledger)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "dumped %d accounts holding %s lamports at slot %d to '%s'\n",
		sum.Accounts, sum.Lamports, sum.Slot, dir)
	return nil
}

func listDumps(c *cli.Context) error {
	err := dump.IterateDumps(c.String("dir"), func(id dump.ID, r *dump.Reader) {
		s := r.Summary()
		fmt.Fprintf(c.App.Writer, "%s: %d accounts, %s lamports, %d programs\n",
			id, s.Accounts, s.Lamports, len(s.Programs))
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func version(c *cli.Context, n *node) error {
	data, err := n.ledger.ProgramData(n.cfg.ProgramID)
	if err != nil {
		return err
	}

	v, err := common.DecodeVersion(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "vaultctl %s, program %s at %s\n",
		common.VersionString(common.Version), common.VersionString(v), n.cfg.ProgramID)
	return nil
}
