package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nspcc-dev/neofs-vault/common"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func init() {
	cli.OsExiter = func(int) {}
}

type testCLI struct {
	t   *testing.T
	cfg string
}

func newTestCLI(t *testing.T) *testCLI {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yml")

	require.NoError(t, os.WriteFile(cfg, []byte(`
DB:
  Type: leveldb
  LevelDBOptions:
    DataDirectoryPath: `+filepath.Join(dir, "chain")+`
Logger:
  Level: error
`), 0o600))

	return &testCLI{t: t, cfg: cfg}
}

func (x *testCLI) run(args ...string) (string, error) {
	var buf bytes.Buffer

	app := newApp(context.Background())
	app.Writer = &buf
	app.ErrWriter = &buf

	err := app.Run(append([]string{"vaultctl", "--config", x.cfg}, args...))
	return buf.String(), err
}

func (x *testCLI) mustRun(args ...string) string {
	out, err := x.run(args...)
	require.NoError(x.t, err, out)
	return out
}

func TestVaultCommands(t *testing.T) {
	x := newTestCLI(t)
	keyPath := filepath.Join(t.TempDir(), "user.key")

	pub := strings.TrimSpace(x.mustRun("keygen", "--out", keyPath))
	require.NotEmpty(t, pub)

	_, err := x.run("keygen", "--out", keyPath)
	require.Error(t, err)

	out := x.mustRun("airdrop", "--to", pub, "--amount", "10000000000")
	require.Equal(t, pub+": 10000000000\n", out)

	out = x.mustRun("addresses", "--key", keyPath)
	require.Contains(t, out, "identity: "+pub)
	require.Contains(t, out, "not initialized")

	_, err = x.run("deposit", "--key", keyPath, "--amount", "1")
	require.Error(t, err)

	out = x.mustRun("deposit", "--key", keyPath, "--amount", "2000000000")
	require.Contains(t, out, "log: Vault state account initialized")
	require.Contains(t, out, "vault balance: 2000000000")

	out = x.mustRun("addresses", "--identity", pub)
	require.Contains(t, out, "status:   open, 2000000000 lamports")

	out = x.mustRun("withdraw", "--key", keyPath, "--amount", "2000000000")
	require.Contains(t, out, "log: SOL balance withdrawn from vault and closed accounts")
	require.Contains(t, out, "vault balance: 0")

	require.Equal(t, "10000000000\n", x.mustRun("balance", "--address", pub))

	dumpDir := filepath.Join(t.TempDir(), "dumps")
	out = x.mustRun("dump", "--dir", dumpDir, "--label", "test")
	require.Contains(t, out, "dumped 3 accounts")

	out = x.mustRun("dumps", "--dir", dumpDir)
	require.True(t, strings.HasPrefix(out, "test-"), out)
	require.Contains(t, out, "3 accounts")

	out = x.mustRun("version")
	require.Contains(t, out, "program "+common.VersionString(common.Version))
}

func TestInvalidArguments(t *testing.T) {
	x := newTestCLI(t)

	for _, args := range [][]string{
		{"keygen"},
		{"airdrop", "--to", "bad", "--amount", "1"},
		{"addresses"},
		{"deposit", "--key", filepath.Join(t.TempDir(), "missing.key"), "--amount", "1"},
		{"balance", "--address", ""},
	} {
		_, err := x.run(args...)
		require.Error(t, err, args)
	}

	err := newApp(context.Background()).Run([]string{"vaultctl", "--config", filepath.Join(t.TempDir(), "none.yml"), "version"})
	require.Error(t, err)
}
