/*
Package config provides configuration of the vault node.

Configuration is read from YAML files using neo-go style keys:

	ProgramID: 11111111111111111111111111111112
	Rent:
	  LamportsPerByteYear: 3480
	  ExemptionYears: 2
	DB:
	  Type: leveldb
	  LevelDBOptions:
	    DataDirectoryPath: ./data
	Logger:
	  Level: info
	  Encoding: console

Omitted fields are taken from Default.
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neofs-vault/host"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultProgramID is the address of the Vault program if nothing else is
// configured.
var DefaultProgramID = host.Pubkey(hash.Sha256([]byte("neofs-vault program")))

// Config is the root of the configuration.
type Config struct {
	ProgramID host.Pubkey              `yaml:"ProgramID"`
	Rent      Rent                     `yaml:"Rent"`
	DB        dbconfig.DBConfiguration `yaml:"DB"`
	Logger    Logger                   `yaml:"Logger"`
}

// Rent configures rent parameters of the ledger.
type Rent struct {
	LamportsPerByteYear uint64 `yaml:"LamportsPerByteYear"`
	ExemptionYears      uint64 `yaml:"ExemptionYears"`
}

// Logger configures logging.
type Logger struct {
	Level    string `yaml:"Level"`
	Encoding string `yaml:"Encoding"`
}

// Default returns configuration with an in-memory ledger.
func Default() Config {
	r := host.DefaultRent()

	return Config{
		ProgramID: DefaultProgramID,
		Rent: Rent{
			LamportsPerByteYear: r.LamportsPerByteYear,
			ExemptionYears:      r.ExemptionYears,
		},
		DB: dbconfig.DBConfiguration{
			Type: dbconfig.InMemoryDB,
		},
		Logger: Logger{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads configuration file. Empty path means Default.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration over Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if c.ProgramID.IsZero() {
		return errors.New("ProgramID: must not be the system program")
	}

	if c.Rent.LamportsPerByteYear == 0 || c.Rent.ExemptionYears == 0 {
		return errors.New("Rent: zero parameters make every account reclaimable")
	}

	switch c.DB.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.LevelDB:
		if c.DB.LevelDBOptions.DataDirectoryPath == "" {
			return errors.New("DB: missing LevelDBOptions.DataDirectoryPath")
		}
	case dbconfig.BoltDB:
		if c.DB.BoltDBOptions.FilePath == "" {
			return errors.New("DB: missing BoltDBOptions.FilePath")
		}
	default:
		return fmt.Errorf("DB: unsupported type %q", c.DB.Type)
	}

	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("Logger: %w", err)
	}

	switch c.Logger.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("Logger: unsupported encoding %q", c.Logger.Encoding)
	}

	return nil
}

// HostRent returns rent parameters of the ledger.
func (r Rent) HostRent() host.Rent {
	return host.Rent{
		LamportsPerByteYear: r.LamportsPerByteYear,
		ExemptionYears:      r.ExemptionYears,
	}
}

// Build constructs the logger. Messages are written to stderr.
func (l Logger) Build() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = l.Encoding
	cfg.Sampling = nil
	if l.Encoding == "console" {
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	return cfg.Build()
}
