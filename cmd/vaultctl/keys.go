package main

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neofs-vault/host"
)

// writeKey stores base58-encoded private key into a new file.
func writeKey(path string, key ed25519.PrivateKey) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}

	_, err = f.WriteString(base58.Encode(key) + "\n")
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("write key file: %w", err)
	}

	return f.Close()
}

// readKey reads private key written by writeKey.
func readKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	b, err := base58.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}

	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key length %d", len(b))
	}

	return ed25519.PrivateKey(b), nil
}

func publicKey(key ed25519.PrivateKey) host.Pubkey {
	var res host.Pubkey
	copy(res[:], key.Public().(ed25519.PublicKey))
	return res
}
