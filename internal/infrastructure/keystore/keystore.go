// Package keystore loads or generates the node's Ed25519 keypair from the
// NodePublic.txt/NodePrivate.txt Base58 files described in §6.
package keystore

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/ledgercore/node/pkg/types"
)

// ErrUserQuit is returned when the operator declines to generate a keypair.
var ErrUserQuit = errors.New("keystore: user declined key generation")

// KeyPair holds the node's identity.
type KeyPair struct {
	Public  types.PublicKey
	Private ed25519.PrivateKey
}

// Load reads the keypair from publicPath/privatePath, prompting the operator
// via prompt to generate a fresh pair when the files are absent or hold the
// wrong length payload.
func Load(publicPath, privatePath string, prompt io.Reader) (KeyPair, error) {
	pub, pubErr := readBase58(publicPath, types.PublicKeySize)
	priv, privErr := readBase58(privatePath, ed25519.PrivateKeySize)

	if pubErr == nil && privErr == nil {
		var pk types.PublicKey
		copy(pk[:], pub)
		return KeyPair{Public: pk, Private: ed25519.PrivateKey(priv)}, nil
	}

	answer, err := askGenerate(prompt)
	if err != nil {
		return KeyPair{}, err
	}
	if !answer {
		return KeyPair{}, ErrUserQuit
	}

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("keystore: generate key: %w", err)
	}
	if err := writeBase58(publicPath, pubKey); err != nil {
		return KeyPair{}, err
	}
	if err := writeBase58(privatePath, privKey); err != nil {
		return KeyPair{}, err
	}

	var pk types.PublicKey
	copy(pk[:], pubKey)
	return KeyPair{Public: pk, Private: privKey}, nil
}

func readBase58(path string, wantLen int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := base58.Decode(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, err
	}
	if len(decoded) != wantLen {
		return nil, fmt.Errorf("keystore: %s: expected %d bytes, got %d", path, wantLen, len(decoded))
	}
	return decoded, nil
}

func writeBase58(path string, data []byte) error {
	return os.WriteFile(path, []byte(base58.Encode(data)), 0o600)
}

// askGenerate prompts stdin for 'g' (generate) or 'q' (quit).
func askGenerate(prompt io.Reader) (bool, error) {
	fmt.Println("Node keys are missing or invalid. Enter 'g' to generate new keys, 'q' to quit:")
	scanner := bufio.NewScanner(prompt)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "g":
			return true, nil
		case "q":
			return false, nil
		}
		fmt.Println("Please enter 'g' or 'q':")
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, ErrUserQuit
}
