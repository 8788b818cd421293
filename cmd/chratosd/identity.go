package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chratos-network/chratos/account"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// identityFileName is where a node's signing seed lives under its
// datadir, following the teacher's single-file-per-key idiom
// (src/cmd/babble/commands/keygen.go's priv_key file).
const identityFileName = "identity.key"

func identityPath(datadir string) string {
	return filepath.Join(datadir, identityFileName)
}

// loadIdentity reads the seed file under datadir and derives its key
// pair, returning (nil, nil) if no identity has been generated yet: a
// node started without one runs non-voting (spec.md §4.6's self-vote
// path is skipped for nodes with no configured identity).
func loadIdentity(datadir string) (*crypto.KeyPair, error) {
	raw, err := os.ReadFile(identityPath(datadir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var seed numeric.Uint256
	if len(raw) != len(seed) {
		return nil, fmt.Errorf("identity file %s is corrupt: want %d bytes, got %d", identityPath(datadir), len(seed), len(raw))
	}
	copy(seed[:], raw)
	return crypto.KeyPairFromSeed(seed)
}

// NewKeygenCmd produces the keygen command, which refuses to overwrite an
// existing identity file (matching the teacher's keygen guard against
// clobbering an existing priv_key).
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new signing identity",
		RunE:  keygen,
	}
	return cmd
}

func keygen(cmd *cobra.Command, args []string) error {
	path := identityPath(*datadir)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("an identity already lives at %s", path)
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	if err := os.MkdirAll(*datadir, 0700); err != nil {
		return fmt.Errorf("create datadir: %w", err)
	}
	if err := os.WriteFile(path, kp.Private.Seed(), 0600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}

	fmt.Printf("Identity saved to: %s\n", path)
	fmt.Printf("Account: %s\n", account.Encode(kp.Public))
	return nil
}
