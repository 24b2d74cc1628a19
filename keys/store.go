package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SignerStore is a local filesystem store for manifest signer keys.
//
// Features:
// - Supports Ed25519 keys only
// - Stores seeds on the local filesystem, owner-readable
// - Derives deterministic per-circuit subkeys from a root key
//
// Publishers who sign with dilithium3 manage those keys themselves; the
// store holds ed25519 seeds only.
type SignerStore struct {
	Directory string
}

// Entry describes one stored signer and its per-circuit subkeys.
type Entry struct {
	Name     string
	Circuits []string
}

func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "jwz", "keys"), nil
}

func NewStore(directory string) (*SignerStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &SignerStore{Directory: directory}, nil
}

func (s *SignerStore) rootKeyPath(name string) string {
	return filepath.Join(s.Directory, name, "root.key")
}

func (s *SignerStore) circuitKeyPath(name, circuitID string) string {
	return filepath.Join(s.Directory, name, "circuits", circuitID+".key")
}

func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("signer name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in signer name", char)
	}
	return nil
}

func checkCircuit(circuitID string) error {
	if circuitID == "" {
		return errors.New("circuit ID cannot be empty")
	}
	if circuitID == "." || circuitID == ".." {
		return fmt.Errorf("invalid circuit ID %q", circuitID)
	}
	for _, char := range circuitID {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' || char == '.' {
			continue
		}
		return fmt.Errorf("invalid character %q in circuit ID", char)
	}
	return nil
}

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (s *SignerStore) saveSeedToFile(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (s *SignerStore) loadSeedFromFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitializeRootKey stores seed as the root key for name and returns the
// signer-key string and the file the seed was written to.
func (s *SignerStore) InitializeRootKey(name string, seed []byte, overwrite bool) (signerKey string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	filePath = s.rootKeyPath(name)
	if err := s.saveSeedToFile(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return SignerKeyFromSeed(seed), filePath, nil
}

// DeriveCircuitKey derives and stores the per-circuit subkey of name's root
// key for circuitID.
func (s *SignerStore) DeriveCircuitKey(name, circuitID string, overwrite bool) (signerKey string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	if err := checkCircuit(circuitID); err != nil {
		return "", "", err
	}
	rootSeed, err := s.loadSeedFromFile(s.rootKeyPath(name))
	if err != nil {
		return "", "", err
	}
	circuitSeed, err := DeriveCircuitSeed(rootSeed, circuitID)
	if err != nil {
		return "", "", err
	}
	filePath = s.circuitKeyPath(name, circuitID)
	if err := s.saveSeedToFile(filePath, circuitSeed, overwrite); err != nil {
		return "", "", err
	}
	return SignerKeyFromSeed(circuitSeed), filePath, nil
}

// PrivateKey loads the stored seed for name (or its per-circuit subkey when
// circuitID is non-empty) as an ed25519 private key.
func (s *SignerStore) PrivateKey(name, circuitID string) (ed25519.PrivateKey, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	var seed []byte
	var err error
	if circuitID == "" {
		seed, err = s.loadSeedFromFile(s.rootKeyPath(name))
	} else {
		if err := checkCircuit(circuitID); err != nil {
			return nil, err
		}
		seed, err = s.loadSeedFromFile(s.circuitKeyPath(name, circuitID))
	}
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// SignerKey returns the signer-key string for a stored key without exposing
// the seed.
func (s *SignerStore) SignerKey(name, circuitID string) (string, error) {
	priv, err := s.PrivateKey(name, circuitID)
	if err != nil {
		return "", err
	}
	return SignerKeyFromPublicKey(priv.Public().(ed25519.PublicKey))
}

// List returns the stored signers and their per-circuit subkeys, sorted.
func (s *SignerStore) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []Entry
	for _, name := range names {
		circuitsDir := filepath.Join(s.Directory, name, "circuits")
		circuitEntries, cerr := os.ReadDir(circuitsDir)
		var circuits []string
		if cerr == nil {
			for _, ce := range circuitEntries {
				if ce.IsDir() {
					continue
				}
				if strings.HasSuffix(ce.Name(), ".key") {
					circuits = append(circuits, strings.TrimSuffix(ce.Name(), ".key"))
				}
			}
			sort.Strings(circuits)
		}
		result = append(result, Entry{Name: name, Circuits: circuits})
	}
	return result, nil
}
