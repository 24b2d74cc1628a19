package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names inside a circuit directory.
const (
	ProvingKeyFile      = "proving.key"
	VerificationKeyFile = "verification.key"
	CircuitProgramFile  = "circuit.cs"
	ManifestFile        = "manifest.json"
)

// Bundle holds the artifact bytes for one circuit.
type Bundle struct {
	ProvingKey      []byte
	VerificationKey []byte
	CircuitProgram  []byte
}

// Store is a filesystem-backed artifact store, one subdirectory per circuit.
type Store struct {
	Directory string
}

func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "jwz", "circuits"), nil
}

func New(directory string) (*Store, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &Store{Directory: directory}, nil
}

// CheckCircuitID restricts circuit IDs to a conservative character set so
// they are safe as directory names.
func CheckCircuitID(circuitID string) error {
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

func (s *Store) circuitDir(circuitID string) string {
	return filepath.Join(s.Directory, circuitID)
}

// Save writes the bundle and a fresh unsigned manifest. The proving key is
// written owner-only; existing artifacts are overwritten.
func (s *Store) Save(circuitID string, b *Bundle) error {
	if err := CheckCircuitID(circuitID); err != nil {
		return err
	}
	if b == nil {
		return errors.New("nil bundle")
	}
	dir := s.circuitDir(circuitID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ProvingKeyFile), b.ProvingKey, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, VerificationKeyFile), b.VerificationKey, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, CircuitProgramFile), b.CircuitProgram, 0o644); err != nil {
		return err
	}

	m := NewManifest(circuitID, b)
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}

// Load reads the bundle for circuitID and verifies every file against the
// manifest digests. A missing or mismatching digest fails the load.
func (s *Store) Load(circuitID string) (*Bundle, error) {
	m, b, err := s.load(circuitID)
	if err != nil {
		return nil, err
	}
	if err := m.CheckBundle(circuitID, b); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadVerified is Load plus a manifest signature check against the trusted
// signer key (an "alg:base64" encoded public key, see manifest.go).
func (s *Store) LoadVerified(circuitID, trustedSignerKey string) (*Bundle, error) {
	m, b, err := s.load(circuitID)
	if err != nil {
		return nil, err
	}
	if err := m.VerifySignature(trustedSignerKey); err != nil {
		return nil, err
	}
	if err := m.CheckBundle(circuitID, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Manifest returns the stored manifest for circuitID.
func (s *Store) Manifest(circuitID string) (*Manifest, error) {
	if err := CheckCircuitID(circuitID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.circuitDir(circuitID), ManifestFile))
	if err != nil {
		return nil, err
	}
	return DecodeManifest(data)
}

// WriteManifest replaces the stored manifest, e.g. after signing it.
func (s *Store) WriteManifest(circuitID string, m *Manifest) error {
	if err := CheckCircuitID(circuitID); err != nil {
		return err
	}
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.circuitDir(circuitID), ManifestFile), data, 0o644)
}

func (s *Store) load(circuitID string) (*Manifest, *Bundle, error) {
	if err := CheckCircuitID(circuitID); err != nil {
		return nil, nil, err
	}
	dir := s.circuitDir(circuitID)

	m, err := s.Manifest(circuitID)
	if err != nil {
		return nil, nil, err
	}

	var b Bundle
	if b.ProvingKey, err = os.ReadFile(filepath.Join(dir, ProvingKeyFile)); err != nil {
		return nil, nil, err
	}
	if b.VerificationKey, err = os.ReadFile(filepath.Join(dir, VerificationKeyFile)); err != nil {
		return nil, nil, err
	}
	if b.CircuitProgram, err = os.ReadFile(filepath.Join(dir, CircuitProgramFile)); err != nil {
		return nil, nil, err
	}
	return m, &b, nil
}
