package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flynn/noise"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the iteration count for passphrase stretching.
	PBKDF2Iterations = 100000
	// EncryptionVersion is the current on-disk record version.
	EncryptionVersion = 2
	// SaltSize is the size of the PBKDF2 salt.
	SaltSize = 32

	saltFileName   = ".salt"
	recordOverhead = 2 + AESGCMNonceSize + AESGCMTagSize
)

// ErrKeyStoreLocked indicates that a record could not be authenticated with
// the store's passphrase, either because it is wrong or the file is corrupt.
var ErrKeyStoreLocked = errors.New("key store record failed authentication")

// EncryptedKeyStore keeps small secrets, such as a node's static P-384
// private key, in a directory with AES-256-GCM encryption at rest. The key is
// derived from a passphrase with PBKDF2-SHA512 and a per-directory salt.
//
// Record format: [version:2][nonce:16][ciphertext+tag].
type EncryptedKeyStore struct {
	encryptionKey [AESKeySize]byte
	dataDir       string
}

// NewEncryptedKeyStore opens or initialises a key store in dataDir. The
// passphrase slice is wiped before returning.
func NewEncryptedKeyStore(dataDir string, passphrase []byte) (*EncryptedKeyStore, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	defer ZeroBytes(passphrase)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	ks := &EncryptedKeyStore{dataDir: dataDir}
	salt, err := ks.loadOrGenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize salt: %w", err)
	}

	derived := pbkdf2.Key(passphrase, salt, PBKDF2Iterations, AESKeySize, sha512.New)
	copy(ks.encryptionKey[:], derived)
	ZeroBytes(derived)

	NewLogger("NewEncryptedKeyStore").WithField("dir", dataDir).Debug("Key store opened")
	return ks, nil
}

func (ks *EncryptedKeyStore) loadOrGenerateSalt() ([]byte, error) {
	path := filepath.Join(ks.dataDir, saltFileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != SaltSize {
			return nil, fmt.Errorf("invalid salt file size: got %d, want %d", len(data), SaltSize)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read salt file: %w", err)
	}

	salt, err := SecureRandom(rand.Reader, SaltSize)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}

// WriteEncrypted seals plaintext and atomically replaces filename. The file
// name is bound into the record as associated data so records cannot be
// swapped between names.
func (ks *EncryptedKeyStore) WriteEncrypted(filename string, plaintext []byte) error {
	gcm, err := NewAESGCM(ks.encryptionKey[:])
	if err != nil {
		return err
	}

	output := make([]byte, 2+AESGCMNonceSize, recordOverhead+len(plaintext))
	binary.BigEndian.PutUint16(output[0:2], EncryptionVersion)
	nonce := output[2 : 2+AESGCMNonceSize]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	output = gcm.Seal(output, nonce, plaintext, []byte(filename))

	tmpFile := filepath.Join(ks.dataDir, filename+".tmp")
	finalFile := filepath.Join(ks.dataDir, filename)
	if err := os.WriteFile(tmpFile, output, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpFile, finalFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// ReadEncrypted opens a record written by WriteEncrypted.
func (ks *EncryptedKeyStore) ReadEncrypted(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(ks.dataDir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) < recordOverhead {
		return nil, fmt.Errorf("file too short: %d bytes (minimum %d bytes)", len(data), recordOverhead)
	}
	if version := binary.BigEndian.Uint16(data[0:2]); version != EncryptionVersion {
		return nil, fmt.Errorf("unsupported encryption version: %d (expected %d)", version, EncryptionVersion)
	}

	gcm, err := NewAESGCM(ks.encryptionKey[:])
	if err != nil {
		return nil, err
	}
	nonce := data[2 : 2+AESGCMNonceSize]
	plaintext, err := gcm.Open(nil, nonce, data[2+AESGCMNonceSize:], []byte(filename))
	if err != nil {
		NewLogger("ReadEncrypted").WithField("file", filename).Warn("Key store record rejected")
		return nil, ErrKeyStoreLocked
	}
	return plaintext, nil
}

// Exists reports whether a record named filename is present.
func (ks *EncryptedKeyStore) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(ks.dataDir, filename))
	return err == nil
}

// DeleteEncrypted overwrites a record with zeros and removes it. Deleting a
// missing record is not an error.
func (ks *EncryptedKeyStore) DeleteEncrypted(filename string) error {
	path := filepath.Join(ks.dataDir, filename)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	_ = os.WriteFile(path, make([]byte, info.Size()), 0o600)
	return os.Remove(path)
}

// SaveStaticKey stores the private half of a P-384 static key pair.
func (ks *EncryptedKeyStore) SaveStaticKey(name string, kp noise.DHKey) error {
	if len(kp.Private) != P384PrivateKeySize {
		return ErrInvalidPrivateKey
	}
	return ks.WriteEncrypted(name, kp.Private)
}

// LoadStaticKey loads a key pair stored by SaveStaticKey and recomputes its
// public half.
func (ks *EncryptedKeyStore) LoadStaticKey(name string) (noise.DHKey, error) {
	secret, err := ks.ReadEncrypted(name)
	if err != nil {
		return noise.DHKey{}, err
	}
	defer ZeroBytes(secret)
	return FromSecretKey(secret)
}

// Close wipes the derived key. The store must not be used afterwards.
func (ks *EncryptedKeyStore) Close() error {
	ZeroBytes(ks.encryptionKey[:])
	return nil
}
