// Package file persists credentials in a single JSON document on disk, the way a
// browser keeps them in local storage. When a passphrase is configured the document
// body is sealed with NaCl secretbox under a scrypt-derived key.
package file

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

const (
	formatVersion = 1
	saltLen       = 16
	nonceLen      = 24
	keyLen        = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var ErrDecrypt = errors.New("credentials file: cannot decrypt (wrong passphrase?)")

type envelope struct {
	Version int               `json:"v"`
	Data    map[string]string `json:"data,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Nonce   []byte            `json:"nonce,omitempty"`
	Box     []byte            `json:"box,omitempty"`
}

type Store struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  *[keyLen]byte
}

func New(path, passphrase string) *Store {
	s := &Store{path: path}
	if passphrase != "" {
		s.passphrase = []byte(passphrase)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", auth.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(data)
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

func (s *Store) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	if env.Box == nil {
		if env.Data == nil {
			env.Data = map[string]string{}
		}
		return env.Data, nil
	}
	if s.passphrase == nil {
		return nil, ErrDecrypt
	}
	if len(env.Nonce) != nonceLen {
		return nil, fmt.Errorf("parse credentials file: bad nonce length %d", len(env.Nonce))
	}

	key, err := s.keyFor(env.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLen]byte
	copy(nonce[:], env.Nonce)
	plain, ok := secretbox.Open(nil, env.Box, &nonce, key)
	if !ok {
		return nil, ErrDecrypt
	}
	data := map[string]string{}
	if err := json.Unmarshal(plain, &data); err != nil {
		return nil, fmt.Errorf("parse credentials payload: %w", err)
	}
	return data, nil
}

func (s *Store) save(data map[string]string) error {
	env := envelope{Version: formatVersion}
	if s.passphrase == nil {
		env.Data = data
	} else {
		if s.key == nil {
			salt := make([]byte, saltLen)
			if _, err := rand.Read(salt); err != nil {
				return fmt.Errorf("generate salt: %w", err)
			}
			if _, err := s.keyFor(salt); err != nil {
				return err
			}
		}
		var nonce [nonceLen]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}
		plain, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal credentials: %w", err)
		}
		env.Salt = s.salt
		env.Nonce = nonce[:]
		env.Box = secretbox.Seal(nil, plain, &nonce, s.key)
	}

	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials file: %w", err)
	}
	return writeAtomic(s.path, out)
}

func (s *Store) keyFor(salt []byte) (*[keyLen]byte, error) {
	if s.key != nil && string(s.salt) == string(salt) {
		return s.key, nil
	}
	k, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [keyLen]byte
	copy(key[:], k)
	s.salt = append([]byte(nil), salt...)
	s.key = &key
	return s.key, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
