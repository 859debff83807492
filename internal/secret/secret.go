// Package secret stores the RPC bearer token. The OS keyring is tried
// first; when it is unavailable the token lives in a 0600 file next to
// the config.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

const (
	tokenFileName = "rpc.token"
	tokenFileMode = 0600
	tokenBytes    = 32
)

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
)

// Store resolves the RPC token.
type Store struct {
	AppName  string
	KeyField string
	// Fs and Dir locate the fallback token file.
	Fs  afero.Fs
	Dir string
}

func NewStore(afs afero.Fs, dir string) *Store {
	return &Store{
		AppName:  "rewind",
		KeyField: "rpc-token",
		Fs:       afs,
		Dir:      dir,
	}
}

func (s *Store) tokenPath() string {
	return filepath.Join(s.Dir, tokenFileName)
}

// Token returns the stored token, generating and saving one on first use.
func (s *Store) Token() (string, error) {
	tok, err := keyringGet(s.AppName, s.KeyField)
	if err == nil && tok != "" {
		return tok, nil
	}
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		tok, err = generate()
		if err != nil {
			return "", err
		}
		if err := keyringSet(s.AppName, s.KeyField, tok); err == nil {
			return tok, nil
		}
		return s.fileToken(tok)
	}
	return s.fileToken("")
}

// fileToken reads the fallback file, writing fresh when it is missing.
// An empty fresh generates a new token.
func (s *Store) fileToken(fresh string) (string, error) {
	data, err := afero.ReadFile(s.Fs, s.tokenPath())
	if err == nil {
		tok := strings.TrimSpace(string(data))
		if tok != "" {
			return tok, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read token: %w", err)
	}
	if fresh == "" {
		if fresh, err = generate(); err != nil {
			return "", err
		}
	}
	if err := s.Fs.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := afero.WriteFile(s.Fs, s.tokenPath(), []byte(fresh), tokenFileMode); err != nil {
		return "", fmt.Errorf("write token: %w", err)
	}
	return fresh, nil
}

// Rotate replaces the token with a new one and returns it.
func (s *Store) Rotate() (string, error) {
	tok, err := generate()
	if err != nil {
		return "", err
	}
	if err := keyringSet(s.AppName, s.KeyField, tok); err == nil {
		_ = s.Fs.Remove(s.tokenPath())
		return tok, nil
	}
	_ = s.Fs.Remove(s.tokenPath())
	return s.fileToken(tok)
}

// Delete removes the token from both the keyring and the fallback file.
func (s *Store) Delete() error {
	kerr := keyringDelete(s.AppName, s.KeyField)
	ferr := s.Fs.Remove(s.tokenPath())
	if errors.Is(kerr, keyring.ErrNotFound) {
		kerr = nil
	}
	if errors.Is(ferr, fs.ErrNotExist) {
		ferr = nil
	}
	return errors.Join(kerr, ferr)
}

func generate() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
