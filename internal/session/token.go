package session

import (
	"fmt"
	"os"
	"strings"
)

// Token is the opaque bearer credential for a session. Its presence gates
// connection establishment; it is issued elsewhere and consumed here as-is.
type Token string

// LoadToken reads the bearer credential for a session. Returns an error if
// the session has no credential yet.
func LoadToken(name string) (Token, error) {
	data, err := os.ReadFile(TokenPath(name))
	if err != nil {
		return "", fmt.Errorf("read session credential: %w", err)
	}
	tok := Token(strings.TrimSpace(string(data)))
	if tok == "" {
		return "", fmt.Errorf("session %q has an empty credential", name)
	}
	return tok, nil
}

// SaveToken writes the bearer credential for a session with 0600 perms.
func SaveToken(name string, tok Token) error {
	if err := EnsureDir(name); err != nil {
		return err
	}
	return os.WriteFile(TokenPath(name), []byte(string(tok)+"\n"), 0600)
}

// ClearToken removes the stored credential, ending the session locally.
func ClearToken(name string) error {
	err := os.Remove(TokenPath(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
