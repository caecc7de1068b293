package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "token")

	if err := os.WriteFile(path, []byte("bearer-abc123\n"), 0600); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "bearer-abc123\n" {
		t.Errorf("token file = %q, want bearer-abc123\\n", string(data))
	}
}

func TestLoadTokenMissing(t *testing.T) {
	_, err := LoadToken("no-such-session-for-tests")
	if err == nil {
		t.Error("LoadToken() expected error for missing credential")
	}
}
