package session

import "fmt"

// MaxNameLength bounds session names. A name becomes a directory under the
// base dir, so it stays short and filesystem-safe.
const MaxNameLength = 32

// ValidateName checks that name is usable as a session directory name:
// lowercase letters, digits, hyphen or underscore, not starting with a
// separator, at most MaxNameLength bytes.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("session name is empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("session name %q exceeds %d characters", name, MaxNameLength)
	}
	if name[0] == '-' || name[0] == '_' {
		return fmt.Errorf("session name %q starts with a separator", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("session name %q contains %q; use lowercase letters, digits, '-' or '_'", name, r)
		}
	}
	return nil
}
