package session

import (
	"os"

	"github.com/ignaciov/matechat/internal/config"
)

// DefaultSessionName is used when nothing else names a session.
const DefaultSessionName = "main"

// EnvSessionName overrides the config default when set, so scripts can pin
// a session without editing config.toml.
const EnvSessionName = "MATECHAT_SESSION"

// Resolve picks the active session name. The --session flag wins, then the
// environment, then default_session from config.toml, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if env := os.Getenv(EnvSessionName); env != "" {
		return env
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
