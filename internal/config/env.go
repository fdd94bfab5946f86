package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; later files never override earlier ones,
// and the process environment always wins over both.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads dotenv files before the YAML is expanded so that
// ${VAR} references in the config resolve against them.
func loadEnvFiles() {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("failed to load env file", "file", f, "error", err)
		}
	}
}
