package utils

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ridoystarlord/rapidgen/logger"
)

// LoadEnv loads .env from the working directory when there is one.
// Variables already set in the environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, continuing")
	}
}

// GetDatabaseURL returns DATABASE_URL as a SQLite file path. The sqlite://
// and sqlite: schemes are accepted and stripped.
func GetDatabaseURL() string {
	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	for _, scheme := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(url, scheme) {
			return strings.TrimPrefix(url, scheme)
		}
	}
	return url
}
