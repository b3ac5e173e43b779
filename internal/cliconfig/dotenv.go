package cliconfig

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded from the working directory when no --env-file is given.
const DefaultEnvFile = ".env"

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
