package env

import (
	"io"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const DefaultEnvFile = ".env"

// InitConfig fills config from the process environment. Variables found in the
// optional env files are applied first and never override the real environment.
func InitConfig(config any, files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		// nolint:errcheck // env files are optional, failure is acceptable
		_ = godotenv.Load(f)
	}

	if err := envconfig.Process("", config); err != nil {
		return errors.Wrap(err, "failed to envconfig.Process")
	}

	return nil
}

// PrintUsage writes the variables understood by each config to w.
func PrintUsage(w io.Writer, configs ...any) error {
	for _, c := range configs {
		if err := envconfig.Usagef("", c, w, envconfig.DefaultTableFormat); err != nil {
			return errors.Wrap(err, "failed to envconfig.Usagef")
		}
	}
	return nil
}
