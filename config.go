package adi

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/magicmatatjahu/adi/internal/logging"
)

// Config is the environment driven part of injector setup.
type Config struct {
	Name           string
	LogLevel       string
	LogFormat      string
	Labels         []string
	StrictValidate bool
}

// LoadConfig reads ADI_* settings from the process environment, falling
// back to the given .env files. Without files a .env in the working
// directory is used when present.
func LoadConfig(files ...string) (Config, error) {
	values := map[string]string{}
	if len(files) > 0 {
		read, err := godotenv.Read(files...)
		if err != nil {
			return Config{}, errors.Wrap(err, "read env files")
		}
		values = read
	} else if read, err := godotenv.Read(); err == nil {
		values = read
	}

	env := func(key, fallback string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		if v, ok := values[key]; ok {
			return v
		}
		return fallback
	}

	strict, err := strconv.ParseBool(env("ADI_STRICT_VALIDATE", "false"))
	if err != nil {
		return Config{}, errors.Wrap(err, "parse ADI_STRICT_VALIDATE")
	}

	labels := lo.Compact(lo.Map(strings.Split(env("ADI_LABELS", ""), ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))

	return Config{
		Name:           env("ADI_NAME", ""),
		LogLevel:       env("ADI_LOG_LEVEL", "info"),
		LogFormat:      env("ADI_LOG_FORMAT", "text"),
		Labels:         labels,
		StrictValidate: strict,
	}, nil
}

func (c Config) Logger(w io.Writer) *slog.Logger {
	return logging.New(c.LogLevel, c.LogFormat, w)
}

func WithConfig(c Config) Option {
	return func(cfg *injectorConfig) {
		if c.Name != "" {
			cfg.name = c.Name
		}
		cfg.logger = c.Logger(nil)
		cfg.labels = append(cfg.labels, lo.ToAnySlice(c.Labels)...)
		cfg.validate = cfg.validate || c.StrictValidate
	}
}
