package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envReader reads typed settings and remembers every value it could not
// parse, so a typo fails startup instead of silently using a default
type envReader struct {
	errs []error
}

func readEnv[T any](r *envReader, key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := parse(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
		return def
	}
	return value
}

// str returns the first non-empty variable among keys
func (r *envReader) str(def string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return def
}

// list splits a comma-separated variable, dropping empty entries
func (r *envReader) list(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (r *envReader) integer(key string, def int) int {
	return readEnv(r, key, def, strconv.Atoi)
}

func (r *envReader) float(key string, def float64) float64 {
	return readEnv(r, key, def, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func (r *envReader) boolean(key string, def bool) bool {
	return readEnv(r, key, def, strconv.ParseBool)
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	return readEnv(r, key, def, parseDuration)
}

// parseDuration accepts Go durations ("45s", "2m") and bare seconds ("45")
func parseDuration(s string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < 0 {
			return 0, errors.New("duration cannot be negative")
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("duration cannot be negative")
	}
	return d, nil
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
