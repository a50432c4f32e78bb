package util

import (
	"os"
)

// Getenv returns the environment variable parsed as T, or def when it is unset
// or cannot be parsed.
func Getenv[T StringParsable](key string, def T) T {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	return ParseStringAs(v, def)
}
