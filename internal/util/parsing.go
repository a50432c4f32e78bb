package util

import (
	"strconv"
	"strings"
	"time"
)

type StringParsable interface {
	string | int | bool | time.Duration
}

// ParseStringAs parses the input string as a StringParsable type, returning the default
// if an error occurs.
func ParseStringAs[T StringParsable](v string, def T) T {
	v = strings.Trim(v, `"`) // in case something comes in as if it were a json string

	var parser func(string) (any, error)
	switch any(def).(type) {
	case string:
		parser = func(s string) (any, error) { return s, nil }
	case int:
		parser = func(s string) (any, error) { return strconv.Atoi(s) }
	case time.Duration:
		parser = func(s string) (any, error) { return time.ParseDuration(s) }
	case bool:
		parser = func(s string) (any, error) { return strconv.ParseBool(s) }
	default:
		panic("ParseStringAs got a type we can't handle")
	}

	val, err := parser(v)
	if err != nil {
		return def
	}
	return val.(T)
}
