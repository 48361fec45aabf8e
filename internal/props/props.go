// Package props parses typed values out of a service's string properties.
package props

import (
	"fmt"
	"strconv"
	"time"
)

// Source is the part of a configuration context the helpers need.
type Source interface {
	Property(name string) (string, bool)
}

// String returns the property value or fallback when it is unset or empty.
func String(src Source, name, fallback string) string {
	if v, ok := src.Property(name); ok && v != "" {
		return v
	}
	return fallback
}

// Required returns the property value or an error when it is unset or empty.
func Required(src Source, name string) (string, error) {
	v, ok := src.Property(name)
	if !ok || v == "" {
		return "", fmt.Errorf("property '%s' is required", name)
	}
	return v, nil
}

// Bool parses a boolean property.
func Bool(src Source, name string, fallback bool) (bool, error) {
	v, ok := src.Property(name)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("property '%s': %q is not a boolean", name, v)
	}
	return b, nil
}

// Int parses an integer property.
func Int(src Source, name string, fallback int) (int, error) {
	v, ok := src.Property(name)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("property '%s': %q is not an integer", name, v)
	}
	return i, nil
}

// Duration parses a duration property such as "1.5s" or "250ms".
func Duration(src Source, name string, fallback time.Duration) (time.Duration, error) {
	v, ok := src.Property(name)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("property '%s': %q is not a duration", name, v)
	}
	return d, nil
}
