package utils

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ParseTruthy converts a boolean-like configuration value to a bool.
// Accepted forms, case insensitive: yes/no, true/false, on/off.
func ParseTruthy(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "on":
		return true, nil
	case "no", "false", "off":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean value %q, expected yes/no, true/false or on/off", s)
}

// PathExists returns true if path exists in the system or false if it doesnt
// in case of error, and error is returned
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
