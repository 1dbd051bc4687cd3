package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	// pepper is appended to every password before hashing. Loaded from a
	// file so database dumps alone are not enough to attack hashes offline.
	pepper     string
	pepperFile string
)

// SetPepperPath configures where the pepper file lives. Call before any
// hashing happens, typically during application startup.
func SetPepperPath(file string) {
	pepperFile = file
}

// GetPepper returns the pepper, loading or generating it on first use.
func GetPepper() string {
	if pepper != "" {
		return pepper
	}

	var err error
	pepper, err = loadOrGeneratePepper()
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}
	return pepper
}

func loadOrGeneratePepper() (string, error) {
	pepperFile = filepath.Clean(pepperFile)
	if err := os.MkdirAll(filepath.Dir(pepperFile), 0750); err != nil {
		return "", err
	}

	if raw, err := os.ReadFile(pepperFile); err == nil {
		return string(raw), nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	buf := make([]byte, argonKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	fresh := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(pepperFile, []byte(fresh), 0600); err != nil {
		return "", err
	}
	return fresh, nil
}
