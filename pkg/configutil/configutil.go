// Package configutil reads json5 config files with local overrides and environment
// overlays.
package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/kelseyhightower/envconfig"
	"github.com/titanous/json5"
)

// layers returns the files that make up the config at path, lowest priority first.
// config.json5 is overridden by config.local.json5 next to it.
func layers(path string) []string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return []string{path, stem + ".local" + ext}
}

// ReadConfig decodes the config at path and merges the local override on top of it.
// Non-empty fields of the override win. It returns os.ErrNotExist when neither file
// exists.
func ReadConfig[T any](path string) (T, error) {
	var out T
	found := false

	for _, layer := range layers(path) {
		contents, err := os.ReadFile(layer)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return out, err
		}

		var decoded T
		err = json5.Unmarshal(contents, &decoded)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", layer, err)
		}
		err = mergo.Merge(&out, decoded, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", layer, err)
		}
		if found {
			slog.Info("merged config with local overrides", "local", layer)
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// OverlayEnv fills `out` with the environment variables described by its `envconfig`
// struct tags under the given prefix. Unset variables leave the existing value alone.
func OverlayEnv[T any](prefix string, out *T) error {
	var fromEnv T
	err := envconfig.Process(prefix, &fromEnv)
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return mergo.Merge(out, fromEnv, mergo.WithOverride)
}
