// Package manifest reads the project version from a manifest file such as
// package.json. Any format viper understands (json, yaml, toml, ...) works;
// the format is chosen from the file extension.
package manifest

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/conneroisu/stitch/internal/errors"
)

// Reader reads version strings from manifest files.
type Reader struct {
	fs  afero.Fs
	key string
}

// NewReader returns a Reader that looks up key (e.g. "version" or
// "project.version") in manifests on fs.
func NewReader(fs afero.Fs, key string) *Reader {
	if key == "" {
		key = "version"
	}
	return &Reader{fs: fs, key: key}
}

// Version returns the version string stored in the manifest at path.
func (r *Reader) Version(path string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", invalid(path, "manifest has no file extension to infer its format from", nil)
	}

	v := viper.New()
	v.SetFs(r.fs)
	v.SetConfigFile(path)
	v.SetConfigType(ext)

	if err := v.ReadInConfig(); err != nil {
		return "", invalid(path, "failed to read manifest", err)
	}

	if !v.IsSet(r.key) {
		return "", invalid(path, "manifest has no "+r.key+" field", nil)
	}
	version := strings.TrimSpace(v.GetString(r.key))
	if version == "" {
		return "", invalid(path, "manifest "+r.key+" is empty", nil)
	}
	return version, nil
}

func invalid(path, message string, cause error) error {
	err := errors.NewConfigError(errors.ErrCodeManifestInvalid, message).WithPath(path)
	err.Cause = cause
	return err
}
