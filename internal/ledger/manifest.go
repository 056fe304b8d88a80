package ledger

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/errm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// The manifest is a JSON file (package.json style) whose "version"
// field is the single mutable piece of version state. Other fields
// written by other tools are preserved on rewrite.

// CurrentVersion reads the current version from the manifest. A
// missing manifest yields the configured initial version.
func (l *Ledger) CurrentVersion() (string, error) {
	l.manifestMu.Lock()
	defer l.manifestMu.Unlock()

	raw, err := os.ReadFile(l.cfg.ManifestPath)
	if os.IsNotExist(err) {
		return l.cfg.InitialVersion, nil
	}
	if err != nil {
		return "", errm.Wrap(err, "read manifest")
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", errm.Wrap(err, "parse manifest")
	}
	version, ok := fields["version"].(string)
	if !ok || version == "" {
		return "", errm.Wrap(model.ErrManifestInvalid, l.cfg.ManifestPath)
	}
	return version, nil
}

// SetCurrentVersion writes the version back to the manifest, creating
// it when missing. The write is atomic: temp file plus rename, so a
// crash never leaves a half-written manifest.
func (l *Ledger) SetCurrentVersion(version string) error {
	l.manifestMu.Lock()
	defer l.manifestMu.Unlock()

	fields := make(map[string]any)
	raw, err := os.ReadFile(l.cfg.ManifestPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &fields); err != nil {
			return errm.Wrap(err, "parse manifest")
		}
	case os.IsNotExist(err):
		// Fresh manifest.
	default:
		return errm.Wrap(err, "read manifest")
	}
	fields["version"] = version

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return errm.Wrap(err, "marshal manifest")
	}
	out = append(out, '\n')

	dir := filepath.Dir(l.cfg.ManifestPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errm.Wrap(err, "create manifest directory")
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return errm.Wrap(err, "create temp manifest")
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errm.Wrap(err, "write temp manifest")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errm.Wrap(err, "close temp manifest")
	}
	if err := os.Rename(tmp.Name(), l.cfg.ManifestPath); err != nil {
		os.Remove(tmp.Name())
		return errm.Wrap(err, "replace manifest")
	}

	l.log.Info("updated current version", "version", version, "manifest", l.cfg.ManifestPath)
	return nil
}
