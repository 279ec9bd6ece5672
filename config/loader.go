package config

import (
	"context"

	"github.com/grailbio/base/log"
)

// Loader rereads a configuration file on demand and keeps the last snapshot
// that loaded successfully.
type Loader struct {
	path    string
	current *Snapshot
}

// NewLoader creates a loader for the configuration file at path. Nothing is
// read until the first Reload.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Reload loads the configuration again. On failure the previous snapshot is
// returned and the error is only logged; it is returned only when no
// snapshot has ever loaded.
func (l *Loader) Reload(ctx context.Context) (*Snapshot, error) {
	s, err := Load(ctx, l.path)
	if err != nil {
		log.Error.Printf("load_config_failed config_file=%s have_previous=%v: %v", l.path, l.current != nil, err)
		if l.current == nil {
			return nil, err
		}
		return l.current, nil
	}
	l.current = s
	return s, nil
}

// Current returns the last good snapshot, or nil.
func (l *Loader) Current() *Snapshot {
	return l.current
}

// Static is a snapshot source that never changes.
type Static struct {
	Snapshot *Snapshot
}

// Reload returns the fixed snapshot.
func (s Static) Reload(context.Context) (*Snapshot, error) {
	return s.Snapshot, nil
}
