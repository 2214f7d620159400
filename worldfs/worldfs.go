// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package worldfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Subdirectory names below a server's world directory; the container driver
// later bind-mounts these into the game server container.
const (
	configDir = "config"
	saveDir   = "server"
	backupDir = "backups"
)

// Paths are the absolute on-host paths of one server's world directories.
type Paths struct {
	Config string // server configuration files.
	Save   string // world saves and the game server installation.
	Backup string // periodic world backups.
}

// Manager creates and purges per-server world directories below a single
// data root directory. The zero Manager is not usable; create one with
// [NewManager].
type Manager struct {
	root string
}

// NewManager returns a manager anchored at the specified data root, creating
// the root itself if necessary.
func NewManager(root string) (*Manager, error) {
	if root == "" {
		return nil, errors.New("world data root must not be empty")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid world data root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create world data root: %w", err)
	}
	return &Manager{root: root}, nil
}

// Root returns the absolute data root path.
func (m *Manager) Root() string { return m.root }

// dir resolves a slug to its world directory, confined to the data root.
func (m *Manager) dir(slug string) (string, error) {
	if slug == "" {
		return "", errors.New("slug must not be empty")
	}
	dir, err := securejoin.SecureJoin(m.root, slug)
	if err != nil {
		return "", fmt.Errorf("invalid slug %q: %w", slug, err)
	}
	// SecureJoin confines the result, but a slug like "." or one cleaning
	// down to the root itself must never alias the root: purging it would
	// take all worlds with it.
	if dir == m.root {
		return "", fmt.Errorf("slug %q does not name a world directory", slug)
	}
	return dir, nil
}

// Ensure creates the world directories for the specified slug if they don't
// exist yet and returns their paths. Ensure is idempotent and never touches
// existing directory contents.
func (m *Manager) Ensure(slug string) (Paths, error) {
	dir, err := m.dir(slug)
	if err != nil {
		return Paths{}, err
	}
	p := Paths{
		Config: filepath.Join(dir, configDir),
		Save:   filepath.Join(dir, saveDir),
		Backup: filepath.Join(dir, backupDir),
	}
	for _, d := range []string{p.Config, p.Save, p.Backup} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Paths{}, fmt.Errorf("cannot create world directory: %w", err)
		}
	}
	return p, nil
}

// Purge recursively removes the world directories of the specified slug.
// Purging a slug without any world directories is a no-op, so purge can be
// retried after a partial failure.
func (m *Manager) Purge(slug string) error {
	dir, err := m.dir(slug)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cannot purge world directory: %w", err)
	}
	return nil
}
