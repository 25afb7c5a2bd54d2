// Package paths resolves where the daemon keeps its files.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxSocketPath is the portable limit for sun_path (104 on darwin, 108 on linux).
const maxSocketPath = 104

// Layout locates every file under one root directory.
type Layout struct {
	Root string
}

// DefaultRoot returns $CHATLINE_HOME, or ~/.chatline.
func DefaultRoot() string {
	if v := os.Getenv("CHATLINE_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatline")
}

// New returns the layout rooted at root, or at DefaultRoot when root is empty.
func New(root string) Layout {
	if root == "" {
		root = DefaultRoot()
	}
	return Layout{Root: root}
}

func (l Layout) ConfigPath() string { return filepath.Join(l.Root, "config.toml") }

func (l Layout) DBPath() string { return filepath.Join(l.Root, "chatline.db") }

func (l Layout) SocketPath() string { return filepath.Join(l.Root, "daemon.sock") }

func (l Layout) LockPath() string { return filepath.Join(l.Root, "LOCK") }

func (l Layout) LogDir() string { return filepath.Join(l.Root, "logs") }

func (l Layout) LogPath() string { return filepath.Join(l.LogDir(), "chatlined.log") }

// EnsureDirs creates the directory tree with owner-only permissions.
func (l Layout) EnsureDirs() error {
	for _, d := range []string{l.Root, l.LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports layouts whose socket path the OS would reject.
func (l Layout) Validate() error {
	if l.Root == "" {
		return fmt.Errorf("empty root directory")
	}
	if n := len(l.SocketPath()); n > maxSocketPath {
		return fmt.Errorf("socket path %q is %d bytes, limit is %d; choose a shorter --home", l.SocketPath(), n, maxSocketPath)
	}
	return nil
}
