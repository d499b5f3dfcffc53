// Package storage defines the vault file-system abstraction.
package storage

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/starford/booknote/internal/models"
)

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// CreateUnique writes content to dir/name+ext without overwriting an
	// existing file, appending " 1", " 2", ... to name on collision. It
	// returns the path actually written, relative to the vault root.
	CreateUnique(dir, name, ext string, content []byte) (string, error)
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
