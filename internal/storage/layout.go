package storage

import (
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"docstore/internal/model"
)

// maxBaseNameRunes bounds the human-readable part of a stored filename.
const maxBaseNameRunes = 50

// SanitizeFilename reduces a user-supplied filename to a safe display suffix
// for the stored name. Path separators, null bytes, control characters and
// ".." sequences are removed; anything outside unicode letters, digits and a
// small punctuation set is dropped; the base name is truncated. Unicode
// letters survive so Arabic filenames stay readable on disk.
func SanitizeFilename(name string) string {
	// Keep only the last path element of whatever the client sent.
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, "..", "")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == 0 || unicode.IsControl(r):
			// drop
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case strings.ContainsRune("-_.() ", r):
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), ". ")

	ext := path.Ext(cleaned)
	base := strings.TrimSuffix(cleaned, ext)
	if runes := []rune(base); len(runes) > maxBaseNameRunes {
		base = string(runes[:maxBaseNameRunes])
	}
	if base == "" {
		base = "file"
	}
	return base + ext
}

// NewStoredFilename produces a collision-free on-disk name for an upload:
// a timestamp plus UUID token, then the sanitized original name separated by
// "___" so operators can still tell files apart by eye. Uniqueness comes
// from the token, not from retry-on-conflict.
func NewStoredFilename(sanitized string, now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString() + "___" + sanitized
}

// BuildKey computes the storage key for a document:
// {entity_type}/{entity_id}/{stored_filename}. Documents of type "other"
// without an owning record collapse into a shared "general" directory.
func BuildKey(t model.EntityType, entityID, storedFilename string) string {
	if entityID == "" {
		entityID = "general"
	}
	return path.Join(string(t), entityID, storedFilename)
}
