package model

import "time"

// Document represents one uploaded file attached to an entity.
// This is a pure domain model with no persistence-specific dependencies.
// It can be used across layers (HTTP, service, storage) without coupling to a backend.
type Document struct {
	ID               string     `json:"id"`
	EntityType       EntityType `json:"entity_type"`
	EntityID         string     `json:"entity_id"`
	DisplayName      string     `json:"display_name"`
	OriginalFilename string     `json:"original_filename"`
	StoredFilename   string     `json:"stored_filename"`
	Category         Category   `json:"category"`
	MimeType         string     `json:"mime_type"`
	SizeBytes        int64      `json:"size_bytes"`
	SHA256           string     `json:"sha256"`
	// FilePath is the storage key relative to the storage root, a pure
	// function of entity type, entity id and stored filename.
	FilePath   string    `json:"file_path"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	ExpiryDate *Date     `json:"expiry_date,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Status is derived from ExpiryDate at read time and never persisted.
	Status Status `json:"status,omitempty"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.ExpiryDate != nil {
		ed := *d.ExpiryDate
		out.ExpiryDate = &ed
	}
	return out
}

// Category tags a document for filtering. The known set mirrors the kinds of
// paperwork a delivery fleet carries; unknown values are rejected on write.
type Category string

const (
	CategoryLicense      Category = "license"
	CategoryInsurance    Category = "insurance"
	CategoryRegistration Category = "registration"
	CategoryIDCopy       Category = "id_copy"
	CategoryContract     Category = "contract"
	CategoryOther        Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryLicense, CategoryInsurance, CategoryRegistration,
		CategoryIDCopy, CategoryContract, CategoryOther:
		return true
	}
	return false
}
