package model

import "fmt"

// EntityType is the closed set of record kinds a document can be attached to.
// It determines the storage subdirectory and which collaborator can vouch for
// the entity id.
type EntityType string

const (
	EntityDriver  EntityType = "driver"
	EntityVehicle EntityType = "vehicle"
	EntityOther   EntityType = "other"
)

// EntityTypes lists every valid entity type, in storage-layout order.
func EntityTypes() []EntityType {
	return []EntityType{EntityDriver, EntityVehicle, EntityOther}
}

// ParseEntityType converts a wire value into an EntityType.
// The original system accepted both singular and plural spellings.
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "driver", "drivers":
		return EntityDriver, nil
	case "vehicle", "vehicles":
		return EntityVehicle, nil
	case "other":
		return EntityOther, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// RequiresEntityID reports whether documents of this type must name an owner.
// Company-level paperwork under "other" has no owning record.
func (t EntityType) RequiresEntityID() bool {
	return t == EntityDriver || t == EntityVehicle
}
