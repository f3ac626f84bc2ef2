package model

import "strings"

// EntityType classifies a story bible entry. The set is closed; anything the
// author invents beyond the built-in categories maps to EntityTypeCustom.
type EntityType string

const (
	EntityTypeCharacter EntityType = "character"
	EntityTypeLocation  EntityType = "location"
	EntityTypeItem      EntityType = "item"
	EntityTypeLore      EntityType = "lore"
	EntityTypeCustom    EntityType = "custom"
)

// ParseEntityType maps a raw string onto the closed EntityType set.
// Unknown values fall back to EntityTypeCustom rather than failing.
func ParseEntityType(s string) EntityType {
	switch EntityType(strings.ToLower(strings.TrimSpace(s))) {
	case EntityTypeCharacter:
		return EntityTypeCharacter
	case EntityTypeLocation:
		return EntityTypeLocation
	case EntityTypeItem:
		return EntityTypeItem
	case EntityTypeLore:
		return EntityTypeLore
	default:
		return EntityTypeCustom
	}
}

// IsValid reports whether t is one of the known entity types.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeCharacter, EntityTypeLocation, EntityTypeItem, EntityTypeLore, EntityTypeCustom:
		return true
	default:
		return false
	}
}

// Entity is a named story element eligible for reference matching.
// The catalog owns entities; the engine only ever sees read-only snapshots.
// Tags are alternative surface forms ("scholar" for a character), Rules are
// user-authored notes carried as data and play no part in matching.
type Entity struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Type        EntityType `json:"type"`
	Tags        []string   `json:"tags,omitempty"`
	Rules       []string   `json:"rules,omitempty"`
}

// HasName reports whether the entity carries a usable display name.
// Entities without one are skipped at index build time, never indexed.
func (e Entity) HasName() bool {
	return strings.TrimSpace(e.DisplayName) != ""
}
