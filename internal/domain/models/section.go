// internal/domain/models/section.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Section is a category node. Sections are stored flat with parent pointers
// and materialized into trees on read.
type Section struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name           string              `bson:"name" json:"name"`
	Slug           string              `bson:"slug" json:"slug"`
	Description    string              `bson:"description,omitempty" json:"description,omitempty"`
	ParentID       *primitive.ObjectID `bson:"parent_id,omitempty" json:"parentId,omitempty"` // nil = root
	Level          int                 `bson:"level" json:"level"`                            // root = 0
	DisplayOrder   int                 `bson:"display_order" json:"displayOrder"`
	ShowInNavbar   bool                `bson:"show_in_navbar" json:"showInNavbar"`
	ShowInHomepage bool                `bson:"show_in_homepage" json:"showInHomepage"`
	IsActive       bool                `bson:"is_active" json:"isActive"`
	CreatedAt      time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updatedAt"`
}

// IsRoot returns true if the section has no parent.
func (s *Section) IsRoot() bool {
	return s.ParentID == nil
}

// SectionNode is a section with its children attached.
// Leaves carry an empty, non-nil Children slice.
type SectionNode struct {
	Section
	Children []*SectionNode `json:"children"`
}
