// internal/domain/models/content.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HeroSlide is one slide of the homepage carousel.
type HeroSlide struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id" yaml:"-"`
	Title      string             `bson:"title" json:"title" yaml:"title"`
	Subtitle   string             `bson:"subtitle,omitempty" json:"subtitle,omitempty" yaml:"subtitle"`
	Image      string             `bson:"image" json:"image" yaml:"image"`
	LinkURL    string             `bson:"link_url,omitempty" json:"linkUrl,omitempty" yaml:"link_url"`
	ButtonText string             `bson:"button_text,omitempty" json:"buttonText,omitempty" yaml:"button_text"`
	Order      int                `bson:"order" json:"order" yaml:"order"`
	IsActive   bool               `bson:"is_active" json:"isActive" yaml:"is_active"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt" yaml:"-"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt" yaml:"-"`
}

// FooterLink is a link shown in a footer column.
type FooterLink struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id" yaml:"-"`
	Label     string             `bson:"label" json:"label" yaml:"label"`
	URL       string             `bson:"url" json:"url" yaml:"url"`
	Group     string             `bson:"group" json:"group" yaml:"group"`
	Order     int                `bson:"order" json:"order" yaml:"order"`
	IsActive  bool               `bson:"is_active" json:"isActive" yaml:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt" yaml:"-"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt" yaml:"-"`
}

// SocialMedia is a link to one of the store's social profiles.
type SocialMedia struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id" yaml:"-"`
	Platform  string             `bson:"platform" json:"platform" yaml:"platform"`
	URL       string             `bson:"url" json:"url" yaml:"url"`
	Icon      string             `bson:"icon,omitempty" json:"icon,omitempty" yaml:"icon"`
	Order     int                `bson:"order" json:"order" yaml:"order"`
	IsActive  bool               `bson:"is_active" json:"isActive" yaml:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt" yaml:"-"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt" yaml:"-"`
}

// ContactSettings is the singleton document holding the store's contact details.
type ContactSettings struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty" yaml:"-"`
	Email         string             `bson:"email" json:"email" yaml:"email"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty" yaml:"phone"`
	Address       string             `bson:"address,omitempty" json:"address,omitempty" yaml:"address"`
	WhatsApp      string             `bson:"whatsapp,omitempty" json:"whatsapp,omitempty" yaml:"whatsapp"`
	BusinessHours string             `bson:"business_hours,omitempty" json:"businessHours,omitempty" yaml:"business_hours"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt" yaml:"-"`
}
