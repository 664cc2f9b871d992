// Package socialmedia serves links to the store's social profiles.
package socialmedia

import (
	"net/http"
	"strings"
	"time"

	contentstore "github.com/dalemusser/stratastore/internal/app/store/content"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/furniture"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/seeding"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Resource describes the social_media collection.
func Resource(store *contentstore.Store[models.SocialMedia]) furniture.Resource[models.SocialMedia] {
	return furniture.Resource[models.SocialMedia]{
		Entity:   "social-media",
		Noun:     "social link",
		Store:    store,
		Create:   create,
		Update:   update,
		Defaults: func(d seeding.Defaults) []models.SocialMedia { return d.SocialMedia },
	}
}

type socialInput struct {
	Platform *string `json:"platform"`
	URL      *string `json:"url"`
	Icon     *string `json:"icon"`
	Order    *int    `json:"order"`
	IsActive *bool   `json:"isActive"`
}

// validPlatform keeps platform names usable as icon keys.
func validPlatform(p string) bool {
	return p != "" && inputval.IsValidSlug(p)
}

func decode(op string, r *http.Request) (socialInput, error) {
	var in socialInput
	if err := jsonutil.Decode(r, &in); err != nil {
		return in, furniture.DecodeError(op)
	}
	if in.Platform != nil {
		*in.Platform = strings.ToLower(strings.TrimSpace(*in.Platform))
		if !validPlatform(*in.Platform) {
			return in, apperr.Invalid(op, "platform must be a lowercase name like instagram")
		}
	}
	if in.URL != nil {
		*in.URL = strings.TrimSpace(*in.URL)
		if !inputval.IsValidHTTPURL(*in.URL) {
			return in, apperr.Invalid(op, "url must be an http(s) URL")
		}
	}
	if in.Icon != nil {
		*in.Icon = strings.ToLower(strings.TrimSpace(*in.Icon))
	}
	return in, nil
}

func create(op string, r *http.Request) (models.SocialMedia, error) {
	in, err := decode(op, r)
	if err != nil {
		return models.SocialMedia{}, err
	}
	if in.Platform == nil {
		return models.SocialMedia{}, apperr.Invalid(op, "platform is required")
	}
	if in.URL == nil {
		return models.SocialMedia{}, apperr.Invalid(op, "url is required")
	}
	icon := *in.Platform
	if in.Icon != nil && *in.Icon != "" {
		icon = *in.Icon
	}

	now := time.Now()
	return models.SocialMedia{
		Platform:  *in.Platform,
		URL:       *in.URL,
		Icon:      icon,
		Order:     furniture.IntOr(in.Order, 0),
		IsActive:  furniture.BoolOr(in.IsActive, true),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func update(op string, r *http.Request) (bson.M, error) {
	in, err := decode(op, r)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Platform != nil {
		set["platform"] = *in.Platform
	}
	if in.URL != nil {
		set["url"] = *in.URL
	}
	if in.Icon != nil {
		set["icon"] = *in.Icon
	}
	if in.Order != nil {
		set["order"] = *in.Order
	}
	if in.IsActive != nil {
		set["is_active"] = *in.IsActive
	}
	return set, nil
}
