// Package heroslides serves the homepage carousel.
package heroslides

import (
	"net/http"
	"strings"
	"time"

	contentstore "github.com/dalemusser/stratastore/internal/app/store/content"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/stratastore/internal/app/system/furniture"
	"github.com/dalemusser/stratastore/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratastore/internal/app/system/inputval"
	"github.com/dalemusser/stratastore/internal/app/system/jsonutil"
	"github.com/dalemusser/stratastore/internal/app/system/seeding"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Resource describes the hero_slides collection.
func Resource(store *contentstore.Store[models.HeroSlide]) furniture.Resource[models.HeroSlide] {
	return furniture.Resource[models.HeroSlide]{
		Entity:   "hero-slides",
		Noun:     "hero slide",
		Store:    store,
		Create:   create,
		Update:   update,
		Defaults: func(d seeding.Defaults) []models.HeroSlide { return d.HeroSlides },
	}
}

type slideInput struct {
	Title      *string `json:"title"`
	Subtitle   *string `json:"subtitle"`
	Image      *string `json:"image"`
	LinkURL    *string `json:"linkUrl"`
	ButtonText *string `json:"buttonText"`
	Order      *int    `json:"order"`
	IsActive   *bool   `json:"isActive"`
}

func decode(op string, r *http.Request) (slideInput, error) {
	var in slideInput
	if err := jsonutil.Decode(r, &in); err != nil {
		return in, furniture.DecodeError(op)
	}
	for _, p := range []*string{in.Title, in.Subtitle, in.ButtonText} {
		if p != nil {
			*p = htmlsanitize.Text(*p)
		}
	}
	if in.Image != nil {
		*in.Image = strings.TrimSpace(*in.Image)
	}
	if in.LinkURL != nil {
		*in.LinkURL = strings.TrimSpace(*in.LinkURL)
		if l := *in.LinkURL; l != "" && !inputval.IsValidLink(l) {
			return in, apperr.Invalid(op, "linkUrl must be a site path or an http(s) URL")
		}
	}
	return in, nil
}

func create(op string, r *http.Request) (models.HeroSlide, error) {
	in, err := decode(op, r)
	if err != nil {
		return models.HeroSlide{}, err
	}
	if in.Title == nil || *in.Title == "" {
		return models.HeroSlide{}, apperr.Invalid(op, "title is required")
	}
	if in.Image == nil || *in.Image == "" {
		return models.HeroSlide{}, apperr.Invalid(op, "image is required")
	}

	now := time.Now()
	return models.HeroSlide{
		Title:      *in.Title,
		Subtitle:   deref(in.Subtitle),
		Image:      *in.Image,
		LinkURL:    deref(in.LinkURL),
		ButtonText: deref(in.ButtonText),
		Order:      furniture.IntOr(in.Order, 0),
		IsActive:   furniture.BoolOr(in.IsActive, true),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func update(op string, r *http.Request) (bson.M, error) {
	in, err := decode(op, r)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, apperr.Invalid(op, "title cannot be empty")
		}
		set["title"] = *in.Title
	}
	if in.Image != nil {
		if *in.Image == "" {
			return nil, apperr.Invalid(op, "image cannot be empty")
		}
		set["image"] = *in.Image
	}
	if in.Subtitle != nil {
		set["subtitle"] = *in.Subtitle
	}
	if in.LinkURL != nil {
		set["link_url"] = *in.LinkURL
	}
	if in.ButtonText != nil {
		set["button_text"] = *in.ButtonText
	}
	if in.Order != nil {
		set["order"] = *in.Order
	}
	if in.IsActive != nil {
		set["is_active"] = *in.IsActive
	}
	return set, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
