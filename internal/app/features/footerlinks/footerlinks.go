// Package footerlinks serves the grouped links in the site footer.
package footerlinks

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

// DefaultGroup is used when a link is created without a group.
const DefaultGroup = "General"

// Resource describes the footer_links collection.
func Resource(store *contentstore.Store[models.FooterLink]) furniture.Resource[models.FooterLink] {
	return furniture.Resource[models.FooterLink]{
		Entity:   "footer-links",
		Noun:     "footer link",
		Store:    store,
		Create:   create,
		Update:   update,
		Defaults: func(d seeding.Defaults) []models.FooterLink { return d.FooterLinks },
	}
}

type linkInput struct {
	Label    *string `json:"label"`
	URL      *string `json:"url"`
	Group    *string `json:"group"`
	Order    *int    `json:"order"`
	IsActive *bool   `json:"isActive"`
}

func decode(op string, r *http.Request) (linkInput, error) {
	var in linkInput
	if err := jsonutil.Decode(r, &in); err != nil {
		return in, furniture.DecodeError(op)
	}
	if in.Label != nil {
		*in.Label = htmlsanitize.Text(*in.Label)
	}
	if in.Group != nil {
		*in.Group = htmlsanitize.Text(*in.Group)
	}
	if in.URL != nil {
		*in.URL = strings.TrimSpace(*in.URL)
		if u := *in.URL; u != "" && !inputval.IsValidLink(u) {
			return in, apperr.Invalid(op, "url must be a site path or an http(s) URL")
		}
	}
	return in, nil
}

func create(op string, r *http.Request) (models.FooterLink, error) {
	in, err := decode(op, r)
	if err != nil {
		return models.FooterLink{}, err
	}
	if in.Label == nil || *in.Label == "" {
		return models.FooterLink{}, apperr.Invalid(op, "label is required")
	}
	if in.URL == nil || *in.URL == "" {
		return models.FooterLink{}, apperr.Invalid(op, "url is required")
	}
	group := DefaultGroup
	if in.Group != nil && *in.Group != "" {
		group = *in.Group
	}

	now := time.Now()
	return models.FooterLink{
		Label:     *in.Label,
		URL:       *in.URL,
		Group:     group,
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
	if in.Label != nil {
		if *in.Label == "" {
			return nil, apperr.Invalid(op, "label cannot be empty")
		}
		set["label"] = *in.Label
	}
	if in.URL != nil {
		if *in.URL == "" {
			return nil, apperr.Invalid(op, "url cannot be empty")
		}
		set["url"] = *in.URL
	}
	if in.Group != nil {
		if *in.Group == "" {
			return nil, apperr.Invalid(op, "group cannot be empty")
		}
		set["group"] = *in.Group
	}
	if in.Order != nil {
		set["order"] = *in.Order
	}
	if in.IsActive != nil {
		set["is_active"] = *in.IsActive
	}
	return set, nil
}
