// Package inputval checks decoded request payloads. Struct rules run through
// waffle/pantry/validate; the helpers in ids.go parse path and body ids.
//
//	type sectionInput struct {
//	    Name string `json:"name" validate:"required,max=120" label:"Name"`
//	}
//
//	if err := inputval.Check(op, in); err != nil {
//	    jsonutil.Fail(w, h.logger, err)
//	    return
//	}
package inputval

import (
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validator = sync.OnceValue(func() *validate.Validator {
	v := validate.New(validate.WithStopOnFirstError())
	for name, check := range map[string]func(string) bool{
		"httpurl":  IsValidHTTPURL,
		"link":     IsValidLink,
		"slug":     IsValidSlug,
		"objectid": isObjectIDHex,
	} {
		v.RegisterRuleFunc(name, func(value any) bool {
			s, ok := value.(string)
			return ok && check(s)
		}, name)
	}
	return v
})

// Check validates the tagged fields of in and returns the first failure as an
// invalid-input error for op. Beyond the pantry rules (required, email, min,
// max, oneof) it understands httpurl, link, slug and objectid.
func Check(op string, in any) error {
	err := validator().Struct(in)
	if err == nil {
		return nil
	}
	errs, ok := err.(validate.Errors)
	if !ok {
		return apperr.Invalid(op, "invalid input")
	}
	// The pantry returns an empty Errors inside a non-nil error on success.
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	label := labels(in)[first.Field]
	if label == "" {
		label = first.Field
	}
	return apperr.Invalid(op, "%s", message(label, first.Rule, first.Param))
}

// labels maps json field names to their label tags.
func labels(in any) map[string]string {
	out := map[string]string{}
	t := reflect.TypeOf(in)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return out
	}
	for i := range t.NumField() {
		f := t.Field(i)
		name := f.Name
		if j, _, _ := strings.Cut(f.Tag.Get("json"), ","); j != "" && j != "-" {
			name = j
		}
		if l := f.Tag.Get("label"); l != "" {
			out[name] = l
		}
	}
	return out
}

func message(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ")
	case "min":
		return label + " must be at least " + param + " characters"
	case "max":
		return label + " must be at most " + param + " characters"
	case "httpurl":
		return label + " must start with http:// or https://"
	case "link":
		return label + " must be a site path or an http(s) URL"
	case "slug":
		return label + " may only contain lowercase letters, digits and single hyphens"
	case "objectid":
		return label + " is not a valid ID"
	}
	return label + " is invalid"
}

// IsValidEmail accepts a bare RFC 5322 address. "Name <addr>" forms are
// rejected because buyers and admins are keyed on the address alone.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsValidHTTPURL accepts absolute http and https URLs with a host.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidLink accepts what storefront furniture may point at: a path on the
// storefront itself ("/sections/flyers") or an absolute http(s) URL.
// Protocol-relative "//host" paths are refused.
func IsValidLink(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") {
		return !strings.HasPrefix(s, "//") && !strings.Contains(s, `\`)
	}
	return IsValidHTTPURL(s)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// IsValidSlug checks the form section slugs and social platforms take.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

func isObjectIDHex(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}
