package inputval

import (
	"strings"

	"github.com/dalemusser/stratastore/internal/app/store/storeutil"
	"github.com/dalemusser/stratastore/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectID parses a hex id, reporting a bad one as invalid input named by label.
func ObjectID(op, label, s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid(op, "%s is not a valid ID", label)
	}
	return id, nil
}

// ObjectIDs parses a list of hex ids. A nil list stays nil so callers can
// tell "absent" from "empty".
func ObjectIDs(op, label string, ss []string) ([]primitive.ObjectID, error) {
	if ss == nil {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(ss))
	for _, s := range ss {
		id, err := ObjectID(op, label, s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// PositionInput is one entry of a reorder payload. Sections send
// displayOrder, everything else sends order.
type PositionInput struct {
	ID           string `json:"id"`
	Order        *int   `json:"order"`
	DisplayOrder *int   `json:"displayOrder"`
}

// Positions converts a reorder payload into store positions.
func Positions(op string, in []PositionInput) ([]storeutil.Position, error) {
	if len(in) == 0 {
		return nil, apperr.Invalid(op, "nothing to reorder")
	}
	out := make([]storeutil.Position, 0, len(in))
	for _, p := range in {
		id, err := ObjectID(op, "id", p.ID)
		if err != nil {
			return nil, err
		}
		var order int
		switch {
		case p.Order != nil:
			order = *p.Order
		case p.DisplayOrder != nil:
			order = *p.DisplayOrder
		default:
			return nil, apperr.Invalid(op, "order is required for %s", p.ID)
		}
		out = append(out, storeutil.Position{ID: id, Order: order})
	}
	return out, nil
}
