package inputval

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratastore/internal/app/system/apperr"
)

func TestObjectIDs(t *testing.T) {
	ids, err := ObjectIDs("test", "Section", nil)
	if err != nil || ids != nil {
		t.Errorf("ObjectIDs(nil) = %v, %v; want nil, nil", ids, err)
	}

	ids, err = ObjectIDs("test", "Section", []string{})
	if err != nil || ids == nil || len(ids) != 0 {
		t.Errorf("ObjectIDs(empty) = %v, %v; want empty non-nil", ids, err)
	}

	ids, err = ObjectIDs("test", "Section", []string{"507f1f77bcf86cd799439011", " 507f191e810c19729de860ea "})
	if err != nil || len(ids) != 2 {
		t.Fatalf("ObjectIDs(valid) = %v, %v", ids, err)
	}

	_, err = ObjectIDs("test", "Section", []string{"507f1f77bcf86cd799439011", "nope"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("ObjectIDs(bad) error = %v, want invalid input", err)
	}
	if got := apperr.Message(err); got != "Section is not a valid ID" {
		t.Errorf("message = %q", got)
	}
}

func TestPositions(t *testing.T) {
	one, two := 1, 2
	got, err := Positions("test", []PositionInput{
		{ID: "507f1f77bcf86cd799439011", Order: &two},
		{ID: "507f191e810c19729de860ea", DisplayOrder: &one},
	})
	if err != nil {
		t.Fatalf("Positions() error = %v", err)
	}
	if len(got) != 2 || got[0].Order != 2 || got[1].Order != 1 {
		t.Errorf("Positions() = %+v", got)
	}

	for name, in := range map[string][]PositionInput{
		"empty":    nil,
		"bad id":   {{ID: "x", Order: &one}},
		"no order": {{ID: "507f1f77bcf86cd799439011"}},
	} {
		if _, err := Positions("test", in); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("%s: error = %v, want invalid input", name, err)
		}
	}
}
