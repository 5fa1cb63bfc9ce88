package v1

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/tidwall/gjson"

	"github.com/gosuda/trail/internal/audit"
	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

// toHTTPError maps domain errors onto API responses.
func toHTTPError(msg string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(msg + ": not found")
	case errors.Is(err, domain.ErrMalformedSnapshot),
		errors.Is(err, domain.ErrUnsupportedRollback),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, audit.ErrEventTypeRequired):
		return huma.Error422UnprocessableEntity(msg, err)
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden(msg)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

// objectField decodes field of a raw JSON request body, keeping member
// order. Absent and null fields yield nil.
func objectField(raw []byte, field string) (*payload.Object, error) {
	r := gjson.GetBytes(raw, field)
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}
	o, err := payload.ParseObject([]byte(r.Raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return o, nil
}

func parseDate(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, huma.Error400BadRequest(name + " must be YYYY-MM-DD")
	}
	return &t, nil
}

func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
