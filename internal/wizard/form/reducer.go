package form

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"idcard/internal/wizard/models"
	dErrors "idcard/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// ApplyFieldChange folds one raw input into a copy of draft. The input draft
// is never modified. Set fields toggle a single string value or replace the
// whole set when given a []string.
func ApplyFieldChange(s *Schema, draft models.Draft, name string, raw any) (models.Draft, error) {
	f, ok := s.Field(name)
	if !ok {
		return draft, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown field %q", name))
	}
	if f.Locked {
		return draft, dErrors.New(dErrors.CodeFieldLocked, fmt.Sprintf("%s comes from the verified identity and cannot be edited", f.Label))
	}

	var value any
	var err error
	switch f.Kind {
	case KindSet:
		value, err = reduceSet(f, draft.Set(name), raw)
	case KindBool:
		value, err = reduceBool(f, raw)
	default:
		value, err = reduceScalar(f, raw)
	}
	if err != nil {
		return draft, err
	}

	next := draft.Clone()
	next[name] = value
	return next, nil
}

// BindIdentity writes the verified identity into the locked fields of draft.
func BindIdentity(s *Schema, draft models.Draft, id models.Identity) models.Draft {
	next := draft.Clone()
	if _, ok := s.Field(FieldEmail); ok {
		next[FieldEmail] = id.Email
	}
	if _, ok := s.Field(FieldRollNo); ok {
		next[FieldRollNo] = id.RollNo
	}
	return next
}

func reduceScalar(f Field, raw any) (string, error) {
	str, ok := raw.(string)
	if !ok {
		return "", invalid(f, "expects text")
	}
	// Leading whitespace never reaches the draft; trailing is kept while typing.
	str = strings.TrimLeft(str, " \t\r\n")
	if f.MaxLen > 0 && len(str) > f.MaxLen {
		return "", invalid(f, fmt.Sprintf("must be at most %d characters", f.MaxLen))
	}
	if str == "" {
		return "", nil
	}

	switch f.Kind {
	case KindSelect:
		if !f.AllowOther && !f.Options.Contains(str) {
			return "", invalid(f, fmt.Sprintf("%q is not an allowed option", str))
		}
	case KindDate:
		if _, err := time.Parse(dateLayout, str); err != nil {
			return "", invalid(f, "must be a date (YYYY-MM-DD)")
		}
	case KindNumber:
		if n, err := strconv.Atoi(str); err != nil || n < 0 {
			return "", invalid(f, "must be a whole number (enter 0 if none)")
		}
	}
	return str, nil
}

func reduceSet(f Field, current []string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		if !f.Options.Contains(v) {
			return nil, invalid(f, fmt.Sprintf("%q is not an allowed option", v))
		}
		if i := slices.Index(current, v); i >= 0 {
			return slices.Delete(slices.Clone(current), i, i+1), nil
		}
		return append(slices.Clone(current), v), nil
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if !f.Options.Contains(item) {
				return nil, invalid(f, fmt.Sprintf("%q is not an allowed option", item))
			}
			if !slices.Contains(out, item) {
				out = append(out, item)
			}
		}
		return out, nil
	default:
		return nil, invalid(f, "expects an option or a list of options")
	}
}

func reduceBool(f Field, raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, invalid(f, "expects true or false")
		}
		return b, nil
	default:
		return false, invalid(f, "expects true or false")
	}
}

func invalid(f Field, reason string) error {
	return dErrors.New(dErrors.CodeValidation, f.Label+" "+reason)
}
