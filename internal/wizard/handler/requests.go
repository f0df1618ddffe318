package handler

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"idcard/internal/catalog"
	"idcard/internal/wizard/engine"
	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/platform/httputil"
)

type StartRequest struct {
	RoleName string `json:"role"`
	// PreviousSessionID names the session this browser held before; its
	// stored state is wiped on a fresh start.
	PreviousSessionID string `json:"previousSessionId,omitempty"`
}

func (r *StartRequest) Role() (models.Role, error) {
	if r.RoleName == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "role is required")
	}
	role, err := models.ParseRole(r.RoleName)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "role must be student, faculty or staff")
	}
	return role, nil
}

type RoleRequest struct {
	RoleName string `json:"role"`
}

func (r *RoleRequest) Role() (models.Role, error) {
	return (&StartRequest{RoleName: r.RoleName}).Role()
}

type OTPRequest struct {
	Identifier string `json:"identifier"`
}

type ConfirmRequest struct {
	OTP string `json:"otp"`
}

type FieldChangeRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type DraftRequest struct {
	Changes []FieldChangeRequest `json:"changes"`
}

// FieldChanges converts decoded JSON values to the shapes the form reducer
// accepts: numbers become their decimal text and arrays become string lists.
func (r *DraftRequest) FieldChanges() []engine.FieldChange {
	out := make([]engine.FieldChange, 0, len(r.Changes))
	for _, c := range r.Changes {
		out = append(out, engine.FieldChange{Name: c.Field, Value: normalizeValue(c.Value)})
	}
	return out
}

func (r *DraftRequest) validate() error {
	if len(r.Changes) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "changes must not be empty")
	}
	for _, c := range r.Changes {
		if c.Field == "" {
			return dErrors.New(dErrors.CodeBadRequest, "every change needs a field")
		}
	}
	return nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		list := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				list = append(list, s)
			case float64:
				list = append(list, strconv.FormatFloat(s, 'f', -1, 64))
			default:
				// The reducer rejects lists it cannot read as options.
				return v
			}
		}
		return list
	case nil:
		return ""
	default:
		return v
	}
}

type validator interface {
	validate() error
}

// decode reads a JSON body, trims identifier-like inputs and validates it.
// Draft values are left as typed; the reducer owns their whitespace rules.
func decode(r *http.Request, dst any) error {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		return err
	}
	if _, ok := dst.(*DraftRequest); !ok {
		trimStrings(dst)
	}
	if v, ok := dst.(validator); ok {
		return v.validate()
	}
	return nil
}

func trimStrings(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if field.CanSet() && field.Kind() == reflect.String {
			field.SetString(strings.TrimSpace(field.String()))
		}
	}
}

type fieldResponse struct {
	Name       string      `json:"name"`
	Label      string      `json:"label"`
	Kind       string      `json:"kind"`
	Required   bool        `json:"required"`
	Locked     bool        `json:"locked,omitempty"`
	AllowOther bool        `json:"allowOther,omitempty"`
	Digits     int         `json:"digits,omitempty"`
	MaxLen     int         `json:"maxLength,omitempty"`
	Options    catalog.Set `json:"options,omitempty"`
}

type catalogResponse struct {
	Role     models.Role     `json:"role"`
	Fields   []fieldResponse `json:"fields"`
	Catalogs catalog.Bundle  `json:"catalogs"`
}

var kindNames = map[form.Kind]string{
	form.KindText:   "text",
	form.KindSelect: "select",
	form.KindDate:   "date",
	form.KindNumber: "number",
	form.KindSet:    "checkboxes",
	form.KindBool:   "checkbox",
}

func toCatalogResponse(role models.Role, schema *form.Schema) catalogResponse {
	resp := catalogResponse{Role: role, Catalogs: schema.Catalogs()}
	for _, f := range schema.Fields {
		resp.Fields = append(resp.Fields, fieldResponse{
			Name:       f.Name,
			Label:      f.Label,
			Kind:       kindNames[f.Kind],
			Required:   f.Required,
			Locked:     f.Locked,
			AllowOther: f.AllowOther,
			Digits:     f.Digits,
			MaxLen:     f.MaxLen,
			Options:    f.Options,
		})
	}
	return resp
}
