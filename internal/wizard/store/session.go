package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
	"idcard/pkg/platform/sentinel"
)

const (
	keyRole     = "role"
	keyIdentity = "identity"
	keyStep     = "step"
	keyManifest = "uploadedFiles"
	keyDraft    = "draft:"
)

// Session is the typed view of one session scope.
type Session struct {
	kv    KV
	scope string
}

func NewSession(kv KV, sessionID string) *Session {
	return &Session{kv: kv, scope: sessionID}
}

// savedDraft binds a draft to the identifier it was typed under.
type savedDraft struct {
	Owner  string       `json:"owner"`
	Fields models.Draft `json:"fields"`
}

func (s *Session) SaveRole(ctx context.Context, role models.Role) error {
	return s.kv.Put(ctx, s.scope, keyRole, []byte(role))
}

func (s *Session) LoadRole(ctx context.Context) (models.Role, error) {
	b, err := s.kv.Get(ctx, s.scope, keyRole)
	if err != nil {
		return "", err
	}
	return models.ParseRole(string(b))
}

func (s *Session) SaveIdentity(ctx context.Context, id models.Identity) error {
	return s.putJSON(ctx, keyIdentity, id)
}

func (s *Session) LoadIdentity(ctx context.Context) (models.Identity, error) {
	var id models.Identity
	err := s.getJSON(ctx, keyIdentity, &id)
	return id, err
}

func (s *Session) SaveStep(ctx context.Context, step models.Step) error {
	return s.kv.Put(ctx, s.scope, keyStep, []byte(step))
}

func (s *Session) LoadStep(ctx context.Context) (models.Step, error) {
	b, err := s.kv.Get(ctx, s.scope, keyStep)
	if err != nil {
		return "", err
	}
	return models.Step(b), nil
}

// SaveDraft stores draft under the role, owned by the verified identifier.
func (s *Session) SaveDraft(ctx context.Context, role models.Role, owner string, draft models.Draft) error {
	return s.putJSON(ctx, keyDraft+string(role), savedDraft{Owner: owner, Fields: draft})
}

// LoadDraft returns the schema defaults overlaid with the saved draft when,
// and only when, the saved draft belongs to owner. Unknown saved fields are
// dropped. A missing or foreign draft yields the defaults.
func (s *Session) LoadDraft(ctx context.Context, role models.Role, owner string) (models.Draft, error) {
	schema := form.For(role)
	merged := schema.Defaults()

	var saved savedDraft
	err := s.getJSON(ctx, keyDraft+string(role), &saved)
	if errors.Is(err, sentinel.ErrNotFound) {
		return merged, nil
	}
	if err != nil {
		return merged, err
	}
	if saved.Owner == "" || saved.Owner != owner {
		return merged, nil
	}
	for name, v := range saved.Fields {
		if _, ok := schema.Field(name); ok {
			merged[name] = v
		}
	}
	return merged, nil
}

func (s *Session) SaveManifest(ctx context.Context, m models.Manifest) error {
	return s.putJSON(ctx, keyManifest, m)
}

func (s *Session) LoadManifest(ctx context.Context) (models.Manifest, error) {
	m := models.Manifest{}
	err := s.getJSON(ctx, keyManifest, &m)
	if errors.Is(err, sentinel.ErrNotFound) {
		return m, nil
	}
	return m, err
}

// Clear drops everything stored for the session.
func (s *Session) Clear(ctx context.Context) error {
	return s.kv.Clear(ctx, s.scope)
}

func (s *Session) putJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Put(ctx, s.scope, key, b)
}

func (s *Session) getJSON(ctx context.Context, key string, v any) error {
	b, err := s.kv.Get(ctx, s.scope, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
