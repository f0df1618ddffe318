package engine

import (
	"context"
	"slices"

	"idcard/internal/wizard/models"
)

// State is the persistable part of a wizard. File contents are not part of
// it; only their names survive in Manifest.
type State struct {
	Role     models.Role
	Step     models.Step
	Identity *models.Identity
	Draft    models.Draft
	Manifest models.Manifest
}

// State returns a copy of the persistable state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		Role:     w.flow.Role,
		Step:     w.step,
		Draft:    w.draft.Clone(),
		Manifest: w.mergedManifest(),
	}
	if w.identity != nil {
		id := *w.identity
		st.Identity = &id
	}
	return st
}

func (w *Wizard) mergedManifest() models.Manifest {
	m := make(models.Manifest, len(w.manifest))
	for slot, name := range w.manifest {
		m[slot] = name
	}
	for slot, name := range w.files.Manifest() {
		m[slot] = name
	}
	return m
}

// Restore rebuilds a wizard from persisted state. An identity whose token no
// longer validates sends the session back to verification; a step past the
// upload step falls back to it, because file contents are never persisted.
func Restore(ctx context.Context, sessionID string, flow Flow, deps Deps, st State) (*Wizard, error) {
	w, err := New(sessionID, flow, deps)
	if err != nil {
		return nil, err
	}
	if st.Manifest != nil {
		w.manifest = st.Manifest
	}
	if st.Identity == nil || deps.Gate.Check(ctx, sessionID, st.Identity) != nil {
		return w, nil
	}

	id := *st.Identity
	w.identity = &id
	if st.Draft != nil {
		w.draft = st.Draft
	}
	w.restoreDraft(w.draft)

	steps := flow.Topology.Steps()
	step := st.Step
	if step == models.StepDocuments && flow.Topology == TopologyLegacy {
		step = models.StepForm
	}
	i := slices.Index(steps, step)
	if i < 0 {
		i = flow.index(models.StepForm)
	}
	upload := flow.index(flow.Topology.UploadStep())
	if i > upload && documentsProblem(flow, w.draft, w.files) != nil {
		i = upload
	}
	w.step = steps[max(i, flow.index(models.StepForm))]
	return w, nil
}
