package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"idcard/internal/wizard/files"
	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports"
	"idcard/internal/wizard/submission"
	"idcard/internal/wizard/verification"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/requestcontext"
)

// ErrSuperseded is returned when an operation's result arrives after the
// wizard left the state that started it. The result is dropped.
var ErrSuperseded = dErrors.New(dErrors.CodeInvalidState, "The wizard has moved on; this result was discarded")

// Deps are the collaborators a wizard calls outside its lock.
type Deps struct {
	Gate         *verification.Gate
	Assembler    *submission.Assembler
	Applications ports.ApplicationService
	NoticeTTL    time.Duration
}

func (d Deps) validate() error {
	if d.Gate == nil {
		return errors.New("verification gate is required")
	}
	if d.Assembler == nil {
		return errors.New("submission assembler is required")
	}
	if d.Applications == nil {
		return errors.New("application service is required")
	}
	return nil
}

// Wizard is the state of one applicant session. Methods are safe for
// concurrent use; collaborator calls never hold the lock.
type Wizard struct {
	mu sync.Mutex

	id   string
	flow Flow
	deps Deps

	step     models.Step
	substep  models.Substep
	otp      *ports.OTPRequest
	identity *models.Identity
	draft    models.Draft
	files    *files.Set
	manifest models.Manifest
	notice   *models.Notice
	receipt  *models.Receipt

	pending map[models.Operation]bool
	// epoch is bumped on every state move; in-flight results carrying an
	// older epoch are discarded.
	epoch uint64
}

// New returns a wizard at the start of the Verification step.
func New(sessionID string, flow Flow, deps Deps) (*Wizard, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.NoticeTTL <= 0 {
		deps.NoticeTTL = models.NoticeTTL
	}
	return &Wizard{
		id:       sessionID,
		flow:     flow,
		deps:     deps,
		step:     models.StepVerification,
		substep:  models.SubstepRequestOTP,
		draft:    flow.Schema.Defaults(),
		files:    files.NewSet(),
		manifest: models.Manifest{},
		pending:  make(map[models.Operation]bool),
	}, nil
}

type ticket struct {
	op    models.Operation
	epoch uint64
}

func (w *Wizard) begin(op models.Operation) (ticket, error) {
	if w.pending[op] {
		return ticket{}, dErrors.New(dErrors.CodePending, "Please wait, the previous request is still in progress")
	}
	w.pending[op] = true
	return ticket{op: op, epoch: w.epoch}, nil
}

// settle re-enables the trigger of t and reports whether its result still
// applies.
func (w *Wizard) settle(t ticket) bool {
	if t.epoch != w.epoch {
		return false
	}
	delete(w.pending, t.op)
	return true
}

func (w *Wizard) bump() {
	w.epoch++
	clear(w.pending)
}

func (w *Wizard) moveTo(step models.Step) {
	w.step = step
	w.bump()
}

func (w *Wizard) raise(ctx context.Context, code, message string, severity models.Severity) {
	w.notice = &models.Notice{
		Code:           code,
		Message:        message,
		Severity:       severity,
		ExpiresAt:      requestcontext.Now(ctx).Add(w.deps.NoticeTTL),
		ScrollIntoView: true,
	}
}

// fail turns err into an error notice and returns it unchanged.
func (w *Wizard) fail(ctx context.Context, err error) error {
	code := string(dErrors.CodeOf(err))
	message := "Something went wrong, please try again"
	var guard *GuardError
	var rejection *files.RejectionError
	switch {
	case errors.As(err, &guard):
		code, message = guard.Problem.Code, guard.Problem.Message
	case errors.As(err, &rejection):
		code, message = string(rejection.Reason), rejection.Error()
	default:
		if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
			message = de.Message
		}
	}
	w.raise(ctx, code, message, models.SeverityError)
	return err
}

func (w *Wizard) requireStep(step models.Step) error {
	if w.step != step {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("not available on the %s step", w.step))
	}
	return nil
}

// SetRole switches between faculty and staff. It is only possible before an
// OTP was sent.
func (w *Wizard) SetRole(ctx context.Context, role models.Role) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != models.StepVerification || w.substep != models.SubstepRequestOTP || w.identity != nil {
		return dErrors.New(dErrors.CodeInvalidState, "Role can only be changed before the OTP is sent")
	}
	if !role.IsEmployee() || !w.flow.Role.IsEmployee() {
		return w.fail(ctx, dErrors.New(dErrors.CodeBadRequest, "Role can only switch between faculty and staff"))
	}
	if role == w.flow.Role {
		return nil
	}
	w.flow = NewFlow(role, w.flow.Topology, w.flow.Policy)
	w.bump()
	return nil
}

// RequestOTP is phase one of verification.
func (w *Wizard) RequestOTP(ctx context.Context, identifier string) error {
	w.mu.Lock()
	if w.step != models.StepVerification || w.substep != models.SubstepRequestOTP {
		w.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, "An OTP was already sent; change the identifier to start over")
	}
	t, err := w.begin(models.OpRequestOTP)
	role := w.flow.Role
	w.mu.Unlock()
	if err != nil {
		return err
	}

	req, err := w.deps.Gate.RequestOTP(ctx, identifier, role)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.settle(t) {
		return ErrSuperseded
	}
	if err != nil {
		return w.fail(ctx, err)
	}
	w.otp = &req
	w.substep = models.SubstepConfirmOTP
	w.raise(ctx, "otp_sent", "OTP sent to "+req.Email, models.SeveritySuccess)
	return nil
}

// ConfirmOTP is phase two. Success binds the identity into the draft and
// moves to the Form step.
func (w *Wizard) ConfirmOTP(ctx context.Context, code string) (models.Identity, error) {
	w.mu.Lock()
	if w.step != models.StepVerification || w.substep != models.SubstepConfirmOTP || w.otp == nil {
		w.mu.Unlock()
		return models.Identity{}, dErrors.New(dErrors.CodeInvalidState, "Please request an OTP first")
	}
	t, err := w.begin(models.OpConfirmOTP)
	req := *w.otp
	w.mu.Unlock()
	if err != nil {
		return models.Identity{}, err
	}

	id, err := w.deps.Gate.ConfirmOTP(ctx, w.id, req, code)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.settle(t) {
		return models.Identity{}, ErrSuperseded
	}
	if err != nil {
		return models.Identity{}, w.fail(ctx, err)
	}
	w.identity = &id
	w.draft = form.BindIdentity(w.flow.Schema, w.draft, id)
	w.moveTo(models.StepForm)
	w.raise(ctx, "verified", "Verification Successful!", models.SeveritySuccess)
	return id, nil
}

// ChangeIdentifier returns to phase one, forgetting the pending code. The
// role is kept.
func (w *Wizard) ChangeIdentifier(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != models.StepVerification || w.identity != nil {
		return dErrors.New(dErrors.CodeInvalidState, "The identifier can only be changed before verification")
	}
	w.otp = nil
	w.substep = models.SubstepRequestOTP
	w.notice = nil
	w.bump()
	return nil
}

// restoreDraft replaces the draft with one loaded for the verified owner.
// Identity fields are rebound so a stored draft can never override them.
func (w *Wizard) restoreDraft(draft models.Draft) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.identity == nil {
		return
	}
	w.draft = form.BindIdentity(w.flow.Schema, draft, *w.identity)
}

// FieldChange is one raw input for ApplyFields.
type FieldChange struct {
	Name  string
	Value any
}

// ApplyFields folds changes into the draft in order. Either all apply or
// none do.
func (w *Wizard) ApplyFields(ctx context.Context, changes []FieldChange) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(models.StepForm); err != nil {
		return err
	}
	next := w.draft
	for _, c := range changes {
		var err error
		next, err = form.ApplyFieldChange(w.flow.Schema, next, c.Name, c.Value)
		if err != nil {
			return w.fail(ctx, err)
		}
	}
	w.draft = next
	return nil
}

// Attach reads candidate into slot. A rejected file leaves the slot as it
// was.
func (w *Wizard) Attach(ctx context.Context, slot models.Slot, c files.Candidate) (models.FileSlot, error) {
	w.mu.Lock()
	if err := w.requireStep(w.flow.Topology.UploadStep()); err != nil {
		w.mu.Unlock()
		return models.FileSlot{}, err
	}
	t, err := w.begin(models.OpEncodeFile)
	policy := w.flow.Policy
	w.mu.Unlock()
	if err != nil {
		return models.FileSlot{}, err
	}

	f, err := files.Accept(slot, c, policy)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.settle(t) {
		return models.FileSlot{}, ErrSuperseded
	}
	if err != nil {
		var rejection *files.RejectionError
		if errors.As(err, &rejection) {
			return models.FileSlot{}, w.fail(ctx, dErrors.Wrap(err, dErrors.CodeFileRejected, rejection.Error()))
		}
		return models.FileSlot{}, w.fail(ctx, dErrors.Wrap(err, dErrors.CodeBadRequest, "Could not read the uploaded file"))
	}
	w.files.Put(f)
	delete(w.manifest, slot)
	w.notice = nil
	return f, nil
}

// Remove clears slot. It reports false when the slot was already empty.
func (w *Wizard) Remove(_ context.Context, slot models.Slot) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStep(w.flow.Topology.UploadStep()); err != nil {
		return false, err
	}
	if _, ok := w.flow.Policy.Slots[slot]; !ok {
		return false, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown upload slot %q", slot))
	}
	delete(w.manifest, slot)
	return w.files.Remove(slot), nil
}

// Next attempts the forward transition out of the current step.
func (w *Wizard) Next(ctx context.Context) (models.Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending[models.OpSubmit] {
		return w.step, dErrors.New(dErrors.CodePending, "Submission in progress")
	}

	switch w.step {
	case models.StepVerification:
		if w.identity == nil {
			return w.step, w.fail(ctx, guardErr(Problem{
				Code: ProblemVerificationRequired, Message: "Please verify your identity first",
			}))
		}
		if err := w.deps.Gate.Check(ctx, w.id, w.identity); err != nil {
			return w.step, w.fail(ctx, err)
		}
	case models.StepPreview:
		return w.step, dErrors.New(dErrors.CodeInvalidState, "Use submit to send the application")
	case models.StepSubmitted:
		return w.step, dErrors.New(dErrors.CodeInvalidState, "The application was already submitted")
	default:
		if p := exitProblem(w.flow, w.step, w.draft, w.files); p != nil {
			return w.step, w.fail(ctx, guardErr(*p))
		}
	}

	steps := w.flow.Topology.Steps()
	next := steps[w.flow.index(w.step)+1]
	if next == models.StepPreview {
		w.manifest = w.files.Manifest()
	}
	w.moveTo(next)
	w.notice = nil
	return next, nil
}

// Back returns to the previous step. Draft, files and identity are kept.
func (w *Wizard) Back(_ context.Context) (models.Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending[models.OpSubmit] {
		return w.step, dErrors.New(dErrors.CodePending, "Submission in progress")
	}
	i := w.flow.index(w.step)
	if i <= 0 {
		return w.step, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("cannot go back from the %s step", w.step))
	}
	prev := w.flow.Topology.Steps()[i-1]
	w.moveTo(prev)
	w.notice = nil
	return prev, nil
}

// Submit assembles and sends the application once. On failure the wizard
// stays on Preview with its state untouched.
func (w *Wizard) Submit(ctx context.Context) (models.Receipt, error) {
	w.mu.Lock()
	if err := w.requireStep(models.StepPreview); err != nil {
		w.mu.Unlock()
		return models.Receipt{}, err
	}
	if err := w.deps.Gate.Check(ctx, w.id, w.identity); err != nil {
		err = w.fail(ctx, err)
		w.mu.Unlock()
		return models.Receipt{}, err
	}
	if p := documentsProblem(w.flow, w.draft, w.files); p != nil {
		err := w.fail(ctx, guardErr(*p))
		w.mu.Unlock()
		return models.Receipt{}, err
	}
	t, err := w.begin(models.OpSubmit)
	in := submission.Input{
		Role:     w.flow.Role,
		Identity: *w.identity,
		Draft:    w.draft.Clone(),
		Files:    w.files.Present(),
	}
	w.mu.Unlock()
	if err != nil {
		return models.Receipt{}, err
	}

	receipt, err := w.send(ctx, in)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.settle(t) {
		return models.Receipt{}, ErrSuperseded
	}
	if err != nil {
		w.raise(ctx, string(dErrors.CodeSubmissionFailed), "Submission Error: "+submitMessage(err), models.SeverityError)
		return models.Receipt{}, err
	}

	w.receipt = &receipt
	w.identity = nil
	w.otp = nil
	w.draft = w.flow.Schema.Defaults()
	w.files.Clear()
	w.manifest = models.Manifest{}
	w.moveTo(models.StepSubmitted)
	w.raise(ctx, "submitted", "Application submitted successfully!", models.SeveritySuccess)
	return receipt, nil
}

func (w *Wizard) send(ctx context.Context, in submission.Input) (models.Receipt, error) {
	pkg, err := w.deps.Assembler.Assemble(ctx, in)
	if err != nil {
		return models.Receipt{}, err
	}
	r, err := w.deps.Applications.Submit(ctx, pkg)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return models.Receipt{}, err
		}
		return models.Receipt{}, dErrors.Wrap(err, dErrors.CodeSubmissionFailed, err.Error())
	}
	return submission.Finalize(pkg, r), nil
}

func submitMessage(err error) string {
	if de, ok := dErrors.As(err); ok && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func guardErr(p Problem) error {
	return dErrors.Wrap(&GuardError{Problem: p}, dErrors.CodeValidation, p.Message)
}
