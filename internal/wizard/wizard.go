// ABOUTME: Three-step pain entry wizard: body part, intensity, questionnaire.
// ABOUTME: Holds in-progress input and hands the completed submission to a Submitter.
package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/painlog/internal/models"
)

// Step is the wizard position.
type Step int

const (
	StepBodyPart Step = iota + 1
	StepIntensity
	StepQuestionnaire
)

func (s Step) String() string {
	switch s {
	case StepBodyPart:
		return "body_part"
	case StepIntensity:
		return "intensity"
	case StepQuestionnaire:
		return "questionnaire"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Notices shown to the user after a submission attempt.
const (
	NoticeSaved          = "O registro de dor foi salvo com sucesso."
	NoticeRejected       = "Não foi possível completar o registro. Tente novamente."
	NoticeNoConnection   = "Verifique sua conexão e tente salvar novamente."
	NoticeMissingAnswers = "Preencha os sintomas e a duração da dor."

	// RedirectHistory is where the user lands after a successful save.
	RedirectHistory = "/history"
)

var (
	ErrWrongStep        = errors.New("action not allowed in current step")
	ErrInvalidBodyPart  = errors.New("invalid body part")
	ErrInvalidIntensity = errors.New("pain level must be between 0 and 10")
	ErrNoPain           = errors.New("pain level must be above zero to continue")
	ErrMissingAnswers   = errors.New("symptoms and duration are required")

	// ErrTransport marks submission failures where the request never got an answer.
	ErrTransport = errors.New("transport failure")
)

// Submission is what the wizard hands over once all steps are complete.
type Submission struct {
	BodyPart       models.BodyPart
	PainLevel      int
	FormData       json.RawMessage
	IdempotencyKey string
}

// Submitter persists a completed submission.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (*models.PainEntry, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, s Submission) (*models.PainEntry, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, s Submission) (*models.PainEntry, error) {
	return f(ctx, s)
}

// Outcome reports a successful save.
type Outcome struct {
	Entry    *models.PainEntry
	Notice   string
	Redirect string
}

// SubmitError carries the user-facing notice for a failed save.
type SubmitError struct {
	Notice string
	Err    error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit pain entry: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Wizard is one in-progress entry. It is not safe for concurrent use.
type Wizard struct {
	submitter Submitter
	step      Step
	bodyPart  models.BodyPart
	painLevel int
	key       string

	// pending is the last submission that failed; a retry only reuses
	// its key while the payload is unchanged.
	pending *Submission
}

// New starts a wizard at the body part step.
func New(submitter Submitter) *Wizard {
	return &Wizard{
		submitter: submitter,
		step:      StepBodyPart,
		key:       uuid.NewString(),
	}
}

// Step returns the current step.
func (w *Wizard) Step() Step { return w.step }

// BodyPart returns the chosen region, empty before the first step completes.
func (w *Wizard) BodyPart() models.BodyPart { return w.bodyPart }

// PainLevel returns the selected intensity.
func (w *Wizard) PainLevel() int { return w.painLevel }

// IdempotencyKey is reused across retries of an unchanged entry.
func (w *Wizard) IdempotencyKey() string { return w.key }

// ChooseBodyPart records the region and advances to the intensity step.
func (w *Wizard) ChooseBodyPart(tag string) error {
	if w.step != StepBodyPart {
		return fmt.Errorf("choose body part: %w", ErrWrongStep)
	}
	if !models.IsValidBodyPart(tag) {
		return fmt.Errorf("choose body part %q: %w", tag, ErrInvalidBodyPart)
	}
	w.bodyPart = models.BodyPart(tag)
	w.step = StepIntensity
	return nil
}

// SetIntensity records the pain level without changing step.
func (w *Wizard) SetIntensity(level int) error {
	if w.step != StepIntensity {
		return fmt.Errorf("set intensity: %w", ErrWrongStep)
	}
	if !models.IsValidPainLevel(level) {
		return fmt.Errorf("set intensity %d: %w", level, ErrInvalidIntensity)
	}
	w.painLevel = level
	return nil
}

// Continue advances to the questionnaire once some pain was reported.
func (w *Wizard) Continue() error {
	if w.step != StepIntensity {
		return fmt.Errorf("continue: %w", ErrWrongStep)
	}
	if w.painLevel <= 0 {
		return ErrNoPain
	}
	w.step = StepQuestionnaire
	return nil
}

// Back returns to the previous step. Input already entered is kept.
func (w *Wizard) Back() {
	switch w.step {
	case StepQuestionnaire:
		w.step = StepIntensity
	case StepIntensity:
		w.step = StepBodyPart
	}
}

// Submit sends the entry with the given questionnaire answers.
// On success the wizard resets for a new entry; on failure all input is kept
// so the user can retry. A retry carrying the same body part, level and
// answers reuses the idempotency key; an edited one gets a fresh key.
func (w *Wizard) Submit(ctx context.Context, answers *models.Questionnaire) (*Outcome, error) {
	if w.step != StepQuestionnaire {
		return nil, fmt.Errorf("submit: %w", ErrWrongStep)
	}
	if answers == nil || answers.Symptoms == "" || answers.Duration == "" {
		return nil, &SubmitError{Notice: NoticeMissingAnswers, Err: ErrMissingAnswers}
	}

	formData, err := answers.Marshal()
	if err != nil {
		return nil, &SubmitError{Notice: NoticeRejected, Err: err}
	}

	sub := Submission{
		BodyPart:  w.bodyPart,
		PainLevel: w.painLevel,
		FormData:  formData,
	}
	if w.pending != nil && !w.pending.samePayload(sub) {
		w.key = uuid.NewString()
	}
	sub.IdempotencyKey = w.key

	entry, err := w.submitter.Submit(ctx, sub)
	if err != nil {
		w.pending = &sub
		notice := NoticeRejected
		if errors.Is(err, ErrTransport) {
			notice = NoticeNoConnection
		}
		return nil, &SubmitError{Notice: notice, Err: err}
	}

	w.reset()
	return &Outcome{Entry: entry, Notice: NoticeSaved, Redirect: RedirectHistory}, nil
}

func (w *Wizard) reset() {
	w.step = StepBodyPart
	w.bodyPart = ""
	w.painLevel = 0
	w.key = uuid.NewString()
	w.pending = nil
}

func (s Submission) samePayload(o Submission) bool {
	return s.BodyPart == o.BodyPart &&
		s.PainLevel == o.PainLevel &&
		bytes.Equal(s.FormData, o.FormData)
}
