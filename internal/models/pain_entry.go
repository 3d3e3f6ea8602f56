// ABOUTME: PainEntry and TreatmentForm models for diary records.
// ABOUTME: An entry optionally carries one questionnaire stored as raw JSON.
package models

import (
	"encoding/json"
	"time"
)

// Pain level bounds for the 0-10 intensity scale.
const (
	MinPainLevel = 0
	MaxPainLevel = 10
)

// IsValidPainLevel reports whether level is on the 0-10 scale.
func IsValidPainLevel(level int) bool {
	return level >= MinPainLevel && level <= MaxPainLevel
}

// PainDescription returns the verbal description shown next to a pain level.
func PainDescription(level int) string {
	switch {
	case level <= 0:
		return "Sem dor"
	case level <= 3:
		return "Dor leve"
	case level <= 6:
		return "Dor moderada"
	case level <= 8:
		return "Dor intensa"
	default:
		return "Dor muito intensa"
	}
}

// PainEntry records one body region and intensity at a point in time.
type PainEntry struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"userId"`
	BodyPart       BodyPart       `json:"bodyPart"`
	PainLevel      int            `json:"painLevel"`
	CreatedAt      time.Time      `json:"createdAt"`
	IdempotencyKey *string        `json:"idempotencyKey,omitempty"`
	TreatmentForm  *TreatmentForm `json:"treatmentForm"`
}

// TreatmentForm holds the questionnaire answers linked to one pain entry.
// FormData is kept verbatim so unknown keys survive a round trip.
type TreatmentForm struct {
	ID          int64           `json:"id"`
	PainEntryID int64           `json:"painEntryId"`
	FormData    json.RawMessage `json:"formData"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewPainEntry creates a PainEntry with the current timestamp.
func NewPainEntry(userID int64, bodyPart BodyPart, painLevel int) *PainEntry {
	return &PainEntry{
		UserID:    userID,
		BodyPart:  bodyPart,
		PainLevel: painLevel,
		CreatedAt: time.Now().UTC(),
	}
}

// WithForm attaches questionnaire answers to the entry.
func (e *PainEntry) WithForm(formData json.RawMessage) *PainEntry {
	e.TreatmentForm = &TreatmentForm{
		FormData:  formData,
		CreatedAt: e.CreatedAt,
	}
	return e
}

// WithIdempotencyKey sets the client-supplied submission key.
func (e *PainEntry) WithIdempotencyKey(key string) *PainEntry {
	e.IdempotencyKey = &key
	return e
}

// WithCreatedAt sets a custom creation timestamp (used by seeding and import).
func (e *PainEntry) WithCreatedAt(t time.Time) *PainEntry {
	e.CreatedAt = t.UTC()
	if e.TreatmentForm != nil {
		e.TreatmentForm.CreatedAt = e.CreatedAt
	}
	return e
}

// Questionnaire decodes the attached form, or returns nil when there is no
// form or the stored blob is not a JSON object.
func (e *PainEntry) Questionnaire() *Questionnaire {
	if e.TreatmentForm == nil {
		return nil
	}
	q, err := ParseQuestionnaire(e.TreatmentForm.FormData)
	if err != nil {
		return nil
	}
	return q
}

// Questionnaire is the typed view of the known treatment form fields.
type Questionnaire struct {
	Symptoms           string `json:"symptoms,omitempty"`
	Duration           string `json:"duration,omitempty"`
	Triggers           string `json:"triggers,omitempty"`
	PreviousTreatments string `json:"previousTreatments,omitempty"`
	Medications        string `json:"medications,omitempty"`
	Notes              string `json:"notes,omitempty"`

	// Follow-up monitoring fields
	PainComparison  string `json:"painComparison,omitempty"`
	PainPattern     string `json:"painPattern,omitempty"`
	PainType        string `json:"painType,omitempty"`
	PainRelief      string `json:"painRelief,omitempty"`
	PainWorse       string `json:"painWorse,omitempty"`
	Interference    string `json:"interference,omitempty"`
	SleepQuality    string `json:"sleepQuality,omitempty"`
	ExercisesDone   string `json:"exercisesDone,omitempty"`
	ExercisesEffect string `json:"exercisesEffect,omitempty"`
}

// ParseQuestionnaire decodes raw form data into its typed view.
func ParseQuestionnaire(raw json.RawMessage) (*Questionnaire, error) {
	var q Questionnaire
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Marshal encodes the questionnaire as form data, omitting empty answers.
func (q *Questionnaire) Marshal() (json.RawMessage, error) {
	return json.Marshal(q)
}
