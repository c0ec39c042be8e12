package models

// Outcome tells the caller what the gate did with a submission.
type Outcome string

// Gate outcomes.
const (
	OutcomeApplied         Outcome = "applied"
	OutcomeSubmitted       Outcome = "submitted"
	OutcomeUnderModeration Outcome = "under_moderation"
)

// Notice returns the user-visible message for the outcome.
func (o Outcome) Notice() string {
	switch o {
	case OutcomeApplied:
		return "Your changes have been saved."
	case OutcomeSubmitted:
		return "Your changes have been submitted and will be published after review by a moderator."
	case OutcomeUnderModeration:
		return "This record already has changes awaiting review; try again once a moderator has resolved them."
	}

	return ""
}

// SubmitResult is returned by the gate for applied and submitted outcomes.
type SubmitResult struct {
	Outcome Outcome           `json:"outcome"`
	Notice  string            `json:"notice"`
	Entity  Entity            `json:"entity,omitempty"`
	Record  *ModerationRecord `json:"record,omitempty"`
}

// NewSubmitResult builds a SubmitResult with the notice for o.
func NewSubmitResult(o Outcome, e Entity, rec *ModerationRecord) *SubmitResult {
	return &SubmitResult{Outcome: o, Notice: o.Notice(), Entity: e, Record: rec}
}
