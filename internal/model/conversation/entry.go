package conversation

import "fmt"

// LearningStyle controls how the tutor shapes its explanation.
type LearningStyle string

const (
	StyleVisual     LearningStyle = "visual"
	StyleStepByStep LearningStyle = "step-by-step"
	StyleConcise    LearningStyle = "concise"
)

// Valid reports whether the style is one of the supported values.
func (s LearningStyle) Valid() bool {
	switch s {
	case StyleVisual, StyleStepByStep, StyleConcise:
		return true
	}
	return false
}

// ParseLearningStyle validates a wire value and falls back to visual when empty.
func ParseLearningStyle(raw string) (LearningStyle, error) {
	if raw == "" {
		return StyleVisual, nil
	}
	style := LearningStyle(raw)
	if !style.Valid() {
		return "", fmt.Errorf("unknown learning style %q", raw)
	}
	return style, nil
}

// Entry is one question/answer exchange, possibly extended by follow-ups.
//
// The answer is the only mutable field: follow-up answers are appended to it
// with labeled sub-sections. The diagram always reflects the original
// question's visualization and is never replaced by follow-ups.
type Entry struct {
	ID            int64         `json:"id"`
	Question      string        `json:"question"`
	Answer        string        `json:"answer"`
	Diagram       string        `json:"diagram,omitempty"`
	LearningStyle LearningStyle `json:"learningStyle"`
	IsFollowUp    bool          `json:"isFollowUp"`
}

// FollowUpContext is the snapshot taken from the currently displayed entry
// at the moment the user chooses to follow up. It is transient: built right
// before a submission and cleared once the round trip resolves.
//
// EntryID pins the merge target by stable identifier; the question/answer
// pair is kept as a value-equality fallback for histories hydrated from
// older persisted state that predates id tracking.
type FollowUpContext struct {
	EntryID  int64  `json:"entryId,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Matches reports whether the snapshot points at the given entry.
func (c FollowUpContext) Matches(e Entry) bool {
	if c.EntryID != 0 && c.EntryID == e.ID {
		return true
	}
	return c.Question == e.Question && c.Answer == e.Answer
}
