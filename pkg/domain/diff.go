package domain

// SessionDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for logging and partial client updates.
type SessionDiff struct {
	// UserID is always present to identify the target.
	UserID string `json:"user_id"`

	Stage        *Stage           `json:"stage,omitempty"`
	Template     *TemplateSummary `json:"template,omitempty"`
	CurrentIndex *int             `json:"current_index,omitempty"`

	// Selected contains only attributes whose selection changed.
	// A nil value means the selection was cleared.
	Selected map[int64]*int64 `json:"selected,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{UserID: newSession.UserID}

	if oldSession == nil || oldSession.Stage != newSession.Stage {
		stage := newSession.Stage
		diff.Stage = &stage
	}
	if newSession.Template != nil && (oldSession == nil || oldSession.Template == nil ||
		oldSession.Template.ID != newSession.Template.ID) {
		tpl := *newSession.Template
		diff.Template = &tpl
	}
	if oldSession == nil || oldSession.CurrentIndex != newSession.CurrentIndex {
		idx := newSession.CurrentIndex
		diff.CurrentIndex = &idx
	}
	diff.Selected = diffSelected(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffSelected(old, new *Session) map[int64]*int64 {
	before := make(map[int64]*int64)
	if old != nil {
		for _, a := range old.Attributes {
			before[a.ID] = a.Selected
		}
	}

	delta := make(map[int64]*int64)
	seen := make(map[int64]bool, len(new.Attributes))
	for _, a := range new.Attributes {
		seen[a.ID] = true
		prev, existed := before[a.ID]
		if !existed {
			if a.Selected != nil {
				delta[a.ID] = a.Selected
			}
			continue
		}
		if !sameSelection(prev, a.Selected) {
			delta[a.ID] = a.Selected
		}
	}
	for id, prev := range before {
		if !seen[id] && prev != nil {
			delta[id] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func sameSelection(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Stage == nil &&
		d.Template == nil &&
		d.CurrentIndex == nil &&
		len(d.Selected) == 0
}
