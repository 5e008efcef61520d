package domain

// EpisodePhase is the position of an episode in the stepper's state machine.
type EpisodePhase string

const (
	PhaseReady        EpisodePhase = "ready"        // Reset done, no action written yet
	PhaseAccumulating EpisodePhase = "accumulating" // At least one action written, more expected
	PhaseTerminal     EpisodePhase = "terminal"     // Final action written and rewarded
)

// EpisodeState is the snapshot of the current episode.
type EpisodeState struct {
	// Episode counts resets since the stepper was created.
	Episode int `json:"episode"`

	// TruncationIndex selects the truncation (and its occurrence) for this episode.
	TruncationIndex int `json:"truncation_index"`

	// IntraStep is the number of actions written so far, minus the final one.
	IntraStep int `json:"intra_step"`

	Phase EpisodePhase `json:"phase"`

	// Terminated mirrors Phase == PhaseTerminal.
	Terminated bool `json:"terminated"`

	// GlobalStep is the total number of Step calls accepted.
	GlobalStep int `json:"global_step"`
}

// StepResult is the outcome of one Step.
type StepResult struct {
	Observation []float64      `json:"observation"`
	Reward      []float64      `json:"reward"`
	Terminated  bool           `json:"terminated"`
	Truncated   bool           `json:"truncated"`
	Info        map[string]any `json:"info,omitempty"`
}
