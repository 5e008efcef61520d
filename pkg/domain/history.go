package domain

import "time"

// EpisodeRecord is one terminal episode kept in the training history.
type EpisodeRecord struct {
	RunID      string    `json:"run_id"`
	Episode    int       `json:"episode"`
	GlobalStep int       `json:"global_step"`
	Truncation int       `json:"truncation"`
	MeanReward float64   `json:"mean_reward"`
	MaxReward  float64   `json:"max_reward"`
	MeanAction []float64 `json:"mean_action"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Summary aggregates the history of a run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Episodes   int       `json:"episodes"`
	BestReward float64   `json:"best_reward"`
	BestAction []float64 `json:"best_action"`
	LastReward float64   `json:"last_reward"`
}

// Summarize computes a Summary over records. The best action belongs to the highest mean reward.
func Summarize(runID string, records []EpisodeRecord) Summary {
	s := Summary{RunID: runID, Episodes: len(records)}
	for i, r := range records {
		if i == 0 || r.MeanReward > s.BestReward {
			s.BestReward = r.MeanReward
			s.BestAction = append([]float64(nil), r.MeanAction...)
		}
		s.LastReward = r.MeanReward
	}
	return s
}
