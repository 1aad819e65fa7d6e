package readiness

// TopicEvaluated is published after every successful scoring call.
const TopicEvaluated = "readiness.evaluated"

// EvaluatedPayload is the bus payload for TopicEvaluated.
type EvaluatedPayload struct {
	Score    int      `json:"score"`
	Status   string   `json:"status"`
	TodayRHR int      `json:"today_rhr"`
	Warnings []string `json:"warnings"`
}
