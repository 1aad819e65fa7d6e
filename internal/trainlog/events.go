package trainlog

// TopicEntryAppended is published after every successful append.
const TopicEntryAppended = "trainlog.entry.appended"

// EntryAppendedPayload is the bus payload for TopicEntryAppended.
type EntryAppendedPayload struct {
	Day        string  `json:"day"`
	RestingHR  int     `json:"resting_hr"`
	DistanceKm float64 `json:"distance_km"`
	RPE        float64 `json:"rpe"`
	Session    string  `json:"session"`
}
