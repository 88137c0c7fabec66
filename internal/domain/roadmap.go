package domain

// Roadmap confidence levels. Low means no phase markers were found and the
// phases are a generic fallback.
const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// RoadmapPhase is one stage parsed from model output.
type RoadmapPhase struct {
	Number   int      `json:"number"`
	Title    string   `json:"title"`
	Duration string   `json:"duration,omitempty"`
	Items    []string `json:"items"`
}

// Roadmap is the best-effort structured view of a generated learning plan.
type Roadmap struct {
	Goal       string         `json:"goal"`
	Raw        string         `json:"raw"`
	Phases     []RoadmapPhase `json:"phases"`
	Milestones []string       `json:"milestones"`
	Confidence string         `json:"confidence"`
}
