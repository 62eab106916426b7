package insight

import "fmt"

type Kind string

const (
	KindSummary Kind = "summary"
	KindTopics  Kind = "topics"
)

func (k Kind) Valid() bool {
	return k == KindSummary || k == KindTopics
}

// Other returns the kind whose fields share a record with k.
func (k Kind) Other() Kind {
	if k == KindSummary {
		return KindTopics
	}
	return KindSummary
}

func (k Kind) String() string { return string(k) }

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown insight kind %q", s)
	}
	return k, nil
}

type MainPoint struct {
	Timestamp   string `json:"timestamp"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type TranscriptLine struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type Mention struct {
	Timestamp string `json:"timestamp"`
	Context   string `json:"context"`
}

type Topic struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Mentions    []Mention `json:"mentions"`
}

// SummaryResult is the payload of the summary pipeline.
type SummaryResult struct {
	Summary    string      `json:"summary"`
	MainPoints []MainPoint `json:"main_points"`
}

// TopicResult is the payload of the topic pipeline.
type TopicResult struct {
	Transcript []TranscriptLine `json:"transcript"`
	Topics     []Topic          `json:"topics"`
}

// Caption is one fragment of a video's spoken-text track.
type Caption struct {
	OffsetMs int64
	Text     string
}
