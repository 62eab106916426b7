package insight

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record is the persisted, per-video result of one or both pipeline kinds.
// VideoKey is the normalized video identifier and is unique.
type Record struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VideoKey   string         `gorm:"column:video_key;not null;uniqueIndex" json:"video_key"`
	VideoURL   string         `gorm:"column:video_url;not null" json:"video_url"`
	Summary    string         `gorm:"column:summary" json:"summary,omitempty"`
	MainPoints datatypes.JSON `gorm:"column:main_points" json:"main_points,omitempty"`
	Transcript datatypes.JSON `gorm:"column:transcript" json:"transcript,omitempty"`
	Topics     datatypes.JSON `gorm:"column:topics" json:"topics,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (Record) TableName() string { return "insight_record" }

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Record) DecodeMainPoints() ([]MainPoint, error) {
	var out []MainPoint
	return out, decodeJSON(r.MainPoints, &out)
}

func (r *Record) DecodeTranscript() ([]TranscriptLine, error) {
	var out []TranscriptLine
	return out, decodeJSON(r.Transcript, &out)
}

func (r *Record) DecodeTopics() ([]Topic, error) {
	var out []Topic
	return out, decodeJSON(r.Topics, &out)
}

// ValidFor reports whether the record can be served as a cache hit for kind.
// A record that fails this check is stale for that kind.
func (r *Record) ValidFor(kind Kind) bool {
	if r == nil {
		return false
	}
	switch kind {
	case KindSummary:
		if strings.TrimSpace(r.Summary) == "" {
			return false
		}
		points, err := r.DecodeMainPoints()
		return err == nil && len(points) > 0
	case KindTopics:
		lines, err := r.DecodeTranscript()
		if err != nil || len(lines) == 0 {
			return false
		}
		topics, err := r.DecodeTopics()
		return err == nil && len(topics) > 0
	default:
		return false
	}
}

// EncodeJSON marshals v for a jsonb column. A nil slice is stored as "[]".
func EncodeJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		b = []byte("[]")
	}
	return datatypes.JSON(b), nil
}

func decodeJSON(raw datatypes.JSON, out interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}
