package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
)

const (
	ReasonMalformedJSON   = "malformed-json"
	ReasonSchemaViolation = "schema-violation"
)

// ValidationError reports generated text that could not be used. Field is
// set for schema violations, e.g. "main_points[1].title".
type ValidationError struct {
	Reason string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "validation: " + e.Reason
	if e.Field != "" {
		msg += " at " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func schemaViolation(field string) *ValidationError {
	return &ValidationError{Reason: ReasonSchemaViolation, Field: field}
}

// Parsed is a validated generation result. Exactly one of Summary or Topics
// is set, matching Kind.
type Parsed struct {
	Kind    types.Kind
	Summary *types.SummaryResult
	Topics  []types.Topic
}

// StripCodeFence removes a markdown code fence wrapped around a payload,
// e.g. "```json\n{...}\n```".
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
			if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
				s = s[4:]
			}
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func Validate(raw string, kind types.Kind) (*Parsed, error) {
	body := StripCodeFence(raw)
	if body == "" {
		return nil, &ValidationError{Reason: ReasonMalformedJSON, Err: errors.New("empty response")}
	}

	switch kind {
	case types.KindSummary:
		var out types.SummaryResult
		if err := decode(body, &out); err != nil {
			return nil, err
		}
		if err := checkSummary(&out); err != nil {
			return nil, err
		}
		return &Parsed{Kind: kind, Summary: &out}, nil
	case types.KindTopics:
		var out struct {
			Topics []types.Topic `json:"topics"`
		}
		if err := decode(body, &out); err != nil {
			return nil, err
		}
		if err := checkTopics(out.Topics); err != nil {
			return nil, err
		}
		return &Parsed{Kind: kind, Topics: out.Topics}, nil
	}
	return nil, fmt.Errorf("unknown insight kind %q", kind)
}

func decode(body string, out interface{}) error {
	err := json.Unmarshal([]byte(body), out)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "$"
		}
		return &ValidationError{Reason: ReasonSchemaViolation, Field: field, Err: err}
	}
	return &ValidationError{Reason: ReasonMalformedJSON, Err: err}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func checkSummary(r *types.SummaryResult) error {
	if blank(r.Summary) {
		return schemaViolation("summary")
	}
	if len(r.MainPoints) == 0 {
		return schemaViolation("main_points")
	}
	for i, p := range r.MainPoints {
		switch {
		case blank(p.Timestamp):
			return schemaViolation(fmt.Sprintf("main_points[%d].timestamp", i))
		case blank(p.Title):
			return schemaViolation(fmt.Sprintf("main_points[%d].title", i))
		case blank(p.Description):
			return schemaViolation(fmt.Sprintf("main_points[%d].description", i))
		}
	}
	return nil
}

func checkTopics(topics []types.Topic) error {
	if len(topics) == 0 {
		return schemaViolation("topics")
	}
	for i, t := range topics {
		switch {
		case blank(t.Name):
			return schemaViolation(fmt.Sprintf("topics[%d].name", i))
		case blank(t.Description):
			return schemaViolation(fmt.Sprintf("topics[%d].description", i))
		case len(t.Mentions) == 0:
			return schemaViolation(fmt.Sprintf("topics[%d].mentions", i))
		}
		for j, m := range t.Mentions {
			switch {
			case blank(m.Timestamp):
				return schemaViolation(fmt.Sprintf("topics[%d].mentions[%d].timestamp", i, j))
			case blank(m.Context):
				return schemaViolation(fmt.Sprintf("topics[%d].mentions[%d].context", i, j))
			}
		}
	}
	return nil
}
