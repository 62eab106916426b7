package prompts

import (
	"strings"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
)

// Input carries the values templates may reference.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// One caption per line as "[MM:SS] text".
	Transcript string
}

func InputFromCaptions(captions []types.Caption) Input {
	return Input{Transcript: RenderTranscript(captions)}
}

func RenderTranscript(captions []types.Caption) string {
	var b strings.Builder
	for i, c := range captions {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		b.WriteString(types.FormatTimestamp(c.OffsetMs))
		b.WriteString("] ")
		b.WriteString(strings.TrimSpace(c.Text))
	}
	return b.String()
}
