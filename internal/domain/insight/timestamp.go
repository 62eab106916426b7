package insight

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTimestamp renders a caption offset as MM:SS. Minutes are not wrapped
// into hours, so 3661000ms renders as "61:01".
func FormatTimestamp(offsetMs int64) string {
	if offsetMs < 0 {
		offsetMs = 0
	}
	minutes := offsetMs / 60000
	seconds := (offsetMs % 60000) / 1000
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// ParseTimestamp returns the number of seconds in an MM:SS timestamp.
func ParseTimestamp(ts string) (int, error) {
	mm, ss, ok := strings.Cut(strings.TrimSpace(ts), ":")
	if !ok {
		return 0, fmt.Errorf("timestamp %q: want MM:SS", ts)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("timestamp %q: bad minutes", ts)
	}
	seconds, err := strconv.Atoi(ss)
	if err != nil || seconds < 0 || seconds > 59 || len(ss) != 2 {
		return 0, fmt.Errorf("timestamp %q: bad seconds", ts)
	}
	return minutes*60 + seconds, nil
}
