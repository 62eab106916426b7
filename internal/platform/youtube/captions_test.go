package youtube

import (
	"context"
	"errors"
	"testing"

	kkyoutube "github.com/kkdai/youtube/v2"

	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

type fakeTranscriptClient struct {
	videoErr      error
	transcriptErr error
	segments      kkyoutube.VideoTranscript
	gotLang       string
	calls         int
}

func (f *fakeTranscriptClient) GetVideoContext(ctx context.Context, id string) (*kkyoutube.Video, error) {
	f.calls++
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return &kkyoutube.Video{ID: id}, nil
}

func (f *fakeTranscriptClient) GetTranscriptCtx(ctx context.Context, video *kkyoutube.Video, lang string) (kkyoutube.VideoTranscript, error) {
	f.gotLang = lang
	if f.transcriptErr != nil {
		return nil, f.transcriptErr
	}
	return f.segments, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestCaptionSourceFetchOrdersAndTrims(t *testing.T) {
	fake := &fakeTranscriptClient{segments: kkyoutube.VideoTranscript{
		{Text: " World ", StartMs: 95000},
		{Text: "", StartMs: 50000},
		{Text: "Hello", StartMs: 0},
	}}
	src := newCaptionSource(testLogger(t), fake, "")

	got, err := src.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []Caption{{OffsetMs: 0, Text: "Hello"}, {OffsetMs: 95000, Text: "World"}}
	if len(got) != len(want) {
		t.Fatalf("Fetch: got %d captions want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Fetch[%d]: got=%+v want=%+v", i, got[i], want[i])
		}
	}
	if fake.gotLang != "en" {
		t.Fatalf("Fetch: default language=%q want en", fake.gotLang)
	}
}

func TestCaptionSourceFetchUnavailable(t *testing.T) {
	cases := map[string]*fakeTranscriptClient{
		"private":  {videoErr: kkyoutube.ErrVideoPrivate},
		"disabled": {transcriptErr: kkyoutube.ErrTranscriptDisabled},
		"empty":    {segments: kkyoutube.VideoTranscript{}},
	}
	for name, fake := range cases {
		t.Run(name, func(t *testing.T) {
			src := newCaptionSource(testLogger(t), fake, "en")
			if _, err := src.Fetch(context.Background(), "dQw4w9WgXcQ"); !errors.Is(err, ErrCaptionUnavailable) {
				t.Fatalf("Fetch: want ErrCaptionUnavailable, got %v", err)
			}
		})
	}
}

func TestCaptionSourceRejectsBadKeyWithoutNetwork(t *testing.T) {
	fake := &fakeTranscriptClient{}
	src := newCaptionSource(testLogger(t), fake, "en")
	if _, err := src.Fetch(context.Background(), "https://vimeo.com/1"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("Fetch: want ErrInvalidIdentifier, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("Fetch: upstream called %d times for invalid key", fake.calls)
	}
}
