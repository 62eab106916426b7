package prompts

import (
	"fmt"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
)

type PromptName string

type Variant string

const (
	VariantStrict   Variant = "strict"
	VariantFallback Variant = "fallback"
)

const (
	PromptSummaryStrict   PromptName = "summary_strict"
	PromptSummaryFallback PromptName = "summary_fallback"
	PromptTopicsStrict    PromptName = "topics_strict"
	PromptTopicsFallback  PromptName = "topics_fallback"
)

// NameFor maps a pipeline kind and variant to its registered prompt.
func NameFor(kind types.Kind, variant Variant) (PromptName, error) {
	switch {
	case kind == types.KindSummary && variant == VariantStrict:
		return PromptSummaryStrict, nil
	case kind == types.KindSummary && variant == VariantFallback:
		return PromptSummaryFallback, nil
	case kind == types.KindTopics && variant == VariantStrict:
		return PromptTopicsStrict, nil
	case kind == types.KindTopics && variant == VariantFallback:
		return PromptTopicsFallback, nil
	}
	return "", fmt.Errorf("no prompt for kind=%q variant=%q", kind, variant)
}
