package prompts

import (
	"fmt"
	"sync"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
)

var (
	registry     = map[PromptName]Template{}
	registryOnce sync.Once
)

func Register(t Template) {
	registry[t.Name] = t
}

func ensureRegistered() {
	registryOnce.Do(RegisterAll)
}

// Build renders a registered prompt.
func Build(name PromptName, in Input) (string, error) {
	ensureRegistered()
	t, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return "", fmt.Errorf("%s: %w", string(name), err)
		}
	}
	return t.Render(in), nil
}

// BuildPrompt renders the prompt for kind and variant over captions.
func BuildPrompt(kind types.Kind, captions []types.Caption, variant Variant) (string, error) {
	name, err := NameFor(kind, variant)
	if err != nil {
		return "", err
	}
	return Build(name, InputFromCaptions(captions))
}
