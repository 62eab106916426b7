package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Spec is the declaration format used by RegisterAll.
type Spec struct {
	Name    PromptName
	Version int
	// Plain text or a go template using {{.Field}} from Input.
	Text       string
	Validators []Validator
}

type Template struct {
	Name     PromptName
	Version  int
	Render   func(Input) string
	Validate Validator
}

func MakeTemplate(s Spec) (Template, error) {
	if strings.TrimSpace(string(s.Name)) == "" {
		return Template{}, fmt.Errorf("missing prompt name")
	}
	if s.Version <= 0 {
		return Template{}, fmt.Errorf("invalid version for %s", s.Name)
	}
	t, err := template.New(string(s.Name)).Option("missingkey=zero").Parse(s.Text)
	if err != nil {
		return Template{}, fmt.Errorf("%s template parse: %w", s.Name, err)
	}
	tt := Template{
		Name:    s.Name,
		Version: s.Version,
		Render: func(in Input) string {
			var b bytes.Buffer
			_ = t.Execute(&b, in)
			return strings.TrimSpace(b.String())
		},
	}
	if len(s.Validators) > 0 {
		tt.Validate = func(in Input) error {
			for _, v := range s.Validators {
				if v == nil {
					continue
				}
				if err := v(in); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return tt, nil
}

func RegisterSpec(s Spec) {
	t, err := MakeTemplate(s)
	if err != nil {
		panic(err)
	}
	Register(t)
}
