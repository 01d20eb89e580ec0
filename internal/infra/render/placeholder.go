package render

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// ReplacePlaceholders substitutes {{ key }} with values[key].
// Unknown keys are left in place.
func ReplacePlaceholders(text string, values map[string]string) string {
	if text == "" || len(values) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := strings.TrimSpace(m[2 : len(m)-2])
		if v, ok := values[key]; ok {
			return v
		}
		return m
	})
}

// Renderer turns raw template text into message text.
type Renderer struct {
	spinner *Spinner
}

func NewRenderer(spinner *Spinner) *Renderer {
	if spinner == nil {
		spinner = defaultSpinner
	}
	return &Renderer{spinner: spinner}
}

// Render resolves spintax first, then placeholders.
func (r *Renderer) Render(text string, values map[string]string) string {
	return ReplacePlaceholders(r.spinner.Spin(text), values)
}
