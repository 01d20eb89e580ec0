package render

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

// innermost {a|b|c} group; resolving innermost first handles nesting.
var spintaxGroup = regexp.MustCompile(`\{([^{}]*)\}`)

// Spinner resolves spintax groups by picking one option per group.
type Spinner struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSpinner returns a Spinner driven by src. A nil src seeds from the clock.
func NewSpinner(src rand.Source) *Spinner {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Spinner{rnd: rand.New(src)}
}

// Spin replaces every {a|b} group in text with one of its options.
// Groups of the form {{key}} are placeholders and are left for ReplacePlaceholders.
func (s *Spinner) Spin(text string) string {
	text = protectPlaceholders(text)
	for {
		loc := spintaxGroup.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		options := strings.Split(text[loc[2]:loc[3]], "|")
		s.mu.Lock()
		choice := options[s.rnd.Intn(len(options))]
		s.mu.Unlock()
		text = text[:loc[0]] + choice + text[loc[1]:]
	}
	return restorePlaceholders(text)
}

var defaultSpinner = NewSpinner(nil)

// Spin resolves spintax with the package-level spinner.
func Spin(text string) string {
	return defaultSpinner.Spin(text)
}

const (
	placeholderOpen  = "\x00PH_OPEN\x00"
	placeholderClose = "\x00PH_CLOSE\x00"
)

func protectPlaceholders(text string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		return placeholderOpen + m[2:len(m)-2] + placeholderClose
	})
}

func restorePlaceholders(text string) string {
	text = strings.ReplaceAll(text, placeholderOpen, "{{")
	return strings.ReplaceAll(text, placeholderClose, "}}")
}
