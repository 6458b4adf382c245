package readtime

import (
	"strconv"
	"strings"

	"spacetraveling/blog"
)

// DefaultWordsPerMinute is the average reading speed used for estimates.
const DefaultWordsPerMinute = 200

// Estimator computes whole-minute reading times for structured post content.
type Estimator struct {
	wordsPerMinute int
	split          func(string) []string
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithWordsPerMinute overrides the reading speed. Non-positive values are ignored.
func WithWordsPerMinute(wpm int) Option {
	return func(e *Estimator) {
		if wpm > 0 {
			e.wordsPerMinute = wpm
		}
	}
}

// WithCollapsedWhitespace counts words separated by any run of whitespace
// instead of by single spaces.
func WithCollapsedWhitespace() Option {
	return func(e *Estimator) {
		e.split = strings.Fields
	}
}

// New creates an Estimator. By default words are separated by single spaces,
// so consecutive spaces add to the count.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		wordsPerMinute: DefaultWordsPerMinute,
		split:          splitOnSpace,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEstimator = New()

// Estimate formats the reading time of content using the default estimator.
func Estimate(content []blog.ContentBlock) string {
	return defaultEstimator.Estimate(content)
}

// Words returns the total word count across headings and paragraphs.
func (e *Estimator) Words(content []blog.ContentBlock) int {
	total := 0
	for _, block := range content {
		if block.Heading != "" {
			total += len(e.split(block.Heading))
		}
		for _, p := range block.Body {
			total += len(e.split(p.Text))
		}
	}
	return total
}

// Minutes returns the reading time rounded up to a whole minute.
func (e *Estimator) Minutes(content []blog.ContentBlock) int {
	words := e.Words(content)
	return (words + e.wordsPerMinute - 1) / e.wordsPerMinute
}

// Estimate returns the reading time formatted as "<n> min".
func (e *Estimator) Estimate(content []blog.ContentBlock) string {
	return Format(e.Minutes(content))
}

// Format renders minutes the way post pages display them.
func Format(minutes int) string {
	return strconv.Itoa(minutes) + " min"
}

func splitOnSpace(s string) []string {
	return strings.Split(s, " ")
}
