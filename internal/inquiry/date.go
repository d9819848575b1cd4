package inquiry

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en-IN"

// longDateLayouts are the weekday-day-month-year renderings for each
// supported locale. Index order matches dateTags; the first entry is the
// fallback the matcher returns when nothing fits.
var (
	dateTags = []language.Tag{
		language.MustParse("en-IN"),
		language.BritishEnglish,
		language.AmericanEnglish,
	}
	longDateLayouts = []string{
		"Monday, 2 January 2006",
		"Monday 2 January 2006",
		"Monday, January 2, 2006",
	}
	dateMatcher = language.NewMatcher(dateTags)
)

// DateFormatter renders event dates as long localised strings, e.g.
// "Thursday, 25 December 2025" for en-IN.
type DateFormatter struct {
	tag    language.Tag
	layout string
}

// NewDateFormatter parses locale as a BCP 47 tag and picks the closest
// supported layout. An empty locale means DefaultLocale.
func NewDateFormatter(locale string) (*DateFormatter, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	requested, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("inquiry: parse locale %q: %w", locale, err)
	}

	_, idx, conf := dateMatcher.Match(requested)
	if conf == language.No {
		idx = 0
	}
	return &DateFormatter{tag: dateTags[idx], layout: longDateLayouts[idx]}, nil
}

// Locale is the supported tag the formatter settled on.
func (f *DateFormatter) Locale() string {
	return f.tag.String()
}

// Format returns "" for a nil date so callers can omit the line entirely.
func (f *DateFormatter) Format(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(f.layout)
}
