package timeutil

import (
	"time"

	"golang.org/x/text/language"
)

// localeLayouts maps supported locales to their short numeric date layout,
// mirroring what toLocaleDateString produces for them.
var localeLayouts = []struct {
	tag    language.Tag
	layout string
}{
	{language.Turkish, FormatTurkishDate},
	{language.AmericanEnglish, "1/2/2006"},
	{language.BritishEnglish, "02/01/2006"},
	{language.German, "2.1.2006"},
	{language.Russian, "02.01.2006"},
}

var localeMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(localeLayouts))
	for i, l := range localeLayouts {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// DateFormatter formats dates for a locale in a fixed location.
type DateFormatter struct {
	layout   string
	location *time.Location
}

// NewDateFormatter resolves a BCP 47 locale (e.g. "tr-TR") to a date layout.
// Unknown or malformed locales fall back to Turkish.
func NewDateFormatter(locale string, loc *time.Location) DateFormatter {
	if loc == nil {
		loc = IstanbulTZ
	}

	layout := FormatTurkishDate
	if tag, err := language.Parse(locale); err == nil {
		_, idx, conf := localeMatcher.Match(tag)
		if conf != language.No {
			layout = localeLayouts[idx].layout
		}
	}

	return DateFormatter{layout: layout, location: loc}
}

// Format formats t as a short date.
func (f DateFormatter) Format(t time.Time) string {
	return t.In(f.location).Format(f.layout)
}

// Layout returns the resolved layout.
func (f DateFormatter) Layout() string {
	return f.layout
}
