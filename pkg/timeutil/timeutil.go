// Package timeutil provides timezone and calendar helpers for the coaching
// platform. Students and coaches are in Turkey, so the default location is
// Europe/Istanbul (UTC+3, no DST since 2016) and weeks start on Monday.
package timeutil

import (
	"fmt"
	"time"
)

// IstanbulTZ is the Istanbul timezone (UTC+3, constant year-round).
var IstanbulTZ = time.FixedZone("Europe/Istanbul", 3*60*60)

// Common layouts.
const (
	// FormatDate is the ISO date layout used by the coach API (2006-01-02).
	FormatDate = "2006-01-02"

	// FormatTurkishDate is the tr-TR short date layout (02.01.2006).
	FormatTurkishDate = "02.01.2006"
)

// Now returns the current time in Istanbul timezone.
func Now() time.Time {
	return time.Now().In(IstanbulTZ)
}

// ToIstanbul converts a time to Istanbul timezone.
func ToIstanbul(t time.Time) time.Time {
	return t.In(IstanbulTZ)
}

// Date creates a time in Istanbul timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, IstanbulTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Istanbul timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToIstanbul(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, IstanbulTZ)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in Istanbul timezone.
func StartOfWeek(t time.Time) time.Time {
	local := ToIstanbul(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(local.AddDate(0, 0, -(weekday - 1)))
}

// EndOfWeek returns the Sunday of the week containing t, at 00:00.
func EndOfWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, 6)
}

// ParseDate parses an API date (YYYY-MM-DD) in Istanbul timezone.
// Full RFC 3339 timestamps are accepted as well.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(FormatDate, value, IstanbulTZ); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse date %q: %w", value, err)
	}
	return ToIstanbul(t), nil
}

// MonthNameTr returns the Turkish month name.
func MonthNameTr(m time.Month) string {
	names := [...]string{
		"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
		"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
	}
	if m < time.January || m > time.December {
		return ""
	}
	return names[m-1]
}

// WeekdayNameTr returns the Turkish weekday name, as used by the task board.
func WeekdayNameTr(d time.Weekday) string {
	names := [...]string{"Pazar", "Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi"}
	return names[d]
}

// WeekRangeTr formats a Monday-start week as "2 Ocak - 8 Ocak 2026".
func WeekRangeTr(weekStart time.Time) string {
	end := weekStart.AddDate(0, 0, 6)
	return fmt.Sprintf("%d %s - %d %s %d",
		weekStart.Day(), MonthNameTr(weekStart.Month()),
		end.Day(), MonthNameTr(end.Month()), end.Year())
}
