// Package report renders a student's progress report: a paginated PDF built
// from the student's topics, practice exams and coach notes, and an XLSX
// workbook with the same data in tabular form.
package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Source provides the collections a report is built from.
type Source interface {
	GetTopics(ctx context.Context, studentID string) ([]progress.Topic, error)
	GetExams(ctx context.Context, studentID string) ([]progress.Exam, error)
}

// Section names an optional part of the report.
type Section string

const (
	SectionTopics Section = "topics"
	SectionExams  Section = "exams"
	SectionNotes  Section = "notes"
)

// Report text.
const (
	ReportTitle     = "TYT-AYT Öğrenci Raporu"
	topicsHeader    = "Konu İlerlemesi"
	examsHeader     = "Deneme Sonuçları"
	notesHeader     = "Coach Notları"
	glyphCompleted  = "[x]"
	glyphInProgress = "[~]"
	glyphNotStarted = "[ ]"
)

// Result is a rendered report.
type Result struct {
	Bytes       []byte
	Filename    string
	ContentType string

	// Pages is the page count, or the sheet count of a workbook.
	Pages int

	// Sections lists the optional sections that were written, in order.
	Sections []Section

	// SectionErrors holds the fetch error of every section that was left
	// out because its data could not be loaded.
	SectionErrors map[Section]error

	GeneratedAt time.Time
}

// HasSection reports whether s was written.
func (r *Result) HasSection(s Section) bool {
	for _, have := range r.Sections {
		if have == s {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// Generator renders PDF reports. It keeps no per-report state and is safe
// for concurrent use.
type Generator struct {
	source     Source
	thresholds Thresholds
	dates      timeutil.DateFormatter
	now        func() time.Time
	newCanvas  func() Canvas
	logger     *slog.Logger
	fontDir    string
}

// Option configures a Generator.
type Option func(*Generator)

// WithThresholds overrides the page geometry.
func WithThresholds(th Thresholds) Option {
	return func(g *Generator) { g.thresholds = th }
}

// WithLocale sets the locale of the footer date, e.g. "tr-TR".
func WithLocale(locale string, loc *time.Location) Option {
	return func(g *Generator) { g.dates = timeutil.NewDateFormatter(locale, loc) }
}

// WithClock sets the time source of the footer date.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithFontDir sets the directory of the UTF-8 fonts.
func WithFontDir(dir string) Option {
	return func(g *Generator) { g.fontDir = dir }
}

// WithCanvas replaces the PDF canvas, one fresh canvas per report.
func WithCanvas(newCanvas func() Canvas) Option {
	return func(g *Generator) { g.newCanvas = newCanvas }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator creates a Generator reading from source.
func NewGenerator(source Source, opts ...Option) *Generator {
	g := &Generator{
		source:     source,
		thresholds: DefaultThresholds(),
		dates:      timeutil.NewDateFormatter("tr-TR", timeutil.IstanbulTZ),
		now:        timeutil.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.newCanvas == nil {
		g.newCanvas = func() Canvas {
			return NewPDFCanvas(PDFOptions{FontDir: g.fontDir, Title: ReportTitle, Author: "coach-hub", Logger: g.logger})
		}
	}
	return g
}

// Data holds the outcome of both fetches. A collection whose fetch failed
// has its error set and is left out of the report.
type Data struct {
	Topics    []progress.Topic
	TopicsErr error
	Exams     []progress.Exam
	ExamsErr  error
}

// Generate fetches the data of studentID and renders the PDF report of
// student. A collection that cannot be loaded is logged and its section
// left out. Only a failure to produce the document is returned as an error.
func (g *Generator) Generate(ctx context.Context, student progress.Student, studentID string) (*Result, error) {
	return g.Render(ctx, student, studentID, g.Fetch(ctx, studentID))
}

// Render builds the PDF report of student from already fetched data.
func (g *Generator) Render(ctx context.Context, student progress.Student, studentID string, data *Data) (*Result, error) {
	generatedAt := g.now()

	canvas := g.newCanvas()
	layout := NewLayout(canvas, g.thresholds)

	g.writeIdentity(layout, student)

	result := &Result{
		Filename:      Filename(student, FormatPDF),
		ContentType:   FormatPDF.ContentType(),
		SectionErrors: map[Section]error{},
		GeneratedAt:   generatedAt,
	}

	if data.TopicsErr != nil {
		result.SectionErrors[SectionTopics] = data.TopicsErr
	} else if g.writeTopics(layout, data.Topics) {
		result.Sections = append(result.Sections, SectionTopics)
	}

	if data.ExamsErr != nil {
		result.SectionErrors[SectionExams] = data.ExamsErr
	} else if g.writeExams(layout, data.Exams) {
		result.Sections = append(result.Sections, SectionExams)
	}

	if g.writeNotes(layout, canvas, student.Notes) {
		result.Sections = append(result.Sections, SectionNotes)
	}

	g.writeFooters(layout, generatedAt)

	var buf bytes.Buffer
	if err := canvas.Output(&buf); err != nil {
		return nil, shared.WrapError("report", "Generate", shared.ErrRender, "could not write pdf", err)
	}

	result.Bytes = buf.Bytes()
	result.Pages = layout.Pages()

	g.logger.Info("report generated",
		"student_id", studentID,
		"pages", result.Pages,
		"sections", result.Sections,
		"bytes", len(result.Bytes),
	)
	return result, nil
}

// Fetch loads topics and exams concurrently. Errors are recorded per
// collection and never cancel the other fetch.
func (g *Generator) Fetch(ctx context.Context, studentID string) *Data {
	var data Data
	var eg errgroup.Group

	eg.Go(func() error {
		data.Topics, data.TopicsErr = g.source.GetTopics(ctx, studentID)
		if data.TopicsErr != nil {
			g.logger.Warn("topics fetch failed, section skipped",
				"student_id", studentID, "section", SectionTopics, "error", data.TopicsErr)
		}
		return nil
	})
	eg.Go(func() error {
		data.Exams, data.ExamsErr = g.source.GetExams(ctx, studentID)
		if data.ExamsErr != nil {
			g.logger.Warn("exams fetch failed, section skipped",
				"student_id", studentID, "section", SectionExams, "error", data.ExamsErr)
		}
		return nil
	})

	_ = eg.Wait()
	return &data
}

// ══════════════════════════════════════════════════════════════════════════════
// SECTIONS
// ══════════════════════════════════════════════════════════════════════════════

func (g *Generator) writeIdentity(l *Layout, s progress.Student) {
	th := g.thresholds

	l.WriteLine(Line{Text: ReportTitle, X: th.CenterX, Align: AlignCenter, Style: styleTitle, After: titleAdvance})

	identity := []string{
		"Öğrenci: " + s.FullName(),
		"Bölüm: " + s.Program,
	}
	if s.Target != "" {
		identity = append(identity, "Hedef Sıralama: "+s.Target)
	}
	for _, text := range identity {
		l.WriteLine(Line{Text: text, X: th.LeftMargin, Style: styleBody, After: identityAdvance})
	}
	l.Skip(identityGap)
}

// writeTopics writes the completion summary and one block per subject in
// first-seen order. An empty collection writes nothing.
func (g *Generator) writeTopics(l *Layout, topics []progress.Topic) bool {
	if len(topics) == 0 {
		return false
	}
	th := g.thresholds

	l.WriteLine(Line{Text: topicsHeader, X: th.LeftMargin, Style: styleHeader, After: headerAdvance})
	l.WriteLine(Line{
		Text:  "Tamamlanan: " + progress.Summarize(topics).String(),
		X:     th.LeftMargin,
		Style: styleSmall,
		After: summaryAdvance,
	})

	for _, group := range progress.GroupTopicsBySubject(topics) {
		l.WriteLine(Line{Text: group.Key, X: th.LeftMargin, Style: styleSubject, Threshold: th.SubjectBreak, After: subjectAdvance})
		for _, t := range group.Items {
			l.WriteLine(Line{Text: "  " + Glyph(t.Status) + " " + t.Title, X: th.TopicIndent, Style: styleSmall, After: topicAdvance})
		}
		l.Skip(groupGap)
	}
	return true
}

// writeExams writes at most MaxExams records in the order they were fetched.
func (g *Generator) writeExams(l *Layout, exams []progress.Exam) bool {
	if len(exams) == 0 {
		return false
	}
	th := g.thresholds

	l.WriteLine(Line{Text: examsHeader, X: th.LeftMargin, Style: styleHeader, Threshold: th.ExamsBreak, Before: sectionGap, After: headerAdvance})

	if th.MaxExams > 0 && len(exams) > th.MaxExams {
		exams = exams[:th.MaxExams]
	}
	for _, e := range exams {
		l.WriteLine(Line{Text: ExamLine(e), X: th.LeftMargin, Style: styleSmall, After: examAdvance})
	}
	return true
}

func (g *Generator) writeNotes(l *Layout, canvas Canvas, notes string) bool {
	measure := func(s string) float64 { return canvas.TextWidth(s, styleSmall) }
	lines := Wrap(notes, g.thresholds.WrapWidth, measure)
	if len(lines) == 0 {
		return false
	}
	th := g.thresholds

	l.WriteLine(Line{Text: notesHeader, X: th.LeftMargin, Style: styleHeader, Threshold: th.NotesBreak, Before: sectionGap, After: headerAdvance})
	for _, line := range lines {
		l.WriteLine(Line{Text: line, X: th.LeftMargin, Style: styleSmall, After: noteAdvance})
	}
	return true
}

func (g *Generator) writeFooters(l *Layout, generatedAt time.Time) {
	th := g.thresholds
	date := "Oluşturulma: " + g.dates.Format(generatedAt)

	l.EachPage(func(page, total int) {
		l.canvas.Text(th.CenterX, th.FooterPageY, fmt.Sprintf("Sayfa %d / %d", page, total), styleFooter, AlignCenter)
		l.canvas.Text(th.CenterX, th.FooterDateY, date, styleFooter, AlignCenter)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// FORMATTING
// ══════════════════════════════════════════════════════════════════════════════

// Glyph returns the status marker written before a topic.
func Glyph(s progress.TopicStatus) string {
	switch s {
	case progress.StatusCompleted:
		return glyphCompleted
	case progress.StatusInProgress:
		return glyphInProgress
	default:
		return glyphNotStarted
	}
}

// ExamLine formats "date - exam type - subject: net net".
func ExamLine(e progress.Exam) string {
	return fmt.Sprintf("%s - %s - %s: %.2f net", e.Date, e.ExamType, e.Subject, e.Net)
}

// Filename returns "<name>_<surname>_rapor.<ext>". An empty surname leaves
// the double underscore in place.
func Filename(s progress.Student, f Format) string {
	return fmt.Sprintf("%s_%s_rapor.%s", s.Name, s.Surname, f.Extension())
}
