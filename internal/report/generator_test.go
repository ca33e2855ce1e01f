package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type textOp struct {
	Page  int
	X, Y  float64
	Text  string
	Style Style
	Align Align
}

type recordingCanvas struct {
	pages     int
	current   int
	ops       []textOp
	outputErr error
}

func (c *recordingCanvas) AddPage() {
	c.pages++
	c.current = c.pages
}

func (c *recordingCanvas) SetPage(n int)  { c.current = n }
func (c *recordingCanvas) PageCount() int { return c.pages }

func (c *recordingCanvas) Text(x, y float64, text string, style Style, align Align) {
	c.ops = append(c.ops, textOp{Page: c.current, X: x, Y: y, Text: text, Style: style, Align: align})
}

// TextWidth approximates a proportional font: 0.2mm per point per rune.
func (c *recordingCanvas) TextWidth(text string, style Style) float64 {
	return float64(utf8.RuneCountInString(text)) * style.Size * 0.2
}

func (c *recordingCanvas) Output(w io.Writer) error {
	if c.outputErr != nil {
		return c.outputErr
	}
	_, err := io.WriteString(w, "%PDF-recorded")
	return err
}

func (c *recordingCanvas) texts() []string {
	out := make([]string, len(c.ops))
	for i, op := range c.ops {
		out[i] = op.Text
	}
	return out
}

func (c *recordingCanvas) content(th Thresholds) []textOp {
	var out []textOp
	for _, op := range c.ops {
		if op.Y < th.FooterPageY {
			out = append(out, op)
		}
	}
	return out
}

func (c *recordingCanvas) withPrefix(prefix string) []textOp {
	var out []textOp
	for _, op := range c.ops {
		if strings.HasPrefix(op.Text, prefix) {
			out = append(out, op)
		}
	}
	return out
}

type fakeSource struct {
	topics    []progress.Topic
	topicsErr error
	exams     []progress.Exam
	examsErr  error
}

func (s fakeSource) GetTopics(ctx context.Context, studentID string) ([]progress.Topic, error) {
	return s.topics, s.topicsErr
}

func (s fakeSource) GetExams(ctx context.Context, studentID string) ([]progress.Exam, error) {
	return s.exams, s.examsErr
}

var fixedNow = time.Date(2026, 10, 15, 14, 30, 0, 0, timeutil.IstanbulTZ)

func newTestGenerator(src Source, opts ...Option) (*Generator, *recordingCanvas) {
	canvas := &recordingCanvas{}
	base := []Option{
		WithCanvas(func() Canvas { return canvas }),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewGenerator(src, append(base, opts...)...), canvas
}

func makeExams(n int) []progress.Exam {
	exams := make([]progress.Exam, n)
	for i := range exams {
		exams[i] = progress.Exam{
			Date:     fmt.Sprintf("2024-03-%02d", i+1),
			ExamType: "TYT",
			Subject:  "Matematik",
			Net:      float64(20+i) + 0.25,
		}
	}
	return exams
}

// ══════════════════════════════════════════════════════════════════════════════
// SCENARIOS
// ══════════════════════════════════════════════════════════════════════════════

func TestGenerate_SingleSubjectNoExamsNoNotes(t *testing.T) {
	src := fakeSource{topics: []progress.Topic{
		{Subject: "Matematik", Title: "Sayılar", Status: progress.StatusCompleted},
		{Subject: "Matematik", Title: "Problemler", Status: progress.StatusCompleted},
		{Subject: "Matematik", Title: "Türev", Status: progress.StatusInProgress},
		{Subject: "Matematik", Title: "İntegral", Status: progress.StatusNotStarted},
	}}
	gen, canvas := newTestGenerator(src)

	res, err := gen.Generate(context.Background(), progress.Student{Name: "Ayşe", Surname: "Yılmaz", Program: "Sayısal"}, "s1")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []Section{SectionTopics}, res.Sections)
	assert.Empty(t, res.SectionErrors)
	assert.Equal(t, "Ayşe_Yılmaz_rapor.pdf", res.Filename)
	assert.Equal(t, "application/pdf", res.ContentType)

	assert.Equal(t, []string{
		"TYT-AYT Öğrenci Raporu",
		"Öğrenci: Ayşe Yılmaz",
		"Bölüm: Sayısal",
		"Konu İlerlemesi",
		"Tamamlanan: 2 / 4 (50%)",
		"Matematik",
		"  [x] Sayılar",
		"  [x] Problemler",
		"  [~] Türev",
		"  [ ] İntegral",
		"Sayfa 1 / 1",
		"Oluşturulma: 15.10.2026",
	}, canvas.texts())

	subject := canvas.withPrefix("Matematik")
	require.Len(t, subject, 1)
	assert.True(t, subject[0].Style.Bold)
	assert.Equal(t, 74.0, subject[0].Y)

	title := canvas.ops[0]
	assert.Equal(t, AlignCenter, title.Align)
	assert.Equal(t, 105.0, title.X)
	assert.Equal(t, 20.0, title.Y)
}

func TestGenerate_TopicsFetchFailsExamsSucceed(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	src := fakeSource{topicsErr: netErr, exams: makeExams(3)}
	gen, canvas := newTestGenerator(src)

	res, err := gen.Generate(context.Background(), progress.Student{Name: "Mehmet", Program: "EA"}, "s2")
	require.NoError(t, err)

	assert.Equal(t, []Section{SectionExams}, res.Sections)
	assert.ErrorIs(t, res.SectionErrors[SectionTopics], netErr)
	assert.False(t, res.HasSection(SectionTopics))

	assert.Contains(t, canvas.texts(), "Öğrenci: Mehmet")
	assert.NotContains(t, canvas.texts(), "Konu İlerlemesi")
	assert.Len(t, canvas.withPrefix("Deneme Sonuçları"), 1)
	assert.Len(t, canvas.withPrefix("2024-03-"), 3)
	assert.Equal(t, "2024-03-01 - TYT - Matematik: 20.25 net", canvas.withPrefix("2024-03-")[0].Text)
	assert.Len(t, canvas.withPrefix("Sayfa "), 1)
}

func TestGenerate_NotesOnly(t *testing.T) {
	gen, canvas := newTestGenerator(fakeSource{topics: []progress.Topic{}, exams: []progress.Exam{}})

	res, err := gen.Generate(context.Background(), progress.Student{Name: "Zeynep", Program: "Sözel", Notes: "Çalışmaya devam et."}, "s3")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []Section{SectionNotes}, res.Sections)
	assert.Equal(t, "Zeynep__rapor.pdf", res.Filename)
	assert.Equal(t, []string{
		"TYT-AYT Öğrenci Raporu",
		"Öğrenci: Zeynep",
		"Bölüm: Sözel",
		"Coach Notları",
		"Çalışmaya devam et.",
		"Sayfa 1 / 1",
		"Oluşturulma: 15.10.2026",
	}, canvas.texts())
}

func TestGenerate_TargetLineOnlyWhenSet(t *testing.T) {
	gen, canvas := newTestGenerator(fakeSource{})
	_, err := gen.Generate(context.Background(), progress.Student{Name: "Can", Program: "Sayısal", Target: "5000"}, "s4")
	require.NoError(t, err)

	target := canvas.withPrefix("Hedef Sıralama: ")
	require.Len(t, target, 1)
	assert.Equal(t, "Hedef Sıralama: 5000", target[0].Text)
	assert.Equal(t, 51.0, target[0].Y)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROPERTIES
// ══════════════════════════════════════════════════════════════════════════════

func TestGenerate_AtMostFiveExamsInFetchOrder(t *testing.T) {
	gen, canvas := newTestGenerator(fakeSource{exams: makeExams(8)})

	_, err := gen.Generate(context.Background(), progress.Student{Name: "Ali"}, "s5")
	require.NoError(t, err)

	lines := canvas.withPrefix("2024-03-")
	require.Len(t, lines, 5)
	for i, op := range lines {
		assert.True(t, strings.HasPrefix(op.Text, fmt.Sprintf("2024-03-%02d", i+1)))
	}
}

func TestGenerate_NoExamHeaderWithoutExams(t *testing.T) {
	gen, canvas := newTestGenerator(fakeSource{exams: nil})

	res, err := gen.Generate(context.Background(), progress.Student{Name: "Ali"}, "s6")
	require.NoError(t, err)

	assert.Empty(t, canvas.withPrefix("Deneme Sonuçları"))
	assert.False(t, res.HasSection(SectionExams))
}

func TestGenerate_PageBreakAndFooterInvariants(t *testing.T) {
	var topics []progress.Topic
	statuses := []progress.TopicStatus{progress.StatusCompleted, progress.StatusInProgress, progress.StatusNotStarted}
	for s := 0; s < 9; s++ {
		for i := 0; i < 3+s*3; i++ {
			topics = append(topics, progress.Topic{
				Subject: fmt.Sprintf("Ders %d", s),
				Title:   fmt.Sprintf("Konu %d.%d", s, i),
				Status:  statuses[(s+i)%3],
			})
		}
	}
	notes := strings.Repeat("Her gün düzenli tekrar yap ve deneme sonrası yanlışlarını analiz et. ", 40)

	gen, canvas := newTestGenerator(fakeSource{topics: topics, exams: makeExams(12)})
	res, err := gen.Generate(context.Background(), progress.Student{Name: "Elif", Notes: notes}, "s7")
	require.NoError(t, err)

	th := DefaultThresholds()
	require.Greater(t, res.Pages, 1)
	assert.Equal(t, []Section{SectionTopics, SectionExams, SectionNotes}, res.Sections)

	content := canvas.content(th)
	assert.Len(t, content, len(canvas.ops)-2*res.Pages)
	for _, op := range content {
		assert.LessOrEqual(t, op.Y, th.MaxContentY(), "line %q", op.Text)
		assert.GreaterOrEqual(t, op.Y, th.TopMargin, "line %q", op.Text)
		assert.GreaterOrEqual(t, op.Page, 1)
		assert.LessOrEqual(t, op.Page, res.Pages)

		switch {
		case strings.HasPrefix(op.Text, "Ders "):
			assert.LessOrEqual(t, op.Y, th.SubjectBreak, "subject %q", op.Text)
		case strings.HasPrefix(op.Text, "  ["):
			assert.LessOrEqual(t, op.Y, th.LineBreak, "topic %q", op.Text)
		}
	}

	// every topic is written exactly once
	assert.Len(t, canvas.withPrefix("  ["), len(topics))

	// pages fill in order
	for i := 1; i < len(content); i++ {
		assert.GreaterOrEqual(t, content[i].Page, content[i-1].Page)
	}

	// exactly one footer per page, numbered 1..total
	footers := canvas.withPrefix("Sayfa ")
	require.Len(t, footers, res.Pages)
	for i, op := range footers {
		assert.Equal(t, i+1, op.Page)
		assert.Equal(t, fmt.Sprintf("Sayfa %d / %d", i+1, res.Pages), op.Text)
		assert.Equal(t, th.FooterPageY, op.Y)
	}
	assert.Len(t, canvas.withPrefix("Oluşturulma: "), res.Pages)
}

func TestGenerate_FooterDateFollowsLocale(t *testing.T) {
	gen, canvas := newTestGenerator(fakeSource{}, WithLocale("en-US", timeutil.IstanbulTZ))

	_, err := gen.Generate(context.Background(), progress.Student{Name: "Ali"}, "s8")
	require.NoError(t, err)
	assert.Contains(t, canvas.texts(), "Oluşturulma: 10/15/2026")
}

func TestGenerate_OutputFailureIsRenderError(t *testing.T) {
	canvas := &recordingCanvas{outputErr: errors.New("disk full")}
	gen := NewGenerator(fakeSource{}, WithCanvas(func() Canvas { return canvas }))

	res, err := gen.Generate(context.Background(), progress.Student{Name: "Ali"}, "s9")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, shared.ErrRender)
}

func TestGenerate_FetchFailuresNeverFail(t *testing.T) {
	src := fakeSource{topicsErr: errors.New("timeout"), examsErr: errors.New("timeout")}
	gen, _ := newTestGenerator(src)

	res, err := gen.Generate(context.Background(), progress.Student{Name: "Ali"}, "s10")
	require.NoError(t, err)
	assert.Len(t, res.SectionErrors, 2)
	assert.Empty(t, res.Sections)
	assert.Equal(t, 1, res.Pages)
}

func TestGenerate_RealPDF(t *testing.T) {
	src := fakeSource{
		topics: []progress.Topic{{Subject: "Türkçe", Title: "Paragraf", Status: progress.StatusInProgress}},
		exams:  makeExams(2),
	}
	gen := NewGenerator(src, WithClock(func() time.Time { return fixedNow }))

	res, err := gen.Generate(context.Background(), progress.Student{Name: "Ayşe", Notes: "Şimdiye kadar iyi gidiyorsun."}, "s11")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(res.Bytes, []byte("%PDF-")))
	assert.Equal(t, 1, res.Pages)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func TestGlyph(t *testing.T) {
	assert.Equal(t, "[x]", Glyph(progress.StatusCompleted))
	assert.Equal(t, "[~]", Glyph(progress.StatusInProgress))
	assert.Equal(t, "[ ]", Glyph(progress.StatusNotStarted))
	assert.Equal(t, "[ ]", Glyph("bilinmiyor"))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Ayşe_Yılmaz_rapor.pdf", Filename(progress.Student{Name: "Ayşe", Surname: "Yılmaz"}, FormatPDF))
	assert.Equal(t, "Ali__rapor.xlsx", Filename(progress.Student{Name: "Ali"}, FormatXLSX))
}

func TestFoldTurkish(t *testing.T) {
	assert.Equal(t, "Ayse Yilmaz, Isik, Istanbul, Dag", FoldTurkish("Ayşe Yılmaz, Işık, İstanbul, Dağ"))
	assert.Equal(t, "Çiçek Ömür Ünal", FoldTurkish("Çiçek Ömür Ünal"))
}
