package report

// ══════════════════════════════════════════════════════════════════════════════
// GEOMETRY
// ══════════════════════════════════════════════════════════════════════════════

// Thresholds holds the page geometry of an A4 portrait report in millimetres.
// Break thresholds are per content type.
type Thresholds struct {
	TopMargin   float64
	LeftMargin  float64
	TopicIndent float64
	CenterX     float64

	// A new page is started before a write when the cursor is past the
	// threshold the write is checked against.
	LineBreak    float64
	SubjectBreak float64
	ExamsBreak   float64
	NotesBreak   float64

	FooterPageY float64
	FooterDateY float64

	// WrapWidth is the usable text width for wrapped notes.
	WrapWidth float64

	// MaxExams caps the exam lines written.
	MaxExams int
}

// DefaultThresholds returns the A4 geometry used by every report.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TopMargin:    20,
		LeftMargin:   20,
		TopicIndent:  25,
		CenterX:      105,
		LineBreak:    280,
		SubjectBreak: 260,
		ExamsBreak:   240,
		NotesBreak:   250,
		FooterPageY:  290,
		FooterDateY:  295,
		WrapWidth:    170,
		MaxExams:     5,
	}
}

// MaxContentY is the lowest position a content line can be written at:
// the largest of the break thresholds plus the largest pre-write advance.
func (t Thresholds) MaxContentY() float64 {
	maxY := t.LineBreak
	for _, v := range []float64{t.SubjectBreak, t.ExamsBreak + sectionGap, t.NotesBreak + sectionGap} {
		if v > maxY {
			maxY = v
		}
	}
	return maxY
}

// ══════════════════════════════════════════════════════════════════════════════
// TEXT STYLE
// ══════════════════════════════════════════════════════════════════════════════

// Style is a font size in points and a weight.
type Style struct {
	Size float64
	Bold bool
}

// Align is the horizontal anchoring of a line relative to its x position.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

var (
	styleTitle   = Style{Size: 20, Bold: true}
	styleBody    = Style{Size: 12}
	styleHeader  = Style{Size: 14, Bold: true}
	styleSmall   = Style{Size: 10}
	styleSubject = Style{Size: 10, Bold: true}
	styleFooter  = Style{Size: 8}
)

// Vertical advances in millimetres.
const (
	titleAdvance    = 15
	identityAdvance = 8
	identityGap     = 5
	headerAdvance   = 8
	summaryAdvance  = 10
	subjectAdvance  = 6
	topicAdvance    = 5
	groupGap        = 3
	sectionGap      = 10
	examAdvance     = 6
	noteAdvance     = 5
)

// ══════════════════════════════════════════════════════════════════════════════
// LAYOUT STATE
// ══════════════════════════════════════════════════════════════════════════════

// Line is one text write.
type Line struct {
	Text  string
	X     float64
	Align Align
	Style Style

	// Threshold is the break check applied before the write; zero means
	// Thresholds.LineBreak.
	Threshold float64

	// Before advances the cursor after the break check and before writing.
	Before float64
	// After advances the cursor after writing.
	After float64
}

// Layout is the vertical cursor of a document being written top to bottom.
// WriteLine is the only place a page break can happen.
type Layout struct {
	canvas Canvas
	th     Thresholds
	page   int
	y      float64
}

// NewLayout starts the first page of canvas.
func NewLayout(canvas Canvas, th Thresholds) *Layout {
	l := &Layout{canvas: canvas, th: th}
	l.newPage()
	return l
}

// WriteLine writes line at the cursor, starting a new page first when the
// cursor is past the line's threshold.
func (l *Layout) WriteLine(line Line) {
	threshold := line.Threshold
	if threshold == 0 {
		threshold = l.th.LineBreak
	}
	if l.y > threshold {
		l.newPage()
	}

	l.y += line.Before
	l.canvas.Text(line.X, l.y, line.Text, line.Style, line.Align)
	l.y += line.After
}

// Skip advances the cursor without writing.
func (l *Layout) Skip(dy float64) {
	l.y += dy
}

// Y returns the cursor position.
func (l *Layout) Y() float64 { return l.y }

// Page returns the 1-based index of the page being written.
func (l *Layout) Page() int { return l.page }

// Pages returns the number of pages started so far.
func (l *Layout) Pages() int { return l.canvas.PageCount() }

// EachPage revisits every page in order once the content is complete.
func (l *Layout) EachPage(fn func(page, total int)) {
	total := l.canvas.PageCount()
	for i := 1; i <= total; i++ {
		l.canvas.SetPage(i)
		fn(i, total)
	}
}

func (l *Layout) newPage() {
	l.canvas.AddPage()
	l.page++
	l.y = l.th.TopMargin
}
