package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Canvas is a paginated drawing surface. Pages are 1-based.
type Canvas interface {
	AddPage()
	SetPage(n int)
	PageCount() int

	// Text writes text with its baseline at y. For AlignCenter, x is the
	// horizontal centre of the text.
	Text(x, y float64, text string, style Style, align Align)

	// TextWidth returns the rendered width of text in millimetres.
	TextWidth(text string, style Style) float64

	Output(w io.Writer) error
}

// ══════════════════════════════════════════════════════════════════════════════
// PDF CANVAS
// ══════════════════════════════════════════════════════════════════════════════

// UTF-8 font files looked up in PDFOptions.FontDir.
const (
	utf8FontFamily  = "DejaVuSans"
	utf8FontRegular = "DejaVuSans.ttf"
	utf8FontBold    = "DejaVuSans-Bold.ttf"
	coreFontFamily  = "Helvetica"
)

// PDFOptions configures a PDFCanvas.
type PDFOptions struct {
	// FontDir holds DejaVuSans.ttf and DejaVuSans-Bold.ttf. When both files
	// exist, text is embedded as UTF-8; otherwise the core Helvetica font is
	// used with cp1252 encoding.
	FontDir string

	Title  string
	Author string

	Logger *slog.Logger
}

// PDFCanvas is a Canvas backed by fpdf.
type PDFCanvas struct {
	pdf    *fpdf.Fpdf
	family string
	encode func(string) string
}

// NewPDFCanvas creates an empty A4 portrait document.
func NewPDFCanvas(opts PDFOptions) *PDFCanvas {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	utf8 := opts.FontDir != "" && fileExists(filepath.Join(opts.FontDir, utf8FontRegular)) &&
		fileExists(filepath.Join(opts.FontDir, utf8FontBold))
	if opts.FontDir != "" && !utf8 {
		logger.Warn("utf-8 fonts not found, falling back to core font",
			"font_dir", opts.FontDir,
			"expected", []string{utf8FontRegular, utf8FontBold},
		)
	}

	fontDir := ""
	if utf8 {
		fontDir = opts.FontDir
	}
	pdf := fpdf.New("P", "mm", "A4", fontDir)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)

	c := &PDFCanvas{pdf: pdf}
	if utf8 {
		pdf.AddUTF8Font(utf8FontFamily, "", utf8FontRegular)
		pdf.AddUTF8Font(utf8FontFamily, "B", utf8FontBold)
		c.family = utf8FontFamily
		c.encode = func(s string) string { return s }
	} else {
		c.family = coreFontFamily
		c.encode = cp1252Encoder(pdf)
	}

	pdf.SetTitle(opts.Title, true)
	pdf.SetAuthor(opts.Author, true)
	pdf.SetCreator("coach-hub", true)
	return c
}

func (c *PDFCanvas) AddPage()       { c.pdf.AddPage() }
func (c *PDFCanvas) SetPage(n int)  { c.pdf.SetPage(n) }
func (c *PDFCanvas) PageCount() int { return c.pdf.PageCount() }

func (c *PDFCanvas) Text(x, y float64, text string, style Style, align Align) {
	c.setFont(style)
	s := c.encode(text)
	if align == AlignCenter {
		x -= c.pdf.GetStringWidth(s) / 2
	}
	c.pdf.Text(x, y, s)
}

func (c *PDFCanvas) TextWidth(text string, style Style) float64 {
	c.setFont(style)
	return c.pdf.GetStringWidth(c.encode(text))
}

// Output writes the finished document. Any error recorded while drawing is
// returned here.
func (c *PDFCanvas) Output(w io.Writer) error {
	if err := c.pdf.Error(); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	if err := c.pdf.Output(w); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}

func (c *PDFCanvas) setFont(style Style) {
	weight := ""
	if style.Bold {
		weight = "B"
	}
	c.pdf.SetFont(c.family, weight, style.Size)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENCODING
// ══════════════════════════════════════════════════════════════════════════════

// turkishFold maps the Turkish letters missing from cp1252 to their closest
// ASCII letter. ç, ö and ü are in cp1252 and stay as they are.
var turkishFold = strings.NewReplacer(
	"ş", "s", "Ş", "S",
	"ğ", "g", "Ğ", "G",
	"ı", "i", "İ", "I",
)

// FoldTurkish replaces Turkish letters the core fonts cannot encode.
func FoldTurkish(s string) string {
	return turkishFold.Replace(s)
}

func cp1252Encoder(pdf *fpdf.Fpdf) func(string) string {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) string {
		return tr(FoldTurkish(s))
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
