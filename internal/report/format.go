package report

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

// Format is an output document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses a format name. An empty name means PDF.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", shared.ErrUnknownFormat
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/pdf"
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return "xlsx"
	}
	return "pdf"
}

// SafeFilename turns a report filename into a single path element. Path
// separators, control characters and ".." runs become '_' and leading dots
// are dropped; letters outside ASCII are kept.
func SafeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':':
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, name)
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "_")
	}
	name = strings.TrimLeft(name, ". ")
	if name == "" {
		return "rapor"
	}
	return name
}

// Fingerprint identifies the report of a student rendered from data on a
// given day in a given format. Equal fingerprints render the same document,
// so it serves as cache key and ETag. The value is a hex-encoded 16-byte
// BLAKE2b digest.
func Fingerprint(student progress.Student, studentID string, f Format, day time.Time, data *Data) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// only returned for an invalid size or key
		panic(err)
	}

	field := func(b []byte) {
		h.Write(b)
		h.Write([]byte{0})
	}

	descriptor, _ := json.Marshal(student)
	field([]byte(studentID))
	field(descriptor)
	field([]byte(f))
	field([]byte(timeutil.ToIstanbul(day).Format(timeutil.FormatDate)))

	if data == nil {
		data = &Data{}
	}
	if data.TopicsErr != nil {
		field([]byte("!topics"))
	} else {
		topics, _ := json.Marshal(data.Topics)
		field(topics)
	}
	if data.ExamsErr != nil {
		field([]byte("!exams"))
	} else {
		exams, _ := json.Marshal(data.Exams)
		field(exams)
	}

	return hex.EncodeToString(h.Sum(nil))
}
