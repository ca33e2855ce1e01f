// Package progress contains the domain model of a coached student's
// preparation: curriculum topics, practice exams and weekly tasks, together
// with the grouping and summary operations the reports are built from.
package progress

import (
	"strings"

	"github.com/yks-coach/coach-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is the descriptor a report is generated for. It is supplied by the
// caller, not fetched.
type Student struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"ad"`
	Surname string `json:"soyad,omitempty"`
	Program string `json:"bolum"`
	Target  string `json:"hedef,omitempty"`
	Notes   string `json:"notlar,omitempty"`
}

// FullName returns "Name Surname", or just the name when surname is empty.
func (s Student) FullName() string {
	return strings.TrimSpace(s.Name + " " + s.Surname)
}

// Validate performs presence checks only.
func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return shared.ErrStudentNameMissing
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPICS
// ══════════════════════════════════════════════════════════════════════════════

// TopicStatus is the three-state progress marker of a curriculum subtopic.
type TopicStatus string

const (
	StatusNotStarted TopicStatus = "baslanmadi"
	StatusInProgress TopicStatus = "devam"
	StatusCompleted  TopicStatus = "tamamlandi"
)

// Label returns the Turkish display label.
func (s TopicStatus) Label() string {
	switch s {
	case StatusCompleted:
		return "Tamamlandı"
	case StatusInProgress:
		return "Devam Ediyor"
	default:
		return "Başlanmadı"
	}
}

// DefaultExamType is assumed for topics without an exam type.
const DefaultExamType = "TYT"

// Topic is a single curriculum subtopic with its status.
type Topic struct {
	ID       string      `json:"id,omitempty"`
	Subject  string      `json:"ders"`
	Title    string      `json:"konu"`
	Status   TopicStatus `json:"durum"`
	ExamType string      `json:"sinav_turu,omitempty"`
}

// IsCompleted reports whether the topic is completed.
func (t Topic) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// EffectiveExamType returns the exam type, defaulting to TYT.
func (t Topic) EffectiveExamType() string {
	if t.ExamType == "" {
		return DefaultExamType
	}
	return t.ExamType
}

// ══════════════════════════════════════════════════════════════════════════════
// EXAMS
// ══════════════════════════════════════════════════════════════════════════════

// Exam is a practice-exam result for one subject.
type Exam struct {
	ID       string  `json:"id,omitempty"`
	Date     string  `json:"tarih"`
	ExamType string  `json:"sinav_tipi"`
	Subject  string  `json:"ders"`
	Net      float64 `json:"net"`
}

// ══════════════════════════════════════════════════════════════════════════════
// TASKS
// ══════════════════════════════════════════════════════════════════════════════

// Task is a unit of work scheduled on a specific day.
type Task struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id,omitempty"`
	Description string `json:"aciklama"`
	Minutes     int    `json:"sure"`
	Day         string `json:"gun"`
	Date        string `json:"tarih"`
	Completed   bool   `json:"completed"`
	OrderIndex  int    `json:"order_index,omitempty"`
}
