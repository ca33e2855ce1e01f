package report

import (
	"context"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
)

// Workbook sheet names.
const (
	SheetExams        = "Denemeler"
	SheetTopics       = "Konular"
	SheetTopicDetails = "Konu Detayı"
)

var (
	examColumns        = []interface{}{"Tarih", "Sınav Tipi", "Ders", "Net"}
	topicColumns       = []interface{}{"Ders", "Tamamlanan", "Toplam", "Yüzde"}
	topicDetailColumns = []interface{}{"Sınav Tipi", "Ders", "Konu", "Durum"}
)

// WorkbookRenderer writes exams, per-subject topic completion and the status
// of every topic to an XLSX workbook. Unlike the PDF, every exam is included.
type WorkbookRenderer struct{}

// Render builds the workbook. A nil collection yields a sheet with only the
// header row.
func (WorkbookRenderer) Render(topics []progress.Topic, exams []progress.Exam) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetExams); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, sheet := range []string{SheetTopics, SheetTopicDetails} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", sheet, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	netStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("net style: %w", err)
	}

	if err := writeRows(f, SheetExams, examColumns, headerStyle, examRows(exams)); err != nil {
		return nil, err
	}
	if len(exams) > 0 {
		last := fmt.Sprintf("D%d", len(exams)+1)
		if err := f.SetCellStyle(SheetExams, "D2", last, netStyle); err != nil {
			return nil, fmt.Errorf("net column style: %w", err)
		}
	}
	if err := writeRows(f, SheetTopics, topicColumns, headerStyle, topicRows(topics)); err != nil {
		return nil, err
	}
	if err := writeRows(f, SheetTopicDetails, topicDetailColumns, headerStyle, topicDetailRows(topics)); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(SheetExams, "A", "C", 16)
	_ = f.SetColWidth(SheetTopics, "A", "A", 20)
	_ = f.SetColWidth(SheetTopicDetails, "B", "C", 24)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func examRows(exams []progress.Exam) [][]interface{} {
	rows := make([][]interface{}, 0, len(exams))
	for _, e := range exams {
		rows = append(rows, []interface{}{e.Date, e.ExamType, e.Subject, math.Round(e.Net*100) / 100})
	}
	return rows
}

func topicRows(topics []progress.Topic) [][]interface{} {
	summary := progress.SummarizeBySubject(topics)
	rows := make([][]interface{}, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, []interface{}{s.Subject, s.Completed, s.Total, s.Percent})
	}
	return rows
}

// topicDetailRows lists topics grouped by exam type, then subject, both in
// first-seen order.
func topicDetailRows(topics []progress.Topic) [][]interface{} {
	rows := make([][]interface{}, 0, len(topics))
	for _, byType := range progress.GroupTopicsByExamType(topics) {
		for _, bySubject := range byType.Subjects {
			for _, t := range bySubject.Items {
				rows = append(rows, []interface{}{byType.ExamType, bySubject.Key, t.Title, t.Status.Label()})
			}
		}
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, header []interface{}, headerStyle int, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// GenerateWorkbook loads the same collections as Generate and renders them
// as XLSX. Fetch failures leave the affected sheets with only their header.
func (g *Generator) GenerateWorkbook(ctx context.Context, student progress.Student, studentID string) (*Result, error) {
	return g.RenderWorkbook(ctx, student, studentID, g.Fetch(ctx, studentID))
}

// RenderWorkbook builds the XLSX report of student from already fetched data.
func (g *Generator) RenderWorkbook(ctx context.Context, student progress.Student, studentID string, data *Data) (*Result, error) {
	result := &Result{
		Filename:      Filename(student, FormatXLSX),
		ContentType:   FormatXLSX.ContentType(),
		SectionErrors: map[Section]error{},
		GeneratedAt:   g.now(),
	}
	if data.TopicsErr != nil {
		result.SectionErrors[SectionTopics] = data.TopicsErr
	} else if len(data.Topics) > 0 {
		result.Sections = append(result.Sections, SectionTopics)
	}
	if data.ExamsErr != nil {
		result.SectionErrors[SectionExams] = data.ExamsErr
	} else if len(data.Exams) > 0 {
		result.Sections = append(result.Sections, SectionExams)
	}

	body, err := WorkbookRenderer{}.Render(data.Topics, data.Exams)
	if err != nil {
		return nil, shared.WrapError("report", "GenerateWorkbook", shared.ErrRender, "could not write workbook", err)
	}
	result.Bytes = body
	result.Pages = workbookSheets

	g.logger.Info("workbook generated", "student_id", studentID, "sections", result.Sections, "bytes", len(body))
	return result, nil
}

const workbookSheets = 3
