package service

import (
	"bytes"
	"examprep_backend/internal/model"
	"examprep_backend/internal/util"
	"fmt"

	"github.com/raykov/gofpdf"
)

// ReportService 生成可打印的考试成绩单
type ReportService struct{}

func NewReportService() *ReportService {
	return &ReportService{}
}

// RenderExamResult 输出 PDF 字节
func (s *ReportService) RenderExamResult(result *ExamResult, title string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Completed: %s", result.CompletedAt.Format(util.TimeFormat)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Score: %d%%  (%d correct, %d incorrect, %d total)",
		result.Percentage, result.Correct, result.Incorrect, result.Total), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for i, q := range result.PerQuestion {
		pdf.SetFont("Arial", "B", 11)
		mark := "X"
		if q.WasCorrect {
			mark = "OK"
		}
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. [%s] %s", i+1, mark, q.Prompt)), "", "L", false)

		pdf.SetFont("Arial", "", 10)
		for _, o := range model.Options {
			prefix := "   "
			switch {
			case string(o) == q.CorrectOption:
				prefix = " * "
			case string(o) == q.UserOption:
				prefix = " > "
			}
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s%s) %s", prefix, o, q.Options[o])), "", "L", false)
		}

		answer := q.UserOption
		if answer == "" {
			answer = "-"
		}
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Your answer: %s   Correct: %s", answer, q.CorrectOption), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
