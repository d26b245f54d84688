package service

import (
	"examprep_backend/internal/model"
	"strings"
	"time"
)

// ExamResult 交卷后的成绩，交卷时只计算一次
type ExamResult struct {
	ExamID      uint              `json:"examId"`
	Total       int               `json:"total"`
	Correct     int               `json:"correct"`
	Incorrect   int               `json:"incorrect"`
	Percentage  int               `json:"percentage"`
	PerQuestion []QuestionOutcome `json:"perQuestion"`
	CompletedAt time.Time         `json:"completedAt"`
}

type QuestionOutcome struct {
	QuestionID    uint                    `json:"questionId"`
	SubjectID     uint                    `json:"subjectId"`
	Prompt        string                  `json:"prompt"`
	Options       map[model.Option]string `json:"options"`
	CorrectOption string                  `json:"correctOption"`
	UserOption    string                  `json:"userOption,omitempty"`
	WasCorrect    bool                    `json:"wasCorrect"`
}

// ScoreAnswers 按位置比较作答和正确答案，answers[i] 为空表示未作答
func ScoreAnswers(questions []model.Question, answers []string) ExamResult {
	result := ExamResult{
		Total:       len(questions),
		PerQuestion: make([]QuestionOutcome, len(questions)),
	}

	for i, q := range questions {
		var answer string
		if i < len(answers) {
			answer = strings.TrimSpace(answers[i])
		}
		correct := answer != "" && strings.EqualFold(answer, strings.TrimSpace(q.CorrectOption))
		if correct {
			result.Correct++
		}
		result.PerQuestion[i] = QuestionOutcome{
			QuestionID:    q.ID,
			SubjectID:     q.SubjectID,
			Prompt:        q.Prompt,
			Options:       q.OptionMap(),
			CorrectOption: strings.ToUpper(strings.TrimSpace(q.CorrectOption)),
			UserOption:    strings.ToUpper(answer),
			WasCorrect:    correct,
		}
	}

	result.Incorrect = result.Total - result.Correct
	result.Percentage = ScorePercentage(result.Correct, result.Total)
	return result
}

// ScorePercentage 四舍五入（半数进位）到整数百分比
func ScorePercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}
