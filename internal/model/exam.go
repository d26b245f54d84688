package model

import "time"

const (
	ExamStatusInProgress = "in_progress"
	ExamStatusCompleted  = "completed"
)

// swagger:model Exam
type Exam struct {
	BaseModel
	UserID          uint          `gorm:"index;not null" json:"userId"`
	Status          string        `gorm:"size:20;default:'in_progress'" json:"status"`
	TotalQuestions  int           `gorm:"default:0" json:"totalQuestions"`
	CorrectCount    int           `gorm:"default:0" json:"correctCount"`
	ScorePercentage *int          `json:"scorePercentage,omitempty"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	Subjects        []ExamSubject `gorm:"foreignKey:ExamID" json:"subjects,omitempty"`
	Answers         []ExamAnswer  `gorm:"foreignKey:ExamID" json:"answers,omitempty"`
}

func (Exam) TableName() string {
	return "exams"
}

type ExamSubject struct {
	ExamID    uint     `gorm:"primaryKey" json:"examId"`
	SubjectID uint     `gorm:"primaryKey" json:"subjectId"`
	Subject   *Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

func (ExamSubject) TableName() string {
	return "exam_subjects"
}

// ExamAnswer 一道题的作答记录，SelectedOption 为空表示未作答
type ExamAnswer struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExamID         uint      `gorm:"index;not null" json:"examId"`
	QuestionID     uint      `gorm:"index;not null" json:"questionId"`
	Position       int       `gorm:"not null" json:"position"`
	SelectedOption *string   `gorm:"size:1" json:"selectedOption"`
	IsCorrect      bool      `gorm:"default:false" json:"isCorrect"`
	Question       *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (ExamAnswer) TableName() string {
	return "exam_answers"
}
