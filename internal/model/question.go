package model

import "strings"

// Option 选择题选项字母
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

var Options = []Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption 忽略大小写和首尾空格，非 A-D 返回 false
func ParseOption(s string) (Option, bool) {
	o := Option(strings.ToUpper(strings.TrimSpace(s)))
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return o, true
	}
	return "", false
}

// swagger:model Question
type Question struct {
	BaseModel
	SubjectID     uint   `gorm:"index;not null" json:"subjectId"`
	Prompt        string `gorm:"type:text" json:"prompt"`
	OptionA       string `gorm:"type:text" json:"optionA"`
	OptionB       string `gorm:"type:text" json:"optionB"`
	OptionC       string `gorm:"type:text" json:"optionC"`
	OptionD       string `gorm:"type:text" json:"optionD"`
	CorrectOption string `gorm:"size:1" json:"correctOption"`
}

func (Question) TableName() string {
	return "questions"
}

// IsEligible 题干、四个选项和正确答案都存在才可参与抽题
func (q *Question) IsEligible() bool {
	return strings.TrimSpace(q.Prompt) != "" &&
		strings.TrimSpace(q.OptionA) != "" &&
		strings.TrimSpace(q.OptionB) != "" &&
		strings.TrimSpace(q.OptionC) != "" &&
		strings.TrimSpace(q.OptionD) != "" &&
		strings.TrimSpace(q.CorrectOption) != ""
}

// OptionMap 按字母返回选项文本
func (q *Question) OptionMap() map[Option]string {
	return map[Option]string{
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
	}
}
