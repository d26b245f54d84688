package service

import (
	"examprep_backend/internal/model"
	"examprep_backend/internal/util"
	"fmt"
	"time"
)

// ExamSession 一次考试的内存状态机：InProgress(index) -> Completed
type ExamSession struct {
	ExamID     uint
	UserID     uint
	SubjectIDs []uint

	questions []model.Question
	index     int
	answers   map[int]model.Option
	completed bool
	result    *ExamResult
}

func NewExamSession(examID, userID uint, subjectIDs []uint, questions []model.Question) (*ExamSession, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: exam session needs at least one question", util.ErrInvalidSessionState)
	}
	return &ExamSession{
		ExamID:     examID,
		UserID:     userID,
		SubjectIDs: subjectIDs,
		questions:  questions,
		answers:    make(map[int]model.Option),
	}, nil
}

func (s *ExamSession) Total() int          { return len(s.questions) }
func (s *ExamSession) Index() int          { return s.index }
func (s *ExamSession) Completed() bool     { return s.completed }
func (s *ExamSession) Result() *ExamResult { return s.result }

func (s *ExamSession) Current() model.Question {
	return s.questions[s.index]
}

// Answer 返回第 i 题的作答
func (s *ExamSession) Answer(i int) (model.Option, bool) {
	o, ok := s.answers[i]
	return o, ok
}

func (s *ExamSession) AnsweredCount() int {
	return len(s.answers)
}

// RecordAnswer 覆盖当前题目的作答
func (s *ExamSession) RecordAnswer(option string) error {
	if s.completed {
		return fmt.Errorf("%w: exam already finished", util.ErrInvalidTransition)
	}
	o, ok := model.ParseOption(option)
	if !ok {
		return fmt.Errorf("%w: option must be one of A, B, C, D", util.ErrValidation)
	}
	s.answers[s.index] = o
	return nil
}

// Advance 最后一题时必须调用 Finish
func (s *ExamSession) Advance() error {
	if s.completed || s.index >= len(s.questions)-1 {
		return fmt.Errorf("%w: cannot advance from question %d of %d", util.ErrInvalidTransition, s.index+1, len(s.questions))
	}
	s.index++
	return nil
}

func (s *ExamSession) Retreat() error {
	if s.completed || s.index == 0 {
		return fmt.Errorf("%w: cannot go back from question %d", util.ErrInvalidTransition, s.index+1)
	}
	s.index--
	return nil
}

// JumpTo 跳转到指定题目，i 从 0 开始
func (s *ExamSession) JumpTo(i int) error {
	if s.completed || i < 0 || i >= len(s.questions) {
		return fmt.Errorf("%w: cannot jump to question %d of %d", util.ErrInvalidTransition, i+1, len(s.questions))
	}
	s.index = i
	return nil
}

// Finish 可在任意题目提前交卷，未作答的题目计为错误
func (s *ExamSession) Finish(now time.Time) (*ExamResult, error) {
	if s.completed {
		return nil, fmt.Errorf("%w: exam already finished", util.ErrInvalidTransition)
	}

	answers := make([]string, len(s.questions))
	for i, o := range s.answers {
		answers[i] = string(o)
	}

	result := ScoreAnswers(s.questions, answers)
	result.ExamID = s.ExamID
	result.CompletedAt = now

	s.completed = true
	s.result = &result
	return s.result, nil
}

// SessionSnapshot 会话在 SessionStore 中的序列化形式
type SessionSnapshot struct {
	ExamID       uint             `json:"examId"`
	UserID       uint             `json:"userId"`
	SubjectIDs   []uint           `json:"subjectIds"`
	Questions    []model.Question `json:"questions"`
	CurrentIndex int              `json:"currentIndex"`
	Answers      map[int]string   `json:"answers"`
	Completed    bool             `json:"completed"`
	Result       *ExamResult      `json:"result,omitempty"`
}

func (s *ExamSession) Snapshot() SessionSnapshot {
	answers := make(map[int]string, len(s.answers))
	for i, o := range s.answers {
		answers[i] = string(o)
	}
	return SessionSnapshot{
		ExamID:       s.ExamID,
		UserID:       s.UserID,
		SubjectIDs:   s.SubjectIDs,
		Questions:    s.questions,
		CurrentIndex: s.index,
		Answers:      answers,
		Completed:    s.completed,
		Result:       s.result,
	}
}

// RestoreSession 从快照重建会话，快照不一致时返回 ErrInvalidSessionState
func RestoreSession(snap SessionSnapshot) (*ExamSession, error) {
	s, err := NewExamSession(snap.ExamID, snap.UserID, snap.SubjectIDs, snap.Questions)
	if err != nil {
		return nil, err
	}
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Questions) {
		return nil, fmt.Errorf("%w: index %d out of range", util.ErrInvalidSessionState, snap.CurrentIndex)
	}
	for i, raw := range snap.Answers {
		o, ok := model.ParseOption(raw)
		if !ok || i < 0 || i >= len(snap.Questions) {
			return nil, fmt.Errorf("%w: bad answer %q at %d", util.ErrInvalidSessionState, raw, i)
		}
		s.answers[i] = o
	}
	s.index = snap.CurrentIndex
	s.completed = snap.Completed
	s.result = snap.Result
	return s, nil
}
