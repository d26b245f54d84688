package service

import (
	"context"
	"errors"
	"examprep_backend/internal/config"
	"examprep_backend/internal/model"
	"examprep_backend/internal/util"
	"examprep_backend/pkg/logger"
	"examprep_backend/pkg/monitoring"
	"examprep_backend/pkg/tracing"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExamRecordStore 考试记录的持久化
type ExamRecordStore interface {
	Create(ctx context.Context, exam *model.Exam, subjectIDs []uint) error
	FindDetail(ctx context.Context, id uint) (*model.Exam, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Exam, error)
	ReplaceAnswers(ctx context.Context, examID uint, answers []model.ExamAnswer) error
	AttachScore(ctx context.Context, examID uint, total, correct, percentage int, completedAt time.Time) error
	ListAbandoned(ctx context.Context, before time.Time) ([]uint, error)
	DeleteAbandoned(ctx context.Context, examID uint) (bool, error)
}

// QuestionView 答题时展示的题目，不包含正确答案
type QuestionView struct {
	ID        uint                    `json:"id"`
	SubjectID uint                    `json:"subjectId"`
	Prompt    string                  `json:"prompt"`
	Options   map[model.Option]string `json:"options"`
}

// ExamView 当前题目及导航状态
type ExamView struct {
	ExamID         uint         `json:"examId"`
	Index          int          `json:"index"`
	Total          int          `json:"total"`
	Answered       int          `json:"answered"`
	Question       QuestionView `json:"question"`
	SelectedOption string       `json:"selectedOption,omitempty"`
	Answers        []string     `json:"answers"`
	CanRetreat     bool         `json:"canRetreat"`
	CanAdvance     bool         `json:"canAdvance"`
	IsLast         bool         `json:"isLast"`
}

// FinishOutcome Saved 为 false 时成绩已保留，客户端可调用 SaveResult 重试
type FinishOutcome struct {
	Result *ExamResult `json:"result"`
	Saved  bool        `json:"saved"`
}

// storedResult 交卷后保存在 SessionStore 中的成绩
type storedResult struct {
	UserID uint        `json:"userId"`
	Result *ExamResult `json:"result"`
	Saved  bool        `json:"saved"`
}

// ExamSummary 历史记录列表项
type ExamSummary struct {
	ID              uint       `json:"id"`
	Status          string     `json:"status"`
	TotalQuestions  int        `json:"totalQuestions"`
	CorrectCount    int        `json:"correctCount"`
	ScorePercentage *int       `json:"scorePercentage,omitempty"`
	Subjects        []string   `json:"subjects"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

type ExamService struct {
	Sampler  *QuestionSampler
	Exams    ExamRecordStore
	Sessions SessionStore
	Reports  *ReportService
	Now      func() time.Time

	cfgMu sync.RWMutex
	cfg   config.ExamConfig

	locks *keyedMutex

	startMu  sync.Mutex
	starting map[uint]bool
}

func NewExamService(sampler *QuestionSampler, exams ExamRecordStore, sessions SessionStore, reports *ReportService, cfg config.ExamConfig) *ExamService {
	return &ExamService{
		Sampler:  sampler,
		Exams:    exams,
		Sessions: sessions,
		Reports:  reports,
		Now:      time.Now,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		starting: make(map[uint]bool),
	}
}

// SetExamConfig 配置热更新时调用
func (s *ExamService) SetExamConfig(cfg config.ExamConfig) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

func (s *ExamService) examConfig() config.ExamConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

func sessionKey(examID uint) string { return fmt.Sprintf("exam:%d:session", examID) }
func resultKey(examID uint) string  { return fmt.Sprintf("exam:%d:result", examID) }

// beginStart 同一用户同时只允许一个开始考试的请求
func (s *ExamService) beginStart(userID uint) bool {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.starting[userID] {
		return false
	}
	s.starting[userID] = true
	return true
}

func (s *ExamService) endStart(userID uint) {
	s.startMu.Lock()
	delete(s.starting, userID)
	s.startMu.Unlock()
}

// StartExam 抽题、创建考试记录并返回第一题；count 为 0 时使用默认题量
func (s *ExamService) StartExam(ctx context.Context, userID uint, subjectIDs []uint, count int) (*ExamView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamService.StartExam")
	defer span.End()

	if !s.beginStart(userID) {
		return nil, util.ErrExamStartInProgress
	}
	defer s.endStart(userID)

	cfg := s.examConfig()
	if count == 0 {
		count = cfg.DefaultQuestionCount
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: question count must be positive", util.ErrValidation)
	}
	if cfg.MaxQuestionCount > 0 && count > cfg.MaxQuestionCount {
		count = cfg.MaxQuestionCount
	}

	ids := dedupeIDs(subjectIDs)
	questions, err := s.Sampler.Sample(ctx, ids, count)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrNoQuestions
	}

	exam := &model.Exam{
		UserID:         userID,
		Status:         model.ExamStatusInProgress,
		TotalQuestions: len(questions),
	}
	if err := s.Exams.Create(ctx, exam, ids); err != nil {
		span.SetStatus(codes.Error, "create exam")
		return nil, fmt.Errorf("%w: create exam: %v", util.ErrStoreUnavailable, err)
	}

	session, err := NewExamSession(exam.ID, userID, ids, questions)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Set(ctx, sessionKey(exam.ID), session.Snapshot(), cfg.SessionTTL); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("exam.id", int(exam.ID)),
		attribute.Int("exam.questions", len(questions)),
	)
	monitoring.ExamsStarted.Inc()
	logger.Log.Info("Exam started",
		zap.Uint("examId", exam.ID),
		zap.Uint("userId", userID),
		zap.Int("questions", len(questions)))

	return buildView(session), nil
}

func (s *ExamService) loadSession(ctx context.Context, userID, examID uint) (*ExamSession, error) {
	var snap SessionSnapshot
	found, err := s.Sessions.Get(ctx, sessionKey(examID), &snap)
	if err != nil {
		return nil, err
	}
	if !found || snap.UserID != userID {
		return nil, util.ErrExamNotFound
	}
	return RestoreSession(snap)
}

// mutate 在考试锁内完成 读取-修改-保存
func (s *ExamService) mutate(ctx context.Context, userID, examID uint, fn func(*ExamSession) error) (*ExamView, error) {
	unlock := s.locks.Lock(examID)
	defer unlock()

	session, err := s.loadSession(ctx, userID, examID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.Sessions.Set(ctx, sessionKey(examID), session.Snapshot(), s.examConfig().SessionTTL); err != nil {
		return nil, err
	}
	return buildView(session), nil
}

func (s *ExamService) Current(ctx context.Context, userID, examID uint) (*ExamView, error) {
	session, err := s.loadSession(ctx, userID, examID)
	if err != nil {
		return nil, err
	}
	return buildView(session), nil
}

func (s *ExamService) RecordAnswer(ctx context.Context, userID, examID uint, option string) (*ExamView, error) {
	return s.mutate(ctx, userID, examID, func(session *ExamSession) error {
		return session.RecordAnswer(option)
	})
}

func (s *ExamService) Advance(ctx context.Context, userID, examID uint) (*ExamView, error) {
	return s.mutate(ctx, userID, examID, (*ExamSession).Advance)
}

func (s *ExamService) Retreat(ctx context.Context, userID, examID uint) (*ExamView, error) {
	return s.mutate(ctx, userID, examID, (*ExamSession).Retreat)
}

func (s *ExamService) JumpTo(ctx context.Context, userID, examID uint, index int) (*ExamView, error) {
	return s.mutate(ctx, userID, examID, func(session *ExamSession) error {
		return session.JumpTo(index)
	})
}

// Finish 交卷：先把成绩写入 SessionStore，再写数据库
func (s *ExamService) Finish(ctx context.Context, userID, examID uint) (*FinishOutcome, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamService.Finish")
	defer span.End()
	span.SetAttributes(attribute.Int("exam.id", int(examID)))

	unlock := s.locks.Lock(examID)
	defer unlock()

	session, err := s.loadSession(ctx, userID, examID)
	if err != nil {
		return nil, err
	}
	result, err := session.Finish(s.Now())
	if err != nil {
		return nil, err
	}

	cfg := s.examConfig()
	stored := storedResult{UserID: userID, Result: result}
	if err := s.Sessions.Set(ctx, resultKey(examID), stored, cfg.SessionTTL); err != nil {
		return nil, err
	}
	if err := s.Sessions.Clear(ctx, sessionKey(examID)); err != nil {
		logger.Log.Warn("Failed to clear exam session", zap.Uint("examId", examID), zap.Error(err))
	}

	monitoring.ExamsCompleted.Inc()
	monitoring.ExamScore.Observe(float64(result.Percentage))

	outcome := &FinishOutcome{Result: result}
	if err := s.persist(ctx, examID, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist result")
		logger.Log.Warn("Exam result kept for retry", zap.Uint("examId", examID), zap.Error(err))
		return outcome, nil
	}

	outcome.Saved = true
	stored.Saved = true
	if err := s.Sessions.Set(ctx, resultKey(examID), stored, cfg.SessionTTL); err != nil {
		logger.Log.Warn("Failed to mark result saved", zap.Uint("examId", examID), zap.Error(err))
	}

	logger.Log.Info("Exam finished",
		zap.Uint("examId", examID),
		zap.Uint("userId", userID),
		zap.Int("percentage", result.Percentage))
	return outcome, nil
}

// SaveResult 重新写入已计算的成绩，可重复调用
func (s *ExamService) SaveResult(ctx context.Context, userID, examID uint) (*FinishOutcome, error) {
	unlock := s.locks.Lock(examID)
	defer unlock()

	var stored storedResult
	found, err := s.Sessions.Get(ctx, resultKey(examID), &stored)
	if err != nil {
		return nil, err
	}
	if !found || stored.UserID != userID || stored.Result == nil {
		return nil, util.ErrResultNotAvailable
	}

	if err := s.persist(ctx, examID, stored.Result); err != nil {
		return nil, err
	}

	stored.Saved = true
	if err := s.Sessions.Set(ctx, resultKey(examID), stored, s.examConfig().SessionTTL); err != nil {
		logger.Log.Warn("Failed to mark result saved", zap.Uint("examId", examID), zap.Error(err))
	}
	return &FinishOutcome{Result: stored.Result, Saved: true}, nil
}

func (s *ExamService) persist(ctx context.Context, examID uint, result *ExamResult) error {
	answers := make([]model.ExamAnswer, len(result.PerQuestion))
	for i, q := range result.PerQuestion {
		answers[i] = model.ExamAnswer{
			QuestionID: q.QuestionID,
			Position:   i,
			IsCorrect:  q.WasCorrect,
		}
		if q.UserOption != "" {
			opt := q.UserOption
			answers[i].SelectedOption = &opt
		}
	}

	if err := s.Exams.ReplaceAnswers(ctx, examID, answers); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: exam %d record was removed", util.ErrExamNotFound, examID)
		}
		monitoring.PersistFailures.WithLabelValues("answers").Inc()
		return fmt.Errorf("%w: save answers: %v", util.ErrStoreUnavailable, err)
	}
	if err := s.Exams.AttachScore(ctx, examID, result.Total, result.Correct, result.Percentage, result.CompletedAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: exam %d record was removed", util.ErrExamNotFound, examID)
		}
		monitoring.PersistFailures.WithLabelValues("score").Inc()
		return fmt.Errorf("%w: save score: %v", util.ErrStoreUnavailable, err)
	}
	return nil
}

// Result 优先读取 SessionStore 中的成绩，过期后从数据库重建
func (s *ExamService) Result(ctx context.Context, userID, examID uint) (*FinishOutcome, error) {
	var stored storedResult
	found, err := s.Sessions.Get(ctx, resultKey(examID), &stored)
	if err != nil {
		return nil, err
	}
	if found && stored.UserID == userID && stored.Result != nil {
		return &FinishOutcome{Result: stored.Result, Saved: stored.Saved}, nil
	}

	exam, err := s.Detail(ctx, userID, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusCompleted {
		return nil, util.ErrResultNotAvailable
	}
	return &FinishOutcome{Result: resultFromRecord(exam), Saved: true}, nil
}

// resultFromRecord 以数据库中保存的判分为准，题目内容只用于展示；题目可能已随科目删除
func resultFromRecord(exam *model.Exam) *ExamResult {
	result := &ExamResult{
		ExamID:      exam.ID,
		Total:       exam.TotalQuestions,
		Correct:     exam.CorrectCount,
		Incorrect:   exam.TotalQuestions - exam.CorrectCount,
		PerQuestion: make([]QuestionOutcome, 0, len(exam.Answers)),
	}
	if exam.ScorePercentage != nil {
		result.Percentage = *exam.ScorePercentage
	} else {
		result.Percentage = ScorePercentage(exam.CorrectCount, exam.TotalQuestions)
	}
	if exam.CompletedAt != nil {
		result.CompletedAt = *exam.CompletedAt
	}

	for _, a := range exam.Answers {
		outcome := QuestionOutcome{
			QuestionID: a.QuestionID,
			WasCorrect: a.IsCorrect,
		}
		if a.SelectedOption != nil {
			outcome.UserOption = *a.SelectedOption
		}
		if q := a.Question; q != nil {
			outcome.SubjectID = q.SubjectID
			outcome.Prompt = q.Prompt
			outcome.Options = q.OptionMap()
			outcome.CorrectOption = q.CorrectOption
		}
		result.PerQuestion = append(result.PerQuestion, outcome)
	}
	return result
}

func (s *ExamService) History(ctx context.Context, userID uint) ([]ExamSummary, error) {
	exams, err := s.Exams.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list exams: %v", util.ErrStoreUnavailable, err)
	}

	summaries := make([]ExamSummary, 0, len(exams))
	for _, e := range exams {
		names := make([]string, 0, len(e.Subjects))
		for _, es := range e.Subjects {
			if es.Subject != nil {
				names = append(names, es.Subject.Name)
			}
		}
		summaries = append(summaries, ExamSummary{
			ID:              e.ID,
			Status:          e.Status,
			TotalQuestions:  e.TotalQuestions,
			CorrectCount:    e.CorrectCount,
			ScorePercentage: e.ScorePercentage,
			Subjects:        names,
			CreatedAt:       e.CreatedAt,
			CompletedAt:     e.CompletedAt,
		})
	}
	return summaries, nil
}

// Detail 其他用户的考试视为不存在
func (s *ExamService) Detail(ctx context.Context, userID, examID uint) (*model.Exam, error) {
	exam, err := s.Exams.FindDetail(ctx, examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load exam: %v", util.ErrStoreUnavailable, err)
	}
	if exam.UserID != userID {
		return nil, util.ErrExamNotFound
	}
	return exam, nil
}

// ResultReport 生成成绩单 PDF
func (s *ExamService) ResultReport(ctx context.Context, userID, examID uint) ([]byte, error) {
	outcome, err := s.Result(ctx, userID, examID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Exam #%d", examID)
	if exam, err := s.Detail(ctx, userID, examID); err == nil {
		names := make([]string, 0, len(exam.Subjects))
		for _, es := range exam.Subjects {
			if es.Subject != nil {
				names = append(names, es.Subject.Name)
			}
		}
		if len(names) > 0 {
			title += " - " + strings.Join(names, ", ")
		}
	}
	return s.Reports.RenderExamResult(outcome.Result, title)
}

// PurgeAbandoned 删除超过 abandon_after 仍未完成且会话已失效的考试记录。
// 会话仍存在说明用户还在作答，跳过；检查和删除都在考试锁内完成。
func (s *ExamService) PurgeAbandoned(ctx context.Context) (int64, error) {
	cutoff := s.Now().Add(-s.examConfig().AbandonAfter)
	ids, err := s.Exams.ListAbandoned(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: list abandoned exams: %v", util.ErrStoreUnavailable, err)
	}

	var purged int64
	for _, id := range ids {
		removed, err := s.purgeOne(ctx, id)
		if err != nil {
			return purged, err
		}
		if removed {
			purged++
		}
	}
	return purged, nil
}

func (s *ExamService) purgeOne(ctx context.Context, examID uint) (bool, error) {
	unlock := s.locks.Lock(examID)
	defer unlock()

	var snap SessionSnapshot
	live, err := s.Sessions.Get(ctx, sessionKey(examID), &snap)
	if err != nil {
		return false, err
	}
	if live {
		logger.Log.Debug("Skipping exam with live session", zap.Uint("examId", examID))
		return false, nil
	}

	removed, err := s.Exams.DeleteAbandoned(ctx, examID)
	if err != nil {
		return false, fmt.Errorf("%w: purge exam %d: %v", util.ErrStoreUnavailable, examID, err)
	}
	return removed, nil
}

func buildView(session *ExamSession) *ExamView {
	q := session.Current()
	answers := make([]string, session.Total())
	for i := range answers {
		if o, ok := session.Answer(i); ok {
			answers[i] = string(o)
		}
	}

	view := &ExamView{
		ExamID:   session.ExamID,
		Index:    session.Index(),
		Total:    session.Total(),
		Answered: session.AnsweredCount(),
		Question: QuestionView{
			ID:        q.ID,
			SubjectID: q.SubjectID,
			Prompt:    q.Prompt,
			Options:   q.OptionMap(),
		},
		Answers:    answers,
		CanRetreat: session.Index() > 0,
		CanAdvance: session.Index() < session.Total()-1,
		IsLast:     session.Index() == session.Total()-1,
	}
	view.SelectedOption = answers[session.Index()]
	return view
}

// keyedMutex 按考试 ID 加锁，无人持有时回收
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*refLock)}
}

func (k *keyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
