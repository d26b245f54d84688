package service

import (
	"context"
	"examprep_backend/internal/model"
	"examprep_backend/internal/util"
	"examprep_backend/pkg/logger"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

// QuestionSource 按科目读取题库
type QuestionSource interface {
	FindBySubjectIDs(ctx context.Context, subjectIDs []uint) ([]model.Question, error)
}

// QuestionSampler 从所选科目的有效题目中随机抽取不重复的子集
type QuestionSampler struct {
	Source  QuestionSource
	Shuffle func(n int, swap func(i, j int))
}

func NewQuestionSampler(source QuestionSource) *QuestionSampler {
	return &QuestionSampler{
		Source:  source,
		Shuffle: rand.Shuffle,
	}
}

// Sample 返回 min(count, 有效题目数) 道题；没有有效题目时返回空切片而不是错误
func (s *QuestionSampler) Sample(ctx context.Context, subjectIDs []uint, count int) ([]model.Question, error) {
	ids := dedupeIDs(subjectIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one subject is required", util.ErrValidation)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: question count must be at least 1, got %d", util.ErrValidation, count)
	}

	all, err := s.Source.FindBySubjectIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", util.ErrStoreUnavailable, err)
	}

	eligible := make([]model.Question, 0, len(all))
	seen := make(map[uint]bool, len(all))
	for _, q := range all {
		if !q.IsEligible() || seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		eligible = append(eligible, q)
	}
	if dropped := len(all) - len(eligible); dropped > 0 {
		logger.Log.Debug("Skipped incomplete questions",
			zap.Uints("subjectIds", ids),
			zap.Int("dropped", dropped))
	}

	s.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	if count < len(eligible) {
		eligible = eligible[:count]
	}
	return eligible, nil
}

func dedupeIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
