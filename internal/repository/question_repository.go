package repository

import (
	"context"
	"examprep_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// FindBySubjectIDs 返回属于任一科目的全部题目，不做完整性过滤
func (r *QuestionRepository) FindBySubjectIDs(ctx context.Context, subjectIDs []uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).Where("subject_id IN ?", subjectIDs).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) CreateBatch(ctx context.Context, qs []model.Question) error {
	if len(qs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(qs, 100).Error
}
