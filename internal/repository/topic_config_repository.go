package repository

import (
	"context"
	"examprep_backend/internal/model"

	"gorm.io/gorm"
)

type TopicConfigRepository struct {
	DB *gorm.DB
}

func NewTopicConfigRepository(db *gorm.DB) *TopicConfigRepository {
	return &TopicConfigRepository{DB: db}
}

func (r *TopicConfigRepository) ListBySubject(ctx context.Context, subjectID uint) ([]model.PdfTopicConfig, error) {
	var configs []model.PdfTopicConfig
	err := r.DB.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("topic_number asc").
		Find(&configs).Error
	return configs, err
}

func (r *TopicConfigRepository) FindBySubjectAndNumber(ctx context.Context, subjectID uint, topicNumber int) (*model.PdfTopicConfig, error) {
	var cfg model.PdfTopicConfig
	err := r.DB.WithContext(ctx).
		Where("subject_id = ? AND topic_number = ?", subjectID, topicNumber).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReplaceForSubject 先删除科目下全部主题配置再插入新集合
func (r *TopicConfigRepository) ReplaceForSubject(ctx context.Context, subjectID uint, configs []model.PdfTopicConfig) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("subject_id = ?", subjectID).Delete(&model.PdfTopicConfig{}).Error; err != nil {
			return err
		}
		if len(configs) == 0 {
			return nil
		}
		for i := range configs {
			configs[i].SubjectID = subjectID
		}
		return tx.Create(&configs).Error
	})
}
