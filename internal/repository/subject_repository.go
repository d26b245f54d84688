package repository

import (
	"context"
	"examprep_backend/internal/model"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

// SubjectListRow 科目列表行，附带题目数和主题数
type SubjectListRow struct {
	model.Subject
	QuestionCount int `json:"questionCount"`
	TopicCount    int `json:"topicCount"`
}

func (r *SubjectRepository) List(ctx context.Context) ([]SubjectListRow, error) {
	var rows []SubjectListRow
	err := r.DB.WithContext(ctx).Table("subjects s").
		Select("s.*, " +
			"(SELECT COUNT(*) FROM questions q WHERE q.subject_id = s.id AND q.deleted_at IS NULL) as question_count, " +
			"(SELECT COUNT(*) FROM pdf_topic_configs t WHERE t.subject_id = s.id AND t.deleted_at IS NULL) as topic_count").
		Where("s.deleted_at IS NULL").
		Order("s.name asc").
		Scan(&rows).Error
	return rows, err
}

func (r *SubjectRepository) FindByID(ctx context.Context, id uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.WithContext(ctx).First(&subject, id).Error
	return &subject, err
}

func (r *SubjectRepository) FindByName(ctx context.Context, name string) (*model.Subject, error) {
	var subject model.Subject
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&subject).Error
	return &subject, err
}

func (r *SubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	return r.DB.WithContext(ctx).Create(subject).Error
}

func (r *SubjectRepository) Update(ctx context.Context, subject *model.Subject) error {
	return r.DB.WithContext(ctx).Save(subject).Error
}

// Delete 物理删除科目及其题目和主题配置，避免唯一索引与软删除冲突
func (r *SubjectRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("subject_id = ?", id).Delete(&model.PdfTopicConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("subject_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Subject{}, id).Error
	})
}
