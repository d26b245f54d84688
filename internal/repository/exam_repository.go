package repository

import (
	"context"
	"examprep_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

// Create 创建空的考试记录并关联所选科目
func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam, subjectIDs []uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Subjects", "Answers").Create(exam).Error; err != nil {
			return err
		}
		if len(subjectIDs) == 0 {
			return nil
		}
		links := make([]model.ExamSubject, 0, len(subjectIDs))
		for _, id := range subjectIDs {
			links = append(links, model.ExamSubject{ExamID: exam.ID, SubjectID: id})
		}
		return tx.Create(&links).Error
	})
}

func (r *ExamRepository) FindByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.WithContext(ctx).First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// FindDetail 加载考试、科目和每道题的作答
func (r *ExamRepository) FindDetail(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.WithContext(ctx).
		Preload("Subjects.Subject").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("Answers.Question").
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) ListByUser(ctx context.Context, userID uint) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.WithContext(ctx).
		Preload("Subjects.Subject").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&exams).Error
	return exams, err
}

// ReplaceAnswers 以整组替换的方式写入作答，重复提交不会产生重复记录；
// 考试记录不存在时返回 gorm.ErrRecordNotFound，不写入任何行
func (r *ExamRepository) ReplaceAnswers(ctx context.Context, examID uint, answers []model.ExamAnswer) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exam model.Exam
		if err := tx.Select("id").First(&exam, examID).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", examID).Delete(&model.ExamAnswer{}).Error; err != nil {
			return err
		}
		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].ExamID = examID
			answers[i].ID = 0
		}
		return tx.Omit("Question").Create(&answers).Error
	})
}

// AttachScore 写入成绩并标记完成；已是相同成绩时不做任何修改
func (r *ExamRepository) AttachScore(ctx context.Context, examID uint, total, correct, percentage int, completedAt time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exam model.Exam
		if err := tx.First(&exam, examID).Error; err != nil {
			return err
		}
		if exam.Status == model.ExamStatusCompleted &&
			exam.ScorePercentage != nil && *exam.ScorePercentage == percentage &&
			exam.CorrectCount == correct && exam.TotalQuestions == total {
			return nil
		}
		return tx.Model(&model.Exam{}).Where("id = ?", examID).Updates(map[string]interface{}{
			"status":           model.ExamStatusCompleted,
			"total_questions":  total,
			"correct_count":    correct,
			"score_percentage": percentage,
			"completed_at":     completedAt,
		}).Error
	})
}

// ListAbandoned 返回早于 before 创建且仍未完成的考试 ID
func (r *ExamRepository) ListAbandoned(ctx context.Context, before time.Time) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("status = ? AND created_at < ?", model.ExamStatusInProgress, before).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteAbandoned 删除仍未完成的考试及其作答和科目关联；已完成或不存在时返回 false
func (r *ExamRepository) DeleteAbandoned(ctx context.Context, examID uint) (bool, error) {
	removed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().
			Where("id = ? AND status = ?", examID, model.ExamStatusInProgress).
			Delete(&model.Exam{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		if err := tx.Where("exam_id = ?", examID).Delete(&model.ExamAnswer{}).Error; err != nil {
			return err
		}
		return tx.Where("exam_id = ?", examID).Delete(&model.ExamSubject{}).Error
	})
	return removed, err
}
