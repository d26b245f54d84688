package service

import (
	"bytes"
	"context"
	"errors"
	"examprep_backend/internal/model"
	"examprep_backend/internal/repository"
	"examprep_backend/internal/util"
	"examprep_backend/pkg/logger"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubjectInput struct {
	Name        string `json:"name" binding:"required" validate:"required,max=150"`
	Description string `json:"description" validate:"max=2000"`
}

// QuestionInput 批量导入的题目
type QuestionInput struct {
	Prompt        string `json:"prompt" validate:"required"`
	OptionA       string `json:"optionA" validate:"required"`
	OptionB       string `json:"optionB" validate:"required"`
	OptionC       string `json:"optionC" validate:"required"`
	OptionD       string `json:"optionD" validate:"required"`
	CorrectOption string `json:"correctOption" validate:"required,oneof=A B C D a b c d"`
}

type SubjectService struct {
	Subjects   *repository.SubjectRepository
	Questions  *repository.QuestionRepository
	Topics     *TopicService
	Storage    *StorageService
	Validate   *validator.Validate
	MaxPDFSize int64
}

func NewSubjectService(
	subjects *repository.SubjectRepository,
	questions *repository.QuestionRepository,
	topics *TopicService,
	storage *StorageService,
	validate *validator.Validate,
	maxPDFSizeMB int64,
) *SubjectService {
	return &SubjectService{
		Subjects:   subjects,
		Questions:  questions,
		Topics:     topics,
		Storage:    storage,
		Validate:   validate,
		MaxPDFSize: maxPDFSizeMB << 20,
	}
}

func subjectPrefix(subjectID uint) string {
	return fmt.Sprintf("subjects/%d/", subjectID)
}

func (s *SubjectService) List(ctx context.Context) ([]repository.SubjectListRow, error) {
	rows, err := s.Subjects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list subjects: %v", util.ErrStoreUnavailable, err)
	}
	return rows, nil
}

func (s *SubjectService) Get(ctx context.Context, id uint) (*model.Subject, error) {
	subject, err := s.Subjects.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load subject: %v", util.ErrStoreUnavailable, err)
	}
	return subject, nil
}

func (s *SubjectService) checkName(ctx context.Context, name string, selfID uint) error {
	existing, err := s.Subjects.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: check subject name: %v", util.ErrStoreUnavailable, err)
	}
	if existing.ID != selfID {
		return util.ErrSubjectNameTaken
	}
	return nil
}

func (s *SubjectService) normalize(in *SubjectInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.Validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	return nil
}

func (s *SubjectService) Create(ctx context.Context, in SubjectInput) (*model.Subject, error) {
	if err := s.normalize(&in); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	subject := &model.Subject{Name: in.Name, Description: in.Description}
	if err := s.Subjects.Create(ctx, subject); err != nil {
		return nil, fmt.Errorf("%w: create subject: %v", util.ErrStoreUnavailable, err)
	}
	return subject, nil
}

func (s *SubjectService) Update(ctx context.Context, id uint, in SubjectInput) (*model.Subject, error) {
	if err := s.normalize(&in); err != nil {
		return nil, err
	}
	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, id); err != nil {
		return nil, err
	}

	subject.Name = in.Name
	subject.Description = in.Description
	if err := s.Subjects.Update(ctx, subject); err != nil {
		return nil, fmt.Errorf("%w: update subject: %v", util.ErrStoreUnavailable, err)
	}
	return subject, nil
}

// Delete 同时删除题目、主题配置和 PDF 文件
func (s *SubjectService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.Subjects.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete subject: %v", util.ErrStoreUnavailable, err)
	}
	if n, err := s.Storage.RemovePrefix(ctx, subjectPrefix(id)); err != nil {
		logger.Log.Warn("Failed to remove subject files", zap.Uint("subjectId", id), zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("Removed subject files", zap.Uint("subjectId", id), zap.Int("count", n))
	}
	return nil
}

// ImportQuestions 全部校验通过才写入
func (s *SubjectService) ImportQuestions(ctx context.Context, subjectID uint, inputs []QuestionInput) (int, error) {
	if _, err := s.Get(ctx, subjectID); err != nil {
		return 0, err
	}
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: no questions supplied", util.ErrValidation)
	}

	questions := make([]model.Question, 0, len(inputs))
	for i, in := range inputs {
		in.CorrectOption = strings.TrimSpace(in.CorrectOption)
		if err := s.Validate.Struct(in); err != nil {
			return 0, fmt.Errorf("%w: question %d: %v", util.ErrValidation, i+1, err)
		}
		questions = append(questions, model.Question{
			SubjectID:     subjectID,
			Prompt:        strings.TrimSpace(in.Prompt),
			OptionA:       strings.TrimSpace(in.OptionA),
			OptionB:       strings.TrimSpace(in.OptionB),
			OptionC:       strings.TrimSpace(in.OptionC),
			OptionD:       strings.TrimSpace(in.OptionD),
			CorrectOption: strings.ToUpper(in.CorrectOption),
		})
	}

	if err := s.Questions.CreateBatch(ctx, questions); err != nil {
		return 0, fmt.Errorf("%w: import questions: %v", util.ErrStoreUnavailable, err)
	}
	return len(questions), nil
}

// UploadPDF 校验文件类型后保存到 subjects/<id>/<uuid>.pdf，返回存储 key
func (s *SubjectService) UploadPDF(ctx context.Context, subjectID uint, reader io.Reader, size int64) (string, error) {
	if s.MaxPDFSize > 0 && size > s.MaxPDFSize {
		return "", fmt.Errorf("%w: PDF exceeds %d MB", util.ErrFileTooLarge, s.MaxPDFSize>>20)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]
	if _, err := util.ValidateMimeType(bytes.NewReader(head), []string{util.MimePDF}); err != nil {
		return "", fmt.Errorf("%w: only PDF files are accepted", util.ErrInvalidFileType)
	}

	key := subjectPrefix(subjectID) + uuid.New().String() + ".pdf"
	if err := s.Storage.Upload(ctx, key, io.MultiReader(bytes.NewReader(head), reader), size, util.MimePDF); err != nil {
		return "", err
	}
	return key, nil
}

// SaveTopics 管理端保存：有新 PDF 时先上传，替换主题后清理旧文件
func (s *SubjectService) SaveTopics(ctx context.Context, subjectID uint, pdf io.Reader, size int64, topics []TopicInput) ([]TopicContent, error) {
	if _, err := s.Get(ctx, subjectID); err != nil {
		return nil, err
	}

	pdfPath := ""
	if pdf != nil {
		key, err := s.UploadPDF(ctx, subjectID, pdf, size)
		if err != nil {
			return nil, err
		}
		pdfPath = key
	} else {
		current, err := s.Topics.CurrentPDFPath(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		pdfPath = current
	}

	saved, err := s.Topics.ReplaceTopics(ctx, subjectID, pdfPath, topics)
	if err != nil {
		if pdf != nil {
			if rmErr := s.Storage.Remove(ctx, pdfPath); rmErr != nil {
				logger.Log.Warn("Failed to remove orphan PDF", zap.String("key", pdfPath), zap.Error(rmErr))
			}
		}
		return nil, err
	}

	if pdf != nil {
		if _, err := s.Storage.RemovePrefix(ctx, subjectPrefix(subjectID), pdfPath); err != nil {
			logger.Log.Warn("Failed to remove old PDFs", zap.Uint("subjectId", subjectID), zap.Error(err))
		}
	}
	return saved, nil
}

// SubjectFile 科目存储目录下的文件
type SubjectFile struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	InUse bool   `json:"inUse"`
}

func (s *SubjectService) ListFiles(ctx context.Context, subjectID uint) ([]SubjectFile, error) {
	if _, err := s.Get(ctx, subjectID); err != nil {
		return nil, err
	}
	keys, err := s.Storage.List(ctx, subjectPrefix(subjectID))
	if err != nil {
		return nil, err
	}
	current, err := s.Topics.CurrentPDFPath(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	files := make([]SubjectFile, 0, len(keys))
	for _, k := range keys {
		files = append(files, SubjectFile{Key: k, URL: s.Storage.PublicURL(k), InUse: k == current})
	}
	return files, nil
}

// CleanupFiles 删除主题配置未引用的文件
func (s *SubjectService) CleanupFiles(ctx context.Context, subjectID uint) (int, error) {
	if _, err := s.Get(ctx, subjectID); err != nil {
		return 0, err
	}
	current, err := s.Topics.CurrentPDFPath(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	if current == "" {
		return s.Storage.RemovePrefix(ctx, subjectPrefix(subjectID))
	}
	return s.Storage.RemovePrefix(ctx, subjectPrefix(subjectID), current)
}
