package service

import (
	"context"
	"errors"
	"examprep_backend/internal/model"
	"examprep_backend/internal/util"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// TopicConfigStore 主题配置的持久化
type TopicConfigStore interface {
	ListBySubject(ctx context.Context, subjectID uint) ([]model.PdfTopicConfig, error)
	FindBySubjectAndNumber(ctx context.Context, subjectID uint, topicNumber int) (*model.PdfTopicConfig, error)
	ReplaceForSubject(ctx context.Context, subjectID uint, configs []model.PdfTopicConfig) error
}

// TopicContent 一个主题的学习材料：PDF 页码区间（从 1 开始，含首尾）和可选视频
type TopicContent struct {
	SubjectID   uint   `json:"subjectId"`
	TopicNumber int    `json:"topicNumber"`
	Name        string `json:"name"`
	PageStart   int    `json:"pageStart"`
	PageEnd     int    `json:"pageEnd"`
	PDFPath     string `json:"pdfPath"`
	PDFURL      string `json:"pdfUrl"`
	VideoURL    string `json:"videoUrl,omitempty"`
	EmbedURL    string `json:"embedUrl,omitempty"`
}

// TopicInput 管理端提交的单个主题
type TopicInput struct {
	Name      string `json:"name" validate:"required,max=255"`
	PageStart int    `json:"pageStart" validate:"required,min=1"`
	PageEnd   int    `json:"pageEnd" validate:"required,gtefield=PageStart"`
	VideoURL  string `json:"videoUrl" validate:"omitempty,url,max=500"`
}

type URLResolver interface {
	PublicURL(key string) string
}

type TopicService struct {
	Topics   TopicConfigStore
	URLs     URLResolver
	Validate *validator.Validate
}

func NewTopicService(topics TopicConfigStore, urls URLResolver, validate *validator.Validate) *TopicService {
	return &TopicService{
		Topics:   topics,
		URLs:     urls,
		Validate: validate,
	}
}

// ResolveTopic 未配置时返回 ErrNotConfigured
func (s *TopicService) ResolveTopic(ctx context.Context, subjectID uint, topicNumber int) (*TopicContent, error) {
	cfg, err := s.Topics.FindBySubjectAndNumber(ctx, subjectID, topicNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: subject %d topic %d", util.ErrNotConfigured, subjectID, topicNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load topic: %v", util.ErrStoreUnavailable, err)
	}
	if cfg.PDFPath == "" {
		return nil, fmt.Errorf("%w: subject %d topic %d has no PDF", util.ErrNotConfigured, subjectID, topicNumber)
	}
	content := s.toContent(cfg)
	return &content, nil
}

// ListTopics 按主题编号排序
func (s *TopicService) ListTopics(ctx context.Context, subjectID uint) ([]TopicContent, error) {
	configs, err := s.Topics.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list topics: %v", util.ErrStoreUnavailable, err)
	}
	out := make([]TopicContent, 0, len(configs))
	for i := range configs {
		out = append(out, s.toContent(&configs[i]))
	}
	return out, nil
}

// ReplaceTopics 校验后整组替换科目的主题，按提交顺序重新编号为 1..n
func (s *TopicService) ReplaceTopics(ctx context.Context, subjectID uint, pdfPath string, topics []TopicInput) ([]TopicContent, error) {
	if pdfPath == "" && len(topics) > 0 {
		return nil, fmt.Errorf("%w: a PDF must be uploaded before configuring topics", util.ErrValidation)
	}

	configs := make([]model.PdfTopicConfig, 0, len(topics))
	for i, t := range topics {
		t.Name = strings.TrimSpace(t.Name)
		t.VideoURL = strings.TrimSpace(t.VideoURL)
		if err := s.Validate.Struct(t); err != nil {
			return nil, fmt.Errorf("%w: topic %d: %v", util.ErrValidation, i+1, err)
		}
		configs = append(configs, model.PdfTopicConfig{
			SubjectID:   subjectID,
			TopicNumber: i + 1,
			TopicName:   t.Name,
			PageStart:   t.PageStart,
			PageEnd:     t.PageEnd,
			PDFPath:     pdfPath,
			VideoURL:    t.VideoURL,
		})
	}

	if err := s.Topics.ReplaceForSubject(ctx, subjectID, configs); err != nil {
		return nil, fmt.Errorf("%w: replace topics: %v", util.ErrStoreUnavailable, err)
	}

	out := make([]TopicContent, 0, len(configs))
	for i := range configs {
		out = append(out, s.toContent(&configs[i]))
	}
	return out, nil
}

// CurrentPDFPath 科目下所有主题共用同一个 PDF
func (s *TopicService) CurrentPDFPath(ctx context.Context, subjectID uint) (string, error) {
	configs, err := s.Topics.ListBySubject(ctx, subjectID)
	if err != nil {
		return "", fmt.Errorf("%w: list topics: %v", util.ErrStoreUnavailable, err)
	}
	for _, c := range configs {
		if c.PDFPath != "" {
			return c.PDFPath, nil
		}
	}
	return "", nil
}

func (s *TopicService) toContent(cfg *model.PdfTopicConfig) TopicContent {
	name, video := SplitTopicName(cfg.TopicName)
	if cfg.VideoURL != "" {
		// 显式视频字段优先，名称保持原样
		name, video = strings.TrimSpace(cfg.TopicName), cfg.VideoURL
	}
	return TopicContent{
		SubjectID:   cfg.SubjectID,
		TopicNumber: cfg.TopicNumber,
		Name:        name,
		PageStart:   cfg.PageStart,
		PageEnd:     cfg.PageEnd,
		PDFPath:     cfg.PDFPath,
		PDFURL:      s.URLs.PublicURL(cfg.PDFPath),
		VideoURL:    video,
		EmbedURL:    EmbedURL(video),
	}
}

var (
	youtubeURLPattern   = regexp.MustCompile(`(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`)
	youtubeQueryPattern = regexp.MustCompile(`(https?://)?(www\.)?youtube\.com/watch\?\S*v=([a-zA-Z0-9_-]{11})`)
	emptyBrackets       = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	youtubeIDPattern    = regexp.MustCompile(`(?:youtube\.com/watch\?\S*v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`)
)

// SplitTopicName 从主题名中提取 YouTube 链接，返回清理后的名称和链接
func SplitTopicName(raw string) (name, videoURL string) {
	loc := youtubeURLPattern.FindStringIndex(raw)
	if loc == nil {
		loc = youtubeQueryPattern.FindStringIndex(raw)
	}
	if loc == nil {
		return strings.TrimSpace(raw), ""
	}

	videoURL = raw[loc[0]:loc[1]]
	if !strings.HasPrefix(videoURL, "http://") && !strings.HasPrefix(videoURL, "https://") {
		videoURL = "https://" + videoURL
	}

	name = raw[:loc[0]] + raw[loc[1]:]
	name = emptyBrackets.ReplaceAllString(name, "")
	name = strings.Trim(strings.TrimSpace(name), " -:|")
	return strings.TrimSpace(name), videoURL
}

// EmbedURL 将 watch/短链接转为 /embed/<id>，非 YouTube 链接返回空
func EmbedURL(videoURL string) string {
	m := youtubeIDPattern.FindStringSubmatch(videoURL)
	if m == nil {
		return ""
	}
	return "https://www.youtube.com/embed/" + m[1]
}
