package model

// PdfTopicConfig 一个科目下某个主题对应的 PDF 页码区间和视频
// swagger:model PdfTopicConfig
type PdfTopicConfig struct {
	BaseModel
	SubjectID   uint   `gorm:"uniqueIndex:idx_subject_topic;not null" json:"subjectId"`
	TopicNumber int    `gorm:"uniqueIndex:idx_subject_topic;not null" json:"topicNumber"`
	TopicName   string `gorm:"size:255;not null" json:"topicName"`
	PageStart   int    `gorm:"not null" json:"pageStart"`
	PageEnd     int    `gorm:"not null" json:"pageEnd"`
	PDFPath     string `gorm:"size:500;not null" json:"pdfPath"`
	VideoURL    string `gorm:"size:500" json:"videoUrl,omitempty"`
}

func (PdfTopicConfig) TableName() string {
	return "pdf_topic_configs"
}
