package model

// swagger:model Subject
type Subject struct {
	BaseModel
	Name        string `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (Subject) TableName() string {
	return "subjects"
}
