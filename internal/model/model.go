package model

// Model represents a registered AI model
type Model struct {
	BaseModel
	Name        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(512)" json:"description"`
	Versions    []Version `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
}

// TableName specifies the table name for Model
func (Model) TableName() string {
	return "models"
}
