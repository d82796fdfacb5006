package model

// Task is a single to-do item. Tasks are shared by every authenticated user.
type Task struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Content string `json:"content" gorm:"type:text"`
	Done    bool   `json:"done" gorm:"not null;default:false"`
}

// TableName keeps the singular table name used by the existing schema.
func (Task) TableName() string {
	return "task"
}
