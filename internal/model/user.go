package model

// User is a credential record created at registration.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Name         string `json:"name" gorm:"size:15;uniqueIndex"`
	Username     string `json:"username" gorm:"size:15;uniqueIndex"`
	Email        string `json:"email" gorm:"size:50;uniqueIndex"`
	PasswordHash string `json:"-" gorm:"column:password;size:256"` // Never expose in JSON
}

// TableName keeps the singular table name used by the existing schema.
func (User) TableName() string {
	return "user"
}
