package models

// Category is a named grouping for posts. Posts reference it optionally.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Posts       []Post `gorm:"foreignKey:CategoryID" json:"-"`
}
