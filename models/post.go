package models

import "time"

// Post represents a content entry created by a user. The author is stamped
// from the authenticated session at creation and never changes afterwards.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Upvotes    int       `gorm:"default:0" json:"upvotes"`
	Downvotes  int       `gorm:"default:0" json:"downvotes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"author"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category"`
	Comments   []Comment `gorm:"foreignKey:PostID" json:"comments"`
}
