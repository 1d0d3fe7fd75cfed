package models

import "time"

// Post is a blog entry. Posts are removed together with their author.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"author"`
	CreatedAt time.Time `gorm:"<-:create;autoCreateTime;not null" json:"created_at"`
	Image     *string   `gorm:"size:255" json:"image,omitempty"` // blob key, e.g. blog_images/<uuid>.png
}

func (Post) TableName() string {
	return "blog_post"
}

// HasImage reports whether an image blob is attached.
func (p *Post) HasImage() bool {
	return p.Image != nil && *p.Image != ""
}

type CreatePostRequest struct {
	Title   string `json:"title" form:"title" binding:"required,max=200"`
	Content string `json:"content" form:"content" binding:"required"`
}
