package models

import (
	"time"

	"gorm.io/gorm"
)

type Blog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	HostID        uint           `gorm:"not null;index" json:"host_id"`
	AuthorID      uint           `gorm:"not null;index" json:"author_id"` // user id
	Title         string         `gorm:"size:255;not null" json:"title"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	Excerpt       string         `gorm:"size:512" json:"excerpt"`
	CoverImage    string         `gorm:"size:512" json:"cover_image"`
	Category      string         `gorm:"size:60;index" json:"category"`
	Tags          []string       `gorm:"serializer:json;type:text" json:"tags"`
	Status        string         `gorm:"size:20;not null;index" json:"status"` // DRAFT | PUBLISHED
	IsApproved    bool           `gorm:"index" json:"is_approved"`
	Views         int64          `gorm:"not null;default:0" json:"views"`
	LikesCount    int            `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int            `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Host     *Host         `gorm:"foreignKey:HostID" json:"host,omitempty"`
	Comments []BlogComment `gorm:"foreignKey:BlogID" json:"comments,omitempty"`
}

func (Blog) TableName() string {
	return "blogs"
}

type BlogComment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BlogID     uint           `gorm:"not null;index" json:"blog_id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	ParentID   *uint          `gorm:"index" json:"parent_id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	LikesCount int            `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (BlogComment) TableName() string {
	return "blog_comments"
}

type BlogLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlogID    uint      `gorm:"not null;uniqueIndex:idx_blog_like" json:"blog_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_blog_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (BlogLike) TableName() string {
	return "blog_likes"
}

type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like" json:"comment_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
