package repository

import (
	"tourhub/internal/domain"
	"tourhub/internal/models"

	"gorm.io/gorm"
)

type BlogRepository struct {
	db *gorm.DB
}

func NewBlogRepository(db *gorm.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

func (r *BlogRepository) WithTx(tx *gorm.DB) *BlogRepository {
	return &BlogRepository{db: tx}
}

func (r *BlogRepository) Create(b *models.Blog) error {
	return r.db.Create(b).Error
}

func (r *BlogRepository) GetByID(id uint) (*models.Blog, error) {
	var b models.Blog
	err := r.db.First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BlogRepository) GetWithComments(id uint) (*models.Blog, error) {
	var b models.Blog
	err := r.db.Preload("Host").Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BlogRepository) Update(b *models.Blog) error {
	return r.db.Omit("Host", "Comments").Save(b).Error
}

func (r *BlogRepository) Delete(id uint) error {
	return r.db.Delete(&models.Blog{}, id).Error
}

func (r *BlogRepository) IncrementViews(id uint) error {
	return r.db.Model(&models.Blog{}).Where("id = ?", id).UpdateColumn("views", gorm.Expr("views + 1")).Error
}

type BlogFilter struct {
	Search    string
	Category  string
	HostID    *uint
	Status    string
	Published bool // only PUBLISHED and approved
}

func (r *BlogRepository) List(f BlogFilter, p Page) ([]models.Blog, int64, error) {
	q := r.db.Model(&models.Blog{})
	if f.Search != "" {
		s := like(f.Search)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ?", s, s)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.HostID != nil {
		q = q.Where("host_id = ?", *f.HostID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Published {
		q = q.Where("status = ? AND is_approved = ?", domain.BlogPublished, true)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Blog
	err := p.apply(q.Preload("Host"), map[string]string{"createdAt": "created_at", "views": "views", "likes": "likes_count", "title": "title"}, "created_at").
		Find(&list).Error
	return list, total, err
}

func (r *BlogRepository) adjust(model interface{}, id uint, column string, delta int) error {
	q := r.db.Model(model).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(column+" >= ?", -delta)
	}
	return q.UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// Comments

func (r *BlogRepository) CreateComment(c *models.BlogComment) error {
	if err := r.db.Create(c).Error; err != nil {
		return err
	}
	return r.adjust(&models.Blog{}, c.BlogID, "comments_count", 1)
}

func (r *BlogRepository) GetComment(id uint) (*models.BlogComment, error) {
	var c models.BlogComment
	err := r.db.First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *BlogRepository) UpdateComment(c *models.BlogComment) error {
	return r.db.Save(c).Error
}

// DeleteComment removes a comment together with its replies and returns how many were removed.
func (r *BlogRepository) DeleteComment(c *models.BlogComment) (int64, error) {
	res := r.db.Where("id = ? OR parent_id = ?", c.ID, c.ID).Delete(&models.BlogComment{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		if err := r.adjust(&models.Blog{}, c.BlogID, "comments_count", -int(res.RowsAffected)); err != nil {
			return 0, err
		}
	}
	return res.RowsAffected, nil
}

// Likes

// ToggleBlogLike flips the user's like on a blog and reports whether it is now liked.
func (r *BlogRepository) ToggleBlogLike(blogID, userID uint) (bool, error) {
	res := r.db.Where("blog_id = ? AND user_id = ?", blogID, userID).Delete(&models.BlogLike{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, r.adjust(&models.Blog{}, blogID, "likes_count", -1)
	}
	if err := r.db.Create(&models.BlogLike{BlogID: blogID, UserID: userID}).Error; err != nil {
		return false, err
	}
	return true, r.adjust(&models.Blog{}, blogID, "likes_count", 1)
}

// ToggleCommentLike flips the user's like on a comment and reports whether it is now liked.
func (r *BlogRepository) ToggleCommentLike(commentID, userID uint) (bool, error) {
	res := r.db.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, r.adjust(&models.BlogComment{}, commentID, "likes_count", -1)
	}
	if err := r.db.Create(&models.CommentLike{CommentID: commentID, UserID: userID}).Error; err != nil {
		return false, err
	}
	return true, r.adjust(&models.BlogComment{}, commentID, "likes_count", 1)
}
