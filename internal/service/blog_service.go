package service

import (
	"context"
	"strings"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"gorm.io/gorm"
)

type BlogInput struct {
	Title    *string
	Content  *string
	Excerpt  *string
	Category *string
	Tags     []string
	Status   *string
}

func (in *BlogInput) apply(b *models.Blog) error {
	if in.Title != nil {
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		b.Content = *in.Content
	}
	if in.Excerpt != nil {
		b.Excerpt = *in.Excerpt
	}
	if in.Category != nil {
		b.Category = *in.Category
	}
	if in.Tags != nil {
		b.Tags = in.Tags
	}
	if in.Status != nil {
		st := strings.ToUpper(*in.Status)
		if st != domain.BlogDraft && st != domain.BlogPublished {
			return apperr.BadRequest("Status must be DRAFT or PUBLISHED")
		}
		b.Status = st
	}
	if b.Title == "" || strings.TrimSpace(b.Content) == "" {
		return apperr.BadRequest("Title and content are required")
	}
	return nil
}

type BlogService struct {
	db    *gorm.DB
	blogs *repository.BlogRepository
	hosts *repository.HostRepository
	media *Media
}

func NewBlogService(db *gorm.DB, media *Media) *BlogService {
	return &BlogService{
		db:    db,
		blogs: repository.NewBlogRepository(db),
		hosts: repository.NewHostRepository(db),
		media: media,
	}
}

// Create publishes a blog for the calling host. New blogs wait for admin approval.
func (s *BlogService) Create(ctx context.Context, actor Actor, in BlogInput, cover *Upload) (*models.Blog, error) {
	b := &models.Blog{AuthorID: actor.UserID, Status: domain.BlogPublished}
	if err := in.apply(b); err != nil {
		return nil, err
	}
	url, err := s.media.UploadOne(ctx, "blogs", cover)
	if err != nil {
		return nil, err
	}
	b.CoverImage = url
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := lockHostWithSubscription(tx, actor.UserID)
		if err != nil {
			return err
		}
		if err := expireIfLapsed(tx, h, time.Now()); err != nil {
			return err
		}
		if err := blogAllowed(h); err != nil {
			return err
		}
		b.HostID = h.ID
		if err := s.blogs.WithTx(tx).Create(b); err != nil {
			return err
		}
		if err := s.hosts.WithTx(tx).AdjustBlogCount(h.ID, 1); err != nil {
			return err
		}
		if sub := activeSub(h); sub != nil && sub.BlogLimit != nil {
			return repository.NewSubscriptionRepository(tx).AdjustRemaining(sub.ID, "remaining_blogs", -1)
		}
		return nil
	})
	if err != nil {
		s.media.Delete(context.Background(), url)
		return nil, dbErr(err)
	}
	logger.For("blog").WithField("blog_id", b.ID).Info("blog created")
	return b, nil
}

func (s *BlogService) List(f repository.BlogFilter, p repository.Page) ([]models.Blog, int64, error) {
	list, total, err := s.blogs.List(f, p)
	return list, total, dbErr(err)
}

func (s *BlogService) MyBlogs(userID uint, p repository.Page) ([]models.Blog, int64, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.List(repository.BlogFilter{HostID: &h.ID}, p)
}

func (s *BlogService) ownedBy(actor Actor, b *models.Blog) bool {
	return actor.UserID != 0 && b.AuthorID == actor.UserID
}

// Get returns a blog with its comments. Drafts and unapproved blogs are only visible to
// their author and admins. Public reads count a view.
func (s *BlogService) Get(actor Actor, id uint) (*models.Blog, error) {
	b, err := s.blogs.GetWithComments(id)
	if err != nil {
		return nil, notFound(err, "Blog not found")
	}
	public := b.Status == domain.BlogPublished && b.IsApproved
	if !public && !actor.IsAdmin() && !s.ownedBy(actor, b) {
		return nil, apperr.NotFound("Blog not found")
	}
	if public && !s.ownedBy(actor, b) {
		if err := s.blogs.IncrementViews(id); err != nil {
			logger.For("blog").WithError(err).Warn("could not count blog view")
		} else {
			b.Views++
		}
	}
	return b, nil
}

func (s *BlogService) Update(ctx context.Context, actor Actor, id uint, in BlogInput, cover *Upload) (*models.Blog, error) {
	b, err := s.blogs.GetByID(id)
	if err != nil {
		return nil, notFound(err, "Blog not found")
	}
	if !s.ownedBy(actor, b) {
		return nil, apperr.Forbidden("You can only update your own blogs")
	}
	if err := in.apply(b); err != nil {
		return nil, err
	}
	old := ""
	if cover != nil {
		url, err := s.media.UploadOne(ctx, "blogs", cover)
		if err != nil {
			return nil, err
		}
		old, b.CoverImage = b.CoverImage, url
	}
	if err := s.blogs.Update(b); err != nil {
		return nil, dbErr(err)
	}
	if old != "" {
		s.media.Delete(context.Background(), old)
	}
	return b, nil
}

// Delete removes a blog for its author or an admin and frees one blog slot of the host.
func (s *BlogService) Delete(ctx context.Context, actor Actor, id uint) error {
	b, err := s.blogs.GetByID(id)
	if err != nil {
		return notFound(err, "Blog not found")
	}
	if !actor.IsAdmin() && !s.ownedBy(actor, b) {
		return apperr.Forbidden("You are not allowed to delete this blog")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", b.ID).Delete(&models.BlogLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blog_id = ?", b.ID).Delete(&models.BlogComment{}).Error; err != nil {
			return err
		}
		if err := s.blogs.WithTx(tx).Delete(b.ID); err != nil {
			return err
		}
		return s.hosts.WithTx(tx).AdjustBlogCount(b.HostID, -1)
	})
	if err != nil {
		return dbErr(err)
	}
	if b.CoverImage != "" {
		s.media.Delete(context.Background(), b.CoverImage)
	}
	return nil
}

// SetApproval is the admin moderation switch.
func (s *BlogService) SetApproval(id uint, approved bool) (*models.Blog, error) {
	b, err := s.blogs.GetByID(id)
	if err != nil {
		return nil, notFound(err, "Blog not found")
	}
	b.IsApproved = approved
	return b, dbErr(s.blogs.Update(b))
}

// Comments

func (s *BlogService) AddComment(actor Actor, blogID uint, content string, parentID *uint) (*models.BlogComment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.BadRequest("Comment cannot be empty")
	}
	if _, err := s.blogs.GetByID(blogID); err != nil {
		return nil, notFound(err, "Blog not found")
	}
	if parentID != nil {
		parent, err := s.blogs.GetComment(*parentID)
		if err != nil {
			return nil, notFound(err, "Parent comment not found")
		}
		if parent.BlogID != blogID {
			return nil, apperr.BadRequest("Parent comment belongs to another blog")
		}
	}
	c := &models.BlogComment{BlogID: blogID, UserID: actor.UserID, ParentID: parentID, Content: content}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.blogs.WithTx(tx).CreateComment(c)
	})
	return c, dbErr(err)
}

func (s *BlogService) UpdateComment(actor Actor, id uint, content string) (*models.BlogComment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.BadRequest("Comment cannot be empty")
	}
	c, err := s.blogs.GetComment(id)
	if err != nil {
		return nil, notFound(err, "Comment not found")
	}
	if c.UserID != actor.UserID {
		return nil, apperr.Forbidden("You can only edit your own comments")
	}
	c.Content = content
	return c, dbErr(s.blogs.UpdateComment(c))
}

// DeleteComment removes a comment and its replies. The comment author, the blog author
// and admins may delete.
func (s *BlogService) DeleteComment(actor Actor, id uint) error {
	c, err := s.blogs.GetComment(id)
	if err != nil {
		return notFound(err, "Comment not found")
	}
	if c.UserID != actor.UserID && !actor.IsAdmin() {
		b, err := s.blogs.GetByID(c.BlogID)
		if err != nil || !s.ownedBy(actor, b) {
			return apperr.Forbidden("You are not allowed to delete this comment")
		}
	}
	return dbErr(s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.blogs.WithTx(tx).DeleteComment(c)
		return err
	}))
}

func (s *BlogService) ToggleLike(actor Actor, blogID uint) (bool, error) {
	if _, err := s.blogs.GetByID(blogID); err != nil {
		return false, notFound(err, "Blog not found")
	}
	var liked bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		liked, err = s.blogs.WithTx(tx).ToggleBlogLike(blogID, actor.UserID)
		return err
	})
	return liked, dbErr(err)
}

func (s *BlogService) ToggleCommentLike(actor Actor, commentID uint) (bool, error) {
	if _, err := s.blogs.GetComment(commentID); err != nil {
		return false, notFound(err, "Comment not found")
	}
	var liked bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		liked, err = s.blogs.WithTx(tx).ToggleCommentLike(commentID, actor.UserID)
		return err
	})
	return liked, dbErr(err)
}
