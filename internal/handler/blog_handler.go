package handler

import (
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

type BlogHandler struct {
	svc *service.BlogService
}

func NewBlogHandler(svc *service.BlogService) *BlogHandler {
	return &BlogHandler{svc: svc}
}

type BlogRequest struct {
	Title    *string  `json:"title"`
	Content  *string  `json:"content"`
	Excerpt  *string  `json:"excerpt"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags"`
	Status   *string  `json:"status"`
}

func (r BlogRequest) input() service.BlogInput {
	return service.BlogInput{
		Title:    r.Title,
		Content:  r.Content,
		Excerpt:  r.Excerpt,
		Category: r.Category,
		Tags:     r.Tags,
		Status:   r.Status,
	}
}

type CommentRequest struct {
	Content  string `json:"content" binding:"required,max=2000"`
	ParentID *uint  `json:"parent_id"`
}

type ApprovalRequest struct {
	IsApproved *bool `json:"is_approved" binding:"required"`
}

func (h *BlogHandler) Create(c *gin.Context) {
	var req BlogRequest
	if err := bindBody(c, &req); err != nil {
		bindError(c, err)
		return
	}
	cover, closeFiles, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()
	b, err := h.svc.Create(c.Request.Context(), actorOf(c), req.input(), cover)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Blog created successfully", b)
}

// List shows published, approved blogs. Admins see every blog and may filter by status.
func (h *BlogHandler) List(c *gin.Context) {
	f := repository.BlogFilter{
		Search:   c.Query("searchTerm"),
		Category: c.Query("category"),
		HostID:   queryUint(c, "hostId"),
		Status:   c.Query("status"),
	}
	if !actorOf(c).IsAdmin() {
		f.Published = true
		f.Status = ""
	}
	p := parsePage(c)
	list, total, err := h.svc.List(f, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Blogs retrieved", list, p.Meta(total))
}

func (h *BlogHandler) MyBlogs(c *gin.Context) {
	p := parsePage(c)
	list, total, err := h.svc.MyBlogs(middleware.GetUserID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "Blogs retrieved", list, p.Meta(total))
}

func (h *BlogHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.Get(actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Blog retrieved", b)
}

func (h *BlogHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req BlogRequest
	if err := bindBody(c, &req); err != nil {
		bindError(c, err)
		return
	}
	cover, closeFiles, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFiles()
	b, err := h.svc.Update(c.Request.Context(), actorOf(c), id, req.input(), cover)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Blog updated successfully", b)
}

func (h *BlogHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Blog deleted successfully", nil)
}

func (h *BlogHandler) SetApproval(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	b, err := h.svc.SetApproval(id, *req.IsApproved)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Blog approval updated", b)
}

func (h *BlogHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cm, err := h.svc.AddComment(actorOf(c), id, req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Comment added", cm)
}

func (h *BlogHandler) UpdateComment(c *gin.Context) {
	id, ok := parseID(c, "commentId")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cm, err := h.svc.UpdateComment(actorOf(c), id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Comment updated", cm)
}

func (h *BlogHandler) DeleteComment(c *gin.Context) {
	id, ok := parseID(c, "commentId")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Comment deleted", nil)
}

func (h *BlogHandler) ToggleLike(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	liked, err := h.svc.ToggleLike(actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, likeMessage(liked), gin.H{"liked": liked})
}

func (h *BlogHandler) ToggleCommentLike(c *gin.Context) {
	id, ok := parseID(c, "commentId")
	if !ok {
		return
	}
	liked, err := h.svc.ToggleCommentLike(actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, likeMessage(liked), gin.H{"liked": liked})
}

func likeMessage(liked bool) string {
	if liked {
		return "Liked"
	}
	return "Like removed"
}
