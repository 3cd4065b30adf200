package handler

import (
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"tourhub/internal/apperr"
	"tourhub/internal/auth"
	"tourhub/internal/logger"
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const maxPageSize = 100

func respondOK(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "data": data})
}

func respondCreated(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg, "data": data})
}

func respondList(c *gin.Context, msg string, data interface{}, meta repository.Meta) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "meta": meta, "data": data})
}

func respondFail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// respondError shapes every service error. Unknown errors are logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		respondFail(c, http.StatusConflict, "User with this email already exists")
		return
	case errors.Is(err, service.ErrInvalidCreds):
		respondFail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	case errors.Is(err, service.ErrAccountBlocked):
		respondFail(c, http.StatusForbidden, "Your account is blocked or deleted")
		return
	case errors.Is(err, service.ErrIncorrectPassword):
		respondFail(c, http.StatusBadRequest, "Old password is incorrect")
		return
	case errors.Is(err, service.ErrNoPassword):
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidToken):
		respondFail(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Status >= http.StatusInternalServerError {
			logger.For("http").WithError(err).WithField("path", c.FullPath()).Error("request failed")
		}
		respondFail(c, ae.Status, ae.Message)
		return
	}
	logger.For("http").WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
	respondFail(c, http.StatusInternalServerError, "Something went wrong")
}

// bindError answers a request body that failed validation.
func bindError(c *gin.Context, err error) {
	respondFail(c, http.StatusBadRequest, err.Error())
}

func actorOf(c *gin.Context) service.Actor {
	return service.Actor{UserID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

// parseID reads a positive numeric path parameter. It writes the 400 itself.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondFail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func parsePage(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return repository.Page{
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	}
}

func queryUint(c *gin.Context, key string) *uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}

func queryBool(c *gin.Context, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &v
}

func queryCents(c *gin.Context, key string) *int64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return nil
	}
	cents := toCents(v)
	return &cents
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func centsPtr(amount *float64) *int64 {
	if amount == nil {
		return nil
	}
	v := toCents(*amount)
	return &v
}

// bindBody decodes JSON bodies, or the "data" field of a multipart form carrying files.
func bindBody(c *gin.Context, dst interface{}) error {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.ShouldBindJSON(dst)
	}
	raw := c.PostForm("data")
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return errors.New("data must be a JSON object")
	}
	return binding.Validator.ValidateStruct(dst)
}

// formFiles opens every file under field. The returned close func must be called.
func formFiles(c *gin.Context, field string) ([]service.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, apperr.BadRequest("Invalid multipart form")
	}
	return openAll(form.File[field])
}

// formFile opens the single file under field, or returns nil when none was sent.
func formFile(c *gin.Context, field string) (*service.Upload, func(), error) {
	files, closeAll, err := formFiles(c, field)
	if err != nil || len(files) == 0 {
		return nil, closeAll, err
	}
	return &files[0], closeAll, nil
}

func openAll(headers []*multipart.FileHeader) ([]service.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperr.BadRequest("Could not read uploaded file")
		}
		opened = append(opened, f)
		uploads = append(uploads, service.Upload{Name: fh.Filename, Reader: f})
	}
	return uploads, closeAll, nil
}
