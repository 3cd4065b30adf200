package middleware

import (
	"errors"
	"net/http"

	"tourhub/internal/apperr"

	"github.com/gin-gonic/gin"
)

// LimitChecker reports whether a host may create another resource.
type LimitChecker interface {
	CheckTour(userID uint) error
	CheckBlog(userID uint) error
}

// CheckTourCreationLimit rejects tour creation once the host's plan allowance is used up.
func CheckTourCreationLimit(limits LimitChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limits.CheckTour(GetUserID(c)); err != nil {
			abortErr(c, err)
			return
		}
		c.Next()
	}
}

// CheckBlogCreationLimit is the blog counterpart of CheckTourCreationLimit.
func CheckBlogCreationLimit(limits LimitChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limits.CheckBlog(GetUserID(c)); err != nil {
			abortErr(c, err)
			return
		}
		c.Next()
	}
}

func abortErr(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Status < http.StatusInternalServerError {
		abort(c, ae.Status, ae.Message)
		return
	}
	_ = c.Error(err)
	abort(c, http.StatusInternalServerError, "Something went wrong")
}
