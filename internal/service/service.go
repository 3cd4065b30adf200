package service

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"

	"gorm.io/gorm"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool   { return a.Role == domain.RoleAdmin }
func (a Actor) IsHost() bool    { return a.Role == domain.RoleHost }
func (a Actor) IsTourist() bool { return a.Role == domain.RoleTourist }

// Upload is an image file read from a multipart form.
type Upload struct {
	Name   string
	Reader io.Reader
}

// notFound maps gorm's record-not-found to a 404 with msg and wraps anything else as internal.
func notFound(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal("database error", err)
}

// dbErr wraps an unexpected persistence failure, passing app errors through.
func dbErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal("database error", err)
}

func ref(kind string, id uint) string {
	return kind + ":" + strconv.FormatUint(uint64(id), 10)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func uintPtr(v uint) *uint { return &v }
