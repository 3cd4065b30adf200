package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// Page is a pagination request. Sort fields are checked against a whitelist per query.
type Page struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta describes a page of results.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func (p Page) Meta(total int64) Meta {
	return Meta{Page: p.Page, Limit: p.Limit, Total: total}
}

// apply adds order, limit and offset. allowed maps API sort names to columns.
func (p Page) apply(q *gorm.DB, allowed map[string]string, defaultColumn string) *gorm.DB {
	col, ok := allowed[p.SortBy]
	if !ok {
		col = defaultColumn
	}
	desc := !strings.EqualFold(p.SortOrder, "asc")
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc})
	if p.Limit > 0 {
		q = q.Limit(p.Limit).Offset(p.Offset())
	}
	return q
}

// like builds a case-insensitive contains pattern.
func like(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// forUpdate locks the selected rows until the transaction ends.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
