package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dominikcirko/kanban-app/internal/common"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortOrder orders results by one task property.
type SortOrder struct {
	Property string
	Desc     bool
}

// sortable maps API property names to task columns.
var sortable = map[string]string{
	"id":          "id",
	"title":       "title",
	"description": "description",
	"status":      "status",
	"priority":    "priority",
	"version":     "version",
}

// Column returns the database column for the property.
func (o SortOrder) Column() string {
	return sortable[o.Property]
}

// ParseSort reads "prop,desc;prop2" into orders. Direction defaults to
// ascending. An empty string yields id ascending.
func ParseSort(s string) ([]SortOrder, error) {
	if strings.TrimSpace(s) == "" {
		return []SortOrder{{Property: "id"}}, nil
	}

	var orders []SortOrder
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prop, dir, _ := strings.Cut(part, ",")
		prop = strings.TrimSpace(prop)
		if _, ok := sortable[prop]; !ok {
			return nil, fmt.Errorf("%w: cannot sort by %q", common.ErrorValidation, prop)
		}
		o := SortOrder{Property: prop}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			o.Desc = true
		default:
			return nil, fmt.Errorf("%w: bad sort direction %q", common.ErrorValidation, dir)
		}
		orders = append(orders, o)
	}
	if len(orders) == 0 {
		orders = []SortOrder{{Property: "id"}}
	}
	return orders, nil
}

// PageRequest selects a zero-based page of results.
type PageRequest struct {
	Page int
	Size int
	Sort []SortOrder
}

// Offset is the number of rows to skip. Pages too far out to address
// saturate at math.MaxInt instead of wrapping.
func (p PageRequest) Offset() int {
	if p.Page <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Page > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// Addressable reports whether the page's first row can be expressed as an
// int offset.
func (p PageRequest) Addressable() bool {
	return p.Size <= 0 || p.Page <= math.MaxInt/p.Size
}

func (p PageRequest) sortKey() string {
	var b strings.Builder
	for i, o := range p.Sort {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(o.Property)
		if o.Desc {
			b.WriteString(",desc")
		}
	}
	return b.String()
}

// TaskFilter narrows a listing. Nil fields match everything.
type TaskFilter struct {
	Status   *Status
	Priority *Priority
}

// CacheKey identifies one page of one listing.
func CacheKey(f TaskFilter, p PageRequest) string {
	status, priority := "*", "*"
	if f.Status != nil {
		status = string(*f.Status)
	}
	if f.Priority != nil {
		priority = f.Priority.String()
	}
	return strings.Join([]string{
		status, priority, strconv.Itoa(p.Page), strconv.Itoa(p.Size), p.sortKey(),
	}, "|")
}

// Page is one slice of a listing, in the shape the board frontend expects.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
}

// NewPage fills in the derived totals.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		Size:          req.Size,
		Number:        req.Page,
	}
}
