package models

import "github.com/dmitrijs2005/tourdesk/internal/common"

// PageRequest selects a 1-based page of a listing.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request: page defaults to 1, a non-positive size to
// def, and sizes above common.MaxPageSize are capped.
func (p PageRequest) Normalize(def int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = def
	}
	if p.PageSize > common.MaxPageSize {
		p.PageSize = common.MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

// NewPage wraps items fetched for req.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: req.Page, PageSize: req.PageSize, Total: total}
}

func (p Page[T]) Pages() int {
	if p.PageSize == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
