package service

import (
	"electrobot/catalog/internal/domain"
	"electrobot/catalog/internal/filter"
	"electrobot/catalog/internal/index"
	"electrobot/catalog/internal/search"
	"electrobot/catalog/internal/store"
)

type CategoryPage struct {
	Items []index.CategoryCount `json:"items"`
	Page  int                   `json:"page"`
	Pages int                   `json:"pages"`
	Total int                   `json:"total"`
}

type ProductPage struct {
	Category string           `json:"category"`
	Slug     string           `json:"slug"`
	Items    []domain.Product `json:"items"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
}

// Browser answers the read-only catalog queries of the bot: category list,
// category contents, product cards and free-text search.
type Browser struct {
	store        *store.Store
	engine       *search.Engine
	filter       *filter.Evaluator
	defaultLimit int
	pageSize     int
}

// NewBrowser builds the read side. pageSize is used whenever a caller passes
// perPage <= 0.
func NewBrowser(store *store.Store, engine *search.Engine, evaluator *filter.Evaluator, defaultLimit, pageSize int) *Browser {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Browser{
		store:        store,
		engine:       engine,
		filter:       evaluator,
		defaultLimit: defaultLimit,
		pageSize:     pageSize,
	}
}

// Categories returns one page (zero-based) of categories ranked by size.
func (b *Browser) Categories(page, perPage int) CategoryPage {
	cats := b.store.Snapshot().Index.Categories()
	from, to, page, pages := paginate(len(cats), page, b.perPage(perPage))
	return CategoryPage{
		Items: cats[from:to],
		Page:  page,
		Pages: pages,
		Total: len(cats),
	}
}

// Products returns one page of a category in presentation order.
func (b *Browser) Products(slug string, page, perPage int) (ProductPage, bool) {
	snap := b.store.Snapshot()
	category, ok := snap.Index.CategoryBySlug(slug)
	if !ok {
		return ProductPage{}, false
	}
	products := b.filter.Filter(snap.Products, category, nil)
	from, to, page, pages := paginate(len(products), page, b.perPage(perPage))
	return ProductPage{
		Category: category,
		Slug:     slug,
		Items:    products[from:to],
		Page:     page,
		Pages:    pages,
		Total:    len(products),
	}, true
}

func (b *Browser) Product(id string) (domain.Product, bool) {
	return b.store.Snapshot().Product(id)
}

// Search runs the smart search, falling back to substring matching.
// limit <= 0 uses the configured default.
func (b *Browser) Search(query string, limit int) []domain.Product {
	if limit <= 0 {
		limit = b.defaultLimit
	}
	return b.engine.SearchSmart(b.store.Snapshot().Products, query, limit)
}

func (b *Browser) perPage(n int) int {
	if n <= 0 {
		return b.pageSize
	}
	return n
}

// paginate clamps page into range and returns the slice bounds for it.
func paginate(total, page, perPage int) (from, to, clamped, pages int) {
	pages = (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	from = page * perPage
	to = min(from+perPage, total)
	return from, to, page, pages
}
