package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-masala/internal/common"
	"github.com/noah-isme/backend-masala/internal/pricing"
)

type itemProvider interface {
	List(ctx context.Context, f ListFilter) ([]Item, int64, error)
	Get(ctx context.Context, idOrSlug string) (Item, error)
	GetMany(ctx context.Context, ids []string) ([]Item, error)
}

// Service orchestrates catalog queries, storefront pricing, and caching.
type Service struct {
	store        itemProvider
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        itemProvider
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ListParams captures filters for catalog listing.
type ListParams struct {
	Storefront Storefront
	Query      string
	InStock    *bool
	Page       int
	Limit      int
}

// ListedItem is the storefront-facing list entry. UnitPrice is resolved for
// the requested storefront.
type ListedItem struct {
	ID        string           `json:"id"`
	Slug      string           `json:"slug"`
	Name      string           `json:"name"`
	Unit      string           `json:"unit"`
	UnitPrice pricing.Money    `json:"unitPrice"`
	Stock     pricing.Quantity `json:"stock"`
	InStock   bool             `json:"inStock"`
	Tags      []string         `json:"tags,omitempty"`
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []ListedItem
	Total int64
	Page  int
	Limit int
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	storefront, err := ParseStorefront(values.Get("storefront"))
	if err != nil {
		return ListParams{}, badRequest("storefront", "storefront must be retail or caterer", err)
	}
	params := ListParams{
		Storefront: storefront,
		Query:      strings.TrimSpace(values.Get("q")),
		Page:       s.defaultPage,
		Limit:      s.defaultLimit,
	}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = limit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	if v := strings.TrimSpace(values.Get("inStock")); v != "" {
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return params, badRequest("inStock", "inStock must be true or false", err)
		}
		params.InStock = &b
	}
	return params, nil
}

// List returns a storefront-priced page of catalog items, serving the
// unfiltered first page from cache when possible.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	key, cacheable := s.listCacheKey(params)
	if cacheable {
		var cached cachedList
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return ListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	items, total, err := s.store.List(ctx, ListFilter{
		Query:      params.Query,
		Storefront: params.Storefront,
		InStock:    params.InStock,
		Limit:      params.Limit,
		Offset:     (params.Page - 1) * params.Limit,
	})
	if err != nil {
		return ListResult{}, err
	}
	listed := make([]ListedItem, 0, len(items))
	for _, it := range items {
		listed = append(listed, ListedItem{
			ID:        it.ID,
			Slug:      it.Slug,
			Name:      it.Name,
			Unit:      it.Unit,
			UnitPrice: params.Storefront.PriceFor(it),
			Stock:     it.Stock,
			InStock:   it.Stock > 0,
			Tags:      it.Tags,
		})
	}
	result := ListResult{Items: listed, Total: total, Page: params.Page, Limit: params.Limit}
	if cacheable {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: listed, Total: total})
	}
	return result, nil
}

// Get returns a single item by id or slug.
func (s *Service) Get(ctx context.Context, idOrSlug string) (Item, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return Item{}, badRequest("id", "item id is required", nil)
	}
	item, err := s.store.Get(ctx, idOrSlug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Item{}, &common.AppError{Code: "NOT_FOUND", Message: "item not found", HTTPStatus: http.StatusNotFound, Err: err}
		}
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Candidates resolves the ids into mix candidates for the storefront.
// Unknown, unpriced, inactive, or out-of-stock ids are returned in dropped
// rather than failing the whole selection.
func (s *Service) Candidates(ctx context.Context, storefront Storefront, ids []string) ([]pricing.Candidate, []string, error) {
	items, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve candidates: %w", err)
	}
	byID := make(map[string]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	candidates := make([]pricing.Candidate, 0, len(ids))
	var dropped []string
	for _, id := range ids {
		it, ok := byID[id]
		if !ok || !storefront.Eligible(it) {
			dropped = append(dropped, id)
			continue
		}
		candidates = append(candidates, pricing.Candidate{ID: it.ID, UnitPrice: storefront.PriceFor(it)})
	}
	return candidates, dropped, nil
}

type cachedList struct {
	Items []ListedItem `json:"items"`
	Total int64        `json:"total"`
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if params.Page != s.defaultPage || params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.InStock != nil {
		return "", false
	}
	return "catalog:items:list:" + string(params.Storefront), true
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
