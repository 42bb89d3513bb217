package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/internal/service"
)

// FieldKind is how a key, filter or update value is parsed from the request.
type FieldKind int

const (
	KindString FieldKind = iota
	KindUUID
	KindUint
	KindInt
	KindFloat
	KindBool
)

// Field is a whitelisted column.
type Field struct {
	Name string
	Kind FieldKind
}

// ResourceConfig describes the columns a resource exposes over HTTP.
type ResourceConfig struct {
	Key       []Field
	Filters   []Field
	Updatable []Field
	OrderBy   string
	// TouchColumn is set to the current time on every update, if not empty.
	TouchColumn string
}

// ResourceAPI is the CRUD surface of service.ResourceService.
type ResourceAPI[T any] interface {
	Name() string
	List(ctx context.Context, q repository.ListQuery) ([]T, error)
	Get(ctx context.Context, key map[string]interface{}) (*T, error)
	Create(ctx context.Context, record *T) (*T, error)
	Update(ctx context.Context, key, changes map[string]interface{}) (*T, error)
	Delete(ctx context.Context, key map[string]interface{}) error
}

// ResourceHandler serves one marketplace table.
type ResourceHandler[T any] struct {
	service ResourceAPI[T]
	cfg     ResourceConfig
}

func NewResourceHandler[T any](svc ResourceAPI[T], cfg ResourceConfig) *ResourceHandler[T] {
	return &ResourceHandler[T]{service: svc, cfg: cfg}
}

// parse converts a query string or decoded JSON value to the column type.
func (f Field) parse(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case string:
		return f.parseString(v)
	case json.Number:
		if f.Kind == KindString || f.Kind == KindUUID || f.Kind == KindBool {
			return nil, f.invalid()
		}
		return f.parseString(v.String())
	case bool:
		if f.Kind == KindBool {
			return v, nil
		}
	}
	return nil, f.invalid()
}

func (f Field) parseString(s string) (interface{}, error) {
	switch f.Kind {
	case KindString:
		return s, nil
	case KindUUID:
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, f.invalid()
		}
		return id.String(), nil
	case KindUint:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, f.invalid()
		}
		return uint(n), nil
	case KindInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, f.invalid()
		}
		return n, nil
	case KindFloat:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, f.invalid()
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, f.invalid()
		}
		return b, nil
	}
	return nil, f.invalid()
}

func (f Field) invalid() error {
	return fmt.Errorf("%w: invalid value for %s", apperrors.ErrValidation, f.Name)
}

func (h *ResourceHandler[T]) findFilter(name string) (Field, bool) {
	for _, f := range h.cfg.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// keyFrom extracts every key column from values. A missing column is a validation error.
func (h *ResourceHandler[T]) keyFrom(values map[string]interface{}) (map[string]interface{}, error) {
	key := make(map[string]interface{}, len(h.cfg.Key))
	for _, f := range h.cfg.Key {
		raw, ok := values[f.Name]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: %s is required", apperrors.ErrValidation, f.Name)
		}
		v, err := f.parse(raw)
		if err != nil {
			return nil, err
		}
		key[f.Name] = v
	}
	return key, nil
}

func decodeBody(c *gin.Context) (map[string]interface{}, error) {
	body := make(map[string]interface{})
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// List отдает страницу записей с фильтрами из query
func (h *ResourceHandler[T]) List(c *gin.Context) {
	filters := make(map[string]interface{})
	for _, f := range h.cfg.Filters {
		raw, ok := c.GetQuery(f.Name)
		if !ok || raw == "" {
			continue
		}
		v, err := f.parseString(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filters[f.Name] = v
	}
	h.list(c, filters)
}

// ListBy returns a handler listing rows whose column equals the path parameter of the same name.
func (h *ResourceHandler[T]) ListBy(column string) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := h.findFilter(column)
		if !ok {
			f = Field{Name: column, Kind: KindString}
		}
		v, err := f.parseString(c.Param(column))
		if err != nil {
			respondError(c, err)
			return
		}
		h.list(c, map[string]interface{}{column: v})
	}
}

func (h *ResourceHandler[T]) list(c *gin.Context, filters map[string]interface{}) {
	limit, offset := service.Page(queryInt(c, "page"), queryInt(c, "page_size"))
	records, err := h.service.List(c.Request.Context(), repository.ListQuery{
		Filters: filters,
		OrderBy: h.cfg.OrderBy,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []T{}
	}
	c.JSON(http.StatusOK, records)
}

// Get отдает запись по ключу из пути (/:id)
func (h *ResourceHandler[T]) Get(c *gin.Context) {
	if len(h.cfg.Key) != 1 {
		respondError(c, fmt.Errorf("%w: %s has a composite key", apperrors.ErrValidation, h.service.Name()))
		return
	}
	key, err := h.keyFrom(map[string]interface{}{h.cfg.Key[0].Name: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	record, err := h.service.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Create создает запись из тела запроса
func (h *ResourceHandler[T]) Create(c *gin.Context) {
	var record T
	if err := c.ShouldBindJSON(&record); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.service.Create(c.Request.Context(), &record)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update применяет к записи только присутствующие в теле поля из белого списка
func (h *ResourceHandler[T]) Update(c *gin.Context) {
	body, err := decodeBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	key, err := h.keyFrom(body)
	if err != nil {
		respondError(c, err)
		return
	}

	changes := make(map[string]interface{})
	for _, f := range h.cfg.Updatable {
		raw, ok := body[f.Name]
		if !ok {
			continue
		}
		v, err := f.parse(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		changes[f.Name] = v
	}
	if len(changes) > 0 && h.cfg.TouchColumn != "" {
		changes[h.cfg.TouchColumn] = time.Now().UTC()
	}

	h.update(c, key, changes)
}

// Set returns a handler that applies fixed changes to the row keyed by the body.
func (h *ResourceHandler[T]) Set(changes map[string]interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := decodeBody(c)
		if err != nil {
			badRequest(c, err)
			return
		}
		key, err := h.keyFrom(body)
		if err != nil {
			respondError(c, err)
			return
		}
		h.update(c, key, changes)
	}
}

func (h *ResourceHandler[T]) update(c *gin.Context, key, changes map[string]interface{}) {
	record, err := h.service.Update(c.Request.Context(), key, changes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Delete удаляет запись по ключу из тела запроса
func (h *ResourceHandler[T]) Delete(c *gin.Context) {
	body, err := decodeBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	key, err := h.keyFrom(body)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s record deleted", h.service.Name())})
}
