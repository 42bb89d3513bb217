package repository

import "context"

// ListQuery narrows a resource listing. Filters are equality matches on columns.
type ListQuery struct {
	Filters map[string]interface{}
	OrderBy string
	Limit   int
	Offset  int
}

// ResourceRepository is the table pass-through used by every marketplace resource.
// Keys are column->value maps so composite keys (favorites, item_tags) fit too.
type ResourceRepository[T any] interface {
	List(ctx context.Context, q ListQuery) ([]T, error)
	Get(ctx context.Context, key map[string]interface{}) (*T, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, key map[string]interface{}, changes map[string]interface{}) (*T, error)
	Delete(ctx context.Context, key map[string]interface{}) error
}
