package postgres

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	"github.com/yourusername/marketplace-api/internal/domain/repository"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

func newCategoryRepo(t *testing.T) (*ResourceRepo[entity.Category], sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newGormMock(t)
	repo, err := NewResourceRepo[entity.Category](db, "category")
	require.NoError(t, err)
	return repo, mock
}

func TestResourceRepo_List_AppliesFiltersAndPaging(t *testing.T) {
	repo, mock := newCategoryRepo(t)
	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow("c-1", "Shoes")
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE "name" = \$1 ORDER BY name ASC LIMIT`).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), repository.ListQuery{
		Filters: map[string]interface{}{"name": "Shoes"},
		OrderBy: "name ASC",
		Limit:   10,
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Shoes", got[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepo_List_EmptyIsNotNil(t *testing.T) {
	repo, mock := newCategoryRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "categories"`).WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	got, err := repo.List(context.Background(), repository.ListQuery{})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResourceRepo_Get_NotFound(t *testing.T) {
	repo, mock := newCategoryRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE "id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := repo.Get(context.Background(), map[string]interface{}{"id": "c-404"})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResourceRepo_Create_Duplicate(t *testing.T) {
	repo, mock := newCategoryRepo(t)
	mock.ExpectExec(`INSERT INTO "categories"`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &entity.Category{Name: "Shoes"})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestResourceRepo_Update(t *testing.T) {
	t.Run("updates then re-reads", func(t *testing.T) {
		repo, mock := newCategoryRepo(t)
		mock.ExpectExec(`UPDATE "categories" SET "name"=\$1 WHERE "id" = \$2`).
			WithArgs("Boots", "c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "categories" WHERE "id" = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("c-1", "Boots"))

		got, err := repo.Update(context.Background(),
			map[string]interface{}{"id": "c-1"},
			map[string]interface{}{"name": "Boots"})

		require.NoError(t, err)
		assert.Equal(t, "Boots", got.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row matched", func(t *testing.T) {
		repo, mock := newCategoryRepo(t)
		mock.ExpectExec(`UPDATE "categories"`).WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repo.Update(context.Background(),
			map[string]interface{}{"id": "c-404"},
			map[string]interface{}{"name": "Boots"})

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("missing key", func(t *testing.T) {
		repo, _ := newCategoryRepo(t)

		_, err := repo.Update(context.Background(), nil, map[string]interface{}{"name": "Boots"})

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestResourceRepo_Delete_CompositeKey(t *testing.T) {
	db, mock := newGormMock(t)
	repo, err := NewResourceRepo[entity.Favorite](db, "favorite")
	require.NoError(t, err)

	mock.ExpectExec(`DELETE FROM "favorites" WHERE`).WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(context.Background(), map[string]interface{}{"user_id": uint(3), "item_id": "i-1"})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
