package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*MySQLRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewMySQLRepositoryWithDB(db, utils.NopLogger())
	require.NoError(t, err)
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }
	return repo, mock
}

func TestMySQLRepository_SaveBuoys(t *testing.T) {
	repo, mock := newMockRepo(t)
	buoys := testBuoys()[:2]
	updatedAt := time.Unix(1700000000, 0).UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO buoys").
		WithArgs(
			"b1", "Hon Dau", "Hai Phong", "10.0", "106.0", 0, updatedAt,
			"b2", "Cat Ba", "Hai Phong", "10.1", "106.0", 1, updatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM buoys").
		WithArgs(updatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveBuoys(context.Background(), buoys))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRepository_SaveBuoysRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO buoys").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.SaveBuoys(context.Background(), testBuoys())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRepository_SaveEmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.SaveBuoys(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRepository_LoadBuoys(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name", "area", "lat", "lng"}).
		AddRow("b1", "Hon Dau", "Hai Phong", "10.0", "106.0").
		AddRow("b3", "Vung Tau", "Ba Ria", "11.0", "106.0")
	mock.ExpectQuery("SELECT id, name, area, lat, lng FROM buoys").WillReturnRows(rows)

	buoys, err := repo.LoadBuoys(context.Background())
	require.NoError(t, err)
	require.Len(t, buoys, 2)
	assert.Equal(t, "b1", buoys[0].ID)
	assert.Equal(t, "Ba Ria", buoys[1].Area)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRepository_LoadEmptyCatalogue(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, name, area, lat, lng FROM buoys").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "area", "lat", "lng"}))

	_, err := repo.LoadBuoys(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMySQLRepository_EnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS buoys").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewMySQLRepository_Validation(t *testing.T) {
	_, err := NewMySQLRepository(nil, utils.NopLogger())
	assert.Error(t, err)

	_, err = NewMySQLRepository(&config.MySQLConfig{}, utils.NopLogger())
	assert.Error(t, err)

	_, err = NewMySQLRepositoryWithDB(nil, utils.NopLogger())
	assert.Error(t, err)
}

func TestGeneratePlaceholders(t *testing.T) {
	repo := &MySQLRepository{}
	assert.Equal(t, "(?,?),(?,?),(?,?)", repo.generatePlaceholders(3, 2))
	assert.Equal(t, "", repo.generatePlaceholders(0, 2))
}
