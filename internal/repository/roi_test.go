package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"wisefido-posture/internal/roi"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockROIDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ROIRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return db, mock, NewROIRepository(db, zap.NewNop())
}

func TestListRegions_Success(t *testing.T) {
	db, mock, repo := setupMockROIDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"x1", "y1", "x2", "y2"}).
		AddRow(100, 200, 500, 600).
		AddRow(10, 10, 5, 50). // x1 > x2，跳过
		AddRow(0, 0, 50, 50)

	mock.ExpectQuery(`SELECT x1, y1, x2, y2\s+FROM roi_regions`).
		WithArgs("t1", "cam-1").
		WillReturnRows(rows)

	regions, err := repo.ListRegions(context.Background(), "t1", "cam-1")

	require.NoError(t, err)
	assert.Equal(t, []roi.Region{
		{X1: 100, Y1: 200, X2: 500, Y2: 600},
		{X1: 0, Y1: 0, X2: 50, Y2: 50},
	}, regions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRegions_Empty(t *testing.T) {
	db, mock, repo := setupMockROIDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("t1", "cam-1").
		WillReturnRows(sqlmock.NewRows([]string{"x1", "y1", "x2", "y2"}))

	regions, err := repo.ListRegions(context.Background(), "t1", "cam-1")
	require.NoError(t, err)
	assert.Empty(t, regions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRegions_QueryError(t *testing.T) {
	db, mock, repo := setupMockROIDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("boom"))

	_, err := repo.ListRegions(context.Background(), "t1", "cam-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query roi regions")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRegions_MissingCamera(t *testing.T) {
	db, mock, repo := setupMockROIDB(t)
	defer db.Close()

	_, err := repo.ListRegions(context.Background(), "t1", "")
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
