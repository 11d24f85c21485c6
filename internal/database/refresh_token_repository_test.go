package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenRepository_Store(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	userID := uuid.New()
	expires := time.Now().Add(24 * time.Hour)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(sqlmock.AnyArg(), userID.String(), HashToken("tok"), "mobile", "203.0.113.7", nil, expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Store(context.Background(), userID, "tok", models.RequestMeta{IP: "203.0.113.7"}, "mobile", expires)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens WHERE token_hash = \\$1").
		WithArgs(HashToken("missing")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rt, err := repo.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestRefreshTokenRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	id, userID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
		WithArgs(HashToken("tok")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "token_hash", "device_type", "ip_address", "user_agent",
			"created_at", "expires_at", "last_used_at", "revoked", "revoked_at",
		}).AddRow(id.String(), userID.String(), HashToken("tok"), nil, nil, nil, now, now.Add(time.Hour), nil, false, nil))

	rt, err := repo.Get(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, userID, rt.UserID)
	assert.True(t, rt.IsUsable(now))
	assert.False(t, rt.IsUsable(now.Add(2*time.Hour)))
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked = TRUE").
		WithArgs(HashToken("tok")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked = TRUE").
		WithArgs(HashToken("tok")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Revoke(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Revoke(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, ok, "second revoke reports reuse")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	cutoff := time.Now()

	mock.ExpectExec("DELETE FROM refresh_tokens WHERE expires_at < \\$1").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
