package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewInvalidTransition("cannot assign", nil))

	de := ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, CodeInvalidTransition, de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	de := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, CodeInvalidInput, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainErrorFallsBackToInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewConcurrentModification("lost race", nil), CodeConcurrentModification))
	assert.False(t, HasCode(errors.New("plain"), CodeConcurrentModification))
	assert.True(t, HasCode(NewDependencyUnavailable("ticket store", errors.New("dial")), CodeDependencyUnavailable))
}

func TestMalformedIDCountsAsNotFound(t *testing.T) {
	malformed := fmt.Errorf("get technician: %w", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "tech_7"`})

	assert.True(t, IsInvalidReference(malformed))
	assert.True(t, IsNotFound(malformed))
	de := ToDomainError(malformed)
	assert.Equal(t, CodeInvalidInput, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)

	other := &pgconn.PgError{Code: "23505"}
	assert.False(t, IsInvalidReference(other))
	assert.False(t, IsNotFound(other))
}
