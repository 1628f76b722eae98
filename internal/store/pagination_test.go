package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-order-store/internal/database"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := OrderCursor{
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		ID:        "order-1",
	}

	decoded, err := DecodeCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, cursor.ID, decoded.ID)
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeCursorEmptyMeansNewest(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursorMalformed(t *testing.T) {
	_, err := DecodeCursor("not-base64!!!")
	assert.Error(t, err)
}

func TestListOrdersByUserRejectsMalformedCursor(t *testing.T) {
	// Cursor decoding fails before any query runs, so no database is needed.
	_, err := ListOrdersByUser(context.Background(), nil, "buyer-1", "not-base64!!!", 10)
	assert.ErrorIs(t, err, database.ErrValidation)
}
