package api

import (
	"context"
	"testing"

	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/db/models"
)

type fakeEmbedder struct {
	vector []float64
	err    error
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	return f.vector, f.err
}

func embedded(t *testing.T, id uint, body string, vec []float64) models.Message {
	encoded, err := models.EncodeEmbedding(vec)
	require.NoError(t, err)
	return models.Message{ID: id, ConversationID: "c1", Body: body, EmbeddingVector: encoded}
}

func TestFindSimilarMessages(t *testing.T) {
	store := &fakeStore{embedded: []models.Message{
		embedded(t, 1, "exact", []float64{1, 0}),
		embedded(t, 2, "orthogonal", []float64{0, 1}),
		{ID: 3, Body: "broken", EmbeddingVector: pgtype.JSONB{Bytes: []byte(`{"not":"a vector"}`), Status: pgtype.Present}},
		embedded(t, 4, "close", []float64{0.9, 0.1}),
		embedded(t, 5, "wrong length", []float64{1, 0, 0}),
	}}
	r := newTestReports(store, nil, fakeEmbedder{vector: []float64{1, 0}})

	results, err := r.FindSimilarMessages(context.Background(), "สวัสดี", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint(1), results[0].ID)
	assert.Equal(t, 1.0, results[0].Similarity)
	assert.Equal(t, uint(4), results[1].ID)
	assert.Equal(t, 0.994, results[1].Similarity)

	results, err = r.FindSimilarMessages(context.Background(), "สวัสดี", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestFindSimilarMessagesEmbeddingUnavailable(t *testing.T) {
	down := &ai.UnavailableError{Service: ai.EmbeddingService, Status: ai.StatusTimeout}
	r := newTestReports(&fakeStore{}, nil, fakeEmbedder{err: down})

	_, err := r.FindSimilarMessages(context.Background(), "hello", 5)
	u, ok := ai.AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, ai.StatusTimeout, u.Status)

	_, err = newTestReports(&fakeStore{}, nil, nil).FindSimilarMessages(context.Background(), "hello", 5)
	_, ok = ai.AsUnavailable(err)
	assert.True(t, ok)

	_, err = r.FindSimilarMessages(context.Background(), "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}
