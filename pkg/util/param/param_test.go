package param

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeRead(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/conversations?user_id=U1234&limit=10;drop", nil)
	assert.Equal(t, "U1234", SafeRead(req, "user_id"))
	assert.Equal(t, "", SafeRead(req, "limit"))
	assert.Equal(t, "", SafeRead(req, "date"))
}

func TestReadDateRange(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name: "none",
		},
		{
			name:      "both",
			query:     "start_date=2024-03-01&end_date=2024-03-07",
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "single day",
			query:     "start_date=2024-03-01&end_date=2024-03-01",
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "only start",
			query:   "start_date=2024-03-01",
			wantErr: true,
		},
		{
			name:    "reversed",
			query:   "start_date=2024-03-07&end_date=2024-03-01",
			wantErr: true,
		},
		{
			name:    "bad format",
			query:   "start_date=03/01/2024&end_date=2024-03-07",
			wantErr: true,
		},
		{
			name:    "impossible date",
			query:   "start_date=2024-02-30&end_date=2024-03-07",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/analysis/sentiment?"+tc.query, nil)
			rng, err := ReadDateRange(req)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, rng.Start)
			assert.Equal(t, tc.wantEnd, rng.End)
		})
	}
}

func TestReadInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=25", nil)
	n, err := ReadInt(req, "limit", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = ReadInt(httptest.NewRequest("GET", "/", nil), "limit", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = ReadInt(httptest.NewRequest("GET", "/?limit=500", nil), "limit", 10, 100)
	assert.Error(t, err)

	_, err = ReadInt(httptest.NewRequest("GET", "/?limit=-1", nil), "limit", 10, 100)
	assert.Error(t, err)
}

func TestReadBool(t *testing.T) {
	assert.True(t, ReadBool(httptest.NewRequest("GET", "/?force=true", nil), "force"))
	assert.True(t, ReadBool(httptest.NewRequest("GET", "/?force=1", nil), "force"))
	assert.False(t, ReadBool(httptest.NewRequest("GET", "/?force=yes", nil), "force"))
	assert.False(t, ReadBool(httptest.NewRequest("GET", "/", nil), "force"))
}
