package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_ProfileID(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"scalar projection", "alice", "alice"},
		{"cypher column", map[string]any{"profileId": "bob"}, "bob"},
		{"graphson vertex", map[string]any{
			"id":    "profile:carol",
			"label": "profile",
			"properties": map[string]any{
				"profileId": []any{map[string]any{"id": "x", "value": "carol"}},
			},
		}, "carol"},
		{"bare vertex id", map[string]any{"id": "profile:dave"}, "dave"},
	}
	for _, tc := range cases {
		got, err := NewRow(tc.value).ProfileID()
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}

	_, err := NewRow(int64(3)).ProfileID()
	assert.Error(t, err)
	_, err = NewRow(map[string]any{"id": "post:1"}).ProfileID()
	assert.Error(t, err)
}

func TestRow_Count(t *testing.T) {
	for _, v := range []any{int64(4), 4, int32(4), float64(4), json.Number("4"), map[string]any{"count": int64(4)}} {
		n, err := NewRow(v).Count()
		require.NoError(t, err, "%T", v)
		assert.Equal(t, int64(4), n)
	}

	_, err := NewRow("four").Count()
	assert.Error(t, err)
	_, err = NewRow(map[string]any{"total": 4}).Count()
	assert.Error(t, err)
}

func TestRow_CreatedAt(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)

	got, err := NewRow("2024-01-02T03:04:05.0000006Z").CreatedAt()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = NewRow(map[string]any{"createdAtUtc": want}).CreatedAt()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = NewRow("yesterday").CreatedAt()
	assert.Error(t, err)
	_, err = NewRow(int64(1)).CreatedAt()
	assert.Error(t, err)
}
