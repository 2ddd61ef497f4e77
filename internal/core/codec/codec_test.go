package codec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secemp9/jari/internal/core/codec"
	"github.com/secemp9/jari/internal/core/model"
)

func TestTodoRoundTrip(t *testing.T) {
	want := model.Todo{
		ID:        "todo_1",
		Title:     "write the codec",
		Status:    model.StatusOpen,
		Priority:  1,
		Labels:    []string{"core"},
		Version:   3,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := codec.EncodeTodo(want)
	require.NoError(t, err)

	got, err := codec.DecodeTodo(raw)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Labels, got.Labels)
	assert.Empty(t, got.Extra)
}

func TestTodoRoundTripPreservesUnknownFields(t *testing.T) {
	raw := []byte(`{
		"id": "todo_1",
		"title": "legacy",
		"status": "open",
		"priority": 2,
		"future_field": "kept-by-newer-jari",
		"nested": {"a": 1}
	}`)

	got, err := codec.DecodeTodo(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Extra)
	assert.Equal(t, "kept-by-newer-jari", got.Extra["future_field"])

	got.Title = "renamed by this binary"
	reencoded, err := codec.EncodeTodo(got)
	require.NoError(t, err)

	roundTripped, err := codec.DecodeTodo(reencoded)
	require.NoError(t, err)
	assert.Equal(t, "renamed by this binary", roundTripped.Title)
	assert.Equal(t, "kept-by-newer-jari", roundTripped.Extra["future_field"])
}

func TestHistoryEntryRoundTrip(t *testing.T) {
	want := model.HistoryEntry{
		Todo:      model.Todo{ID: "todo_1", Title: "t"},
		Version:   2,
		Agent:     "agent-a",
		Operation: "update",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := codec.EncodeHistoryEntry(want)
	require.NoError(t, err)
	got, err := codec.DecodeHistoryEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConflictRoundTrip(t *testing.T) {
	want := model.Conflict{
		Seq:         1,
		Agent:       "agent-b",
		Field:       "priority",
		BaseVersion: 4,
		YoursValue:  float64(1),
		TheirsValue: float64(2),
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := codec.EncodeConflict(want)
	require.NoError(t, err)
	got, err := codec.DecodeConflict(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCounterRoundTrip(t *testing.T) {
	raw := codec.EncodeCounter(42)
	got, err := codec.DecodeCounter(raw)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestHistoryKeyIsZeroPaddedForLexicographicOrder(t *testing.T) {
	k1 := codec.HistoryKey("todo_1", 9)
	k2 := codec.HistoryKey("todo_1", 10)
	assert.Less(t, k1, k2)
}

func TestBlocksKeyIncludesBothEndpoints(t *testing.T) {
	assert.Equal(t, "blocks/todo_1/todo_2", codec.BlocksKey("todo_1", "todo_2"))
}
