package verifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tigar/puzzle2rsvp/internal/store"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigParses(t *testing.T) {
	path := writeConfig(t, `[
		{"slug":"Summer Gala","title":"Summer Gala","date":"2026-09-19",
		 "puzzle":{"kind":"answer","answer_sha256":"`+DigestHex("sunflower")+`"}}
	]`)

	configs, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "answer", configs[0].Puzzle.Kind)
}

func TestLoadConfigRejectsEmpty(t *testing.T) {
	path := writeConfig(t, `[]`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSeedRegistersAndUpserts(t *testing.T) {
	events := store.NewMemoryEventStore()
	registry := NewRegistry()

	configs := []EventConfig{
		{
			Slug:  "Summer Gala",
			Title: "Summer Gala",
			Date:  "2026-09-19",
			Puzzle: PuzzleConfig{
				Kind:         "answer",
				AnswerSHA256: DigestHex("sunflower"),
			},
		},
	}

	require.NoError(t, Seed(context.Background(), events, registry, configs))

	// Slug gets normalized before it reaches storage or the registry
	event, err := events.Get(context.Background(), "summer-gala")
	require.NoError(t, err)
	require.True(t, event.IsActive)
	require.NotNil(t, event.EventDate)

	_, err = registry.Resolve("summer-gala")
	require.NoError(t, err)
}

func TestSeedRejectsUnknownPuzzleKind(t *testing.T) {
	events := store.NewMemoryEventStore()
	registry := NewRegistry()

	configs := []EventConfig{
		{
			Slug:   "gala",
			Title:  "Gala",
			Puzzle: PuzzleConfig{Kind: "sudoku"},
		},
	}

	err := Seed(context.Background(), events, registry, configs)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown puzzle kind")
}

func TestSeedRejectsBadDate(t *testing.T) {
	events := store.NewMemoryEventStore()
	registry := NewRegistry()

	configs := []EventConfig{
		{
			Slug:  "gala",
			Title: "Gala",
			Date:  "next friday",
			Puzzle: PuzzleConfig{
				Kind:         "answer",
				AnswerSHA256: DigestHex("x"),
			},
		},
	}

	require.Error(t, Seed(context.Background(), events, registry, configs))
}
