package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"
	"github.com/tigar/puzzle2rsvp/internal/store"

	"github.com/gosimple/slug"
)

// EventConfig is one entry of the events config file.
type EventConfig struct {
	Slug   string       `json:"slug"`
	Title  string       `json:"title"`
	Date   string       `json:"date,omitempty"` // ISO date, optional
	Active *bool        `json:"active,omitempty"`
	Puzzle PuzzleConfig `json:"puzzle"`
}

type PuzzleConfig struct {
	Kind          string            `json:"kind"`
	AnswerSHA256  string            `json:"answer_sha256,omitempty"`
	AnswersSHA256 map[string]string `json:"answers_sha256,omitempty"`
	CodeSHA256    string            `json:"code_sha256,omitempty"`
}

// LoadConfig reads and parses the events config file.
func LoadConfig(path string) ([]EventConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var configs []EventConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%s defines no events", path)
	}
	return configs, nil
}

// Seed upserts the configured events into the event store and registers a
// verifier per event. An unknown puzzle kind, a bad digest or a duplicate
// slug aborts startup rather than leaving an event without a verifier.
func Seed(ctx context.Context, events store.EventStore, registry *Registry, configs []EventConfig) error {
	for _, cfg := range configs {
		if cfg.Slug == "" {
			return fmt.Errorf("event %q has no slug", cfg.Title)
		}
		eventSlug := slug.Make(cfg.Slug)

		v, err := buildVerifier(cfg.Puzzle)
		if err != nil {
			return fmt.Errorf("event %q: %w", eventSlug, err)
		}
		if err := registry.Register(eventSlug, v); err != nil {
			return err
		}

		event := &models.Event{
			Slug:     eventSlug,
			Title:    cfg.Title,
			IsActive: cfg.Active == nil || *cfg.Active,
		}
		if cfg.Date != "" {
			date, err := time.Parse("2006-01-02", cfg.Date)
			if err != nil {
				return fmt.Errorf("event %q: bad date %q: %w", eventSlug, cfg.Date, err)
			}
			event.EventDate = &date
		}
		if err := events.Upsert(ctx, event); err != nil {
			return fmt.Errorf("event %q: %w", eventSlug, err)
		}
	}
	return nil
}

func buildVerifier(cfg PuzzleConfig) (Verifier, error) {
	switch cfg.Kind {
	case "answer":
		return NewAnswer(cfg.AnswerSHA256)
	case "quiz":
		return NewQuiz(cfg.AnswersSHA256)
	case "code":
		return NewCode(cfg.CodeSHA256)
	default:
		return nil, fmt.Errorf("unknown puzzle kind %q", cfg.Kind)
	}
}
