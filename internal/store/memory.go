package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"

	"github.com/google/uuid"
)

// MemoryInviteStore keeps invites in a mutex-guarded map. It implements the
// same contract as InviteDB and backs tests and ephemeral runs.
type MemoryInviteStore struct {
	mu      sync.Mutex
	invites map[string]*models.Invite
}

func NewMemoryInviteStore() *MemoryInviteStore {
	return &MemoryInviteStore{
		invites: make(map[string]*models.Invite),
	}
}

func (s *MemoryInviteStore) Get(ctx context.Context, token string) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[token]
	if !ok {
		return nil, ErrInviteNotFound
	}
	copied := *invite
	return &copied, nil
}

func (s *MemoryInviteStore) Create(ctx context.Context, eventSlug, guestName string, now time.Time) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := models.NewToken()
	if err != nil {
		return nil, err
	}

	invite := &models.Invite{
		ID:        uuid.New().String(),
		Token:     token,
		EventSlug: eventSlug,
		GuestName: guestName,
		CreatedAt: now,
	}
	s.invites[token] = invite

	copied := *invite
	return &copied, nil
}

func (s *MemoryInviteStore) MarkSolved(ctx context.Context, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[token]
	if !ok {
		return false, ErrInviteNotFound
	}
	if invite.PuzzleSolved {
		return false, nil
	}
	invite.PuzzleSolved = true
	solvedAt := now
	invite.SolvedAt = &solvedAt
	return true, nil
}

func (s *MemoryInviteStore) UpsertRSVP(ctx context.Context, token string, status models.RSVPStatus, payload json.RawMessage, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[token]
	if !ok {
		return ErrInviteNotFound
	}
	invite.RSVPStatus = status
	invite.RSVPData = string(payload)
	rsvpAt := now
	invite.RSVPAt = &rsvpAt
	return nil
}

func (s *MemoryInviteStore) ListForEvent(ctx context.Context, eventSlug string) ([]models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invites := make([]models.Invite, 0)
	for _, invite := range s.invites {
		if invite.EventSlug == eventSlug {
			invites = append(invites, *invite)
		}
	}
	sort.Slice(invites, func(i, j int) bool {
		return invites[i].CreatedAt.Before(invites[j].CreatedAt)
	})
	return invites, nil
}

// MemoryEventStore is the in-memory counterpart of EventDB.
type MemoryEventStore struct {
	mu     sync.Mutex
	events map[string]*models.Event
	order  []string
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		events: make(map[string]*models.Event),
	}
}

func (s *MemoryEventStore) Get(ctx context.Context, slug string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[slug]
	if !ok {
		return nil, ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (s *MemoryEventStore) Upsert(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.events[event.Slug]; ok {
		existing.Title = event.Title
		existing.EventDate = event.EventDate
		existing.IsActive = event.IsActive
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	copied := *event
	s.events[event.Slug] = &copied
	s.order = append(s.order, event.Slug)
	return nil
}

func (s *MemoryEventStore) List(ctx context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]models.Event, 0, len(s.order))
	for _, slug := range s.order {
		events = append(events, *s.events[slug])
	}
	return events, nil
}

func (s *MemoryEventStore) DeactivatePast(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped int64
	for _, event := range s.events {
		if event.IsActive && event.EventDate != nil && event.EventDate.Before(now) {
			event.IsActive = false
			flipped++
		}
	}
	return flipped, nil
}
