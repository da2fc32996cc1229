package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/models"

	"gorm.io/gorm"
)

// InviteDB is the sqlite-backed invite store.
type InviteDB struct {
	db *gorm.DB
}

func NewInviteDB(db *gorm.DB) *InviteDB {
	return &InviteDB{db: db}
}

func (s *InviteDB) Get(ctx context.Context, token string) (*models.Invite, error) {
	var invite models.Invite
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (s *InviteDB) Create(ctx context.Context, eventSlug, guestName string, now time.Time) (*models.Invite, error) {
	invite := models.Invite{
		EventSlug: eventSlug,
		GuestName: guestName,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

func (s *InviteDB) MarkSolved(ctx context.Context, token string, now time.Time) (bool, error) {
	// Conditional update so two concurrent solves cannot both observe the
	// flip. RowsAffected tells which call actually latched.
	result := s.db.WithContext(ctx).Model(&models.Invite{}).
		Where("token = ? AND puzzle_solved = ?", token, false).
		Updates(map[string]any{
			"puzzle_solved": true,
			"solved_at":     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Nothing flipped: either already solved (fine) or no such token.
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Invite{}).Where("token = ?", token).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrInviteNotFound
	}
	return false, nil
}

func (s *InviteDB) UpsertRSVP(ctx context.Context, token string, status models.RSVPStatus, payload json.RawMessage, now time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.Invite{}).
		Where("token = ?", token).
		Updates(map[string]any{
			"rsvp_status": status,
			"rsvp_data":   string(payload),
			"rsvp_at":     now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (s *InviteDB) ListForEvent(ctx context.Context, eventSlug string) ([]models.Invite, error) {
	var invites []models.Invite
	if err := s.db.WithContext(ctx).Where("event_slug = ?", eventSlug).Order("created_at ASC").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// EventDB is the sqlite-backed event store.
type EventDB struct {
	db *gorm.DB
}

func NewEventDB(db *gorm.DB) *EventDB {
	return &EventDB{db: db}
}

func (s *EventDB) Get(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (s *EventDB) Upsert(ctx context.Context, event *models.Event) error {
	var existing models.Event
	err := s.db.WithContext(ctx).Where("slug = ?", event.Slug).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(event).Error
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"title":      event.Title,
		"event_date": event.EventDate,
		"is_active":  event.IsActive,
	}).Error
}

func (s *EventDB) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *EventDB) DeactivatePast(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("is_active = ? AND event_date IS NOT NULL AND event_date < ?", true, now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
