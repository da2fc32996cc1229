package models

import (
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

// RSVPStatus is the guest's answer as recorded by the server. Empty means
// the guest has not responded yet.
type RSVPStatus string

const (
	RSVPUnset    RSVPStatus = ""
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

const tokenLength = 32

// Invite binds one token to one guest of one event. The token is both the
// identifier and the sole credential, so it is generated from crypto/rand
// and never derived from guest data.
type Invite struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Token        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	EventSlug    string     `gorm:"type:varchar(100);not null;index" json:"event_slug"`
	GuestName    string     `gorm:"type:varchar(100);not null" json:"guest_name"`
	PuzzleSolved bool       `gorm:"not null;default:false" json:"puzzle_solved"`
	RSVPStatus   RSVPStatus `gorm:"type:varchar(20);not null;default:''" json:"rsvp_status"`
	RSVPData     string     `gorm:"type:text" json:"rsvp_data"`
	CreatedAt    time.Time  `json:"created_at"`
	SolvedAt     *time.Time `json:"solved_at,omitempty"`
	RSVPAt       *time.Time `json:"rsvp_at,omitempty"`
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Token == "" {
		token, err := NewToken()
		if err != nil {
			return err
		}
		i.Token = token
	}
	return nil
}

// NewToken generates an invite token. nanoid draws from crypto/rand; at 32
// chars of its 64-symbol alphabet the token is not guessable.
func NewToken() (string, error) {
	return gonanoid.New(tokenLength)
}

// HasRSVP is the only RSVP-derived fact the public surface may expose.
func (i *Invite) HasRSVP() bool {
	return i.RSVPStatus != RSVPUnset
}
