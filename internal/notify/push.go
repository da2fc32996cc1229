package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tigar/puzzle2rsvp/internal/config"
	"github.com/tigar/puzzle2rsvp/internal/models"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"
)

// Notifier sends web push notifications to organizer subscriptions. It owns
// the push_subscriptions table; invite rows are never touched here.
type Notifier struct {
	db     *gorm.DB
	vapid  *config.VAPIDKeys
	logger *slog.Logger
}

func New(db *gorm.DB, vapid *config.VAPIDKeys, logger *slog.Logger) *Notifier {
	return &Notifier{
		db:     db,
		vapid:  vapid,
		logger: logger,
	}
}

func (n *Notifier) Subscribe(ctx context.Context, endpoint, p256dh, auth string) (*models.PushSubscription, error) {
	// One row per endpoint; a browser re-subscribing replaces its old keys.
	n.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{})

	sub := models.PushSubscription{
		Endpoint: endpoint,
		P256DH:   p256dh,
		Auth:     auth,
	}
	if err := n.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (n *Notifier) Unsubscribe(ctx context.Context, endpoint string) error {
	result := n.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// NotifySolved fires on the attempt that actually flipped the latch.
func (n *Notifier) NotifySolved(invite models.Invite) {
	title := "Puzzle solved"
	body := fmt.Sprintf("%s solved the %s puzzle", invite.GuestName, invite.EventSlug)
	n.send(title, body, map[string]string{
		"event_slug": invite.EventSlug,
	})
}

// NotifyRSVP fires on every RSVP write, including re-submissions.
func (n *Notifier) NotifyRSVP(invite models.Invite) {
	title := "RSVP received"
	body := fmt.Sprintf("%s responded (%s) for %s", invite.GuestName, invite.RSVPStatus, invite.EventSlug)
	n.send(title, body, map[string]string{
		"event_slug": invite.EventSlug,
	})
}

func (n *Notifier) send(title, body string, data map[string]string) {
	var subscriptions []models.PushSubscription
	if err := n.db.Find(&subscriptions).Error; err != nil {
		n.logger.Error("failed to load push subscriptions", "error", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"title": title,
		"body":  body,
		"data":  data,
	})
	if err != nil {
		n.logger.Error("failed to encode push payload", "error", err)
		return
	}

	for _, sub := range subscriptions {
		subscription := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}

		resp, err := webpush.SendNotification(payload, subscription, &webpush.Options{
			Subscriber:      n.vapid.Subject,
			VAPIDPublicKey:  n.vapid.PublicKey,
			VAPIDPrivateKey: n.vapid.PrivateKey,
			TTL:             60,
		})
		if err != nil {
			n.logger.Warn("push send failed", "endpoint", sub.Endpoint, "error", err)
			continue
		}

		// Gone or unknown: the browser dropped the subscription, prune it
		if resp.StatusCode == 404 || resp.StatusCode == 410 {
			n.db.Delete(&sub)
		}
		resp.Body.Close()
	}
}
