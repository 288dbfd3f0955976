package push

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ewhitfield/tend/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

const (
	subscriber = "mailto:noreply@tend.house"
	// ttlSeconds matches the reminder look-ahead: a push older than a day
	// is about an item whose reminder window has passed.
	ttlSeconds = 86400
)

// Payload is the JSON the service worker receives. Category carries the
// notification type so the client can route taps and style per category.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category,omitempty"`
	URL      string `json:"url,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// TaskDuePayload builds the reminder payload for a task approaching its
// due date.
func TaskDuePayload(t model.Task) Payload {
	return Payload{
		Title:    t.Title,
		Body:     "Due " + t.Progress.DueAt.Format("Mon 3:04 PM"),
		Category: model.NotifTypeTaskDue,
		URL:      "/tasks",
		Tag:      "task-" + t.ID,
	}
}

// EventReminderPayload builds the reminder payload for an event instance
// starting at startAt. Projections carry their synthesized instance id in
// the tag, so each occurrence of a series notifies separately.
func EventReminderPayload(inst model.EventInstance, startAt time.Time) Payload {
	body := "Starts " + startAt.Format("Mon 3:04 PM")
	if inst.AllDay {
		body = "All day " + startAt.Format("Mon Jan 2")
	}
	return Payload{
		Title:    inst.Title,
		Body:     body,
		Category: model.NotifTypeEventReminder,
		URL:      "/calendar",
		Tag:      "event-" + inst.ID,
	}
}

// Config holds the VAPID key pair.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// Service sends web push notifications signed with the configured keys.
type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// VAPIDPublicKey returns the public key clients subscribe with.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Send delivers a payload to one subscription. A 410 from the push service
// maps to ErrExpired so callers can prune the subscription.
func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      subscriber,
		TTL:             ttlSeconds,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// GenerateVAPIDKeys mints a P-256 key pair in the base64url form VAPID
// expects: the uncompressed public point and the raw private scalar.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID key: %w", err)
	}

	publicKey = base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
	privateKey = base64.RawURLEncoding.EncodeToString(key.Bytes())

	return publicKey, privateKey, nil
}
