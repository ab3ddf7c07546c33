// Package service holds the business rules for crops, pests, reports and the
// admin reporting views. Services depend only on repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier pushes an event to a connected user. Delivery is best effort.
type Notifier interface {
	Notify(userID string, event any)
}

// ImageStore persists an uploaded image and returns its public URL.
type ImageStore interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

// Notification is the payload sent over the websocket.
type Notification struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
	SentAt  time.Time `json:"sentAt"`
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}

// Services groups the domain services wired over one store.
type Services struct {
	Auth    *AuthService
	Crops   *CropService
	Pests   *PestService
	Reports *ReportService
	Admin   *AdminService
}

type Options struct {
	Tokens   TokenIssuer
	Notifier Notifier
	Images   ImageStore
	Now      func() time.Time
}

// New wires every service over store.
func New(store *repository.Store, opts Options) *Services {
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Services{
		Auth:    &AuthService{users: store.Users, tokens: opts.Tokens, now: opts.Now},
		Crops:   &CropService{store: store, now: opts.Now},
		Pests:   &PestService{store: store, notifier: opts.Notifier, now: opts.Now},
		Reports: &ReportService{store: store, notifier: opts.Notifier, images: opts.Images, now: opts.Now},
		Admin:   &AdminService{store: store},
	}
}

// ParseID turns a hex id from a path into an ObjectID. Malformed ids cannot
// match any document, so they are reported as not found.
func ParseID(hex, entity string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound(entity)
	}
	return id, nil
}

// ParseIDs parses a list of ids supplied in a request body.
func ParseIDs(hexes []string, field string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	seen := make(map[primitive.ObjectID]bool, len(hexes))
	for _, hex := range hexes {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, apperror.Validation("%s contains an invalid id: %q", field, hex)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC).
// dateOnly reports whether the value had no time component.
func ParseDate(value string) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err = time.Parse(layout, value); err == nil {
			return t.UTC(), layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, apperror.Validation("invalid date: %q", value)
}

// ParseDateRange parses the startDate/endDate query values. A date-only end
// covers its whole day.
func ParseDateRange(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, apperror.Validation("startDate and endDate are required")
	}
	from, _, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, dateOnly, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dateOnly {
		to = endOfDay(to)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperror.Validation("endDate must not be before startDate")
	}
	return from, to, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Millisecond)
}

// storeErr converts repository errors into the service error taxonomy.
func storeErr(err error, entity, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(entity)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
