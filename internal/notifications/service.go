package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// Service defines notification operations.
type Service interface {
	Notify(ctx context.Context, params NotifyParams)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NotifyParams describes a message to deliver.
type NotifyParams struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Body    string
	Payload any
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires notifications dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Notify writes the notification, logging failures instead of returning
// them. Delivery is best effort relative to the triggering operation.
func (s *service) Notify(ctx context.Context, params NotifyParams) {
	if params.UserID == uuid.Nil || !params.Type.IsValid() {
		return
	}

	var payload json.RawMessage
	if params.Payload != nil {
		if raw, err := json.Marshal(params.Payload); err == nil {
			payload = raw
		}
	}

	notification := models.Notification{
		UserID:  params.UserID,
		Type:    params.Type,
		Title:   params.Title,
		Body:    params.Body,
		Payload: payload,
	}
	if err := s.repo.Create(ctx, &notification); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "notification_type", string(params.Type)), "notification write failed")
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	items, err := s.repo.List(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return items, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	affected, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	affected, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark all notifications read")
	}
	return affected, nil
}
