package app

import (
	"context"

	"github.com/eventflow/platform/internal/clock"
	"github.com/eventflow/platform/internal/domain"
)

const notificationListLimit = 50

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n domain.Notification) error
	ListNotifications(ctx context.Context, organizerSub string, limit int) ([]domain.Notification, error)
}

type NotificationService struct {
	repo  NotificationRepository
	clock clock.Clock
}

func NewNotificationService(repo NotificationRepository, clk clock.Clock) *NotificationService {
	return &NotificationService{
		repo:  repo,
		clock: clk,
	}
}

// Record stores one observed sale.
func (s *NotificationService) Record(ctx context.Context, sale domain.Sale) (domain.Notification, error) {
	if sale.BuyerSub == "" {
		return domain.Notification{}, domain.ErrBuyerRequired
	}
	if sale.Code == "" {
		return domain.Notification{}, domain.ErrCodeRequired
	}
	eventID, err := parseID(sale.EventID)
	if err != nil {
		return domain.Notification{}, err
	}

	createdAt := sale.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	n := domain.Notification{
		ID:           newID(),
		EventID:      eventID,
		OrganizerSub: sale.OrganizerSub,
		BuyerSub:     sale.BuyerSub,
		Code:         sale.Code,
		CreatedAt:    createdAt,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

type ListNotificationsInput struct {
	// OrganizerSub restricts the listing to one organizer's events unless
	// All is set.
	OrganizerSub string
	All          bool
}

// List returns the newest notifications first.
func (s *NotificationService) List(ctx context.Context, in ListNotificationsInput) ([]domain.Notification, error) {
	organizer := in.OrganizerSub
	if in.All {
		organizer = ""
	} else if organizer == "" {
		return nil, domain.ErrSubjectRequired
	}
	return s.repo.ListNotifications(ctx, organizer, notificationListLimit)
}
