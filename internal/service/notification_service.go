package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/request-hub/internal/config"
	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/events"
	"github.com/spec-kit/request-hub/internal/persistence"
	"github.com/spec-kit/request-hub/internal/repository"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

const unreadCacheTTL = 5 * time.Minute

// NotificationService fronts the per-user inbox: listing, read receipts,
// admin nudges and the cached unread badge. It also subscribes the
// post-commit side channels (log and webhook stubs) to lifecycle events.
type NotificationService struct {
	notifications repository.NotificationRepository
	requests      repository.RequestRepository
	cache         *persistence.Redis
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	RequestRepo      repository.RequestRepository
	Cache            *persistence.Redis
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Config           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		requests:      deps.RequestRepo,
		cache:         deps.Cache,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		cfg:           deps.Config,
	}
}

// List returns a user's inbox, newest first.
func (n *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	result, err := n.notifications.ListByRecipient(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// MarkRead flips the read flag. Only the recipient may do so.
func (n *NotificationService) MarkRead(ctx context.Context, actor *domain.User, notificationID int64) error {
	notification, err := n.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	if notification.RecipientID != actor.ID {
		return apperrors.NewForbidden("access denied")
	}
	if notification.IsRead {
		return nil
	}
	if err := n.notifications.MarkRead(ctx, notificationID); err != nil {
		return apperrors.MapError(err)
	}
	n.invalidateUnread(ctx, actor.ID)
	return nil
}

// UnreadCount returns the unread badge, served from the redis cache when
// warm. Cache failures fall through to the database.
func (n *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	key := unreadCacheKey(userID)
	if n.cache != nil && n.cache.Client != nil {
		if cached, err := n.cache.Client.Get(ctx, key).Result(); err == nil {
			if count, convErr := strconv.Atoi(cached); convErr == nil {
				return count, nil
			}
		}
	}

	count, err := n.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if n.cache != nil && n.cache.Client != nil {
		if err := n.cache.Client.Set(ctx, key, strconv.Itoa(count), unreadCacheTTL).Err(); err != nil {
			n.logger.Debug("unread cache set failed", zap.Error(err))
		}
	}
	return count, nil
}

// Nudge is an ad-hoc admin notification asking a participant of the
// request for a status update.
func (n *NotificationService) Nudge(ctx context.Context, actor *domain.User, requestID, recipientID int64) (*domain.Notification, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req, err := n.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}

	isRequestor := req.RequestorID == recipientID
	isEngineer := req.EngineerID != nil && *req.EngineerID == recipientID
	if !isRequestor && !isEngineer {
		return nil, apperrors.NewValidationError("recipient is not a participant of this request", map[string]any{
			"field": "recipient",
		})
	}

	notification := &domain.Notification{
		RecipientID:      recipientID,
		Message:          fmt.Sprintf("Please post a status update for request %s.", req.ReferenceCode),
		RelatedRequestID: &req.ID,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return nil, apperrors.MapError(err)
	}
	n.invalidateUnread(ctx, recipientID)
	return notification, nil
}

// InvalidateUnread drops the cached badge for a user. The lifecycle
// engine calls this after committing notification writes.
func (n *NotificationService) InvalidateUnread(ctx context.Context, userIDs ...int64) {
	for _, id := range userIDs {
		n.invalidateUnread(ctx, id)
	}
}

func (n *NotificationService) invalidateUnread(ctx context.Context, userID int64) {
	if n.cache == nil || n.cache.Client == nil {
		return
	}
	if err := n.cache.Client.Del(ctx, unreadCacheKey(userID)).Err(); err != nil {
		n.logger.Debug("unread cache invalidation failed", zap.Error(err))
	}
}

func unreadCacheKey(userID int64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// RegisterHandlers subscribes the side-channel stubs to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleRequestStatusChanged)
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handleRequestAssigned)
	n.dispatcher.Subscribe(events.EventStatusLogAdded, n.handleStatusLogAdded)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestCreated", zap.Int64("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRequestStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestStatusChanged", zap.Int64("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRequestAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestAssigned", zap.Int64("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusLogAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("StatusLogAdded", zap.Int64("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
