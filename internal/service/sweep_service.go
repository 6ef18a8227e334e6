package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/persistence"
	"github.com/spec-kit/request-hub/internal/repository"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

const sweepLockKey = "sla:sweep:lock"

// SweepService runs the SLA breach sweep: find every ongoing request whose
// due date has passed and notify the assigned engineer plus every admin.
// Notification inserts are idempotent on (recipient, request, message), so
// the sweep can run repeatedly without duplicating alerts.
type SweepService struct {
	requests      repository.RequestRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	cache         *persistence.Redis
	logger        *zap.Logger
	lockTTL       time.Duration
	now           func() time.Time
}

// SweepDependencies bundles collaborators.
type SweepDependencies struct {
	RequestRepo      repository.RequestRepository
	UserRepo         repository.UserRepository
	NotificationRepo repository.NotificationRepository
	Cache            *persistence.Redis
	Logger           *zap.Logger
	LockTTL          time.Duration
	Now              func() time.Time
}

// SweepResult summarizes a sweep run.
type SweepResult struct {
	Processed int
	Created   int
}

// NewSweepService creates the service.
func NewSweepService(deps SweepDependencies) *SweepService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SweepService{
		requests:      deps.RequestRepo,
		users:         deps.UserRepo,
		notifications: deps.NotificationRepo,
		cache:         deps.Cache,
		logger:        deps.Logger,
		lockTTL:       ttl,
		now:           now,
	}
}

// Run executes one sweep. A redis lock keeps concurrent invocations from
// overlapping; a held lock aborts with a conflict.
func (s *SweepService) Run(ctx context.Context) (*SweepResult, error) {
	release, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	asOf := s.now()
	overdue, err := s.requests.ListOverdue(ctx, asOf)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &SweepResult{}
	for i := range overdue {
		req := &overdue[i]
		created, err := s.notifyBreach(ctx, req, admins)
		if err != nil {
			s.logger.Error("sweep: notify failed",
				zap.Int64("request_id", req.ID),
				zap.String("reference_code", req.ReferenceCode),
				zap.Error(err))
			continue
		}
		result.Processed++
		result.Created += created
	}

	s.logger.Info("sla sweep finished",
		zap.Int("overdue", len(overdue)),
		zap.Int("processed", result.Processed),
		zap.Int("notifications_created", result.Created))
	return result, nil
}

func (s *SweepService) notifyBreach(ctx context.Context, req *domain.Request, admins []domain.User) (int, error) {
	message := fmt.Sprintf("Request %s exceeded its SLA target date.", req.ReferenceCode)

	recipients := make([]int64, 0, len(admins)+1)
	if req.EngineerID != nil {
		recipients = append(recipients, *req.EngineerID)
	}
	for _, admin := range admins {
		if req.EngineerID != nil && admin.ID == *req.EngineerID {
			continue
		}
		recipients = append(recipients, admin.ID)
	}

	created := 0
	for _, recipientID := range recipients {
		notification := &domain.Notification{
			RecipientID:      recipientID,
			Message:          message,
			RelatedRequestID: &req.ID,
		}
		inserted, err := s.notifications.GetOrCreate(ctx, notification)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

func (s *SweepService) acquireLock(ctx context.Context) (func(), error) {
	if s.cache == nil || s.cache.Client == nil {
		return func() {}, nil
	}
	ok, err := s.cache.Client.SetNX(ctx, sweepLockKey, "1", s.lockTTL).Result()
	if err != nil {
		s.logger.Warn("sweep lock unavailable, continuing without it", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, apperrors.NewConflict("another SLA sweep is already running", nil)
	}
	return func() {
		if err := s.cache.Client.Del(ctx, sweepLockKey).Err(); err != nil {
			s.logger.Warn("sweep lock release failed", zap.Error(err))
		}
	}, nil
}
