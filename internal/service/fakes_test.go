package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/repository"
)

// In-memory repository fakes shared by the service tests.

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (f *fakeUserRepo) add(user domain.User) *domain.User {
	_ = f.Create(context.Background(), &user)
	return &user
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var result []domain.User
	for id := int64(1); id <= f.nextID; id++ {
		if user, ok := f.users[id]; ok && user.Role == role {
			result = append(result, *user)
		}
	}
	return result, nil
}

type fakeAccountRepo struct {
	nextID   int64
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*domain.Account{}}
}

func (f *fakeAccountRepo) GetOrCreateByName(_ context.Context, name string) (*domain.Account, error) {
	if account, ok := f.accounts[name]; ok {
		clone := *account
		return &clone, nil
	}
	f.nextID++
	account := &domain.Account{ID: f.nextID, Name: name, CreatedAt: time.Now()}
	f.accounts[name] = account
	clone := *account
	return &clone, nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	for _, account := range f.accounts {
		if account.ID == id {
			clone := *account
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) List(_ context.Context) ([]domain.Account, error) {
	var result []domain.Account
	for _, account := range f.accounts {
		result = append(result, *account)
	}
	return result, nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, id int64) error {
	for name, account := range f.accounts {
		if account.ID == id {
			delete(f.accounts, name)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeRequestRepo struct {
	nextID   int64
	requests map[int64]*domain.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[int64]*domain.Request{}}
}

func (f *fakeRequestRepo) add(req domain.Request) *domain.Request {
	_ = f.Create(context.Background(), &req)
	if req.ReferenceCode == "" {
		req.ReferenceCode = domain.ReferenceCodeFor(req.ID)
	}
	_ = f.Update(context.Background(), &req)
	return &req
}

func (f *fakeRequestRepo) Create(_ context.Context, req *domain.Request) error {
	f.nextID++
	req.ID = f.nextID
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	clone := *req
	f.requests[req.ID] = &clone
	return nil
}

func (f *fakeRequestRepo) Update(_ context.Context, req *domain.Request) error {
	if _, ok := f.requests[req.ID]; !ok {
		return pgx.ErrNoRows
	}
	req.UpdatedAt = time.Now()
	clone := *req
	f.requests[req.ID] = &clone
	return nil
}

func (f *fakeRequestRepo) SetReferenceCode(_ context.Context, id int64, code string) error {
	req, ok := f.requests[id]
	if !ok || req.ReferenceCode != "" {
		return pgx.ErrNoRows
	}
	req.ReferenceCode = code
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id int64) (*domain.Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRequestRepo) ListWithFilter(_ context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	var result []domain.Request
	for id := int64(1); id <= f.nextID; id++ {
		req, ok := f.requests[id]
		if !ok {
			continue
		}
		if filter.RequestorID != nil && req.RequestorID != *filter.RequestorID {
			continue
		}
		if filter.EngineerID != nil && (req.EngineerID == nil || *req.EngineerID != *filter.EngineerID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, req.Status) {
			continue
		}
		result = append(result, *req)
	}
	return result, nil
}

func (f *fakeRequestRepo) CountOngoingByEngineer(_ context.Context, engineerID, excludeID int64) (int, error) {
	count := 0
	for _, req := range f.requests {
		if req.ID == excludeID {
			continue
		}
		if req.Status == domain.RequestStatusOngoing && req.EngineerID != nil && *req.EngineerID == engineerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRequestRepo) ListOverdue(_ context.Context, asOf time.Time) ([]domain.Request, error) {
	var result []domain.Request
	for id := int64(1); id <= f.nextID; id++ {
		if req, ok := f.requests[id]; ok && req.IsOverdue(asOf) {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (f *fakeRequestRepo) CountOverdue(ctx context.Context, asOf time.Time) (int, error) {
	overdue, err := f.ListOverdue(ctx, asOf)
	return len(overdue), err
}

func (f *fakeRequestRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.requests[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.requests, id)
	return nil
}

func containsStatus(statuses []domain.RequestStatus, status domain.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeNotificationRepo struct {
	nextID  int64
	entries []domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	f.nextID++
	n.ID = f.nextID
	n.CreatedAt = time.Now()
	f.entries = append(f.entries, *n)
	return nil
}

func (f *fakeNotificationRepo) GetOrCreate(ctx context.Context, n *domain.Notification) (bool, error) {
	for _, existing := range f.entries {
		if existing.RecipientID == n.RecipientID && existing.Message == n.Message && relatedEqual(existing.RelatedRequestID, n.RelatedRequestID) {
			return false, nil
		}
	}
	return true, f.Create(ctx, n)
}

func (f *fakeNotificationRepo) GetByID(_ context.Context, id int64) (*domain.Notification, error) {
	for i := range f.entries {
		if f.entries[i].ID == id {
			clone := f.entries[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	var result []domain.Notification
	for i := len(f.entries) - 1; i >= 0; i-- {
		n := f.entries[i]
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, n)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id int64) error {
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].IsRead = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, recipientID int64) (int, error) {
	count := 0
	for _, n := range f.entries {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) forRecipient(recipientID int64) []domain.Notification {
	var result []domain.Notification
	for _, n := range f.entries {
		if n.RecipientID == recipientID {
			result = append(result, n)
		}
	}
	return result
}

func relatedEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type fakeStatusLogRepo struct {
	nextID  int64
	entries []domain.StatusLog
}

func newFakeStatusLogRepo() *fakeStatusLogRepo {
	return &fakeStatusLogRepo{}
}

func (f *fakeStatusLogRepo) Create(_ context.Context, entry *domain.StatusLog) error {
	f.nextID++
	entry.ID = f.nextID
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeStatusLogRepo) ListByRequest(_ context.Context, requestID int64) ([]domain.StatusLog, error) {
	var result []domain.StatusLog
	for _, entry := range f.entries {
		if entry.RequestID == requestID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeResetRepo struct {
	nextID int64
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]*repository.PasswordResetToken{}}
}

func (f *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	f.nextID++
	token.ID = f.nextID
	token.CreatedAt = time.Now()
	clone := *token
	f.tokens[token.Token] = &clone
	return nil
}

func (f *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	token, ok := f.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *token
	return &clone, nil
}

func (f *fakeResetRepo) MarkUsed(_ context.Context, id int64) error {
	for _, token := range f.tokens {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}
