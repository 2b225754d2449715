// internal/database/dbmock/querier.go
package dbmock

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"

	"github-notification-sync/internal/database"
	"github-notification-sync/internal/model"
)

// MockQuerier is a mock of the database.Querier interface.
type MockQuerier struct {
	mock.Mock
}

var _ database.Querier = (*MockQuerier)(nil)

func (m *MockQuerier) UpsertUser(ctx context.Context, arg database.UpsertUserParams) (model.User, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *MockQuerier) GetNotification(ctx context.Context, arg database.GetNotificationParams) (model.Notification, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.Notification), args.Error(1)
}
func (m *MockQuerier) GetNotificationByGithubID(ctx context.Context, arg database.GetNotificationByGithubIDParams) (model.Notification, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.Notification), args.Error(1)
}
func (m *MockQuerier) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(model.Notification), args.Error(1)
}
func (m *MockQuerier) UpdateNotification(ctx context.Context, arg database.UpdateNotificationParams) (model.Notification, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.Notification), args.Error(1)
}
func (m *MockQuerier) ListNotifications(ctx context.Context, arg database.ListNotificationsParams) ([]model.Notification, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]model.Notification), args.Error(1)
}
func (m *MockQuerier) GetLatestNotificationUpdatedAt(ctx context.Context, userID int64) (pgtype.Timestamptz, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(pgtype.Timestamptz), args.Error(1)
}
func (m *MockQuerier) GetSubjectByURL(ctx context.Context, url string) (model.Subject, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(model.Subject), args.Error(1)
}
func (m *MockQuerier) CreateSubject(ctx context.Context, s model.Subject) (model.Subject, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(model.Subject), args.Error(1)
}
func (m *MockQuerier) UpdateSubject(ctx context.Context, s model.Subject) (model.Subject, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(model.Subject), args.Error(1)
}
