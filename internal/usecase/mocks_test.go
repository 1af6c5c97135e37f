package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/provider"
	"github.com/Peluchemoreno/esti-mate-billing/internal/infrastructure/database"
)

// MockBillingProvider is a mock implementation of provider.BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutSessionRequest) (*provider.Session, error) {
	args := m.Called(ctx, req)
	if s := args.Get(0); s != nil {
		return s.(*provider.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBillingProvider) CreatePortalSession(ctx context.Context, req *provider.PortalSessionRequest) (*provider.Session, error) {
	args := m.Called(ctx, req)
	if s := args.Get(0); s != nil {
		return s.(*provider.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBillingProvider) GetProviderName() string {
	return "mock"
}

// recordingPublisher collects published account updates.
type recordingPublisher struct {
	mu      sync.Mutex
	reasons []string
	last    map[uuid.UUID]entity.BillingAccount
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{last: map[uuid.UUID]entity.BillingAccount{}}
}

func (p *recordingPublisher) PublishAccountUpdated(_ context.Context, account *entity.BillingAccount, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reasons = append(p.reasons, reason)
	p.last[account.AccountID] = *account
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reasons)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db, zap.NewNop()))
	return db
}
