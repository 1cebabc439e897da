package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/funnelsync/internal/entity"
	"github.com/xavierca1/funnelsync/internal/infra/integration/magicline"
	"github.com/xavierca1/funnelsync/internal/infra/queue"
)

// MockTrialRepository
type MockTrialRepository struct {
	mock.Mock
}

func (m *MockTrialRepository) FindCheckable(ctx context.Context, limit int) ([]*entity.Trial, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Trial), args.Error(1)
}

func (m *MockTrialRepository) FindByEmail(ctx context.Context, email string) (*entity.Trial, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Trial), args.Error(1)
}

func (m *MockTrialRepository) SetExternalMemberID(ctx context.Context, trialID, externalMemberID string) error {
	args := m.Called(ctx, trialID, externalMemberID)
	return args.Error(0)
}

func (m *MockTrialRepository) Upsert(ctx context.Context, trial *entity.Trial) error {
	args := m.Called(ctx, trial)
	return args.Error(0)
}

// MockGuestRepository
type MockGuestRepository struct {
	mock.Mock
}

func (m *MockGuestRepository) FindUnconverted(ctx context.Context, limit int) ([]*entity.Guest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Guest), args.Error(1)
}

func (m *MockGuestRepository) FindByExternalMemberID(ctx context.Context, tenantCode, externalMemberID string) (*entity.Guest, error) {
	args := m.Called(ctx, tenantCode, externalMemberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Guest), args.Error(1)
}

func (m *MockGuestRepository) Upsert(ctx context.Context, guest *entity.Guest) error {
	args := m.Called(ctx, guest)
	return args.Error(0)
}

func (m *MockGuestRepository) UpdateCredits(ctx context.Context, tenantCode, externalMemberID string, creditsLeft int) error {
	args := m.Called(ctx, tenantCode, externalMemberID, creditsLeft)
	return args.Error(0)
}

func (m *MockGuestRepository) MarkConverted(ctx context.Context, tenantCode, externalMemberID string, when time.Time) error {
	args := m.Called(ctx, tenantCode, externalMemberID, when)
	return args.Error(0)
}

// MockConversionRepository
type MockConversionRepository struct {
	mock.Mock
}

func (m *MockConversionRepository) FindAll(ctx context.Context) ([]*entity.ConversionRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.ConversionRecord), args.Error(1)
}

func (m *MockConversionRepository) FindByExternalMemberID(ctx context.Context, externalMemberID string) ([]*entity.ConversionRecord, error) {
	args := m.Called(ctx, externalMemberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.ConversionRecord), args.Error(1)
}

func (m *MockConversionRepository) Upsert(ctx context.Context, record *entity.ConversionRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversionRepository) Update(ctx context.Context, id string, patch entity.ConversionPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// MockPlatformClient
type MockPlatformClient struct {
	mock.Mock
	tenant string
}

func (m *MockPlatformClient) Tenant() string {
	return m.tenant
}

func (m *MockPlatformClient) FetchActiveMembership(ctx context.Context, externalMemberID string) (*magicline.MembershipFact, error) {
	args := m.Called(ctx, externalMemberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*magicline.MembershipFact), args.Error(1)
}

func (m *MockPlatformClient) FetchCoursePurchase(ctx context.Context, externalMemberID string) (*magicline.CourseFact, error) {
	args := m.Called(ctx, externalMemberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*magicline.CourseFact), args.Error(1)
}

func (m *MockPlatformClient) FetchAllActiveMemberships(ctx context.Context) (map[string]magicline.MembershipFact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]magicline.MembershipFact), args.Error(1)
}

func (m *MockPlatformClient) FetchAllCoursePurchases(ctx context.Context) (map[string]magicline.CourseFact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]magicline.CourseFact), args.Error(1)
}

// MockConversionPublisher
type MockConversionPublisher struct {
	mock.Mock
}

func (m *MockConversionPublisher) PublishConversion(ctx context.Context, payload queue.ConversionPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// MockReportMailer
type MockReportMailer struct {
	mock.Mock
}

func (m *MockReportMailer) SendSyncReport(to string, report SyncReport) error {
	args := m.Called(to, report)
	return args.Error(0)
}

// testTenants is the two-portal setup used across the sync tests: the
// same raw facility and member ids exist in both, which is exactly the
// ambiguity the identity key has to survive.
func testTenants() []entity.TenantConfig {
	return []entity.TenantConfig{
		{
			Code:        "de",
			CountryCode: "DE",
			BaseURL:     "https://de.example.com",
			APIKey:      "key-de",
			Cities:      []string{"berlin", "cologne"},
			Facilities:  map[string]string{"1": "berlin", "2": "cologne"},
			Aliases:     map[string]string{"köln": "cologne", "koeln": "cologne"},
		},
		{
			Code:        "at",
			CountryCode: "AT",
			BaseURL:     "https://at.example.com",
			APIKey:      "key-at",
			Cities:      []string{"vienna", "graz"},
			Facilities:  map[string]string{"1": "vienna", "2": "graz"},
			Aliases:     map[string]string{"wien": "vienna"},
		},
	}
}
