package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/funnelsync/internal/entity"
	"github.com/xavierca1/funnelsync/internal/infra/integration/magicline"
	"github.com/xavierca1/funnelsync/internal/infra/queue"
)

func unconvertedGuest(memberID, tenantCode, city string) *entity.Guest {
	start := day(2024, time.March, 1)
	return &entity.Guest{
		ID:               "g-" + memberID,
		ExternalMemberID: memberID,
		TenantCode:       tenantCode,
		City:             city,
		CreditsLeft:      4,
		PackageSize:      10,
		StartDate:        &start,
	}
}

type guestsFixture struct {
	guests      *MockGuestRepository
	conversions *MockConversionRepository
	producer    *MockConversionPublisher
	deClient    *MockPlatformClient
	atClient    *MockPlatformClient
	useCase     *SyncGuestsUseCase
}

func newGuestsFixture(t *testing.T) *guestsFixture {
	t.Helper()

	f := &guestsFixture{
		guests:      new(MockGuestRepository),
		conversions: new(MockConversionRepository),
		producer:    new(MockConversionPublisher),
		deClient:    &MockPlatformClient{tenant: "de"},
		atClient:    &MockPlatformClient{tenant: "at"},
	}

	resolver := NewResolver(testTenants())
	clients := map[string]PlatformClient{"de": f.deClient, "at": f.atClient}
	f.useCase = NewSyncGuestsUseCase(f.guests, f.conversions, resolver, clients, f.producer, 0)
	return f
}

func TestSyncGuestsContractConvertsGuest(t *testing.T) {
	f := newGuestsFixture(t)

	var inserted *entity.ConversionRecord
	var payload queue.ConversionPayload

	f.conversions.On("FindAll", mock.Anything).Return([]*entity.ConversionRecord{}, nil)
	f.deClient.On("FetchAllActiveMemberships", mock.Anything).Return(map[string]magicline.MembershipFact{
		"300": {ExternalMemberID: "300", PlanName: "Premium Flex", StartDate: day(2024, time.May, 10)},
	}, nil)
	f.deClient.On("FetchAllCoursePurchases", mock.Anything).Return(map[string]magicline.CourseFact{}, nil)
	f.guests.On("FindUnconverted", mock.Anything, 0).Return([]*entity.Guest{
		unconvertedGuest("300", "de", "berlin"),
	}, nil)
	f.conversions.On("Upsert", mock.Anything, mock.AnythingOfType("*entity.ConversionRecord")).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(*entity.ConversionRecord) }).
		Return(true, nil)
	f.guests.On("MarkConverted", mock.Anything, "de", "300", day(2024, time.May, 10)).Return(nil)
	f.producer.On("PublishConversion", mock.Anything, mock.AnythingOfType("queue.ConversionPayload")).
		Run(func(args mock.Arguments) { payload = args.Get(1).(queue.ConversionPayload) }).
		Return(nil)

	report, err := f.useCase.Execute(context.Background(), SyncInput{Kind: SyncGuests, Tenant: "de", Execute: true})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 1, report.Created)

	// A guest conversion always carries the course step.
	if assert.NotNil(t, inserted) {
		assert.Equal(t, entity.SourceGuest, inserted.Source)
		assert.True(t, inserted.HadCourseStep)
		assert.Equal(t, day(2024, time.May, 10), inserted.MemberSince)
	}
	f.guests.AssertCalled(t, "MarkConverted", mock.Anything, "de", "300", day(2024, time.May, 10))
	assert.Equal(t, "guest", payload.Source)
	assert.True(t, payload.HadCourseStep)
}

func TestSyncGuestsIngestsCoursePurchases(t *testing.T) {
	f := newGuestsFixture(t)

	var upserted *entity.Guest

	f.conversions.On("FindAll", mock.Anything).Return([]*entity.ConversionRecord{}, nil)
	f.deClient.On("FetchAllActiveMemberships", mock.Anything).Return(map[string]magicline.MembershipFact{}, nil)
	f.deClient.On("FetchAllCoursePurchases", mock.Anything).Return(map[string]magicline.CourseFact{
		"400": {ExternalMemberID: "400", PurchaseDate: day(2024, time.April, 2), InitialQuantity: 16, FacilityID: "2"},
	}, nil)
	f.guests.On("Upsert", mock.Anything, mock.AnythingOfType("*entity.Guest")).
		Run(func(args mock.Arguments) { upserted = args.Get(1).(*entity.Guest) }).
		Return(nil)
	f.guests.On("FindUnconverted", mock.Anything, 0).Return([]*entity.Guest{}, nil)

	report, err := f.useCase.Execute(context.Background(), SyncInput{Kind: SyncGuests, Tenant: "de", Execute: true})

	assert.NoError(t, err)
	assert.Empty(t, report.Errors)

	if assert.NotNil(t, upserted) {
		assert.Equal(t, "400", upserted.ExternalMemberID)
		assert.Equal(t, "de", upserted.TenantCode)
		assert.Equal(t, "cologne", upserted.City)
		assert.Equal(t, 16, upserted.PackageSize)
		assert.Equal(t, 16, upserted.CreditsLeft)
		if assert.NotNil(t, upserted.StartDate) {
			assert.Equal(t, day(2024, time.April, 2), *upserted.StartDate)
		}
	}
}

func TestSyncGuestsUnknownFacilityKeepsGuestWithoutCity(t *testing.T) {
	f := newGuestsFixture(t)

	var upserted *entity.Guest

	f.conversions.On("FindAll", mock.Anything).Return([]*entity.ConversionRecord{}, nil)
	f.deClient.On("FetchAllActiveMemberships", mock.Anything).Return(map[string]magicline.MembershipFact{}, nil)
	f.deClient.On("FetchAllCoursePurchases", mock.Anything).Return(map[string]magicline.CourseFact{
		"400": {ExternalMemberID: "400", PurchaseDate: day(2024, time.April, 2), InitialQuantity: 10, FacilityID: "99"},
	}, nil)
	f.guests.On("Upsert", mock.Anything, mock.AnythingOfType("*entity.Guest")).
		Run(func(args mock.Arguments) { upserted = args.Get(1).(*entity.Guest) }).
		Return(nil)
	f.guests.On("FindUnconverted", mock.Anything, 0).Return([]*entity.Guest{}, nil)

	report, err := f.useCase.Execute(context.Background(), SyncInput{Kind: SyncGuests, Tenant: "de", Execute: true})

	assert.NoError(t, err)
	assert.Len(t, report.Errors, 1)
	if assert.NotNil(t, upserted) {
		assert.Equal(t, "", upserted.City)
	}
}

func TestSyncGuestsDryRunWritesNothing(t *testing.T) {
	f := newGuestsFixture(t)

	f.conversions.On("FindAll", mock.Anything).Return([]*entity.ConversionRecord{}, nil)
	f.deClient.On("FetchAllActiveMemberships", mock.Anything).Return(map[string]magicline.MembershipFact{
		"300": {ExternalMemberID: "300", PlanName: "Premium Flex", StartDate: day(2024, time.May, 10)},
	}, nil)
	f.deClient.On("FetchAllCoursePurchases", mock.Anything).Return(map[string]magicline.CourseFact{
		"400": {ExternalMemberID: "400", PurchaseDate: day(2024, time.April, 2), InitialQuantity: 10, FacilityID: "1"},
	}, nil)
	f.guests.On("FindUnconverted", mock.Anything, 0).Return([]*entity.Guest{
		unconvertedGuest("300", "de", "berlin"),
	}, nil)

	report, err := f.useCase.Execute(context.Background(), SyncInput{Kind: SyncGuests, Tenant: "de", Execute: false})

	assert.NoError(t, err)
	assert.True(t, report.DryRun)
	// Both the converting guest and the would-be-ingested one are examined;
	// the preview counts every decision the executed run would apply.
	assert.Equal(t, 2, report.Examined)
	assert.Equal(t, 2, report.Created)

	actions := map[string]int{}
	for _, change := range report.Changes {
		actions[change.Action]++
	}
	assert.Equal(t, 1, actions["upsert_guest"])
	assert.Equal(t, 2, actions["create_conversion"])
	assert.Equal(t, 1, actions["mark_guest_converted"])

	f.guests.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.guests.AssertNotCalled(t, "MarkConverted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.conversions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.producer.AssertNotCalled(t, "PublishConversion", mock.Anything, mock.Anything)
}

func TestSyncGuestsDryRunPreviewsIngestedGuest(t *testing.T) {
	f := newGuestsFixture(t)

	// The purchase and the contract surface in the same run: an executed
	// run ingests the guest and converts it immediately, so the preview
	// must show both steps even though neither row exists yet.
	f.conversions.On("FindAll", mock.Anything).Return([]*entity.ConversionRecord{}, nil)
	f.deClient.On("FetchAllActiveMemberships", mock.Anything).Return(map[string]magicline.MembershipFact{
		"400": {ExternalMemberID: "400", PlanName: "Premium Flex", StartDate: day(2024, time.May, 10)},
	}, nil)
	f.deClient.On("FetchAllCoursePurchases", mock.Anything).Return(map[string]magicline.CourseFact{
		"400": {ExternalMemberID: "400", PurchaseDate: day(2024, time.April, 2), InitialQuantity: 10, FacilityID: "1"},
	}, nil)
	f.guests.On("FindUnconverted", mock.Anything, 0).Return([]*entity.Guest{}, nil)

	report, err := f.useCase.Execute(context.Background(), SyncInput{Kind: SyncGuests, Tenant: "de", Execute: false})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Created)

	actions := map[string]int{}
	var conversion ProposedChange
	for _, change := range report.Changes {
		actions[change.Action]++
		if change.Action == "create_conversion" {
			conversion = change
		}
	}
	assert.Equal(t, 1, actions["upsert_guest"])
	assert.Equal(t, 1, actions["create_conversion"])
	assert.Equal(t, 1, actions["mark_guest_converted"])
	assert.Equal(t, "guest", conversion.Source)
	assert.Equal(t, "berlin", conversion.City)

	f.guests.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.conversions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSyncGuestsAlreadyTerminalKeyWritesNothing(t *testing.T) {
	f := newGuestsFixture(t)

	f.conversions.On("FindAll", mock.Anything).Return([]*entity.ConversionRecord{
		record("rec-1", "300", "berlin", entity.MembershipLoyalty),
	}, nil)
	f.deClient.On("FetchAllActiveMemberships", mock.Anything).Return(map[string]magicline.MembershipFact{
		"300": {ExternalMemberID: "300", PlanName: "Loyalty 24", StartDate: day(2024, time.May, 10)},
	}, nil)
	f.deClient.On("FetchAllCoursePurchases", mock.Anything).Return(map[string]magicline.CourseFact{}, nil)
	f.guests.On("FindUnconverted", mock.Anything, 0).Return([]*entity.Guest{
		unconvertedGuest("300", "de", "berlin"),
	}, nil)

	report, err := f.useCase.Execute(context.Background(), SyncInput{Kind: SyncGuests, Tenant: "de", Execute: true})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 0, report.Created)
	f.conversions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.guests.AssertNotCalled(t, "MarkConverted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncGuestsUnreachableTenantDefersGuests(t *testing.T) {
	f := newGuestsFixture(t)

	f.conversions.On("FindAll", mock.Anything).Return([]*entity.ConversionRecord{}, nil)
	f.deClient.On("FetchAllActiveMemberships", mock.Anything).Return(nil, assert.AnError)
	f.guests.On("FindUnconverted", mock.Anything, 0).Return([]*entity.Guest{
		unconvertedGuest("300", "de", "berlin"),
	}, nil)

	report, err := f.useCase.Execute(context.Background(), SyncInput{Kind: SyncGuests, Tenant: "de", Execute: true})

	assert.NoError(t, err)
	assert.Equal(t, 0, report.Examined)
	assert.Equal(t, 1, report.Remaining)
	assert.NotEmpty(t, report.Errors)
}
