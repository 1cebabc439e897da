package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/funnelsync/internal/infra/queue"
)

type MockIntakePublisher struct {
	mock.Mock
}

func (m *MockIntakePublisher) PublishIntake(ctx context.Context, payload queue.IntakePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func TestHandleContractAccepts(t *testing.T) {
	producer := new(MockIntakePublisher)
	handler := NewWebhookHandler(producer)

	var published queue.IntakePayload
	producer.On("PublishIntake", mock.Anything, mock.AnythingOfType("queue.IntakePayload")).
		Run(func(args mock.Arguments) { published = args.Get(1).(queue.IntakePayload) }).
		Return(nil)

	body := `{"external_member_id":"100","start_date":"2024-05-10","plan_name":"Premium Flex","email":"anna@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/contract", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleContract(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, queue.IntakeContractCreated, published.Type)
	assert.Equal(t, "100", published.ExternalMemberID)
	assert.Equal(t, "anna@example.com", published.Email)
}

func TestHandleContractRejectsInvalidPayload(t *testing.T) {
	producer := new(MockIntakePublisher)
	handler := NewWebhookHandler(producer)

	body := `{"external_member_id":"","start_date":"not-a-date","plan_name":""}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/contract", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleContract(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	producer.AssertNotCalled(t, "PublishIntake", mock.Anything, mock.Anything)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	fields := response["fields"].(map[string]interface{})
	assert.Contains(t, fields, "external_member_id")
	assert.Contains(t, fields, "start_date")
	assert.Contains(t, fields, "plan_name")
}

func TestHandleContractRejectsBadJSON(t *testing.T) {
	producer := new(MockIntakePublisher)
	handler := NewWebhookHandler(producer)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/contract", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.HandleContract(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	producer.AssertNotCalled(t, "PublishIntake", mock.Anything, mock.Anything)
}

func TestHandleContractQueueFailure(t *testing.T) {
	producer := new(MockIntakePublisher)
	handler := NewWebhookHandler(producer)
	producer.On("PublishIntake", mock.Anything, mock.Anything).Return(assert.AnError)

	body := `{"external_member_id":"100","start_date":"2024-05-10","plan_name":"Premium Flex"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/contract", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleContract(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleBookingAccepts(t *testing.T) {
	producer := new(MockIntakePublisher)
	handler := NewWebhookHandler(producer)

	var published queue.IntakePayload
	producer.On("PublishIntake", mock.Anything, mock.AnythingOfType("queue.IntakePayload")).
		Run(func(args mock.Arguments) { published = args.Get(1).(queue.IntakePayload) }).
		Return(nil)

	body := `{"external_member_id":"300","tenant_code":"de","city":"berlin","state":"attended","credits_left":3}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/booking", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleBooking(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, queue.IntakeBookingChanged, published.Type)
	assert.Equal(t, "de", published.TenantCode)
	if assert.NotNil(t, published.CreditsLeft) {
		assert.Equal(t, 3, *published.CreditsLeft)
	}
}

func TestHandleBookingRejectsUnknownState(t *testing.T) {
	producer := new(MockIntakePublisher)
	handler := NewWebhookHandler(producer)

	body := `{"external_member_id":"300","tenant_code":"de","state":"expired"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/booking", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleBooking(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	producer.AssertNotCalled(t, "PublishIntake", mock.Anything, mock.Anything)
}
