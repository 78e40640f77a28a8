package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/marketplace"
	"fulfillment-api/pkg/logging"
)

// stubMarketplace scripts GetOperation responses and counts every call.
type stubMarketplace struct {
	operationStatuses []marketplace.OperationStatus
	operationReads    int
	planCalls         int
	listErr           error
	subscriptions     []marketplace.Subscription
}

func (s *stubMarketplace) ListSubscriptions(context.Context) ([]marketplace.Subscription, error) {
	return s.subscriptions, s.listErr
}

func (s *stubMarketplace) GetSubscription(_ context.Context, id uuid.UUID) (*marketplace.Subscription, error) {
	return &marketplace.Subscription{ID: id}, nil
}

func (s *stubMarketplace) ListAvailablePlans(context.Context, uuid.UUID) ([]marketplace.PlanDetail, error) {
	s.planCalls++
	return nil, nil
}

func (s *stubMarketplace) Resolve(context.Context, string) (*marketplace.ResolvedSubscription, error) {
	return &marketplace.ResolvedSubscription{}, nil
}

func (s *stubMarketplace) Activate(context.Context, uuid.UUID, string) error { return nil }

func (s *stubMarketplace) ChangePlan(context.Context, uuid.UUID, string) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (s *stubMarketplace) ChangeQuantity(context.Context, uuid.UUID, int) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (s *stubMarketplace) Delete(context.Context, uuid.UUID) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (s *stubMarketplace) GetOperation(_ context.Context, subscriptionID, operationID uuid.UUID) (*marketplace.Operation, error) {
	status := s.operationStatuses[len(s.operationStatuses)-1]
	if s.operationReads < len(s.operationStatuses) {
		status = s.operationStatuses[s.operationReads]
	}
	s.operationReads++
	return &marketplace.Operation{ID: operationID, SubscriptionID: subscriptionID, Status: status}, nil
}

func (s *stubMarketplace) UpdateOperation(context.Context, uuid.UUID, uuid.UUID, marketplace.UpdateOperationStatus) error {
	return nil
}

func newTestService(stub *stubMarketplace, maxAttempts int) *FulfillmentService {
	return &FulfillmentService{
		client:       stub,
		pollInterval: time.Millisecond,
		maxAttempts:  maxAttempts,
		logger:       logging.Nop{},
	}
}

func TestWaitForOperationSucceededOnFirstRead(t *testing.T) {
	stub := &stubMarketplace{operationStatuses: []marketplace.OperationStatus{marketplace.OperationSucceeded}}
	svc := newTestService(stub, 100)

	status, err := svc.WaitForOperation(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, marketplace.OperationSucceeded, status)
	assert.Equal(t, 1, stub.operationReads, "terminal status on the first read means exactly one read")
}

func TestWaitForOperationPollsUntilTerminal(t *testing.T) {
	stub := &stubMarketplace{operationStatuses: []marketplace.OperationStatus{
		marketplace.OperationNotStarted,
		marketplace.OperationInProgress,
		marketplace.OperationSucceeded,
	}}
	svc := newTestService(stub, 100)

	status, err := svc.WaitForOperation(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, marketplace.OperationSucceeded, status)
	assert.Equal(t, 3, stub.operationReads)
}

func TestWaitForOperationFailedStatus(t *testing.T) {
	stub := &stubMarketplace{operationStatuses: []marketplace.OperationStatus{
		marketplace.OperationInProgress,
		marketplace.OperationFailed,
	}}
	svc := newTestService(stub, 100)

	subscriptionID := uuid.New()
	operationID := uuid.New()
	status, err := svc.WaitForOperation(context.Background(), subscriptionID, operationID)
	assert.Equal(t, marketplace.OperationFailed, status)

	var opErr *OperationFailedError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, subscriptionID, opErr.SubscriptionID)
	assert.Equal(t, operationID, opErr.OperationID)
	assert.Equal(t, marketplace.OperationFailed, opErr.LastStatus)
}

func TestWaitForOperationAttemptCap(t *testing.T) {
	stub := &stubMarketplace{operationStatuses: []marketplace.OperationStatus{marketplace.OperationInProgress}}
	svc := newTestService(stub, 3)

	status, err := svc.WaitForOperation(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, marketplace.OperationInProgress, status)
	assert.Equal(t, 3, stub.operationReads, "cap bounds the number of reads")

	var opErr *OperationFailedError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, marketplace.OperationInProgress, opErr.LastStatus)
}

func TestWaitForOperationContextCancelled(t *testing.T) {
	stub := &stubMarketplace{operationStatuses: []marketplace.OperationStatus{marketplace.OperationInProgress}}
	svc := &FulfillmentService{
		client:       stub,
		pollInterval: time.Minute, // never elapses; cancellation must win
		maxAttempts:  100,
		logger:       logging.Nop{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := svc.WaitForOperation(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stub.operationReads)
}

func TestListPlansRejectsZeroIDBeforeCalling(t *testing.T) {
	stub := &stubMarketplace{}
	svc := newTestService(stub, 100)

	_, err := svc.ListPlans(context.Background(), uuid.Nil)
	assert.True(t, marketplace.IsInvalidArgument(err))
	assert.Zero(t, stub.planCalls, "validation failures must not reach the vendor")
}

func TestChangePlanValidation(t *testing.T) {
	svc := newTestService(&stubMarketplace{}, 100)

	_, err := svc.ChangePlan(context.Background(), uuid.Nil, "gold")
	assert.True(t, marketplace.IsInvalidArgument(err))

	_, err = svc.ChangePlan(context.Background(), uuid.New(), "")
	assert.True(t, marketplace.IsInvalidArgument(err))

	handle, err := svc.ChangePlan(context.Background(), uuid.New(), "gold")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, handle.OperationID)
}

func TestChangeQuantityValidation(t *testing.T) {
	svc := newTestService(&stubMarketplace{}, 100)

	_, err := svc.ChangeQuantity(context.Background(), uuid.New(), 0)
	assert.True(t, marketplace.IsInvalidArgument(err))

	_, err = svc.ChangeQuantity(context.Background(), uuid.New(), -4)
	assert.True(t, marketplace.IsInvalidArgument(err))
}

func TestListSubscriptionsSwallowsVendorFailure(t *testing.T) {
	stub := &stubMarketplace{listErr: errors.New("boom")}
	svc := newTestService(stub, 100)

	subscriptions := svc.ListSubscriptions(context.Background())
	assert.NotNil(t, subscriptions)
	assert.Empty(t, subscriptions)
}

func TestResolveTokenRejectsEmptyToken(t *testing.T) {
	svc := newTestService(&stubMarketplace{}, 100)

	_, err := svc.ResolveToken(context.Background(), "")
	assert.True(t, marketplace.IsInvalidArgument(err))
}
