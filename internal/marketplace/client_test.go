package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTP(server.URL, "2018-08-31", server.Client(), logging.Nop{})
}

func TestGetSubscriptionSendsAPIVersion(t *testing.T) {
	subscriptionID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2018-08-31", r.URL.Query().Get("api-version"))
		assert.Equal(t, "/saas/subscriptions/"+subscriptionID.String(), r.URL.Path)
		fmt.Fprintf(w, `{"id":%q,"planId":"gold","saasSubscriptionStatus":"Subscribed"}`, subscriptionID)
	})

	sub, err := client.GetSubscription(context.Background(), subscriptionID)
	require.NoError(t, err)
	assert.Equal(t, subscriptionID, sub.ID)
	assert.Equal(t, "gold", sub.PlanID)
	assert.Equal(t, StatusSubscribed, sub.Status)
}

func TestGetSubscriptionNormalizesUnknownStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":%q,"saasSubscriptionStatus":"SomethingNew"}`, uuid.New())
	})

	sub, err := client.GetSubscription(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusUnrecognized, sub.Status)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
		code   ErrorCode
	}{
		{http.StatusNotFound, IsNotFound, CodeNotFound},
		{http.StatusUnauthorized, IsUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, IsUnauthorized, CodeUnauthorized},
		{http.StatusConflict, IsConflict, CodeConflict},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("http_%d", tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "vendor detail", tt.status)
			})

			_, err := client.GetSubscription(context.Background(), uuid.New())
			require.Error(t, err)
			assert.True(t, tt.check(err))

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, ActionGetSubscription, apiErr.Action)
		})
	}
}

func TestUnauthorizedCarriesRetryMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetSubscription(context.Background(), uuid.New())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "token invalid or expired, please try again", apiErr.Message)
}

func TestListSubscriptionsFollowsContinuationToken(t *testing.T) {
	firstID, secondID := uuid.New(), uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("continuationToken") {
		case "":
			fmt.Fprintf(w, `{"subscriptions":[{"id":%q}],"@nextLink":"page-2"}`, firstID)
		case "page-2":
			fmt.Fprintf(w, `{"subscriptions":[{"id":%q}]}`, secondID)
		default:
			t.Errorf("unexpected continuation token %q", r.URL.Query().Get("continuationToken"))
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	subscriptions, err := client.ListSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subscriptions, 2)
	assert.Equal(t, firstID, subscriptions[0].ID)
	assert.Equal(t, secondID, subscriptions[1].ID)
}

func TestResolveSendsTokenHeader(t *testing.T) {
	resolvedID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "purchase-token-xyz", r.Header.Get("x-ms-marketplace-token"))
		fmt.Fprintf(w, `{"id":%q,"planId":"gold","offerId":"contoso-saas"}`, resolvedID)
	})

	resolved, err := client.Resolve(context.Background(), "purchase-token-xyz")
	require.NoError(t, err)
	assert.Equal(t, resolvedID, resolved.ID)
	assert.Equal(t, "gold", resolved.PlanID)
}

func TestChangePlanParsesOperationLocation(t *testing.T) {
	operationID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		w.Header().Set("Operation-Location",
			fmt.Sprintf("https://example.com/api/saas/subscriptions/x/operations/%s?api-version=2018-08-31", operationID))
		w.WriteHeader(http.StatusAccepted)
	})

	id, err := client.ChangePlan(context.Background(), uuid.New(), "gold")
	require.NoError(t, err)
	assert.Equal(t, operationID, id)
}

func TestChangePlanMissingOperationLocation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	_, err := client.ChangePlan(context.Background(), uuid.New(), "gold")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUnknown, apiErr.Code)
}

func TestUpdateOperationSendsStatusBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Success", body.Status)
	})

	err := client.UpdateOperation(context.Background(), uuid.New(), uuid.New(), UpdateStatusSuccess)
	assert.NoError(t, err)
}
