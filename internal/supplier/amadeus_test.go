package supplier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-autobook/internal/logger"
	"ms-autobook/internal/models"
	"ms-autobook/internal/supplier"
)

func newTestClient(t *testing.T, handler http.Handler) (*supplier.Client, *httptest.Server) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := supplier.NewClient(server.URL, "client-id", "client-secret", supplier.NewRedisTokenCache(redisClient), logger.Discard())
	return client, server
}

func tokenAndAPIHandler(t *testing.T, tokenCalls *int, api http.HandlerFunc) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		*tokenCalls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "client-id", r.FormValue("client_id"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   1800,
		})
	})
	mux.HandleFunc("/", api)
	return mux
}

func TestSearchOffers(t *testing.T) {
	tokenCalls := 0
	client, _ := newTestClient(t, tokenAndAPIHandler(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/shopping/flight-offers", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "MVY", r.URL.Query().Get("originLocationCode"))
		assert.Equal(t, "JFK", r.URL.Query().Get("destinationLocationCode"))
		assert.Equal(t, "2", r.URL.Query().Get("adults"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []models.Offer{
				{ID: "off-1", TotalAmount: "450.00", Currency: "USD"},
				{ID: "off-2", TotalAmount: "520.00", Currency: "USD"},
			},
		})
	}))

	offers, err := client.SearchOffers(context.Background(), models.OfferQuery{
		Origin:        "MVY",
		Destination:   "JFK",
		DepartureDate: "2026-10-15",
		Adults:        2,
		Currency:      "USD",
	})
	assert.NoError(t, err)
	assert.Len(t, offers, 2)
	assert.Equal(t, "off-1", offers[0].ID)
	assert.Equal(t, 1, tokenCalls)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	tokenCalls := 0
	client, _ := newTestClient(t, tokenAndAPIHandler(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []models.Offer{}})
	}))

	for i := 0; i < 3; i++ {
		_, err := client.SearchOffers(context.Background(), models.OfferQuery{Origin: "MVY", Destination: "JFK", Adults: 1, Currency: "USD"})
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, tokenCalls)
}

func TestPriceOffer(t *testing.T) {
	tokenCalls := 0
	expires := time.Now().Add(20 * time.Minute).UTC().Truncate(time.Second)
	client, _ := newTestClient(t, tokenAndAPIHandler(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/shopping/flight-offers/off-1/pricing", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": models.PricedOffer{
				ID:          "off-1",
				TotalAmount: "465.00",
				Currency:    "USD",
				ExpiresAt:   expires,
				SegmentIDs:  []string{"seg-1"},
			},
		})
	}))

	priced, err := client.PriceOffer(context.Background(), "off-1")
	assert.NoError(t, err)
	assert.Equal(t, "465.00", priced.TotalAmount)
	assert.Equal(t, []string{"seg-1"}, priced.SegmentIDs)
	assert.True(t, priced.ExpiresAt.Equal(expires))
}

func TestCreateOrderSendsIdempotencyKey(t *testing.T) {
	tokenCalls := 0
	client, _ := newTestClient(t, tokenAndAPIHandler(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/booking/flight-orders", r.URL.Path)
		assert.Equal(t, "attempt-42", r.Header.Get("Idempotency-Key"))

		var req models.OrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "off-1", req.OfferID)
		assert.Equal(t, "Jane", req.Traveler.FirstName)
		require.Len(t, req.SeatSelections, 1)
		assert.Equal(t, "12C", req.SeatSelections[0].SeatNumber)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": models.SupplierOrder{ID: "order-1", PNR: "ABC123", Status: "confirmed", TotalAmount: "465.00", Currency: "USD"},
		})
	}))

	order, err := client.CreateOrder(context.Background(), models.OrderRequest{
		OfferID:        "off-1",
		Traveler:       models.Traveler{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"},
		SeatSelections: []models.SeatSelection{{SegmentID: "seg-1", SeatNumber: "12C"}},
		IdempotencyKey: "attempt-42",
	})
	assert.NoError(t, err)
	assert.Equal(t, "ABC123", order.PNR)
}

func TestCancelOrder(t *testing.T) {
	tokenCalls := 0
	client, _ := newTestClient(t, tokenAndAPIHandler(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/booking/flight-orders/order-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, client.CancelOrder(context.Background(), "order-1"))
}

func TestSupplierErrorCarriesStatusAndBody(t *testing.T) {
	tokenCalls := 0
	client, _ := newTestClient(t, tokenAndAPIHandler(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"errors":[{"title":"system down"}]}`))
	}))

	_, err := client.PriceOffer(context.Background(), "off-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "system down")
}