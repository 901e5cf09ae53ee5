package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eatery/internal/config"
	"eatery/internal/intent"
	"eatery/internal/middleware"
	"eatery/internal/order"
	"eatery/internal/store"
	"eatery/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(store.Options{Driver: store.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	_, err = store.SeedCatalog(context.Background(), db, store.DefaultMenu)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := logger.Nop()
	gateway := store.NewGateway(db, log)
	engine := order.NewEngine(order.NewCache(), order.NewKeyedMutex(), gateway, nil, order.Options{}, log)
	disp := intent.NewDispatcher(engine, nil, log)

	r := gin.New()
	r.Use(middleware.RequestLog(log))
	Setup(r, disp, gateway, nil, config.AppConfig{WebhookPath: "/"}, log)
	return r
}

func webhookBody(intentName, session string, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}
	b, _ := json.Marshal(map[string]any{
		"queryResult": map[string]any{
			"intent":     map[string]any{"displayName": intentName},
			"parameters": params,
		},
		"outputContexts": []map[string]any{
			{"name": "projects/p/agent/sessions/" + session + "/contexts/ongoing-order"},
		},
	})
	return string(b)
}

func post(t *testing.T, r *gin.Engine, body string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp intent.WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp.FulfillmentText
}

const (
	addIntent      = "4. AddOrder - context: ongoing-order"
	removeIntent   = "5. RemoveOrder - context: ongoing-order"
	completeIntent = "6. CompleteOrder - context: ongoing-order"
	trackIntent    = "7.1. TrackMultipleOrder - context: ongoing-tracking"
	cancelIntent   = "8. CancelOrder"
	newIntent      = "3. NewOrder"
)

func TestPing(t *testing.T) {
	r := newTestServer(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestWebhookOrderLifecycle(t *testing.T) {
	r := newTestServer(t)

	code, text := post(t, r, webhookBody(addIntent, "s1", map[string]any{
		"FoodItem-AddOrder": []string{"Pizza", "Vegetable Biryani"},
		"number":            []int{2, 1},
	}))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, text, "So far you have: 2 Pizza, 1 Vegetable Biryani.")

	_, text = post(t, r, webhookBody(removeIntent, "s1", map[string]any{
		"FoodItem-AddOrder": []string{"Vegetable Biryani"},
	}))
	assert.Contains(t, text, "Removed 1 Vegetable Biryani from your order!")
	assert.Contains(t, text, "Here is what is left in your order: 2 Pizza")

	_, text = post(t, r, webhookBody(completeIntent, "s1", nil))
	assert.Contains(t, text, "order id # 1")
	assert.Contains(t, text, "Your order total is 16.00")

	_, text = post(t, r, webhookBody(completeIntent, "s1", nil))
	assert.Contains(t, text, "Couldn't find your order")

	_, text = post(t, r, webhookBody(trackIntent, "s1", map[string]any{"number": 1}))
	assert.Equal(t, "The order status for order id: 1 is: in progress", text)

	_, text = post(t, r, webhookBody(cancelIntent, "s1", map[string]any{"number": 1}))
	assert.Equal(t, "Order 1 has been successfully canceled.", text)

	_, text = post(t, r, webhookBody(cancelIntent, "s1", map[string]any{"number": 1}))
	assert.Equal(t, "Order 1 cannot be canceled as its status is 'canceled'.", text)

	_, text = post(t, r, webhookBody(trackIntent, "s1", map[string]any{"number": 2}))
	assert.Equal(t, "No order found with order id: 2", text)
}

func TestWebhookUnknownFoodItemKeepsOrder(t *testing.T) {
	r := newTestServer(t)

	post(t, r, webhookBody(addIntent, "s1", map[string]any{
		"FoodItem-AddOrder": []string{"Sushi"},
		"number":            []int{1},
	}))
	_, text := post(t, r, webhookBody(completeIntent, "s1", nil))
	assert.Contains(t, text, "we don't serve Sushi")

	_, text = post(t, r, webhookBody(newIntent, "s1", nil))
	assert.Contains(t, text, "Your previous order 1 Sushi has been cleared")
}

func TestWebhookSessionsAreIsolated(t *testing.T) {
	r := newTestServer(t)

	post(t, r, webhookBody(addIntent, "a", map[string]any{"FoodItem-AddOrder": []string{"Pizza"}, "number": []int{1}}))
	_, text := post(t, r, webhookBody(addIntent, "b", map[string]any{"FoodItem-AddOrder": []string{"Samosa"}, "number": []int{2}}))
	assert.Contains(t, text, "So far you have: 2 Samosa.")
}

func TestWebhookBadRequests(t *testing.T) {
	r := newTestServer(t)

	code, _ := post(t, r, `{"queryResult":{"intent":{"displayName":"3. NewOrder"}}}`)
	assert.Equal(t, http.StatusBadRequest, code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	code, text := post(t, r, webhookBody("Default Welcome Intent", "s1", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Sorry, I can't help with that request.", text)
}

func TestGetOrderStatus(t *testing.T) {
	r := newTestServer(t)
	post(t, r, webhookBody(addIntent, "s1", map[string]any{"FoodItem-AddOrder": []string{"Pizza"}, "number": []int{1}}))
	post(t, r, webhookBody(completeIntent, "s1", nil))

	cases := []struct {
		path string
		code int
	}{
		{"/api/orders/1", http.StatusOK},
		{"/api/orders/2", http.StatusNotFound},
		{"/api/orders/abc", http.StatusBadRequest},
		{"/api/orders/0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.code, w.Code, tc.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))
	var resp struct {
		Code int `json:"code"`
		Data struct {
			OrderID int64  `json:"order_id"`
			Status  string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(1), resp.Data.OrderID)
	assert.Equal(t, "in progress", resp.Data.Status)
}

func TestRequestIDPassthrough(t *testing.T) {
	r := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestWebhookOversizedQuantity(t *testing.T) {
	r := newTestServer(t)

	_, text := post(t, r, webhookBody(addIntent, "s1", map[string]any{
		"FoodItem-AddOrder": []string{"Pizza"},
		"number":            []float64{1e300},
	}))
	assert.Equal(t, "Sorry, I didn't get that. Please specify the quantities clearly.", text)

	_, text = post(t, r, webhookBody(completeIntent, "s1", nil))
	assert.Contains(t, text, "Couldn't find your order")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookRemoveMismatchWithoutOrder(t *testing.T) {
	r := newTestServer(t)

	_, text := post(t, r, webhookBody(removeIntent, "s1", map[string]any{
		"FoodItem-AddOrder": []string{"Pizza", "Samosa"},
		"number":            []int{1},
	}))
	assert.Contains(t, text, "trouble finding your order")
}
