package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nmalenkov/storefront/internal/models"
	"github.com/nmalenkov/storefront/internal/payment"
	"github.com/nmalenkov/storefront/internal/transport"
)

func orderBody(items ...transport.CreateOrderItem) transport.CreateOrderRequest {
	return transport.CreateOrderRequest{
		Items:           items,
		ShippingName:    "Shopper",
		ShippingAddress: "1 Main St",
		ShippingPhone:   "+100000000",
	}
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "shopper@example.com", "password123", models.RoleUser)
	prod := createProduct(t, env, "Classic Tee", 19, 10)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 3})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	asUser(c, user.ID, models.RoleUser)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp.OrderID)
	require.Equal(t, "tok_test", resp.PaymentToken)
	require.Empty(t, resp.GuestKey)

	var stored models.Order
	require.NoError(t, env.DB.Preload("Items").First(&stored, resp.OrderID).Error)
	require.Equal(t, models.OrderStatusPending, stored.Status)
	require.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	require.Len(t, stored.Items, 1)
	require.Equal(t, "57", stored.Total.String())

	var fresh models.Product
	require.NoError(t, env.DB.First(&fresh, prod.ID).Error)
	require.EqualValues(t, 7, fresh.Stock)
}

func TestCreateOrderGuest(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 10)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 1})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.GuestKey)

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, resp.OrderID).Error)
	require.Nil(t, stored.UserID)
	require.Equal(t, resp.GuestKey, stored.GuestKey)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 3)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 5})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Insufficient stock"}`, rec.Body.String())

	// nothing was persisted, stock untouched
	var orders int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)

	var fresh models.Product
	require.NoError(t, env.DB.First(&fresh, prod.ID).Error)
	require.EqualValues(t, 3, fresh.Stock)
}

func TestCreateOrderPartialInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ok := createProduct(t, env, "Canvas Tote", 12.50, 10)
	low := createProduct(t, env, "Enamel Mug", 9.90, 1)

	body := orderBody(
		transport.CreateOrderItem{ProductID: ok.ID, Quantity: 2},
		transport.CreateOrderItem{ProductID: low.ID, Quantity: 2},
	)
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// the first line's decrement must not survive the rollback
	var fresh models.Product
	require.NoError(t, env.DB.First(&fresh, ok.ID).Error)
	require.EqualValues(t, 10, fresh.Stock)
}

func TestCreateOrderVariantPricing(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 100,
		models.Variant{Name: "L", Price: decimal.NewFromInt(21), Stock: 5},
	)
	variantID := prod.Variants[0].ID

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, VariantID: &variantID, Quantity: 2})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, resp.OrderID).Error)
	require.Equal(t, "42", stored.Total.String())

	// the variant counter moves, the product aggregate does not
	var variant models.Variant
	require.NoError(t, env.DB.First(&variant, variantID).Error)
	require.EqualValues(t, 3, variant.Stock)

	var fresh models.Product
	require.NoError(t, env.DB.First(&fresh, prod.ID).Error)
	require.EqualValues(t, 100, fresh.Stock)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	body := orderBody(transport.CreateOrderItem{ProductID: 999, Quantity: 1})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderGatewayDown(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 10)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)
	env.OrderSvc.Gateway = payment.NewClient(down.URL, testServerKey)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 4})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// the order row stays for diagnosis, marked failed, stock returned
	var stored models.Order
	require.NoError(t, env.DB.First(&stored).Error)
	require.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)

	var fresh models.Product
	require.NoError(t, env.DB.First(&fresh, prod.ID).Error)
	require.EqualValues(t, 10, fresh.Stock)
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "shopper@example.com", "password123", models.RoleUser)
	other := createUser(t, env, "other@example.com", "password123", models.RoleUser)
	prod := createProduct(t, env, "Classic Tee", 19, 100)

	for _, uid := range []uint{user.ID, user.ID, other.ID} {
		body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 1})
		rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
		asUser(c, uid, models.RoleUser)
		env.serve(c, rec, env.Orders.CreateOrder)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/orders", nil)
	asUser(c, user.ID, models.RoleUser)
	env.serve(c, rec, env.Orders.ListOrders)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
}

func TestGetOrderNotOwned(t *testing.T) {
	env := newTestEnv(t)
	owner := createUser(t, env, "owner@example.com", "password123", models.RoleUser)
	stranger := createUser(t, env, "stranger@example.com", "password123", models.RoleUser)
	prod := createProduct(t, env, "Classic Tee", 19, 100)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 1})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	asUser(c, owner.ID, models.RoleUser)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// the row exists but reads as not found for anyone else
	rec2, c2 := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/orders/%d", created.OrderID), nil)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(created.OrderID))
	asUser(c2, stranger.ID, models.RoleUser)
	env.serve(c2, rec2, env.Orders.GetOrder)
	require.Equal(t, http.StatusNotFound, rec2.Code)

	rec3, c3 := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/orders/%d", created.OrderID), nil)
	c3.SetParamNames("id")
	c3.SetParamValues(fmt.Sprint(created.OrderID))
	asUser(c3, owner.ID, models.RoleUser)
	env.serve(c3, rec3, env.Orders.GetOrder)
	require.Equal(t, http.StatusOK, rec3.Code)
}

func TestGetGuestOrder(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 100)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 1})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/orders/guest/%d?key=%s", created.OrderID, created.GuestKey)
	rec2, c2 := env.doJSONRequest(http.MethodGet, path, nil)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(created.OrderID))
	env.serve(c2, rec2, env.Orders.GetGuestOrder)
	require.Equal(t, http.StatusOK, rec2.Code)

	// a wrong key reads as not found
	path = fmt.Sprintf("/api/orders/guest/%d?key=wrong", created.OrderID)
	rec3, c3 := env.doJSONRequest(http.MethodGet, path, nil)
	c3.SetParamNames("id")
	c3.SetParamValues(fmt.Sprint(created.OrderID))
	env.serve(c3, rec3, env.Orders.GetGuestOrder)
	require.Equal(t, http.StatusNotFound, rec3.Code)

	// and so does a missing key
	path = fmt.Sprintf("/api/orders/guest/%d", created.OrderID)
	rec4, c4 := env.doJSONRequest(http.MethodGet, path, nil)
	c4.SetParamNames("id")
	c4.SetParamValues(fmt.Sprint(created.OrderID))
	env.serve(c4, rec4, env.Orders.GetGuestOrder)
	require.Equal(t, http.StatusNotFound, rec4.Code)
}

func TestWebhookSettlement(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 10)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 2})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	n := signedNotification(created.OrderID, payment.StatusSettlement)
	rec2, c2 := env.doJSONRequest(http.MethodPost, "/api/payments/webhook", n)
	env.serve(c2, rec2, env.Payments.Webhook)
	require.Equal(t, http.StatusOK, rec2.Code)

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, created.OrderID).Error)
	require.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	require.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestWebhookDenyRestocks(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 10)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 4})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	n := signedNotification(created.OrderID, payment.StatusDeny)
	rec2, c2 := env.doJSONRequest(http.MethodPost, "/api/payments/webhook", n)
	env.serve(c2, rec2, env.Payments.Webhook)
	require.Equal(t, http.StatusOK, rec2.Code)

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, created.OrderID).Error)
	require.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
	require.Equal(t, models.OrderStatusCancelled, stored.Status)

	var fresh models.Product
	require.NoError(t, env.DB.First(&fresh, prod.ID).Error)
	require.EqualValues(t, 10, fresh.Stock)

	// a retried notification is a no-op, stock is not returned twice
	rec3, c3 := env.doJSONRequest(http.MethodPost, "/api/payments/webhook", n)
	env.serve(c3, rec3, env.Payments.Webhook)
	require.Equal(t, http.StatusOK, rec3.Code)

	require.NoError(t, env.DB.First(&fresh, prod.ID).Error)
	require.EqualValues(t, 10, fresh.Stock)
}

func TestWebhookBadSignature(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 10)

	body := orderBody(transport.CreateOrderItem{ProductID: prod.ID, Quantity: 1})
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders", body)
	env.serve(c, rec, env.Orders.CreateOrder)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created transport.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	n := signedNotification(created.OrderID, payment.StatusSettlement)
	n.SignatureKey = "forged"
	rec2, c2 := env.doJSONRequest(http.MethodPost, "/api/payments/webhook", n)
	env.serve(c2, rec2, env.Payments.Webhook)
	require.Equal(t, http.StatusForbidden, rec2.Code)

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, created.OrderID).Error)
	require.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestWebhookUnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	n := signedNotification(424242, payment.StatusSettlement)
	rec, c := env.doJSONRequest(http.MethodPost, "/api/payments/webhook", n)
	env.serve(c, rec, env.Payments.Webhook)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func signedNotification(orderID uint, status string) payment.Notification {
	n := payment.Notification{
		OrderID:           fmt.Sprint(orderID),
		StatusCode:        "200",
		GrossAmount:       "0.00",
		TransactionStatus: status,
	}
	n.SignatureKey = payment.Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}
