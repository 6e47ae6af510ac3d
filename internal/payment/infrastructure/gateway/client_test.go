package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wyfcoding/scholarpay/internal/payment/domain"
	"github.com/wyfcoding/scholarpay/pkg/config"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/metrics"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.GatewayConfig{
		Env:           "sandbox",
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
		ClientVersion: "1",
		MerchantID:    "M1",
		Timeout:       5,
	}
	return newClient(cfg, metrics.New("gateway_test"), endpoints{
		authBaseURL: srv.URL,
		baseURL:     srv.URL,
	})
}

func TestExchangeToken(t *testing.T) {
	issued := time.Now().Unix()
	expires := issued + 3600

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/oauth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-1" || pass != "secret-1" {
			t.Errorf("missing or wrong basic auth: %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("client_id"); got != "client-1" {
			t.Errorf("client_id = %q", got)
		}
		fmt.Fprintf(w, `{"access_token":"tok-1","token_type":"O-Bearer","issued_at":%d,"expires_at":%d}`, issued, expires)
	}))

	result, err := client.ExchangeToken(context.Background())
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if result.AccessToken != "tok-1" {
		t.Errorf("access token = %q", result.AccessToken)
	}
	if result.ExpiresAt.Unix() != expires {
		t.Errorf("expires at = %v", result.ExpiresAt)
	}
}

func TestExchangeTokenFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad credentials"}`},
		{"missing access_token", http.StatusOK, `{"token_type":"O-Bearer"}`},
		{"malformed body", http.StatusOK, `not json`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))

			_, err := client.ExchangeToken(context.Background())
			if errs.KindOf(err) != errs.KindAuth {
				t.Fatalf("expected auth error, got %v", err)
			}
		})
	}
}

func orderParams() domain.CreateOrderParams {
	return domain.CreateOrderParams{
		MerchantOrderID: "MO_1",
		Amount:          50000,
		ApplicationID:   "SCH1",
		ApplicantName:   "Asha Kumari",
		ApplicantEmail:  "asha@example.org",
		ApplicantPhone:  "9876543210",
		RedirectURL:     "https://pay.example.org/return?merchantOrderId=MO_1",
	}
}

func TestCreateOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/v2/pay" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "O-Bearer tok-1" {
			t.Errorf("authorization = %q", got)
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if req.MerchantOrderID != "MO_1" || req.Amount != 50000 {
			t.Errorf("unexpected order payload: %+v", req)
		}
		if req.ExpireAfter != 1800 {
			t.Errorf("expireAfter = %d", req.ExpireAfter)
		}
		if req.MetaInfo.UDF1 != "SCH1" || req.MetaInfo.UDF5 != "SCHOLARSHIP_APPLICATION" {
			t.Errorf("unexpected metaInfo: %+v", req.MetaInfo)
		}
		if req.PaymentFlow.Type != "PE_CHECKOUT" {
			t.Errorf("paymentFlow type = %q", req.PaymentFlow.Type)
		}
		if req.PaymentFlow.MerchantURLs.RedirectURL != "https://pay.example.org/return?merchantOrderId=MO_1" {
			t.Errorf("redirectUrl = %q", req.PaymentFlow.MerchantURLs.RedirectURL)
		}

		fmt.Fprint(w, `{"orderId":"OMO1","state":"PENDING","expireAt":1767024000000,"redirectUrl":"https://mercury.example/pay"}`)
	}))

	order, err := client.CreateOrder(context.Background(), "tok-1", orderParams())
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.OrderID != "OMO1" || order.RedirectURL != "https://mercury.example/pay" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.State != "PENDING" {
		t.Errorf("state = %q", order.State)
	}
}

func TestCreateOrderIncomplete(t *testing.T) {
	// orderId 和 redirectUrl 必须同时出现
	cases := []struct {
		name string
		body string
	}{
		{"missing redirectUrl", `{"orderId":"OMO1","state":"PENDING"}`},
		{"missing orderId", `{"redirectUrl":"https://mercury.example/pay","state":"PENDING"}`},
		{"gateway rejection", `{"code":"DUPLICATE_TXN","message":"order already exists"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			}))

			_, err := client.CreateOrder(context.Background(), "tok-1", orderParams())
			if errs.KindOf(err) != errs.KindGateway {
				t.Fatalf("expected gateway error, got %v", err)
			}
		})
	}
}

func TestCreateOrderUpstreamCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":"INVALID_MERCHANT","message":"merchant is blocked"}`)
	}))

	_, err := client.CreateOrder(context.Background(), "tok-1", orderParams())
	e, ok := err.(*errs.Error)
	if !ok {
		t.Fatalf("expected *errs.Error, got %T", err)
	}
	if e.UpstreamCode != "INVALID_MERCHANT" {
		t.Errorf("upstream code = %q", e.UpstreamCode)
	}
	if e.Message != "merchant is blocked" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestOrderStatus(t *testing.T) {
	raw := `{"state":"COMPLETED","orderId":"OMO1","paymentDetails":[{"transactionId":"T1"}]}`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/v2/order/MO_1/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("details") != "true" || q.Get("errorContext") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "O-Bearer tok-1" {
			t.Errorf("authorization = %q", got)
		}
		fmt.Fprint(w, raw)
	}))

	status, err := client.OrderStatus(context.Background(), "tok-1", "MO_1")
	if err != nil {
		t.Fatalf("order status failed: %v", err)
	}
	if status.State != "COMPLETED" || status.OrderID != "OMO1" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if string(status.Raw) != raw {
		t.Errorf("raw response not preserved: %s", status.Raw)
	}
}

func TestOrderStatusGatewayError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"ORDER_NOT_FOUND","message":"no such order"}`)
	}))

	_, err := client.OrderStatus(context.Background(), "tok-1", "MO_404")
	if errs.KindOf(err) != errs.KindGateway {
		t.Fatalf("expected gateway error, got %v", err)
	}
}
