// Package gateway 支付网关的 HTTP 客户端实现与访问令牌缓存
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wyfcoding/scholarpay/internal/payment/domain"
	"github.com/wyfcoding/scholarpay/pkg/config"
	"github.com/wyfcoding/scholarpay/pkg/errs"
	"github.com/wyfcoding/scholarpay/pkg/metrics"
)

// 订单在网关侧的有效期（秒），合同固定值
const orderExpirySeconds = 1800

// applicationTag 随订单透传给网关的业务标记
const applicationTag = "SCHOLARSHIP_APPLICATION"

// endpoints 网关端点前缀，由环境静态选择
type endpoints struct {
	// 令牌端点前缀
	authBaseURL string
	// 下单/查单端点前缀
	baseURL string
}

// endpointsFor 按环境返回端点，环境合法性已在配置校验时保证
func endpointsFor(env string) endpoints {
	if env == "production" {
		return endpoints{
			authBaseURL: "https://api.phonepe.com/apis/identity-manager",
			baseURL:     "https://api.phonepe.com/apis/pg",
		}
	}
	return endpoints{
		authBaseURL: "https://api-preprod.phonepe.com/apis/pg-sandbox",
		baseURL:     "https://api-preprod.phonepe.com/apis/pg-sandbox",
	}
}

// Client 支付网关客户端
type Client struct {
	httpClient *http.Client
	endpoints  endpoints

	clientID      string
	clientSecret  string
	clientVersion string
	merchantID    string

	metrics *metrics.Metrics
}

// NewClient 创建网关客户端，所有调用共享一个带超时的 http.Client
func NewClient(cfg config.GatewayConfig, m *metrics.Metrics) *Client {
	return newClient(cfg, m, endpointsFor(cfg.Env))
}

func newClient(cfg config.GatewayConfig, m *metrics.Metrics, eps endpoints) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		endpoints:     eps,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		clientVersion: cfg.ClientVersion,
		merchantID:    cfg.MerchantID,
		metrics:       m,
	}
}

// TokenResult 令牌交换结果
type TokenResult struct {
	AccessToken string
	TokenType   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IssuedAt    int64  `json:"issued_at"`
	ExpiresAt   int64  `json:"expires_at"`
}

// ExchangeToken 执行 client-credentials 令牌交换
func (c *Client) ExchangeToken(ctx context.Context) (*TokenResult, error) {
	c.metrics.GatewayRequestsTotal.Inc()

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("client_version", c.clientVersion)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoints.authBaseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Auth("failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Auth("token exchange request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Auth("failed to read token response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Auth(fmt.Sprintf("token endpoint returned status %d", resp.StatusCode), nil)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Auth("malformed token response", err)
	}
	if tr.AccessToken == "" {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Auth("token response missing access_token", nil)
	}

	return &TokenResult{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		IssuedAt:    time.Unix(tr.IssuedAt, 0),
		ExpiresAt:   time.Unix(tr.ExpiresAt, 0),
	}, nil
}

type metaInfo struct {
	UDF1 string `json:"udf1"`
	UDF2 string `json:"udf2"`
	UDF3 string `json:"udf3"`
	UDF4 string `json:"udf4"`
	UDF5 string `json:"udf5"`
}

type merchantURLs struct {
	RedirectURL string `json:"redirectUrl"`
}

type paymentFlow struct {
	Type         string       `json:"type"`
	Message      string       `json:"message,omitempty"`
	MerchantURLs merchantURLs `json:"merchantUrls"`
}

type createOrderRequest struct {
	MerchantOrderID string      `json:"merchantOrderId"`
	Amount          int64       `json:"amount"`
	ExpireAfter     int64       `json:"expireAfter"`
	MetaInfo        metaInfo    `json:"metaInfo"`
	PaymentFlow     paymentFlow `json:"paymentFlow"`
}

type createOrderResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	ExpireAt    int64  `json:"expireAt"`
	RedirectURL string `json:"redirectUrl"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// CreateOrder 实现 domain.Gateway.CreateOrder
func (c *Client) CreateOrder(ctx context.Context, token string, params domain.CreateOrderParams) (*domain.GatewayOrder, error) {
	c.metrics.GatewayRequestsTotal.Inc()

	payload := createOrderRequest{
		MerchantOrderID: params.MerchantOrderID,
		Amount:          params.Amount,
		ExpireAfter:     orderExpirySeconds,
		MetaInfo: metaInfo{
			UDF1: params.ApplicationID,
			UDF2: params.ApplicantName,
			UDF3: params.ApplicantEmail,
			UDF4: params.ApplicantPhone,
			UDF5: applicationTag,
		},
		PaymentFlow: paymentFlow{
			Type:    "PE_CHECKOUT",
			Message: "Scholarship application fee",
			MerchantURLs: merchantURLs{
				RedirectURL: params.RedirectURL,
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Gateway("", "failed to marshal order payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoints.baseURL+"/checkout/v2/pay", bytes.NewReader(data))
	if err != nil {
		return nil, errs.Gateway("", "failed to build order request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Gateway("", "order creation request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Gateway("", "failed to read order response", err)
	}

	var or createOrderResponse
	if err := json.Unmarshal(body, &or); err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Gateway("", "malformed order response", err)
	}

	// 响应必须同时包含 redirectUrl 和 orderId，缺一视为下单失败
	if or.OrderID == "" || or.RedirectURL == "" {
		c.metrics.GatewayErrorsTotal.Inc()
		message := or.Message
		if message == "" {
			message = fmt.Sprintf("gateway rejected order (status %d)", resp.StatusCode)
		}
		return nil, errs.Gateway(or.Code, message, nil)
	}

	return &domain.GatewayOrder{
		OrderID:     or.OrderID,
		RedirectURL: or.RedirectURL,
		State:       or.State,
		ExpireAt:    or.ExpireAt,
		Raw:         json.RawMessage(body),
	}, nil
}

type orderStatusResponse struct {
	State   string `json:"state"`
	OrderID string `json:"orderId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OrderStatus 实现 domain.Gateway.OrderStatus
func (c *Client) OrderStatus(ctx context.Context, token string, merchantOrderID string) (*domain.GatewayOrderStatus, error) {
	c.metrics.GatewayRequestsTotal.Inc()

	statusURL := fmt.Sprintf("%s/checkout/v2/order/%s/status?details=true&errorContext=true",
		c.endpoints.baseURL, url.PathEscape(merchantOrderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, errs.Gateway("", "failed to build status request", err)
	}
	req.Header.Set("Authorization", "O-Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Gateway("", "order status request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Gateway("", "failed to read status response", err)
	}

	var sr orderStatusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		c.metrics.GatewayErrorsTotal.Inc()
		return nil, errs.Gateway("", "malformed status response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || sr.State == "" {
		c.metrics.GatewayErrorsTotal.Inc()
		message := sr.Message
		if message == "" {
			message = fmt.Sprintf("gateway status query failed (status %d)", resp.StatusCode)
		}
		return nil, errs.Gateway(sr.Code, message, nil)
	}

	return &domain.GatewayOrderStatus{
		State:   sr.State,
		OrderID: sr.OrderID,
		Raw:     json.RawMessage(body),
	}, nil
}
