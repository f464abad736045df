package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrSessionExpired 登录态失效（401），调用方应引导重新登录
	ErrSessionExpired = errors.New("session expired")
	// ErrRateLimited 请求过于频繁（429），不自动重试
	ErrRateLimited = errors.New("rate limited")
	// ErrServer 服务端内部错误（500）
	ErrServer = errors.New("server error")
)

// StatusError 其它非 2xx 响应，携带服务端返回的消息
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// APIError 业务失败（success:false），Message 原样展示给用户
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Envelope 统一响应信封
// 所有后端接口均返回 {success, message, data}，分页接口附带 total/page/page_size
type Envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Total    int64           `json:"total,omitempty"`
	Page     int             `json:"page,omitempty"`
	PageSize int             `json:"page_size,omitempty"`
}

// Client 网关 API 客户端
// 不配置超时也不做重试，每次失败都终结本次操作，由用户手动重试
type Client struct {
	baseURL     string
	accessToken string
	userID      int
	httpClient  *http.Client
}

// New 创建 Client 实例
func New(baseURL, accessToken string, userID int) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		userID:      userID,
		httpClient:  &http.Client{},
	}
}

// SetHTTPClient 替换底层 HTTP 客户端（测试用）
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Do 发送请求并解包信封
// body 非 nil 时序列化为 JSON；success:false 转换为 *APIError
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*Envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("New-API-User", strconv.Itoa(c.userID))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if !env.Success {
		return &env, &APIError{Message: env.Message}
	}
	return &env, nil
}

// classifyStatus 按状态码分类传输层错误
// 分类只用于用户提示，没有任何重试/退避策略
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrSessionExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusInternalServerError:
		return ErrServer
	default:
		msg := ""
		var env Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil {
			msg = env.Message
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
}

// Get 发送 GET 请求，data 非 nil 时将 data 字段反序列化进去
func (c *Client) Get(ctx context.Context, path string, data interface{}) (*Envelope, error) {
	env, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return env, err
	}
	return env, decodeData(env, data)
}

// Post 发送 POST 请求
func (c *Client) Post(ctx context.Context, path string, body, data interface{}) (*Envelope, error) {
	env, err := c.Do(ctx, http.MethodPost, path, body)
	if err != nil {
		return env, err
	}
	return env, decodeData(env, data)
}

// Put 发送 PUT 请求
func (c *Client) Put(ctx context.Context, path string, body, data interface{}) (*Envelope, error) {
	env, err := c.Do(ctx, http.MethodPut, path, body)
	if err != nil {
		return env, err
	}
	return env, decodeData(env, data)
}

// Delete 发送 DELETE 请求
func (c *Client) Delete(ctx context.Context, path string, data interface{}) (*Envelope, error) {
	env, err := c.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return env, err
	}
	return env, decodeData(env, data)
}

// decodeData 将信封中的 data 字段反序列化到目标对象
func decodeData(env *Envelope, data interface{}) error {
	if data == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("解析 data 字段失败: %w", err)
	}
	return nil
}
