package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL, "test-token", 1)
}

// TestClient_UnwrapsEnvelope 成功响应解包 data 字段
func TestClient_UnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// 校验认证头
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.Header.Get("New-API-User"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "",
			"data":    map[string]string{"name": "ch-1"},
			"total":   42,
		})
	})

	var data struct {
		Name string `json:"name"`
	}
	env, err := c.Get(context.Background(), "/api/channel/", &data)
	require.NoError(t, err)
	assert.Equal(t, "ch-1", data.Name)
	assert.Equal(t, int64(42), env.Total)
}

// TestClient_BusinessFailure success:false 转换为 APIError，消息原样保留
func TestClient_BusinessFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "渠道不存在",
		})
	})

	_, err := c.Get(context.Background(), "/api/channel/", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "渠道不存在", apiErr.Message)
}

// TestClient_StatusClassification 传输层错误按状态码分类
func TestClient_StatusClassification(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrSessionExpired},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusInternalServerError, ErrServer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := c.Get(context.Background(), "/", nil)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// TestClient_OtherStatusCarriesMessage 其它状态码带上服务端消息
func TestClient_OtherStatusCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "无权访问",
		})
	})

	_, err := c.Get(context.Background(), "/", nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "无权访问")
}

// TestClient_ContextCancel 上下文取消时请求终止
func TestClient_ContextCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "/", nil)
	assert.Error(t, err)
}

// TestClient_PutSendsJSONBody PUT 请求体序列化为 JSON
func TestClient_PutSendsJSONBody(t *testing.T) {
	var received map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	_, err := c.Put(context.Background(), "/api/option/",
		map[string]string{"key": "QuotaForNewUser", "value": "100"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "QuotaForNewUser", received["key"])
	assert.Equal(t, "100", received["value"])
}
