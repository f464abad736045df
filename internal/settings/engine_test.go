package settings_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/gatewaytest"
	"github.com/sakurapi/newapi-console/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEngineTestEnv(t *testing.T) (*gatewaytest.Server, *settings.Engine) {
	gw := gatewaytest.New()
	ts := httptest.NewServer(gw.Router())
	t.Cleanup(ts.Close)

	return gw, settings.NewEngine(client.New(ts.URL, "", 1))
}

func TestEngine_Submit_MinimalDiff(t *testing.T) {
	gw, engine := setupEngineTestEnv(t)
	gw.Options["QuotaForNewUser"] = "0"
	gw.Options["DisplayInCurrencyEnabled"] = "true"
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	engine.Set("QuotaForNewUser", "100")

	result, err := engine.Submit(ctx, []string{"QuotaForNewUser", "DisplayInCurrencyEnabled"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	// 只对变化的 key 发请求
	assert.Equal(t, []string{"QuotaForNewUser"}, result.Submitted)
	assert.Equal(t, 1, gw.PutCount["/api/option/"])
	assert.Equal(t, "100", gw.Options["QuotaForNewUser"])
}

// TestEngine_Submit_NothingChanged 整组无变化时零请求
func TestEngine_Submit_NothingChanged(t *testing.T) {
	gw, engine := setupEngineTestEnv(t)
	gw.Options["QuotaForNewUser"] = "0"
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	result, err := engine.Submit(ctx, []string{"QuotaForNewUser"})
	require.NoError(t, err)
	assert.True(t, result.NothingChanged)
	assert.Equal(t, 0, gw.PutCount["/api/option/"])
}

// TestEngine_Submit_BaselineRefreshOnSuccess 全部成功后 baseline 刷新，
// 再次提交同一组视为无变化
func TestEngine_Submit_BaselineRefreshOnSuccess(t *testing.T) {
	gw, engine := setupEngineTestEnv(t)
	gw.Options["QuotaForNewUser"] = "0"
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	engine.Set("QuotaForNewUser", "100")

	result, err := engine.Submit(ctx, []string{"QuotaForNewUser"})
	require.NoError(t, err)
	require.True(t, result.OK())

	result, err = engine.Submit(ctx, []string{"QuotaForNewUser"})
	require.NoError(t, err)
	assert.True(t, result.NothingChanged)
}

// TestEngine_Submit_InvalidJSONAborts JSON 配置项校验失败时中止整组，不发请求
func TestEngine_Submit_InvalidJSONAborts(t *testing.T) {
	gw, engine := setupEngineTestEnv(t)
	gw.Options["ModelRatio"] = "{}"
	gw.Options["QuotaForNewUser"] = "0"
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	engine.Set("ModelRatio", "{not json")
	engine.Set("QuotaForNewUser", "100")

	_, err := engine.Submit(ctx, []string{"ModelRatio", "QuotaForNewUser"})
	var invalid *settings.InvalidJSONError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "ModelRatio", invalid.Key)
	assert.Equal(t, 0, gw.PutCount["/api/option/"])
}

// TestEngine_Submit_PartialFailureKeepsBaseline 有失败时 baseline 保持陈旧，
// 重试会重新算出同样的差量
func TestEngine_Submit_PartialFailureKeepsBaseline(t *testing.T) {
	gw, engine := setupEngineTestEnv(t)
	gw.Options["KeyA"] = "1"
	gw.Options["KeyB"] = "1"
	gw.FailOptionKeys["KeyB"] = "配置项被锁定"
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	engine.Set("KeyA", "2")
	engine.Set("KeyB", "2")

	result, err := engine.Submit(ctx, []string{"KeyA", "KeyB"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, "配置项被锁定", result.Failed["KeyB"])

	// 编辑稿不回滚，重试时差量不变
	assert.Equal(t, []string{"KeyA", "KeyB"}, engine.Changed([]string{"KeyA", "KeyB"}))
}

// TestEngine_SetBool 布尔统一序列化为字面量 "true"/"false"
func TestEngine_SetBool(t *testing.T) {
	gw, engine := setupEngineTestEnv(t)
	gw.Options["RegisterEnabled"] = "true"
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	engine.SetBool("RegisterEnabled", false)

	result, err := engine.Submit(ctx, []string{"RegisterEnabled"})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, "false", gw.Options["RegisterEnabled"])
}
