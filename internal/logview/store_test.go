package logview_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/gatewaytest"
	"github.com/sakurapi/newapi-console/internal/logview"
	"github.com/sakurapi/newapi-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLogTestEnv(t *testing.T, selfOnly bool) (*gatewaytest.Server, *logview.Store) {
	gw := gatewaytest.New()
	ts := httptest.NewServer(gw.Router())
	t.Cleanup(ts.Close)
	return gw, logview.NewStore(client.New(ts.URL, "", 1), 10, selfOnly)
}

func seedLogs(gw *gatewaytest.Server, count int) {
	for i := 1; i <= count; i++ {
		logType := models.LogTypeConsume
		if i%5 == 0 {
			logType = models.LogTypeTopup
		}
		gw.Logs = append(gw.Logs, &models.Log{
			ID:        i,
			Type:      logType,
			Username:  "alice",
			ModelName: "gpt-4o",
			Quota:     int64(i * 100),
			CreatedAt: int64(1700000000 + i),
		})
	}
}

func TestStore_LoadPage_Paged(t *testing.T) {
	gw, store := setupLogTestEnv(t, false)
	seedLogs(gw, 13)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0, logview.Filters{}))
	assert.Len(t, store.Items(), 10)
	require.NoError(t, store.LoadPage(ctx, 1, logview.Filters{}))
	assert.Len(t, store.Items(), 13)
	assert.Equal(t, int64(13), store.List().TotalEstimate())
}

// TestStore_LoadPage_TypeFilter 按日志类型过滤
func TestStore_LoadPage_TypeFilter(t *testing.T) {
	gw, store := setupLogTestEnv(t, false)
	seedLogs(gw, 13)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0, logview.Filters{Type: models.LogTypeTopup}))
	for _, l := range store.Items() {
		assert.Equal(t, models.LogTypeTopup, l.Type)
	}
	assert.Len(t, store.Items(), 2)
}

func TestStore_Stat(t *testing.T) {
	gw, store := setupLogTestEnv(t, false)
	gw.Logs = append(gw.Logs,
		&models.Log{ID: 1, Quota: 300},
		&models.Log{ID: 2, Quota: 200},
	)

	stat, err := store.Stat(context.Background(), logview.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(500), stat.Quota)
}

// TestStore_Purge 清理早于目标时间戳的日志并返回删除条数
func TestStore_Purge(t *testing.T) {
	gw, store := setupLogTestEnv(t, false)
	gw.Logs = append(gw.Logs,
		&models.Log{ID: 1, CreatedAt: 100},
		&models.Log{ID: 2, CreatedAt: 200},
		&models.Log{ID: 3, CreatedAt: 300},
	)

	removed, err := store.Purge(context.Background(), 250)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Len(t, gw.Logs, 1)
	assert.Equal(t, 3, gw.Logs[0].ID)
}

// TestStore_SelfOnly 普通用户视图走 self 路径，忽略 username 过滤
func TestStore_SelfOnly(t *testing.T) {
	gw, store := setupLogTestEnv(t, true)
	gw.Logs = append(gw.Logs,
		&models.Log{ID: 1, Username: "alice"},
		&models.Log{ID: 2, Username: "bob"},
	)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0, logview.Filters{Username: "alice"}))
	assert.Len(t, store.Items(), 2)
}
