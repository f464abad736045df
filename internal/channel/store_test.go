package channel_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sakurapi/newapi-console/internal/channel"
	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/gatewaytest"
	"github.com/sakurapi/newapi-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStoreTestEnv 启动假网关并创建渠道控制器
func setupStoreTestEnv(t *testing.T, pageSize int) (*gatewaytest.Server, *channel.Store) {
	gw := gatewaytest.New()
	ts := httptest.NewServer(gw.Router())
	t.Cleanup(ts.Close)

	store := channel.NewStore(client.New(ts.URL, "", 1), pageSize)
	store.SetIDSort(true)
	return gw, store
}

// seedChannels 预置 n 个渠道，id 1..n
func seedChannels(gw *gatewaytest.Server, n int) {
	for i := 1; i <= n; i++ {
		gw.Channels = append(gw.Channels, &models.Channel{
			ID:       i,
			Name:     "ch",
			Status:   models.ChannelStatusEnabled,
			Priority: int64(i),
			Weight:   1,
			Group:    "default",
			Models:   "gpt-4o",
		})
	}
}

func TestStore_LoadPage_ReplaceAndSplice(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 13)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	assert.Equal(t, 10, store.List().Len())
	assert.Equal(t, int64(13), store.List().TotalEstimate())

	require.NoError(t, store.LoadPage(ctx, 1))
	assert.Equal(t, 13, store.List().Len())

	// 不重复不丢失
	seen := make(map[int]int)
	for _, ch := range store.List().Items() {
		seen[ch.ID]++
	}
	require.Len(t, seen, 13)
	for id, count := range seen {
		assert.Equal(t, 1, count, "channel %d", id)
	}
}

func TestStore_Search_ReplacesWholesale(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 5)
	gw.Channels[2].Name = "azure-east"
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	require.NoError(t, store.Search(ctx, "azure", "", ""))

	items := store.List().Items()
	require.Len(t, items, 1)
	assert.Equal(t, "azure-east", items[0].Name)
}

// TestStore_Search_EmptyMeansReload 条件全空的搜索等价于重新加载第 0 页
func TestStore_Search_EmptyMeansReload(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 5)
	ctx := context.Background()

	require.NoError(t, store.Search(ctx, "", "", ""))
	assert.Equal(t, 5, store.List().Len())
}

// TestStore_SetPriority_PatchesLocally 服务端确认后本地回填，不重新拉取
func TestStore_SetPriority_PatchesLocally(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 3)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	require.NoError(t, store.SetPriority(ctx, 2, 42))

	var got *models.Channel
	for _, ch := range store.List().Items() {
		if ch.ID == 2 {
			got = ch
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.Priority)
	assert.Equal(t, int64(42), gw.Channels[1].Priority)
	assert.Equal(t, 1, gw.PutCount["/api/channel/"])
}

func TestStore_Update_BusinessFailure(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 1)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	err := store.SetPriority(ctx, 999, 1)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	// 失败时本地状态保持不变
	assert.Equal(t, int64(1), store.List().Items()[0].Priority)
}

func TestStore_Delete_RemovesAfterConfirm(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 3)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	require.NoError(t, store.Delete(ctx, 2))

	assert.Equal(t, 2, store.List().Len())
	assert.Len(t, gw.Channels, 2)
}

func TestStore_BatchDelete(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 5)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	count, err := store.BatchDelete(ctx, []int{1, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 2, store.List().Len())
}

func TestStore_TagOps_MutateAllChildren(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 4)
	gw.Channels[0].Tag = "prod"
	gw.Channels[1].Tag = "prod"
	gw.Channels[0].Status = models.ChannelStatusDisabled
	gw.Channels[1].Status = models.ChannelStatusDisabled
	ctx := context.Background()

	store.SetTagMode(true)
	require.NoError(t, store.LoadPage(ctx, 0))
	require.NoError(t, store.EnableTag(ctx, "prod"))

	for _, ch := range store.List().Items() {
		if ch.Tag == "prod" {
			assert.Equal(t, models.ChannelStatusEnabled, ch.Status)
		}
	}
	// 聚合行跟着本地回填变化
	for _, row := range store.Rows() {
		if row.Kind == channel.RowGroup && row.Group.Tag == "prod" {
			assert.Equal(t, models.ChannelStatusEnabled, row.Group.Status)
		}
	}
}

func TestStore_EditTag_Reloads(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 3)
	gw.Channels[0].Tag = "prod"
	gw.Channels[1].Tag = "prod"
	ctx := context.Background()

	store.SetTagMode(true)
	require.NoError(t, store.LoadPage(ctx, 0))

	priority := int64(77)
	require.NoError(t, store.EditTag(ctx, channel.EditTagRequest{Tag: "prod", Priority: &priority}))

	// 批量编辑后整页刷新，拿到服务端的权威值
	for _, ch := range store.List().Items() {
		if ch.Tag == "prod" {
			assert.Equal(t, int64(77), ch.Priority)
		}
	}
}

func TestStore_Test_UpdatesResponseTime(t *testing.T) {
	gw, store := setupStoreTestEnv(t, 10)
	seedChannels(gw, 1)
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	result, err := store.Test(ctx, 1, "gpt-4o")
	require.NoError(t, err)
	assert.InDelta(t, 0.12, result.Time, 1e-9)

	ch := store.List().Items()[0]
	assert.Equal(t, 120, ch.ResponseTime)
	assert.NotZero(t, ch.TestTime)
}
