package redemption_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/gatewaytest"
	"github.com/sakurapi/newapi-console/internal/models"
	"github.com/sakurapi/newapi-console/internal/redemption"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedemptionTestEnv(t *testing.T) (*gatewaytest.Server, *redemption.Store) {
	gw := gatewaytest.New()
	ts := httptest.NewServer(gw.Router())
	t.Cleanup(ts.Close)
	return gw, redemption.NewStore(client.New(ts.URL, "", 1), 10)
}

// TestStore_Create_ReturnsKeys 批量生成返回兑换码明文
func TestStore_Create_ReturnsKeys(t *testing.T) {
	_, store := setupRedemptionTestEnv(t)
	ctx := context.Background()

	keys, err := store.Create(ctx, redemption.CreateRequest{Name: "promo", Quota: 5000, Count: 3})
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	require.NoError(t, store.LoadPage(ctx, 0))
	assert.Len(t, store.Items(), 3)
}

func TestStore_Create_Validation(t *testing.T) {
	_, store := setupRedemptionTestEnv(t)
	ctx := context.Background()

	_, err := store.Create(ctx, redemption.CreateRequest{Name: "", Count: 1})
	assert.ErrorIs(t, err, redemption.ErrNameRequired)

	_, err = store.Create(ctx, redemption.CreateRequest{Name: "promo", Count: 0})
	assert.ErrorIs(t, err, redemption.ErrInvalidCount)
}

// TestStore_Update_UsedIsRejected 已使用的兑换码由服务端拒绝修改
func TestStore_Update_UsedIsRejected(t *testing.T) {
	gw, store := setupRedemptionTestEnv(t)
	gw.Redemptions = append(gw.Redemptions, &models.Redemption{
		ID: 1, Name: "used", Status: models.RedemptionStatusUsed,
	})
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	err := store.SetStatus(ctx, 1, models.RedemptionStatusDisabled)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	// 本地状态未被污染
	assert.Equal(t, models.RedemptionStatusUsed, store.Items()[0].Status)
}

func TestStore_Delete(t *testing.T) {
	gw, store := setupRedemptionTestEnv(t)
	gw.Redemptions = append(gw.Redemptions, &models.Redemption{ID: 1, Name: "promo"})
	ctx := context.Background()

	require.NoError(t, store.LoadPage(ctx, 0))
	require.NoError(t, store.Delete(ctx, 1))
	assert.Len(t, store.Items(), 0)
}
