package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etstrade.com/internal/model"
)

func TestForPriceBandLookup(t *testing.T) {
	svc := NewSlippageService(newTestDB(t))
	require.NoError(t, svc.db.Create(&[]model.Slippage{
		{MinimumPrice: 0, MaximumPrice: 10, Slippage: 0.01},
		{MinimumPrice: 10, MaximumPrice: 1000, Slippage: 0.005},
	}).Error)
	ctx := context.Background()

	slip, err := svc.ForPrice(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.01, slip)

	// 区间左闭右开
	slip, err = svc.ForPrice(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.005, slip)

	// 无匹配区间时落回默认值
	slip, err = svc.ForPrice(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, model.SlippageDefault, slip)
}
