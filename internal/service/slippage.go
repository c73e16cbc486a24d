package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"etstrade.com/internal/domain"
	"etstrade.com/internal/model"
)

// SlippageService 按价格区间查执行缓冲比例
type SlippageService struct {
	db *gorm.DB
}

var _ domain.SlippageProvider = (*SlippageService)(nil)

func NewSlippageService(db *gorm.DB) *SlippageService {
	return &SlippageService{db: db}
}

// ForPrice 返回包含 price 的 [min, max) 区间的比例，无匹配时取默认值
func (s *SlippageService) ForPrice(ctx context.Context, price float64) (float64, error) {
	var band model.Slippage
	err := s.db.WithContext(ctx).
		Where("minimum_price <= ? AND maximum_price > ?", price, price).
		Order("minimum_price").
		First(&band).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.SlippageDefault, nil
	}
	if err != nil {
		return 0, err
	}
	return band.Slippage, nil
}
