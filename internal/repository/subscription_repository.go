package repository

import (
	"errors"
	"fmt"
	"quant_bench_go/internal/model"

	"gorm.io/gorm"
)

// SubscriptionRepository 定义分类订阅的持久化操作接口。
// 订阅是开关语义：Toggle 在事务中查重后插入或物理删除。
type SubscriptionRepository interface {
	FindByFks(userID, categoryID uint) (*model.CategorySubscription, error)
	// Toggle 开关订阅，返回开关后的订阅状态。
	Toggle(userID, categoryID uint) (subscribed bool, err error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) FindByFks(userID, categoryID uint) (*model.CategorySubscription, error) {
	var sub model.CategorySubscription
	if err := r.db.Where("user_id = ? AND category_id = ?", userID, categoryID).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Toggle(userID, categoryID uint) (bool, error) {
	if userID == 0 || categoryID == 0 {
		return false, fmt.Errorf("user id and category id are required")
	}

	subscribed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.CategorySubscription
		err := tx.Where("user_id = ? AND category_id = ?", userID, categoryID).
			First(&existing).Error
		if err == nil {
			return tx.Delete(&model.CategorySubscription{}, existing.ID).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		subscribed = true
		return tx.Create(&model.CategorySubscription{
			UserID:     userID,
			CategoryID: categoryID,
		}).Error
	})
	return subscribed, err
}
