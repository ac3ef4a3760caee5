package repository

import (
	"fmt"
	"quant_bench_go/internal/model"

	"gorm.io/gorm"
)

// ResultRepository 定义测量结果的持久化操作接口。
// 结果通过 CategoryID 归属到恰好一个分类；自身可软删除。
type ResultRepository interface {
	Create(result *model.Result) error
	FindByID(id uint) (*model.Result, error)
	FindBySubmissionID(submissionID uint) ([]model.Result, error)
	// FindByCategoryIDs 返回归属分类在给定集合内、自身未删除的全部结果。
	FindByCategoryIDs(categoryIDs []uint) ([]model.Result, error)
	// CountLiveByFks 统计某提交在某分类下未删除的结果数。
	// 分类引用的删除保护需要该查询：还有结果在用的引用不允许摘除。
	CountLiveByFks(submissionID, categoryID uint) (int64, error)
	SoftDelete(id uint) error
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Create(result *model.Result) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if result.SubmissionID == 0 || result.CategoryID == 0 {
		return fmt.Errorf("submission id and category id are required")
	}
	return r.db.Create(result).Error
}

func (r *resultRepository) FindByID(id uint) (*model.Result, error) {
	if id == 0 {
		return nil, fmt.Errorf("result id is required")
	}

	var result model.Result
	if err := r.db.First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) FindBySubmissionID(submissionID uint) ([]model.Result, error) {
	var results []model.Result
	if err := r.db.Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) FindByCategoryIDs(categoryIDs []uint) ([]model.Result, error) {
	if len(categoryIDs) == 0 {
		return []model.Result{}, nil
	}

	var results []model.Result
	if err := r.db.Where("category_id IN ?", categoryIDs).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) CountLiveByFks(submissionID, categoryID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Result{}).
		Where("submission_id = ? AND category_id = ?", submissionID, categoryID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *resultRepository) SoftDelete(id uint) error {
	if id == 0 {
		return fmt.Errorf("result id is required")
	}

	res := r.db.Delete(&model.Result{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
