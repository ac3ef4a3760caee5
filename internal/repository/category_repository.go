package repository

import (
	"errors"
	"fmt"
	"quant_bench_go/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrCategoryHasChildren 表示分类下仍有子节点，禁止直接删除。
	ErrCategoryHasChildren = errors.New("category has children")
)

// CategoryRepository 定义分类的持久化操作接口。
// 分类是树形结构，通过 ParentID 实现父子关系；IsDataSet 区分平台树和数据集树。
type CategoryRepository interface {
	Create(category *model.Category) error
	FindByID(id uint) (*model.Category, error)
	FindAll() ([]model.Category, error)
	// FindChildren 返回直接子节点，按创建顺序（主键升序）。
	FindChildren(parentID uint) ([]model.Category, error)
	// FindRoots 返回指定树（平台/数据集）的所有根节点。
	FindRoots(isDataSet bool) ([]model.Category, error)
	FindRootsByArchitecture(architectureID uint) ([]model.Category, error)
	FindRootsByProvider(providerID uint) ([]model.Category, error)
	FindByName(name string) (*model.Category, error)
	// Update 更新分类信息（name, full_name, description, url, parent_id,
	// architecture_id, provider_id）
	Update(category *model.Category) error

	// Delete 保护删除：有子节点则返回 ErrCategoryHasChildren。
	// 使用事务保证"检查子节点 + 删除"的原子性。
	Delete(id uint) error
}

// categoryRepository 分类仓库实现
type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("category is nil")
	}
	return r.db.Create(category).Error
}

func (r *categoryRepository) FindByID(id uint) (*model.Category, error) {
	if id == 0 {
		return nil, fmt.Errorf("category id is required")
	}

	var category model.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindAll() ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Order("id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindChildren(parentID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Where("parent_id = ?", parentID).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindRoots(isDataSet bool) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Where("parent_id IS NULL AND is_data_set = ?", isDataSet).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindRootsByArchitecture(architectureID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Where("parent_id IS NULL AND is_data_set = ? AND architecture_id = ?", false, architectureID).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindRootsByProvider(providerID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Where("parent_id IS NULL AND is_data_set = ? AND provider_id = ?", false, providerID).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindByName(name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Update 更新分类字段。使用 Select 限定更新列，避免零值覆盖其他字段。
// 如果 ID 不存在，返回 gorm.ErrRecordNotFound。
func (r *categoryRepository) Update(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("category is nil")
	}
	if category.ID == 0 {
		return fmt.Errorf("category id is required")
	}

	tx := r.db.Model(&model.Category{}).
		Where("id = ?", category.ID).
		Select("name", "full_name", "description", "url", "parent_id", "architecture_id", "provider_id").
		Updates(category)

	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 保护删除：在事务中先确认记录存在、再检查是否有子节点、最后执行删除。
// 有子节点时返回 ErrCategoryHasChildren，调用方可据此提示用户先处理子节点。
func (r *categoryRepository) Delete(id uint) error {
	if id == 0 {
		return fmt.Errorf("category id is required")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		// 先确认记录存在
		var current model.Category
		if err := tx.First(&current, id).Error; err != nil {
			return err
		}

		// 保护删除：有子节点则拒绝
		var childCount int64
		if err := tx.Model(&model.Category{}).
			Where("parent_id = ?", id).
			Count(&childCount).Error; err != nil {
			return err
		}
		if childCount > 0 {
			return ErrCategoryHasChildren
		}

		res := tx.Delete(&model.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
