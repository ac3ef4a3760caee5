package repository

import (
	"errors"
	"fmt"
	"quant_bench_go/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrRefAlreadyExists 表示同一 (submission, category) 已存在未删除的引用。
	ErrRefAlreadyExists = errors.New("submission category ref already exists")
)

// SubmissionCategoryRefRepository 定义提交-分类引用的持久化操作接口。
// 引用规则：
//  1. 同一 (submission, category) 同时最多一条未删除引用。
//  2. 删除是软删除；再次添加创建新行，不复活旧行。
//  3. FindByCategoryIDs 走默认作用域，只返回自身标记未删除的引用；
//     与所属提交的组合存活判断交给 service 层的存活账本。
type SubmissionCategoryRefRepository interface {
	// Create 创建引用。已有未删除的同键引用时返回 ErrRefAlreadyExists。
	Create(ref *model.SubmissionCategoryRef) error
	FindLiveByFks(submissionID, categoryID uint) (*model.SubmissionCategoryRef, error)
	// FindByCategoryIDs 返回目标分类在给定集合内、自身未删除的全部引用。
	FindByCategoryIDs(categoryIDs []uint) ([]model.SubmissionCategoryRef, error)
	FindBySubmissionID(submissionID uint) ([]model.SubmissionCategoryRef, error)
	SoftDelete(id uint) error
}

type submissionCategoryRefRepository struct {
	db *gorm.DB
}

func NewSubmissionCategoryRefRepository(db *gorm.DB) SubmissionCategoryRefRepository {
	return &submissionCategoryRefRepository{db: db}
}

// Create 在事务中先查未删除的同键引用，存在则拒绝，否则插入新行。
func (r *submissionCategoryRefRepository) Create(ref *model.SubmissionCategoryRef) error {
	if ref == nil {
		return fmt.Errorf("ref is nil")
	}
	if ref.SubmissionID == 0 || ref.CategoryID == 0 {
		return fmt.Errorf("submission id and category id are required")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.SubmissionCategoryRef
		err := tx.Where("submission_id = ? AND category_id = ?", ref.SubmissionID, ref.CategoryID).
			First(&existing).Error
		if err == nil {
			return ErrRefAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(ref).Error
	})
}

func (r *submissionCategoryRefRepository) FindLiveByFks(submissionID, categoryID uint) (*model.SubmissionCategoryRef, error) {
	var ref model.SubmissionCategoryRef
	if err := r.db.Where("submission_id = ? AND category_id = ?", submissionID, categoryID).
		First(&ref).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *submissionCategoryRefRepository) FindByCategoryIDs(categoryIDs []uint) ([]model.SubmissionCategoryRef, error) {
	if len(categoryIDs) == 0 {
		return []model.SubmissionCategoryRef{}, nil
	}

	var refs []model.SubmissionCategoryRef
	if err := r.db.Where("category_id IN ?", categoryIDs).Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *submissionCategoryRefRepository) FindBySubmissionID(submissionID uint) ([]model.SubmissionCategoryRef, error) {
	var refs []model.SubmissionCategoryRef
	if err := r.db.Where("submission_id = ?", submissionID).Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *submissionCategoryRefRepository) SoftDelete(id uint) error {
	if id == 0 {
		return fmt.Errorf("ref id is required")
	}

	res := r.db.Delete(&model.SubmissionCategoryRef{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
