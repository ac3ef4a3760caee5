package repository

import (
	"errors"
	"fmt"
	"quant_bench_go/internal/model"

	"gorm.io/gorm"
)

// TagRepository 定义标签及提交-标签关联的持久化操作接口。
// 标签名统一存规范名（trim+小写），规范化在 service 层完成。
type TagRepository interface {
	FindByName(name string) (*model.Tag, error)
	// CreateOrFetch 按名字取标签，不存在则创建。
	CreateOrFetch(name string) (*model.Tag, error)
	// FindSubmissionIDs 返回与标签存在未删除关联的提交 id 集合。
	FindSubmissionIDs(tagID uint) ([]uint, error)
	CreateRef(submissionID, tagID uint) error
	FindRefByFks(submissionID, tagID uint) (*model.SubmissionTagRef, error)
	SoftDeleteRef(id uint) error
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) FindByName(name string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) CreateOrFetch(name string) (*model.Tag, error) {
	if name == "" {
		return nil, fmt.Errorf("tag name is required")
	}

	tag, err := r.FindByName(name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &model.Tag{Name: name}
	if err := r.db.Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

func (r *tagRepository) FindSubmissionIDs(tagID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.SubmissionTagRef{}).
		Where("tag_id = ?", tagID).
		Pluck("submission_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateRef 创建提交-标签关联。已有未删除的同键关联时是幂等的。
func (r *tagRepository) CreateRef(submissionID, tagID uint) error {
	if submissionID == 0 || tagID == 0 {
		return fmt.Errorf("submission id and tag id are required")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.SubmissionTagRef
		err := tx.Where("submission_id = ? AND tag_id = ?", submissionID, tagID).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&model.SubmissionTagRef{
			SubmissionID: submissionID,
			TagID:        tagID,
		}).Error
	})
}

func (r *tagRepository) FindRefByFks(submissionID, tagID uint) (*model.SubmissionTagRef, error) {
	var ref model.SubmissionTagRef
	if err := r.db.Where("submission_id = ? AND tag_id = ?", submissionID, tagID).
		First(&ref).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *tagRepository) SoftDeleteRef(id uint) error {
	if id == 0 {
		return fmt.Errorf("ref id is required")
	}

	res := r.db.Delete(&model.SubmissionTagRef{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
