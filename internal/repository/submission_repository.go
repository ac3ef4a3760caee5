package repository

import (
	"fmt"
	"quant_bench_go/internal/model"
	"time"

	"gorm.io/gorm"
)

// SubmissionRepository 定义提交的持久化操作接口。
// 软删除约定：
//  1. 默认查询走 GORM 的 DeletedAt 作用域，只返回自身标记未删除的记录。
//  2. FindByIDsUnscoped 专供存活账本使用，带出软删除标记本身。
type SubmissionRepository interface {
	Create(submission *model.Submission) error
	FindByID(id uint) (*model.Submission, error)
	FindByNameNormal(nameNormal string) (*model.Submission, error)
	// FindApprovedLive 返回所有已审核且未删除的提交，预加载点赞集合。
	// 这是排行引擎的候选集查询。
	FindApprovedLive() ([]model.Submission, error)
	FindByUserID(userID uint) ([]model.Submission, error)
	// FindByIDsUnscoped 按 id 集合取记录，不过滤软删除标记。
	FindByIDsUnscoped(ids []uint) ([]model.Submission, error)
	// SearchApprovedLive 名称/描述的模糊搜索，候选集同 FindApprovedLive。
	// 未配置 Elasticsearch 时搜索服务回退到这里。
	SearchApprovedLive(query string, limit int) ([]model.Submission, error)
	// Update 更新提交信息（description, thumbnail_url）
	Update(submission *model.Submission) error
	// Approve 设置审核通过时间。已审核的提交重复审核是幂等的。
	Approve(id uint, approvedAt time.Time) error
	// SoftDelete 设置软删除标记，记录不物理删除。
	SoftDelete(id uint) error

	// ToggleLike 按投票人幂等开关点赞：已点赞则删行，未点赞则插行。
	// 使用事务保证"查重 + 写入"的原子性。返回开关后的点赞状态。
	ToggleLike(submissionID, userID uint) (liked bool, err error)
	// LikeCounts 返回各提交当前的点赞数（唯一投票人基数）。
	LikeCounts(submissionIDs []uint) (map[uint]int, error)
}

// submissionRepository 提交仓库实现
type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(submission *model.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission is nil")
	}
	return r.db.Create(submission).Error
}

func (r *submissionRepository) FindByID(id uint) (*model.Submission, error) {
	if id == 0 {
		return nil, fmt.Errorf("submission id is required")
	}

	var submission model.Submission
	if err := r.db.Preload("Likes").First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) FindByNameNormal(nameNormal string) (*model.Submission, error) {
	var submission model.Submission
	if err := r.db.Where("name_normal = ?", nameNormal).First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) FindApprovedLive() ([]model.Submission, error) {
	var submissions []model.Submission
	if err := r.db.Preload("Likes").
		Where("approved_at IS NOT NULL").
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) FindByUserID(userID uint) ([]model.Submission, error) {
	var submissions []model.Submission
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) FindByIDsUnscoped(ids []uint) ([]model.Submission, error) {
	if len(ids) == 0 {
		return []model.Submission{}, nil
	}

	var submissions []model.Submission
	if err := r.db.Unscoped().Where("id IN ?", ids).Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) SearchApprovedLive(query string, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + query + "%"
	var submissions []model.Submission
	if err := r.db.Preload("Likes").
		Where("approved_at IS NOT NULL AND (name LIKE ? OR description LIKE ?)", pattern, pattern).
		Order("id ASC").
		Limit(limit).
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) Update(submission *model.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission is nil")
	}
	if submission.ID == 0 {
		return fmt.Errorf("submission id is required")
	}

	tx := r.db.Model(&model.Submission{}).
		Where("id = ?", submission.ID).
		Select("description", "thumbnail_url").
		Updates(submission)

	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) Approve(id uint, approvedAt time.Time) error {
	if id == 0 {
		return fmt.Errorf("submission id is required")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var current model.Submission
		if err := tx.First(&current, id).Error; err != nil {
			return err
		}
		if current.ApprovedAt != nil {
			// 已审核：保持首次审核时间不变
			return nil
		}
		return tx.Model(&model.Submission{}).
			Where("id = ?", id).
			Update("approved_at", approvedAt).Error
	})
}

func (r *submissionRepository) SoftDelete(id uint) error {
	if id == 0 {
		return fmt.Errorf("submission id is required")
	}

	res := r.db.Delete(&model.Submission{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleLike 点赞开关。(submission_id, user_id) 上有唯一索引，
// 事务内"查重 + 写入"，并发重复点赞最终也只会留下一行。
func (r *submissionRepository) ToggleLike(submissionID, userID uint) (bool, error) {
	if submissionID == 0 || userID == 0 {
		return false, fmt.Errorf("submission id and user id are required")
	}

	liked := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.SubmissionLike
		err := tx.Where("submission_id = ? AND user_id = ?", submissionID, userID).
			First(&existing).Error
		if err == nil {
			// 已点赞：取消，物理删除该行
			return tx.Delete(&model.SubmissionLike{}, existing.ID).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		liked = true
		return tx.Create(&model.SubmissionLike{
			SubmissionID: submissionID,
			UserID:       userID,
		}).Error
	})
	return liked, err
}

func (r *submissionRepository) LikeCounts(submissionIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return counts, nil
	}

	type row struct {
		SubmissionID uint
		Total        int
	}
	var rows []row
	if err := r.db.Model(&model.SubmissionLike{}).
		Select("submission_id, COUNT(*) as total").
		Where("submission_id IN ?", submissionIDs).
		Group("submission_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, v := range rows {
		counts[v.SubmissionID] = v.Total
	}
	return counts, nil
}
