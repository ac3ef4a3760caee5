package model

import (
	"time"

	"gorm.io/gorm"
)

// Submission 对应数据库中 submissions 表，表示用户提交的条目。
// 生命周期要点：
//  1. NameNormal 是 trim+小写后的规范名，在未删除记录中全局唯一。
//  2. ApprovedAt 为空表示尚未通过审核；只有已审核且未删除的提交才可参与排行。
//  3. DeletedAt 是软删除标记，记录永不物理删除；所有聚合必须尊重该标记。
type Submission struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"userId"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	NameNormal   string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"nameNormal"`
	ContentURL   string         `gorm:"type:varchar(512);not null" json:"contentUrl"`
	ThumbnailURL *string        `gorm:"type:varchar(512)" json:"thumbnailUrl"`
	Description  string         `gorm:"type:text" json:"description"`
	ApprovedAt   *time.Time     `gorm:"index" json:"approvedAt"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Likes 是唯一投票人集合（不是计数）。按投票人幂等开关。
	Likes []SubmissionLike `gorm:"foreignKey:SubmissionID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (Submission) TableName() string {
	return "submissions"
}

// IsApproved 返回该提交是否已通过审核
func (s *Submission) IsApproved() bool {
	return s.ApprovedAt != nil
}

// SubmissionLike 对应 submission_likes 表，一行代表一个投票人。
// (SubmissionID, UserID) 唯一；点赞是开关语义，取消点赞物理删除该行。
// 软删除账本只覆盖 Submission/Result/CategoryRef，点赞行不在其列。
type SubmissionLike struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex:uniq_submission_like" json:"submissionId"`
	UserID       uint      `gorm:"not null;uniqueIndex:uniq_submission_like" json:"userId"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定 GORM 使用的表名
func (SubmissionLike) TableName() string {
	return "submission_likes"
}

// SubmissionCategoryRef 对应 submission_category_refs 表，
// 把一个提交挂到一个分类（平台或数据集）下。
// 关键规则：
//  1. 引用自身可软删除，独立于提交和分类的生命周期。
//  2. 同一 (submission, category) 同时最多只有一条未删除的引用。
//  3. 删除后再次添加会创建新行，而不是复活旧行。
type SubmissionCategoryRef struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionID uint           `gorm:"not null;index" json:"submissionId"`
	CategoryID   uint           `gorm:"not null;index" json:"categoryId"`
	UserID       uint           `gorm:"not null" json:"userId"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (SubmissionCategoryRef) TableName() string {
	return "submission_category_refs"
}

// RankedSubmission 是排行接口的响应条目。
// UpvoteCount 是唯一投票人集合的基数；IsUpvoted 仅在请求方已登录时有意义，
// 只做标注，不影响排序。
type RankedSubmission struct {
	Submission
	UpvoteCount int  `json:"upvoteCount"`
	IsUpvoted   bool `json:"isUpvoted"`
	// UpvotesPerHour 仅在 Trending 排序下填充：审核以来的每小时点赞率。
	UpvotesPerHour float64 `json:"upvotesPerHour,omitempty"`
}
