package model

import (
	"time"

	"gorm.io/gorm"
)

// Tag 对应数据库中 tags 表。Name 存 trim+小写后的规范名，全局唯一。
type Tag struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定 GORM 使用的表名
func (Tag) TableName() string {
	return "tags"
}

// SubmissionTagRef 对应 submission_tag_refs 表，提交与标签的多对多关联。
// 关联自身可软删除，与 SubmissionCategoryRef 采用同一套规则。
type SubmissionTagRef struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionID uint           `gorm:"not null;index" json:"submissionId"`
	TagID        uint           `gorm:"not null;index" json:"tagId"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (SubmissionTagRef) TableName() string {
	return "submission_tag_refs"
}
