package model

import (
	"time"

	"gorm.io/gorm"
)

// Result 对应数据库中 results 表，表示提交下的一条测量结果。
// 每条结果归属于一个提交，并通过 CategoryID 归属到恰好一个分类；
// 结果自身可软删除，且所属提交被软删除时结果隐式不可见（组合存活规则）。
type Result struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint           `gorm:"not null" json:"userId"`
	SubmissionID   uint           `gorm:"not null;index" json:"submissionId"`
	CategoryID     uint           `gorm:"not null;index" json:"categoryId"`
	MetricName     string         `gorm:"type:varchar(255);not null" json:"metricName"`
	MetricValue    float64        `gorm:"not null" json:"metricValue"`
	IsHigherBetter bool           `gorm:"not null" json:"isHigherBetter"`
	EvaluatedAt    *time.Time     `json:"evaluatedAt"`
	Notes          string         `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (Result) TableName() string {
	return "results"
}
