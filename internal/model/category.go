package model

import "time"

// Category 对应数据库中 categories 表，表示平台/数据集分类节点。
// 分类支持树形结构，通过 ParentID 指向父级分类实现层级关系；
// IsDataSet 把整个森林划分成平台树和数据集树两部分。
// 分类本身不做软删除：删除走保护删除（有子节点则拒绝），由 repository 层保证。
type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint   `gorm:"not null;index" json:"userId"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	FullName    string `gorm:"type:varchar(255);not null" json:"fullName"`
	Description string `gorm:"type:text" json:"description"`
	URL         string `gorm:"type:varchar(512)" json:"url"`
	// ParentID 为空表示根节点。使用指针以区分"根节点"和"挂在 id=0 下"。
	ParentID  *uint `gorm:"index" json:"parentId"`
	IsDataSet bool  `gorm:"not null;default:false;index" json:"isDataSet"`
	// ArchitectureID/ProviderID 仅用于顶层列表的过滤查询，不参与层级聚合。
	ArchitectureID *uint     `gorm:"index" json:"architectureId"`
	ProviderID     *uint     `gorm:"index" json:"providerId"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定 GORM 使用的表名
func (Category) TableName() string {
	return "categories"
}

// AnnotatedCategory 是带聚合计数的分类视图，用于顶层列表响应。
// 与 Category（数据库模型）的区别：
//   - 增加了 SubmissionCount/ResultCount/UpvoteTotal 三个沿子树向上卷积的计数
//   - 增加了 IsSubscribed，仅在请求方已登录时有意义
type AnnotatedCategory struct {
	Category
	SubmissionCount int  `json:"submissionCount"`
	ResultCount     int  `json:"resultCount"`
	UpvoteTotal     int  `json:"upvoteTotal"`
	IsSubscribed    bool `json:"isSubscribed"`
}

// CategoryNode 是分类的树形节点，用于构建前端需要的树形结构响应。
type CategoryNode struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	FullName  string          `json:"fullName"`
	ParentID  *uint           `json:"parentId"`
	IsDataSet bool            `json:"isDataSet"`
	Children  []*CategoryNode `json:"children"`
}

// CategoryDetail 是单个分类的详情视图：节点自身 + 父节点 + 直接子节点 + 聚合计数。
type CategoryDetail struct {
	Category
	Parent          *Category  `json:"parent"`
	Children        []Category `json:"children"`
	SubmissionCount int        `json:"submissionCount"`
	ResultCount     int        `json:"resultCount"`
	UpvoteTotal     int        `json:"upvoteTotal"`
	IsSubscribed    bool       `json:"isSubscribed"`
}

// CategorySubscription 对应 category_subscriptions 表，表示用户订阅了某个分类。
// (UserID, CategoryID) 唯一，订阅为开关语义：再次订阅即取消，行被物理删除。
type CategorySubscription struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:uniq_category_subscription" json:"userId"`
	CategoryID uint      `gorm:"not null;uniqueIndex:uniq_category_subscription" json:"categoryId"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定 GORM 使用的表名
func (CategorySubscription) TableName() string {
	return "category_subscriptions"
}
