package handler

import (
	"net/http"
	"strconv"

	"quant_bench_go/internal/service"
	"quant_bench_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 负责分类（平台/数据集）相关 HTTP 接口。
// 列表接口匿名可访问；创建/更新/删除/订阅由路由组挂载的认证中间件保护。
type CategoryHandler struct {
	categoryService service.CategoryService
}

func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRequest 是创建/更新分类的请求体。
// parentId 使用指针以区分"没传该字段"和"显式传根节点"两种情况。
type CategoryRequest struct {
	Name           string `json:"name" binding:"required"`
	FullName       string `json:"fullName"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	ParentID       *uint  `json:"parentId"`
	IsDataSet      bool   `json:"isDataSet"`
	ArchitectureID *uint  `json:"architectureId"`
	ProviderID     *uint  `json:"providerId"`
}

func (r CategoryRequest) toParams() service.CategoryParams {
	return service.CategoryParams{
		Name:           r.Name,
		FullName:       r.FullName,
		Description:    r.Description,
		URL:            r.URL,
		ParentID:       r.ParentID,
		IsDataSet:      r.IsDataSet,
		ArchitectureID: r.ArchitectureID,
		ProviderID:     r.ProviderID,
	}
}

// List 返回顶层分类列表（带聚合计数，空分类已被过滤）。
// 查询参数：isDataSet 选择平台树或数据集树；architectureId/providerId
// 是互斥的顶层过滤条件。
func (h *CategoryHandler) List(c *gin.Context) {
	viewerID := viewerIDFromContext(c)

	if raw := c.Query("architectureId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": "Invalid architectureId",
			})
			return
		}
		h.respondList(c, func() (interface{}, error) {
			return h.categoryService.ListTopLevelByArchitecture(uint(id), viewerID)
		})
		return
	}

	if raw := c.Query("providerId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": "Invalid providerId",
			})
			return
		}
		h.respondList(c, func() (interface{}, error) {
			return h.categoryService.ListTopLevelByProvider(uint(id), viewerID)
		})
		return
	}

	isDataSet := c.DefaultQuery("isDataSet", "false") == "true"
	h.respondList(c, func() (interface{}, error) {
		return h.categoryService.ListTopLevel(isDataSet, viewerID)
	})
}

func (h *CategoryHandler) respondList(c *gin.Context, fetch func() (interface{}, error)) {
	data, err := fetch()
	if err != nil {
		log.Warnf("CategoryHandler.List: %v", err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Categories retrieved successfully",
		"data":    data,
	})
}

// GetTree 返回整棵分类树。
func (h *CategoryHandler) GetTree(c *gin.Context) {
	isDataSet := c.DefaultQuery("isDataSet", "false") == "true"

	tree, err := h.categoryService.GetTree(isDataSet)
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Category tree retrieved successfully",
		"data":    tree,
	})
}

// Get 返回单个分类详情（父节点、子节点、聚合计数）。
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.categoryService.GetDetail(id, viewerIDFromContext(c))
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Category retrieved successfully",
		"data":    detail,
	})
}

// Create 创建分类。
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	category, err := h.categoryService.Submit(user.ID, req.toParams())
	if err != nil {
		log.Warnf("CategoryHandler.Create: failed to create category: %v", err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Category created successfully",
		"data":    category,
	})
}

// Update 更新分类（改名/改父/改分类属性）。
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	category, err := h.categoryService.Update(id, req.toParams())
	if err != nil {
		log.Warnf("CategoryHandler.Update: failed to update category %d: %v", id, err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Category updated successfully",
		"data":    category,
	})
}

// Delete 保护删除：有子节点的分类拒绝删除。
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(id); err != nil {
		log.Warnf("CategoryHandler.Delete: failed to delete category %d: %v", id, err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Category deleted successfully",
	})
}

// Subscribe 开关当前用户对分类的订阅。
func (h *CategoryHandler) Subscribe(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	subscribed, err := h.categoryService.Subscribe(id, user.ID)
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Subscription toggled successfully",
		"data":    gin.H{"isSubscribed": subscribed},
	})
}

// SubmissionRefRequest 是挂载/摘除提交引用的请求体。
type SubmissionRefRequest struct {
	SubmissionID uint `json:"submissionId" binding:"required"`
}

// AddSubmissionRef 把提交挂到分类下。
func (h *CategoryHandler) AddSubmissionRef(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmissionRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	if err := h.categoryService.AddSubmissionRef(id, req.SubmissionID, user.ID); err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Submission added to category",
	})
}

// RemoveSubmissionRef 摘除提交与分类的引用。
func (h *CategoryHandler) RemoveSubmissionRef(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmissionRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid request body",
		})
		return
	}

	if _, ok := getUserFromContext(c); !ok {
		return
	}

	if err := h.categoryService.RemoveSubmissionRef(id, req.SubmissionID); err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Submission removed from category",
	})
}
