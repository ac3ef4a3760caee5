package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/service"
	"quant_bench_go/pkg/database"
	"quant_bench_go/pkg/log"

	"github.com/gin-gonic/gin"
)

// rankPageCacheTTL 排行页缓存时间。排行是读多写少的热点查询，
// 短 TTL 缓存足够，不做主动失效。
const rankPageCacheTTL = 60 * time.Second

// SubmissionHandler 负责提交相关 HTTP 接口。
// 排行/详情匿名可访问；提交/点赞/打标签需要登录；审核仅限管理员路由组。
type SubmissionHandler struct {
	submissionService service.SubmissionService
	rankingService    service.RankingService
	resultService     service.ResultService
	searchService     service.SearchService
}

func NewSubmissionHandler(
	submissionService service.SubmissionService,
	rankingService service.RankingService,
	resultService service.ResultService,
	searchService service.SearchService,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		rankingService:    rankingService,
		resultService:     resultService,
		searchService:     searchService,
	}
}

// SubmitRequest 是创建提交的请求体。
type SubmitRequest struct {
	Name         string `json:"name" binding:"required"`
	ContentURL   string `json:"contentUrl" binding:"required"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Description  string `json:"description"`
	Tags         string `json:"tags"`
}

// UpdateSubmissionRequest 是更新提交的请求体。
type UpdateSubmissionRequest struct {
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// ResultRequest 是提交结果的请求体。
type ResultRequest struct {
	CategoryID     uint       `json:"categoryId" binding:"required"`
	MetricName     string     `json:"metricName" binding:"required"`
	MetricValue    float64    `json:"metricValue"`
	IsHigherBetter bool       `json:"isHigherBetter"`
	EvaluatedAt    *time.Time `json:"evaluatedAt"`
	Notes          string     `json:"notes"`
}

// TagRequest 是打/摘标签的请求体。
type TagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// Submit 创建提交。
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req SubmitRequest
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

	submission, err := h.submissionService.Submit(user.ID, service.SubmissionParams{
		Name:         req.Name,
		ContentURL:   req.ContentURL,
		ThumbnailURL: req.ThumbnailURL,
		Description:  req.Description,
		Tags:         req.Tags,
	})
	if err != nil {
		log.Warnf("SubmissionHandler.Submit: %v", err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Submission received and under review",
		"data":    submission,
	})
}

// Get 返回单个提交（带点赞数和当前用户点赞状态）。
func (h *SubmissionHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	submission, err := h.submissionService.Get(id, viewerIDFromContext(c))
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
		"message": "Submission retrieved successfully",
		"data":    submission,
	})
}

// Update 更新提交描述/缩略图。
func (h *SubmissionHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateSubmissionRequest
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

	submission, err := h.submissionService.Update(id, req.Description, req.ThumbnailURL)
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
		"message": "Submission updated successfully",
		"data":    submission,
	})
}

// Approve 审核通过提交（管理员路由）。
func (h *SubmissionHandler) Approve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.submissionService.Approve(id); err != nil {
		log.Warnf("SubmissionHandler.Approve: failed to approve submission %d: %v", id, err)
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Submission approved successfully",
	})
}

// Delete 软删除提交（仅提交人本人）。
func (h *SubmissionHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	if err := h.submissionService.DeleteIfOwner(user.ID, id); err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Submission deleted successfully",
	})
}

// Upvote 点赞开关。
func (h *SubmissionHandler) Upvote(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	liked, count, err := h.submissionService.Upvote(id, user.ID)
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
		"message": "Upvote toggled successfully",
		"data":    gin.H{"isUpvoted": liked, "upvoteCount": count},
	})
}

// AddTag 给提交打标签。
func (h *SubmissionHandler) AddTag(c *gin.Context) {
	h.tagOp(c, h.submissionService.AddTag, "Tag added successfully")
}

// RemoveTag 摘除提交标签。
func (h *SubmissionHandler) RemoveTag(c *gin.Context) {
	h.tagOp(c, h.submissionService.RemoveTag, "Tag removed successfully")
}

func (h *SubmissionHandler) tagOp(c *gin.Context, op func(uint, string) error, okMsg string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req TagRequest
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

	if err := op(id, req.Tag); err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": okMsg,
	})
}

// SubmitResult 在提交下创建一条测量结果。
func (h *SubmissionHandler) SubmitResult(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ResultRequest
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

	result, err := h.resultService.Submit(user.ID, id, service.ResultParams{
		CategoryID:     req.CategoryID,
		MetricName:     req.MetricName,
		MetricValue:    req.MetricValue,
		IsHigherBetter: req.IsHigherBetter,
		EvaluatedAt:    req.EvaluatedAt,
		Notes:          req.Notes,
	})
	if err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Result created successfully",
		"data":    result,
	})
}

// ListResults 返回提交下的全部结果。
func (h *SubmissionHandler) ListResults(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	results, err := h.resultService.FindBySubmissionID(id)
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
		"message": "Results retrieved successfully",
		"data":    results,
	})
}

// DeleteResult 软删除一条结果。
func (h *SubmissionHandler) DeleteResult(c *gin.Context) {
	id, ok := parseIDParam(c, "resultId")
	if !ok {
		return
	}

	if _, ok := getUserFromContext(c); !ok {
		return
	}

	if err := h.resultService.Delete(id); err != nil {
		status, msg := mapServiceError(err)
		c.JSON(status, gin.H{
			"code":    status,
			"message": msg,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Result deleted successfully",
	})
}

// Rank 是三个排行接口（trending/latest/popular）的公共实现。
// 路径可选带 /tag/:name 过滤。匿名请求走 Redis 短 TTL 页缓存；
// 登录请求因为带 isUpvoted 标注，逐请求计算。
func (h *SubmissionHandler) Rank(orderingName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ordering, err := service.ParseOrdering(orderingName)
		if err != nil {
			status, msg := mapServiceError(err)
			c.JSON(status, gin.H{
				"code":    status,
				"message": msg,
			})
			return
		}

		offset, limit := parsePageQuery(c)
		tagName := c.Param("name")
		viewerID := viewerIDFromContext(c)

		var cacheKey string
		if viewerID == nil && database.RDB != nil {
			cacheKey = fmt.Sprintf("rank:%s:%s:%d:%d", orderingName, tagName, offset, limit)
			if cached, err := database.RDB.Get(c.Request.Context(), cacheKey).Result(); err == nil {
				var page []model.RankedSubmission
				if json.Unmarshal([]byte(cached), &page) == nil {
					c.JSON(http.StatusOK, gin.H{
						"code":    http.StatusOK,
						"message": "Submissions retrieved successfully",
						"data":    page,
					})
					return
				}
			}
		}

		page, err := h.rankingService.Rank(ordering, tagName, offset, limit, viewerID)
		if err != nil {
			log.Warnf("SubmissionHandler.Rank(%s): %v", orderingName, err)
			status, msg := mapServiceError(err)
			c.JSON(status, gin.H{
				"code":    status,
				"message": msg,
			})
			return
		}

		if cacheKey != "" {
			if encoded, err := json.Marshal(page); err == nil {
				// 缓存写失败不影响响应
				_ = database.RDB.Set(context.Background(), cacheKey, encoded, rankPageCacheTTL).Err()
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"code":    http.StatusOK,
			"message": "Submissions retrieved successfully",
			"data":    page,
		})
	}
}

// Search 全文检索已审核的提交。
func (h *SubmissionHandler) Search(c *gin.Context) {
	_, limit := parsePageQuery(c)

	submissions, err := h.searchService.Search(c.Query("q"), limit)
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
		"message": "Submissions retrieved successfully",
		"data":    submissions,
	})
}
