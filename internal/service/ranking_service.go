package service

import (
	"errors"
	"sort"
	"strings"
	"time"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"

	"gorm.io/gorm"
)

// Ordering 是排行方式的枚举。
// 用枚举值映射到固定比较器，排序维度永远不以自由文本形式进入查询。
type Ordering int

const (
	// OrderingLatest 按创建时间倒序
	OrderingLatest Ordering = iota
	// OrderingPopular 按点赞数（唯一投票人基数）倒序
	OrderingPopular
	// OrderingTrending 按时间衰减的热度（每小时点赞率）倒序
	OrderingTrending
)

// ParseOrdering 解析请求中的排行方式。未知值返回 ErrInvalidInput。
func ParseOrdering(raw string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "latest":
		return OrderingLatest, nil
	case "popular":
		return OrderingPopular, nil
	case "trending":
		return OrderingTrending, nil
	default:
		return 0, ErrInvalidInput
	}
}

// millisPerHour 热度分数的缩放因子：点赞数换算成每小时点赞率。
const millisPerHour = 3600000

// RankingService 对已审核且未删除的提交做排序分页。
// 关键规则：
//  1. 候选集恒为 approvedAt 非空且未软删除的提交；可再按标签过滤。
//  2. now 每次调用只取一次，保证同一页内部排序自洽。
//  3. 先全量排序再做 offset/limit，连续翻页拼起来恰好是完整排序，
//     不重不漏（候选集在两次调用之间不变的前提下）。
//  4. viewerID 只用来标注 isUpvoted，不影响排序。
type RankingService interface {
	// Rank 返回一页排行。tagName 为空表示不过滤标签。
	Rank(ordering Ordering, tagName string, offset, limit int, viewerID *uint) ([]model.RankedSubmission, error)
}

type rankingService struct {
	submissionRepo repository.SubmissionRepository
	tagRepo        repository.TagRepository
	// now 可注入，便于测试固定时钟
	now func() time.Time
}

func NewRankingService(submissionRepo repository.SubmissionRepository, tagRepo repository.TagRepository) RankingService {
	return &rankingService{
		submissionRepo: submissionRepo,
		tagRepo:        tagRepo,
		now:            time.Now,
	}
}

func (s *rankingService) Rank(ordering Ordering, tagName string, offset, limit int, viewerID *uint) ([]model.RankedSubmission, error) {
	if s.submissionRepo == nil {
		return nil, ErrInternal
	}
	if limit <= 0 || offset < 0 {
		return nil, ErrInvalidInput
	}
	if ordering != OrderingLatest && ordering != OrderingPopular && ordering != OrderingTrending {
		return nil, ErrInvalidInput
	}

	candidates, err := s.submissionRepo.FindApprovedLive()
	if err != nil {
		return nil, err
	}

	tagName = strings.ToLower(strings.TrimSpace(tagName))
	if tagName != "" {
		candidates, err = s.filterByTag(candidates, tagName)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	ranked := make([]model.RankedSubmission, 0, len(candidates))
	for i := range candidates {
		entry := model.RankedSubmission{
			Submission:  candidates[i],
			UpvoteCount: len(candidates[i].Likes),
		}
		if viewerID != nil {
			for _, like := range candidates[i].Likes {
				if like.UserID == *viewerID {
					entry.IsUpvoted = true
					break
				}
			}
		}
		ranked = append(ranked, entry)
	}

	s.sortRanked(ranked, ordering, now)

	// 全量排序后再分页
	if offset >= len(ranked) {
		return []model.RankedSubmission{}, nil
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end], nil
}

// filterByTag 把候选集限制到与标签存在未删除关联的提交。
// 标签不存在报 ErrTagNotFound；标签存在但没有关联时返回空集，不是错误。
func (s *rankingService) filterByTag(candidates []model.Submission, tagName string) ([]model.Submission, error) {
	if s.tagRepo == nil {
		return nil, ErrInternal
	}

	tag, err := s.tagRepo.FindByName(tagName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	ids, err := s.tagRepo.FindSubmissionIDs(tag.ID)
	if err != nil {
		return nil, err
	}
	tagged := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		tagged[id] = struct{}{}
	}

	filtered := make([]model.Submission, 0, len(candidates))
	for i := range candidates {
		if _, ok := tagged[candidates[i].ID]; ok {
			filtered = append(filtered, candidates[i])
		}
	}
	return filtered, nil
}

// trendingScore 把点赞数换算成审核以来的每小时点赞率。
// 历史分母最小钳到 1 毫秒，防御 approvedAt 紧贴 now 时的除零。
func trendingScore(upvotes int, approvedAt *time.Time, now time.Time) float64 {
	if approvedAt == nil {
		return 0
	}
	elapsed := now.Sub(*approvedAt).Milliseconds()
	if elapsed < 1 {
		elapsed = 1
	}
	return float64(upvotes) * millisPerHour / float64(elapsed)
}

// sortRanked 按固定比较器做稳定排序，平手规则保证确定性：
//   - Latest:   createdAt 倒序，再按 id 升序
//   - Popular:  点赞数倒序，再按 createdAt 倒序，再按 id 升序
//   - Trending: 热度倒序，再按 createdAt 倒序，再按 id 升序
func (s *rankingService) sortRanked(ranked []model.RankedSubmission, ordering Ordering, now time.Time) {
	switch ordering {
	case OrderingLatest:
		sort.SliceStable(ranked, func(i, j int) bool {
			if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
				return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
			}
			return ranked[i].ID < ranked[j].ID
		})
	case OrderingPopular:
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].UpvoteCount != ranked[j].UpvoteCount {
				return ranked[i].UpvoteCount > ranked[j].UpvoteCount
			}
			if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
				return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
			}
			return ranked[i].ID < ranked[j].ID
		})
	case OrderingTrending:
		// 分数先写进条目再排序，比较器只读条目自身，元素换位不会错位。
		for i := range ranked {
			ranked[i].UpvotesPerHour = trendingScore(ranked[i].UpvoteCount, ranked[i].ApprovedAt, now)
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].UpvotesPerHour != ranked[j].UpvotesPerHour {
				return ranked[i].UpvotesPerHour > ranked[j].UpvotesPerHour
			}
			if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
				return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
			}
			return ranked[i].ID < ranked[j].ID
		})
	}
}
