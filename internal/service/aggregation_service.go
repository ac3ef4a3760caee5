package service

import (
	"errors"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"

	"gorm.io/gorm"
)

// AggregationService 计算沿分类子树向上卷积的三类计数：
// 提交数、结果数、点赞数。给定分类的计数 = 闭包内每个节点直接挂载量之和，
// 因此任一节点的计数从叶子到根单调不减。
// 计数语义是"引用数"而不是"去重提交数"：同一提交如果（错误地）挂在
// 同一闭包内的两个分类上，会被算两次。
// 所有读取都经过存活账本过滤，软删除的引用/结果/提交贡献恒为零。
type AggregationService interface {
	CountSubmissions(categoryID uint) (int, error)
	CountResults(categoryID uint) (int, error)
	CountLikes(categoryID uint) (int, error)
	// Annotate 给分类列表补上三类计数（和可选的订阅标记），
	// 并过滤掉提交数为零的分类：空分类永远不出现在顶层浏览里。
	Annotate(categories []model.Category, viewerID *uint) ([]model.AnnotatedCategory, error)
}

type aggregationService struct {
	tree             CategoryTree
	ledger           LivenessLedger
	refRepo          repository.SubmissionCategoryRefRepository
	resultRepo       repository.ResultRepository
	submissionRepo   repository.SubmissionRepository
	subscriptionRepo repository.SubscriptionRepository
}

func NewAggregationService(
	tree CategoryTree,
	ledger LivenessLedger,
	refRepo repository.SubmissionCategoryRefRepository,
	resultRepo repository.ResultRepository,
	submissionRepo repository.SubmissionRepository,
	subscriptionRepo repository.SubscriptionRepository,
) AggregationService {
	return &aggregationService{
		tree:             tree,
		ledger:           ledger,
		refRepo:          refRepo,
		resultRepo:       resultRepo,
		submissionRepo:   submissionRepo,
		subscriptionRepo: subscriptionRepo,
	}
}

// liveRefsInClosure 取闭包内全部自身未删除的引用，再按所属提交的存活状态过滤。
func (s *aggregationService) liveRefsInClosure(categoryID uint) ([]model.SubmissionCategoryRef, error) {
	closure, err := s.tree.Closure(categoryID)
	if err != nil {
		return nil, err
	}

	refs, err := s.refRepo.FindByCategoryIDs(closure)
	if err != nil {
		return nil, err
	}

	submissionIDs := make([]uint, 0, len(refs))
	for i := range refs {
		submissionIDs = append(submissionIDs, refs[i].SubmissionID)
	}
	liveSubs, err := s.ledger.LiveSubmissionIDs(submissionIDs)
	if err != nil {
		return nil, err
	}

	live := make([]model.SubmissionCategoryRef, 0, len(refs))
	for i := range refs {
		if s.ledger.IsRefLive(&refs[i], liveSubs) {
			live = append(live, refs[i])
		}
	}
	return live, nil
}

func (s *aggregationService) CountSubmissions(categoryID uint) (int, error) {
	if s.tree == nil || s.ledger == nil || s.refRepo == nil {
		return 0, ErrInternal
	}

	live, err := s.liveRefsInClosure(categoryID)
	if err != nil {
		return 0, err
	}
	return len(live), nil
}

func (s *aggregationService) CountResults(categoryID uint) (int, error) {
	if s.tree == nil || s.ledger == nil || s.resultRepo == nil {
		return 0, ErrInternal
	}

	closure, err := s.tree.Closure(categoryID)
	if err != nil {
		return 0, err
	}

	results, err := s.resultRepo.FindByCategoryIDs(closure)
	if err != nil {
		return 0, err
	}

	submissionIDs := make([]uint, 0, len(results))
	for i := range results {
		submissionIDs = append(submissionIDs, results[i].SubmissionID)
	}
	liveSubs, err := s.ledger.LiveSubmissionIDs(submissionIDs)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range results {
		if s.ledger.IsResultLive(&results[i], liveSubs) {
			count++
		}
	}
	return count, nil
}

// CountLikes 点赞沿引用归属：闭包内每条活引用，
// 把它所指提交的点赞数整份计入（引用求和语义，和提交计数一致）。
func (s *aggregationService) CountLikes(categoryID uint) (int, error) {
	if s.tree == nil || s.ledger == nil || s.refRepo == nil || s.submissionRepo == nil {
		return 0, ErrInternal
	}

	live, err := s.liveRefsInClosure(categoryID)
	if err != nil {
		return 0, err
	}
	if len(live) == 0 {
		return 0, nil
	}

	submissionIDs := make([]uint, 0, len(live))
	for i := range live {
		submissionIDs = append(submissionIDs, live[i].SubmissionID)
	}
	likeCounts, err := s.submissionRepo.LikeCounts(submissionIDs)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range live {
		total += likeCounts[live[i].SubmissionID]
	}
	return total, nil
}

func (s *aggregationService) Annotate(categories []model.Category, viewerID *uint) ([]model.AnnotatedCategory, error) {
	if s.tree == nil || s.ledger == nil {
		return nil, ErrInternal
	}

	annotated := make([]model.AnnotatedCategory, 0, len(categories))
	for i := range categories {
		submissionCount, err := s.CountSubmissions(categories[i].ID)
		if err != nil {
			return nil, err
		}
		// 空分类不对外展示，也不必再算另外两个计数。
		if submissionCount == 0 {
			continue
		}

		resultCount, err := s.CountResults(categories[i].ID)
		if err != nil {
			return nil, err
		}
		upvoteTotal, err := s.CountLikes(categories[i].ID)
		if err != nil {
			return nil, err
		}

		entry := model.AnnotatedCategory{
			Category:        categories[i],
			SubmissionCount: submissionCount,
			ResultCount:     resultCount,
			UpvoteTotal:     upvoteTotal,
		}

		if viewerID != nil && s.subscriptionRepo != nil {
			_, err := s.subscriptionRepo.FindByFks(*viewerID, categories[i].ID)
			switch {
			case err == nil:
				entry.IsSubscribed = true
			case errors.Is(err, gorm.ErrRecordNotFound):
				// 未订阅
			default:
				return nil, err
			}
		}

		annotated = append(annotated, entry)
	}
	return annotated, nil
}
