package service

import (
	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"
)

// LivenessLedger 是软删除存活账本：所有聚合对"什么算活着"的唯一裁决点。
// 规则是合取而不是逐实体独立：
//   - 提交活着 = 自身软删除标记未设置。
//   - 引用/结果活着 = 自身标记未设置 且 所属提交也活着。
//
// 提交被软删除后，它名下的引用和结果即使自身标记未动，也对一切聚合贡献为零。
// 把组合规则收敛在这里，调用方就没有"忘了查父级"的旁路可走。
type LivenessLedger interface {
	// LiveSubmissionIDs 返回给定 id 集合中仍然活着的提交 id 集合。
	// 一次不过滤软删除作用域的批量读，之后在内存中判定。
	LiveSubmissionIDs(ids []uint) (map[uint]struct{}, error)
	// IsRefLive 判定一条分类引用是否活着（组合所属提交的存活状态）。
	IsRefLive(ref *model.SubmissionCategoryRef, liveSubmissions map[uint]struct{}) bool
	// IsResultLive 判定一条结果是否活着（组合所属提交的存活状态）。
	IsResultLive(result *model.Result, liveSubmissions map[uint]struct{}) bool
}

type livenessLedger struct {
	submissionRepo repository.SubmissionRepository
}

func NewLivenessLedger(submissionRepo repository.SubmissionRepository) LivenessLedger {
	return &livenessLedger{submissionRepo: submissionRepo}
}

func (l *livenessLedger) LiveSubmissionIDs(ids []uint) (map[uint]struct{}, error) {
	if l.submissionRepo == nil {
		return nil, ErrInternal
	}

	live := make(map[uint]struct{}, len(ids))
	if len(ids) == 0 {
		return live, nil
	}

	submissions, err := l.submissionRepo.FindByIDsUnscoped(ids)
	if err != nil {
		return nil, err
	}
	for i := range submissions {
		if !submissions[i].DeletedAt.Valid {
			live[submissions[i].ID] = struct{}{}
		}
	}
	return live, nil
}

// IsRefLive 的入参引用来自默认作用域查询（自身标记已过滤），
// 这里再叠加所属提交的存活判定。nil 引用视为不活。
func (l *livenessLedger) IsRefLive(ref *model.SubmissionCategoryRef, liveSubmissions map[uint]struct{}) bool {
	if ref == nil || ref.DeletedAt.Valid {
		return false
	}
	_, ok := liveSubmissions[ref.SubmissionID]
	return ok
}

func (l *livenessLedger) IsResultLive(result *model.Result, liveSubmissions map[uint]struct{}) bool {
	if result == nil || result.DeletedAt.Valid {
		return false
	}
	_, ok := liveSubmissions[result.SubmissionID]
	return ok
}
