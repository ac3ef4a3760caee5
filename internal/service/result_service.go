package service

import (
	"errors"
	"strings"
	"time"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"

	"gorm.io/gorm"
)

// ResultParams 是创建结果的入参。
type ResultParams struct {
	CategoryID     uint
	MetricName     string
	MetricValue    float64
	IsHigherBetter bool
	EvaluatedAt    *time.Time
	Notes          string
}

// ResultService 封装测量结果领域逻辑。
// 结果必须归属一个存在的提交和一个存在的分类；删除是软删除。
type ResultService interface {
	Submit(userID, submissionID uint, params ResultParams) (*model.Result, error)
	FindBySubmissionID(submissionID uint) ([]model.Result, error)
	Delete(id uint) error
}

type resultService struct {
	resultRepo     repository.ResultRepository
	submissionRepo repository.SubmissionRepository
	categoryRepo   repository.CategoryRepository
	refRepo        repository.SubmissionCategoryRefRepository
}

func NewResultService(
	resultRepo repository.ResultRepository,
	submissionRepo repository.SubmissionRepository,
	categoryRepo repository.CategoryRepository,
	refRepo repository.SubmissionCategoryRefRepository,
) ResultService {
	return &resultService{
		resultRepo:     resultRepo,
		submissionRepo: submissionRepo,
		categoryRepo:   categoryRepo,
		refRepo:        refRepo,
	}
}

// Submit 创建结果。
// 关键规则：
//  1. metricName 必填；提交和分类都必须存在。
//  2. 提交与归属分类之间如果还没有活引用，自动补建——结果挂上去的
//     同时保证它沿层级可聚合。
func (s *resultService) Submit(userID, submissionID uint, params ResultParams) (*model.Result, error) {
	if s.resultRepo == nil || s.submissionRepo == nil || s.categoryRepo == nil {
		return nil, ErrInternal
	}

	params.MetricName = strings.TrimSpace(params.MetricName)
	if submissionID == 0 || params.CategoryID == 0 || params.MetricName == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.submissionRepo.FindByID(submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if _, err := s.categoryRepo.FindByID(params.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	result := &model.Result{
		UserID:         userID,
		SubmissionID:   submissionID,
		CategoryID:     params.CategoryID,
		MetricName:     params.MetricName,
		MetricValue:    params.MetricValue,
		IsHigherBetter: params.IsHigherBetter,
		EvaluatedAt:    params.EvaluatedAt,
		Notes:          params.Notes,
	}
	if err := s.resultRepo.Create(result); err != nil {
		return nil, err
	}

	if s.refRepo != nil {
		err := s.refRepo.Create(&model.SubmissionCategoryRef{
			SubmissionID: submissionID,
			CategoryID:   params.CategoryID,
			UserID:       userID,
		})
		if err != nil && !errors.Is(err, repository.ErrRefAlreadyExists) {
			return nil, err
		}
	}
	return result, nil
}

func (s *resultService) FindBySubmissionID(submissionID uint) ([]model.Result, error) {
	if s.resultRepo == nil {
		return nil, ErrInternal
	}
	if submissionID == 0 {
		return nil, ErrInvalidInput
	}
	return s.resultRepo.FindBySubmissionID(submissionID)
}

func (s *resultService) Delete(id uint) error {
	if s.resultRepo == nil {
		return ErrInternal
	}
	if id == 0 {
		return ErrInvalidInput
	}

	if err := s.resultRepo.SoftDelete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResultNotFound
		}
		return err
	}
	return nil
}
