package service

import (
	"errors"
	"strings"
	"time"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"
	"quant_bench_go/pkg/log"

	"gorm.io/gorm"
)

// SubmissionParams 是创建提交的入参。
type SubmissionParams struct {
	Name         string
	ContentURL   string
	ThumbnailURL string
	Description  string
	// Tags 逗号分隔的标签名列表，逐个规范化后建立关联
	Tags string
}

// SubmissionService 封装提交领域逻辑。
// 关键规则：
//  1. 规范名（trim+小写）在未删除提交中全局唯一。
//  2. 审核（Approve）设置 approvedAt；只有已审核且未删除的提交可参与排行。
//  3. 删除是软删除，只有提交人本人可删。
//  4. 点赞按投票人幂等开关。
type SubmissionService interface {
	Submit(userID uint, params SubmissionParams) (*model.Submission, error)
	// Get 按 id 取提交，附带点赞数和请求方是否已点赞。
	Get(id uint, viewerID *uint) (*model.RankedSubmission, error)
	// Update 更新描述/缩略图。
	Update(id uint, description, thumbnailURL string) (*model.Submission, error)
	// Approve 审核通过（管理员操作）。重复审核幂等。
	Approve(id uint) error
	// DeleteIfOwner 软删除提交，仅限提交人本人。
	DeleteIfOwner(userID, id uint) error
	// Upvote 点赞开关，返回开关后的状态和最新点赞数。
	Upvote(id, userID uint) (liked bool, upvoteCount int, err error)
	// AddTag 给提交打标签（标签不存在则创建），幂等。
	AddTag(id uint, tagName string) error
	// RemoveTag 摘除标签关联（软删除）。标签不存在返回 ErrTagNotFound。
	RemoveTag(id uint, tagName string) error
}

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	tagRepo        repository.TagRepository
	// search 可选：配置了 Elasticsearch 时，审核通过的提交会进索引。
	search SearchService
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	tagRepo repository.TagRepository,
	search SearchService,
) SubmissionService {
	return &submissionService{
		submissionRepo: submissionRepo,
		tagRepo:        tagRepo,
		search:         search,
	}
}

// normalizeName 统一规范名口径：trim + 小写。
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Submit 创建提交。
// 关键规则：
//  1. name/contentUrl 必填。
//  2. 规范名不能与现有未删除提交冲突。
//  3. tags 逗号拆分，逐个规范化，空项跳过；标签不存在则创建。
func (s *submissionService) Submit(userID uint, params SubmissionParams) (*model.Submission, error) {
	if s.submissionRepo == nil {
		return nil, ErrInternal
	}

	name := strings.TrimSpace(params.Name)
	contentURL := strings.TrimSpace(params.ContentURL)
	if name == "" || contentURL == "" {
		return nil, ErrInvalidInput
	}

	nameNormal := normalizeName(name)
	_, err := s.submissionRepo.FindByNameNormal(nameNormal)
	if err == nil {
		return nil, ErrSubmissionAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	submission := &model.Submission{
		UserID:      userID,
		Name:        name,
		NameNormal:  nameNormal,
		ContentURL:  contentURL,
		Description: strings.TrimSpace(params.Description),
	}
	if thumb := strings.TrimSpace(params.ThumbnailURL); thumb != "" {
		submission.ThumbnailURL = &thumb
	}

	if err := s.submissionRepo.Create(submission); err != nil {
		return nil, err
	}

	if params.Tags != "" && s.tagRepo != nil {
		for _, raw := range strings.Split(params.Tags, ",") {
			tagName := normalizeName(raw)
			if tagName == "" {
				continue
			}
			tag, err := s.tagRepo.CreateOrFetch(tagName)
			if err != nil {
				return nil, err
			}
			if err := s.tagRepo.CreateRef(submission.ID, tag.ID); err != nil {
				return nil, err
			}
		}
	}

	return submission, nil
}

func (s *submissionService) Get(id uint, viewerID *uint) (*model.RankedSubmission, error) {
	if s.submissionRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	submission, err := s.submissionRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	entry := &model.RankedSubmission{
		Submission:  *submission,
		UpvoteCount: len(submission.Likes),
	}
	if viewerID != nil {
		for _, like := range submission.Likes {
			if like.UserID == *viewerID {
				entry.IsUpvoted = true
				break
			}
		}
	}
	return entry, nil
}

func (s *submissionService) Update(id uint, description, thumbnailURL string) (*model.Submission, error) {
	if s.submissionRepo == nil {
		return nil, ErrInternal
	}

	submission, err := s.submissionRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	submission.Description = strings.TrimSpace(description)
	if thumb := strings.TrimSpace(thumbnailURL); thumb != "" {
		submission.ThumbnailURL = &thumb
	} else {
		submission.ThumbnailURL = nil
	}

	if err := s.submissionRepo.Update(submission); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

func (s *submissionService) Approve(id uint) error {
	if s.submissionRepo == nil {
		return ErrInternal
	}
	if id == 0 {
		return ErrInvalidInput
	}

	if err := s.submissionRepo.Approve(id, time.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	// 审核通过后进搜索索引。索引失败不影响审核结果，只记日志。
	if s.search != nil {
		submission, err := s.submissionRepo.FindByID(id)
		if err == nil {
			if err := s.search.Index(submission); err != nil {
				log.Warnf("failed to index submission %d: %v", id, err)
			}
		}
	}
	return nil
}

func (s *submissionService) DeleteIfOwner(userID, id uint) error {
	if s.submissionRepo == nil {
		return ErrInternal
	}
	if id == 0 || userID == 0 {
		return ErrInvalidInput
	}

	submission, err := s.submissionRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	if submission.UserID != userID {
		return ErrSubmissionNotOwned
	}

	if err := s.submissionRepo.SoftDelete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	return nil
}

func (s *submissionService) Upvote(id, userID uint) (bool, int, error) {
	if s.submissionRepo == nil {
		return false, 0, ErrInternal
	}
	if id == 0 || userID == 0 {
		return false, 0, ErrInvalidInput
	}

	if _, err := s.submissionRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, ErrSubmissionNotFound
		}
		return false, 0, err
	}

	liked, err := s.submissionRepo.ToggleLike(id, userID)
	if err != nil {
		return false, 0, err
	}

	counts, err := s.submissionRepo.LikeCounts([]uint{id})
	if err != nil {
		return false, 0, err
	}
	return liked, counts[id], nil
}

func (s *submissionService) AddTag(id uint, tagName string) error {
	if s.submissionRepo == nil || s.tagRepo == nil {
		return ErrInternal
	}

	tagName = normalizeName(tagName)
	if id == 0 || tagName == "" {
		return ErrInvalidInput
	}

	if _, err := s.submissionRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	tag, err := s.tagRepo.CreateOrFetch(tagName)
	if err != nil {
		return err
	}
	return s.tagRepo.CreateRef(id, tag.ID)
}

func (s *submissionService) RemoveTag(id uint, tagName string) error {
	if s.submissionRepo == nil || s.tagRepo == nil {
		return ErrInternal
	}

	tagName = normalizeName(tagName)
	if id == 0 || tagName == "" {
		return ErrInvalidInput
	}

	tag, err := s.tagRepo.FindByName(tagName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	ref, err := s.tagRepo.FindRefByFks(id, tag.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 没有活关联可摘，视为已完成。
			return nil
		}
		return err
	}
	return s.tagRepo.SoftDeleteRef(ref.ID)
}
