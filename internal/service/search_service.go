package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"
	"quant_bench_go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// submissionIndex 是提交在 Elasticsearch 里的索引名。
const submissionIndex = "submissions"

// SearchService 提供提交的全文检索。
// 已配置 Elasticsearch 时：审核通过的提交写入索引，搜索走 match 查询；
// 未配置时：回退到数据库 LIKE 查询，功能降级但不报错。
type SearchService interface {
	// Index 把提交写入搜索索引（按 id 覆盖写，幂等）。
	Index(submission *model.Submission) error
	// Search 按名称/描述检索已审核且未删除的提交。
	Search(query string, limit int) ([]model.Submission, error)
}

type searchService struct {
	es             *elasticsearch.Client
	submissionRepo repository.SubmissionRepository
}

// NewSearchService 创建搜索服务。es 传 nil 表示未配置 Elasticsearch，
// 此时 Index 是空操作，Search 走数据库回退。
func NewSearchService(es *elasticsearch.Client, submissionRepo repository.SubmissionRepository) SearchService {
	return &searchService{es: es, submissionRepo: submissionRepo}
}

// submissionDoc 是写入索引的文档结构，只保留检索需要的字段。
type submissionDoc struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *searchService) Index(submission *model.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission is nil")
	}
	if s.es == nil {
		return nil
	}

	doc := submissionDoc{
		ID:          submission.ID,
		Name:        submission.Name,
		Description: submission.Description,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := s.es.Index(
		submissionIndex,
		bytes.NewReader(body),
		s.es.Index.WithDocumentID(strconv.FormatUint(uint64(submission.ID), 10)),
		s.es.Index.WithContext(context.Background()),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index submission %d: %s", submission.ID, res.Status())
	}
	return nil
}

func (s *searchService) Search(query string, limit int) ([]model.Submission, error) {
	if s.submissionRepo == nil {
		return nil, ErrInternal
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = 20
	}

	if s.es == nil {
		return s.submissionRepo.SearchApprovedLive(query, limit)
	}

	ids, err := s.searchIDs(query, limit)
	if err != nil {
		// Elasticsearch 故障时降级到数据库查询，记日志便于运维发现。
		log.Warnf("elasticsearch query failed, falling back to database: %v", err)
		return s.submissionRepo.SearchApprovedLive(query, limit)
	}
	if len(ids) == 0 {
		return []model.Submission{}, nil
	}

	// 命中 id 回数据库取完整记录；软删除的提交在这里被默认作用域过滤掉。
	submissions, err := s.submissionRepo.FindByIDsUnscoped(ids)
	if err != nil {
		return nil, err
	}

	// 保持索引返回的相关度顺序，并剔除已删除/未审核的记录。
	byID := make(map[uint]model.Submission, len(submissions))
	for i := range submissions {
		if submissions[i].DeletedAt.Valid || submissions[i].ApprovedAt == nil {
			continue
		}
		byID[submissions[i].ID] = submissions[i]
	}
	ordered := make([]model.Submission, 0, len(ids))
	for _, id := range ids {
		if sub, ok := byID[id]; ok {
			ordered = append(ordered, sub)
		}
	}
	return ordered, nil
}

// searchIDs 执行 multi_match 查询，返回命中的提交 id（按相关度排序）。
func (s *searchService) searchIDs(query string, limit int) ([]uint, error) {
	var buf bytes.Buffer
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^2", "description"},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(context.Background()),
		s.es.Search.WithIndex(submissionIndex),
		s.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source submissionDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return ids, nil
}
