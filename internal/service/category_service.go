package service

import (
	"errors"
	"strings"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"

	"gorm.io/gorm"
)

// CategoryParams 是创建/更新分类的入参。
// ParentID 使用指针以区分"根节点"和"挂在某个父节点下"。
type CategoryParams struct {
	Name           string
	FullName       string
	Description    string
	URL            string
	ParentID       *uint
	IsDataSet      bool
	ArchitectureID *uint
	ProviderID     *uint
}

// CategoryService 封装分类领域逻辑。
// 设计目标：
//  1. Handler 不直接操作 Repository，避免协议层混入业务规则。
//  2. 统一错误语义，把底层 gorm/repository 错误转换为 service 哨兵错误。
//  3. 任何改动层级结构的写操作之后，整体失效闭包缓存——脏闭包会让聚合
//     悄悄多算或少算，这里是失效的唯一入口。
type CategoryService interface {
	Submit(userID uint, params CategoryParams) (*model.Category, error)
	Update(id uint, params CategoryParams) (*model.Category, error)
	// Delete 保护删除：有子节点时返回 ErrCategoryHasChildren。
	Delete(id uint) error
	FindByID(id uint) (*model.Category, error)
	// ListTopLevel 返回指定树（平台/数据集）的根节点，带聚合计数，
	// 过滤掉没有任何提交的空分类。
	ListTopLevel(isDataSet bool, viewerID *uint) ([]model.AnnotatedCategory, error)
	ListTopLevelByArchitecture(architectureID uint, viewerID *uint) ([]model.AnnotatedCategory, error)
	ListTopLevelByProvider(providerID uint, viewerID *uint) ([]model.AnnotatedCategory, error)
	// GetTree 构建整棵分类树（根节点 + 递归 children）。
	GetTree(isDataSet bool) ([]*model.CategoryNode, error)
	GetDetail(id uint, viewerID *uint) (*model.CategoryDetail, error)
	// Subscribe 开关订阅，返回开关后的订阅状态。
	Subscribe(categoryID, userID uint) (bool, error)
	// AddSubmissionRef 把提交挂到分类下。同键活引用已存在时幂等成功。
	AddSubmissionRef(categoryID, submissionID, userID uint) error
	// RemoveSubmissionRef 摘除提交与分类的引用（软删除）。
	// 引用下仍有未删除的结果时返回 ErrRefInUse。
	RemoveSubmissionRef(categoryID, submissionID uint) error
}

type categoryService struct {
	categoryRepo     repository.CategoryRepository
	submissionRepo   repository.SubmissionRepository
	refRepo          repository.SubmissionCategoryRefRepository
	resultRepo       repository.ResultRepository
	subscriptionRepo repository.SubscriptionRepository
	tree             CategoryTree
	aggregation      AggregationService
}

func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	submissionRepo repository.SubmissionRepository,
	refRepo repository.SubmissionCategoryRefRepository,
	resultRepo repository.ResultRepository,
	subscriptionRepo repository.SubscriptionRepository,
	tree CategoryTree,
	aggregation AggregationService,
) CategoryService {
	return &categoryService{
		categoryRepo:     categoryRepo,
		submissionRepo:   submissionRepo,
		refRepo:          refRepo,
		resultRepo:       resultRepo,
		subscriptionRepo: subscriptionRepo,
		tree:             tree,
		aggregation:      aggregation,
	}
}

// Submit 创建分类。
// 关键规则：
//  1. name 必填，去除首尾空白，且不能与现有分类重名。
//  2. 指定父节点时，父节点必须存在，且必须在同一棵树（平台/数据集）里。
//  3. 创建成功后失效闭包缓存。
func (s *categoryService) Submit(userID uint, params CategoryParams) (*model.Category, error) {
	if s.categoryRepo == nil || s.tree == nil {
		return nil, ErrInternal
	}

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return nil, ErrInvalidInput
	}

	// 先检查重名，避免数据库唯一键报错直接外泄。
	_, err := s.categoryRepo.FindByName(params.Name)
	if err == nil {
		return nil, ErrCategoryAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if params.ParentID != nil {
		parent, err := s.categoryRepo.FindByID(*params.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		if parent.IsDataSet != params.IsDataSet {
			// 平台树和数据集树是两棵不相交的树，不允许跨树挂载。
			return nil, ErrInvalidInput
		}
	}

	category := &model.Category{
		UserID:         userID,
		Name:           params.Name,
		FullName:       strings.TrimSpace(params.FullName),
		Description:    params.Description,
		URL:            strings.TrimSpace(params.URL),
		ParentID:       params.ParentID,
		IsDataSet:      params.IsDataSet,
		ArchitectureID: params.ArchitectureID,
		ProviderID:     params.ProviderID,
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}

	s.tree.Invalidate()
	return category, nil
}

// Update 更新分类字段（改名/改父/改分类属性）。
// 关键规则：
//  1. 目标分类必须存在。
//  2. ParentID 允许置空（升为根节点），不能指向自己。
//  3. 新父节点不能落在自己的子树里，否则会把树接成环。
//  4. 更新成功后失效闭包缓存。
func (s *categoryService) Update(id uint, params CategoryParams) (*model.Category, error) {
	if s.categoryRepo == nil || s.tree == nil {
		return nil, ErrInternal
	}

	params.Name = strings.TrimSpace(params.Name)
	if id == 0 || params.Name == "" {
		return nil, ErrInvalidInput
	}

	category, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}

	if params.ParentID != nil {
		if *params.ParentID == id {
			return nil, ErrInvalidInput
		}
		parent, err := s.categoryRepo.FindByID(*params.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		if parent.IsDataSet != category.IsDataSet {
			return nil, ErrInvalidInput
		}

		// 环检测：新父节点出现在自己的闭包里，说明它是自己的后代。
		closure, err := s.tree.Closure(id)
		if err != nil {
			return nil, err
		}
		for _, nodeID := range closure {
			if nodeID == *params.ParentID {
				return nil, ErrInvalidInput
			}
		}
	}

	category.Name = params.Name
	category.FullName = strings.TrimSpace(params.FullName)
	category.Description = params.Description
	category.URL = strings.TrimSpace(params.URL)
	category.ParentID = params.ParentID
	category.ArchitectureID = params.ArchitectureID
	category.ProviderID = params.ProviderID

	if err := s.categoryRepo.Update(category); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	s.tree.Invalidate()
	return category, nil
}

func (s *categoryService) Delete(id uint) error {
	if s.categoryRepo == nil || s.tree == nil {
		return ErrInternal
	}
	if id == 0 {
		return ErrInvalidInput
	}

	if err := s.categoryRepo.Delete(id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryHasChildren):
			return ErrCategoryHasChildren
		default:
			return err
		}
	}

	s.tree.Invalidate()
	return nil
}

func (s *categoryService) FindByID(id uint) (*model.Category, error) {
	if s.categoryRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) ListTopLevel(isDataSet bool, viewerID *uint) ([]model.AnnotatedCategory, error) {
	if s.categoryRepo == nil || s.aggregation == nil {
		return nil, ErrInternal
	}

	roots, err := s.categoryRepo.FindRoots(isDataSet)
	if err != nil {
		return nil, err
	}
	return s.aggregation.Annotate(roots, viewerID)
}

func (s *categoryService) ListTopLevelByArchitecture(architectureID uint, viewerID *uint) ([]model.AnnotatedCategory, error) {
	if s.categoryRepo == nil || s.aggregation == nil {
		return nil, ErrInternal
	}
	if architectureID == 0 {
		return nil, ErrInvalidInput
	}

	roots, err := s.categoryRepo.FindRootsByArchitecture(architectureID)
	if err != nil {
		return nil, err
	}
	return s.aggregation.Annotate(roots, viewerID)
}

func (s *categoryService) ListTopLevelByProvider(providerID uint, viewerID *uint) ([]model.AnnotatedCategory, error) {
	if s.categoryRepo == nil || s.aggregation == nil {
		return nil, ErrInternal
	}
	if providerID == 0 {
		return nil, ErrInvalidInput
	}

	roots, err := s.categoryRepo.FindRootsByProvider(providerID)
	if err != nil {
		return nil, err
	}
	return s.aggregation.Annotate(roots, viewerID)
}

// GetTree 构建分类树（根节点 + 递归 children）。
// 实现采用两遍扫描：
//  1. 第一遍创建所有节点并放入 map（id -> node）
//  2. 第二遍按 parent 关系把子节点挂到父节点上
func (s *categoryService) GetTree(isDataSet bool) ([]*model.CategoryNode, error) {
	if s.categoryRepo == nil {
		return nil, ErrInternal
	}

	categories, err := s.categoryRepo.FindAll()
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint]*model.CategoryNode, len(categories))
	for i := range categories {
		if categories[i].IsDataSet != isDataSet {
			continue
		}
		nodes[categories[i].ID] = &model.CategoryNode{
			ID:        categories[i].ID,
			Name:      categories[i].Name,
			FullName:  categories[i].FullName,
			ParentID:  categories[i].ParentID,
			IsDataSet: categories[i].IsDataSet,
			Children:  []*model.CategoryNode{},
		}
	}

	tree := make([]*model.CategoryNode, 0)
	for i := range categories {
		node, ok := nodes[categories[i].ID]
		if !ok {
			continue
		}
		if categories[i].ParentID != nil {
			if parent, ok := nodes[*categories[i].ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		// 父节点不存在或为空时，统一作为根节点返回，避免节点丢失。
		tree = append(tree, node)
	}
	return tree, nil
}

func (s *categoryService) GetDetail(id uint, viewerID *uint) (*model.CategoryDetail, error) {
	if s.categoryRepo == nil || s.aggregation == nil {
		return nil, ErrInternal
	}

	category, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}

	detail := &model.CategoryDetail{Category: *category}

	if category.ParentID != nil {
		parent, err := s.categoryRepo.FindByID(*category.ParentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		detail.Parent = parent
	}

	children, err := s.categoryRepo.FindChildren(id)
	if err != nil {
		return nil, err
	}
	detail.Children = children

	detail.SubmissionCount, err = s.aggregation.CountSubmissions(id)
	if err != nil {
		return nil, err
	}
	detail.ResultCount, err = s.aggregation.CountResults(id)
	if err != nil {
		return nil, err
	}
	detail.UpvoteTotal, err = s.aggregation.CountLikes(id)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && s.subscriptionRepo != nil {
		_, err := s.subscriptionRepo.FindByFks(*viewerID, id)
		switch {
		case err == nil:
			detail.IsSubscribed = true
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 未订阅
		default:
			return nil, err
		}
	}
	return detail, nil
}

func (s *categoryService) Subscribe(categoryID, userID uint) (bool, error) {
	if s.subscriptionRepo == nil {
		return false, ErrInternal
	}
	if categoryID == 0 || userID == 0 {
		return false, ErrInvalidInput
	}

	if _, err := s.FindByID(categoryID); err != nil {
		return false, err
	}
	return s.subscriptionRepo.Toggle(userID, categoryID)
}

func (s *categoryService) AddSubmissionRef(categoryID, submissionID, userID uint) error {
	if s.refRepo == nil || s.submissionRepo == nil {
		return ErrInternal
	}

	if _, err := s.FindByID(categoryID); err != nil {
		return err
	}
	if _, err := s.submissionRepo.FindByID(submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	err := s.refRepo.Create(&model.SubmissionCategoryRef{
		SubmissionID: submissionID,
		CategoryID:   categoryID,
		UserID:       userID,
	})
	if errors.Is(err, repository.ErrRefAlreadyExists) {
		// 活引用已存在：挂载是幂等操作
		return nil
	}
	return err
}

// RemoveSubmissionRef 摘除引用。
// 关键规则：引用下仍有未删除的结果时拒绝——先改掉或删掉用到这个分类的
// 结果，才允许摘引用，防止结果悬挂在不可达的分类上。
func (s *categoryService) RemoveSubmissionRef(categoryID, submissionID uint) error {
	if s.refRepo == nil || s.resultRepo == nil {
		return ErrInternal
	}

	ref, err := s.refRepo.FindLiveByFks(submissionID, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 没有活引用可摘，视为已完成。
			return nil
		}
		return err
	}

	liveResults, err := s.resultRepo.CountLiveByFks(submissionID, categoryID)
	if err != nil {
		return err
	}
	if liveResults > 0 {
		return ErrRefInUse
	}

	if err := s.refRepo.SoftDelete(ref.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return nil
}
