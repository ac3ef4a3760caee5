package service

import (
	"time"

	"quant_bench_go/internal/model"

	"gorm.io/gorm"
)

// 本文件集中定义 service 层测试用的函数字段假仓库。
// 约定：未设置的查询函数返回 gorm.ErrRecordNotFound（单查）或空集（批查），
// 未设置的写函数返回 nil。测试只需要覆盖自己关心的函数。

type fakeCategoryRepo struct {
	createFn                  func(category *model.Category) error
	findByIDFn                func(id uint) (*model.Category, error)
	findAllFn                 func() ([]model.Category, error)
	findChildrenFn            func(parentID uint) ([]model.Category, error)
	findRootsFn               func(isDataSet bool) ([]model.Category, error)
	findRootsByArchitectureFn func(architectureID uint) ([]model.Category, error)
	findRootsByProviderFn     func(providerID uint) ([]model.Category, error)
	findByNameFn              func(name string) (*model.Category, error)
	updateFn                  func(category *model.Category) error
	deleteFn                  func(id uint) error
}

func (f *fakeCategoryRepo) Create(category *model.Category) error {
	if f.createFn != nil {
		return f.createFn(category)
	}
	return nil
}

func (f *fakeCategoryRepo) FindByID(id uint) (*model.Category, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCategoryRepo) FindAll() ([]model.Category, error) {
	if f.findAllFn != nil {
		return f.findAllFn()
	}
	return []model.Category{}, nil
}

func (f *fakeCategoryRepo) FindChildren(parentID uint) ([]model.Category, error) {
	if f.findChildrenFn != nil {
		return f.findChildrenFn(parentID)
	}
	return []model.Category{}, nil
}

func (f *fakeCategoryRepo) FindRoots(isDataSet bool) ([]model.Category, error) {
	if f.findRootsFn != nil {
		return f.findRootsFn(isDataSet)
	}
	return []model.Category{}, nil
}

func (f *fakeCategoryRepo) FindRootsByArchitecture(architectureID uint) ([]model.Category, error) {
	if f.findRootsByArchitectureFn != nil {
		return f.findRootsByArchitectureFn(architectureID)
	}
	return []model.Category{}, nil
}

func (f *fakeCategoryRepo) FindRootsByProvider(providerID uint) ([]model.Category, error) {
	if f.findRootsByProviderFn != nil {
		return f.findRootsByProviderFn(providerID)
	}
	return []model.Category{}, nil
}

func (f *fakeCategoryRepo) FindByName(name string) (*model.Category, error) {
	if f.findByNameFn != nil {
		return f.findByNameFn(name)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCategoryRepo) Update(category *model.Category) error {
	if f.updateFn != nil {
		return f.updateFn(category)
	}
	return nil
}

func (f *fakeCategoryRepo) Delete(id uint) error {
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

type fakeSubmissionRepo struct {
	createFn             func(submission *model.Submission) error
	findByIDFn           func(id uint) (*model.Submission, error)
	findByNameNormalFn   func(nameNormal string) (*model.Submission, error)
	findApprovedLiveFn   func() ([]model.Submission, error)
	findByUserIDFn       func(userID uint) ([]model.Submission, error)
	findByIDsUnscopedFn  func(ids []uint) ([]model.Submission, error)
	searchApprovedLiveFn func(query string, limit int) ([]model.Submission, error)
	updateFn             func(submission *model.Submission) error
	approveFn            func(id uint, approvedAt time.Time) error
	softDeleteFn         func(id uint) error
	toggleLikeFn         func(submissionID, userID uint) (bool, error)
	likeCountsFn         func(submissionIDs []uint) (map[uint]int, error)
}

func (f *fakeSubmissionRepo) Create(submission *model.Submission) error {
	if f.createFn != nil {
		return f.createFn(submission)
	}
	return nil
}

func (f *fakeSubmissionRepo) FindByID(id uint) (*model.Submission, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) FindByNameNormal(nameNormal string) (*model.Submission, error) {
	if f.findByNameNormalFn != nil {
		return f.findByNameNormalFn(nameNormal)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) FindApprovedLive() ([]model.Submission, error) {
	if f.findApprovedLiveFn != nil {
		return f.findApprovedLiveFn()
	}
	return []model.Submission{}, nil
}

func (f *fakeSubmissionRepo) FindByUserID(userID uint) ([]model.Submission, error) {
	if f.findByUserIDFn != nil {
		return f.findByUserIDFn(userID)
	}
	return []model.Submission{}, nil
}

func (f *fakeSubmissionRepo) FindByIDsUnscoped(ids []uint) ([]model.Submission, error) {
	if f.findByIDsUnscopedFn != nil {
		return f.findByIDsUnscopedFn(ids)
	}
	return []model.Submission{}, nil
}

func (f *fakeSubmissionRepo) SearchApprovedLive(query string, limit int) ([]model.Submission, error) {
	if f.searchApprovedLiveFn != nil {
		return f.searchApprovedLiveFn(query, limit)
	}
	return []model.Submission{}, nil
}

func (f *fakeSubmissionRepo) Update(submission *model.Submission) error {
	if f.updateFn != nil {
		return f.updateFn(submission)
	}
	return nil
}

func (f *fakeSubmissionRepo) Approve(id uint, approvedAt time.Time) error {
	if f.approveFn != nil {
		return f.approveFn(id, approvedAt)
	}
	return nil
}

func (f *fakeSubmissionRepo) SoftDelete(id uint) error {
	if f.softDeleteFn != nil {
		return f.softDeleteFn(id)
	}
	return nil
}

func (f *fakeSubmissionRepo) ToggleLike(submissionID, userID uint) (bool, error) {
	if f.toggleLikeFn != nil {
		return f.toggleLikeFn(submissionID, userID)
	}
	return false, nil
}

func (f *fakeSubmissionRepo) LikeCounts(submissionIDs []uint) (map[uint]int, error) {
	if f.likeCountsFn != nil {
		return f.likeCountsFn(submissionIDs)
	}
	return map[uint]int{}, nil
}

type fakeRefRepo struct {
	createFn             func(ref *model.SubmissionCategoryRef) error
	findLiveByFksFn      func(submissionID, categoryID uint) (*model.SubmissionCategoryRef, error)
	findByCategoryIDsFn  func(categoryIDs []uint) ([]model.SubmissionCategoryRef, error)
	findBySubmissionIDFn func(submissionID uint) ([]model.SubmissionCategoryRef, error)
	softDeleteFn         func(id uint) error
}

func (f *fakeRefRepo) Create(ref *model.SubmissionCategoryRef) error {
	if f.createFn != nil {
		return f.createFn(ref)
	}
	return nil
}

func (f *fakeRefRepo) FindLiveByFks(submissionID, categoryID uint) (*model.SubmissionCategoryRef, error) {
	if f.findLiveByFksFn != nil {
		return f.findLiveByFksFn(submissionID, categoryID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRefRepo) FindByCategoryIDs(categoryIDs []uint) ([]model.SubmissionCategoryRef, error) {
	if f.findByCategoryIDsFn != nil {
		return f.findByCategoryIDsFn(categoryIDs)
	}
	return []model.SubmissionCategoryRef{}, nil
}

func (f *fakeRefRepo) FindBySubmissionID(submissionID uint) ([]model.SubmissionCategoryRef, error) {
	if f.findBySubmissionIDFn != nil {
		return f.findBySubmissionIDFn(submissionID)
	}
	return []model.SubmissionCategoryRef{}, nil
}

func (f *fakeRefRepo) SoftDelete(id uint) error {
	if f.softDeleteFn != nil {
		return f.softDeleteFn(id)
	}
	return nil
}

type fakeResultRepo struct {
	createFn             func(result *model.Result) error
	findByIDFn           func(id uint) (*model.Result, error)
	findBySubmissionIDFn func(submissionID uint) ([]model.Result, error)
	findByCategoryIDsFn  func(categoryIDs []uint) ([]model.Result, error)
	countLiveByFksFn     func(submissionID, categoryID uint) (int64, error)
	softDeleteFn         func(id uint) error
}

func (f *fakeResultRepo) Create(result *model.Result) error {
	if f.createFn != nil {
		return f.createFn(result)
	}
	return nil
}

func (f *fakeResultRepo) FindByID(id uint) (*model.Result, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResultRepo) FindBySubmissionID(submissionID uint) ([]model.Result, error) {
	if f.findBySubmissionIDFn != nil {
		return f.findBySubmissionIDFn(submissionID)
	}
	return []model.Result{}, nil
}

func (f *fakeResultRepo) FindByCategoryIDs(categoryIDs []uint) ([]model.Result, error) {
	if f.findByCategoryIDsFn != nil {
		return f.findByCategoryIDsFn(categoryIDs)
	}
	return []model.Result{}, nil
}

func (f *fakeResultRepo) CountLiveByFks(submissionID, categoryID uint) (int64, error) {
	if f.countLiveByFksFn != nil {
		return f.countLiveByFksFn(submissionID, categoryID)
	}
	return 0, nil
}

func (f *fakeResultRepo) SoftDelete(id uint) error {
	if f.softDeleteFn != nil {
		return f.softDeleteFn(id)
	}
	return nil
}

type fakeTagRepo struct {
	findByNameFn        func(name string) (*model.Tag, error)
	createOrFetchFn     func(name string) (*model.Tag, error)
	findSubmissionIDsFn func(tagID uint) ([]uint, error)
	createRefFn         func(submissionID, tagID uint) error
	findRefByFksFn      func(submissionID, tagID uint) (*model.SubmissionTagRef, error)
	softDeleteRefFn     func(id uint) error
}

func (f *fakeTagRepo) FindByName(name string) (*model.Tag, error) {
	if f.findByNameFn != nil {
		return f.findByNameFn(name)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTagRepo) CreateOrFetch(name string) (*model.Tag, error) {
	if f.createOrFetchFn != nil {
		return f.createOrFetchFn(name)
	}
	return &model.Tag{ID: 1, Name: name}, nil
}

func (f *fakeTagRepo) FindSubmissionIDs(tagID uint) ([]uint, error) {
	if f.findSubmissionIDsFn != nil {
		return f.findSubmissionIDsFn(tagID)
	}
	return []uint{}, nil
}

func (f *fakeTagRepo) CreateRef(submissionID, tagID uint) error {
	if f.createRefFn != nil {
		return f.createRefFn(submissionID, tagID)
	}
	return nil
}

func (f *fakeTagRepo) FindRefByFks(submissionID, tagID uint) (*model.SubmissionTagRef, error) {
	if f.findRefByFksFn != nil {
		return f.findRefByFksFn(submissionID, tagID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTagRepo) SoftDeleteRef(id uint) error {
	if f.softDeleteRefFn != nil {
		return f.softDeleteRefFn(id)
	}
	return nil
}

type fakeSubscriptionRepo struct {
	findByFksFn func(userID, categoryID uint) (*model.CategorySubscription, error)
	toggleFn    func(userID, categoryID uint) (bool, error)
}

func (f *fakeSubscriptionRepo) FindByFks(userID, categoryID uint) (*model.CategorySubscription, error) {
	if f.findByFksFn != nil {
		return f.findByFksFn(userID, categoryID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptionRepo) Toggle(userID, categoryID uint) (bool, error) {
	if f.toggleFn != nil {
		return f.toggleFn(userID, categoryID)
	}
	return false, nil
}

func uintPtr(v uint) *uint {
	return &v
}

// treeCategoryRepo 用一组节点构造可遍历的内存层级，
// 供闭包/聚合测试复用。parent 映射：child id -> parent id。
func treeCategoryRepo(nodes map[uint]*model.Category) *fakeCategoryRepo {
	return &fakeCategoryRepo{
		findByIDFn: func(id uint) (*model.Category, error) {
			if node, ok := nodes[id]; ok {
				return node, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		findChildrenFn: func(parentID uint) ([]model.Category, error) {
			children := []model.Category{}
			// map 遍历无序，按 id 升序补排保证确定性
			for id := uint(1); id <= uint(len(nodes))+16; id++ {
				node, ok := nodes[id]
				if !ok || node.ParentID == nil {
					continue
				}
				if *node.ParentID == parentID {
					children = append(children, *node)
				}
			}
			return children, nil
		},
	}
}
