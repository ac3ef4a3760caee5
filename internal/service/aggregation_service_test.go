package service

import (
	"testing"
	"time"

	"quant_bench_go/internal/model"
)

// aggFixture 构造一套三层层级的聚合测试环境：
//
//	1 (root)
//	└── 2 (mid)
//	    └── 3 (leaf)
//
// refs/results/likes 由各用例自行注入。
func aggFixture(
	refs []model.SubmissionCategoryRef,
	results []model.Result,
	submissions []model.Submission,
	likeCounts map[uint]int,
) AggregationService {
	categoryRepo := treeCategoryRepo(map[uint]*model.Category{
		1: {ID: 1, Name: "root"},
		2: {ID: 2, Name: "mid", ParentID: uintPtr(1)},
		3: {ID: 3, Name: "leaf", ParentID: uintPtr(2)},
	})
	tree := NewCategoryTree(categoryRepo)

	submissionRepo := &fakeSubmissionRepo{
		findByIDsUnscopedFn: func(ids []uint) ([]model.Submission, error) {
			wanted := make(map[uint]struct{}, len(ids))
			for _, id := range ids {
				wanted[id] = struct{}{}
			}
			out := []model.Submission{}
			for i := range submissions {
				if _, ok := wanted[submissions[i].ID]; ok {
					out = append(out, submissions[i])
				}
			}
			return out, nil
		},
		likeCountsFn: func(submissionIDs []uint) (map[uint]int, error) {
			out := map[uint]int{}
			for _, id := range submissionIDs {
				if n, ok := likeCounts[id]; ok {
					out[id] = n
				}
			}
			return out, nil
		},
	}
	ledger := NewLivenessLedger(submissionRepo)

	refRepo := &fakeRefRepo{
		findByCategoryIDsFn: func(categoryIDs []uint) ([]model.SubmissionCategoryRef, error) {
			wanted := make(map[uint]struct{}, len(categoryIDs))
			for _, id := range categoryIDs {
				wanted[id] = struct{}{}
			}
			out := []model.SubmissionCategoryRef{}
			for i := range refs {
				if refs[i].DeletedAt.Valid {
					// 默认作用域：自身已软删除的引用不返回
					continue
				}
				if _, ok := wanted[refs[i].CategoryID]; ok {
					out = append(out, refs[i])
				}
			}
			return out, nil
		},
	}
	resultRepo := &fakeResultRepo{
		findByCategoryIDsFn: func(categoryIDs []uint) ([]model.Result, error) {
			wanted := make(map[uint]struct{}, len(categoryIDs))
			for _, id := range categoryIDs {
				wanted[id] = struct{}{}
			}
			out := []model.Result{}
			for i := range results {
				if results[i].DeletedAt.Valid {
					continue
				}
				if _, ok := wanted[results[i].CategoryID]; ok {
					out = append(out, results[i])
				}
			}
			return out, nil
		},
	}

	return NewAggregationService(tree, ledger, refRepo, resultRepo, submissionRepo, &fakeSubscriptionRepo{})
}

// TestAggregation_CountSubmissions_RollsUp 验证计数沿子树向上卷积：
// 挂在叶子上的引用计入每个祖先，根的计数覆盖整棵子树。
func TestAggregation_CountSubmissions_RollsUp(t *testing.T) {
	svc := aggFixture(
		[]model.SubmissionCategoryRef{
			{ID: 1, SubmissionID: 10, CategoryID: 1},
			{ID: 2, SubmissionID: 11, CategoryID: 2},
			{ID: 3, SubmissionID: 12, CategoryID: 3},
		},
		nil,
		[]model.Submission{{ID: 10}, {ID: 11}, {ID: 12}},
		nil,
	)

	cases := []struct {
		categoryID uint
		want       int
	}{
		{1, 3}, // root：整棵子树
		{2, 2}, // mid：自己 + leaf
		{3, 1}, // leaf：只有自己
	}
	for _, tc := range cases {
		got, err := svc.CountSubmissions(tc.categoryID)
		if err != nil {
			t.Fatalf("CountSubmissions(%d) error = %v", tc.categoryID, err)
		}
		if got != tc.want {
			t.Errorf("CountSubmissions(%d) = %d, want %d", tc.categoryID, got, tc.want)
		}
	}
}

// TestAggregation_RefSumSemantics 验证引用求和语义：
// 同一提交挂在闭包内两个分类上会被算两次。
func TestAggregation_RefSumSemantics(t *testing.T) {
	svc := aggFixture(
		[]model.SubmissionCategoryRef{
			{ID: 1, SubmissionID: 10, CategoryID: 2},
			{ID: 2, SubmissionID: 10, CategoryID: 3},
		},
		nil,
		[]model.Submission{{ID: 10}},
		map[uint]int{10: 5},
	)

	got, err := svc.CountSubmissions(1)
	if err != nil {
		t.Fatalf("CountSubmissions(1) error = %v", err)
	}
	if got != 2 {
		t.Errorf("ref-sum: CountSubmissions(1) = %d, want 2", got)
	}

	// 点赞同理：每条活引用整份计入所指提交的点赞数
	likes, err := svc.CountLikes(1)
	if err != nil {
		t.Fatalf("CountLikes(1) error = %v", err)
	}
	if likes != 10 {
		t.Errorf("ref-sum: CountLikes(1) = %d, want 10", likes)
	}
}

// TestAggregation_DeadSubmissionContributesZero 验证组合存活规则贯穿聚合：
// 提交被软删除后，其引用和结果即使自身标记未动也贡献为零。
func TestAggregation_DeadSubmissionContributesZero(t *testing.T) {
	svc := aggFixture(
		[]model.SubmissionCategoryRef{
			{ID: 1, SubmissionID: 10, CategoryID: 3},
			{ID: 2, SubmissionID: 11, CategoryID: 3},
		},
		[]model.Result{
			{ID: 1, SubmissionID: 10, CategoryID: 3},
			{ID: 2, SubmissionID: 11, CategoryID: 3},
		},
		[]model.Submission{
			{ID: 10},
			{ID: 11, DeletedAt: deletedAt(time.Now())},
		},
		map[uint]int{10: 3, 11: 7},
	)

	subs, err := svc.CountSubmissions(1)
	if err != nil {
		t.Fatalf("CountSubmissions(1) error = %v", err)
	}
	if subs != 1 {
		t.Errorf("CountSubmissions(1) = %d, want 1 (dead submission excluded)", subs)
	}

	results, err := svc.CountResults(1)
	if err != nil {
		t.Fatalf("CountResults(1) error = %v", err)
	}
	if results != 1 {
		t.Errorf("CountResults(1) = %d, want 1 (dead submission's result excluded)", results)
	}

	likes, err := svc.CountLikes(1)
	if err != nil {
		t.Fatalf("CountLikes(1) error = %v", err)
	}
	if likes != 3 {
		t.Errorf("CountLikes(1) = %d, want 3 (dead submission's likes excluded)", likes)
	}
}

// TestAggregation_DeletedRefExcluded 验证引用自身软删除后不再计数。
func TestAggregation_DeletedRefExcluded(t *testing.T) {
	svc := aggFixture(
		[]model.SubmissionCategoryRef{
			{ID: 1, SubmissionID: 10, CategoryID: 3, DeletedAt: deletedAt(time.Now())},
		},
		nil,
		[]model.Submission{{ID: 10}},
		nil,
	)

	got, err := svc.CountSubmissions(1)
	if err != nil {
		t.Fatalf("CountSubmissions(1) error = %v", err)
	}
	if got != 0 {
		t.Errorf("CountSubmissions(1) = %d, want 0", got)
	}
}

// TestAggregation_Annotate_FiltersEmpty 验证注解列表过滤掉提交数为零的分类。
func TestAggregation_Annotate_FiltersEmpty(t *testing.T) {
	svc := aggFixture(
		[]model.SubmissionCategoryRef{
			{ID: 1, SubmissionID: 10, CategoryID: 2},
		},
		[]model.Result{
			{ID: 1, SubmissionID: 10, CategoryID: 2},
		},
		[]model.Submission{{ID: 10}},
		map[uint]int{10: 4},
	)

	annotated, err := svc.Annotate([]model.Category{
		{ID: 1, Name: "root"},
		{ID: 3, Name: "leaf"}, // 叶子下没有任何引用
	}, nil)
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if len(annotated) != 1 {
		t.Fatalf("expect 1 annotated category, got %d", len(annotated))
	}
	entry := annotated[0]
	if entry.ID != 1 {
		t.Fatalf("expected root to survive, got category %d", entry.ID)
	}
	if entry.SubmissionCount != 1 || entry.ResultCount != 1 || entry.UpvoteTotal != 4 {
		t.Errorf("unexpected counts: %+v", entry)
	}
}

// TestAggregation_Annotate_SubscribedFlag 验证登录请求带订阅标注。
func TestAggregation_Annotate_SubscribedFlag(t *testing.T) {
	categoryRepo := treeCategoryRepo(map[uint]*model.Category{
		1: {ID: 1, Name: "root"},
	})
	tree := NewCategoryTree(categoryRepo)
	submissionRepo := &fakeSubmissionRepo{
		findByIDsUnscopedFn: func(ids []uint) ([]model.Submission, error) {
			return []model.Submission{{ID: 10}}, nil
		},
	}
	refRepo := &fakeRefRepo{
		findByCategoryIDsFn: func(categoryIDs []uint) ([]model.SubmissionCategoryRef, error) {
			return []model.SubmissionCategoryRef{{ID: 1, SubmissionID: 10, CategoryID: 1}}, nil
		},
	}
	subscriptionRepo := &fakeSubscriptionRepo{
		findByFksFn: func(userID, categoryID uint) (*model.CategorySubscription, error) {
			return &model.CategorySubscription{ID: 1, UserID: userID, CategoryID: categoryID}, nil
		},
	}
	svc := NewAggregationService(tree, NewLivenessLedger(submissionRepo), refRepo, &fakeResultRepo{}, submissionRepo, subscriptionRepo)

	annotated, err := svc.Annotate([]model.Category{{ID: 1, Name: "root"}}, uintPtr(7))
	if err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	if len(annotated) != 1 || !annotated[0].IsSubscribed {
		t.Fatalf("expect subscribed annotation, got %+v", annotated)
	}
}
