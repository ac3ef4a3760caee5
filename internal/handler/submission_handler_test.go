package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/service"

	"github.com/gin-gonic/gin"
)

type fakeSubmissionService struct {
	submitFn        func(userID uint, params service.SubmissionParams) (*model.Submission, error)
	getFn           func(id uint, viewerID *uint) (*model.RankedSubmission, error)
	updateFn        func(id uint, description, thumbnailURL string) (*model.Submission, error)
	approveFn       func(id uint) error
	deleteIfOwnerFn func(userID, id uint) error
	upvoteFn        func(id, userID uint) (bool, int, error)
	addTagFn        func(id uint, tagName string) error
	removeTagFn     func(id uint, tagName string) error
}

func (f *fakeSubmissionService) Submit(userID uint, params service.SubmissionParams) (*model.Submission, error) {
	if f.submitFn != nil {
		return f.submitFn(userID, params)
	}
	return &model.Submission{ID: 1, UserID: userID}, nil
}
func (f *fakeSubmissionService) Get(id uint, viewerID *uint) (*model.RankedSubmission, error) {
	if f.getFn != nil {
		return f.getFn(id, viewerID)
	}
	return &model.RankedSubmission{Submission: model.Submission{ID: id}}, nil
}
func (f *fakeSubmissionService) Update(id uint, description, thumbnailURL string) (*model.Submission, error) {
	if f.updateFn != nil {
		return f.updateFn(id, description, thumbnailURL)
	}
	return &model.Submission{ID: id}, nil
}
func (f *fakeSubmissionService) Approve(id uint) error {
	if f.approveFn != nil {
		return f.approveFn(id)
	}
	return nil
}
func (f *fakeSubmissionService) DeleteIfOwner(userID, id uint) error {
	if f.deleteIfOwnerFn != nil {
		return f.deleteIfOwnerFn(userID, id)
	}
	return nil
}
func (f *fakeSubmissionService) Upvote(id, userID uint) (bool, int, error) {
	if f.upvoteFn != nil {
		return f.upvoteFn(id, userID)
	}
	return true, 1, nil
}
func (f *fakeSubmissionService) AddTag(id uint, tagName string) error {
	if f.addTagFn != nil {
		return f.addTagFn(id, tagName)
	}
	return nil
}
func (f *fakeSubmissionService) RemoveTag(id uint, tagName string) error {
	if f.removeTagFn != nil {
		return f.removeTagFn(id, tagName)
	}
	return nil
}

type fakeRankingService struct {
	rankFn func(ordering service.Ordering, tagName string, offset, limit int, viewerID *uint) ([]model.RankedSubmission, error)
}

func (f *fakeRankingService) Rank(ordering service.Ordering, tagName string, offset, limit int, viewerID *uint) ([]model.RankedSubmission, error) {
	if f.rankFn != nil {
		return f.rankFn(ordering, tagName, offset, limit, viewerID)
	}
	return []model.RankedSubmission{}, nil
}

type fakeResultService struct {
	submitFn             func(userID, submissionID uint, params service.ResultParams) (*model.Result, error)
	findBySubmissionIDFn func(submissionID uint) ([]model.Result, error)
	deleteFn             func(id uint) error
}

func (f *fakeResultService) Submit(userID, submissionID uint, params service.ResultParams) (*model.Result, error) {
	if f.submitFn != nil {
		return f.submitFn(userID, submissionID, params)
	}
	return &model.Result{ID: 1, SubmissionID: submissionID}, nil
}
func (f *fakeResultService) FindBySubmissionID(submissionID uint) ([]model.Result, error) {
	if f.findBySubmissionIDFn != nil {
		return f.findBySubmissionIDFn(submissionID)
	}
	return []model.Result{}, nil
}
func (f *fakeResultService) Delete(id uint) error {
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

type fakeSearchService struct {
	indexFn  func(submission *model.Submission) error
	searchFn func(query string, limit int) ([]model.Submission, error)
}

func (f *fakeSearchService) Index(submission *model.Submission) error {
	if f.indexFn != nil {
		return f.indexFn(submission)
	}
	return nil
}
func (f *fakeSearchService) Search(query string, limit int) ([]model.Submission, error) {
	if f.searchFn != nil {
		return f.searchFn(query, limit)
	}
	return []model.Submission{}, nil
}

// injectUser 模拟 AuthMiddleware：把登录用户放进上下文。
func injectUser(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", user)
		c.Next()
	}
}

func newSubmissionRouter(h *SubmissionHandler, user *model.User) *gin.Engine {
	r := gin.New()
	r.GET("/submissions/trending", h.Rank("trending"))
	r.GET("/submissions/trending/tag/:name", h.Rank("trending"))
	r.GET("/submissions/latest", h.Rank("latest"))
	r.GET("/submissions/:id", h.Get)

	authed := r.Group("/")
	if user != nil {
		authed.Use(injectUser(user))
	}
	authed.POST("/submissions", h.Submit)
	authed.POST("/submissions/:id/upvote", h.Upvote)
	authed.DELETE("/submissions/:id", h.Delete)
	return r
}

func doReq(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSubmissionHandler_Rank_PassesOrderingAndPaging(t *testing.T) {
	var gotOrdering service.Ordering
	var gotTag string
	var gotOffset, gotLimit int
	rank := &fakeRankingService{
		rankFn: func(ordering service.Ordering, tagName string, offset, limit int, viewerID *uint) ([]model.RankedSubmission, error) {
			gotOrdering, gotTag, gotOffset, gotLimit = ordering, tagName, offset, limit
			if viewerID != nil {
				t.Fatalf("anonymous request carried viewer id %d", *viewerID)
			}
			return []model.RankedSubmission{{Submission: model.Submission{ID: 5}}}, nil
		},
	}
	h := NewSubmissionHandler(&fakeSubmissionService{}, rank, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, nil)

	w := doReq(r, http.MethodGet, "/submissions/trending/tag/vision?offset=3&limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expect 200, got %d, body=%s", w.Code, w.Body.String())
	}
	if gotOrdering != service.OrderingTrending || gotTag != "vision" || gotOffset != 3 || gotLimit != 5 {
		t.Fatalf("unexpected call: ordering=%v tag=%q offset=%d limit=%d", gotOrdering, gotTag, gotOffset, gotLimit)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	data, ok := resp["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("expect 1 entry in data, got %v", resp["data"])
	}
}

// Rank 边界：空榜返回 200 和空数组，而不是 null。
func TestSubmissionHandler_Rank_EmptyPage(t *testing.T) {
	h := NewSubmissionHandler(&fakeSubmissionService{}, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, nil)

	w := doReq(r, http.MethodGet, "/submissions/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expect 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if _, ok := resp["data"].([]any); !ok {
		t.Fatalf("expect data to be array, got %T", resp["data"])
	}
}

func TestSubmissionHandler_Rank_InvalidPaging(t *testing.T) {
	rank := &fakeRankingService{
		rankFn: func(ordering service.Ordering, tagName string, offset, limit int, viewerID *uint) ([]model.RankedSubmission, error) {
			return nil, service.ErrInvalidInput
		},
	}
	h := NewSubmissionHandler(&fakeSubmissionService{}, rank, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, nil)

	w := doReq(r, http.MethodGet, "/submissions/latest?limit=-1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expect 400, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmissionHandler_Submit(t *testing.T) {
	svc := &fakeSubmissionService{
		submitFn: func(userID uint, params service.SubmissionParams) (*model.Submission, error) {
			if userID != 7 {
				t.Fatalf("unexpected userID: %d", userID)
			}
			if params.Name != "Bell Pair" || params.Tags != "vision,nlp" {
				t.Fatalf("unexpected params: %+v", params)
			}
			return &model.Submission{ID: 3, UserID: userID, Name: params.Name}, nil
		},
	}
	h := NewSubmissionHandler(svc, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, &model.User{ID: 7, Username: "alice"})

	w := doReq(r, http.MethodPost, "/submissions",
		`{"name":"Bell Pair","contentUrl":"https://example.com/bell","tags":"vision,nlp"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expect 201, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmissionHandler_Submit_MissingBodyField(t *testing.T) {
	h := NewSubmissionHandler(&fakeSubmissionService{}, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, &model.User{ID: 7})

	// contentUrl 是必填字段
	w := doReq(r, http.MethodPost, "/submissions", `{"name":"Bell Pair"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expect 400, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmissionHandler_Submit_NoUser(t *testing.T) {
	h := NewSubmissionHandler(&fakeSubmissionService{}, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, nil)

	w := doReq(r, http.MethodPost, "/submissions",
		`{"name":"Bell Pair","contentUrl":"https://example.com/bell"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expect 401, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmissionHandler_Upvote(t *testing.T) {
	svc := &fakeSubmissionService{
		upvoteFn: func(id, userID uint) (bool, int, error) {
			if id != 3 || userID != 7 {
				t.Fatalf("unexpected call: id=%d userID=%d", id, userID)
			}
			return true, 4, nil
		},
	}
	h := NewSubmissionHandler(svc, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, &model.User{ID: 7})

	w := doReq(r, http.MethodPost, "/submissions/3/upvote", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expect 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			IsUpvoted   bool `json:"isUpvoted"`
			UpvoteCount int  `json:"upvoteCount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Data.IsUpvoted || resp.Data.UpvoteCount != 4 {
		t.Fatalf("unexpected data: %+v", resp.Data)
	}
}

func TestSubmissionHandler_Delete_NotOwner(t *testing.T) {
	svc := &fakeSubmissionService{
		deleteIfOwnerFn: func(userID, id uint) error {
			return service.ErrSubmissionNotOwned
		},
	}
	h := NewSubmissionHandler(svc, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, &model.User{ID: 7})

	w := doReq(r, http.MethodDelete, "/submissions/3", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expect 403, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmissionHandler_Get_NotFound(t *testing.T) {
	svc := &fakeSubmissionService{
		getFn: func(id uint, viewerID *uint) (*model.RankedSubmission, error) {
			return nil, service.ErrSubmissionNotFound
		},
	}
	h := NewSubmissionHandler(svc, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, nil)

	w := doReq(r, http.MethodGet, "/submissions/42", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expect 404, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSubmissionHandler_Get_BadID(t *testing.T) {
	h := NewSubmissionHandler(&fakeSubmissionService{}, &fakeRankingService{}, &fakeResultService{}, &fakeSearchService{})
	r := newSubmissionRouter(h, nil)

	w := doReq(r, http.MethodGet, "/submissions/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expect 400, got %d, body=%s", w.Code, w.Body.String())
	}
}
