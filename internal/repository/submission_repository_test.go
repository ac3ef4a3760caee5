package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/gorm"
)

func newMockSubmissionRepo(t *testing.T) (SubmissionRepository, sqlmock.Sqlmock) {
	t.Helper()
	gdb, mock := newMockDB(t)
	return NewSubmissionRepository(gdb), mock
}

func submissionRows(id uint, approvedAt interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "name", "name_normal", "content_url", "thumbnail_url",
		"description", "approved_at", "created_at", "updated_at", "deleted_at",
	}).AddRow(id, 1, "Bell Pair", "bell pair", "https://example.com/bell", nil, "", approvedAt, now, now, nil)
}

// TestSubmissionRepository_FindApprovedLive 候选集查询：默认软删除作用域 +
// approved_at 非空过滤，并预加载点赞集合。
func TestSubmissionRepository_FindApprovedLive(t *testing.T) {
	repo, mock := newMockSubmissionRepo(t)

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `submissions` WHERE approved_at IS NOT NULL AND `submissions`.`deleted_at` IS NULL ORDER BY id ASC").
		WillReturnRows(submissionRows(1, now))
	mock.ExpectQuery("SELECT .* FROM `submission_likes` WHERE `submission_likes`.`submission_id`").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "user_id", "created_at"}).
			AddRow(1, 1, 7, now).
			AddRow(2, 1, 8, now))

	submissions, err := repo.FindApprovedLive()
	if err != nil {
		t.Fatalf("FindApprovedLive() error: %v", err)
	}
	if len(submissions) != 1 || len(submissions[0].Likes) != 2 {
		t.Fatalf("unexpected result: %+v", submissions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmissionRepository_FindByIDsUnscoped(t *testing.T) {
	repo, mock := newMockSubmissionRepo(t)

	deleted := time.Now()
	rows := submissionRows(1, nil)
	rows.AddRow(2, 1, "Ghost", "ghost", "https://example.com/ghost", nil, "", nil, deleted, deleted, deleted)
	// Unscoped：不带 deleted_at IS NULL 条件
	mock.ExpectQuery("SELECT .* FROM `submissions` WHERE id IN \\(\\?,\\?\\)$").
		WithArgs(1, 2).
		WillReturnRows(rows)

	submissions, err := repo.FindByIDsUnscoped([]uint{1, 2})
	if err != nil {
		t.Fatalf("FindByIDsUnscoped() error: %v", err)
	}
	if len(submissions) != 2 {
		t.Fatalf("expected 2 rows incl. soft-deleted, got %d", len(submissions))
	}
	if !submissions[1].DeletedAt.Valid {
		t.Fatal("soft-deleted row should carry its deletion marker")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}

	// 空集合不应打到数据库
	empty, err := repo.FindByIDsUnscoped(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("FindByIDsUnscoped(nil) = %v, %v; want empty, nil", empty, err)
	}
}

// TestSubmissionRepository_Approve 审核写入与幂等分支。
func TestSubmissionRepository_Approve(t *testing.T) {
	t.Run("first approval sets timestamp", func(t *testing.T) {
		repo, mock := newMockSubmissionRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .* FROM `submissions` WHERE `submissions`.`id` = \\? AND `submissions`.`deleted_at` IS NULL ORDER BY .* LIMIT \\?").
			WithArgs(1, 1).
			WillReturnRows(submissionRows(1, nil))
		mock.ExpectExec("UPDATE `submissions` SET .* WHERE id = \\?").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := repo.Approve(1, time.Now()); err != nil {
			t.Fatalf("Approve() error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("second approval is a no-op", func(t *testing.T) {
		repo, mock := newMockSubmissionRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .* FROM `submissions` WHERE `submissions`.`id` = \\? AND `submissions`.`deleted_at` IS NULL ORDER BY .* LIMIT \\?").
			WithArgs(1, 1).
			WillReturnRows(submissionRows(1, time.Now().Add(-time.Hour)))
		mock.ExpectCommit()

		if err := repo.Approve(1, time.Now()); err != nil {
			t.Fatalf("Approve() error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})
}

func TestSubmissionRepository_SoftDelete(t *testing.T) {
	repo, mock := newMockSubmissionRepo(t)

	// 软删除是 UPDATE deleted_at，不是物理 DELETE
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET `deleted_at`=\\? WHERE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SoftDelete(1); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubmissionRepository_SoftDelete_Missing(t *testing.T) {
	repo, mock := newMockSubmissionRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `submissions` SET `deleted_at`=\\? WHERE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.SoftDelete(42); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestSubmissionRepository_ToggleLike 点赞开关的两个分支。
func TestSubmissionRepository_ToggleLike(t *testing.T) {
	t.Run("first like inserts a row", func(t *testing.T) {
		repo, mock := newMockSubmissionRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .* FROM `submission_likes` WHERE submission_id = \\? AND user_id = \\? ORDER BY .* LIMIT \\?").
			WithArgs(1, 7, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "user_id", "created_at"}))
		mock.ExpectExec("INSERT INTO `submission_likes`").
			WillReturnResult(sqlmock.NewResult(5, 1))
		mock.ExpectCommit()

		liked, err := repo.ToggleLike(1, 7)
		if err != nil {
			t.Fatalf("ToggleLike() error: %v", err)
		}
		if !liked {
			t.Fatal("first toggle should report liked=true")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("second like deletes the row", func(t *testing.T) {
		repo, mock := newMockSubmissionRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .* FROM `submission_likes` WHERE submission_id = \\? AND user_id = \\? ORDER BY .* LIMIT \\?").
			WithArgs(1, 7, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "user_id", "created_at"}).
				AddRow(5, 1, 7, time.Now()))
		mock.ExpectExec("DELETE FROM `submission_likes` WHERE").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		liked, err := repo.ToggleLike(1, 7)
		if err != nil {
			t.Fatalf("ToggleLike() error: %v", err)
		}
		if liked {
			t.Fatal("second toggle should report liked=false")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})
}

func TestSubmissionRepository_LikeCounts(t *testing.T) {
	repo, mock := newMockSubmissionRepo(t)

	mock.ExpectQuery("SELECT submission_id, COUNT\\(\\*\\) as total FROM `submission_likes` WHERE submission_id IN \\(\\?,\\?\\) GROUP BY `submission_id`").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"submission_id", "total"}).
			AddRow(1, 3).
			AddRow(2, 1))

	counts, err := repo.LikeCounts([]uint{1, 2})
	if err != nil {
		t.Fatalf("LikeCounts() error: %v", err)
	}
	if counts[1] != 3 || counts[2] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
