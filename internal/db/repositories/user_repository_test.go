package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rede-de-patas/patas-api/internal/db/models"
)

var errDB = errors.New("db error")

var userCols = []string{
	"id", "name", "email", "phone", "postal_code", "address", "is_admin", "password_hash",
	"housing", "window_screens", "children_at_home", "open_area", "has_animals", "animal_types", "animal_count",
	"created_at", "updated_at",
}

func sampleUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols).AddRow(
		1, "Ana", "ana@example.com", "11999990000", "01001-000", "Rua A, 1", true, "$2a$hash",
		"apartment", true, false, nil, nil, nil, nil,
		time.Now(), time.Now(),
	)
}

func emptyUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols)
}

func newSqlxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func newUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSqlxMock(t)
	return NewUserRepository(db), mock
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserCreate_Success(t *testing.T) {
	repo, mock := newUserRepo(t)
	now := time.Now()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))

	u := &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "$2a$hash"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 7 {
		t.Errorf("ID = %d, want 7", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "ana@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestUserCreate_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("INSERT INTO users").WillReturnError(errDB)

	err := repo.Create(context.Background(), &models.User{})
	if !errors.Is(err, errDB) {
		t.Errorf("err = %v, want wrapped errDB", err)
	}
}

// ---------------------------------------------------------------------------
// GetByID / GetByEmail
// ---------------------------------------------------------------------------

func TestUserGetByID_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sampleUserRow())

	u, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.Email != "ana@example.com" || !u.IsAdmin {
		t.Errorf("unexpected user: %+v", u)
	}
	if u.Housing == nil || *u.Housing != "apartment" {
		t.Errorf("Housing = %v, want apartment", u.Housing)
	}
	if u.OpenArea != nil {
		t.Errorf("OpenArea = %v, want nil", u.OpenArea)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE id").WillReturnRows(emptyUserRow())

	u, err := repo.GetByID(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Error("expected nil, got non-nil")
	}
}

func TestUserGetByID_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE id").WillReturnError(errDB)

	if _, err := repo.GetByID(context.Background(), 1); !errors.Is(err, errDB) {
		t.Errorf("err = %v, want wrapped errDB", err)
	}
}

func TestUserGetByEmail_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE LOWER\\(email\\)").
		WithArgs("ANA@example.com").
		WillReturnRows(sampleUserRow())

	u, err := repo.GetByEmail(context.Background(), "ANA@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.ID != 1 {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE LOWER\\(email\\)").WillReturnRows(emptyUserRow())

	u, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if err != nil || u != nil {
		t.Errorf("GetByEmail() = %v, %v; want nil, nil", u, err)
	}
}

// ---------------------------------------------------------------------------
// List / Update / SetAdminByEmail
// ---------------------------------------------------------------------------

func TestUserList(t *testing.T) {
	repo, mock := newUserRepo(t)
	rows := sampleUserRow().AddRow(
		2, "Bruno", "bruno@example.com", nil, nil, nil, false, "$2a$hash",
		nil, nil, nil, nil, nil, nil, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT .* FROM users ORDER BY id").WillReturnRows(rows)

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len = %d, want 2", len(users))
	}
	if users[1].Phone != nil {
		t.Errorf("users[1].Phone = %v, want nil", users[1].Phone)
	}
}

func TestUserUpdate_Success(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("UPDATE users SET").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	if err := repo.Update(context.Background(), &models.User{ID: 1, Name: "Ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("UPDATE users SET").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	if err := repo.Update(context.Background(), &models.User{ID: 99}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUserUpdate_EmailTaken(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("UPDATE users SET").WillReturnError(&pq.Error{Code: "23505"})

	if err := repo.Update(context.Background(), &models.User{ID: 1}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSetAdminByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery("UPDATE users SET is_admin").
			WithArgs("ana@example.com", true).
			WillReturnRows(sampleUserRow())

		u, err := repo.SetAdminByEmail(context.Background(), "ana@example.com", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !u.IsAdmin {
			t.Error("IsAdmin = false, want true")
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newUserRepo(t)
		mock.ExpectQuery("UPDATE users SET is_admin").WillReturnRows(emptyUserRow())

		if _, err := repo.SetAdminByEmail(context.Background(), "x@example.com", true); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("err = %v, want ErrUserNotFound", err)
		}
	})
}
