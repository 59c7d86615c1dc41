package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func newMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		conn.Close()
	})
	return NewUserRepositoryWithDB(conn), mock
}

func TestFindByEmail(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role", "created_at"}).
			AddRow(3, "a@example.com", "$2a$hash", "admin", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role", "created_at"}))

	u, err := repo.FindByEmail(context.Background(), "a@example.com")
	if err != nil || u == nil || u.ID != 3 || u.Role != "admin" {
		t.Fatalf("FindByEmail = %+v, %v", u, err)
	}
	u, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	if err != nil || u != nil {
		t.Fatalf("missing user = %+v, %v", u, err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, password, role) VALUES (?, ?, ?)")).
		WithArgs("a@example.com", "hash", "user").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(context.Background(), "a@example.com", "hash", "user")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}
