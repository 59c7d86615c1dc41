package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	cfg := Config{Server: "db", Port: 3307, Database: "rsvp", User: "app", Password: "pw", Timezone: "Asia/Jakarta"}
	want := "app:pw@tcp(db:3307)/rsvp?parseTime=true&loc=Asia%2FJakarta&multiStatements=true"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestErrorClassification(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}
	deadlock := &mysql.MySQLError{Number: 1213}

	tests := []struct {
		name      string
		err       error
		duplicate bool
		foreign   bool
		retryable bool
	}{
		{"duplicate", dup, true, false, false},
		{"wrapped duplicate", fmt.Errorf("insert guest: %w", dup), true, false, false},
		{"foreign key", fk, false, true, false},
		{"deadlock", deadlock, false, false, true},
		{"plain", errors.New("boom"), false, false, false},
		{"nil", nil, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateKey(tt.err); got != tt.duplicate {
				t.Errorf("IsDuplicateKey = %v", got)
			}
			if got := IsForeignKeyViolation(tt.err); got != tt.foreign {
				t.Errorf("IsForeignKeyViolation = %v", got)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v", got)
			}
		})
	}
}

func TestWithTxCommitAndRollback(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := WithTx(context.Background(), conn, func(*sql.Tx) error { return nil }); err != nil {
		t.Fatalf("commit path: %v", err)
	}

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	if err := WithTx(context.Background(), conn, func(*sql.Tx) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("rollback path returned %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithRetryTx(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}

	t.Run("deadlock then success", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer conn.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		err = WithRetryTx(context.Background(), conn, 3, func(*sql.Tx) error {
			calls++
			if calls == 1 {
				return deadlock
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithRetryTx: %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("other errors run once", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer conn.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		calls := 0
		err = WithRetryTx(context.Background(), conn, 3, func(*sql.Tx) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Fatalf("err = %v after %d calls, want boom after 1", err, calls)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer conn.Close()

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectRollback()
		}

		calls := 0
		err = WithRetryTx(context.Background(), conn, 2, func(*sql.Tx) error {
			calls++
			return fmt.Errorf("lock guest: %w", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
		})
		if !IsRetryable(err) || calls != 2 {
			t.Fatalf("err = %v after %d calls, want lock wait after 2", err, calls)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}
