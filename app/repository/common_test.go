package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateEntryError(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !isDuplicateEntryError(fmt.Errorf("insert: %w", dup)) {
		t.Fatal("expected wrapped 1062 to be a duplicate entry error")
	}
	if isDuplicateEntryError(&mysqlDriver.MySQLError{Number: 1213}) {
		t.Fatal("deadlock must not be reported as duplicate entry")
	}
	if isDuplicateEntryError(errors.New("boom")) {
		t.Fatal("plain errors must not be reported as duplicate entry")
	}
}

func TestNullableConversions(t *testing.T) {
	if nullableStringValue(nil) != nil {
		t.Fatal("expected nil for nil string pointer")
	}
	s := "inv_1"
	if nullableStringValue(&s) != "inv_1" {
		t.Fatal("expected dereferenced string")
	}
	if stringPtrFromNull(sql.NullString{}) != nil {
		t.Fatal("expected nil pointer for invalid NullString")
	}
	now := time.Now().UTC()
	if got := timePtrFromNull(sql.NullTime{Time: now, Valid: true}); got == nil || !got.Equal(now) {
		t.Fatalf("unexpected time pointer: %v", got)
	}
	if nullableTimeValue(nil) != nil {
		t.Fatal("expected nil for nil time pointer")
	}
}

type fakeResult struct {
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

func TestExpectAffected(t *testing.T) {
	if err := expectAffected(fakeResult{affected: 1}, ErrTransactionNotFound); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := expectAffected(fakeResult{}, ErrTransactionNotFound); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}
