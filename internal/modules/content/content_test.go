package content

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestValidationErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("create note: %w", Invalid("title", "too long"))
	if !errors.Is(err, ErrValidation) {
		t.Error("expected ErrValidation")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "title" {
		t.Errorf("errors.As failed: %v", err)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("UNIQUE constraint failed: notes.slug"), true},
		{&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{&mysqlDriver.MySQLError{Number: 1146}, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsDuplicateKey(tt.err); got != tt.want {
			t.Errorf("IsDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
