package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "node not found")
		if err.Error() != "[NOT_FOUND] node not found" {
			t.Errorf("expected [NOT_FOUND] node not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeBoundExceeded, "hop bound hit")
		if !IsCode(err, CodeBoundExceeded) {
			t.Error("expected IsCode to return true for wrapped CodeBoundExceeded")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := New(CodeExtractionDegraded, "file partially parsed")
		err = AddContext(err, CtxPath, "scripts/player.gd")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected a *DomainError")
		}
		if de.Context[CtxPath] != "scripts/player.gd" {
			t.Errorf("expected path context, got %v", de.Context)
		}
	})
}
