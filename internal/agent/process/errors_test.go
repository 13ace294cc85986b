package process

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("failed is terminal", func(t *testing.T) {
		if Classify(Fail(nil, "broken")) != KindFailed {
			t.Fatal("expected KindFailed")
		}
	})

	t.Run("recoverable", func(t *testing.T) {
		if Classify(Recover(errors.New("io"), "transient")) != KindRecoverable {
			t.Fatal("expected KindRecoverable")
		}
	})

	t.Run("retry signal", func(t *testing.T) {
		if Classify(Again("not done")) != KindRetry {
			t.Fatal("expected KindRetry")
		}
	})

	t.Run("plain errors default to recoverable", func(t *testing.T) {
		if Classify(errors.New("anything")) != KindRecoverable {
			t.Fatal("expected KindRecoverable for unclassified errors")
		}
	})

	t.Run("wrapped failures stay terminal", func(t *testing.T) {
		err := fmt.Errorf("step boundary: %w", Fail(errors.New("db"), "gone"))
		if Classify(err) != KindFailed {
			t.Fatal("expected KindFailed through wrapping")
		}
	})
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	t.Run("failed without cause", func(t *testing.T) {
		if got := Fail(nil, "missing input").Error(); got != "missing input" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("failed with cause", func(t *testing.T) {
		err := Fail(errors.New("eof"), "read source")
		if got := err.Error(); got != "read source: eof" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("unwrap exposes the cause", func(t *testing.T) {
		cause := errors.New("eof")
		if !errors.Is(Recover(cause, "transient"), cause) {
			t.Fatal("expected errors.Is to reach the cause")
		}
	})
}
