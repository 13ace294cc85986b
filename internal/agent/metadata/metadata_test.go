package metadata

import "testing"

func TestNew(t *testing.T) {
	t.Parallel()

	md := New(KeyProcessID, "proc-1", KeyStepName, "check")
	if len(md) != 2 || md[KeyProcessID] != "proc-1" || md[KeyStepName] != "check" {
		t.Fatalf("unexpected metadata %v", md)
	}

	// A trailing key without a value is dropped.
	md = New(KeyProcessID, "proc-1", KeyStepName)
	if len(md) != 1 {
		t.Fatalf("unexpected metadata %v", md)
	}
}

func TestCloneAndWith(t *testing.T) {
	t.Parallel()

	original := New(KeyProcessID, "proc-1")

	cloned := original.Clone()
	cloned[KeyProcessID] = "proc-2"
	if original[KeyProcessID] != "proc-1" {
		t.Fatal("Clone shares storage with the original")
	}

	extended := original.With(KeyAttempt, "2")
	if extended[KeyAttempt] != "2" || extended[KeyProcessID] != "proc-1" {
		t.Fatalf("unexpected metadata %v", extended)
	}
	if _, ok := original[KeyAttempt]; ok {
		t.Fatal("With mutated the original")
	}

	var empty Metadata
	if got := empty.Clone(); got == nil || len(got) != 0 {
		t.Fatalf("unexpected clone %v", got)
	}
}
