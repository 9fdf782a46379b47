package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(KindAuthentication, "no session")
	if e.Error() != "authentication: no session" {
		t.Errorf("Unexpected message: %s", e.Error())
	}

	cause := stderrors.New("socket closed")
	w := Wrap(KindBrowser, "tab crashed", cause)
	if !stderrors.Is(w, cause) {
		t.Error("Wrapped cause should be reachable via errors.Is")
	}
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
		fatal     bool
	}{
		{KindAuthentication, false, true},
		{KindTransientRemoval, true, false},
		{KindFatalRemoval, false, false},
		{KindCircuitBreaker, false, false},
		{KindArtifactWrite, false, true},
		{KindBrowser, true, false},
		{KindUnknown, false, false},
	}

	for _, test := range tests {
		t.Run(string(test.kind), func(t *testing.T) {
			if got := IsRetryable(test.kind); got != test.retryable {
				t.Errorf("IsRetryable(%s) = %v, want %v", test.kind, got, test.retryable)
			}
			if got := IsFatal(test.kind); got != test.fatal {
				t.Errorf("IsFatal(%s) = %v, want %v", test.kind, got, test.fatal)
			}
		})
	}
}
