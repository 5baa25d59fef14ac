package storage

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	awshttp "github.com/aws/smithy-go/transport/http"
)

func httpError(status int) error {
	return &awshttp.ResponseError{
		Response: &awshttp.Response{Response: &http.Response{StatusCode: status}},
		Err:      fmt.Errorf("http status %d", status),
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		transient bool
		permanent bool
	}{
		{"nil", nil, false, false, false},
		{"http 404", httpError(404), true, false, false},
		{"http 429", httpError(429), false, true, false},
		{"http 500", httpError(500), false, true, false},
		{"http 503", httpError(503), false, true, false},
		{"http 403", httpError(403), false, false, true},
		{"api NoSuchKey", &smithy.GenericAPIError{Code: "NoSuchKey"}, true, false, false},
		{"api SlowDown", &smithy.GenericAPIError{Code: "SlowDown"}, false, true, false},
		{"api AccessDenied", &smithy.GenericAPIError{Code: "AccessDenied"}, false, false, true},
		{"plain error", errors.New("something odd"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("test", tt.err)

			if tt.err == nil {
				if got != nil {
					t.Fatalf("nil must classify to nil, got %v", got)
				}
				return
			}
			if notFound := errors.Is(got, ErrNotFound); notFound != tt.notFound {
				t.Errorf("ErrNotFound = %v, expected %v", notFound, tt.notFound)
			}
			if transient := IsTransient(got); transient != tt.transient {
				t.Errorf("IsTransient = %v, expected %v", transient, tt.transient)
			}
			var pe *PermanentError
			if permanent := errors.As(got, &pe); permanent != tt.permanent {
				t.Errorf("PermanentError = %v, expected %v", permanent, tt.permanent)
			}
		})
	}
}

func TestClassifyPreservesCause(t *testing.T) {
	cause := httpError(500)
	got := classify("upload", cause)

	var respErr *awshttp.ResponseError
	if !errors.As(got, &respErr) {
		t.Error("classified error must wrap the original")
	}
}

func TestJoinKey(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "master.csv", "master.csv"},
		{"ledgers", "master.csv", "ledgers/master.csv"},
		{"ledgers/", "master.csv", "ledgers/master.csv"},
		{"a/b/", "c.csv", "a/b/c.csv"},
	}
	for _, tt := range tests {
		if got := joinKey(tt.prefix, tt.name); got != tt.want {
			t.Errorf("joinKey(%q, %q) = %q, expected %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := baseName("a/b/backup.csv"); got != "backup.csv" {
		t.Errorf("expected backup.csv, got %q", got)
	}
	if got := baseName("plain.csv"); got != "plain.csv" {
		t.Errorf("expected plain.csv, got %q", got)
	}
}
