package virterr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  &Error{Kind: KindActionFailed},
			want: "action_failed",
		},
		{
			name: "op and name",
			err:  &Error{Kind: KindDomainNotFound, Op: "vm.start", Name: "web-01"},
			want: "vm.start: domain_not_found (web-01)",
		},
		{
			name: "with cause and detail",
			err: &Error{
				Kind:   KindDiskCreateFailed,
				Op:     "vm.create",
				Name:   "web-01",
				Detail: "qemu-img: permission denied",
				Err:    errors.New("exit status 1"),
			},
			want: "vm.create: disk_creation_failed (web-01): exit status 1: qemu-img: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := Wrap(KindDomainNotFound, "vm.stop", "web-01", errors.New("no such domain"))

	if !errors.Is(err, &Error{Kind: KindDomainNotFound}) {
		t.Error("expected errors.Is to match by kind")
	}
	if errors.Is(err, &Error{Kind: KindActionFailed}) {
		t.Error("expected errors.Is not to match a different kind")
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := New(KindPoolNotFound, "storage.resolve", "default")
	outer := fmt.Errorf("create failed: %w", inner)

	if !errors.Is(outer, &Error{Kind: KindPoolNotFound}) {
		t.Error("expected kind match through fmt.Errorf wrapping")
	}
	if KindOf(outer) != KindPoolNotFound {
		t.Errorf("KindOf() = %q, want %q", KindOf(outer), KindPoolNotFound)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(KindConnection, "hypervisor.connect", "", cause)

	if !errors.Is(err, cause) {
		t.Error("expected underlying cause to be reachable via errors.Is")
	}
}

func TestKindOfNonVirterr(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", got)
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindDomainNotFound, http.StatusNotFound},
		{KindPoolNotFound, http.StatusNotFound},
		{KindInvalidRequest, http.StatusBadRequest},
		{KindInvalidSnapshot, http.StatusBadRequest},
		{KindConnection, http.StatusInternalServerError},
		{KindActionFailed, http.StatusInternalServerError},
		{KindRelaySpawnFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := HTTPStatus(New(tt.kind, "op", "")); got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}

	if got := HTTPStatus(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus(plain) = %d, want 500", got)
	}
}
