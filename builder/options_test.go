// Author: momentics <momentics@gmail.com>

package builder

import (
	"testing"
	"time"

	"github.com/momentics/xtransport/api"
)

func TestValidateTCPClientRequiresAddr(t *testing.T) {
	o := New(WithBackend(api.BackendTCP), WithRole(RoleClient))
	err := o.Validate()
	if api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestValidateTCPServerRequiresAddr(t *testing.T) {
	o := New(WithBackend(api.BackendTCP), WithRole(RoleServer))
	err := o.Validate()
	if api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestValidateTCPWithAddrPasses(t *testing.T) {
	o := New(WithBackend(api.BackendTCP), WithRole(RoleClient), WithAddr("127.0.0.1:9000"))
	if err := o.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateIPCRequiresChannelName(t *testing.T) {
	o := New(WithBackend(api.BackendIPC))
	err := o.Validate()
	if api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestValidateInProcRequiresChannelName(t *testing.T) {
	o := New(WithBackend(api.BackendInProc))
	err := o.Validate()
	if api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestValidateUnknownBackend(t *testing.T) {
	o := New(WithBackend(api.Backend(99)))
	err := o.Validate()
	if api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestValidateReconnectBaseExceedsMax(t *testing.T) {
	o := New(
		WithBackend(api.BackendTCP),
		WithRole(RoleClient),
		WithAddr("127.0.0.1:9000"),
		WithReconnect(5*time.Second, time.Second),
	)
	err := o.Validate()
	if api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
