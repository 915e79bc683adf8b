package live

import (
	"testing"
	"time"
)

func TestNewClient_AppliesTimeouts(t *testing.T) {
	r := NewClient("localhost:6379")
	defer r.Close()

	opts := r.Options()
	if opts.Addr != "localhost:6379" {
		t.Errorf("addr=%s want=localhost:6379", opts.Addr)
	}
	for _, tc := range []struct {
		name string
		got  time.Duration
	}{
		{"dial", opts.DialTimeout},
		{"read", opts.ReadTimeout},
		{"write", opts.WriteTimeout},
	} {
		if tc.got != 2*time.Second {
			t.Errorf("%s timeout=%v want=2s", tc.name, tc.got)
		}
	}
}
