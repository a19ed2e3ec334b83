package transport

import (
	"errors"
	"testing"
)

func TestTransferFileDisabled(t *testing.T) {
	result := TransferFile("/tmp/a", "b", Options{Enabled: false})
	if result.Success {
		t.Fatalf("expected failure when transport disabled")
	}
	if result.Err == nil || result.Err.Error() != "transport disabled" {
		t.Errorf("Err = %v, want %q", result.Err, "transport disabled")
	}
}

func TestTransferFileUnsupportedProtocol(t *testing.T) {
	result := TransferFile("/tmp/a", "b", Options{Enabled: true, Protocol: "gopher"})
	if result.Success {
		t.Fatalf("expected failure for unsupported protocol")
	}
	var terr *Error
	if !errors.As(result.Err, &terr) || terr.Code != ErrUnsupportedProtocol {
		t.Errorf("Err = %v, want ErrUnsupportedProtocol", result.Err)
	}
}

func TestJoinRemotePath(t *testing.T) {
	cases := []struct{ root, rel, want string }{
		{"/incoming", "a/b.zip", "/incoming/a/b.zip"},
		{"/incoming/", "/a/b.zip", "/incoming/a/b.zip"},
		{"", "a/b.zip", "/a/b.zip"},
		{"/", "a.zip", "/a.zip"},
	}
	for _, c := range cases {
		if got := joinRemotePath(c.root, c.rel); got != c.want {
			t.Errorf("joinRemotePath(%q, %q) = %q, want %q", c.root, c.rel, got, c.want)
		}
	}
}
