package simerr

import (
	"errors"
	"io"
	"testing"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{Validation("radius %v", -1.0), ErrValidation},
		{State("clock %s", "stopped"), ErrState},
		{NotFound("airspace %q", "a1"), ErrNotFound},
		{TransientIO("kinematics", io.EOF), ErrTransientIO},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.kind) {
			t.Fatalf("%v is not %v", c.err, c.kind)
		}
	}
}

func TestTransientIOKeepsCause(t *testing.T) {
	err := TransientIO("connect", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("cause lost: %v", err)
	}
	if got := err.Error(); got != "connect: transient io error: unexpected EOF" {
		t.Fatalf("unexpected message %q", got)
	}
}
