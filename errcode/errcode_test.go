package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"card_absent":        CardAbsent,
		"init_timeout":       InitTimeout,
		"response_error":     ResponseError,
		"data_token_error":   DataTokenError,
		"write_rejected":     WriteRejected,
		"write_busy_timeout": WriteBusyTimeout,
		"address_range":      AddressRange,
		"not_ready":          NotReady,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestOfAndIs(t *testing.T) {
	e := New(WriteRejected, "sdcard.write", "data response 0x0b")
	if Of(e) != WriteRejected {
		t.Fatalf("Of = %q", Of(e))
	}
	if !errors.Is(e, WriteRejected) {
		t.Fatal("errors.Is should match the code")
	}
	if errors.Is(e, ResponseError) {
		t.Fatal("errors.Is matched the wrong code")
	}
	wrapped := fmt.Errorf("flush: %w", e)
	if Of(wrapped) != WriteRejected {
		t.Fatalf("Of through fmt wrap = %q", Of(wrapped))
	}
	if Of(nil) != OK || Of(errors.New("x")) != Error {
		t.Fatal("Of defaults")
	}
	if got := e.Error(); got != "sdcard.write: write_rejected: data response 0x0b" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Bus, "op", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	cause := errors.New("spi fault")
	err := Wrap(Bus, "sdcard.xfer", cause)
	if !errors.Is(err, cause) || !errors.Is(err, Bus) {
		t.Fatalf("Wrap lost identity: %v", err)
	}
}
