package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrBaseTagAndRetry(t *testing.T) {
	var err = NewNetError().WithError(errors.New("dial tcp: refused"))
	if !HasTag(err, ErrNet) {
		t.Fatal("net tag missing")
	}
	if !err.ShouldRetry() {
		t.Fatal("network errors retry by default")
	}
	var api = NewApiError().WithCode(1675004).WithMessage("Rate limit exceeded")
	if api.ShouldRetry() {
		t.Fatal("api errors are terminal")
	}
	if !HasTag(api, ErrApi) {
		t.Fatal("tag lookup must reach the embedded base")
	}
}

func TestStatusErrorRetry(t *testing.T) {
	if !NewStatusError(502).ShouldRetry() {
		t.Fatal("5xx gateway status should retry")
	}
	if NewStatusError(404).ShouldRetry() {
		t.Fatal("404 is terminal")
	}
	if !HasTag(NewStatusError(500), ErrStatus) {
		t.Fatal("status tag missing")
	}
}

func TestErrBaseWrapping(t *testing.T) {
	var inner = errors.New("boom")
	var err = NewBase().WithTag(ErrBadResponse).WithError(inner)
	if !errors.Is(err, inner) {
		t.Fatal("wrapped error lost")
	}
	var wrapped = fmt.Errorf("context: %w", err)
	if !HasTag(wrapped, ErrBadResponse) {
		t.Fatal("tag lookup must walk the chain")
	}
}

func TestTagOf(t *testing.T) {
	if TagOf(NewBlockError()) != ErrBlockSignal {
		t.Fatal("wrong tag")
	}
	if TagOf(errors.New("plain")) != "" {
		t.Fatal("plain errors carry no tag")
	}
	if TagOf(nil) != "" {
		t.Fatal("nil safe")
	}
}

func TestErrBaseFields(t *testing.T) {
	var err = NewBase().WithTag(ErrResolveFailed).WithField("input", "https://fb.com/x")
	if HasTag(err, ErrNet) {
		t.Fatal("wrong tag matched")
	}
	if err.Error() == "" {
		t.Fatal("empty message")
	}
}
