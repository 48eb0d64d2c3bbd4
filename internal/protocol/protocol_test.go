package protocol

import (
	"errors"
	"testing"
)

func TestParseChannel(t *testing.T) {
	cases := map[string]Channel{
		"render":    ChannelRender,
		" GAPI ":    ChannelRender,
		"logic":     ChannelLogic,
		"processor": ChannelLogic,
	}
	for raw, want := range cases {
		got, err := ParseChannel(raw)
		if err != nil || got != want {
			t.Fatalf("ParseChannel(%q)=%v,%v want %v", raw, got, err, want)
		}
	}
	if _, err := ParseChannel("audio"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestChannelString(t *testing.T) {
	if ChannelRender.String() != "render" || ChannelLogic.String() != "logic" {
		t.Fatalf("unexpected names: %s %s", ChannelRender, ChannelLogic)
	}
	if Channel(7).Valid() {
		t.Fatalf("channel 7 must be invalid")
	}
	if Channel(7).String() != "channel(7)" {
		t.Fatalf("unexpected name for invalid channel: %s", Channel(7))
	}
}

func TestViolatefPanicsWithViolation(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrProtocolViolation) {
			t.Fatalf("expected protocol violation panic, got %v", r)
		}
		var v Violation
		if !errors.As(err, &v) || v.Op != "cmdlog.End" {
			t.Fatalf("unexpected violation: %+v", v)
		}
	}()
	Violatef("cmdlog.End", "no pending command on %s", ChannelRender)
}
