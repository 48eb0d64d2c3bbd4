package schema

import (
	"errors"
	"testing"

	"github.com/tech-paws/vm/internal/protocol"
	"github.com/tech-paws/vm/internal/testutil/testlog"
)

func TestCatalogGroupsMatchChannels(t *testing.T) {
	testlog.Start(t)
	for _, info := range All() {
		switch Group(info.ID) {
		case 0x0001:
			if info.Channel != protocol.ChannelLogic {
				t.Fatalf("%s: system command on %s", info.Name, info.Channel)
			}
		case 0x0002, 0x0003, 0x0004, 0x0005:
			if info.Channel != protocol.ChannelRender {
				t.Fatalf("%s: render command on %s", info.Name, info.Channel)
			}
		default:
			t.Fatalf("%s: unexpected group %#x", info.Name, Group(info.ID))
		}
	}
}

func TestAllIsSortedAndComplete(t *testing.T) {
	testlog.Start(t)
	all := All()
	if len(all) != 25 {
		t.Fatalf("catalog size=%d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("catalog not sorted at %d: %#x >= %#x", i, all[i-1].ID, all[i].ID)
		}
	}
	info, ok := Lookup(CommandTouchMove)
	if !ok || info.ID != CommandTouchMove || info.Name != "touch_move" {
		t.Fatalf("lookup touch_move: %+v ok=%v", info, ok)
	}
}

func TestName(t *testing.T) {
	testlog.Start(t)
	if got := Name(CommandDrawTexts); got != "draw_texts" {
		t.Fatalf("name=%q", got)
	}
	if got := Name(Dropped); got != "dropped" {
		t.Fatalf("name=%q", got)
	}
	if got := Name(0x00ff_0001); got != "0x00ff0001" {
		t.Fatalf("name=%q", got)
	}
}

func TestValidateAcceptsModuleCommands(t *testing.T) {
	testlog.Start(t)
	if err := Validate(0x00ff_0001, protocol.ChannelLogic, 0); err != nil {
		t.Fatalf("uncatalogued command rejected: %v", err)
	}
	if err := Validate(CommandSetColorPipeline, protocol.ChannelRender, 16); err != nil {
		t.Fatalf("set_color_pipeline rejected: %v", err)
	}
}

func TestValidateChannelMismatchDeterministic(t *testing.T) {
	testlog.Start(t)
	err := Validate(CommandTouchStart, protocol.ChannelRender, 9)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.CommandID != CommandTouchStart || ve.Reason != "wrong channel, want logic" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateShortPayload(t *testing.T) {
	testlog.Start(t)
	err := Validate(CommandSetColorPipeline, protocol.ChannelRender, 8)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if err := Validate(Dropped, protocol.ChannelLogic, 0); err == nil {
		t.Fatalf("expected dropped id to be rejected")
	}
}
