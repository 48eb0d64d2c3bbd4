package schema

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tech-paws/vm/internal/protocol"
)

// Dropped marks a record whose payload could not be completed. Consumers
// skip it.
const Dropped uint64 = 0

// System commands, 0x0001_xxxx.
const (
	CommandExecuteMacro      uint64 = 0x0001_0001
	CommandBeginMacro        uint64 = 0x0001_0002
	CommandEndMacro          uint64 = 0x0001_0003
	CommandUpdateViewport    uint64 = 0x0001_0004
	CommandAddTextBoundaries uint64 = 0x0001_0005
	CommandTouchStart        uint64 = 0x0001_0006
	CommandTouchEnd          uint64 = 0x0001_0007
	CommandTouchMove         uint64 = 0x0001_0008
)

// Graphics commands, 0x0002_xxxx.
const (
	CommandDrawLines          uint64 = 0x0002_0001
	CommandDrawPath           uint64 = 0x0002_0002
	CommandDrawQuads          uint64 = 0x0002_0003
	CommandDrawCenteredQuads  uint64 = 0x0002_0004
	CommandDrawTexts          uint64 = 0x0002_0005
	CommandSetColorPipeline   uint64 = 0x0002_0006
	CommandSetTexturePipeline uint64 = 0x0002_0007
	CommandSetViewport        uint64 = 0x0002_0008
)

// Transform commands, 0x0003_xxxx.
const (
	CommandTranslate uint64 = 0x0003_0001
	CommandRotate    uint64 = 0x0003_0002
	CommandScale     uint64 = 0x0003_0003
)

// Asset commands, 0x0004_xxxx.
const (
	CommandLoadTexture   uint64 = 0x0004_0001
	CommandUnloadTexture uint64 = 0x0004_0002
	CommandLoadFont      uint64 = 0x0004_0003
	CommandUnloadFont    uint64 = 0x0004_0004
)

// State commands, 0x0005_xxxx.
const (
	CommandPushState uint64 = 0x0005_0001
	CommandPopState  uint64 = 0x0005_0002
)

// Group returns the family prefix of id, e.g. 0x0001 for system commands.
func Group(id uint64) uint32 {
	return uint32(id >> 16)
}

// Info describes one catalogued command id.
type Info struct {
	ID      uint64
	Name    string
	Channel protocol.Channel
	// MinPayload is the smallest payload that can hold the command's fixed
	// fields.
	MinPayload uint64
}

type ValidationError struct {
	CommandID uint64
	Channel   protocol.Channel
	Reason    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: command_id=%#x channel=%s: %s", e.CommandID, e.Channel, e.Reason)
}

var catalog = map[uint64]Info{
	CommandExecuteMacro:      {Name: "execute_macro", Channel: protocol.ChannelLogic, MinPayload: 8},
	CommandBeginMacro:        {Name: "begin_macro", Channel: protocol.ChannelLogic, MinPayload: 8},
	CommandEndMacro:          {Name: "end_macro", Channel: protocol.ChannelLogic},
	CommandUpdateViewport:    {Name: "update_viewport", Channel: protocol.ChannelLogic, MinPayload: 8},
	CommandAddTextBoundaries: {Name: "add_text_boundaries", Channel: protocol.ChannelLogic, MinPayload: 8},
	CommandTouchStart:        {Name: "touch_start", Channel: protocol.ChannelLogic, MinPayload: 9},
	CommandTouchEnd:          {Name: "touch_end", Channel: protocol.ChannelLogic, MinPayload: 9},
	CommandTouchMove:         {Name: "touch_move", Channel: protocol.ChannelLogic, MinPayload: 9},

	CommandDrawLines:          {Name: "draw_lines", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandDrawPath:           {Name: "draw_path", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandDrawQuads:          {Name: "draw_quads", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandDrawCenteredQuads:  {Name: "draw_centered_quads", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandDrawTexts:          {Name: "draw_texts", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandSetColorPipeline:   {Name: "set_color_pipeline", Channel: protocol.ChannelRender, MinPayload: 16},
	CommandSetTexturePipeline: {Name: "set_texture_pipeline", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandSetViewport:        {Name: "set_viewport", Channel: protocol.ChannelRender, MinPayload: 8},

	CommandTranslate: {Name: "translate", Channel: protocol.ChannelRender, MinPayload: 12},
	CommandRotate:    {Name: "rotate", Channel: protocol.ChannelRender, MinPayload: 4},
	CommandScale:     {Name: "scale", Channel: protocol.ChannelRender, MinPayload: 12},

	CommandLoadTexture:   {Name: "load_texture", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandUnloadTexture: {Name: "unload_texture", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandLoadFont:      {Name: "load_font", Channel: protocol.ChannelRender, MinPayload: 8},
	CommandUnloadFont:    {Name: "unload_font", Channel: protocol.ChannelRender, MinPayload: 8},

	CommandPushState: {Name: "push_state", Channel: protocol.ChannelRender},
	CommandPopState:  {Name: "pop_state", Channel: protocol.ChannelRender},
}

func init() {
	for id, info := range catalog {
		info.ID = id
		catalog[id] = info
	}
}

// Lookup returns the catalog entry for id.
func Lookup(id uint64) (Info, bool) {
	info, ok := catalog[id]
	return info, ok
}

// Name returns the catalog name for id, or a hex form for ids outside the
// catalog. Module-private command ids are legal and simply have no name.
func Name(id uint64) string {
	if id == Dropped {
		return "dropped"
	}
	if info, ok := catalog[id]; ok {
		return info.Name
	}
	return fmt.Sprintf("%#010x", id)
}

// All returns the catalog sorted by id.
func All() []Info {
	out := make([]Info, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateChannel checks that a catalogued command is pushed into the channel
// it belongs to. Ids outside the catalog pass.
func ValidateChannel(id uint64, channel protocol.Channel) error {
	if id == Dropped {
		return ValidationError{CommandID: id, Channel: channel, Reason: "reserved command id"}
	}
	info, ok := catalog[id]
	if !ok || info.Channel == channel {
		return nil
	}
	log.Debug().
		Str("command", info.Name).
		Stringer("channel", channel).
		Stringer("want", info.Channel).
		Msg("schema.ValidateChannel mismatch")
	return ValidationError{CommandID: id, Channel: channel, Reason: "wrong channel, want " + info.Channel.String()}
}

// Validate is ValidateChannel plus a payload length check.
func Validate(id uint64, channel protocol.Channel, payloadLen uint64) error {
	if err := ValidateChannel(id, channel); err != nil {
		return err
	}
	info, ok := catalog[id]
	if ok && payloadLen < info.MinPayload {
		return ValidationError{
			CommandID: id,
			Channel:   channel,
			Reason:    fmt.Sprintf("payload %d bytes, need at least %d", payloadLen, info.MinPayload),
		}
	}
	return nil
}
