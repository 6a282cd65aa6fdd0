//go:build linux

package ime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"brailled/internal/braille"
	"brailled/internal/chord"
	"brailled/internal/engine"
	"brailled/internal/logging"
	"brailled/internal/unify"
)

// IBus D-Bus constants.
const (
	ibusFactoryInterface = "org.freedesktop.IBus.Factory"
	ibusEngineInterface  = "org.freedesktop.IBus.Engine"
	busName              = "org.brailled.IBus"
	enginePath           = dbus.ObjectPath("/org/freedesktop/IBus/Engine/brailled")
	factoryPath          = dbus.ObjectPath("/org/freedesktop/IBus/Factory")
)

// IBus key event state masks.
const (
	ibusControlMask uint32 = 1 << 2
	ibusMod1Mask    uint32 = 1 << 3
	ibusMod4Mask    uint32 = 1 << 6
	ibusReleaseMask uint32 = 1 << 30
)

// IBusBridge is the IBus engine: it consumes home-row chord keys,
// aggregates them into cells, and commits the translated print text.
type IBusBridge struct {
	conn       *dbus.Conn
	config     Config
	aggregator *chord.Aggregator
	engine     *engine.Engine
	log        *logging.Logger

	mu      sync.Mutex
	enabled bool
	focused bool

	stats BridgeStats
}

// BridgeStats tracks bridge activity.
type BridgeStats struct {
	DotPresses   uint64
	Chords       uint64
	Commits      uint64
	CommitErrors uint64
}

// NewIBusBridge creates a bridge over the given engine.
func NewIBusBridge(cfg Config, eng *engine.Engine, log *logging.Logger) *IBusBridge {
	if cfg.Keymap == nil {
		cfg.Keymap = DefaultKeymap()
	}
	b := &IBusBridge{
		config: cfg,
		engine: eng,
		log:    log.WithComponent("ibus"),
	}
	b.aggregator = chord.New(cfg.ChordTimeout, b.onChord)
	eng.SetModeChangeCallback(b.onModeChange)
	return b
}

// Start connects to the session bus and registers the engine.
func (b *IBusBridge) Start(ctx context.Context) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}
	b.conn = conn

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("bus name already taken; is another bridge running?")
	}

	factory := &ibusFactory{bridge: b}
	if err := conn.Export(factory, factoryPath, ibusFactoryInterface); err != nil {
		return fmt.Errorf("export factory: %w", err)
	}
	if err := conn.Export(b, enginePath, ibusEngineInterface); err != nil {
		return fmt.Errorf("export engine: %w", err)
	}

	b.log.Info("ibus bridge started", "bus_name", busName)
	return nil
}

// Stop flushes pending input and disconnects.
func (b *IBusBridge) Stop() error {
	b.aggregator.Flush()
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// Stats returns a copy of the bridge counters.
func (b *IBusBridge) Stats() BridgeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// ProcessKeyEvent handles key events from IBus. Dot keys are consumed
// while the engine is enabled and focused; everything else passes
// through.
func (b *IBusBridge) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	if state&ibusReleaseMask != 0 {
		// Releases of dot keys are consumed so the host never sees the
		// raw letters; all other releases pass through.
		_, isDot := b.config.Keymap[keycode]
		return isDot && b.active(), nil
	}
	if state&(ibusControlMask|ibusMod1Mask|ibusMod4Mask) != 0 {
		return false, nil
	}

	dot, ok := b.config.Keymap[keycode]
	if !ok || !b.active() {
		return false, nil
	}

	b.mu.Lock()
	b.stats.DotPresses++
	b.mu.Unlock()

	b.aggregator.Press(dot)
	return true, nil
}

func (b *IBusBridge) active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled && b.focused
}

// onChord feeds one closed chord into the pipeline.
func (b *IBusBridge) onChord(set braille.DotSet) {
	b.mu.Lock()
	b.stats.Chords++
	b.mu.Unlock()
	b.engine.ProcessChord(set)
}

// CommitText delivers emitted text to the focused application. Wired as
// the engine's emit callback by the brailled-ibus binary.
func (b *IBusBridge) CommitText(text string) error {
	if text == "" {
		return nil
	}
	err := b.conn.Emit(enginePath, ibusEngineInterface+".CommitText", newIBusText(text))
	b.mu.Lock()
	if err != nil {
		b.stats.CommitErrors++
	} else {
		b.stats.Commits++
	}
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("commit text: %w", err)
	}
	return nil
}

func (b *IBusBridge) onModeChange(old, new braille.Mode, _ *unify.Indicator) {
	b.log.Info("mode changed", "from", old.String(), "to", new.String())
}

// FocusIn is called when the engine gains input focus.
func (b *IBusBridge) FocusIn() *dbus.Error {
	b.mu.Lock()
	b.focused = true
	b.mu.Unlock()
	return nil
}

// FocusOut flushes pending input when focus leaves.
func (b *IBusBridge) FocusOut() *dbus.Error {
	b.aggregator.Flush()
	b.mu.Lock()
	b.focused = false
	b.mu.Unlock()
	return nil
}

// Enable activates chord interpretation.
func (b *IBusBridge) Enable() *dbus.Error {
	b.mu.Lock()
	b.enabled = true
	b.mu.Unlock()
	return nil
}

// Disable deactivates chord interpretation and resets the pipeline.
func (b *IBusBridge) Disable() *dbus.Error {
	b.aggregator.Cancel()
	b.engine.Reset()
	b.mu.Lock()
	b.enabled = false
	b.mu.Unlock()
	return nil
}

// Reset is called by IBus: it discards the pending chord and flushes
// buffered matcher cells through the pipeline; the mode is kept.
func (b *IBusBridge) Reset() *dbus.Error {
	b.aggregator.Cancel()
	b.engine.Flush()
	return nil
}

// Destroy tears the engine down.
func (b *IBusBridge) Destroy() *dbus.Error {
	b.aggregator.Cancel()
	return nil
}

// ibusFactory creates engine instances on IBus request.
type ibusFactory struct {
	bridge *IBusBridge
}

// CreateEngine returns the engine object path for the named engine.
func (f *ibusFactory) CreateEngine(name string) (dbus.ObjectPath, *dbus.Error) {
	if name != "brailled" {
		return "", dbus.MakeFailedError(fmt.Errorf("unknown engine %q", name))
	}
	f.bridge.mu.Lock()
	f.bridge.enabled = true
	f.bridge.mu.Unlock()
	return enginePath, nil
}

// ibusText is the IBus serialized text structure (sa{sv}sv).
type ibusText struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	AttrList    dbus.Variant
}

// ibusAttrList is the IBus serialized attribute list (sa{sv}av).
type ibusAttrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attributes  []dbus.Variant
}

// newIBusText wraps a plain string in the IBusText wire format.
func newIBusText(s string) dbus.Variant {
	attrs := ibusAttrList{
		Name:        "IBusAttrList",
		Attachments: map[string]dbus.Variant{},
		Attributes:  []dbus.Variant{},
	}
	return dbus.MakeVariant(ibusText{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        s,
		AttrList:    dbus.MakeVariant(attrs),
	})
}
