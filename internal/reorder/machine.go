package reorder

import (
	"fmt"
	"math"
	"time"
)

// Defaults for touch gestures.
const (
	DefaultLongPress     = 300 * time.Millisecond
	DefaultMoveTolerance = 10.0
)

// State is the gesture phase.
type State int

const (
	Idle State = iota
	Pending
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EffectKind says what the caller must do after a transition.
type EffectKind int

const (
	// EffectNone requires nothing.
	EffectNone EffectKind = iota
	// EffectSwap swaps From and To in the local list only.
	EffectSwap
	// EffectFinalize persists the local order. When From != To the caller
	// swaps them first.
	EffectFinalize
)

func (k EffectKind) String() string {
	switch k {
	case EffectNone:
		return "none"
	case EffectSwap:
		return "swap"
	case EffectFinalize:
		return "finalize"
	default:
		return fmt.Sprintf("effect(%d)", int(k))
	}
}

// Effect is the outcome of one transition.
type Effect struct {
	Kind EffectKind
	From int
	To   int
}

// Point is a pointer position.
type Point struct {
	X, Y float64
}

// Machine tracks one drag gesture at a time. Transitions that do not apply
// to the current state are ignored and return EffectNone. A Machine is not
// safe for concurrent use; it is driven from the UI event loop.
type Machine struct {
	LongPress     time.Duration
	MoveTolerance float64

	state State
	index int // pending start index, or the dragged item's current index
	start Point
	at    time.Time
}

// NewMachine returns an idle Machine with the default timings.
func NewMachine() *Machine {
	return &Machine{LongPress: DefaultLongPress, MoveTolerance: DefaultMoveTolerance}
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Index returns the dragged item's current index while dragging.
func (m *Machine) Index() (int, bool) {
	if m.state != Dragging {
		return -1, false
	}
	return m.index, true
}

func (m *Machine) reset() {
	m.state = Idle
	m.index = -1
	m.start = Point{}
	m.at = time.Time{}
}

// HandleDragStart begins a pointer drag. Only drags from the handle count.
func (m *Machine) HandleDragStart(onHandle bool, idx int) Effect {
	if m.state != Idle || !onHandle || idx < 0 {
		return Effect{}
	}
	m.state, m.index = Dragging, idx
	return Effect{}
}

// HandleDrop ends a pointer drag over idx.
func (m *Machine) HandleDrop(idx int) Effect {
	if m.state != Dragging {
		return Effect{}
	}
	from := m.index
	m.reset()
	if idx < 0 || idx == from {
		return Effect{}
	}
	return Effect{Kind: EffectFinalize, From: from, To: idx}
}

// HandleDragEnd abandons a pointer drag without a drop.
func (m *Machine) HandleDragEnd() Effect {
	if m.state == Dragging {
		m.reset()
	}
	return Effect{}
}

// TouchStart arms the long-press timer for a touch on idx.
func (m *Machine) TouchStart(onHandle bool, idx int, pos Point, at time.Time) Effect {
	if m.state != Idle || !onHandle || idx < 0 {
		return Effect{}
	}
	m.state, m.index, m.start, m.at = Pending, idx, pos, at
	return Effect{}
}

// Tick fires the long-press timer once it has elapsed.
func (m *Machine) Tick(now time.Time) Effect {
	if m.state == Pending && now.Sub(m.at) >= m.LongPress {
		m.state = Dragging
	}
	return Effect{}
}

// TouchMove handles a touch movement. While pending, movement beyond the
// tolerance cancels the gesture. While dragging, the row nearest to pos
// becomes the target and a swap is emitted when it changes.
func (m *Machine) TouchMove(pos Point, now time.Time, rects []Rect) Effect {
	switch m.state {
	case Pending:
		m.Tick(now)
		if m.state == Pending {
			if math.Hypot(pos.X-m.start.X, pos.Y-m.start.Y) > m.MoveTolerance {
				m.reset()
			}
			return Effect{}
		}
		return m.MoveTo(NearestTarget(pos.Y, rects), len(rects))
	case Dragging:
		return m.MoveTo(NearestTarget(pos.Y, rects), len(rects))
	default:
		return Effect{}
	}
}

// MoveTo moves the dragged item to target in a list of n items and emits
// the swap. Keyboard dragging drives it directly.
func (m *Machine) MoveTo(target, n int) Effect {
	if m.state != Dragging || target < 0 || target >= n || target == m.index {
		return Effect{}
	}
	from := m.index
	m.index = target
	return Effect{Kind: EffectSwap, From: from, To: target}
}

// TouchEnd finishes a touch gesture. A completed drag emits a finalize for
// the order already applied locally; a tap emits nothing.
func (m *Machine) TouchEnd() Effect {
	if m.state != Dragging {
		m.reset()
		return Effect{}
	}
	idx := m.index
	m.reset()
	return Effect{Kind: EffectFinalize, From: idx, To: idx}
}

// Cancel returns to Idle from any state.
func (m *Machine) Cancel() {
	m.reset()
}
