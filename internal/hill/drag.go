package hill

// DragState is the phase of a drag gesture.
type DragState int

const (
	Idle DragState = iota
	Selected
	Dragging
)

func (s DragState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Commit is the single position update produced by a completed drag.
type Commit struct {
	ID       int64
	Position float64
}

// Drag tracks one pointer gesture over the chart. Moves only update the
// preview; the new position is handed out once, on Release.
// A Drag is not safe for concurrent use.
type Drag struct {
	params  Params
	originX float64

	state   DragState
	id      int64
	preview float64
}

// NewDrag returns an idle drag for a frame whose left edge is at originX.
func NewDrag(p Params, originX float64) *Drag {
	return &Drag{params: p, originX: originX}
}

// State returns the current phase.
func (d *Drag) State() DragState { return d.state }

// Target returns the engaged item, if any.
func (d *Drag) Target() (int64, bool) {
	if d.state == Idle {
		return 0, false
	}
	return d.id, true
}

// Preview returns the position the dragged item would land on.
func (d *Drag) Preview() (float64, bool) {
	if d.state != Dragging {
		return 0, false
	}
	return d.preview, true
}

// Press engages an item. It is ignored unless the drag is idle.
func (d *Drag) Press(id int64) {
	if d.state != Idle {
		return
	}
	d.state = Selected
	d.id = id
}

// Move recomputes the preview from a pointer x coordinate. Moves while idle
// are ignored.
func (d *Drag) Move(pixelX float64) error {
	if d.state == Idle {
		return nil
	}
	pos, err := d.params.PositionFromPixel(pixelX, d.originX)
	if err != nil {
		return err
	}
	d.state = Dragging
	d.preview = pos
	return nil
}

// Release ends the gesture. ok is false when nothing moved.
func (d *Drag) Release() (c Commit, ok bool) {
	if d.state == Dragging {
		c, ok = Commit{ID: d.id, Position: d.preview}, true
	}
	d.state, d.id, d.preview = Idle, 0, 0
	return c, ok
}
