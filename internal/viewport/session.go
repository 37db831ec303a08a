package viewport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

var (
	// ErrNotReady is returned when input arrives before the image has loaded.
	ErrNotReady = errors.New("image not loaded")

	// ErrUnknownDetection is returned when an ID does not name a detection in
	// the session.
	ErrUnknownDetection = errors.New("unknown detection")
)

// State is the pointer-interaction state of a Session.
type State int

const (
	StateIdle State = iota
	StatePanning
	StateResizing
	StateCreating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePanning:
		return "panning"
	case StateResizing:
		return "resizing"
	case StateCreating:
		return "creating"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Tool selects what a pointer press on the image background does.
type Tool int

const (
	ToolPan Tool = iota
	ToolCreate
)

// PointerEvent is a pointer press. DetectionID and Handle are set when the
// press lands on a resize handle of a box.
type PointerEvent struct {
	Point       Point
	DetectionID string
	Handle      Handle
}

// OutcomeKind classifies how a gesture ended.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomePanned
	OutcomeResized
	OutcomeCreateProposed
	OutcomeDiscarded
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNone:
		return "none"
	case OutcomePanned:
		return "panned"
	case OutcomeResized:
		return "resized"
	case OutcomeCreateProposed:
		return "create_proposed"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome reports the result of a finished gesture. For OutcomeResized the
// detection has already been updated; for OutcomeCreateProposed the caller
// asks for a label and calls CreateDetection with BBox.
type Outcome struct {
	Kind        OutcomeKind
	DetectionID string
	BBox        annotation.BBox
}

// Listener is notified on every state transition.
type Listener func(prev, next State)

// BoxView is a detection positioned for rendering.
type BoxView struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Rect     Rect   `json:"rect"`
}

// Session is the editing state of one displayed image: its view transform,
// its working detections, and the gesture in progress. A Session is owned by
// the component that renders the image and is not safe for concurrent use.
type Session struct {
	view  ViewState
	tool  Tool
	state State
	dets  []annotation.Detection

	start     Point // client point of the pointer press
	last      Point
	startPan  Point
	startRect Rect
	activeID  string
	handle    Handle
	pending   annotation.BBox
	draft     Rect

	listeners []Listener
}

// NewSession starts a session on a copy of dets. Missing categories and IDs
// are filled in.
func NewSession(view ViewState, dets []annotation.Detection) *Session {
	own := append([]annotation.Detection(nil), dets...)
	annotation.Normalize(own)
	annotation.EnsureIDs(own)
	if view.Zoom == 0 {
		view.Zoom = 1
	}
	return &Session{view: view, dets: own}
}

// View returns the current view transform.
func (s *Session) View() ViewState { return s.view }

// SetLayout updates sizes after the image loads or the window resizes. Pan
// and zoom are kept.
func (s *Session) SetLayout(natural, displayed, container Size, origin Point) {
	s.view.Natural = natural
	s.view.Displayed = displayed
	s.view.Container = container
	s.view.ContainerOrigin = origin
}

// State returns the current interaction state.
func (s *Session) State() State { return s.state }

// Tool returns the active background tool.
func (s *Session) Tool() Tool { return s.tool }

// SetTool selects the tool for the next press on the background.
func (s *Session) SetTool(t Tool) { s.tool = t }

// AddListener registers a transition callback.
func (s *Session) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Session) transition(next State) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	for _, l := range s.listeners {
		l(prev, next)
	}
}

// PointerDown starts a gesture. Presses while a gesture is running are
// ignored.
func (s *Session) PointerDown(ev PointerEvent) error {
	if s.state != StateIdle {
		return nil
	}
	if !s.view.Ready() {
		return ErrNotReady
	}
	s.start, s.last = ev.Point, ev.Point

	switch {
	case ev.DetectionID != "" && ev.Handle != "":
		i := annotation.IndexOf(s.dets, ev.DetectionID)
		if i < 0 {
			return fmt.Errorf("resize %q: %w", ev.DetectionID, ErrUnknownDetection)
		}
		s.activeID = ev.DetectionID
		s.handle = ev.Handle
		s.startRect = s.view.BoxToContainer(s.dets[i].BBox)
		s.pending = s.dets[i].BBox
		s.transition(StateResizing)
	case s.tool == ToolCreate:
		p := ev.Point.Sub(s.view.ContainerOrigin)
		s.draft = Rect{Left: p.X, Top: p.Y}
		s.transition(StateCreating)
	default:
		s.startPan = s.view.Pan
		s.transition(StatePanning)
	}
	return nil
}

// PointerMove advances the running gesture.
func (s *Session) PointerMove(p Point) {
	switch s.state {
	case StatePanning:
		d := p.Sub(s.last)
		s.view.PanBy(d.X, d.Y)
	case StateResizing:
		r := Resize(s.startRect, s.handle, p.X-s.start.X, p.Y-s.start.Y)
		s.pending = s.view.ContainerRectToImage(r)
	case StateCreating:
		o := s.view.ContainerOrigin
		s.draft = NormalizeRect(s.start.Sub(o), p.Sub(o))
	}
	s.last = p
}

// PointerUp finishes the running gesture at p.
func (s *Session) PointerUp(p Point) Outcome {
	s.PointerMove(p)
	var out Outcome

	switch s.state {
	case StateIdle:
		return Outcome{Kind: OutcomeNone}
	case StatePanning:
		out = Outcome{Kind: OutcomePanned}
	case StateResizing:
		out = Outcome{Kind: OutcomeDiscarded, DetectionID: s.activeID}
		if i := annotation.IndexOf(s.dets, s.activeID); i >= 0 {
			s.dets[i].BBox = s.pending
			out = Outcome{Kind: OutcomeResized, DetectionID: s.activeID, BBox: s.pending}
		}
	case StateCreating:
		out = Outcome{Kind: OutcomeDiscarded}
		if LargeEnough(s.draft) {
			out = Outcome{Kind: OutcomeCreateProposed, BBox: s.view.ContainerRectToImage(s.draft)}
		}
	}
	s.reset()
	s.transition(StateIdle)
	return out
}

// Cancel aborts the running gesture and discards its geometry. A cancelled pan
// returns to the pan offset it started from.
func (s *Session) Cancel() Outcome {
	if s.state == StateIdle {
		return Outcome{Kind: OutcomeNone}
	}
	if s.state == StatePanning {
		s.view.Pan = s.startPan
	}
	id := s.activeID
	s.reset()
	s.transition(StateIdle)
	return Outcome{Kind: OutcomeCancelled, DetectionID: id}
}

func (s *Session) reset() {
	s.activeID = ""
	s.handle = ""
	s.pending = annotation.BBox{}
	s.draft = Rect{}
}

// Wheel zooms about p. Wheel input during a resize or a box draw is ignored
// because the gesture's screen geometry is tied to the current zoom.
func (s *Session) Wheel(p Point, deltaY float64) float64 {
	if s.state == StateResizing || s.state == StateCreating || !s.view.Ready() {
		return s.view.Zoom
	}
	z := s.view.WheelZoom(p, deltaY)
	if s.state == StatePanning {
		s.last = p
	}
	return z
}

// Draft returns the rubber-band rectangle while a box is being drawn.
func (s *Session) Draft() (Rect, bool) {
	return s.draft, s.state == StateCreating
}

// Pending returns the image-space box of a resize in progress.
func (s *Session) Pending() (annotation.BBox, bool) {
	return s.pending, s.state == StateResizing
}

// Detections returns a copy of the working detections in display order.
func (s *Session) Detections() []annotation.Detection {
	return append([]annotation.Detection(nil), s.dets...)
}

// Boxes returns every detection positioned in container coordinates. A box
// being resized is reported at its pending geometry.
func (s *Session) Boxes() []BoxView {
	out := make([]BoxView, 0, len(s.dets))
	for _, d := range s.dets {
		box := d.BBox
		if s.state == StateResizing && d.ID == s.activeID {
			box = s.pending
		}
		out = append(out, BoxView{
			ID:       d.ID,
			Label:    d.Label,
			Category: d.Category,
			Rect:     s.view.BoxToContainer(box),
		})
	}
	return out
}

// CreateDetection adds a labelled box, typically the BBox of an
// OutcomeCreateProposed.
func (s *Session) CreateDetection(label, category string, box annotation.BBox) (annotation.Detection, error) {
	d := annotation.NewDetection(label, category, box)
	if err := d.Validate(); err != nil {
		return annotation.Detection{}, err
	}
	s.dets = append(s.dets, d)
	return d, nil
}

// Rename changes a detection's label and, when category is not empty, its
// category.
func (s *Session) Rename(id, label, category string) error {
	i := annotation.IndexOf(s.dets, id)
	if i < 0 {
		return fmt.Errorf("rename %q: %w", id, ErrUnknownDetection)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("rename %q: empty label", id)
	}
	s.dets[i].Label = label
	if c := strings.TrimSpace(category); c != "" {
		s.dets[i].Category = c
	}
	return nil
}

// Delete removes a detection. Deleting the box being resized cancels the
// resize.
func (s *Session) Delete(id string) error {
	i := annotation.IndexOf(s.dets, id)
	if i < 0 {
		return fmt.Errorf("delete %q: %w", id, ErrUnknownDetection)
	}
	if s.state == StateResizing && s.activeID == id {
		s.Cancel()
	}
	s.dets = append(s.dets[:i], s.dets[i+1:]...)
	return nil
}
