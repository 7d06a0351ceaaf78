// Package annotation holds the state of one spine annotation session: the
// frame sequence, the spines drawn on it and the measurements derived from
// their boxes.
//
// A Session is not safe for concurrent use. It is owned by a single command
// loop (the desktop window or the MCP server) and every operation either
// succeeds completely or leaves the session unchanged.
package annotation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ironsheep/spine-tools/internal/config"
	"github.com/ironsheep/spine-tools/internal/imaging"
)

// Spine is one tracked dendritic spine and its boxes, keyed by frame index.
// A spine need not have a box on every frame.
type Spine struct {
	Name  string
	Color string

	boxes map[int]BoundingBox
}

func newSpine(name, color string) *Spine {
	return &Spine{Name: name, Color: color, boxes: make(map[int]BoundingBox)}
}

// Box returns the spine's box on frame, if any.
func (sp *Spine) Box(frame int) (BoundingBox, bool) {
	b, ok := sp.boxes[frame]
	return b, ok
}

// Frames returns the indices of the frames the spine has a box on, ascending.
func (sp *Spine) Frames() []int {
	idx := make([]int, 0, len(sp.boxes))
	for i := range sp.boxes {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Len is the number of boxes the spine has.
func (sp *Spine) Len() int { return len(sp.boxes) }

// Boxes returns a copy of the frame → box mapping.
func (sp *Spine) Boxes() map[int]BoundingBox {
	out := make(map[int]BoundingBox, len(sp.boxes))
	for k, v := range sp.boxes {
		out[k] = v
	}
	return out
}

// Session is the in-memory annotation state for one frame sequence.
type Session struct {
	cfg    *config.Config
	frames []imaging.Frame

	spines map[string]*Spine
	order  []string

	current int
	active  string
}

// NewSession starts an empty session over frames. A nil cfg uses the defaults.
func NewSession(cfg *config.Config, frames []imaging.Frame) *Session {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return &Session{
		cfg:    cfg,
		frames: append([]imaging.Frame(nil), frames...),
		spines: make(map[string]*Spine),
	}
}

// OpenFolder loads the frames of dir using cfg's extensions and starts a
// session over them.
func OpenFolder(cfg *config.Config, dir string) (*Session, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	frames, err := imaging.LoadFolder(dir, cfg.Extensions)
	if err != nil {
		return nil, err
	}
	return NewSession(cfg, frames), nil
}

// Config returns the parameters the session measures with.
func (s *Session) Config() *config.Config { return s.cfg }

// Frames returns a copy of the frame sequence.
func (s *Session) Frames() []imaging.Frame {
	return append([]imaging.Frame(nil), s.frames...)
}

// FrameCount is the number of frames in the sequence.
func (s *Session) FrameCount() int { return len(s.frames) }

// Frame returns the frame at index.
func (s *Session) Frame(index int) (imaging.Frame, error) {
	if err := s.checkFrame(index); err != nil {
		return imaging.Frame{}, err
	}
	return s.frames[index], nil
}

func (s *Session) checkFrame(index int) error {
	if index < 0 || index >= len(s.frames) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrFrameOutOfRange, index, len(s.frames))
	}
	return nil
}

// CreateSpine adds a new spine and makes it the active one.
func (s *Session) CreateSpine(name string) (*Spine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if _, ok := s.spines[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	sp := newSpine(name, imaging.SpineColorHex(len(s.order)))
	s.spines[name] = sp
	s.order = append(s.order, name)
	s.active = name
	return sp, nil
}

// NextSpineName suggests an unused "spine_N" name for the next spine.
func (s *Session) NextSpineName() string {
	for n := len(s.order) + 1; ; n++ {
		name := fmt.Sprintf("spine_%d", n)
		if _, ok := s.spines[name]; !ok {
			return name
		}
	}
}

// Spine looks up a spine by name.
func (s *Session) Spine(name string) (*Spine, error) {
	sp, ok := s.spines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpine, name)
	}
	return sp, nil
}

// Spines returns the spine names in creation order.
func (s *Session) Spines() []string {
	return append([]string(nil), s.order...)
}

// SetBox stores box for the spine on frame, replacing any box already there.
// The box is normalized first and must have a positive area inside the frame.
func (s *Session) SetBox(name string, frame int, box BoundingBox) error {
	sp, err := s.Spine(name)
	if err != nil {
		return err
	}
	if err := s.checkFrame(frame); err != nil {
		return err
	}
	box = box.Normalize()
	if err := box.validate(s.frames[frame]); err != nil {
		return err
	}
	sp.boxes[frame] = box
	return nil
}

// DeleteBox removes the spine's box on frame. Deleting a box that does not
// exist, on a spine or frame that does not exist, is a no-op.
func (s *Session) DeleteBox(name string, frame int) {
	if sp, ok := s.spines[name]; ok {
		delete(sp.boxes, frame)
	}
}

// ClampBox clips box to the bounds of frame, the way a box dragged past the
// image edge is trimmed before it is stored.
func (s *Session) ClampBox(frame int, box BoundingBox) (BoundingBox, error) {
	f, err := s.Frame(frame)
	if err != nil {
		return BoundingBox{}, err
	}
	if f.Width <= 0 || f.Height <= 0 {
		return box.Normalize(), nil
	}
	return BoxFromRect(imaging.ClampRect(box.Rect(), f.Bounds())), nil
}

// SelectSpine makes name the active spine.
func (s *Session) SelectSpine(name string) error {
	if _, err := s.Spine(name); err != nil {
		return err
	}
	s.active = name
	return nil
}

// ActiveSpine returns the active spine name, or "" if none is selected.
func (s *Session) ActiveSpine() string { return s.active }

// SetCurrentFrame moves to frame index.
func (s *Session) SetCurrentFrame(index int) error {
	if err := s.checkFrame(index); err != nil {
		return err
	}
	s.current = index
	return nil
}

// CurrentFrame returns the index of the frame being annotated.
func (s *Session) CurrentFrame() int { return s.current }

// NextFrame advances one frame. It reports false at the end of the sequence.
func (s *Session) NextFrame() bool {
	if s.current+1 >= len(s.frames) {
		return false
	}
	s.current++
	return true
}

// PrevFrame steps back one frame. It reports false at the start.
func (s *Session) PrevFrame() bool {
	if s.current == 0 || len(s.frames) == 0 {
		return false
	}
	s.current--
	return true
}

// AnnotatedFrames lists the frames the named spine has a box on.
func (s *Session) AnnotatedFrames(name string) ([]int, error) {
	sp, err := s.Spine(name)
	if err != nil {
		return nil, err
	}
	return sp.Frames(), nil
}

// FrameBox is a spine's box on a particular frame, ready to draw.
type FrameBox struct {
	Spine  string      `json:"spine"`
	Color  string      `json:"color"`
	Box    BoundingBox `json:"box"`
	Active bool        `json:"active"`
}

// BoxesOnFrame returns every box drawn on frame, in spine creation order.
func (s *Session) BoxesOnFrame(frame int) []FrameBox {
	var out []FrameBox
	for _, name := range s.order {
		sp := s.spines[name]
		if b, ok := sp.boxes[frame]; ok {
			out = append(out, FrameBox{
				Spine:  name,
				Color:  sp.Color,
				Box:    b,
				Active: name == s.active,
			})
		}
	}
	return out
}

// Overlays converts the boxes on frame into drawable overlays. The active
// spine is outlined more heavily.
func (s *Session) Overlays(frame int) []imaging.Overlay {
	boxes := s.BoxesOnFrame(frame)
	out := make([]imaging.Overlay, 0, len(boxes))
	for _, fb := range boxes {
		c, err := imaging.ParseHexColor(fb.Color)
		if err != nil {
			c, _ = imaging.ParseHexColor("#808080")
		}
		width := 1
		if fb.Active {
			width = 2
		}
		out = append(out, imaging.Overlay{Label: fb.Spine, Rect: fb.Box.Rect(), Color: c, Width: width})
	}
	return out
}
