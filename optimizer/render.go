package optimizer

import (
	"errors"
	"image"

	"github.com/StudioSol/set"
	"github.com/fogleman/gg"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrUnknownLayer is returned for operations on a layer id that was
	// never created.
	ErrUnknownLayer = errors.New("optimizer: unknown layer")
	// ErrLayerExists is returned when creating a layer under a taken id.
	ErrLayerExists = errors.New("optimizer: layer already exists")
	// ErrClosed is returned for operations on a closed render optimizer.
	ErrClosed = errors.New("optimizer: render optimizer closed")
)

// Layer is one off-screen drawing surface with an explicit Clean/Dirty
// state. Dirtiness changes only through MarkDirty and RenderLayer.
type Layer struct {
	ID    string
	ctx   *gg.Context
	dirty bool
}

// Dirty reports whether the layer needs a redraw before compositing.
func (l *Layer) Dirty() bool {
	return l.dirty
}

// Render owns the drawing layers of one chart instance and composites them
// back-to-front onto a primary surface. It is not safe for concurrent use;
// the chart renderer is its only caller.
type Render struct {
	width   int
	height  int
	layers  map[string]*Layer
	order   *set.LinkedHashSetString
	primary *gg.Context
	closed  bool
}

// NewRender creates a render optimizer with a primary surface of the given
// device-pixel size.
func NewRender(width, height int) *Render {
	return &Render{
		width:   width,
		height:  height,
		layers:  make(map[string]*Layer),
		order:   set.NewLinkedHashSetString(),
		primary: gg.NewContext(width, height),
	}
}

// CreateLayer allocates a dedicated off-screen surface. New layers start
// dirty so the first render pass draws them.
func (r *Render) CreateLayer(id string, width, height int) error {
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.layers[id]; ok {
		return ErrLayerExists
	}

	r.layers[id] = &Layer{
		ID:    id,
		ctx:   gg.NewContext(width, height),
		dirty: true,
	}
	r.order.Add(id)
	return nil
}

// MarkDirty flags a layer for redraw on the next render pass.
func (r *Render) MarkDirty(id string) error {
	if r.closed {
		return ErrClosed
	}
	layer, ok := r.layers[id]
	if !ok {
		return ErrUnknownLayer
	}
	layer.dirty = true
	return nil
}

// MarkAllDirty flags every layer, used after resize.
func (r *Render) MarkAllDirty() {
	for _, layer := range r.layers {
		layer.dirty = true
	}
}

// RenderLayer redraws the layer through drawFn only when it is dirty and
// clears the flag afterwards. Calling it on a clean layer is a no-op and
// drawFn is not invoked. It reports whether a redraw happened.
func (r *Render) RenderLayer(id string, drawFn func(dc *gg.Context)) (bool, error) {
	if r.closed {
		return false, ErrClosed
	}
	layer, ok := r.layers[id]
	if !ok {
		return false, ErrUnknownLayer
	}
	if !layer.dirty {
		return false, nil
	}

	layer.ctx.SetRGBA(0, 0, 0, 0)
	layer.ctx.Clear()
	drawFn(layer.ctx)
	layer.dirty = false
	return true, nil
}

// CompositeLayers clears the primary surface and draws the given layers
// onto it back-to-front. Unknown ids fail before anything is drawn.
func (r *Render) CompositeLayers(orderedIDs []string) error {
	if r.closed {
		return ErrClosed
	}
	for _, id := range orderedIDs {
		if _, ok := r.layers[id]; !ok {
			return ErrUnknownLayer
		}
	}

	r.primary.SetRGBA(0, 0, 0, 0)
	r.primary.Clear()
	for _, id := range orderedIDs {
		r.primary.DrawImage(r.layers[id].ctx.Image(), 0, 0)
	}
	return nil
}

// LayerOrder returns the layer ids in creation order, the default
// back-to-front composite order.
func (r *Render) LayerOrder() []string {
	ids := make([]string, 0, r.order.Length())
	for id := range r.order.Iter() {
		ids = append(ids, id)
	}
	return ids
}

// BatchOperations executes drawing operations on the primary surface under
// a single state save/restore bracket.
func (r *Render) BatchOperations(ops []func(dc *gg.Context)) error {
	if r.closed {
		return ErrClosed
	}
	r.primary.Push()
	defer r.primary.Pop()
	for _, op := range ops {
		op(r.primary)
	}
	return nil
}

// Image returns the composited primary surface.
func (r *Render) Image() image.Image {
	return r.primary.Image()
}

// Size returns the primary surface dimensions.
func (r *Render) Size() (width, height int) {
	return r.width, r.height
}

// Resize replaces every surface with one of the new size and marks all
// layers dirty. Resizing to the current size is a no-op so repeated resize
// events stay idempotent.
func (r *Render) Resize(width, height int) {
	if r.closed || (width == r.width && height == r.height) {
		return
	}
	r.width = width
	r.height = height
	r.primary = gg.NewContext(width, height)
	for _, layer := range r.layers {
		layer.ctx = gg.NewContext(width, height)
		layer.dirty = true
	}
	log.WithField("width", width).WithField("height", height).Debug("optimizer: surfaces resized")
}

// Close releases all layer surfaces. Further operations fail with
// ErrClosed.
func (r *Render) Close() {
	r.layers = make(map[string]*Layer)
	r.order = set.NewLinkedHashSetString()
	r.closed = true
}
