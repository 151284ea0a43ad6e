package export

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/email"
	"github.com/matzehuels/mailframe/pkg/observability"
	"github.com/matzehuels/mailframe/pkg/render"
	"github.com/matzehuels/mailframe/pkg/render/datatable"
)

// walkState is the accumulator threaded through the children. Each step
// returns a new state; nothing else is mutated.
type walkState struct {
	// offset is added to every later sibling's top.
	offset float64
	// counter numbers generated assets across background, rasters and
	// previews.
	counter int

	frags    []render.Fragment
	assets   []Asset
	previews []Asset
	links    []LinkPlaceholder
	gifs     []GIFPlaceholder
}

// child is a root child in root-relative coordinates.
type child struct {
	node *design.Node
	x, y float64
}

type walker struct {
	e      *Exporter
	logger *log.Logger
	styler *render.Styler
	hooks  observability.ExportHooks
}

// children returns the visible children of root that have a bounding box,
// ordered by relative top. Ties keep document order.
func children(root *design.Node) []child {
	var out []child
	for _, n := range root.Children {
		if !n.Visible || n.Box == nil {
			continue
		}
		out = append(out, child{node: n, x: n.Box.X - root.Box.X, y: n.Box.Y - root.Box.Y})
	}
	slices.SortStableFunc(out, func(a, b child) int { return cmp.Compare(a.y, b.y) })
	return out
}

// isBackdrop reports whether c is a near-white rectangle covering the whole
// root, which the root background already paints.
func isBackdrop(root *design.Node, c child) bool {
	n := c.node
	if n.Type != design.TypeRectangle {
		return false
	}
	if render.Round(n.Box.Width) != render.Round(root.Box.Width) ||
		render.Round(n.Box.Height) != render.Round(root.Box.Height) ||
		render.Round(c.x) != 0 || render.Round(c.y) != 0 {
		return false
	}
	p, ok := n.FirstFill()
	return ok && p.IsSolid() && p.Color.NearWhite()
}

// background derives the root background. An image background whose bytes
// cannot be read degrades to none.
func (w *walker) background(ctx context.Context, root *design.Node, st walkState) (email.Background, walkState) {
	p, ok := root.FirstFill()
	switch {
	case !ok:
		return email.Background{}, st
	case p.IsSolid():
		return email.SolidBackground(p), st
	case p.Type == design.PaintImage && p.ImageRef != "":
		st.counter++
		name := assetName("bg-image", st.counter)
		data, err := w.e.imageBytes(ctx, p.ImageRef)
		if err != nil {
			w.logger.Warn("could not export frame background image", "err", err)
			return email.Background{}, st
		}
		st.assets = append(st.assets, Asset{Name: name, Data: data})
		return email.ImageBackground(ImageDir + name), st
	}
	return email.Background{}, st
}

// step renders one child and folds the result into st.
func (w *walker) step(ctx context.Context, st walkState, c child) walkState {
	n := c.node
	y := c.y + st.offset
	dir := design.ParseDirective(n.Name)

	var (
		frag render.Fragment
		ok   bool
	)
	switch {
	case design.IsTable(n):
		var res datatable.Result
		if res, ok = datatable.Synthesize(ctx, n, c.x, y, w.styler); ok {
			frag = res.Fragment
			if delta := float64(res.ExpectedHeight) - n.Box.Height; delta > 0 {
				st.offset += math.Ceil(delta)
			}
		}
	case dir.Kind == design.DirectiveGIF:
		st.gifs = append(st.gifs, GIFPlaceholder{ID: dir.Arg})
		frag, ok = render.Image(ImageDir+dir.Arg+".gif", c.x, y, n.Box.Width, n.Box.Height), true
	default:
		switch n.Kind() {
		case design.KindText:
			frag, ok = w.styler.Text(ctx, n, c.x, y), true
		case design.KindShape:
			if n.HasImageFill() {
				st, frag, ok = w.raster(ctx, st, c, y, dir)
			} else {
				frag, ok = render.Shape(n, c.x, y), true
			}
		case design.KindContainer, design.KindImage:
			st, frag, ok = w.raster(ctx, st, c, y, dir)
		}
	}
	if !ok {
		return st
	}

	if dir.Kind == design.DirectiveLink {
		st, frag = w.link(ctx, st, n, dir.Arg, frag)
	}
	st.frags = append(st.frags, frag)
	w.hooks.OnNodeRendered(ctx, n.Name, frag.Kind.String())
	return st
}

// raster rasterizes a node at the exporter scale. A [transparent] node is
// rasterized from a shallow copy without fills, so the source node is never
// modified.
func (w *walker) raster(ctx context.Context, st walkState, c child, y float64, dir design.Directive) (walkState, render.Fragment, bool) {
	st.counter++
	name := assetName("image", st.counter)

	target := c.node
	if dir.Kind == design.DirectiveTransparent {
		bare := *c.node
		bare.Fills = nil
		target = &bare
	}
	data, err := w.e.rasterize(ctx, target, w.e.scale())
	if err != nil {
		w.logger.Warn("could not export node", "node", c.node.Name, "err", err)
		w.hooks.OnNodeSkipped(ctx, c.node.Name, err)
		return st, render.Fragment{}, false
	}
	st.assets = append(st.assets, Asset{Name: name, Data: data})
	return st, render.Image(ImageDir+name, c.x, y, c.node.Box.Width, c.node.Box.Height), true
}

// link attaches a preview and a placeholder to frag. When the preview
// cannot be produced the fragment is kept unwrapped.
func (w *walker) link(ctx context.Context, st walkState, n *design.Node, url string, frag render.Fragment) (walkState, render.Fragment) {
	st.counter++
	name := assetName("link-preview", st.counter)

	data, err := w.e.rasterize(ctx, n, PreviewScale)
	if err != nil {
		w.logger.Warn("could not create link preview", "node", n.Name, "err", err)
		return st, frag
	}
	st.previews = append(st.previews, Asset{Name: name, Data: data})
	st.links = append(st.links, LinkPlaceholder{ID: n.ID, OriginalURL: url, PreviewAssetName: name})
	return st, frag.WithLink(render.Link{ID: n.ID, URL: url})
}
