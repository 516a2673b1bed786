package world

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"worldstream/internal/entity"
	"worldstream/internal/mathx"
)

const (
	previewSky       = 0x87
	previewFillShade = 0.75
)

var layerOrder = map[entity.Layer]int{
	entity.LayerGroundFill:    0,
	entity.LayerGroundSurface: 1,
	entity.LayerTrunk:         2,
	entity.LayerLeaf:          3,
	entity.LayerFallingLeaf:   4,
	entity.LayerObserver:      5,
}

// WritePreview renders a side view of the window as PNG. One pixel is one
// world unit; the image spans the retention bound horizontally and the
// viewport plus safety depth vertically.
func WritePreview(w io.Writer, views []entity.View, win Window, height int) error {
	if height <= 0 {
		return fmt.Errorf("invalid preview height %d", height)
	}
	left := win.Start - win.Unit
	width := win.Width() + 2*win.Unit
	if width <= 0 {
		return fmt.Errorf("invalid window %s", win)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	background := color.NRGBA{R: previewSky, G: 0xce, B: 0xeb, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	ordered := make([]entity.View, len(views))
	copy(ordered, views)
	sort.SliceStable(ordered, func(i, j int) bool {
		return layerOrder[ordered[i].Layer] < layerOrder[ordered[j].Layer]
	})

	for _, v := range ordered {
		if v.Opacity <= 0 {
			continue
		}
		col := resolveColor(v)
		if v.Layer == entity.LayerGroundFill {
			col = applyLighting(col, previewFillShade)
		}
		col.A = uint8(math.Round(255 * mathx.Clamp(v.Opacity, 0, 1)))
		fillPolygon(img, viewPolygon(v, left), col)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// SavePreview writes the current snapshot to path, creating directories as
// needed.
func (m *Manager) SavePreview(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preview dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	height := m.cfg.World.Viewport.Height + m.cfg.Terrain.SafetyDepth + m.unit
	return WritePreview(file, m.store.Views(), m.window, height)
}

// viewPolygon returns the entity's rectangle in image space, rotated about
// its centre by the view's angle.
func viewPolygon(v entity.View, left int) []image.Point {
	w, h := v.Size.X(), v.Size.Y()
	centre := v.Position.Add(mgl64.Vec2{w / 2, h / 2})
	corners := []mgl64.Vec2{{-w / 2, -h / 2}, {w / 2, -h / 2}, {w / 2, h / 2}, {-w / 2, h / 2}}
	rot := mgl64.Rotate2D(mgl64.DegToRad(v.Angle))
	pts := make([]image.Point, 0, len(corners))
	for _, c := range corners {
		p := centre.Add(rot.Mul2x1(c))
		pts = append(pts, image.Point{X: int(math.Round(p.X())) - left, Y: int(math.Round(p.Y()))})
	}
	return pts
}

func resolveColor(v entity.View) color.NRGBA {
	if c, ok := mathx.ParseHexColor(v.Color); ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
}

func applyLighting(base color.NRGBA, factor float64) color.NRGBA {
	factor = mathx.Clamp(factor, 0, 1)
	r := uint8(math.Round(float64(base.R) * factor))
	g := uint8(math.Round(float64(base.G) * factor))
	b := uint8(math.Round(float64(base.B) * factor))
	return color.NRGBA{R: r, G: g, B: b, A: base.A}
}

func blend(dst, src uint8, alpha float64) uint8 {
	return uint8(math.Round(float64(dst)*(1-alpha) + float64(src)*alpha))
}

func fillPolygon(img *image.NRGBA, pts []image.Point, col color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	minY := pts[0].Y
	maxY := pts[0].Y
	for _, p := range pts[1:] {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	bounds := img.Bounds()
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxY > bounds.Max.Y-1 {
		maxY = bounds.Max.Y - 1
	}
	alpha := float64(col.A) / 255
	tmp := make([]int, 0, len(pts))
	for y := minY; y <= maxY; y++ {
		tmp = tmp[:0]
		for i := range pts {
			j := (i + 1) % len(pts)
			x1, y1 := pts[i].X, pts[i].Y
			x2, y2 := pts[j].X, pts[j].Y
			if y1 == y2 {
				continue
			}
			if y < min(y1, y2) || y >= max(y1, y2) {
				continue
			}
			x := x1 + (y-y1)*(x2-x1)/(y2-y1)
			tmp = append(tmp, x)
		}
		if len(tmp) < 2 {
			continue
		}
		sort.Ints(tmp)
		for i := 0; i+1 < len(tmp); i += 2 {
			xStart, xEnd := tmp[i], tmp[i+1]
			if xEnd < bounds.Min.X || xStart >= bounds.Max.X {
				continue
			}
			if xStart < bounds.Min.X {
				xStart = bounds.Min.X
			}
			if xEnd > bounds.Max.X-1 {
				xEnd = bounds.Max.X - 1
			}
			for x := xStart; x < xEnd; x++ {
				idx := (y-bounds.Min.Y)*img.Stride + (x-bounds.Min.X)*4
				img.Pix[idx] = blend(img.Pix[idx], col.R, alpha)
				img.Pix[idx+1] = blend(img.Pix[idx+1], col.G, alpha)
				img.Pix[idx+2] = blend(img.Pix[idx+2], col.B, alpha)
				img.Pix[idx+3] = 255
			}
		}
	}
}
