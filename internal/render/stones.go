package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	dto "github.com/park285/otheller-go/pkg/othellodto"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

//go:embed assets/*.svg
var stoneFiles embed.FS

type stoneKey struct {
	cell dto.Cell
	size int
}

var (
	stoneCache   = map[stoneKey]image.Image{}
	stoneCacheMu sync.RWMutex
)

func stoneImage(cell dto.Cell, size int) (image.Image, error) {
	key := stoneKey{cell: cell, size: size}

	stoneCacheMu.RLock()
	if img, ok := stoneCache[key]; ok {
		stoneCacheMu.RUnlock()
		return img, nil
	}
	stoneCacheMu.RUnlock()

	name := stoneAssetName(cell)
	if name == "" {
		return nil, fmt.Errorf("no stone asset for cell %d", cell)
	}
	data, err := stoneFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read stone asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse stone svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	stoneCacheMu.Lock()
	stoneCache[key] = img
	stoneCacheMu.Unlock()
	return img, nil
}

func stoneAssetName(cell dto.Cell) string {
	switch cell {
	case dto.BlackStone:
		return "assets/black.svg"
	case dto.WhiteStone:
		return "assets/white.svg"
	default:
		return ""
	}
}

// fillCircle rasterizes an anti-aliased filled circle.
func fillCircle(img *image.RGBA, cx, cy, r float64, clr color.Color) {
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
	filler.SetColor(clr)
	rasterx.AddCircle(cx, cy, r, filler)
	filler.Draw()
}

// strokeCircle draws a circle outline of width w.
func strokeCircle(img *image.RGBA, cx, cy, r, w float64, clr color.Color) {
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	stroker := rasterx.NewStroker(b.Dx(), b.Dy(), scanner)
	stroker.SetStroke(fixed.Int26_6(w*64), fixed.Int26_6(4*64), rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.ArcClip)
	stroker.SetColor(clr)
	rasterx.AddCircle(cx, cy, r, stroker)
	stroker.Draw()
}
