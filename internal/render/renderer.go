package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"

	dto "github.com/park285/otheller-go/pkg/othellodto"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	backgroundColor  = color.RGBA{R: 0x22, G: 0x26, B: 0x2b, A: 0xff}
	boardColor       = color.RGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}
	gridColor        = color.RGBA{R: 0x1b, G: 0x4d, B: 0x1f, A: 0xff}
	boardShadowColor = color.NRGBA{R: 0, G: 0, B: 0, A: 0x60}
	panelColor       = color.RGBA{R: 0x33, G: 0x38, B: 0x3f, A: 0xff}
	textColor        = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	mutedTextColor   = color.RGBA{R: 0xb0, G: 0xb4, B: 0xb8, A: 0xff}
	hintColor        = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x55}
	lastMoveColor    = color.NRGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}
	flippedColor     = color.NRGBA{R: 0xff, G: 0xca, B: 0x28, A: 0xc0}
)

// Options toggles overlays.
type Options struct {
	ShowLegalMoves bool
	ShowLastMove   bool
	ShowFlipped    bool
	// Header replaces the default "A vs B" title.
	Header string
}

func DefaultOptions() Options {
	return Options{ShowLegalMoves: true, ShowLastMove: true, ShowFlipped: true}
}

// BoardRenderer turns a snapshot into a PNG.
type BoardRenderer struct {
	squareSize int
}

func NewBoardRenderer(squareSize int) *BoardRenderer {
	if squareSize < 24 {
		squareSize = 64
	}
	return &BoardRenderer{squareSize: squareSize}
}

const (
	sideMargin   = 28
	topMargin    = 76
	bottomMargin = 28
	panelHeight  = 40
	panelRadius  = 10
)

// Size returns the PNG dimensions.
func (r *BoardRenderer) Size() (int, int) {
	board := r.squareSize * dto.BoardSize
	return board + sideMargin*2, board + topMargin + bottomMargin
}

func (r *BoardRenderer) RenderPNG(ctx context.Context, gs *dto.GameState, opts Options) ([]byte, error) {
	img, err := r.Render(ctx, gs, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Render draws the snapshot into an RGBA image.
func (r *BoardRenderer) Render(ctx context.Context, gs *dto.GameState, opts Options) (*image.RGBA, error) {
	if gs == nil {
		return nil, errors.New("state is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	w, h := r.Size()
	sq := r.squareSize
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+sq*dto.BoardSize, origin.Y+sq*dto.BoardSize)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, gs, opts, boardRect)
	drawBoard(img, boardRect, sq)
	if err := drawStones(img, gs, origin, sq); err != nil {
		return nil, err
	}
	drawOverlays(img, gs, opts, origin, sq)
	drawCoordinates(img, origin, sq)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return img, nil
}

func drawBoard(img *image.RGBA, boardRect image.Rectangle, sq int) {
	shadow := boardRect.Add(image.Pt(4, 6))
	imagedraw.Draw(img, shadow, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, boardRect, image.NewUniform(boardColor), image.Point{}, imagedraw.Src)

	grid := image.NewUniform(gridColor)
	for i := 0; i <= dto.BoardSize; i++ {
		x := boardRect.Min.X + i*sq
		y := boardRect.Min.Y + i*sq
		imagedraw.Draw(img, image.Rect(x-1, boardRect.Min.Y, x+1, boardRect.Max.Y), grid, image.Point{}, imagedraw.Src)
		imagedraw.Draw(img, image.Rect(boardRect.Min.X, y-1, boardRect.Max.X, y+1), grid, image.Point{}, imagedraw.Src)
	}
	// star points at the 2/6 intersections
	for _, p := range [][2]int{{2, 2}, {2, 6}, {6, 2}, {6, 6}} {
		fillCircle(img, float64(boardRect.Min.X+p[1]*sq), float64(boardRect.Min.Y+p[0]*sq), float64(sq)/14, gridColor)
	}
}

func drawStones(img *image.RGBA, gs *dto.GameState, origin image.Point, sq int) error {
	inset := sq / 10
	size := sq - inset*2
	for row := 0; row < dto.BoardSize; row++ {
		for col := 0; col < dto.BoardSize; col++ {
			cell := gs.Board[row][col]
			if cell == dto.Empty {
				continue
			}
			stone, err := stoneImage(cell, size)
			if err != nil {
				return err
			}
			at := image.Pt(origin.X+col*sq+inset, origin.Y+row*sq+inset)
			imagedraw.Draw(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(size, size))}, stone, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawOverlays(img *image.RGBA, gs *dto.GameState, opts Options, origin image.Point, sq int) {
	center := func(m dto.Move) (float64, float64) {
		return float64(origin.X + m.Col*sq + sq/2), float64(origin.Y + m.Row*sq + sq/2)
	}
	if opts.ShowLegalMoves && !gs.IsGameOver {
		for _, m := range gs.ValidMoves {
			if !m.InBounds() {
				continue
			}
			x, y := center(m)
			fillCircle(img, x, y, float64(sq)/7, hintColor)
		}
	}
	if opts.ShowFlipped {
		for _, m := range gs.FlippedStones {
			if !m.InBounds() {
				continue
			}
			x, y := center(m)
			strokeCircle(img, x, y, float64(sq)*0.42, 2, flippedColor)
		}
	}
	if opts.ShowLastMove && gs.LastMove != nil && gs.LastMove.InBounds() {
		x, y := center(*gs.LastMove)
		fillCircle(img, x, y, float64(sq)/10, lastMoveColor)
	}
}

func drawHUD(img *image.RGBA, gs *dto.GameState, opts Options, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	panel := image.Rect(boardRect.Min.X, 16, boardRect.Max.X, 16+panelHeight)
	drawRoundedPanel(img, panel, panelRadius, panelColor)

	header := strings.TrimSpace(opts.Header)
	if header == "" {
		header = fmt.Sprintf("%s (B) %d  -  %d %s (W)",
			nameOr(gs.Player1Name, "Black"), gs.BlackScore, gs.WhiteScore, nameOr(gs.Player2Name, "White"))
	}
	header = truncateWithEllipsis(face, header, panel.Dx()-24)
	top := image.Rect(panel.Min.X, panel.Min.Y, panel.Max.X, panel.Min.Y+panelHeight/2+4)
	drawCenteredString(drawer, top, header, textColor)

	bottom := image.Rect(panel.Min.X, top.Max.Y-4, panel.Max.X, panel.Max.Y)
	drawCenteredString(drawer, bottom, statusLine(gs), mutedTextColor)
}

func statusLine(gs *dto.GameState) string {
	if gs.IsGameOver {
		switch w := gs.Outcome(); w {
		case dto.Player1, dto.Player2:
			return fmt.Sprintf("Game over: %s wins", nameOr(gs.PlayerName(w), w.Color()))
		default:
			return "Game over: draw"
		}
	}
	turn := nameOr(gs.PlayerName(gs.CurrentPlayer), gs.CurrentPlayer.Color())
	return fmt.Sprintf("Move %d | %s (%s) to play", gs.MoveCount+1, turn, gs.CurrentPlayer.Color())
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

// Row and column labels use the same 0-based indices as the move log.
func drawCoordinates(img *image.RGBA, origin image.Point, sq int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(mutedTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < dto.BoardSize; i++ {
		label := strconv.Itoa(i)
		drawCenteredText(drawer, label, origin.X+i*sq+sq/2, origin.Y-6)
		drawCenteredText(drawer, label, origin.X-sideMargin/2, origin.Y+i*sq+sq/2+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	d := font.Drawer{Face: face}
	if d.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if c := string(runes) + "..."; d.MeasureString(c).Round() <= maxWidth {
			return c
		}
	}
	return "..."
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if limit := min(rect.Dx(), rect.Dy()) / 2; radius > limit {
		radius = limit
	}
	fill := image.NewUniform(clr)
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	r := float64(radius)
	for _, c := range [][2]float64{
		{float64(rect.Min.X) + r, float64(rect.Min.Y) + r},
		{float64(rect.Max.X) - r, float64(rect.Min.Y) + r},
		{float64(rect.Min.X) + r, float64(rect.Max.Y) - r},
		{float64(rect.Max.X) - r, float64(rect.Max.Y) - r},
	} {
		fillCircle(img, c[0], c[1], r, clr)
	}
}
