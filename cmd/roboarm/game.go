package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"roboarm/internal/arm"
	"roboarm/internal/frontend"
	"roboarm/pkg/types"
)

var (
	colBackground = color.RGBA{0x00, 0x00, 0x00, 0xff}
	colLink       = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colJoint      = color.RGBA{0x4c, 0xaf, 0x50, 0xff}
	colWaypoint   = color.RGBA{0xff, 0xc1, 0x07, 0xff}
	colPath       = color.RGBA{0x80, 0x80, 0x80, 0xff}
	colTarget     = color.RGBA{0xf4, 0x43, 0x36, 0xff}
)

// Game adapts the arm controller to ebiten. Update is the frame loop.
type Game struct {
	controller *arm.Controller
	arm        types.ArmConfig
	mapper     *frontend.Mapper
	clock      *frontend.Clock
	frame      *types.Frame
	width      int
	height     int
}

func NewGame(controller *arm.Controller, window types.WindowConfig) *Game {
	return &Game{
		controller: controller,
		arm:        controller.Arm(),
		mapper:     frontend.NewMapper("window"),
		clock:      frontend.NewClock(),
		frame:      controller.Frame(),
		width:      window.Width,
		height:     window.Height,
	}
}

func readInput() frontend.Input {
	x, y := ebiten.CursorPosition()
	return frontend.Input{
		Cursor: types.Point2D{X: float64(x), Y: float64(y)},
		Record: inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) ||
			inpututil.IsKeyJustPressed(ebiten.KeySpace),
		Play: inpututil.IsKeyJustPressed(ebiten.KeyP) ||
			inpututil.IsKeyJustPressed(ebiten.KeyEnter),
		Reset: inpututil.IsKeyJustPressed(ebiten.KeyR) ||
			inpututil.IsKeyJustPressed(ebiten.KeyBackspace),
		Quit: inpututil.IsKeyJustPressed(ebiten.KeyQ) ||
			inpututil.IsKeyJustPressed(ebiten.KeyEscape),
	}
}

func (g *Game) Update() error {
	dt := g.clock.Begin()
	defer g.clock.End()

	in := readInput()
	if in.Quit {
		return ebiten.Termination
	}
	for _, ev := range g.mapper.Events(in) {
		g.controller.Submit(ev)
	}

	g.frame = g.controller.Tick(dt)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colBackground)
	scene := frontend.BuildScene(g.arm, g.frame, g.controller.Capacity())

	for _, seg := range scene.Path {
		strokeSegment(screen, seg, 1, colPath)
	}
	for _, p := range scene.Waypoints {
		vector.DrawFilledCircle(screen, float32(p.X), float32(p.Y), 4, colWaypoint, true)
	}

	width := float32(scene.LinkWidth)
	if width < 1 {
		width = 1
	}
	for _, link := range scene.Links {
		strokeSegment(screen, link, width, colLink)
	}
	for _, j := range scene.Joints {
		vector.DrawFilledCircle(screen, float32(j.X), float32(j.Y), width*0.75, colJoint, true)
	}
	vector.StrokeCircle(screen, float32(scene.Target.X), float32(scene.Target.Y), 6, 1, colTarget, true)

	ebitenutil.DebugPrint(screen, scene.Status)
}

func strokeSegment(dst *ebiten.Image, s frontend.Segment, width float32, clr color.Color) {
	vector.StrokeLine(dst, float32(s.From.X), float32(s.From.Y), float32(s.To.X), float32(s.To.Y), width, clr, true)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
