// Package ui hosts the emulator in an ebiten window, mapping the left
// half of a QWERTY keyboard onto the hexadecimal pad and gating a square
// wave beeper on the sound timer.
package ui

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/ezrec/chip8/chip8"
	"github.com/ezrec/chip8/emulator"
)

// The canonical COSMAC VIP pad layout, on the 1-4/q-r/a-f/z-v block:
//
//	1 2 3 C        1 2 3 4
//	4 5 6 D   <-   q w e r
//	7 8 9 E        a s d f
//	A 0 B F        z x c v
var keyMap = map[ebiten.Key]byte{
	ebiten.KeyDigit1: 0x1,
	ebiten.KeyDigit2: 0x2,
	ebiten.KeyDigit3: 0x3,
	ebiten.KeyDigit4: 0xc,
	ebiten.KeyQ:      0x4,
	ebiten.KeyW:      0x5,
	ebiten.KeyE:      0x6,
	ebiten.KeyR:      0xd,
	ebiten.KeyA:      0x7,
	ebiten.KeyS:      0x8,
	ebiten.KeyD:      0x9,
	ebiten.KeyF:      0xe,
	ebiten.KeyZ:      0xa,
	ebiten.KeyX:      0x0,
	ebiten.KeyC:      0xb,
	ebiten.KeyV:      0xf,
}

// App runs an Emulator under the ebiten game loop.
type App struct {
	cfg Config
	emu *emulator.Emulator

	tex *ebiten.Image
	pix []byte

	audioPlayer *audio.Player
}

// NewApp creates the host window around an emulator.
func NewApp(cfg Config, emu *emulator.Emulator) (app *App, err error) {
	cfg.Defaults()

	app = &App{
		cfg: cfg,
		emu: emu,
		tex: ebiten.NewImage(chip8.DISPLAY_WIDTH, chip8.DISPLAY_HEIGHT),
		pix: make([]byte, chip8.DISPLAY_WIDTH*chip8.DISPLAY_HEIGHT*4),
	}

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(chip8.DISPLAY_WIDTH*cfg.Scale, chip8.DISPLAY_HEIGHT*cfg.Scale)
	ebiten.SetTPS(emulator.FRAME_HZ)

	if !cfg.Mute {
		ctx := audio.CurrentContext()
		if ctx == nil {
			ctx = audio.NewContext(sampleRate)
		}
		app.audioPlayer, err = ctx.NewPlayer(&beepStream{active: emu.SoundActive})
		if err != nil {
			return
		}
		app.audioPlayer.Play()
	}

	return
}

// Run drives the game loop until the window closes or the program faults.
func (app *App) Run() (err error) {
	err = ebiten.RunGame(app)

	if app.audioPlayer != nil {
		app.audioPlayer.Close()
	}

	return
}

// Update runs one emulator frame at the display cadence.
func (app *App) Update() (err error) {
	for key, pad := range keyMap {
		app.emu.SetKey(pad, ebiten.IsKeyPressed(key))
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		return app.emu.Reset()
	}

	// An idle program keeps the window and timers alive.
	_, err = app.emu.Frame()

	return
}

// Draw refreshes the texture when the framebuffer has changed.
func (app *App) Draw(screen *ebiten.Image) {
	if app.emu.DrawFlag {
		app.emu.DrawFlag = false

		n := 0
		for row := range app.emu.Display {
			for col := range app.emu.Display[row] {
				lit := byte(0)
				if app.emu.Display[row][col] != 0 {
					lit = 0xff
				}
				app.pix[n+0] = lit
				app.pix[n+1] = lit
				app.pix[n+2] = lit
				app.pix[n+3] = 0xff
				n += 4
			}
		}
		app.tex.WritePixels(app.pix)
	}

	screen.DrawImage(app.tex, nil)
}

// Layout reports the logical screen size; ebiten scales it to the window.
func (app *App) Layout(outW, outH int) (int, int) {
	return chip8.DISPLAY_WIDTH, chip8.DISPLAY_HEIGHT
}
