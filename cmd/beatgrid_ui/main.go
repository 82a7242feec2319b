package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cbegin/beatgrid-go"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/pkg/errors"
)

const (
	windowW      = 1100
	windowH      = 720
	minWindowW   = 980
	minWindowH   = 680
	uiSampleRate = 48000

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	semitoneMin = -12
	semitoneMax = 12
	tempoStep   = 5
)

var (
	bgColor        = color.RGBA{192, 192, 192, 255}
	panelColor     = color.RGBA{192, 192, 192, 255}
	borderColor    = color.RGBA{128, 128, 128, 255}
	buttonColor    = color.RGBA{192, 192, 192, 255}
	highlightColor = color.RGBA{0, 0, 128, 255}
	mutedColor     = color.RGBA{96, 32, 32, 255}
	cellColor      = color.RGBA{40, 44, 58, 255}
	beatCellColor  = color.RGBA{54, 58, 76, 255}

	bevelLight  = color.RGBA{255, 255, 255, 255}
	bevelDarker = color.RGBA{64, 64, 64, 255}

	sunkenBgColor   = color.RGBA{24, 24, 32, 255}
	sliderFillColor = color.RGBA{0, 0, 128, 255}

	// Note colors, picked by tone index.
	tonePalette = []color.RGBA{
		{80, 200, 255, 255},
		{255, 160, 60, 255},
		{120, 220, 120, 255},
		{230, 90, 160, 255},
		{240, 220, 80, 255},
		{160, 120, 255, 255},
	}

	auditionKeys = []ebiten.Key{
		ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
		ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8,
	}
)

const ringBufLen = 65536

// scope keeps the last few seconds of output for the waveform view.
type scope struct {
	mu          sync.Mutex
	ring        []float32
	writePos    int
	totalTapped int64
}

func newScope() *scope {
	return &scope{ring: make([]float32, ringBufLen)}
}

// Tap runs on the audio goroutine.
func (s *scope) Tap(samples []float32) {
	s.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		s.ring[s.writePos] = (samples[i] + samples[i+1]) * 0.5
		s.writePos = (s.writePos + 1) % ringBufLen
		s.totalTapped++
	}
	s.mu.Unlock()
}

// Snapshot returns the n mono samples the listener is hearing at playedFrames.
func (s *scope) Snapshot(n int, playedFrames int64) []float32 {
	n = min(n, ringBufLen)
	out := make([]float32, n)
	s.mu.Lock()
	delay := int(max(0, s.totalTapped-playedFrames))
	delay = min(delay, ringBufLen-n)
	start := (s.writePos - delay - n + ringBufLen*2) % ringBufLen
	for i := range out {
		out[i] = s.ring[(start+i)%ringBufLen]
	}
	s.mu.Unlock()
	return out
}

type game struct {
	engine   *beatgrid.Engine
	session  *beatgrid.Session
	audition *beatgrid.Audition
	events   <-chan beatgrid.Event
	scope    *scope
	scopeImg *ebiten.Image
	wavePeak float64

	tones     []beatgrid.Tone
	toneIndex map[beatgrid.SampleRef]int
	navScroll int

	volume   float64
	dragging int // 0=none, 1=volume, 2=semitone

	resumed  bool
	resumeCh chan error
	loadCh   <-chan error
	loading  beatgrid.Tone
	step     int

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(samplesDir string, logger *slog.Logger) (*game, error) {
	session := beatgrid.NewSession()
	names, err := beatgrid.ListSamples(os.DirFS(samplesDir), ".")
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		session.AddTone(beatgrid.Tone{
			Title:  strings.TrimSuffix(name, path.Ext(name)),
			Sample: beatgrid.SampleRef(name),
		})
	}

	sc := newScope()
	engine, err := beatgrid.NewEngine(uiSampleRate, session, beatgrid.NewDirLoader(samplesDir, uiSampleRate),
		beatgrid.WithLogger(logger),
		beatgrid.WithSampleTap(sc.Tap),
	)
	if err != nil {
		return nil, err
	}

	g := &game{
		engine:    engine,
		session:   session,
		audition:  engine.NewAudition(),
		events:    engine.Watch(),
		scope:     sc,
		tones:     session.Tones(),
		toneIndex: make(map[beatgrid.SampleRef]int),
		volume:    0.8,
		step:      -1,
		status:    "Click anywhere to start audio",
		textCache: make(map[string]*ebiten.Image, 1024),
		viewW:     windowW,
		viewH:     windowH,
	}
	for i, t := range g.tones {
		g.toneIndex[t.Sample] = i
	}
	if len(g.tones) == 0 {
		g.setError("No samples in " + samplesDir)
	} else {
		g.selectTone(0)
	}
	return g, nil
}

func (g *game) Update() error {
	g.pollEvents()
	g.handleKeys()
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawSunkenPanel(screen, l.tones)
	g.drawSunkenPanel(screen, l.grid)
	g.drawDarkPanel(screen, l.scope)
	g.drawButton(screen, l.play, g.playButtonLabel(), buttonColor)
	g.drawButton(screen, l.reset, "Reset", buttonColor)
	g.drawTempo(screen, l)
	g.drawSemitoneSlider(screen, l.semitone)
	g.drawVolumeSlider(screen, l.volume)
	g.drawSunkenPanel(screen, l.status)

	g.drawText(screen, "Samples", l.tones.Min.X+8, l.tones.Min.Y+8)
	g.drawToneList(screen, l.tones)
	g.drawGrid(screen, l.grid)
	g.drawScope(screen, l.scope)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	outsideW = max(outsideW, minWindowW)
	outsideH = max(outsideH, minWindowH)
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func (g *game) Close() { _ = g.engine.Close() }

// ensureAudio opens the output in the background. Browsers and some hosts
// only allow it after a user gesture, so the first click or key does it.
func (g *game) ensureAudio() {
	if g.resumed {
		return
	}
	g.resumed = true
	g.resumeCh = make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		g.resumeCh <- g.engine.Resume(ctx)
	}()
}

func (g *game) pollEvents() {
	if g.resumeCh != nil {
		select {
		case err := <-g.resumeCh:
			g.resumeCh = nil
			if err != nil {
				g.resumed = false
				g.setError(err.Error())
			} else {
				g.setStatus("Audio ready")
			}
		default:
		}
	}
	if g.loadCh != nil {
		select {
		case err := <-g.loadCh:
			g.loadCh = nil
			switch {
			case err == nil:
				g.setStatus("Loaded " + g.loading.Title)
				_ = g.audition.Trigger(0)
			case !errors.Is(err, beatgrid.ErrSuperseded):
				g.setError(err.Error())
			}
		default:
		}
	}
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			switch ev.Kind {
			case beatgrid.EventPlayhead:
				g.step = ev.Step
			case beatgrid.EventAssetLoadError:
				g.setError(fmt.Sprintf("%s: %v", ev.Ref, ev.Err))
			case beatgrid.EventTriggerError:
				g.setError(ev.Err.Error())
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	for i, k := range auditionKeys {
		if inpututil.IsKeyJustPressed(k) {
			g.ensureAudio()
			g.session.SetSemitone(i)
			if err := g.audition.Trigger(i); err != nil {
				g.setError(err.Error())
			}
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.ensureAudio()
		g.togglePlay()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.changeTempo(-tempoStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.changeTempo(tempoStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		g.session.Reset(beatgrid.DefaultChannels, beatgrid.DefaultSteps)
		g.engine.ResetPlayhead()
		g.setStatus("Grid cleared")
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.ensureAudio()
		switch {
		case pointInRect(mx, my, l.play):
			g.togglePlay()
			return
		case pointInRect(mx, my, l.reset):
			g.engine.ResetPlayhead()
			g.setStatus("Playhead reset")
			return
		case pointInRect(mx, my, l.tempoDown):
			g.changeTempo(-tempoStep)
			return
		case pointInRect(mx, my, l.tempoUp):
			g.changeTempo(tempoStep)
			return
		case pointInRect(mx, my, l.semitone):
			g.dragging = 2
			g.updateSemitoneFromMouse(mx, l.semitone)
			return
		case pointInRect(mx, my, l.volume):
			g.dragging = 1
			g.updateVolumeFromMouse(mx, l.volume)
			return
		case pointInRect(mx, my, l.tones):
			g.clickToneList(my, l.tones)
			return
		case pointInRect(mx, my, l.grid):
			g.clickGrid(mx, my, l.grid)
			return
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = 0
	}
	switch g.dragging {
	case 1:
		g.updateVolumeFromMouse(mx, l.volume)
	case 2:
		g.updateSemitoneFromMouse(mx, l.semitone)
	}

	if _, wy := ebiten.Wheel(); wy != 0 && pointInRect(mx, my, l.tones) {
		g.navScroll = max(0, g.navScroll-int(wy*2))
	}
}

type uiLayout struct {
	tones, grid, scope        image.Rectangle
	play, reset               image.Rectangle
	tempo, tempoDown, tempoUp image.Rectangle
	semitone, volume, status  image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := max(g.viewW, minWindowW)
	h := max(g.viewH, minWindowH)

	pad := 20
	rowH := 44
	statusH := 40

	statusTop := h - pad - statusH
	controlsTop := statusTop - 8 - rowH
	contentBottom := controlsTop - 12

	tonesW := 240
	tonesRect := image.Rect(pad, pad, pad+tonesW, contentBottom)

	rightX := tonesRect.Max.X + 12
	rightW := max(w-rightX-pad, 320)
	scopeH := min(max(int(float64(contentBottom-pad)*0.25), 100), 200)
	gridRect := image.Rect(rightX, pad, rightX+rightW, contentBottom-scopeH-12)
	scopeRect := image.Rect(rightX, gridRect.Max.Y+12, rightX+rightW, contentBottom)

	playRect := image.Rect(pad, controlsTop, pad+110, controlsTop+rowH)
	resetRect := image.Rect(pad+118, controlsTop, pad+228, controlsTop+rowH)
	tempoRect := image.Rect(pad+240, controlsTop, pad+440, controlsTop+rowH)
	tempoDown := image.Rect(tempoRect.Max.X-84, controlsTop+4, tempoRect.Max.X-46, controlsTop+rowH-4)
	tempoUp := image.Rect(tempoRect.Max.X-42, controlsTop+4, tempoRect.Max.X-4, controlsTop+rowH-4)
	semiRect := image.Rect(pad+452, controlsTop, pad+700, controlsTop+rowH)
	volRight := min(pad+712+260, w-pad)
	volumeRect := image.Rect(pad+712, controlsTop, volRight, controlsTop+rowH)

	statusRect := image.Rect(pad, statusTop, w-pad, statusTop+statusH)

	return uiLayout{
		tones: tonesRect, grid: gridRect, scope: scopeRect,
		play: playRect, reset: resetRect,
		tempo: tempoRect, tempoDown: tempoDown, tempoUp: tempoUp,
		semitone: semiRect, volume: volumeRect, status: statusRect,
	}
}

func (g *game) drawToneList(screen *ebiten.Image, rect image.Rectangle) {
	top := rect.Min.Y + 12 + lineH
	maxLines := max(1, (rect.Dy()-lineH-18)/lineH)
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.navScroll = min(g.navScroll, max(0, len(g.tones)-1))
	current, ok := g.session.CurrentTone()

	for i := 0; i < maxLines; i++ {
		idx := g.navScroll + i
		if idx >= len(g.tones) {
			break
		}
		t := g.tones[idx]
		y := top + i*lineH
		if ok && t.ID == current.ID {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+6), float64(y-2), float64(rect.Dx()-12), float64(lineH+2), highlightColor)
		}
		swatch := tonePalette[idx%len(tonePalette)]
		ebitenutil.DrawRect(screen, float64(rect.Min.X+10), float64(y+6), 10, 14, swatch)
		g.drawText(screen, shortenEnd(t.Title, maxChars-2), rect.Min.X+28, y)
	}
}

func (g *game) clickToneList(my int, rect image.Rectangle) {
	top := rect.Min.Y + 12 + lineH
	row := (my - top) / lineH
	if row < 0 {
		return
	}
	idx := g.navScroll + row
	if idx >= len(g.tones) {
		return
	}
	g.selectTone(idx)
}

// selectTone makes the tone current for new notes and loads it into the
// audition player.
func (g *game) selectTone(idx int) {
	t := g.tones[idx]
	if err := g.session.SelectTone(t.ID); err != nil {
		g.setError(err.Error())
		return
	}
	g.loading = t
	g.loadCh = g.audition.SetSample(t.Sample, t.Params())
	g.setStatus("Loading " + t.Title)
}

// gridCell maps a point to a grid cell. Column -1 is the channel's mute
// button.
func (g *game) gridCell(mx, my int, rect image.Rectangle, grid beatgrid.Grid) (ch, step int, ok bool) {
	cw, rh, left, top := gridMetrics(rect, grid)
	if my < top || mx < rect.Min.X+8 {
		return 0, 0, false
	}
	ch = (my - top) / rh
	if ch >= len(grid.Channels) {
		return 0, 0, false
	}
	if mx < left {
		return ch, -1, true
	}
	step = (mx - left) / cw
	if step >= grid.Steps {
		return 0, 0, false
	}
	return ch, step, true
}

func gridMetrics(rect image.Rectangle, grid beatgrid.Grid) (cellW, rowH, left, top int) {
	left = rect.Min.X + 8 + 4*charW
	top = rect.Min.Y + 12 + lineH
	steps := max(1, grid.Steps)
	channels := max(1, len(grid.Channels))
	cellW = max(8, (rect.Max.X-8-left)/steps)
	rowH = max(lineH, (rect.Max.Y-8-top)/channels)
	return cellW, rowH, left, top
}

func (g *game) drawGrid(screen *ebiten.Image, rect image.Rectangle) {
	grid := g.session.Grid()
	cw, rh, left, top := gridMetrics(rect, grid)
	g.drawText(screen, fmt.Sprintf("Grid %dx%d", len(grid.Channels), grid.Steps), rect.Min.X+8, rect.Min.Y+8)

	if g.step >= 0 && g.step < grid.Steps {
		x := left + g.step*cw
		ebitenutil.DrawRect(screen, float64(x), float64(top-4), float64(cw), float64(rh*len(grid.Channels)+4), highlightColor)
	}
	for ch, c := range grid.Channels {
		y := top + ch*rh
		muteRect := image.Rect(rect.Min.X+8, y+2, left-6, y+rh-2)
		fill := color.Color(buttonColor)
		if !c.Active {
			fill = mutedColor
		}
		ebitenutil.DrawRect(screen, float64(muteRect.Min.X), float64(muteRect.Min.Y), float64(muteRect.Dx()), float64(muteRect.Dy()), fill)
		drawBorder(screen, muteRect)
		g.drawText(screen, fmt.Sprintf("%d", ch+1), muteRect.Min.X+8, muteRect.Min.Y+(muteRect.Dy()-lineH)/2)

		for step, n := range c.Notes {
			cell := image.Rect(left+step*cw+2, y+2, left+(step+1)*cw-2, y+rh-2)
			bg := cellColor
			if step%4 == 0 {
				bg = beatCellColor
			}
			ebitenutil.DrawRect(screen, float64(cell.Min.X), float64(cell.Min.Y), float64(cell.Dx()), float64(cell.Dy()), bg)
			if n == nil {
				continue
			}
			nc := tonePalette[g.toneIndex[n.Sample]%len(tonePalette)]
			if !c.Active {
				nc = color.RGBA{nc.R / 3, nc.G / 3, nc.B / 3, 255}
			}
			ebitenutil.DrawRect(screen, float64(cell.Min.X+2), float64(cell.Min.Y+2), float64(cell.Dx()-4), float64(cell.Dy()-4), nc)
			if chars := (cell.Dx() - 4) / charW; chars >= 2 {
				g.drawText(screen, shortenEnd(noteSuffix(n.Label), chars), cell.Min.X+3, cell.Min.Y+(cell.Dy()-lineH)/2)
			}
		}
	}
}

// noteSuffix is the "+3" part of a note label.
func noteSuffix(label string) string {
	if i := strings.LastIndexAny(label, "+-"); i >= 0 {
		return label[i:]
	}
	return label
}

func (g *game) clickGrid(mx, my int, rect image.Rectangle) {
	grid := g.session.Grid()
	ch, step, ok := g.gridCell(mx, my, rect, grid)
	if !ok {
		return
	}
	if step < 0 {
		if err := g.session.ToggleChannel(ch); err != nil {
			g.setError(err.Error())
		}
		return
	}
	n, err := g.session.ToggleNote(ch, step)
	if err != nil {
		g.setError(err.Error())
		return
	}
	if n != nil {
		g.setStatus(fmt.Sprintf("%s at %d/%d", n.Label, ch+1, step+1))
	}
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width, height := inner.Dx(), inner.Dy()
	if width < 2 || height < 4 {
		return
	}
	if g.scopeImg == nil || g.scopeImg.Bounds().Dx() != width || g.scopeImg.Bounds().Dy() != height {
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})

	played := int64(g.engine.PlaybackPosition().Seconds() * uiSampleRate)
	samples := g.scope.Snapshot(2048, played)
	midY := height / 2
	ebitenutil.DrawRect(g.scopeImg, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: fast attack, slow release.
	peak := 0.01
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	if peak > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + peak*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + peak*0.005
	}
	gain := float64(midY-2) / math.Max(g.wavePeak, 0.01)

	waveColor := color.RGBA{80, 200, 255, 220}
	prevY := midY - int(float64(samples[0])*gain)
	for px := 1; px < width; px++ {
		si := min(px*len(samples)/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(g.scopeImg, float64(px-1), float64(prevY), float64(px), float64(y), waveColor)
		prevY = y
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func (g *game) drawTempo(screen *ebiten.Image, l uiLayout) {
	g.drawPanel(screen, l.tempo)
	g.drawText(screen, fmt.Sprintf("%3.0f BPM", g.session.Tempo()), l.tempo.Min.X+8, l.tempo.Min.Y+8)
	g.drawButton(screen, l.tempoDown, "-", buttonColor)
	g.drawButton(screen, l.tempoUp, "+", buttonColor)
}

// changeTempo edits the session; the engine picks it up on the next pulse.
func (g *game) changeTempo(delta float64) {
	bpm := g.session.SetTempo(g.session.Tempo() + delta)
	g.setStatus(fmt.Sprintf("Tempo: %.0f BPM", bpm))
}

func (g *game) drawSemitoneSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Semi %+d", g.session.Semitone()), rect.Min.X+8, rect.Min.Y+8)

	trackX, trackW := rect.Min.X+120, rect.Dx()-136
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	drawTrack(screen, trackX, trackY, trackW)
	centerX := trackX + trackW/2
	ebitenutil.DrawRect(screen, float64(centerX)-1, float64(trackY-2), 2, 12, borderColor)

	frac := float64(g.session.Semitone()-semitoneMin) / float64(semitoneMax-semitoneMin)
	drawKnob(screen, trackX, trackY, trackW, trackX+int(frac*float64(trackW)))
}

func (g *game) updateSemitoneFromMouse(mx int, rect image.Rectangle) {
	trackX, trackW := rect.Min.X+120, rect.Dx()-136
	if trackW <= 0 {
		return
	}
	frac := clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	semi := int(math.Round(frac*float64(semitoneMax-semitoneMin))) + semitoneMin
	if semi != g.session.Semitone() {
		g.session.SetSemitone(semi)
		g.setStatus(fmt.Sprintf("New notes at %+d semitones", semi))
	}
}

func (g *game) drawVolumeSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Vol %d%%", int(g.volume*100+0.5)), rect.Min.X+8, rect.Min.Y+8)

	trackX, trackW := rect.Min.X+130, rect.Dx()-146
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	drawTrack(screen, trackX, trackY, trackW)
	fillW := int(float64(trackW) * clamp(g.volume, 0, 1))
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	drawKnob(screen, trackX, trackY, trackW, trackX+fillW)
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	trackX, trackW := rect.Min.X+130, rect.Dx()-146
	if trackW <= 0 {
		return
	}
	g.volume = clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	g.engine.SetMasterGain(g.volume)
	g.setStatus(fmt.Sprintf("Volume: %d%%", int(g.volume*100+0.5)))
}

func (g *game) togglePlay() {
	if g.engine.Running() {
		g.engine.Stop()
		g.setStatus("Stopped")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := g.engine.Start(ctx); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Playing")
}

func (g *game) playButtonLabel() string {
	if g.engine.Running() {
		return "Stop"
	}
	return "Play"
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string, fill color.Color) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), fill)
	drawBorder(screen, rect)
	labelW := len([]rune(label)) * charW
	g.drawText(screen, label, rect.Min.X+(rect.Dx()-labelW)/2, rect.Min.Y+(rect.Dy()-lineH)/2)
}

// drawTrack draws a sunken slider groove.
func drawTrack(screen *ebiten.Image, x, y, w int) {
	ebitenutil.DrawRect(screen, float64(x), float64(y), float64(w), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(x), float64(y), float64(w-1), 1, borderColor)
	ebitenutil.DrawRect(screen, float64(x), float64(y), 1, 7, borderColor)
}

func drawKnob(screen *ebiten.Image, trackX, trackY, trackW, at int) {
	knobX := min(max(at-5, trackX-5), trackX+trackW-5)
	knob := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), panelColor)
	drawBorder(screen, knob)
}

// drawBorder draws a raised 3D bevel (highlight top/left, shadow bottom/right).
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

// drawSunkenBorder draws a sunken 3D bevel (shadow top/left, highlight bottom/right).
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
	ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 3000 {
			g.textCache = make(map[string]*ebiten.Image, 1024)
		}
		g.textCache[msg] = img
	}
	opS := &ebiten.DrawImageOptions{}
	opS.GeoM.Scale(textScale, textScale)
	opS.GeoM.Translate(float64(x+2), float64(y+2))
	opS.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, opS)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func clamp(v, minV, maxV float64) float64 {
	return math.Min(math.Max(v, minV), maxV)
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}

func main() {
	samplesDir := flag.String("samples", ".", "directory of WAV, MP3 and Ogg samples")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	g, err := newGame(*samplesDir, logger)
	if err != nil {
		logger.Error("start", "err", err)
		os.Exit(1)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("beatgrid")
	if err := ebiten.RunGame(g); err != nil {
		logger.Error("run", "err", err)
		os.Exit(1)
	}
}
