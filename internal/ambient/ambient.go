// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ambient is the consumer side of the doze pulse: it lights a small
// OLED with the time for a few seconds every time a pulse arrives.
package ambient

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/doze_gestures/internal/transport"
)

// Panel is the drawing surface; *ssd1306.Dev satisfies it.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OpenSSD1306 opens the default I2C bus and the 128x64 panel on it.
func OpenSSD1306() (Panel, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	return dev, bus.Close, nil
}

// Screen shows the ambient clock on pulses and blanks it after Duration.
type Screen struct {
	panel    Panel
	duration time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu     sync.Mutex
	shown  uint64
	blankT *time.Timer
}

func NewScreen(panel Panel, duration time.Duration, logger *zap.Logger) *Screen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screen{panel: panel, duration: duration, now: time.Now, logger: logger.Named("ambient")}
}

// Subscribe shows the screen on every message on the pulse topic.
func (s *Screen) Subscribe(sub transport.Subscriber, topic string) error {
	return sub.Subscribe(topic, 1, func(string, []byte) error {
		return s.Show()
	})
}

// Show draws the clock and (re)arms the blanking timer.
func (s *Screen) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shown++
	img := Render(s.now(), s.shown)
	if err := s.panel.Draw(s.panel.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("ambient draw: %w", err)
	}

	if s.blankT != nil {
		s.blankT.Stop()
	}
	s.blankT = time.AfterFunc(s.duration, s.blank)
	s.logger.Debug("ambient shown", zap.Uint64("count", s.shown))
	return nil
}

func (s *Screen) blank() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.panel.Draw(s.panel.Bounds(), Blank(), image.Point{}); err != nil {
		s.logger.Warn("ambient blank failed", zap.Error(err))
	}
}

// Shown returns how many pulses were displayed.
func (s *Screen) Shown() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// Run blanks the panel at startup and halts it when ctx ends.
func (s *Screen) Run(ctx context.Context) error {
	s.blank()
	<-ctx.Done()

	s.mu.Lock()
	if s.blankT != nil {
		s.blankT.Stop()
	}
	s.mu.Unlock()
	s.blank()
	return s.panel.Halt()
}

// Blank returns an all-off frame.
func Blank() *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
}

// Render draws the ambient frame: the time, the date and a pulse counter.
func Render(t time.Time, count uint64) *image1bit.VerticalLSB {
	img := Blank()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(46, 26)
	drawer.DrawBytes([]byte(t.Format("15:04")))

	drawer.Dot = fixed.P(29, 43)
	drawer.DrawBytes([]byte(t.Format("Mon 02 Jan")))

	drawer.Dot = fixed.P(0, 62)
	drawer.DrawBytes([]byte(fmt.Sprintf("#%d", count)))

	return img
}
