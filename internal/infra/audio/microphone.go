//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"

	"voicebridge/internal/application"
)

const framesPerBuffer = 1024

// Microphone captures from the default input device through PortAudio.
type Microphone struct {
	recordings string
	logger     *slog.Logger
}

func NewMicrophone(recordings string, logger *slog.Logger) *Microphone {
	return &Microphone{recordings: recordings, logger: logger}
}

// NewMicrophoneMode returns the guard that initializes PortAudio for the
// duration of a capture and terminates it afterwards.
func NewMicrophoneMode() *ModeGuard {
	return NewModeGuard(portaudio.Initialize, portaudio.Terminate)
}

func (m *Microphone) Name() string {
	return "microphone"
}

// RequestMicrophone reports whether a default input device exists. Desktop
// hosts have no interactive permission prompt.
func (m *Microphone) RequestMicrophone(_ context.Context) (bool, error) {
	if err := portaudio.Initialize(); err != nil {
		return false, fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return false, fmt.Errorf("finding input device: %w", err)
	}
	if dev == nil || dev.MaxInputChannels < 1 {
		return false, nil
	}
	return true, nil
}

func (m *Microphone) Open(_ context.Context, format application.CaptureFormat) (application.CaptureHandle, error) {
	buffer := make([]int16, framesPerBuffer*format.Channels)

	stream, err := portaudio.OpenDefaultStream(
		format.Channels,
		0,
		float64(format.SampleRate),
		framesPerBuffer,
		buffer,
	)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	c := &micCapture{
		stream: stream,
		buffer: buffer,
		format: format,
		path:   filepath.Join(m.recordings, uuid.NewString()+".wav"),
		done:   make(chan struct{}),
		logger: m.logger,
	}
	c.wg.Add(1)
	go c.read()

	m.logger.Info("microphone started", "sample_rate", format.SampleRate)
	return c, nil
}

type micCapture struct {
	stream *portaudio.Stream
	buffer []int16
	format application.CaptureFormat
	path   string
	logger *slog.Logger

	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	samples []int16
	readErr error

	stopOnce sync.Once
	stopErr  error
	written  bool
}

func (c *micCapture) read() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}

		c.mu.Lock()
		c.samples = append(c.samples, c.buffer...)
		c.mu.Unlock()
	}
}

func (c *micCapture) halt() error {
	c.stopOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		errs := []error{c.stream.Stop(), c.stream.Close()}
		c.stopErr = errors.Join(errs...)
	})
	return c.stopErr
}

func (c *micCapture) Stop(_ context.Context) error {
	if err := c.halt(); err != nil {
		return fmt.Errorf("stopping stream: %w", err)
	}

	c.mu.Lock()
	samples, readErr := c.samples, c.readErr
	c.mu.Unlock()

	if len(samples) == 0 {
		if readErr != nil {
			return fmt.Errorf("reading from stream: %w", readErr)
		}
		return errors.New("no audio captured")
	}
	if readErr != nil {
		c.logger.Warn("capture ended early", "error", readErr)
	}

	if err := WriteWAV(c.path, samples, c.format.SampleRate, c.format.Channels); err != nil {
		return err
	}
	c.written = true
	return nil
}

func (c *micCapture) Locator() (string, error) {
	if !c.written {
		return "", errors.New("recording not written")
	}
	return c.path, nil
}

func (c *micCapture) Discard() error {
	err := c.halt()
	if rmErr := removeIfExists(c.path); rmErr != nil {
		err = errors.Join(err, rmErr)
	}
	return err
}
