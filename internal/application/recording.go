package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"voicebridge/internal/domain"
)

type SessionState string

const (
	StateIdle              SessionState = "idle"
	StatePermissionPending SessionState = "permission_pending"
	StateArmed             SessionState = "armed"
	StateCapturing         SessionState = "capturing"
	StateFinalizing        SessionState = "finalizing"
	StateFailed            SessionState = "failed"
)

// RecordingSession owns the microphone for one capture at a time.
//
// A session does not arbitrate between instances: the caller must make sure
// only one session holds the microphone, and must serialize calls against a
// single session. Every holder must call Cleanup on all exit paths.
type RecordingSession struct {
	permissions Permissions
	device      CaptureDevice
	mode        AudioMode
	format      CaptureFormat
	logger      *slog.Logger
	metrics     *pipelineMetrics
	now         clock

	op sync.Mutex

	mu        sync.Mutex
	state     SessionState
	handle    CaptureHandle
	release   func() error
	startedAt time.Time
	lastErr   error
}

func NewRecordingSession(
	permissions Permissions,
	device CaptureDevice,
	mode AudioMode,
	format CaptureFormat,
	logger *slog.Logger,
) *RecordingSession {
	return &RecordingSession{
		permissions: permissions,
		device:      device,
		mode:        mode,
		format:      format,
		logger:      logger,
		metrics:     newPipelineMetrics(logger),
		now:         time.Now,
		state:       StateIdle,
	}
}

func (s *RecordingSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the error that moved the session to StateFailed.
func (s *RecordingSession) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *RecordingSession) setState(state SessionState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	s.logger.Debug("recording state", "from", prev, "to", state)
}

// RequestStart asks for microphone access, configures the audio mode and
// opens the capture stream. On success the session is Capturing; on failure
// it is Failed and the audio mode has already been restored.
func (s *RecordingSession) RequestStart(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	if state := s.State(); state != StateIdle {
		return domain.NewError(domain.KindSessionBusy, "start", "recording session is "+string(state))
	}

	s.setState(StatePermissionPending)

	granted, err := s.permissions.RequestMicrophone(ctx)
	if err != nil {
		return s.fail(ctx, domain.WrapError(domain.KindDeviceUnavailable, "start", "requesting microphone permission", err))
	}
	if !granted {
		return s.fail(ctx, domain.NewError(domain.KindPermissionDenied, "start", "microphone permission denied"))
	}

	release, err := s.mode.Acquire(ctx)
	if err != nil {
		return s.fail(ctx, domain.WrapError(domain.KindDeviceUnavailable, "start", "configuring audio mode", err))
	}

	s.mu.Lock()
	s.release = release
	s.mu.Unlock()
	s.setState(StateArmed)

	handle, err := s.device.Open(ctx, s.format)
	if err != nil {
		s.restoreAudioMode()
		return s.fail(ctx, domain.WrapError(domain.KindDeviceUnavailable, "start", "opening capture device", err))
	}

	s.mu.Lock()
	s.handle = handle
	s.startedAt = s.now()
	s.mu.Unlock()
	s.setState(StateCapturing)

	s.logger.Info("recording started",
		"sample_rate", s.format.SampleRate,
		"channels", s.format.Channels,
	)
	return nil
}

// RequestStop finalizes the capture and returns the artifact. The session is
// always Idle afterwards; a failed retrieval yields an artifact with
// Succeeded=false rather than an error.
func (s *RecordingSession) RequestStop(ctx context.Context) (domain.RecordingArtifact, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if s.State() != StateCapturing {
		return domain.RecordingArtifact{}, domain.NewError(domain.KindNoActiveRecording, "stop", "no recording in progress")
	}

	s.setState(StateFinalizing)

	s.mu.Lock()
	handle := s.handle
	startedAt := s.startedAt
	s.mu.Unlock()

	defer func() {
		s.restoreAudioMode()
		s.mu.Lock()
		s.handle = nil
		s.mu.Unlock()
		s.setState(StateIdle)
	}()

	duration := s.now().Sub(startedAt)
	if duration < 0 {
		duration = 0
	}
	artifact := domain.RecordingArtifact{DurationMillis: duration.Milliseconds()}

	if err := handle.Stop(ctx); err != nil {
		artifact.FailureReason = "stopping capture: " + err.Error()
		s.logger.Warn("recording stop failed", "error", err)
		s.discard(handle)
		add(ctx, s.metrics.recordings, attribute.String("outcome", "stop_failed"))
		return artifact, nil
	}

	locator, err := handle.Locator()
	if err != nil || locator == "" {
		if err == nil {
			err = errors.New("empty locator")
		}
		artifact.FailureReason = "retrieving recording: " + err.Error()
		s.logger.Warn("recording retrieval failed", "error", err)
		s.discard(handle)
		add(ctx, s.metrics.recordings, attribute.String("outcome", "retrieval_failed"))
		return artifact, nil
	}

	artifact.Locator = locator
	artifact.Succeeded = true

	s.logger.Info("recording stopped", "locator", locator, "duration_ms", artifact.DurationMillis)
	add(ctx, s.metrics.recordings, attribute.String("outcome", "ok"))
	return artifact, nil
}

// Cleanup forces the session back to Idle, discarding any capture in
// progress. It is a no-op on an Idle session.
func (s *RecordingSession) Cleanup(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	state := s.State()
	if state == StateIdle {
		return nil
	}

	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	var errs []error
	if handle != nil {
		if err := handle.Discard(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.restoreAudioMode(); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	s.setState(StateIdle)

	if state == StateCapturing {
		add(ctx, s.metrics.recordings, attribute.String("outcome", "discarded"))
	}
	s.logger.Debug("recording session cleaned up", "from", state)
	return errors.Join(errs...)
}

func (s *RecordingSession) fail(ctx context.Context, err *domain.Error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.setState(StateFailed)

	s.logger.Warn("recording failed", "kind", err.Kind, "error", err)
	add(ctx, s.metrics.recordings, attribute.String("outcome", string(err.Kind)))
	return err
}

// discard drops a partial capture that will never become an artifact.
func (s *RecordingSession) discard(handle CaptureHandle) {
	if err := handle.Discard(); err != nil {
		s.logger.Warn("discarding partial capture", "error", err)
	}
}

func (s *RecordingSession) restoreAudioMode() error {
	s.mu.Lock()
	release := s.release
	s.release = nil
	s.mu.Unlock()

	if release == nil {
		return nil
	}
	if err := release(); err != nil {
		s.logger.Warn("restoring audio mode", "error", err)
		return err
	}
	return nil
}
