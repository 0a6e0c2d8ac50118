package application_test

import (
	"context"
	"math/rand"
	"testing"

	"voicebridge/internal/application"
	"voicebridge/internal/domain"
)

type sessionFixture struct {
	permissions *fakePermissions
	mode        *fakeAudioMode
	device      *fakeDevice
	session     *application.RecordingSession
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		permissions: &fakePermissions{granted: true},
		mode:        &fakeAudioMode{},
		device:      &fakeDevice{},
	}
	f.session = application.NewRecordingSession(
		f.permissions,
		f.device,
		f.mode,
		application.DefaultCaptureFormat(),
		discardLogger(),
	)
	return f
}

func TestRecordingSession_StartStop(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	if err := f.session.RequestStart(ctx); err != nil {
		t.Fatalf("RequestStart: %v", err)
	}
	if got := f.session.State(); got != application.StateCapturing {
		t.Fatalf("state after start: got %s, want capturing", got)
	}
	if !f.mode.held() {
		t.Error("audio mode should be configured while capturing")
	}
	if len(f.device.opened) != 1 || f.device.opened[0].Channels != 1 || f.device.opened[0].SampleRate != 16000 {
		t.Errorf("unexpected capture format: %+v", f.device.opened)
	}

	artifact, err := f.session.RequestStop(ctx)
	if err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	if !artifact.Succeeded {
		t.Errorf("artifact should succeed, reason: %s", artifact.FailureReason)
	}
	if f.device.handle.discarded {
		t.Error("a successful recording must not be discarded")
	}
	if artifact.Locator != "file:///tmp/recording.wav" {
		t.Errorf("locator: got %q", artifact.Locator)
	}
	if artifact.DurationMillis < 0 {
		t.Errorf("negative duration: %d", artifact.DurationMillis)
	}
	if got := f.session.State(); got != application.StateIdle {
		t.Errorf("state after stop: got %s, want idle", got)
	}
	if f.mode.held() {
		t.Error("audio mode should be restored after stop")
	}
}

func TestRecordingSession_PermissionDenied(t *testing.T) {
	f := newSessionFixture()
	f.permissions.granted = false

	err := f.session.RequestStart(context.Background())
	if !domain.IsKind(err, domain.KindPermissionDenied) {
		t.Fatalf("expected permission_denied, got %v", err)
	}
	if got := f.session.State(); got != application.StateFailed {
		t.Errorf("state: got %s, want failed", got)
	}
	if f.mode.acquired != 0 {
		t.Error("audio mode must not be touched without permission")
	}
	if f.permissions.calls != 1 {
		t.Errorf("permission should be requested once, got %d", f.permissions.calls)
	}
}

func TestRecordingSession_DeviceUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *sessionFixture)
	}{
		{
			name:  "permission request errors",
			setup: func(f *sessionFixture) { f.permissions.err = errBoom },
		},
		{
			name:  "audio mode cannot be configured",
			setup: func(f *sessionFixture) { f.mode.err = errBoom },
		},
		{
			name:  "capture device fails to open",
			setup: func(f *sessionFixture) { f.device.openErr = errBoom },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture()
			tt.setup(f)

			err := f.session.RequestStart(context.Background())
			if !domain.IsKind(err, domain.KindDeviceUnavailable) {
				t.Fatalf("expected device_unavailable, got %v", err)
			}
			if got := f.session.State(); got != application.StateFailed {
				t.Errorf("state: got %s, want failed", got)
			}
			if f.mode.held() {
				t.Error("audio mode must be restored on the failure path")
			}
			if f.session.LastError() == nil {
				t.Error("LastError should report the failure")
			}
		})
	}
}

func TestRecordingSession_StopWhileIdle(t *testing.T) {
	f := newSessionFixture()

	artifact, err := f.session.RequestStop(context.Background())
	if !domain.IsKind(err, domain.KindNoActiveRecording) {
		t.Fatalf("expected no_active_recording, got %v", err)
	}
	if artifact != (domain.RecordingArtifact{}) {
		t.Errorf("no artifact expected, got %+v", artifact)
	}
	if got := f.session.State(); got != application.StateIdle {
		t.Errorf("state: got %s, want idle", got)
	}
	if f.mode.acquired != 0 || len(f.device.opened) != 0 {
		t.Error("stop while idle must have no side effects")
	}
}

func TestRecordingSession_StopRetrievalFailure(t *testing.T) {
	tests := []struct {
		name   string
		handle *fakeHandle
	}{
		{"stop fails", &fakeHandle{locator: "x.wav", stopErr: errBoom}},
		{"locator fails", &fakeHandle{locatorErr: errBoom}},
		{"empty locator", &fakeHandle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture()
			f.device.handle = tt.handle
			ctx := context.Background()

			if err := f.session.RequestStart(ctx); err != nil {
				t.Fatalf("RequestStart: %v", err)
			}

			artifact, err := f.session.RequestStop(ctx)
			if err != nil {
				t.Fatalf("RequestStop should not error: %v", err)
			}
			if artifact.Succeeded {
				t.Error("artifact should not succeed")
			}
			if artifact.FailureReason == "" {
				t.Error("failure reason should be populated")
			}
			if got := f.session.State(); got != application.StateIdle {
				t.Errorf("state: got %s, want idle", got)
			}
			if f.mode.held() {
				t.Error("audio mode must be restored")
			}
			if !tt.handle.discarded {
				t.Error("partial capture should be discarded")
			}
		})
	}
}

func TestRecordingSession_StartWhileCapturing(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	if err := f.session.RequestStart(ctx); err != nil {
		t.Fatalf("RequestStart: %v", err)
	}
	err := f.session.RequestStart(ctx)
	if !domain.IsKind(err, domain.KindSessionBusy) {
		t.Fatalf("expected session_busy, got %v", err)
	}
	if got := f.session.State(); got != application.StateCapturing {
		t.Errorf("state: got %s, want capturing", got)
	}
}

func TestRecordingSession_CleanupIdempotent(t *testing.T) {
	f := newSessionFixture()

	for i := 0; i < 3; i++ {
		if err := f.session.Cleanup(context.Background()); err != nil {
			t.Fatalf("Cleanup on idle session: %v", err)
		}
		if got := f.session.State(); got != application.StateIdle {
			t.Fatalf("state: got %s, want idle", got)
		}
	}
	if f.mode.acquired != 0 || f.permissions.calls != 0 {
		t.Error("cleanup on idle must have no side effects")
	}
}

func TestRecordingSession_CleanupDiscardsCapture(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	if err := f.session.RequestStart(ctx); err != nil {
		t.Fatalf("RequestStart: %v", err)
	}
	if err := f.session.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if !f.device.handle.discarded {
		t.Error("capture should be discarded")
	}
	if f.mode.held() {
		t.Error("audio mode should be restored")
	}
	if got := f.session.State(); got != application.StateIdle {
		t.Errorf("state: got %s, want idle", got)
	}
	if err := f.session.RequestStart(ctx); err != nil {
		t.Errorf("session should be reusable after cleanup: %v", err)
	}
}

func TestRecordingSession_CleanupAfterFailure(t *testing.T) {
	f := newSessionFixture()
	f.permissions.granted = false
	ctx := context.Background()

	_ = f.session.RequestStart(ctx)
	if err := f.session.RequestStart(ctx); !domain.IsKind(err, domain.KindSessionBusy) {
		t.Fatalf("failed session should refuse to start before cleanup, got %v", err)
	}

	if err := f.session.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if got := f.session.State(); got != application.StateIdle {
		t.Errorf("state: got %s, want idle", got)
	}
	if f.session.LastError() != nil {
		t.Error("cleanup should clear the last error")
	}
}

func TestRecordingSession_RandomCallSequences(t *testing.T) {
	settled := map[application.SessionState]bool{
		application.StateIdle:      true,
		application.StateCapturing: true,
		application.StateFailed:    true,
	}
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for run := 0; run < 50; run++ {
		f := newSessionFixture()
		f.permissions.granted = rng.Intn(4) != 0

		for step := 0; step < 20; step++ {
			switch rng.Intn(3) {
			case 0:
				_ = f.session.RequestStart(ctx)
			case 1:
				_, _ = f.session.RequestStop(ctx)
			case 2:
				_ = f.session.Cleanup(ctx)
			}

			state := f.session.State()
			if !settled[state] {
				t.Fatalf("run %d step %d: session left in transient state %s", run, step, state)
			}
			if state != application.StateCapturing && f.mode.held() {
				t.Fatalf("run %d step %d: audio mode held in state %s", run, step, state)
			}
		}

		_ = f.session.Cleanup(ctx)
		if got := f.session.State(); got != application.StateIdle {
			t.Fatalf("run %d: cleanup left state %s", run, got)
		}
	}
}
