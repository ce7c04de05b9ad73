package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/poslane/poslane/internal/core/domain"
	"github.com/poslane/poslane/internal/port"
)

type ScannerState string

const (
	ScannerIdle     ScannerState = "idle"
	ScannerScanning ScannerState = "scanning"
	ScannerStopped  ScannerState = "stopped"
)

var ErrAlreadyScanning = errors.New("scanner already armed")

const chimeTimeout = 2 * time.Second

// DetectionHandler receives the single detection of an armed scan cycle.
type DetectionHandler func(domain.DetectionEvent)

// ScanErrorHandler receives a camera or decoder failure. The pipeline halts
// afterwards; recovery is an explicit re-arm.
type ScanErrorHandler func(error)

// ScannerService pumps camera frames through the decoder while armed. Each
// armed cycle emits at most one detection: the first non-empty candidate of
// the first frame that decodes wins, then the cycle latches to stopped until
// the next Arm. The latch is set before the detection callback runs, so a
// handler may re-arm immediately.
type ScannerService struct {
	decoder port.Decoder
	chime   port.Chime
	log     *logrus.Logger

	mu     sync.Mutex
	state  ScannerState
	gen    int
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScannerService(decoder port.Decoder, chime port.Chime, log *logrus.Logger) *ScannerService {
	return &ScannerService{
		decoder: decoder,
		chime:   chime,
		log:     log,
		state:   ScannerIdle,
	}
}

// Arm opens a scan cycle over the frame source and returns immediately; the
// pump runs until a detection, an error, a Stop call, or ctx cancellation.
// The source is closed when the cycle ends, whatever ends it.
func (s *ScannerService) Arm(ctx context.Context, source port.FrameSource, onDetected DetectionHandler, onError ScanErrorHandler) error {
	s.mu.Lock()
	if s.state == ScannerScanning {
		s.mu.Unlock()
		return ErrAlreadyScanning
	}
	pumpCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.gen++
	gen := s.gen
	s.state = ScannerScanning
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.pump(pumpCtx, gen, cancel, source, onDetected, onError, done)
	return nil
}

// Stop cancels an in-flight cycle and waits for the pump to exit. Stopping an
// idle scanner is a no-op.
func (s *ScannerService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *ScannerService) State() ScannerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ScannerService) pump(ctx context.Context, gen int, cancel context.CancelFunc, source port.FrameSource, onDetected DetectionHandler, onError ScanErrorHandler, done chan struct{}) {
	defer close(done)
	defer source.Close()

	for {
		if ctx.Err() != nil {
			s.finish(gen, cancel)
			return
		}

		frame, err := source.Next(ctx)
		if err != nil {
			s.finish(gen, cancel)
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Warn("camera stream failed")
			if onError != nil {
				onError(err)
			}
			return
		}

		candidates, err := s.decoder.Decode(frame)
		if err != nil {
			s.finish(gen, cancel)
			s.log.WithError(err).Warn("decoder failed")
			if onError != nil {
				onError(err)
			}
			return
		}

		if code, ok := firstCandidate(candidates); ok {
			// Latch first: the cycle is over before anyone hears about the
			// detection.
			s.finish(gen, cancel)
			s.log.WithField("code", code).Info("barcode detected")
			s.playChime()
			onDetected(domain.DetectionEvent{RawValue: code})
			return
		}
	}
}

// finish ends this cycle. The generation check keeps a winding-down pump from
// touching a newer cycle's state.
func (s *ScannerService) finish(gen int, cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.state = ScannerStopped
		s.cancel = nil
	}
}

// playChime fires the cue without waiting for it. Playback failure is logged
// and otherwise discarded; it must never delay detection delivery.
func (s *ScannerService) playChime() {
	if s.chime == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), chimeTimeout)
		defer cancel()
		if err := s.chime.Play(ctx); err != nil {
			s.log.WithError(err).Warn("detection chime failed")
		}
	}()
}

// firstCandidate picks the first non-empty trimmed value; the rest of the
// frame's candidates are discarded.
func firstCandidate(candidates []string) (string, bool) {
	for _, c := range candidates {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}
