package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/librasctl/internal/capture"
	"github.com/ayusman/librasctl/internal/detector"
	"github.com/ayusman/librasctl/internal/gesture"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// loop is the capture loop of one session.
//
// Each cycle:
// 1. Read a frame; an empty read backs off and retries, any other failure ends the session
// 2. Mirror it and detect hands
// 3. Hand each hand to its worker, or reset the displayed name of a missing hand
// 4. Annotate, crop in crop mode, encode and publish
func (a *App) loop(ctx context.Context, cam capture.Camera, right, left *handWorker) error {
	backoff := time.NewTimer(0)
	defer backoff.Stop()
	<-backoff.C

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := cam.ReadFrame()
		if errors.Is(err, capture.ErrEmptyFrame) {
			backoff.Reset(a.cfg.EmptyFrameBackoff)
			select {
			case <-ctx.Done():
				return nil
			case <-backoff.C:
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		a.cycle(frame, right, left)
		frame.Close()
	}
}

// cycle processes one frame. Detector and encoding failures skip the frame.
func (a *App) cycle(frame *gocv.Mat, workers ...*handWorker) {
	capture.Mirror(frame)

	hands, err := a.cfg.Detector.Detect(frame)
	if err != nil {
		a.log.Warn("hand detection failed", zap.Error(err))
		return
	}

	if a.cropMode.Load() {
		a.publishCrop(frame, hands)
		return
	}

	names := make(map[string]string, len(workers))
	for _, w := range workers {
		hand, ok := detector.ByHandedness(hands, w.handedness)
		if !ok {
			if err := a.cfg.Board.SetDisplayedGesture(w.handedness, gesture.Placeholder); err != nil {
				a.log.Warn("failed to reset displayed gesture", zap.String("hand", w.handedness), zap.Error(err))
			}
		} else if !w.offer(hand) {
			a.log.Debug("hand worker busy, frame dropped", zap.String("hand", w.handedness))
		}
		names[w.handedness] = a.cfg.Board.DisplayedGesture(w.handedness)
	}

	capture.Annotate(frame, hands, names)
	a.publish(frame)
}

func (a *App) publishCrop(frame *gocv.Mat, hands []detector.HandLandmarks) {
	hand, ok := detector.ByHandedness(hands, detector.Right)
	if !ok {
		a.publish(frame)
		return
	}
	capture.Annotate(frame, []detector.HandLandmarks{hand}, nil)
	crop, ok := capture.CropToHand(frame, hand)
	defer crop.Close()
	if !ok {
		a.publish(frame)
		return
	}
	a.publish(&crop)
}

func (a *App) publish(frame *gocv.Mat) {
	data, err := capture.EncodeJPEG(frame, a.cfg.JPEGQuality)
	if err != nil {
		a.log.Warn("failed to encode frame", zap.Error(err))
		return
	}
	a.latest.Store(&Frame{
		JPEG:       data,
		Seq:        a.seq.Add(1),
		CapturedAt: time.Now(),
	})
}
