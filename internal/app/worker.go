package app

import (
	"context"
	"sync/atomic"

	"github.com/ayusman/librasctl/internal/detector"
	"github.com/ayusman/librasctl/internal/gesture"
	"go.uber.org/zap"
)

// handWorker classifies the samples of one hand, one pass at a time.
type handWorker struct {
	handedness string
	matcher    *gesture.Matcher
	log        *zap.Logger

	mailbox chan detector.HandLandmarks
	relay   gesture.Relay
	busy    atomic.Bool
}

func newHandWorker(handedness string, matcher *gesture.Matcher, log *zap.Logger) *handWorker {
	return &handWorker{
		handedness: handedness,
		matcher:    matcher,
		log:        log.With(zap.String("hand", handedness)),
		mailbox:    make(chan detector.HandLandmarks, 1),
	}
}

// offer hands a sample to the worker without blocking. While a movement probe
// runs the sample goes to the probe; otherwise it is queued only when the
// worker is idle. It reports whether the sample was taken.
func (w *handWorker) offer(h detector.HandLandmarks) bool {
	if w.relay.Offer(h) {
		return true
	}
	if w.busy.Load() {
		return false
	}
	select {
	case w.mailbox <- h:
		return true
	default:
		return false
	}
}

func (w *handWorker) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case h := <-w.mailbox:
			w.busy.Store(true)
			res, err := w.matcher.Classify(ctx, h, &w.relay)
			w.busy.Store(false)

			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.Warn("classification failed", zap.Error(err))
				continue
			}
			if res.Accepted {
				w.log.Debug("gesture recognized", zap.String("gesture", res.Name))
			}
		}
	}
}
