package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Python is the interpreter used to run the service. Empty means a
	// virtualenv interpreter if one is found, else python3.
	Python string

	// Script is the path of the MediaPipe service. Empty means search the
	// usual locations.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.75,
		MinTrackingConf: 0.5,
	}
}

// ByHandedness returns the first hand carrying the given handedness label.
func ByHandedness(hands []HandLandmarks, handedness string) (HandLandmarks, bool) {
	for _, h := range hands {
		if h.Handedness == handedness {
			return h, true
		}
	}
	return HandLandmarks{}, false
}
