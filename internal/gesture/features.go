// Package gesture turns hand landmarks into feature vectors and classifies
// them against the gesture databases.
package gesture

import "fmt"

// Key names one entry of a feature vector.
type Key string

// Feature keys.
const (
	KeyPointingDown        Key = "pointing_down"
	KeyFingersOverlap      Key = "fingers_overlap"
	KeyThumbInsideHand     Key = "thumb_inside_hand"
	KeyIndexUp             Key = "index_up"
	KeyMiddleUp            Key = "middle_up"
	KeyRingUp              Key = "ring_up"
	KeyPinkyUp             Key = "pinky_up"
	KeyThumbMiddleTouch    Key = "thumb_middle_touch"
	KeyThumbCrossIndex     Key = "thumb_cross_index"
	KeyIndexMiddleTogether Key = "index_middle_together"
	KeyHasMovement         Key = "has_movement"
	KeyMovementType        Key = "movement_type"
)

// Keys lists every feature in the order candidates are filtered.
var Keys = []Key{
	KeyPointingDown,
	KeyFingersOverlap,
	KeyThumbInsideHand,
	KeyIndexUp,
	KeyMiddleUp,
	KeyRingUp,
	KeyPinkyUp,
	KeyThumbMiddleTouch,
	KeyThumbCrossIndex,
	KeyIndexMiddleTogether,
	KeyHasMovement,
	KeyMovementType,
}

// ParseKey validates a feature key read from storage or the wire.
func ParseKey(s string) (Key, error) {
	for _, k := range Keys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", s)
}

// Vector describes a hand pose. Every field is always present; MovementType
// stays empty unless a movement probe ran for the hand. Field order matches Keys
// so the JSON form lists features in filtering order.
type Vector struct {
	PointingDown        bool   `json:"pointing_down"`
	FingersOverlap      bool   `json:"fingers_overlap"`
	ThumbInsideHand     bool   `json:"thumb_inside_hand"`
	IndexUp             bool   `json:"index_up"`
	MiddleUp            bool   `json:"middle_up"`
	RingUp              bool   `json:"ring_up"`
	PinkyUp             bool   `json:"pinky_up"`
	ThumbMiddleTouch    bool   `json:"thumb_middle_touch"`
	ThumbCrossIndex     bool   `json:"thumb_cross_index"`
	IndexMiddleTogether bool   `json:"index_middle_together"`
	HasMovement         bool   `json:"has_movement"`
	MovementType        string `json:"movement_type"`
}

// Value returns the value stored under k. It panics on a key outside Keys.
func (v Vector) Value(k Key) any {
	switch k {
	case KeyPointingDown:
		return v.PointingDown
	case KeyFingersOverlap:
		return v.FingersOverlap
	case KeyThumbInsideHand:
		return v.ThumbInsideHand
	case KeyIndexUp:
		return v.IndexUp
	case KeyMiddleUp:
		return v.MiddleUp
	case KeyRingUp:
		return v.RingUp
	case KeyPinkyUp:
		return v.PinkyUp
	case KeyThumbMiddleTouch:
		return v.ThumbMiddleTouch
	case KeyThumbCrossIndex:
		return v.ThumbCrossIndex
	case KeyIndexMiddleTogether:
		return v.IndexMiddleTogether
	case KeyHasMovement:
		return v.HasMovement
	case KeyMovementType:
		return v.MovementType
	}
	panic(fmt.Sprintf("gesture: unknown feature %q", k))
}

// Same reports whether v and o agree on feature k.
func (v Vector) Same(o Vector, k Key) bool {
	return v.Value(k) == o.Value(k)
}
