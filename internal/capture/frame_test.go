package capture

import (
	"image"
	"testing"

	"github.com/ayusman/librasctl/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func isJPEG(data []byte) bool {
	return len(data) > 3 && data[0] == 0xFF && data[1] == 0xD8 && data[len(data)-2] == 0xFF && data[len(data)-1] == 0xD9
}

func TestHandRect(t *testing.T) {
	var h detector.HandLandmarks
	for i := range h.Points {
		h.Points[i] = detector.Point3D{X: 0.25, Y: 0.5}
	}
	h.Points[detector.IndexTip] = detector.Point3D{X: 0.5, Y: 0.25}

	assert.Equal(t, image.Rect(150, 110, 330, 250), HandRect(h, 640, 480, 10))

	// Clipped to the frame.
	h.Points[detector.Wrist] = detector.Point3D{X: -0.1, Y: 1.2}
	r := HandRect(h, 640, 480, 10)
	assert.Equal(t, 0, r.Min.X)
	assert.Equal(t, 480, r.Max.Y)
}

func TestCropToHand(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	hand := detector.Pose{Index: true}.Landmarks()
	crop, ok := CropToHand(&frame, hand)
	defer crop.Close()
	require.True(t, ok)

	want := HandRect(hand, 640, 480, cropMargin)
	assert.Equal(t, want.Dx(), crop.Cols())
	assert.Equal(t, want.Dy(), crop.Rows())
}

func TestMirror(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 2, 3, gocv.MatTypeCV8U)
	defer frame.Close()
	frame.SetUCharAt(0, 0, 200)

	Mirror(&frame)
	assert.Equal(t, uint8(200), frame.GetUCharAt(0, 2))
	assert.Equal(t, uint8(0), frame.GetUCharAt(0, 0))
}

func TestAnnotateAndEncode(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	hands := []detector.HandLandmarks{
		detector.Pose{Handedness: detector.Right, Index: true}.Landmarks(),
		detector.Pose{Handedness: detector.Left, Pinky: true}.Landmarks(),
	}
	Annotate(&frame, hands, map[string]string{detector.Right: "L"})

	data, err := EncodeJPEG(&frame, DefaultJPEGQuality)
	require.NoError(t, err)
	assert.True(t, isJPEG(data))
}

func TestEncodeJPEG_Empty(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := EncodeJPEG(&empty, DefaultJPEGQuality)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestPlaceholder(t *testing.T) {
	data, err := Placeholder(320, 240, "camera off")
	require.NoError(t, err)
	assert.True(t, isJPEG(data))

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 320, img.Cols())
	assert.Equal(t, 240, img.Rows())
}
