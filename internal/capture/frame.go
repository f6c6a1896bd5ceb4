package capture

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ayusman/librasctl/internal/detector"
	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used when streaming frames.
const DefaultJPEGQuality = 80

// cropMargin pads the hand box in crop mode, in pixels.
const cropMargin = 40

var (
	landmarkColor   = color.RGBA{R: 255, G: 255, B: 255}
	connectionColor = color.RGBA{G: 200, B: 255}
	rightBoxColor   = color.RGBA{G: 255}
	leftBoxColor    = color.RGBA{R: 255, G: 128}
	textColor       = color.RGBA{R: 255, G: 255}
)

// handConnections pairs the landmarks joined when drawing a hand.
var handConnections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP}, {detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP}, {detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP}, {detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP}, {detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP}, {detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP}, {detector.PinkyDIP, detector.PinkyTip},
}

// Mirror flips the frame horizontally in place so it reads like a mirror.
func Mirror(frame *gocv.Mat) {
	gocv.Flip(*frame, frame, 1)
}

func toPixel(p detector.Point3D, cols, rows int) image.Point {
	return image.Pt(int(p.X*float64(cols)), int(p.Y*float64(rows)))
}

// HandRect returns the pixel box around a hand, padded by margin and clipped
// to the frame.
func HandRect(h detector.HandLandmarks, cols, rows, margin int) image.Rectangle {
	minX, minY, maxX, maxY := h.Bounds()
	r := image.Rect(
		int(minX*float64(cols))-margin,
		int(minY*float64(rows))-margin,
		int(maxX*float64(cols))+margin,
		int(maxY*float64(rows))+margin,
	)
	return r.Intersect(image.Rect(0, 0, cols, rows))
}

// Annotate draws the landmarks, the hand box and the displayed gesture name of
// every hand onto the frame. names maps handedness to the displayed name.
func Annotate(frame *gocv.Mat, hands []detector.HandLandmarks, names map[string]string) {
	cols, rows := frame.Cols(), frame.Rows()
	for _, h := range hands {
		for _, c := range handConnections {
			gocv.Line(frame, toPixel(h.Points[c[0]], cols, rows), toPixel(h.Points[c[1]], cols, rows), connectionColor, 2)
		}
		for _, p := range h.Points {
			gocv.Circle(frame, toPixel(p, cols, rows), 4, landmarkColor, -1)
		}

		box := HandRect(h, cols, rows, 20)
		boxColor := rightBoxColor
		if h.Handedness == detector.Left {
			boxColor = leftBoxColor
		}
		gocv.Rectangle(frame, box, boxColor, 2)

		label := h.Handedness
		if name := names[h.Handedness]; name != "" {
			label = fmt.Sprintf("%s: %s", h.Handedness, name)
		}
		gocv.PutText(frame, label, box.Min.Add(image.Pt(0, -8)), gocv.FontHersheySimplex, 0.7, textColor, 2)
	}
}

// CropToHand returns a copy of the region around h. The caller closes the
// returned Mat. ok is false when the hand box is empty.
func CropToHand(frame *gocv.Mat, h detector.HandLandmarks) (gocv.Mat, bool) {
	r := HandRect(h, frame.Cols(), frame.Rows(), cropMargin)
	if r.Empty() {
		return gocv.NewMat(), false
	}
	region := frame.Region(r)
	defer region.Close()
	return region.Clone(), true
}

// EncodeJPEG encodes the frame at the given quality.
func EncodeJPEG(frame *gocv.Mat, quality int) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close; keep a Go copy.
	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Placeholder renders the JPEG streamed while no camera frame is available.
func Placeholder(width, height int, message string) ([]byte, error) {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(32, 32, 32, 0), height, width, gocv.MatTypeCV8UC3)
	defer img.Close()

	size := gocv.GetTextSize(message, gocv.FontHersheySimplex, 1, 2)
	org := image.Pt((width-size.X)/2, (height+size.Y)/2)
	gocv.PutText(&img, message, org, gocv.FontHersheySimplex, 1, landmarkColor, 2)

	return EncodeJPEG(&img, DefaultJPEGQuality)
}
