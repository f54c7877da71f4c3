package feed

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the device delivers an empty frame.
var ErrNoFrame = errors.New("feed: empty frame")

// Webcam reads frames from a local camera, file or stream through OpenCV.
type Webcam struct {
	cfg Config

	mu  sync.Mutex
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// NewWebcam creates a webcam source. The device is opened on Open.
func NewWebcam(cfg Config) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %v", errs)
	}
	return &Webcam{cfg: cfg}, nil
}

// Open starts capture.
func (w *Webcam) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var device interface{} = w.cfg.Device
	if idx, err := strconv.Atoi(w.cfg.Device); err == nil {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.cfg.Device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(w.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(w.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(w.cfg.Framerate))

	w.cap = vc
	w.mat = gocv.NewMat()
	return nil
}

// Read grabs the next frame.
func (w *Webcam) Read() (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil, ErrInactive
	}
	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, ErrNoFrame
	}
	return w.mat.ToImage()
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil
	}
	w.mat.Close()
	err := w.cap.Close()
	w.cap = nil
	return err
}
