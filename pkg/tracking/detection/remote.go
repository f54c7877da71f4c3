package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	"github.com/teslashibe/go-arpose/internal/httpc"
	"github.com/teslashibe/go-arpose/pkg/debug"
)

// RemoteDetector posts frames to a FaceMesh landmark service.
//
// The service receives a JPEG body and answers with
//
//	{"faces": [{"score": 0.98, "landmarks": [{"x": 0.51, "y": 0.43}, ...]}]}
//
// where coordinates are normalized to the image size.
type RemoteDetector struct {
	endpoint string
	client   *http.Client
	quality  int
}

// RemoteOption configures a RemoteDetector.
type RemoteOption func(*RemoteDetector)

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(d *RemoteDetector) {
		d.client = c
	}
}

// WithJPEGQuality sets the upload encoding quality (1-100).
func WithJPEGQuality(q int) RemoteOption {
	return func(d *RemoteDetector) {
		if q > 0 && q <= 100 {
			d.quality = q
		}
	}
}

// NewRemote creates a detector backed by the landmark service at endpoint
func NewRemote(endpoint string, opts ...RemoteOption) *RemoteDetector {
	d := &RemoteDetector{
		endpoint: endpoint,
		client:   httpc.NewClient(5 * time.Second),
		quality:  85,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type remoteFace struct {
	Score     float64    `json:"score"`
	Landmarks []Landmark `json:"landmarks"`
}

type remoteResponse struct {
	Faces []remoteFace `json:"faces"`
	Error string       `json:"error,omitempty"`
}

// Detect uploads img and returns the landmarks of the highest-scoring face
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]Landmark, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	resp, err := httpc.PostWith(ctx, d.client, d.endpoint, "image/jpeg", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("landmark request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read landmark response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("landmark service error %d: %s", resp.StatusCode, string(body))
	}

	var result remoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode landmark response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("landmark service: %s", result.Error)
	}

	if len(result.Faces) == 0 {
		return []Landmark{}, nil
	}

	best := 0
	for i, f := range result.Faces {
		if f.Score > result.Faces[best].Score {
			best = i
		}
	}

	debug.TrackLog("👁️  FaceMesh: %d face(s), %d landmarks\n", len(result.Faces), len(result.Faces[best].Landmarks))

	out := make([]Landmark, len(result.Faces[best].Landmarks))
	copy(out, result.Faces[best].Landmarks)
	return out, nil
}

// Close is a no-op; the HTTP client holds no per-detector resources
func (d *RemoteDetector) Close() error {
	return nil
}
