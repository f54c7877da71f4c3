package detection

import (
	"context"
	"encoding/json"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteDetector_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))

		img, err := jpeg.Decode(r.Body)
		if assert.NoError(t, err) {
			assert.Equal(t, 64, img.Bounds().Dx())
		}

		_ = json.NewEncoder(w).Encode(remoteResponse{Faces: []remoteFace{
			{Score: 0.4, Landmarks: []Landmark{{X: 0.9, Y: 0.9}}},
			{Score: 0.95, Landmarks: []Landmark{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}},
		}})
	}))
	defer srv.Close()

	d := NewRemote(srv.URL, WithHTTPClient(srv.Client()), WithJPEGQuality(70))
	defer d.Close()

	landmarks, err := d.Detect(context.Background(), solidImage(64, 48, color.White))
	require.NoError(t, err)
	assert.Equal(t, []Landmark{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}, landmarks)
}

func TestRemoteDetector_NoFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"faces":[]}`))
	}))
	defer srv.Close()

	landmarks, err := NewRemote(srv.URL).Detect(context.Background(), solidImage(16, 16, color.Black))
	require.NoError(t, err)
	assert.NotNil(t, landmarks)
	assert.Empty(t, landmarks)
}

func TestRemoteDetector_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"bad json", http.StatusOK, "{"},
		{"service error field", http.StatusOK, `{"error":"model not loaded"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.payload))
			}))
			defer srv.Close()

			_, err := NewRemote(srv.URL).Detect(context.Background(), solidImage(16, 16, color.Black))
			assert.Error(t, err)
		})
	}
}

func TestRemoteDetector_EmptyImage(t *testing.T) {
	_, err := NewRemote("http://127.0.0.1:1").Detect(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestMockDetector_TracksConcurrency(t *testing.T) {
	m := NewMockDetector([]Landmark{{X: 0.5, Y: 0.5}})

	got, err := m.Detect(context.Background(), nil)
	require.NoError(t, err)
	got[0].X = 0 // caller owns the slice

	again, _ := m.Detect(context.Background(), nil)
	assert.Equal(t, 0.5, again[0].X)
	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, 1, m.MaxConcurrent())
}
