package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/fieldworks/sitereport/internal/models"
)

// memPhotoStore is an in-memory photo table
type memPhotoStore struct {
	mu     sync.Mutex
	photos map[string]models.Photo
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{photos: make(map[string]models.Photo)}
}

func (s *memPhotoStore) SavePhoto(p *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos[p.ID] = *p
	return nil
}

func (s *memPhotoStore) PhotosByStatus(reportID string, statuses ...models.PhotoSyncStatus) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Photo
	for _, p := range s.photos {
		if p.ReportID != reportID {
			continue
		}
		for _, st := range statuses {
			if p.Status == st {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// memUploader accepts or rejects uploads
type memUploader struct {
	mu      sync.Mutex
	fail    bool
	uploads int
}

func (u *memUploader) UploadPhoto(ctx context.Context, photo *models.Photo) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail {
		return "", fmt.Errorf("unreachable")
	}
	u.uploads++
	return "photos/" + photo.ID + ".jpg", nil
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCaptureStoresLocallyAndUploadsInline(t *testing.T) {
	store := newMemPhotoStore()
	uploader := &memUploader{}
	p := NewPipeline(store, uploader, func() bool { return true })

	photo, err := p.Capture(context.Background(), "r1", testJPEG(t, 64, 48), "footing rebar", &GPSFix{Lat: 47.6, Lon: -122.3}, time.Now())
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if photo.Status != models.PhotoSyncSynced {
		t.Errorf("online capture should upload inline, status = %s", photo.Status)
	}
	if photo.RemotePath == "" {
		t.Errorf("remote path must be recorded")
	}
	if len(photo.Payload) == 0 {
		t.Errorf("compressed payload must be stored locally")
	}
	if len(photo.GPS) == 0 {
		t.Errorf("gps fix must be carried")
	}
}

func TestCaptureOfflineStaysPending(t *testing.T) {
	store := newMemPhotoStore()
	uploader := &memUploader{}
	p := NewPipeline(store, uploader, func() bool { return false })

	photo, err := p.Capture(context.Background(), "r1", testJPEG(t, 64, 48), "", nil, time.Now())
	if err != nil {
		t.Fatalf("offline capture must succeed locally: %v", err)
	}
	if photo.Status != models.PhotoSyncPending {
		t.Errorf("status = %s, want pending", photo.Status)
	}
	if uploader.uploads != 0 {
		t.Errorf("no upload attempts while offline")
	}
}

func TestCaptureFailedUploadIsNotAnError(t *testing.T) {
	store := newMemPhotoStore()
	uploader := &memUploader{fail: true}
	p := NewPipeline(store, uploader, func() bool { return true })

	photo, err := p.Capture(context.Background(), "r1", testJPEG(t, 64, 48), "", nil, time.Now())
	if err != nil {
		t.Fatalf("capture must not fail on upload failure: %v", err)
	}
	if photo.Status != models.PhotoSyncFailed {
		t.Errorf("status = %s, want failed (retried at checkpoint)", photo.Status)
	}
}

func TestFlushPendingRetriesEverything(t *testing.T) {
	store := newMemPhotoStore()
	uploader := &memUploader{fail: true}
	p := NewPipeline(store, uploader, func() bool { return true })

	if _, err := p.Capture(context.Background(), "r1", testJPEG(t, 64, 48), "", nil, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Capture(context.Background(), "r1", testJPEG(t, 64, 48), "", nil, time.Now()); err != nil {
		t.Fatal(err)
	}

	// Still unreachable: flush reports how many are stuck
	if err := p.FlushPending(context.Background(), "r1"); err == nil {
		t.Fatal("flush must fail while uploads fail")
	}

	uploader.mu.Lock()
	uploader.fail = false
	uploader.mu.Unlock()

	if err := p.FlushPending(context.Background(), "r1"); err != nil {
		t.Fatalf("flush after recovery failed: %v", err)
	}
	remaining, _ := store.PhotosByStatus("r1", models.PhotoSyncPending, models.PhotoSyncFailed)
	if len(remaining) != 0 {
		t.Errorf("%d photos still unsynced after flush", len(remaining))
	}
}

func TestDownscaleBoundsLongEdge(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4000, 2000))
	out := downscale(img, 1600)
	b := out.Bounds()
	if b.Dx() != 1600 || b.Dy() != 800 {
		t.Errorf("downscaled to %dx%d, want 1600x800", b.Dx(), b.Dy())
	}

	small := image.NewRGBA(image.Rect(0, 0, 640, 480))
	if downscale(small, 1600) != small {
		t.Errorf("images within bounds must pass through untouched")
	}
}
