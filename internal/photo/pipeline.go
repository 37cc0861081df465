package photo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fieldworks/sitereport/internal/models"
)

// Uploader pushes photo bytes to the durable store and returns the
// remote storage path.
type Uploader interface {
	UploadPhoto(ctx context.Context, photo *models.Photo) (string, error)
}

// Store is the local photo table
type Store interface {
	SavePhoto(p *models.Photo) error
	PhotosByStatus(reportID string, statuses ...models.PhotoSyncStatus) ([]models.Photo, error)
}

// GPSFix is an optional capture-time location
type GPSFix struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Accuracy float64 `json:"accuracy"`
}

// Pipeline handles capture-to-upload for report photos. Capture always
// lands locally first; uploads are opportunistic until submit, which
// calls FlushPending and refuses to proceed while anything is stuck.
type Pipeline struct {
	store    Store
	uploader Uploader
	online   func() bool

	maxDim  int
	quality int
}

// NewPipeline creates a photo pipeline
func NewPipeline(store Store, uploader Uploader, online func() bool) *Pipeline {
	return &Pipeline{
		store:    store,
		uploader: uploader,
		online:   online,
		maxDim:   1600,
		quality:  80,
	}
}

// Capture compresses and stores a photo locally, then attempts an
// inline upload when the remote looks reachable. Upload failure is
// never an error here; the photo just stays pending.
func (p *Pipeline) Capture(ctx context.Context, reportID string, raw []byte, caption string, gps *GPSFix, takenAt time.Time) (*models.Photo, error) {
	compressed, err := p.compress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to process photo: %w", err)
	}

	photo := &models.Photo{
		ID:       uuid.New().String(),
		ReportID: reportID,
		Payload:  compressed,
		Caption:  caption,
		TakenAt:  takenAt.UTC(),
		Status:   models.PhotoSyncPending,
	}
	if gps != nil {
		blob, merr := json.Marshal(gps)
		if merr == nil {
			photo.GPS = blob
		}
	}

	if err := p.store.SavePhoto(photo); err != nil {
		return nil, fmt.Errorf("failed to store photo locally: %w", err)
	}

	if p.online() {
		p.tryUpload(ctx, photo)
	}
	return photo, nil
}

// FlushPending uploads every photo that is not yet on the remote. Any
// remaining failure is returned so the submit guard can block.
func (p *Pipeline) FlushPending(ctx context.Context, reportID string) error {
	photos, err := p.store.PhotosByStatus(reportID, models.PhotoSyncPending, models.PhotoSyncFailed)
	if err != nil {
		return fmt.Errorf("failed to load pending photos: %w", err)
	}

	var failed int
	for i := range photos {
		if !p.tryUpload(ctx, &photos[i]) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d photo(s) still pending upload", failed)
	}
	return nil
}

// tryUpload pushes one photo and records the outcome locally
func (p *Pipeline) tryUpload(ctx context.Context, photo *models.Photo) bool {
	uctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	path, err := p.uploader.UploadPhoto(uctx, photo)
	if err != nil {
		log.Printf("⚠️ Photo %s upload failed: %v", photo.ID, err)
		photo.Status = models.PhotoSyncFailed
		if serr := p.store.SavePhoto(photo); serr != nil {
			log.Printf("⚠️ Could not record photo %s failure: %v", photo.ID, serr)
		}
		return false
	}

	photo.RemotePath = path
	photo.Status = models.PhotoSyncSynced
	if err := p.store.SavePhoto(photo); err != nil {
		log.Printf("⚠️ Could not record photo %s upload: %v", photo.ID, err)
	}
	return true
}

// compress re-encodes the capture as a bounded-size JPEG. Oversized
// frames are downscaled to maxDim on the long edge first.
func (p *Pipeline) compress(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unreadable image: %w", err)
	}

	img = downscale(img, p.maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale shrinks an image so its long edge fits maxDim, using
// nearest-neighbor sampling. Field photos do not need better.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}
	if long <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(long)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := b.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			sx := b.Min.X + x*w/nw
			out.Set(x, y, img.At(sx, sy))
		}
	}
	return out
}
