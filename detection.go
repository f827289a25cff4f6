// Package main - detection.go
//
// Screen capture and pixel-color classification.
//
// Key responsibilities:
//   - Region capture from the primary display (kbinani/screenshot)
//   - Per-region screenshot caching with TTL and a retention ceiling
//   - Basic detection: Manhattan distance threshold with an area-relative
//     match floor for large regions
//   - Advanced detection: squared-distance threshold plus spatial clustering
//     to suppress single-pixel noise
//   - Full-screen capture and JPEG encoding for webhook screenshots
//
// The cache exists because the bite and catch regions are polled every
// detection interval; two polls inside one interval must not hit the OS
// capture path twice. Duplicate captures on a read/write race are tolerated.
package main

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/kbinani/screenshot"
)

// defaultCacheRetention is the hard eviction ceiling for cached screenshots,
// independent of the per-entry TTL.
const defaultCacheRetention = 10 * time.Second

// Clustering defaults. Tuning constants, not derived values; kept as fields
// on the Detector so they can be adjusted without touching the scan code.
const (
	defaultClusterRadius    = 5
	defaultClusterNeighbors = 3
	defaultMinClusters      = 2
)

// basicMatchFloorArea is the region area per required match in basic mode.
// Small regions detect on any match; large ones need area/floor matches.
const basicMatchFloorArea = 100000

// captureFunc captures one region of the primary display.
type captureFunc func(Region) (*image.RGBA, error)

type cacheEntry struct {
	img        *image.RGBA
	capturedAt time.Time
}

// Detector performs cached screen capture and color classification.
type Detector struct {
	mu       sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
	// retention is the hard eviction ceiling; always >= cacheTTL.
	retention time.Duration

	tolerance uint8
	advanced  bool

	clusterRadius    int
	clusterNeighbors int
	minClusters      int

	capture capturePath

	// cacheStats throttles the cache-size debug line; captures happen
	// many times a second and the log would drown otherwise.
	cacheStats *RateLimiter
}

type capturePath struct {
	region captureFunc
	full   func() (*image.RGBA, error)
}

// NewDetector creates a detector. cacheTTLMs bounds how long a cached region
// capture stays fresh; the retention ceiling is raised to the TTL if the TTL
// would otherwise exceed it, so the two constants cannot invert.
func NewDetector(cacheTTLMs uint64, tolerance uint8, advanced bool) *Detector {
	ttl := time.Duration(cacheTTLMs) * time.Millisecond
	retention := defaultCacheRetention
	if retention < ttl {
		retention = ttl
	}

	return &Detector{
		cache:            make(map[string]cacheEntry),
		cacheTTL:         ttl,
		retention:        retention,
		tolerance:        tolerance,
		advanced:         advanced,
		clusterRadius:    defaultClusterRadius,
		clusterNeighbors: defaultClusterNeighbors,
		minClusters:      defaultMinClusters,
		capture: capturePath{
			region: captureRegion,
			full:   captureFullScreen,
		},
		cacheStats: NewRateLimiter(5 * time.Second),
	}
}

// SetAdvanced switches between basic and advanced detection at runtime.
func (d *Detector) SetAdvanced(advanced bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advanced = advanced
}

// DetectColor captures the region (or serves it from cache) and reports
// whether the target color is present per the configured detection mode.
func (d *Detector) DetectColor(region Region, target Color) (bool, error) {
	img, err := d.GetScreenshot(region)
	if err != nil {
		return false, err
	}

	d.mu.RLock()
	advanced := d.advanced
	d.mu.RUnlock()

	if advanced {
		return d.advancedDetection(img, target), nil
	}
	return d.basicDetection(img, target), nil
}

// GetScreenshot returns a cached capture of the region if it is younger than
// the cache TTL, otherwise captures fresh, stores it, and opportunistically
// evicts entries older than the retention ceiling.
func (d *Detector) GetScreenshot(region Region) (*image.RGBA, error) {
	key := region.Key()
	now := time.Now()

	d.mu.RLock()
	if entry, ok := d.cache[key]; ok && now.Sub(entry.capturedAt) < d.cacheTTL {
		d.mu.RUnlock()
		return entry.img, nil
	}
	d.mu.RUnlock()

	// Capture outside the lock. Two goroutines racing here both capture;
	// the second write simply wins.
	timer := NewTimer("capture " + key)
	img, err := d.capture.region(region)
	if err != nil {
		return nil, &CaptureError{Region: region, Err: err}
	}
	timer.Log()

	d.mu.Lock()
	d.cache[key] = cacheEntry{img: img, capturedAt: now}
	for k, entry := range d.cache {
		if now.Sub(entry.capturedAt) >= d.retention {
			delete(d.cache, k)
		}
	}
	if d.cacheStats.Allow() {
		LogDebug("Screenshot cache: %d entries", len(d.cache))
	}
	d.mu.Unlock()

	return img, nil
}

// TakeFullScreenshot captures the whole primary display, bypassing the cache.
func (d *Detector) TakeFullScreenshot() (*image.RGBA, error) {
	img, err := d.capture.full()
	if err != nil {
		return nil, err
	}
	return img, nil
}

// CacheSize returns the number of cached region captures.
func (d *Detector) CacheSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// basicDetection scans every pixel with the Manhattan threshold
// tolerance*3. Small regions detect on any match; regions above
// basicMatchFloorArea need proportionally more matches so a lone stray
// pixel in a large capture does not fire.
func (d *Detector) basicDetection(img *image.RGBA, target Color) bool {
	tolerance := int(d.tolerance) * 3
	bounds := img.Bounds()

	floor := 1
	if area := bounds.Dx() * bounds.Dy(); area >= basicMatchFloorArea {
		floor = area / basicMatchFloorArea
	}

	matches := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.RGBAAt(x, y)
			if target.Distance(px.R, px.G, px.B) <= tolerance {
				matches++
				if matches >= floor {
					return true
				}
			}
		}
	}
	return false
}

// advancedDetection matches on squared Euclidean distance and then requires
// spatial clustering: a match is dense when at least clusterNeighbors
// matches, itself included, lie within the Chebyshev clusterRadius, and
// detection fires once minClusters dense matches exist. A three-pixel
// cluster is the smallest dense group; isolated hits that pass a naive
// threshold are rejected.
func (d *Detector) advancedDetection(img *image.RGBA, target Color) bool {
	toleranceSq := int(d.tolerance) * 3
	toleranceSq *= toleranceSq
	bounds := img.Bounds()

	var matches []image.Point
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.RGBAAt(x, y)
			if target.DistanceSquared(px.R, px.G, px.B) <= toleranceSq {
				matches = append(matches, image.Pt(x, y))
			}
		}
	}

	if len(matches) == 0 {
		return false
	}

	clusters := 0
	for _, p := range matches {
		// The pixel counts toward its own neighborhood.
		neighbors := 0
		for _, q := range matches {
			if absInt(p.X-q.X) <= d.clusterRadius && absInt(p.Y-q.Y) <= d.clusterRadius {
				neighbors++
				if neighbors >= d.clusterNeighbors {
					break
				}
			}
		}

		if neighbors >= d.clusterNeighbors {
			clusters++
			if clusters >= d.minClusters {
				return true
			}
		}
	}

	return false
}

// captureRegion reads one region of the primary display.
func captureRegion(region Region) (*image.RGBA, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrNoDisplay
	}
	return screenshot.CaptureRect(region.Rect())
}

// captureFullScreen reads the entire primary display.
func captureFullScreen() (*image.RGBA, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrNoDisplay
	}
	return screenshot.CaptureRect(screenshot.GetDisplayBounds(0))
}

// EncodeJPEG compresses an image for webhook delivery.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
