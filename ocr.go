// Package main - ocr.go
//
// Hunger percentage reading from the on-screen hunger label.
//
// Pipeline: luminance grayscale, 3x3 median denoise, Otsu binarization,
// digit-whitelisted Tesseract recognition, bounded integer parse. Every
// stage is a pure function over image buffers so the stages can be tested
// without an OCR engine installed.
//
// Recognition results are cached behind a cheap pixel fingerprint with a
// short TTL, because the hunger label changes rarely but is polled around
// every feed decision. A failed read returns (HungerUnknown, false), never
// an error; the caller feeds defensively.
package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/otiai10/gosseract"
)

const (
	ocrCacheTTL       = 2 * time.Second
	ocrCacheRetention = 10 * time.Second
	// maxHungerValue bounds a plausible reading; the label shows 0-100 but
	// OCR noise can glue digits together.
	maxHungerValue = 999
)

type ocrCacheEntry struct {
	value  int
	ok     bool
	readAt time.Time
}

// HungerOCR recognizes the hunger percentage from a captured label region.
type HungerOCR struct {
	mu    sync.Mutex
	cache map[uint64]ocrCacheEntry

	// recognize turns preprocessed PNG bytes into raw text.
	// Replaced in tests; defaults to Tesseract via gosseract.
	recognize func(pngData []byte) (string, error)
}

// NewHungerOCR creates the OCR reader with the Tesseract backend.
func NewHungerOCR() *HungerOCR {
	return &HungerOCR{
		cache:     make(map[uint64]ocrCacheEntry),
		recognize: tesseractRecognize,
	}
}

// ReadHunger runs the full pipeline on a captured hunger label image and
// returns the percentage value. ok is false when no plausible value could
// be recognized.
func (o *HungerOCR) ReadHunger(img *image.RGBA) (int, bool) {
	fp := imageFingerprint(img)
	now := time.Now()

	o.mu.Lock()
	if entry, hit := o.cache[fp]; hit && now.Sub(entry.readAt) < ocrCacheTTL {
		o.mu.Unlock()
		return entry.value, entry.ok
	}
	o.mu.Unlock()

	value, ok := o.readUncached(img)

	o.mu.Lock()
	o.cache[fp] = ocrCacheEntry{value: value, ok: ok, readAt: now}
	for k, entry := range o.cache {
		if now.Sub(entry.readAt) >= ocrCacheRetention {
			delete(o.cache, k)
		}
	}
	o.mu.Unlock()

	return value, ok
}

func (o *HungerOCR) readUncached(img *image.RGBA) (int, bool) {
	timer := NewTimer("hunger-ocr")
	defer timer.Log()

	gray := toGrayscale(img)
	denoised := medianFilter3x3(gray)
	binary := otsuBinarize(denoised)

	var buf bytes.Buffer
	if err := png.Encode(&buf, binary); err != nil {
		LogWarn("OCR: PNG encode failed: %v", err)
		return HungerUnknown, false
	}

	text, err := o.recognize(buf.Bytes())
	if err != nil {
		LogWarn("OCR: recognition failed: %v", err)
		return HungerUnknown, false
	}

	return parseHungerValue(text)
}

// tesseractRecognize runs a digit-whitelisted single-word recognition pass.
func tesseractRecognize(pngData []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetWhitelist("0123456789%"); err != nil {
		return "", err
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", err
	}
	return client.Text()
}

// parseHungerValue returns the first run of digits in the recognized text
// that parses to a value within [0, maxHungerValue]. An implausible run
// (OCR gluing digits together) is skipped, not fatal: later runs still
// qualify.
func parseHungerValue(text string) (int, bool) {
	start := -1
	for i, r := range text {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if v, ok := acceptHunger(text[start:i]); ok {
				return v, true
			}
			start = -1
		}
	}
	if start >= 0 {
		if v, ok := acceptHunger(text[start:]); ok {
			return v, true
		}
	}
	return HungerUnknown, false
}

func acceptHunger(digits string) (int, bool) {
	v, err := strconv.Atoi(digits)
	if err != nil || v > maxHungerValue {
		return HungerUnknown, false
	}
	return v, true
}

// toGrayscale converts to luminance with the standard Rec.601 weights.
func toGrayscale(img *image.RGBA) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.RGBAAt(x, y)
			lum := 0.299*float64(px.R) + 0.587*float64(px.G) + 0.114*float64(px.B)
			gray.SetGray(x, y, color.Gray{Y: uint8(lum + 0.5)})
		}
	}
	return gray
}

// medianFilter3x3 replaces each interior pixel with the median of its 3x3
// neighborhood. Border pixels are copied unchanged.
func medianFilter3x3(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	copy(dst.Pix, src.Pix)

	window := make([]byte, 0, 9)
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, src.GrayAt(x+dx, y+dy).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			dst.SetGray(x, y, color.Gray{Y: window[4]})
		}
	}
	return dst
}

// otsuBinarize thresholds the image at the Otsu-optimal gray level,
// maximizing between-class variance over the 256-bin histogram.
func otsuBinarize(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	total := bounds.Dx() * bounds.Dy()
	dst := image.NewGray(bounds)
	if total == 0 {
		return dst
	}

	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}

	sum := 0.0
	for i, count := range hist {
		sum += float64(i) * float64(count)
	}

	var (
		sumBackground float64
		weightBg      int
		bestVariance  float64
		threshold     int
	)
	for t := 0; t < 256; t++ {
		weightBg += hist[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBackground += float64(t) * float64(hist[t])
		meanBg := sumBackground / float64(weightBg)
		meanFg := (sum - sumBackground) / float64(weightFg)
		diff := meanBg - meanFg
		variance := float64(weightBg) * float64(weightFg) * diff * diff
		if variance > bestVariance {
			bestVariance = variance
			threshold = t
		}
	}

	for i, v := range src.Pix {
		if int(v) > threshold {
			dst.Pix[i] = 255
		} else {
			dst.Pix[i] = 0
		}
	}
	return dst
}

// imageFingerprint hashes a sparse pixel sample. Collisions only cause a
// stale hunger reading for one cache TTL, so a full hash is not worth the
// per-poll cost.
func imageFingerprint(img *image.RGBA) uint64 {
	const prime = 1099511628211
	var h uint64 = 14695981039346656037

	bounds := img.Bounds()
	h = h*prime ^ uint64(uint32(bounds.Dx()))
	h = h*prime ^ uint64(uint32(bounds.Dy()))

	stepY := bounds.Dy() / 8
	if stepY < 1 {
		stepY = 1
	}
	stepX := bounds.Dx() / 8
	if stepX < 1 {
		stepX = 1
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			px := img.RGBAAt(x, y)
			h = h*prime ^ uint64(px.R)
			h = h*prime ^ uint64(px.G)
			h = h*prime ^ uint64(px.B)
		}
	}
	return h
}
