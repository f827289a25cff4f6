package main

import (
	"image"
	"image/color"
	"testing"
)

func newTestOCR(text string, calls *int) *HungerOCR {
	o := NewHungerOCR()
	o.recognize = func([]byte) (string, error) {
		*calls++
		return text, nil
	}
	return o
}

func grayRGBA(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestParseHungerValue(t *testing.T) {
	cases := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"87%", 87, true},
		{"100", 100, true},
		{"  42 %", 42, true},
		{"0%", 0, true},
		{"999", 999, true},
		{"1000", HungerUnknown, false},
		{"1000 87", 87, true}, // implausible run skipped, next one accepted
		{"9999 1000 42", 42, true},
		{"", HungerUnknown, false},
		{"%%", HungerUnknown, false},
		{"garbage", HungerUnknown, false},
		{"hp 63 mp 20", 63, true}, // first digit run wins
	}
	for _, tc := range cases {
		got, ok := parseHungerValue(tc.text)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("parseHungerValue(%q) = (%d, %v), want (%d, %v)",
				tc.text, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestReadHunger(t *testing.T) {
	calls := 0
	o := newTestOCR("87%", &calls)

	value, ok := o.ReadHunger(grayRGBA(40, 20, 200))
	if !ok || value != 87 {
		t.Errorf("ReadHunger = (%d, %v), want (87, true)", value, ok)
	}
}

func TestReadHungerFailureIsNotAnError(t *testing.T) {
	calls := 0
	o := newTestOCR("??", &calls)

	value, ok := o.ReadHunger(grayRGBA(40, 20, 200))
	if ok || value != HungerUnknown {
		t.Errorf("ReadHunger on garbage = (%d, %v), want (HungerUnknown, false)", value, ok)
	}
}

func TestReadHungerCachesByFingerprint(t *testing.T) {
	calls := 0
	o := newTestOCR("55", &calls)

	img := grayRGBA(40, 20, 128)
	o.ReadHunger(img)
	o.ReadHunger(img)
	if calls != 1 {
		t.Errorf("recognize calls = %d, want 1 (second read should hit cache)", calls)
	}

	// A visually different frame misses the cache.
	o.ReadHunger(grayRGBA(40, 20, 30))
	if calls != 2 {
		t.Errorf("recognize calls = %d after different frame, want 2", calls)
	}
}

func TestOtsuBinarizeSeparatesBimodal(t *testing.T) {
	// Left half dark (40), right half bright (210).
	src := image.NewGray(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(40)
			if x >= 10 {
				v = 210
			}
			src.SetGray(x, y, color.Gray{Y: v})
		}
	}

	out := otsuBinarize(src)
	for y := 0; y < 10; y++ {
		if out.GrayAt(5, y).Y != 0 {
			t.Fatalf("dark pixel (5,%d) not mapped to 0", y)
		}
		if out.GrayAt(15, y).Y != 255 {
			t.Fatalf("bright pixel (15,%d) not mapped to 255", y)
		}
	}
}

func TestMedianFilterRemovesSaltNoise(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 9, 9))
	// Uniform dark field with one bright salt pixel in the interior.
	for i := range src.Pix {
		src.Pix[i] = 20
	}
	src.SetGray(4, 4, color.Gray{Y: 255})

	out := medianFilter3x3(src)
	if got := out.GrayAt(4, 4).Y; got != 20 {
		t.Errorf("salt pixel survived the median filter: %d", got)
	}
	if got := out.GrayAt(0, 0).Y; got != 20 {
		t.Errorf("border pixel changed: %d", got)
	}
}

func TestToGrayscaleLuminance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	if got := toGrayscale(img).GrayAt(0, 0).Y; got != 255 {
		t.Errorf("white -> %d, want 255", got)
	}

	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	got := toGrayscale(img).GrayAt(0, 0).Y
	if got < 148 || got > 151 {
		t.Errorf("pure green -> %d, want ~150 (0.587 weight)", got)
	}
}
