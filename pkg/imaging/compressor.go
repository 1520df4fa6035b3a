// Package imaging turns arbitrary raster uploads into size-bounded JPEGs.
//
// Compression is a bounded search: quality is lowered first, then the image is
// downscaled, and once neither is possible quality keeps falling to an
// absolute minimum. The last encoding is returned even when the target is
// unreachable.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"

	// Standard and extended decoders registered with image.Decode.
	_ "image/gif"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/oksasatya/student-store/internal/domain/errs"
)

// ErrDecode is returned for unreadable or non-image input.
var ErrDecode = errs.ErrDecode

// Options tune the search. Zero fields fall back to DefaultOptions.
type Options struct {
	TargetKB       int
	InitialQuality int
	QualityFloor   int
	QualityStep    int
	MinQuality     int
	ScaleRatio     float64
	MinSide        int
	MaxAttempts    int
	// MaxPixels caps width*height of an upload before its pixels are decoded.
	MaxPixels int
}

// DefaultOptions is the listing policy: 200 KB per image.
var DefaultOptions = Options{
	TargetKB:       200,
	InitialQuality: 90,
	QualityFloor:   40,
	QualityStep:    5,
	MinQuality:     10,
	ScaleRatio:     0.9,
	MinSide:        256,
	MaxAttempts:    30,
	MaxPixels:      50_000_000,
}

// maxJPEGSide is the largest dimension image/jpeg can encode.
const maxJPEGSide = 65535

func (o Options) withDefaults() Options {
	d := DefaultOptions
	if o.TargetKB > 0 {
		d.TargetKB = o.TargetKB
	}
	if o.InitialQuality > 0 {
		d.InitialQuality = o.InitialQuality
	}
	if o.QualityFloor > 0 {
		d.QualityFloor = o.QualityFloor
	}
	if o.QualityStep > 0 {
		d.QualityStep = o.QualityStep
	}
	if o.MinQuality > 0 {
		d.MinQuality = o.MinQuality
	}
	if o.ScaleRatio > 0 && o.ScaleRatio < 1 {
		d.ScaleRatio = o.ScaleRatio
	}
	if o.MinSide > 0 {
		d.MinSide = o.MinSide
	}
	if o.MaxAttempts > 0 {
		d.MaxAttempts = o.MaxAttempts
	}
	if o.MaxPixels > 0 {
		d.MaxPixels = o.MaxPixels
	}
	if d.QualityFloor > d.InitialQuality {
		d.QualityFloor = d.InitialQuality
	}
	if d.MinQuality > d.QualityFloor {
		d.MinQuality = d.QualityFloor
	}
	return d
}

func (o Options) targetBytes() int { return o.TargetKB * 1024 }

// Result is the outcome of a compression run.
type Result struct {
	Data         []byte
	Quality      int
	Width        int
	Height       int
	Attempts     int
	WithinTarget bool
}

// ContentType is always JPEG.
func (Result) ContentType() string { return "image/jpeg" }

// Compress decodes data and runs the search. Only undecodable input fails.
func Compress(data []byte, opts Options) (Result, error) {
	opts = opts.withDefaults()
	img, err := decodeLimited(data, opts.MaxPixels)
	if err != nil {
		return Result{}, err
	}
	return CompressImage(img, opts)
}

// Decode sniffs and decodes an image no larger than DefaultOptions.MaxPixels.
func Decode(data []byte) (image.Image, error) {
	return decodeLimited(data, DefaultOptions.MaxPixels)
}

func decodeLimited(data []byte, maxPixels int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrDecode, mt.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// CompressImage runs the search on an already decoded image.
func CompressImage(img image.Image, opts Options) (Result, error) {
	opts = opts.withDefaults()
	st := state{img: fitJPEG(Flatten(img)), quality: opts.InitialQuality}

	var res Result
	for st.attempts < opts.MaxAttempts {
		out, err := encode(st.img, st.quality)
		if err != nil {
			return Result{}, err
		}
		st.attempts++
		b := st.img.Bounds()
		res = Result{
			Data:     out,
			Quality:  st.quality,
			Width:    b.Dx(),
			Height:   b.Dy(),
			Attempts: st.attempts,
		}
		if len(out) <= opts.targetBytes() {
			res.WithinTarget = true
			return res, nil
		}
		next, ok := advance(st, opts)
		if !ok {
			break
		}
		st = next
	}
	return res, nil
}

type state struct {
	img      image.Image
	quality  int
	attempts int
}

// advance computes the next search state after an oversized encoding.
// It reports false when no further reduction is allowed.
func advance(st state, opts Options) (state, bool) {
	if st.quality > opts.QualityFloor {
		st.quality = max(st.quality-opts.QualityStep, opts.QualityFloor)
		return st, true
	}
	if w, h, ok := scaledSize(st.img.Bounds(), opts); ok {
		st.img = resize(st.img, w, h)
		return st, true
	}
	if st.quality > opts.MinQuality {
		st.quality = max(st.quality-opts.QualityStep, opts.MinQuality)
		return st, true
	}
	return st, false
}

// scaledSize shrinks both sides by the ratio, refusing when the shortest side
// would drop below MinSide.
func scaledSize(b image.Rectangle, opts Options) (int, int, bool) {
	w := int(float64(b.Dx()) * opts.ScaleRatio)
	h := int(float64(b.Dy()) * opts.ScaleRatio)
	if min(w, h) < opts.MinSide {
		return 0, 0, false
	}
	return w, h, true
}

// fitJPEG downscales img proportionally when a side exceeds maxJPEGSide.
func fitJPEG(img image.Image) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= maxJPEGSide {
		return img
	}
	scale := float64(maxJPEGSide) / float64(longest)
	w := min(max(int(float64(b.Dx())*scale), 1), maxJPEGSide)
	h := min(max(int(float64(b.Dy())*scale), 1), maxJPEGSide)
	return resize(img, w, h)
}

func resize(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Flatten returns an opaque RGBA copy of img. Images that can carry
// transparency, including paletted ones, are composited over white.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if hasAlpha(img) {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func hasAlpha(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return true
	}
	switch img.ColorModel() {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model:
		if o, ok := img.(interface{ Opaque() bool }); ok {
			return !o.Opaque()
		}
		return true
	}
	return false
}
