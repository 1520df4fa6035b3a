package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/student-store/internal/domain/errs"
)

func noise(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompress_SmallImageKeepsInitialEncoding(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 120, A: 255})
		}
	}

	res, err := Compress(encodePNG(t, src), DefaultOptions)
	require.NoError(t, err)

	var want bytes.Buffer
	require.NoError(t, jpeg.Encode(&want, Flatten(src), &jpeg.Options{Quality: 90}))

	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 90, res.Quality)
	assert.True(t, res.WithinTarget)
	assert.Equal(t, want.Bytes(), res.Data)
	assert.Equal(t, "image/jpeg", res.ContentType())
}

func TestCompress_OutputIsJPEG(t *testing.T) {
	res, err := Compress(encodePNG(t, noise(300, 300, 1)), Options{TargetKB: 50})
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCompress_RejectsNonImage(t *testing.T) {
	_, err := Compress([]byte("definitely not an image"), DefaultOptions)
	assert.ErrorIs(t, err, errs.ErrDecode)

	_, err = Compress(nil, DefaultOptions)
	assert.ErrorIs(t, err, errs.ErrDecode)
}

func TestCompress_RejectsTruncatedPNG(t *testing.T) {
	data := encodePNG(t, noise(64, 64, 2))
	_, err := Compress(data[:len(data)/2], DefaultOptions)
	assert.ErrorIs(t, err, errs.ErrDecode)
}

// withDimensions rewrites the IHDR of a PNG so it declares w x h pixels.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := bytes.Clone(data)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCompress_RejectsOversizedDimensions(t *testing.T) {
	data := withDimensions(t, encodePNG(t, noise(16, 16, 7)), 30000, 30000)

	_, err := Compress(data, DefaultOptions)
	assert.ErrorIs(t, err, errs.ErrDecode)

	_, err = Decode(data)
	assert.ErrorIs(t, err, errs.ErrDecode)
}

func TestCompress_MaxPixelsOption(t *testing.T) {
	data := encodePNG(t, noise(100, 100, 8))

	_, err := Compress(data, Options{MaxPixels: 9999})
	assert.ErrorIs(t, err, errs.ErrDecode)

	_, err = Compress(data, Options{MaxPixels: 10000})
	assert.NoError(t, err)
}

func TestCompressImage_FitsJPEGSideLimit(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 70000, 8))
	rand.New(rand.NewSource(9)).Read(img.Pix)

	res, err := CompressImage(img, Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Width, maxJPEGSide)
	assert.GreaterOrEqual(t, res.Height, 1)
	assert.NotEmpty(t, res.Data)
}

func TestFitJPEG_LeavesSmallImages(t *testing.T) {
	img := noise(300, 200, 10)
	assert.Same(t, image.Image(img), fitJPEG(img))
}

func TestCompressImage_TerminatesWithinAttemptCeiling(t *testing.T) {
	opts := Options{TargetKB: 1, MaxAttempts: 30}
	res, err := CompressImage(noise(1200, 900, 3), opts)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.Attempts, 30)
	assert.False(t, res.WithinTarget)
	assert.NotEmpty(t, res.Data)
}

func TestCompressImage_HugeInputTerminates(t *testing.T) {
	if testing.Short() {
		t.Skip("encodes a 10000x10000 image")
	}
	img := image.NewGray(image.Rect(0, 0, 10000, 10000))
	rand.New(rand.NewSource(4)).Read(img.Pix)

	res, err := CompressImage(img, Options{TargetKB: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Attempts, DefaultOptions.MaxAttempts)
}

func TestCompressImage_NeverDownscalesBelowMinSide(t *testing.T) {
	res, err := CompressImage(noise(400, 300, 5), Options{TargetKB: 1, MaxAttempts: 100})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, min(res.Width, res.Height), DefaultOptions.MinSide)
	// Quality bottoms out at the absolute minimum once downscaling is exhausted.
	assert.Equal(t, DefaultOptions.MinQuality, res.Quality)
}

func TestCompressImage_SmallSideNeverScaled(t *testing.T) {
	res, err := CompressImage(noise(200, 900, 6), Options{TargetKB: 1, MaxAttempts: 100})
	require.NoError(t, err)

	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 900, res.Height)
}

func TestAdvance_Phases(t *testing.T) {
	opts := DefaultOptions
	st := state{img: image.NewRGBA(image.Rect(0, 0, 1000, 500)), quality: 90}

	// Quality phase: 90 -> 40 in steps of 5.
	for want := 85; want >= 40; want -= 5 {
		var ok bool
		st, ok = advance(st, opts)
		require.True(t, ok)
		assert.Equal(t, want, st.quality)
		assert.Equal(t, 1000, st.img.Bounds().Dx())
	}

	// Downscale phase keeps quality at the floor.
	st, ok := advance(st, opts)
	require.True(t, ok)
	assert.Equal(t, 40, st.quality)
	assert.Equal(t, 900, st.img.Bounds().Dx())
	assert.Equal(t, 450, st.img.Bounds().Dy())

	// Shrink until the shortest side would fall under 256: 450,405,364,327,294,264 then 237 refused.
	for st.img.Bounds().Dy() > 264 {
		st, ok = advance(st, opts)
		require.True(t, ok)
		assert.Equal(t, 40, st.quality)
	}
	assert.Equal(t, 264, st.img.Bounds().Dy())

	// Below-floor quality phase.
	for want := 35; want >= 10; want -= 5 {
		st, ok = advance(st, opts)
		require.True(t, ok)
		assert.Equal(t, want, st.quality)
		assert.Equal(t, 264, st.img.Bounds().Dy())
	}

	_, ok = advance(st, opts)
	assert.False(t, ok)
}

func TestFlatten_TransparentBecomesWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.Set(1, 1, color.NRGBA{R: 255, A: 255})

	out := Flatten(src)

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(1, 1))
}

func TestFlatten_PalettedTransparentIndex(t *testing.T) {
	pal := color.Palette{color.Transparent, color.RGBA{B: 255, A: 255}}
	src := image.NewPaletted(image.Rect(0, 0, 2, 1), pal)
	src.SetColorIndex(1, 0, 1)

	out := Flatten(src)

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(1, 0))
}

func TestFlatten_GrayCoercedToRGB(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(0, 0, color.Gray{Y: 80})

	out := Flatten(src)

	assert.Equal(t, color.RGBA{R: 80, G: 80, B: 80, A: 255}, out.RGBAAt(0, 0))
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{TargetKB: 50, ScaleRatio: 1.5, QualityFloor: 95}.withDefaults()

	assert.Equal(t, 50, o.TargetKB)
	assert.Equal(t, 0.9, o.ScaleRatio)
	assert.Equal(t, 90, o.QualityFloor)
	assert.Equal(t, 30, o.MaxAttempts)
	assert.Equal(t, 50_000_000, o.MaxPixels)
}
