package application

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	"github.com/oksasatya/student-store/internal/testutil"
	tpl "github.com/oksasatya/student-store/pkg/mailer/templates"
)

var productNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func pngImage(t *testing.T, w, h int, c color.Color) RawImage {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return RawImage{Data: buf.Bytes(), Size: int64(buf.Len()), Filename: "a.png", ContentType: "image/png"}
}

type productFixture struct {
	svc      *ProductService
	products *testutil.Products
	users    *testutil.Users
	blobs    *testutil.MockBlobStore
	cache    *testutil.Cache
	index    *testutil.Index
	pub      *testutil.Publisher
}

func newProductFixture(seed ...entity.Product) *productFixture {
	f := &productFixture{
		products: testutil.NewProducts(seed...),
		users:    testutil.NewUsers(),
		blobs:    new(testutil.MockBlobStore),
		cache:    testutil.NewCache(),
		index:    testutil.NewIndex(),
		pub:      &testutil.Publisher{},
	}
	f.svc = NewProductService(f.products, f.users, f.blobs, nil)
	f.svc.Cache = f.cache
	f.svc.Index = f.index
	f.svc.Pub = f.pub
	f.svc.MailEnabled = true
	f.svc.AppName = "Student Store"
	f.svc.now = func() time.Time { return productNow }
	return f
}

func validInput() CreateProductInput {
	return CreateProductInput{Name: "Desk lamp", Price: 10, Location: "Dorm A", Category: "home"}
}

func TestCreate_UploadsInOrderAndPersists(t *testing.T) {
	f := newProductFixture()
	f.blobs.On("Upload", mock.Anything, mock.Anything, "image/jpeg").Return("https://blob/1.jpg", nil).Once()
	f.blobs.On("Upload", mock.Anything, mock.Anything, "image/jpeg").Return("https://blob/2.jpg", nil).Once()
	f.blobs.On("Upload", mock.Anything, mock.Anything, "image/jpeg").Return("https://blob/3.jpg", nil).Once()

	imgs := []RawImage{
		pngImage(t, 40, 40, color.NRGBA{R: 255, A: 255}),
		pngImage(t, 40, 40, color.NRGBA{G: 255, A: 128}),
		pngImage(t, 40, 40, color.NRGBA{B: 255, A: 0}),
	}
	p, err := f.svc.Create(t.Context(), validInput(), imgs)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://blob/1.jpg", "https://blob/2.jpg", "https://blob/3.jpg"}, p.ImageURLs)
	assert.Equal(t, entity.PlaceholderSellerID, p.SellerID)
	assert.False(t, p.IsSold)
	assert.Equal(t, productNow, p.DateAdded)

	stored, err := f.products.Get(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ImageURLs, stored.ImageURLs)
	assert.True(t, f.index.Has(p.ID))
	f.blobs.AssertNumberOfCalls(t, "Upload", 3)
}

func TestCreate_UploadsCompressedJPEG(t *testing.T) {
	f := newProductFixture()
	var uploaded []byte
	f.blobs.On("Upload", mock.Anything, mock.Anything, "image/jpeg").
		Run(func(args mock.Arguments) { uploaded = args.Get(1).([]byte) }).
		Return("https://blob/1.jpg", nil)

	_, err := f.svc.Create(t.Context(), validInput(), []RawImage{pngImage(t, 64, 64, color.White)})
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(uploaded))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, len(uploaded), 200*1024)
}

func TestCreate_UsesSellerID(t *testing.T) {
	f := newProductFixture()
	f.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil)

	in := validInput()
	in.SellerID = "user-7"
	p, err := f.svc.Create(t.Context(), in, []RawImage{pngImage(t, 8, 8, color.Black)})
	require.NoError(t, err)
	assert.Equal(t, "user-7", p.SellerID)
}

func TestCreate_Validation(t *testing.T) {
	img := []RawImage{pngImage(t, 8, 8, color.Black)}
	tests := []struct {
		name   string
		mutate func(in *CreateProductInput)
		images []RawImage
		field  string
	}{
		{"missing name", func(in *CreateProductInput) { in.Name = "" }, img, "name"},
		{"zero price", func(in *CreateProductInput) { in.Price = 0 }, img, "price"},
		{"negative price", func(in *CreateProductInput) { in.Price = -1 }, img, "price"},
		{"infinite price", func(in *CreateProductInput) { in.Price = math.Inf(1) }, img, "price"},
		{"NaN price", func(in *CreateProductInput) { in.Price = math.NaN() }, img, "price"},
		{"missing location", func(in *CreateProductInput) { in.Location = "" }, img, "location"},
		{"missing category", func(in *CreateProductInput) { in.Category = "" }, img, "category"},
		{"no images", func(in *CreateProductInput) {}, nil, "images"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProductFixture()
			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.Create(t.Context(), in, tt.images)
			require.ErrorIs(t, err, errs.ErrValidation)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
			f.blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreate_DecodeFailureStopsBeforeUpload(t *testing.T) {
	f := newProductFixture()
	bad := RawImage{Data: []byte("plain text, not a picture"), Filename: "x.txt"}

	_, err := f.svc.Create(t.Context(), validInput(), []RawImage{bad})
	assert.ErrorIs(t, err, errs.ErrDecode)
	f.blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	all, _ := f.products.FindAll(t.Context())
	assert.Empty(t, all)
}

func TestCreate_UploadFailureAbortsWithoutRollback(t *testing.T) {
	f := newProductFixture()
	f.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("https://blob/1.jpg", nil).Once()
	f.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("503")).Once()

	imgs := []RawImage{pngImage(t, 8, 8, color.Black), pngImage(t, 8, 8, color.White), pngImage(t, 8, 8, color.Black)}
	_, err := f.svc.Create(t.Context(), validInput(), imgs)

	assert.ErrorIs(t, err, errs.ErrUpload)
	f.blobs.AssertNumberOfCalls(t, "Upload", 2)
	all, _ := f.products.FindAll(t.Context())
	assert.Empty(t, all)
}

func seedProduct(id string) entity.Product {
	return entity.Product{
		ID: id, Name: "Desk lamp", Price: 10, SellerID: entity.PlaceholderSellerID,
		ImageURLs: []string{"u1"}, Location: "Dorm A", Category: "home", DateAdded: productNow,
	}
}

func TestGet_ReadsThroughCache(t *testing.T) {
	f := newProductFixture(seedProduct("p-1"))

	p, err := f.svc.Get(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp", p.Name)
	assert.True(t, f.cache.Has("p-1"))
	assert.Equal(t, 0, f.cache.Hits)

	_, err = f.svc.Get(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Hits)
}

func TestGet_NotFound(t *testing.T) {
	f := newProductFixture()
	_, err := f.svc.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	old := seedProduct("old")
	old.DateAdded = productNow.Add(-time.Hour)
	f := newProductFixture(old, seedProduct("new"))

	all, err := f.svc.List(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].ID)
}

func TestUpdate_AppliesOnlyPresentFields(t *testing.T) {
	f := newProductFixture(seedProduct("p-1"))
	_, _ = f.svc.Get(t.Context(), "p-1")

	price := 25.0
	tags := []string{"lamp", "desk"}
	p, err := f.svc.Update(t.Context(), "p-1", UpdateProductInput{Price: &price, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, 25.0, p.Price)
	assert.Equal(t, tags, p.Tags)
	assert.Equal(t, "Desk lamp", p.Name)
	assert.Equal(t, "Dorm A", p.Location)
	assert.Equal(t, []string{"u1"}, p.ImageURLs)
	assert.False(t, f.cache.Has("p-1"))
}

func TestUpdate_Errors(t *testing.T) {
	f := newProductFixture(seedProduct("p-1"))

	bad := -3.0
	_, err := f.svc.Update(t.Context(), "p-1", UpdateProductInput{Price: &bad})
	assert.ErrorIs(t, err, errs.ErrValidation)

	inf := math.Inf(1)
	_, err = f.svc.Update(t.Context(), "p-1", UpdateProductInput{Price: &inf})
	assert.ErrorIs(t, err, errs.ErrValidation)

	name := "x"
	_, err = f.svc.Update(t.Context(), "nope", UpdateProductInput{Name: &name})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newProductFixture(seedProduct("p-1"))
	_, _ = f.svc.Get(t.Context(), "p-1")
	require.NoError(t, f.index.Index(t.Context(), &entity.Product{ID: "p-1", Name: "Desk lamp"}))

	require.NoError(t, f.svc.Delete(t.Context(), "p-1"))

	_, err := f.svc.Get(t.Context(), "p-1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.False(t, f.index.Has("p-1"))
	assert.ErrorIs(t, f.svc.Delete(t.Context(), "p-1"), errs.ErrNotFound)
}

func TestMarkSold_IsIdempotent(t *testing.T) {
	f := newProductFixture(seedProduct("p-1"))

	p, err := f.svc.MarkSold(t.Context(), "p-1")
	require.NoError(t, err)
	assert.True(t, p.IsSold)

	again, err := f.svc.MarkSold(t.Context(), "p-1")
	require.NoError(t, err)
	assert.True(t, again.IsSold)

	_, err = f.svc.MarkSold(t.Context(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMarkSold_NotifiesKnownSellerOnce(t *testing.T) {
	seller := entity.User{ID: "seller-1", Email: "s@x.com", Name: "Sam", IsActive: true}
	listing := seedProduct("p-1")
	listing.SellerID = seller.ID
	f := newProductFixture(listing)
	f.users.Put(seller)

	_, err := f.svc.MarkSold(t.Context(), "p-1")
	require.NoError(t, err)
	_, err = f.svc.MarkSold(t.Context(), "p-1")
	require.NoError(t, err)

	jobs := f.pub.Published()
	require.Len(t, jobs, 1)
	assert.Equal(t, tpl.ListingSold, jobs[0].Template)
	assert.Equal(t, "s@x.com", jobs[0].To)
	assert.Equal(t, "Desk lamp", jobs[0].Data["ProductName"])
}

func TestMarkSold_UnknownSellerIsSilent(t *testing.T) {
	listing := seedProduct("p-1")
	listing.SellerID = "ghost"
	f := newProductFixture(listing, seedProduct("p-2"))

	_, err := f.svc.MarkSold(t.Context(), "p-1")
	require.NoError(t, err)
	_, err = f.svc.MarkSold(t.Context(), "p-2")
	require.NoError(t, err)
	assert.Empty(t, f.pub.Published())
}

func TestSearch_UsesIndexThenStore(t *testing.T) {
	lamp := seedProduct("p-1")
	chair := seedProduct("p-2")
	chair.Name = "Office chair"
	f := newProductFixture(lamp, chair)
	require.NoError(t, f.index.Index(t.Context(), &lamp))
	require.NoError(t, f.index.Index(t.Context(), &chair))
	// stale document whose record is gone
	require.NoError(t, f.index.Index(t.Context(), &entity.Product{ID: "p-0", Name: "Old lamp"}))

	got, err := f.svc.Search(t.Context(), "lamp", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-1", got[0].ID)
}

func TestSearch_FallsBackToStore(t *testing.T) {
	f := newProductFixture(seedProduct("p-1"))
	f.svc.Index = nil

	got, err := f.svc.Search(t.Context(), "DORM", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.svc.Search(t.Context(), "  ", 5)
	assert.ErrorIs(t, err, errs.ErrValidation)
}
