package service

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yamar8/lovetree-backend/internal/store"

	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Catalog, *fakeImageStore) {
	t.Helper()

	images := newFakeImageStore()
	return NewCatalog(store.NewProducts(testDB(t)), NewImageUploader(images), 0), images
}

func TestCatalogAddAndGet(t *testing.T) {
	ctx := context.Background()
	c, images := newTestCatalog(t)

	p, err := c.Add(ctx, NewProduct{
		Name:       "Linen shirt",
		Price:      49.5,
		Category:   "Men",
		Sizes:      []string{"M", "L"},
		Bestseller: true,
	}, []Image{pngImage(), pngImage()})
	require.NoError(t, err)
	require.Len(t, p.Images, 2)
	require.Len(t, p.ImageKeys, 2)
	require.Equal(t, 2, images.live())

	for i, key := range p.ImageKeys {
		require.True(t, strings.HasPrefix(key, "products/"))
		require.True(t, strings.HasSuffix(key, ".png"))
		require.Equal(t, "https://cdn.example.com/"+key, p.Images[i])
	}

	got, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Linen shirt", got.Name)
	require.Equal(t, []string{"M", "L"}, []string(got.Sizes))
	require.True(t, got.Bestseller)

	_, err = c.Get(ctx, "missing")
	requireKind(t, err, ErrNotFound)
}

func TestCatalogAddValidation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	_, err := c.Add(ctx, NewProduct{Price: 1}, nil)
	requireKind(t, err, ErrValidation)

	_, err = c.Add(ctx, NewProduct{Name: "Hat", Price: -1}, nil)
	requireKind(t, err, ErrValidation)

	tooMany := make([]Image, DefaultMaxImages+1)
	for i := range tooMany {
		tooMany[i] = pngImage()
	}

	_, err = c.Add(ctx, NewProduct{Name: "Hat"}, tooMany)
	requireKind(t, err, ErrValidation)
}

func TestCatalogRejectsNonFinitePrice(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	a, err := c.Add(ctx, NewProduct{Name: "A", Price: 1}, nil)
	require.NoError(t, err)

	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := c.Add(ctx, NewProduct{Name: "Hat", Price: price}, nil)
		requireKind(t, err, ErrValidation)

		err = c.Edit(ctx, []store.ProductEdit{{ID: a.ID, Name: "A2", Price: price}})
		requireKind(t, err, ErrValidation)
	}

	products, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "A", products[0].Name)
	require.InDelta(t, 1.0, products[0].Price, 0.001)
}

func TestCatalogAddFailedUploadCleansUp(t *testing.T) {
	ctx := context.Background()
	c, images := newTestCatalog(t)
	images.failType = "image/gif"

	_, err := c.Add(ctx, NewProduct{Name: "Hat"}, []Image{
		pngImage(),
		pngImage(),
		{Body: strings.NewReader("GIF89a"), ContentType: "image/gif"},
	})
	requireKind(t, err, ErrDependency)
	require.Zero(t, images.live())

	products, err := c.List(ctx)
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestCatalogRemove(t *testing.T) {
	ctx := context.Background()
	c, images := newTestCatalog(t)

	p, err := c.Add(ctx, NewProduct{Name: "Hat"}, []Image{pngImage()})
	require.NoError(t, err)

	require.NoError(t, c.AddReview(ctx, p.ID, "user1", 5, "great"))
	require.NoError(t, c.Remove(ctx, p.ID))
	require.Zero(t, images.live())
	require.ElementsMatch(t, p.ImageKeys, images.deleted)

	requireKind(t, c.Remove(ctx, p.ID), ErrNotFound)
	requireKind(t, c.Remove(ctx, ""), ErrValidation)
}

func TestCatalogListNewestFirst(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	base := time.UnixMilli(1_700_000_000_000)
	for i, name := range []string{"old", "mid", "new"} {
		c.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }

		_, err := c.Add(ctx, NewProduct{Name: name}, nil)
		require.NoError(t, err)
	}

	products, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	require.Equal(t, "new", products[0].Name)
	require.Equal(t, "old", products[2].Name)
}

func TestCatalogEdit(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	a, err := c.Add(ctx, NewProduct{Name: "A", Price: 1, Category: "Men"}, nil)
	require.NoError(t, err)
	b, err := c.Add(ctx, NewProduct{Name: "B", Price: 2, Category: "Women"}, nil)
	require.NoError(t, err)

	err = c.Edit(ctx, []store.ProductEdit{
		{ID: a.ID, Name: "A2", Price: 10, Category: "Kids"},
		{ID: "missing", Name: "X"},
	})
	requireKind(t, err, ErrNotFound)

	got, err := c.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "A", got.Name)

	requireKind(t, c.Edit(ctx, nil), ErrValidation)
	requireKind(t, c.Edit(ctx, []store.ProductEdit{{ID: a.ID}}), ErrValidation)
	requireKind(t, c.Edit(ctx, []store.ProductEdit{{ID: a.ID, Name: "A", Price: -3}}), ErrValidation)

	require.NoError(t, c.Edit(ctx, []store.ProductEdit{
		{ID: a.ID, Name: "A2", Description: "d", Price: 10, Category: "Kids"},
		{ID: b.ID, Name: "B2", Price: 20, Category: "Women"},
	}))

	got, err = c.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "A2", got.Name)
	require.Equal(t, "Kids", got.Category)
	require.InDelta(t, 10.0, got.Price, 0.001)

	categories, err := c.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Kids", "Women"}, categories)
}

func TestCatalogReviews(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	p, err := c.Add(ctx, NewProduct{Name: "Hat"}, nil)
	require.NoError(t, err)

	requireKind(t, c.AddReview(ctx, p.ID, "u1", 0, ""), ErrValidation)
	requireKind(t, c.AddReview(ctx, p.ID, "u1", 6, ""), ErrValidation)
	requireKind(t, c.AddReview(ctx, p.ID, "u1", 3, strings.Repeat("a", 2001)), ErrValidation)
	requireKind(t, c.AddReview(ctx, "missing", "u1", 3, "ok"), ErrNotFound)

	require.NoError(t, c.AddReview(ctx, p.ID, "u1", 4, "nice"))

	got, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Reviews, 1)
	require.Equal(t, "u1", got.Reviews[0].UserID)
	require.Equal(t, 4, got.Reviews[0].Rating)
}
