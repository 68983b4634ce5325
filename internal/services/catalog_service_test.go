package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/storage"
)

func TestCatalogServiceAddProductValidatesSizes(t *testing.T) {
	svc, err := NewCatalogService(CatalogServiceDeps{Products: newMemProducts()})
	require.NoError(t, err)

	base := AddProductCommand{Name: "Tee", Price: decimal.NewFromInt(20), Sizes: []SizeStock{{Size: "S", Stock: 1}}}
	cases := map[string]func(*AddProductCommand){
		"duplicate size": func(c *AddProductCommand) { c.Sizes = []SizeStock{{Size: "S", Stock: 1}, {Size: "S", Stock: 2}} },
		"negative stock": func(c *AddProductCommand) { c.Sizes = []SizeStock{{Size: "S", Stock: -1}} },
		"no sizes":       func(c *AddProductCommand) { c.Sizes = nil },
		"zero price":     func(c *AddProductCommand) { c.Price = decimal.Zero },
		"blank name":     func(c *AddProductCommand) { c.Name = "<p> </p>" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cmd := base
			mutate(&cmd)
			_, err := svc.AddProduct(context.Background(), cmd)
			require.ErrorIs(t, err, ErrProductInvalidInput)
		})
	}
}

func TestCatalogServiceAddProductStoresUploads(t *testing.T) {
	repo := newMemProducts()
	uploader := &stubUploader{}
	svc, err := NewCatalogService(CatalogServiceDeps{
		Products:    repo,
		Images:      uploader,
		Clock:       func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
		IDGenerator: sequenceIDs("P"),
	})
	require.NoError(t, err)

	product, err := svc.AddProduct(context.Background(), AddProductCommand{
		Name:     "Tee",
		Price:    decimal.RequireFromString("19.999"),
		Category: "Men",
		Images:   []string{"https://cdn.test/existing.jpg"},
		Uploads:  []ImageFile{{FileName: "front.png", ContentType: "image/png", Body: strings.NewReader("png")}},
		Sizes:    []SizeStock{{Size: " S ", Stock: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, "prd_P01", product.ID)
	require.Equal(t, "S", product.Sizes[0].Size)
	require.True(t, decimal.RequireFromString("20").Equal(product.Price))
	require.Equal(t, []string{"https://cdn.test/existing.jpg", "https://cdn.test/products/prd_P01/front.png"}, product.Images)
	require.Equal(t, storage.PurposeProductImage, uploader.uploads[0].Purpose)

	list, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.RemoveProduct(context.Background(), product.ID))
	_, err = svc.GetProduct(context.Background(), product.ID)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogServiceRejectsDeniedContentType(t *testing.T) {
	svc, err := NewCatalogService(CatalogServiceDeps{
		Products: newMemProducts(),
		Images:   &stubUploader{err: storage.ErrContentTypeDenied},
	})
	require.NoError(t, err)
	_, err = svc.AddProduct(context.Background(), AddProductCommand{
		Name:    "Tee",
		Price:   decimal.NewFromInt(5),
		Sizes:   []SizeStock{{Size: "S"}},
		Uploads: []ImageFile{{FileName: "x.exe", ContentType: "application/octet-stream", Body: strings.NewReader("x")}},
	})
	require.ErrorIs(t, err, ErrProductInvalidInput)
}
