package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nmalenkov/storefront/internal/models"
)

func createProduct(t *testing.T, env *testEnv, name string, price float64, stock uint, variants ...models.Variant) *models.Product {
	t.Helper()

	prod := models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.NewFromFloat(price),
		Stock:       stock,
		Variants:    variants,
	}
	require.NoError(t, env.DB.Create(&prod).Error)
	return &prod
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 100,
		models.Variant{Name: "S", Price: decimal.NewFromInt(19), Stock: 30},
		models.Variant{Name: "M", Price: decimal.NewFromInt(21), Stock: 40},
	)

	rec, c := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/products/%d", prod.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(prod.ID))
	env.serve(c, rec, env.Products.GetProduct)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, prod.ID, resp.ID)
	require.Equal(t, "Classic Tee", resp.Name)
	require.Len(t, resp.Variants, 2)
}

func TestGetProductUnknownIDRendersNull(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/products/999", nil)
	c.SetParamNames("id")
	c.SetParamValues("999")
	env.serve(c, rec, env.Products.GetProduct)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "null\n", rec.Body.String())
}

func TestGetProducts(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 15; i++ {
		createProduct(t, env, fmt.Sprintf("Product %02d", i), 10, 5)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/products?page=2&size=10", nil)
	env.serve(c, rec, env.Products.GetProducts)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Page    int   `json:"page"`
			Total   int64 `json:"total"`
			HasNext bool  `json:"has_next"`
			HasPrev bool  `json:"has_prev"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 5)
	require.Equal(t, 2, resp.Meta.Page)
	require.EqualValues(t, 15, resp.Meta.Total)
	require.False(t, resp.Meta.HasNext)
	require.True(t, resp.Meta.HasPrev)
}

func TestGetStock(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 100,
		models.Variant{Name: "S", Price: decimal.NewFromInt(19), Stock: 30},
	)

	rec, c := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/products/%d/stock", prod.ID), nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(prod.ID))
	env.serve(c, rec, env.Products.GetStock)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Stock uint `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 100, resp.Stock)
}

func TestGetStockVariant(t *testing.T) {
	env := newTestEnv(t)
	prod := createProduct(t, env, "Classic Tee", 19, 100,
		models.Variant{Name: "S", Price: decimal.NewFromInt(19), Stock: 30},
	)
	variantID := prod.Variants[0].ID

	path := fmt.Sprintf("/api/products/%d/stock?variant_id=%d", prod.ID, variantID)
	rec, c := env.doJSONRequest(http.MethodGet, path, nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(prod.ID))
	env.serve(c, rec, env.Products.GetStock)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		VariantID *uint `json:"variant_id"`
		Stock     uint  `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.VariantID)
	require.Equal(t, variantID, *resp.VariantID)
	require.EqualValues(t, 30, resp.Stock)
}

func TestGetStockUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/products/999/stock", nil)
	c.SetParamNames("id")
	c.SetParamValues("999")
	env.serve(c, rec, env.Products.GetStock)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
