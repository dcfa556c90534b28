package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-cart/api/middleware"
	"github.com/angelmondragon/marketplace-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
)

type stubCartService struct {
	cart *models.Cart
	err  error

	lastBuyerID uuid.UUID
	lastOrderID *uuid.UUID
}

func (s *stubCartService) FindOrCreateOpenCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	s.lastBuyerID = buyerID
	return s.cart, s.err
}

func (s *stubCartService) FindOneIfOwned(ctx context.Context, buyerID, cartID uuid.UUID) (*models.Cart, error) {
	s.lastBuyerID = buyerID
	return s.cart, s.err
}

func (s *stubCartService) SetCheckoutDone(ctx context.Context, buyerID, cartID uuid.UUID, orderID *uuid.UUID) error {
	s.lastBuyerID = buyerID
	s.lastOrderID = orderID
	return s.err
}

type stubItemService struct {
	cart *models.Cart
	err  error

	lastProductID uuid.UUID
	lastQuantity  int
}

func (s *stubItemService) AddItem(ctx context.Context, buyerID, cartID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	s.lastProductID = productID
	s.lastQuantity = quantity
	return s.cart, s.err
}

func (s *stubItemService) UpdateItemQty(ctx context.Context, buyerID, cartID, itemID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	s.lastProductID = productID
	s.lastQuantity = quantity
	return s.cart, s.err
}

func (s *stubItemService) RemoveIfOwned(ctx context.Context, buyerID, cartID, itemID uuid.UUID) error {
	return s.err
}

func withBuyer(req *http.Request, buyerID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithBuyerID(req.Context(), buyerID))
}

func withCartParams(req *http.Request, cartID uuid.UUID, itemID *uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("cartID", cartID.String())
	if itemID != nil {
		rctx.URLParams.Add("itemID", itemID.String())
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestOpenCartSuccess(t *testing.T) {
	buyerID := uuid.New()
	cart := &models.Cart{ID: uuid.New(), BuyerID: buyerID}
	svc := &stubCartService{cart: cart}
	handler := OpenCart(svc, nil)

	req := withBuyer(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), buyerID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastBuyerID != buyerID {
		t.Fatalf("buyer id not forwarded, got %s", svc.lastBuyerID)
	}

	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != cart.ID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.ID)
	}
	if envelope.Data.Items == nil {
		t.Fatal("items must serialize as an empty array, not null")
	}
}

func TestOpenCartMissingBuyer(t *testing.T) {
	handler := OpenCart(&stubCartService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAddItemSuccess(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	productID := uuid.New()
	svc := &stubItemService{cart: &models.Cart{ID: cartID, BuyerID: buyerID}}
	handler := AddItem(svc, nil)

	body := `{"product_id":"` + productID.String() + `","quantity":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/"+cartID.String()+"/items", strings.NewReader(body))
	req = withCartParams(withBuyer(req, buyerID), cartID, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastProductID != productID || svc.lastQuantity != 3 {
		t.Fatalf("payload not forwarded: %s qty %d", svc.lastProductID, svc.lastQuantity)
	}
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	handler := AddItem(&stubItemService{}, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/"+cartID.String()+"/items", strings.NewReader(body))
	req = withCartParams(withBuyer(req, buyerID), cartID, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAddItemStockExceeded(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	svc := &stubItemService{err: pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds available stock")}
	handler := AddItem(svc, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/"+cartID.String()+"/items", strings.NewReader(body))
	req = withCartParams(withBuyer(req, buyerID), cartID, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
	if !strings.Contains(envelope.Error.Message, "stock") {
		t.Fatalf("expected the stock message to surface, got %q", envelope.Error.Message)
	}
}

func TestUpdateItemForbidden(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	itemID := uuid.New()
	svc := &stubItemService{err: pkgerrors.New(pkgerrors.CodeForbidden, "cart does not belong to the buyer")}
	handler := UpdateItem(svc, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/"+cartID.String()+"/items/"+itemID.String(), strings.NewReader(body))
	req = withCartParams(withBuyer(req, buyerID), cartID, &itemID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRemoveItemSuccess(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	itemID := uuid.New()
	handler := RemoveItem(&stubItemService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/"+cartID.String()+"/items/"+itemID.String(), nil)
	req = withCartParams(withBuyer(req, buyerID), cartID, &itemID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCheckoutDoneForwardsOrderID(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	orderID := uuid.New()
	svc := &stubCartService{}
	handler := CheckoutDone(svc, nil)

	body := `{"order_id":"` + orderID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/"+cartID.String()+"/checkout-done", strings.NewReader(body))
	req = withCartParams(withBuyer(req, buyerID), cartID, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastOrderID == nil || *svc.lastOrderID != orderID {
		t.Fatalf("order id not forwarded: %v", svc.lastOrderID)
	}
}

func TestCheckoutDoneEmptyBody(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	svc := &stubCartService{}
	handler := CheckoutDone(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/"+cartID.String()+"/checkout-done", nil)
	req = withCartParams(withBuyer(req, buyerID), cartID, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastOrderID != nil {
		t.Fatalf("expected no order id, got %v", svc.lastOrderID)
	}
}

func TestRemoveItemRejectsGarbageCartID(t *testing.T) {
	buyerID := uuid.New()
	handler := RemoveItem(&stubItemService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/not-a-uuid/items/"+uuid.NewString(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("cartID", "not-a-uuid")
	rctx.URLParams.Add("itemID", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = withBuyer(req, buyerID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
