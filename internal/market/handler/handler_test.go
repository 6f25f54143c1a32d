package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museion/internal/market/handler"
	"museion/internal/market/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/testutil"
)

// stubService records calls and returns canned results.
type stubService struct {
	listing *models.Listing
	auction *models.Auction
	split   *models.Split
	err     error

	gotTokenID domain.TokenID
	gotCaller  domain.Address
	gotAmount  int64
}

func (s *stubService) List(_ context.Context, tokenID domain.TokenID, price int64, seller domain.Address, _ *time.Time) (*models.Listing, error) {
	s.gotTokenID, s.gotAmount, s.gotCaller = tokenID, price, seller
	return s.listing, s.err
}

func (s *stubService) Buy(_ context.Context, tokenID domain.TokenID, buyer domain.Address, payment int64) (*models.Listing, *models.Split, error) {
	s.gotTokenID, s.gotAmount, s.gotCaller = tokenID, payment, buyer
	return s.listing, s.split, s.err
}

func (s *stubService) Cancel(_ context.Context, tokenID domain.TokenID, caller domain.Address) (*models.Listing, error) {
	s.gotTokenID, s.gotCaller = tokenID, caller
	return s.listing, s.err
}

func (s *stubService) GetListing(_ context.Context, tokenID domain.TokenID) (*models.Listing, error) {
	s.gotTokenID = tokenID
	return s.listing, s.err
}

func (s *stubService) CreateAuction(_ context.Context, tokenID domain.TokenID, seller domain.Address, startPrice int64, _ time.Duration) (*models.Auction, error) {
	s.gotTokenID, s.gotAmount, s.gotCaller = tokenID, startPrice, seller
	return s.auction, s.err
}

func (s *stubService) Bid(_ context.Context, tokenID domain.TokenID, bidder domain.Address, amount int64) (*models.Auction, error) {
	s.gotTokenID, s.gotCaller, s.gotAmount = tokenID, bidder, amount
	return s.auction, s.err
}

func (s *stubService) SettleAuction(_ context.Context, tokenID domain.TokenID) (*models.Auction, *models.Split, error) {
	s.gotTokenID = tokenID
	return s.auction, s.split, s.err
}

func (s *stubService) CancelAuction(_ context.Context, tokenID domain.TokenID, caller domain.Address) (*models.Auction, error) {
	s.gotTokenID, s.gotCaller = tokenID, caller
	return s.auction, s.err
}

func (s *stubService) GetAuction(_ context.Context, tokenID domain.TokenID) (*models.Auction, error) {
	s.gotTokenID = tokenID
	return s.auction, s.err
}

func newRouter(svc handler.Service) chi.Router {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	handler.New(svc, log).Register(r)
	return r
}

func TestHandleList(t *testing.T) {
	stub := &stubService{listing: &models.Listing{ID: 7, TokenID: 3, Price: 500, State: models.ListingActive}}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{"token_id":"3","price":500}`))
	req = testutil.WithCaller(req, "alice:museum")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.TokenID(3), stub.gotTokenID)
	assert.Equal(t, domain.Address("alice:museum"), stub.gotCaller)
	assert.Equal(t, int64(500), stub.gotAmount)
}

func TestHandleList_RequiresAuth(t *testing.T) {
	router := newRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{"token_id":"3","price":500}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestHandleList_RejectsUnknownFields(t *testing.T) {
	router := newRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(`{"token_id":"3","price":500,"bogus":1}`))
	req = testutil.WithCaller(req, "alice:museum")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBuy_ReturnsSplit(t *testing.T) {
	stub := &stubService{
		listing: &models.Listing{ID: 7, TokenID: 3, Price: 1000, State: models.ListingSold},
		split:   &models.Split{Royalty: 100, Fee: 20, Proceeds: 880},
	}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/listings/3/buy", strings.NewReader(`{"payment":1000}`))
	req = testutil.WithCaller(req, "bob:collector")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Listing *models.Listing `json:"listing"`
		Split   *models.Split   `json:"split"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Split)
	assert.Equal(t, int64(100), body.Split.Royalty)
	assert.Equal(t, int64(20), body.Split.Fee)
	assert.Equal(t, int64(880), body.Split.Proceeds)
}

func TestHandleBuy_ErrorMapping(t *testing.T) {
	tests := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeNotActive, http.StatusConflict},
		{dErrors.CodeExpired, http.StatusGone},
		{dErrors.CodeInsufficientPayment, http.StatusPaymentRequired},
		{dErrors.CodeSelfTransfer, http.StatusBadRequest},
		{dErrors.CodeStaleListing, http.StatusConflict},
		{dErrors.CodeSettlementFailed, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			stub := &stubService{err: dErrors.New(tt.code, "nope")}
			router := newRouter(stub)

			req := httptest.NewRequest(http.MethodPost, "/listings/3/buy", strings.NewReader(`{"payment":1000}`))
			req = testutil.WithCaller(req, "bob:collector")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.code), body["error"])
		})
	}
}

func TestHandleCreateAuction(t *testing.T) {
	stub := &stubService{auction: &models.Auction{ID: 1, TokenID: 3, StartPrice: 100, State: models.AuctionActive}}
	router := newRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/auctions",
		strings.NewReader(`{"token_id":"3","start_price":100,"duration_seconds":3600}`))
	req = testutil.WithCaller(req, "alice:museum")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.TokenID(3), stub.gotTokenID)
}

func TestHandleGetListing_InvalidTokenID(t *testing.T) {
	router := newRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/listings/notanumber", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
