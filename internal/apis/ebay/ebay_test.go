package ebay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preisradar/internal/client/transport"
)

func newTestService(t *testing.T, h http.Handler, opts Options) Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tr, err := transport.Build(transport.Options{HTTPClient: srv.Client()})
	require.NoError(t, err)

	opts.BrowseURL = srv.URL
	opts.TokenURL = srv.URL + "/token"
	return New(tr, opts)
}

func TestSearchFilters_Expression(t *testing.T) {
	f := SearchFilters{
		Currency:           "EUR",
		ConditionIDs:       []string{"1000", "1500", "1750"},
		SellerAccountTypes: []string{"BUSINESS"},
		BuyingOptions:      []string{"FIXED_PRICE"},
		CategoryID:         "180349",
		PriceMin:           10,
		PriceMax:           99.5,
		LocationCountries:  []string{"DE"},
	}
	assert.Equal(t,
		"price:[10..99.5],priceCurrency:EUR,conditionIds:{1000|1500|1750},sellerAccountTypes:{BUSINESS},"+
			"buyingOptions:{FIXED_PRICE},itemLocationCountry:DE,categoryIds:180349",
		f.Expression())

	f = SearchFilters{Currency: "EUR", PriceMin: 5, LocationCountries: []string{"DE", "AT"}}
	assert.Equal(t, "price:[5..],priceCurrency:EUR", f.Expression())
}

func TestSearchFilters_AspectExpression(t *testing.T) {
	f := SearchFilters{Aspects: map[string][]string{"Sprache": {"Deutsch"}}}
	assert.Empty(t, f.AspectExpression(), "no category, no aspect filter")

	f.CategoryID = "180349"
	f.Aspects["Marke"] = []string{"Kosmos", "Catan GmbH"}
	f.Aspects["Leer"] = nil
	assert.Equal(t, "categoryId:180349,Marke:{Kosmos|Catan GmbH},Sprache:{Deutsch}", f.AspectExpression())
}

func TestAffiliate(t *testing.T) {
	var none Affiliate
	assert.Equal(t, "https://www.ebay.de/itm/1", none.Tag("https://www.ebay.de/itm/1", "catan"))

	a := Affiliate{CampaignID: "5338", ReferenceID: "preis radar"}
	assert.Equal(t, "preis-radar-catan", a.Reference("catan"))
	assert.Len(t, a.Reference(strings.Repeat("x", 100)), 64)

	wide := Affiliate{CampaignID: "5338", ReferenceID: "preisradar"}.Reference(strings.Repeat("ä", 40))
	assert.True(t, utf8.ValidString(wide))
	assert.Len(t, wide, 63)
	assert.True(t, strings.HasPrefix(wide, "preisradar-ää"))

	tagged := a.Tag("https://www.ebay.de/itm/1?hash=abc", "catan")
	assert.Contains(t, tagged, "campid=5338")
	assert.Contains(t, tagged, "customid=preis-radar-catan")
	assert.Contains(t, tagged, "hash=abc")

	already := "https://www.ebay.de/itm/1?campid=1"
	assert.Equal(t, already, a.Tag(already, "catan"))

	assert.Equal(t,
		"https://www.ebay.de/sch/i.html?_nkw=Catan+Brettspiel&campid=5338&customid=preis-radar-catan",
		a.SearchURL("https://www.ebay.de/sch/i.html", "Catan Brettspiel", "catan"))
}

func TestAuthenticate_NoCredentials(t *testing.T) {
	svc := newTestService(t, http.NotFoundHandler(), Options{})
	_, err := svc.Authenticate(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestAuthenticate_ReusesToken(t *testing.T) {
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":7200}`))
	})
	svc := newTestService(t, h, Options{ClientID: "id", ClientSecret: "secret", Scope: "s"})

	for i := 0; i < 3; i++ {
		tok, err := svc.Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok", tok.AccessToken)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAuthenticate_ExchangeFails(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	svc := newTestService(t, h, Options{ClientID: "id", ClientSecret: "secret"})

	_, err := svc.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token exchange")
}

func TestSearch_SendsAffiliateContext(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EBAY_DE", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))
		assert.Equal(t,
			"contextualLocation=country=DE,affiliateCampaignId=5338,affiliateReferenceId=preisradar-catan",
			r.Header.Get("X-EBAY-C-ENDUSERCTX"))
		assert.Equal(t, "priceCurrency:EUR,categoryIds:180349", r.URL.Query().Get("filter"))
		_, _ = w.Write([]byte(`{"itemSummaries":[{"itemId":"1"}]}`))
	})
	svc := newTestService(t, h, Options{
		Marketplace: "EBAY_DE",
		Country:     "DE",
		Affiliate:   Affiliate{CampaignID: "5338", ReferenceID: "preisradar"},
	})

	items, err := svc.Search(context.Background(), Token{AccessToken: "tok"}, SearchRequest{
		Query:   "catan",
		Filters: SearchFilters{Currency: "EUR", CategoryID: "180349"},
		Limit:   25,
		Slug:    "catan",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
}
