package stonfi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestGetAsset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/assets/EQToken", r.URL.Path)
		w.Write([]byte(`{"asset":{"contract_address":"EQToken","symbol":"TST","display_name":"Test","decimals":9,"dex_price_usd":"1.25"}}`))
	})

	asset, err := c.GetAsset(context.Background(), "EQToken")
	require.NoError(t, err)
	require.Equal(t, "TST", asset.Symbol)
	require.Equal(t, "1.25", asset.DexPriceUSD)
}

func TestSimulateSwap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/swap/simulate", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "EQFrom", q.Get("offer_address"))
		require.Equal(t, "EQTo", q.Get("ask_address"))
		require.Equal(t, "1000000000", q.Get("units"))
		require.Equal(t, "0.01", q.Get("slippage_tolerance"))
		w.Write([]byte(`{"ask_units":"420000000","min_ask_units":"415800000","swap_rate":"0.42","price_impact":"0.003","router_address":"EQRouter"}`))
	})

	sim, err := c.SimulateSwap(context.Background(), SwapParams{
		FromAsset: "EQFrom",
		ToAsset:   "EQTo",
		Units:     "1000000000",
		Slippage:  1,
	})
	require.NoError(t, err)
	require.Equal(t, "420000000", sim.ExpectedUnits)
	require.Equal(t, "EQRouter", sim.RouterAddress)
}

func TestSimulateSwapStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no liquidity", http.StatusUnprocessableEntity)
	})

	_, err := c.SimulateSwap(context.Background(), SwapParams{FromAsset: "a", ToAsset: "b", Units: "1"})
	require.ErrorContains(t, err, "422")
}

func TestSearchAssets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/assets/search", r.URL.Path)
		require.Equal(t, "ton", r.URL.Query().Get("search_string"))
		require.Equal(t, "EQWallet", r.URL.Query().Get("wallet_address"))
		w.Write([]byte(`{"asset_list":[{"contract_address":"EQTon","symbol":"TON","dex_price_usd":"5.01"}]}`))
	})

	assets, err := c.SearchAssets(context.Background(), "ton", "EQWallet")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, "TON", assets[0].Symbol)
}

func TestGetWalletOperationsWindow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.NotEmpty(t, q.Get("since"))
		require.NotEmpty(t, q.Get("until"))
		w.Write([]byte(`{"operations":[{"type":"swap","amount":"1.5","symbol":"TON","timestamp":"2026-08-01T00:00:00Z"}]}`))
	})

	until := time.Now()
	ops, err := c.GetWalletOperations(context.Background(), "EQWallet", until.AddDate(0, 0, -30), until)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, "swap", ops[0].Type)
}
