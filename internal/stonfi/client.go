package stonfi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client wraps the STON.fi HTTP API. Every call is read-only or a dry-run
// simulation; no signed transaction ever leaves this package.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Asset describes a tradable token as reported by the aggregator.
type Asset struct {
	ContractAddress string `json:"contract_address"`
	Symbol          string `json:"symbol"`
	DisplayName     string `json:"display_name"`
	Decimals        int    `json:"decimals"`
	DexPriceUSD     string `json:"dex_price_usd"`
	Balance         string `json:"balance,omitempty"`
}

// SwapParams are the inputs of a swap simulation.
type SwapParams struct {
	FromAsset     string
	ToAsset       string
	Units         string
	WalletAddress string
	Slippage      float64
}

// SwapSimulation is the aggregator's dry-run result.
type SwapSimulation struct {
	ExpectedUnits string `json:"ask_units"`
	MinUnits      string `json:"min_ask_units"`
	SwapRate      string `json:"swap_rate"`
	PriceImpact   string `json:"price_impact"`
	RouterAddress string `json:"router_address"`
}

// Operation is one historical wallet operation.
type Operation struct {
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Symbol    string `json:"symbol"`
	Timestamp string `json:"timestamp"`
}

// GetAsset fetches a single asset, including its USD price.
func (c *Client) GetAsset(ctx context.Context, assetAddress string) (*Asset, error) {
	var payload struct {
		Asset Asset `json:"asset"`
	}
	path := "/v1/assets/" + url.PathEscape(assetAddress)
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Asset, nil
}

// SimulateSwap runs a swap dry-run through the aggregator's router.
func (c *Client) SimulateSwap(ctx context.Context, params SwapParams) (*SwapSimulation, error) {
	q := url.Values{}
	q.Set("offer_address", params.FromAsset)
	q.Set("ask_address", params.ToAsset)
	q.Set("units", params.Units)
	q.Set("slippage_tolerance", fmt.Sprintf("%g", params.Slippage/100))
	if params.WalletAddress != "" {
		q.Set("referral_address", params.WalletAddress)
	}

	endpoint := c.baseURL + "/v1/swap/simulate?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stonfi simulate status %d", resp.StatusCode)
	}
	var sim SwapSimulation
	if err := json.NewDecoder(resp.Body).Decode(&sim); err != nil {
		return nil, err
	}
	return &sim, nil
}

// GetWalletAssets lists the assets held by a wallet.
func (c *Client) GetWalletAssets(ctx context.Context, walletAddress string) ([]Asset, error) {
	var payload struct {
		Assets []Asset `json:"assets"`
	}
	path := "/v1/wallets/" + url.PathEscape(walletAddress) + "/assets"
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Assets, nil
}

// GetSwapPairs lists tradable pair address tuples.
func (c *Client) GetSwapPairs(ctx context.Context) ([][]string, error) {
	var payload struct {
		Pairs [][]string `json:"pairs"`
	}
	if err := c.get(ctx, "/v1/markets", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Pairs, nil
}

// GetWalletOperations returns a wallet's operation history for a window.
func (c *Client) GetWalletOperations(ctx context.Context, walletAddress string, since, until time.Time) ([]Operation, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("until", until.UTC().Format(time.RFC3339))
	var payload struct {
		Operations []Operation `json:"operations"`
	}
	path := "/v1/wallets/" + url.PathEscape(walletAddress) + "/operations"
	if err := c.get(ctx, path, q, &payload); err != nil {
		return nil, err
	}
	return payload.Operations, nil
}

// SearchAssets finds assets by free-text query. walletAddress is optional
// and scopes balances to that wallet.
func (c *Client) SearchAssets(ctx context.Context, query, walletAddress string) ([]Asset, error) {
	q := url.Values{}
	q.Set("search_string", query)
	q.Set("condition", "asset:popular")
	if walletAddress != "" {
		q.Set("wallet_address", walletAddress)
	}
	var payload struct {
		AssetList []Asset `json:"asset_list"`
	}
	if err := c.get(ctx, "/v1/assets/search", q, &payload); err != nil {
		return nil, err
	}
	return payload.AssetList, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("stonfi %s status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
