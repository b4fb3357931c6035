package ton

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

// Config describes Ton endpoint settings.
type Config struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Client is a thin wrapper over TON Center HTTP APIs plus local wallet
// generation. It is the only component that touches the blockchain.
type Client struct {
	restBase string
	apiKey   string
	http     *http.Client
}

// NewClient constructs a Ton client helper.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	rest := strings.TrimRight(cfg.Endpoint, "/")
	if strings.HasSuffix(strings.ToLower(rest), "/jsonrpc") {
		rest = rest[:len(rest)-len("/jsonRPC")]
	}
	return &Client{
		restBase: strings.TrimRight(rest, "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		http:     httpClient,
	}
}

// NewWallet holds freshly generated wallet credentials. The mnemonic is
// returned exactly once; callers are responsible for encrypting it.
type NewWallet struct {
	Address  string
	Mnemonic []string
}

// CreateWallet generates a 24-word TON mnemonic and derives its V4R2
// address. No network call is involved.
func (c *Client) CreateWallet() (*NewWallet, error) {
	words := wallet.NewSeed()
	priv, err := wallet.SeedToPrivateKey(words, "", false)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	pub := priv.Public().(ed25519.PublicKey)
	addr, err := wallet.AddressFromPubKey(pub, wallet.V4R2, wallet.DefaultSubwallet)
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}
	return &NewWallet{
		Address:  addr.Bounce(false).String(),
		Mnemonic: words,
	}, nil
}

// ValidAddress reports whether s parses as a TON address in either the
// friendly or raw form.
func ValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	if _, err := address.ParseAddr(s); err == nil {
		return true
	}
	if _, err := address.ParseRawAddr(s); err == nil {
		return true
	}
	return false
}

// Ping verifies that the configured endpoint looks sane.
func (c *Client) Ping(ctx context.Context) error {
	if c.restBase == "" {
		return errors.New("ton endpoint is not configured")
	}
	var resp tonTimeResponse
	if err := c.call(ctx, "getServerTime", nil, &resp); err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("ton ping failed: %s", resp.Error)
	}
	return nil
}

// GetBalance fetches the current balance for a wallet address in TON.
func (c *Client) GetBalance(ctx context.Context, addr string) (float64, error) {
	var resp tonBalanceResponse
	if err := c.call(ctx, "getAddressBalance", url.Values{"address": {addr}}, &resp); err != nil {
		return 0, err
	}
	if !resp.Ok {
		return 0, fmt.Errorf("ton balance error: %s", resp.Error)
	}
	ton, err := nanoToTon(strings.TrimSpace(resp.Result))
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", resp.Result, err)
	}
	return ton, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, dest any) error {
	if c.restBase == "" {
		return errors.New("ton endpoint not configured")
	}
	u, err := url.Parse(c.restBase + "/" + method)
	if err != nil {
		return err
	}
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ton request %s failed: status %d body %s", method, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func nanoToTon(nano string) (float64, error) {
	n := new(big.Int)
	if _, ok := n.SetString(nano, 10); !ok {
		return 0, errors.New("not an integer")
	}
	f := new(big.Float).SetInt(n)
	f.Quo(f, big.NewFloat(1_000_000_000))
	out, _ := f.Float64()
	return out, nil
}

type tonBalanceResponse struct {
	Ok     bool   `json:"ok"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

type tonTimeResponse struct {
	Ok     bool   `json:"ok"`
	Result int64  `json:"result"`
	Error  string `json:"error"`
}
