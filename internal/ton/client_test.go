package ton

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNanoToTon(t *testing.T) {
	cases := []struct {
		nano string
		want float64
	}{
		{"0", 0},
		{"1000000000", 1},
		{"1500000000", 1.5},
		{"123", 0.000000123},
		{"-2000000000", -2},
	}
	for _, tc := range cases {
		got, err := nanoToTon(tc.nano)
		require.NoError(t, err, tc.nano)
		require.InDelta(t, tc.want, got, 1e-12, tc.nano)
	}

	_, err := nanoToTon("abc")
	require.Error(t, err)
}

func TestGetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getAddressBalance", r.URL.Path)
		require.Equal(t, "EQAddr", r.URL.Query().Get("address"))
		require.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{"ok":true,"result":"2500000000"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL + "/jsonRPC", APIKey: "test-key"})
	bal, err := c.GetBalance(context.Background(), "EQAddr")
	require.NoError(t, err)
	require.InDelta(t, 2.5, bal, 1e-9)
}

func TestGetBalanceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"rate limited"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL})
	_, err := c.GetBalance(context.Background(), "EQAddr")
	require.ErrorContains(t, err, "rate limited")
}

func TestCreateWallet(t *testing.T) {
	c := NewClient(Config{Endpoint: "https://example.invalid"})
	w, err := c.CreateWallet()
	require.NoError(t, err)
	require.Len(t, w.Mnemonic, 24)
	require.NotEmpty(t, w.Address)
	require.True(t, ValidAddress(w.Address))
}
