package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rateTableHTML = `<!DOCTYPE html>
<html><body>
<table class="rate-table">
<thead><tr><th>Code</th><th>Currency</th><th>Cash Buying</th><th>Transfer Buying</th><th>Selling</th></tr></thead>
<tbody>
<tr><td>USD</td><td>US Dollar</td><td>25,100.50</td><td>25,130</td><td>25,480</td></tr>
<tr><td>EUR</td><td>Euro</td><td>-</td><td>27,010</td><td>27,900.25</td></tr>
<tr><td></td><td>spacer row</td><td></td><td></td><td></td></tr>
<tr><td>JPY</td><td>Japanese Yen</td><td>158.3</td></tr>
</tbody>
</table>
</body></html>`

func TestProduceParsesRateTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(rateTableHTML))
	}))
	defer srv.Close()

	c := New([]Source{{Bank: "acb", URL: srv.URL, Table: "table.rate-table"}}, nil)
	obs, err := c.Produce(context.Background())
	require.NoError(t, err)

	// Empty-code and short rows are dropped.
	require.Len(t, obs, 2)

	usd := obs[0]
	if usd.Code != "USD" {
		usd = obs[1]
	}
	assert.Equal(t, "acb", usd.Bank)
	assert.Equal(t, "US Dollar", usd.Name)
	assert.Equal(t, srv.URL, usd.Source)

	v, err := usd.BuyCash.Float()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, 25100.50, *v, 1e-9)

	sell, err := usd.Sell.Float()
	require.NoError(t, err)
	require.NotNil(t, sell)
	assert.InDelta(t, 25480, *sell, 1e-9)
}

func TestProduceNoQuoteSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rateTableHTML))
	}))
	defer srv.Close()

	c := New([]Source{{Bank: "acb", URL: srv.URL, Table: "table.rate-table"}}, nil)
	obs, err := c.Produce(context.Background())
	require.NoError(t, err)

	var found bool
	for _, o := range obs {
		if o.Code != "EUR" {
			continue
		}
		found = true
		v, err := o.BuyCash.Float()
		require.NoError(t, err)
		assert.Nil(t, v, "dash cell must mean no quote")

		sell, err := o.Sell.Float()
		require.NoError(t, err)
		require.NotNil(t, sell)
		assert.InDelta(t, 27900.25, *sell, 1e-9)
	}
	require.True(t, found)
}

func TestProduceCustomColumnsShortRow(t *testing.T) {
	// buy_transfer sits past sell; the truncated JPY row must be dropped,
	// not indexed out of range
	const html = `<table class="rates"><tbody>
<tr><td>USD</td><td>US Dollar</td><td>25,100</td><td>25,480</td><td>25,130</td></tr>
<tr><td>JPY</td><td>Japanese Yen</td><td>158.3</td><td>160.1</td></tr>
</tbody></table>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	defer srv.Close()

	c := New([]Source{{
		Bank:    "acb",
		URL:     srv.URL,
		Table:   "table.rates",
		Columns: Columns{Code: 0, Name: 1, BuyCash: 2, Sell: 3, BuyTransfer: 4},
	}}, nil)
	obs, err := c.Produce(context.Background())
	require.NoError(t, err)

	require.Len(t, obs, 1)
	assert.Equal(t, "USD", obs[0].Code)

	bt, err := obs[0].BuyTransfer.Float()
	require.NoError(t, err)
	require.NotNil(t, bt)
	assert.InDelta(t, 25130, *bt, 1e-9)
}

func TestProduceSkipsFailedSource(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rateTableHTML))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	c := New([]Source{
		{Bank: "acb", URL: good.URL, Table: "table.rate-table"},
		{Bank: "vcb", URL: bad.URL, Table: "table.rate-table"},
	}, nil)
	obs, err := c.Produce(context.Background())
	require.NoError(t, err)
	for _, o := range obs {
		assert.Equal(t, "acb", o.Bank)
	}
	assert.NotEmpty(t, obs)
}

func TestProduceAllSourcesFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	c := New([]Source{{Bank: "vcb", URL: bad.URL, Table: "table"}}, nil)
	_, err := c.Produce(context.Background())
	require.Error(t, err)
}
