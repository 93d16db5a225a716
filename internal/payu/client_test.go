package payu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testEnv wires a client against stub token and API servers.
type testEnv struct {
	client   *Client
	grants   *atomic.Int64
	apiCalls *atomic.Int64
}

func newTestEnv(t *testing.T, api http.HandlerFunc) *testEnv {
	t.Helper()

	var grants, apiCalls atomic.Int64

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := grants.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": tokenValue(n),
			"token_type":   "Bearer",
			"expires_in":   int64(3600),
		})
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		api(w, r)
	}))
	t.Cleanup(apiSrv.Close)

	creds := Credentials{ClientID: "id", ClientSecret: "secret", MerchantID: "M123", AuthToken: "direct-token"}
	tokens := NewTokenSource(tokenSrv.Client(), tokenSrv.URL, creds)
	client := NewClient(tokens, creds,
		WithHTTPClient(apiSrv.Client()),
		WithBaseURL(apiSrv.URL),
		WithRetryPolicy(RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}),
	)

	return &testEnv{client: client, grants: &grants, apiCalls: &apiCalls}
}

func tokenValue(n int64) string {
	if n == 1 {
		return "token-one"
	}
	return "token-two"
}

func validLinkRequest() PaymentLinkRequest {
	return PaymentLinkRequest{
		Amount:      1250.50,
		Description: "Annual subscription",
		Customer:    Customer{Name: "Asha", Phone: "+919876543210"},
	}
}

func TestCreatePaymentLinkRoundTripsAmount(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payment-links", r.URL.Path)
		require.Equal(t, "Bearer token-one", r.Header.Get("Authorization"))
		require.Equal(t, "M123", r.Header.Get("mid"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body paymentLinkBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, body.ViaSMS)
		require.False(t, body.ViaEmail)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"link_url": "https://pay.test/l/abc",
			"link_id":  "LNK-1",
			"status":   "active",
			"amount":   body.SubAmount,
		})
	})

	link, err := env.client.CreatePaymentLink(context.Background(), validLinkRequest())
	require.NoError(t, err)
	require.Equal(t, "https://pay.test/l/abc", link.LinkURL)
	require.Equal(t, "LNK-1", link.LinkID)
	require.Equal(t, "active", link.Status)
	require.Equal(t, 1250.50, link.Amount)
}

func TestCreatePaymentLinkValidatesBeforeHTTP(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no HTTP call expected for an invalid request")
	})

	req := validLinkRequest()
	req.Customer = Customer{Name: "Asha"} // no phone, no email

	_, err := env.client.CreatePaymentLink(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, ErrCodeValidation, CodeOf(err))
	require.EqualValues(t, 0, env.apiCalls.Load())
	require.EqualValues(t, 0, env.grants.Load(), "token must not be fetched for an invalid request")
}

func TestUnauthorizedRetriesOnceWithFreshToken(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer token-one" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Transaction{
			TransactionID: "TXN-9", Amount: 100, Status: "captured",
		})
	})

	txn, err := env.client.GetTransaction(context.Background(), "TXN-9")
	require.NoError(t, err)
	require.Equal(t, "TXN-9", txn.TransactionID)
	require.EqualValues(t, 2, env.apiCalls.Load())
	require.EqualValues(t, 2, env.grants.Load(), "expected exactly one re-auth")
}

func TestSecondUnauthorizedSurfacesAuthError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := env.client.GetTransaction(context.Background(), "TXN-9")
	require.Error(t, err)
	require.Equal(t, ErrCodeAuth, CodeOf(err))
	require.EqualValues(t, 2, env.apiCalls.Load(), "no third attempt after a second 401")
}

func TestServerErrorsExhaustRetryBudget(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})

	_, err := env.client.GetTransaction(context.Background(), "TXN-9")
	require.Error(t, err)

	apiErr := AsError(err)
	require.Equal(t, ErrCodeUpstream, apiErr.Code)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.EqualValues(t, 3, env.apiCalls.Load(), "initial attempt plus two retries, then stop")
}

func TestBadRequestIsNotRetried(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad amount"}`, http.StatusBadRequest)
	})

	_, err := env.client.CreatePaymentLink(context.Background(), validLinkRequest())
	require.Error(t, err)
	require.Equal(t, ErrCodeValidation, CodeOf(err))
	require.EqualValues(t, 1, env.apiCalls.Load())
}

func TestGetInvoiceParsesRecord(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payment-links/INV123/txns", r.URL.Path)
		q := r.URL.Query()
		require.NotEmpty(t, q.Get("dateFrom"))
		require.NotEmpty(t, q.Get("dateTo"))
		require.Equal(t, "10", q.Get("pageSize"))
		require.Equal(t, "asc", q.Get("order"))

		w.Write([]byte(`{"invoice_id":"INV123","amount":5000,"status":"PAID","transactions":["TXN1"]}`))
	})

	invoice, err := env.client.GetInvoice(context.Background(), "INV123", InvoiceQuery{})
	require.NoError(t, err)
	require.Equal(t, "INV123", invoice.InvoiceID)
	require.Equal(t, float64(5000), invoice.Amount)
	require.Equal(t, "PAID", invoice.Status)
	require.Equal(t, []TransactionRef{{TransactionID: "TXN1"}}, invoice.Transactions)
}

func TestGetInvoiceExpandedTransactions(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"invoice_id":"INV9","amount":750,"status":"PARTIAL","transactions":[
			{"transaction_id":"TXN7","amount":500,"status":"captured","mode":"UPI"},
			{"transaction_id":"TXN8","amount":250,"status":"pending"}]}`))
	})

	invoice, err := env.client.GetInvoice(context.Background(), "INV9", InvoiceQuery{})
	require.NoError(t, err)
	require.Len(t, invoice.Transactions, 2)
	require.Equal(t, "TXN7", invoice.Transactions[0].TransactionID)
	require.Equal(t, "UPI", invoice.Transactions[0].Mode)
	require.Equal(t, "TXN8", invoice.Transactions[1].TransactionID)
}

func TestMalformedResponseIsUpstreamError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})

	_, err := env.client.GetTransaction(context.Background(), "TXN-9")
	require.Error(t, err)

	apiErr := AsError(err)
	require.Equal(t, ErrCodeUpstream, apiErr.Code)
	require.Contains(t, apiErr.Details["body"], "not json")
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	var grants atomic.Int64
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		grants.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok", "token_type": "Bearer", "expires_in": int64(3600),
		})
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	apiSrv.Close() // connection refused from here on

	creds := Credentials{ClientID: "id", ClientSecret: "secret", MerchantID: "M123"}
	client := NewClient(NewTokenSource(tokenSrv.Client(), tokenSrv.URL, creds), creds,
		WithHTTPClient(&http.Client{Timeout: time.Second}),
		WithBaseURL(apiSrv.URL),
		WithRetryPolicy(RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}),
	)

	_, err := client.GetTransaction(context.Background(), "TXN-9")
	require.Error(t, err)
	require.Equal(t, ErrCodeNetwork, CodeOf(err))
}

func TestDirectTokenEndpoints(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer direct-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/refund/v1/onepayu/search":
			require.Equal(t, "success", r.URL.Query().Get("status"))
			json.NewEncoder(w).Encode(RefundPage{Total: 1, Refunds: []map[string]interface{}{{"id": "R1"}}})
		case "/settlements/details":
			require.Equal(t, "inprogress", r.URL.Query().Get("status"))
			json.NewEncoder(w).Encode(Settlement{SettlementID: "SET1", Status: "inprogress"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	page, err := env.client.SearchRefunds(context.Background(), RefundQuery{
		DateFrom: "2026-08-01", DateTo: "2026-08-30", Status: "success",
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	settlement, err := env.client.GetSettlement(context.Background(), SettlementQuery{SettlementID: "SET1"})
	require.NoError(t, err)
	require.Equal(t, "SET1", settlement.SettlementID)

	require.EqualValues(t, 0, env.grants.Load(), "direct-token calls must not hit the token endpoint")
}

func TestDirectTokenMissingIsAuthError(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no HTTP call expected without a direct token")
	})
	env.client.creds.AuthToken = ""

	_, err := env.client.SearchRefunds(context.Background(), RefundQuery{
		DateFrom: "2026-08-01", DateTo: "2026-08-30",
	})
	require.Error(t, err)
	require.Equal(t, ErrCodeAuth, CodeOf(err))
}
