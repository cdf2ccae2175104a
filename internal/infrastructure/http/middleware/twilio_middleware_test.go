package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func signPayload(authToken, fullURL string, params map[string]string) string {
	data := fullURL
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(t *testing.T, authToken, signature string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+15550001111")

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/voice", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	return req, httptest.NewRecorder()
}

func TestTwilioAuth_ValidSignature(t *testing.T) {
	const authToken = "secret-token"
	params := map[string]string{"CallSid": "CA123", "From": "+15550001111"}
	signature := signPayload(authToken, "https://example.com/v1/webhooks/voice", params)

	e := echo.New()
	req, rec := webhookRequest(t, authToken, signature)
	c := e.NewContext(req, rec)

	called := false
	handler := TwilioAuth(authToken, "https://example.com")(func(c echo.Context) error {
		called = true
		got := TwilioParams(c)
		if got["CallSid"] != "CA123" {
			t.Errorf("params not propagated: %v", got)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !called {
		t.Fatal("expected next handler to run")
	}
}

func TestTwilioAuth_BadSignature(t *testing.T) {
	e := echo.New()
	req, rec := webhookRequest(t, "secret-token", "bogus")
	c := e.NewContext(req, rec)

	called := false
	handler := TwilioAuth("secret-token", "https://example.com")(func(c echo.Context) error {
		called = true
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if called {
		t.Fatal("next handler must not run on a bad signature")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTwilioAuth_MissingSignature(t *testing.T) {
	e := echo.New()
	req, rec := webhookRequest(t, "secret-token", "")
	c := e.NewContext(req, rec)

	handler := TwilioAuth("secret-token", "https://example.com")(func(c echo.Context) error {
		t.Fatal("next handler must not run")
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
