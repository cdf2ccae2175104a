package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// TwilioParamsContextKey is the echo context key for validated form params
const TwilioParamsContextKey = "twilioParams"

// validateTwilioSignature verifies the X-Twilio-Signature scheme: the full
// request URL concatenated with the sorted form parameters, HMAC-SHA1 signed
// with the account auth token, base64 encoded.
func validateTwilioSignature(authToken, signature, fullURL string, params map[string]string) bool {
	if authToken == "" || signature == "" {
		return false
	}

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
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// TwilioAuth validates telephony webhook requests using the signature header
// and stores the parsed form parameters in the context.
func TwilioAuth(authToken, publicBaseURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authToken == "" {
				return c.String(http.StatusInternalServerError, "webhook auth token not configured")
			}

			bodyBytes, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to read request body")
			}

			formData, err := url.ParseQuery(string(bodyBytes))
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to parse form data")
			}

			params := make(map[string]string)
			for key, values := range formData {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}

			signature := c.Request().Header.Get("X-Twilio-Signature")
			requestURL := webhookURL(c, publicBaseURL)

			if !validateTwilioSignature(authToken, signature, requestURL, params) {
				return c.String(http.StatusUnauthorized, "Invalid signature")
			}

			c.Set(TwilioParamsContextKey, params)
			return next(c)
		}
	}
}

// TwilioParams retrieves the validated webhook form parameters
func TwilioParams(c echo.Context) map[string]string {
	params, _ := c.Get(TwilioParamsContextKey).(map[string]string)
	return params
}

// webhookURL reconstructs the URL Twilio signed. Behind a proxy the host
// seen locally differs from the public one, so the configured base wins.
func webhookURL(c echo.Context, publicBaseURL string) string {
	if publicBaseURL != "" {
		return strings.TrimSuffix(publicBaseURL, "/") + c.Request().URL.Path
	}
	return fmt.Sprintf("https://%s%s", c.Request().Host, c.Request().URL.Path)
}
