package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nuscape/windows-agent/internal/agentconfig"
)

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    *int64 `json:"expires_in"`
}

const defaultExpiresInSeconds = 86_400

// tryRefresh attempts a token refresh against baseURL. It reports whether
// the refresh succeeded; on a 401 it clears the token store itself (the
// caller does not need to). Any other failure leaves the store untouched
// and returns false, per spec §4.K.
func (e *Engine) tryRefresh(ctx context.Context, baseURL string) (bool, error) {
	refreshToken, ok := e.tokens.RefreshToken()
	if !ok {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentconfig.RefreshURL(baseURL), bytes.NewReader([]byte("{}")))
	if err != nil {
		return false, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return false, nil // transport error: treated as a non-fatal failed refresh attempt
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		_ = e.tokens.Clear()
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, nil
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.AccessToken == "" {
		return false, nil
	}

	newRefresh := parsed.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	expiresIn := int64(defaultExpiresInSeconds)
	if parsed.ExpiresIn != nil {
		expiresIn = *parsed.ExpiresIn
	}

	if err := e.tokens.Replace(parsed.AccessToken, newRefresh, expiresIn, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("persist refreshed tokens: %w", err)
	}
	return true, nil
}
