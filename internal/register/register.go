// Package register implements the one-shot device-registration call that
// seeds a fresh token store when the agent has never authenticated.
package register

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/nuscape/windows-agent/internal/agentconfig"
)

const timeout = 30 * time.Second
const defaultExpiresInSeconds = 86_400
const userAgent = "NuScape-Windows-Agent/1.0"

type hardware struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
}

type requestBody struct {
	Platform string   `json:"platform"`
	Name     string   `json:"name"`
	Hardware hardware `json:"hardware"`
}

type responseBody struct {
	DeviceID     string `json:"device_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    *int64 `json:"expires_in"`
}

// TokenSaver is the subset of tokenstore.Store registration needs.
type TokenSaver interface {
	Replace(access, refresh string, expiresInSeconds int64, issuedAt time.Time) error
}

// DeviceSaver is the subset of agentconfig.DeviceStore registration needs.
type DeviceSaver interface {
	Save(id uuid.UUID) error
}

// Register performs the one-shot registration POST described in spec
// §4.L. The caller is responsible for checking TokenStore.HasTokens first
// and for re-attempting on a later scheduling cycle if it returns an
// error -- there is no internal retry.
func Register(ctx context.Context, apiBase, deviceName string, tokens TokenSaver, devices DeviceSaver) error {
	body := requestBody{
		Platform: "windows",
		Name:     deviceName,
		Hardware: hardware{
			Hostname: envOr("COMPUTERNAME", "windows-device"),
			Username: os.Getenv("USERNAME"),
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal register request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentconfig.RegisterURL(apiBase), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("register request: %w", err)
	}
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read register response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("register: server returned %d", resp.StatusCode)
	}

	var parsed responseBody
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("parse register response: %w", err)
	}
	if parsed.AccessToken == "" {
		return fmt.Errorf("register: access_token missing from response")
	}

	expiresIn := int64(defaultExpiresInSeconds)
	if parsed.ExpiresIn != nil {
		expiresIn = *parsed.ExpiresIn
	}
	if err := tokens.Replace(parsed.AccessToken, parsed.RefreshToken, expiresIn, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist registration tokens: %w", err)
	}

	if id, err := uuid.Parse(parsed.DeviceID); err == nil {
		if err := devices.Save(id); err != nil {
			return fmt.Errorf("persist registered device id: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
