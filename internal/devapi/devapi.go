// Package devapi collects backup manifests from the network device
// management API. The API sits behind an OAuth2 gateway: a
// client-credentials token is fetched per cycle, then the backup
// listing is read with a bearer token.
package devapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bakmon/internal/collector"
)

// Config describes one device API source.
type Config struct {
	BaseURL         string
	TokenEndpoint   string
	BackupsEndpoint string
	Key             string
	Secret          string
	Region          string
	PageSize        int
	Vendor          string
	RequestTimeout  time.Duration
}

// Source polls the device API for one vendor's backup manifests.
type Source struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// NewSource builds a device API source. Region defaults to EMEA and
// page size to 5, matching the upstream API's own defaults.
func NewSource(cfg Config, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Region == "" {
		cfg.Region = "EMEA"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 5
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Vendor returns the vendor this source collects for.
func (s *Source) Vendor() string { return s.cfg.Vendor }

// token fetches an access token with the client-credentials grant,
// authenticating with the API key and secret.
func (s *Source) token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+s.cfg.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.cfg.Key, s.cfg.Secret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("malformed token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}
	return payload.AccessToken, nil
}

// Collect fetches this cycle's backup manifests. Any transport or
// envelope failure is a cycle-level error; the caller retries on the
// next scheduled poll.
func (s *Source) Collect(ctx context.Context) ([]collector.RawManifest, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("vendor", s.cfg.Vendor)
	params.Set("region", s.cfg.Region)
	params.Set("size", strconv.Itoa(s.cfg.PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.BaseURL+s.cfg.BackupsEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backup listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backup listing returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup listing: %w", err)
	}

	var envelope struct {
		Dta struct {
			Manifests []json.RawMessage `json:"manifests"`
		} `json:"dta"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed backup listing response: %w", err)
	}

	manifests := make([]collector.RawManifest, 0, len(envelope.Dta.Manifests))
	for _, doc := range envelope.Dta.Manifests {
		manifests = append(manifests, collector.RawManifest{
			Hostname: peekHostname(doc),
			Body:     doc,
		})
	}
	return manifests, nil
}

// peekHostname extracts the hostname for logging without validating;
// the validator owns the authoritative decode.
func peekHostname(doc json.RawMessage) string {
	var peek struct {
		Hostname string `json:"hostname"`
	}
	if err := json.Unmarshal(doc, &peek); err != nil {
		return ""
	}
	return peek.Hostname
}
