package pairing

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// AirPlayTransport drives the receiver's HTTP pairing endpoints:
// pair-pin-start brings up the PIN screen, pair-setup-pin submits the
// response. The receiver owns the verification outcome.
type AirPlayTransport struct {
	client *http.Client
}

func NewAirPlayTransport() *AirPlayTransport {
	return &AirPlayTransport{client: &http.Client{}}
}

func (t *AirPlayTransport) RequestChallenge(ctx context.Context, address string, port int) error {
	url := fmt.Sprintf("http://%s:%d/pair-pin-start", address, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "AirPlay/320.20")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pair-pin-start returned %s", resp.Status)
	}
	return nil
}

func (t *AirPlayTransport) VerifyPIN(ctx context.Context, address string, port int, pin string) (bool, error) {
	url := fmt.Sprintf("http://%s:%d/pair-setup-pin", address, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(pin))
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", "AirPlay/320.20")
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := t.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	default:
		return false, fmt.Errorf("pair-setup-pin returned %s", resp.Status)
	}
}
