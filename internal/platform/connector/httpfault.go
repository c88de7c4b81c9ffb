package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/socialpulse/backend/pkg/types"
)

// DoJSON performs an authenticated GET and decodes the JSON body into out,
// classifying failures per the fault model: transport errors and 5xx are
// transient, 401/403 are permanent (token trouble), everything else that is
// not 2xx is permanent, and undecodable bodies are permanent.
func DoJSON(ctx context.Context, client *http.Client, url string, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.WrapFault(types.FaultInternal, "build request", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return types.WrapFault(types.FaultUpstreamTransient, "platform request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return types.NewFault(types.FaultUpstreamPermanent, fmt.Sprintf("platform auth failed (%d): %s", resp.StatusCode, body))
	case resp.StatusCode >= 500:
		return types.Faultf(types.FaultUpstreamTransient, "platform returned %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return types.NewFault(types.FaultUpstreamPermanent, fmt.Sprintf("platform returned %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.WrapFault(types.FaultUpstreamPermanent, "decode platform response", err)
	}
	return nil
}
