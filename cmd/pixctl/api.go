package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jwttoken "pixkeys/internal/jwt_token"
	id "pixkeys/pkg/domain"
)

const mintedTokenTTL = 15 * time.Minute

type globalOptions struct {
	server     string
	token      string
	owner      string
	signingKey string
	issuer     string
	audience   string
}

// api is a thin JSON client for the service's HTTP surface.
type api struct {
	baseURL string
	token   string
	http    *http.Client
}

// newAPI resolves credentials. Without --token a short-lived token is minted
// for --owner; unauthenticated calls (callbacks) pass authenticated=false.
func newAPI(opts *globalOptions, authenticated bool) (*api, error) {
	a := &api{
		baseURL: strings.TrimRight(opts.server, "/"),
		token:   opts.token,
		http:    &http.Client{Timeout: 35 * time.Second},
	}
	if !authenticated || a.token != "" {
		return a, nil
	}
	if opts.owner == "" {
		return nil, fmt.Errorf("either --token or --owner is required")
	}
	ownerID, err := id.ParseOwnerID(opts.owner)
	if err != nil {
		return nil, err
	}
	token, err := jwttoken.NewJWTService(opts.signingKey, opts.issuer, opts.audience).
		Issue(ownerID, mintedTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	a.token = token
	return a, nil
}

// apiError is a non-2xx answer from the service.
type apiError struct {
	Status      int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *apiError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Code)
}

// do sends body as JSON and writes the indented response to out.
func (a *api) do(ctx context.Context, method, path string, body any, out io.Writer) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if len(raw) == 0 {
		return nil
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") != nil {
		_, err = out.Write(raw)
		return err
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(out)
	return err
}
