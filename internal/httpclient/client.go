/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package httpclient implements the authenticated HTTP session (C2):
// obtaining a bearer token from the auth server and attaching it to
// subsequent requests against the OTA server.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/advancedtelematic/ota-agent/internal/config"
	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

// DefaultTimeout is the per-request timeout (spec.md §5).
const DefaultTimeout = 60 * time.Second

// HttpClient is the capability interface the rest of the core depends on,
// so tests can substitute TestHttpClient without touching net/http.
type HttpClient interface {
	Send(ctx context.Context, method, requestURL string, body []byte) ([]byte, error)
}

// Session is the production HttpClient: authenticate against the auth
// server, then attach the resulting bearer token to every request.
type Session struct {
	authConfig config.AuthConfig
	client     *http.Client
}

// NewSession constructs an unauthenticated Session; call Authenticate
// before Send if the backend requires bearer tokens.
func NewSession(authConfig config.AuthConfig) *Session {
	return &Session{
		authConfig: authConfig,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
}

// Authenticate posts HTTP Basic credentials and
// grant_type=client_credentials to {auth.server}/token and decodes the
// response into an AccessToken. On success, subsequent Send calls attach
// the token as a Bearer header via an oauth2-wrapped client.
func (s *Session) Authenticate(ctx context.Context) (*datatype.AccessToken, error) {
	tokenURL := strings.TrimRight(s.authConfig.ServerURL, "/") + "/token"

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindAuth, "building token request", err)
	}
	req.SetBasicAuth(s.authConfig.ClientID, s.authConfig.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindAuth, "token request failed: "+tokenURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindAuth, "reading token response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, datatype.NewError(datatype.ErrorKindAuth, fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	var token datatype.AccessToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, datatype.NewError(datatype.ErrorKindAuth, "failed to decode JSON", err)
	}
	if token.AccessToken == "" {
		return nil, datatype.NewError(datatype.ErrorKindAuth, "failed to decode JSON", fmt.Errorf("missing access_token field"))
	}

	s.client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	}))
	s.client.Timeout = DefaultTimeout

	return &token, nil
}

// Send executes an authenticated (if a token has been attached) request
// against requestURL, returning the raw response body. Errors carry the
// request URL per spec.md §4.2.
func (s *Session) Send(ctx context.Context, method, requestURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindTransport, "building request: "+requestURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindTransport, "request failed: "+requestURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, datatype.NewError(datatype.ErrorKindTransport, "reading response: "+requestURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, datatype.NewError(datatype.ErrorKindTransport, fmt.Sprintf("non-2xx response %d: %s", resp.StatusCode, requestURL), nil)
	}
	return data, nil
}
