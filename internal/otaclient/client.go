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

// Package otaclient wraps an httpclient.HttpClient with OTA backend
// endpoint construction and JSON codecs (C3).
package otaclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
	"github.com/advancedtelematic/ota-agent/internal/httpclient"
)

// Client wraps the authenticated HTTP session with OTA-specific endpoints.
type Client struct {
	http      httpclient.HttpClient
	serverURL string
	vin       string
	extension string
}

// New builds an OTA client. extension is the file suffix (deb/rpm/etc.)
// reported for the downloaded artifact's package manager.
func New(http httpclient.HttpClient, serverURL, vin, extension string) *Client {
	return &Client{
		http:      http,
		serverURL: strings.TrimRight(serverURL, "/"),
		vin:       vin,
		extension: extension,
	}
}

// Extension reports the package manager's expected artifact suffix.
func (c *Client) Extension() string { return c.extension }

func (c *Client) endpoint(sub string) string {
	if sub == "" {
		return fmt.Sprintf("%s/api/v1/vehicle_updates/%s", c.serverURL, c.vin)
	}
	return fmt.Sprintf("%s/api/v1/vehicle_updates/%s/%s", c.serverURL, c.vin, sub)
}

// GetPendingUpdates fetches the current update list.
func (c *Client) GetPendingUpdates(ctx context.Context) ([]datatype.PendingUpdate, error) {
	body, err := c.http.Send(ctx, "GET", c.endpoint(""), nil)
	if err != nil {
		return nil, err
	}
	var updates []datatype.PendingUpdate
	if err := json.Unmarshal(body, &updates); err != nil {
		return nil, datatype.NewError(datatype.ErrorKindDecode, "decoding pending updates", err)
	}
	return updates, nil
}

// DownloadPackage fetches the raw package payload for id. The caller is
// responsible for persisting and verifying it — see
// internal/interpreter, which hands the bytes to internal/transfer as a
// single chunk so the checksum invariant holds regardless of transport
// (see DESIGN.md, "Unifying the whole-file HTTP download with the
// chunked Transfer pipeline").
func (c *Client) DownloadPackage(ctx context.Context, id string) ([]byte, error) {
	return c.http.Send(ctx, "GET", c.endpoint(id+"/download"), nil)
}

// ReportInstalledPackages PUTs the locally installed package list.
func (c *Client) ReportInstalledPackages(ctx context.Context, packages []datatype.Package) error {
	body, err := json.Marshal(packages)
	if err != nil {
		return datatype.NewError(datatype.ErrorKindDecode, "encoding installed packages", err)
	}
	_, err = c.http.Send(ctx, "PUT", c.endpoint("installed"), body)
	return err
}

// SendInstallReport POSTs the outcome of an AcceptUpdate, wrapped with the
// vehicle identifier.
func (c *Client) SendInstallReport(ctx context.Context, report datatype.UpdateReport) error {
	wrapped := datatype.UpdateReportWithVin{VIN: c.vin, Update: report}
	body, err := json.Marshal(wrapped)
	if err != nil {
		return datatype.NewError(datatype.ErrorKindDecode, "encoding install report", err)
	}
	_, err = c.http.Send(ctx, "POST", c.endpoint(report.UpdateID), body)
	return err
}
