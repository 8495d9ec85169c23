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

// Package main is the entry point for the OTA update agent.
//
// Agent is a daemon that runs on a vehicle and:
// - Polls and accepts OTA updates from the backend (C3, C7)
// - Verifies and installs downloaded packages (C5)
// - Exposes a websocket surface for external controllers (C8)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/advancedtelematic/ota-agent/internal/autoacceptor"
	"github.com/advancedtelematic/ota-agent/internal/config"
	"github.com/advancedtelematic/ota-agent/internal/datatype"
	"github.com/advancedtelematic/ota-agent/internal/gateway/console"
	"github.com/advancedtelematic/ota-agent/internal/gateway/websocket"
	"github.com/advancedtelematic/ota-agent/internal/httpclient"
	"github.com/advancedtelematic/ota-agent/internal/interpreter"
	"github.com/advancedtelematic/ota-agent/internal/logging"
	"github.com/advancedtelematic/ota-agent/internal/otaclient"
	"github.com/advancedtelematic/ota-agent/internal/packagemanager"
	"github.com/advancedtelematic/ota-agent/internal/poller"
	"github.com/advancedtelematic/ota-agent/internal/pubsub"
)

// Version information, set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const listenAddr = "0.0.0.0:9999"

func main() {
	var configPath string
	var testLooping bool
	var authServer, authClientID, authSecret string
	var otaServer, otaVin, otaPackagesDir, otaPackageManager string

	root := &cobra.Command{
		Use:   "ota-agent",
		Short: "OTA update agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]string{
				"auth-server":         authServer,
				"auth-client-id":      authClientID,
				"auth-secret":         authSecret,
				"ota-server":          otaServer,
				"ota-vin":             otaVin,
				"ota-packages-dir":    otaPackagesDir,
				"ota-package-manager": otaPackageManager,
			}
			return run(configPath, testLooping, overrides)
		},
	}

	flags := root.Flags()
	flags.StringVar(&configPath, "config", "", "config file path (default: $OTA_PLUS_CLIENT_CFG or /opt/ats/ota/etc/ota.toml)")
	flags.StringVar(&authServer, "auth-server", "", "auth server URL")
	flags.StringVar(&authClientID, "auth-client-id", "", "OAuth2 client id")
	flags.StringVar(&authSecret, "auth-secret", "", "OAuth2 client secret")
	flags.StringVar(&otaServer, "ota-server", "", "OTA backend server URL")
	flags.StringVar(&otaVin, "ota-vin", "", "vehicle identification number")
	flags.StringVar(&otaPackagesDir, "ota-packages-dir", "", "directory for chunk staging and assembled packages")
	flags.StringVar(&otaPackageManager, "ota-package-manager", "", "dpkg, rpm, or a path to a test-mode success-flag file")
	flags.BoolVar(&testLooping, "test-looping", false, "also run the console REPL gateway on stdin/stdout")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("ota-agent %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, testLooping bool, overrides map[string]string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyOverrides(overrides)
	if testLooping {
		cfg.Test.Looping = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(logging.DefaultConfig())
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	log.Infow("starting ota-agent", "version", Version, "vin", cfg.Ota.VIN, "otaServer", cfg.Ota.ServerURL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pkgMgr := selectPackageManager(cfg.Ota.PackageManager, cfg.Ota.FileSucceeds)

	session := httpclient.NewSession(cfg.Auth)
	if cfg.Auth.ServerURL != "" {
		if _, err := session.Authenticate(ctx); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
		log.Infow("authenticated against auth server", "server", cfg.Auth.ServerURL)
	}

	ota := otaclient.New(session, cfg.Ota.ServerURL, cfg.Ota.VIN, pkgMgr.Extension())

	commands := make(chan datatype.Command, 64)
	events := make(chan datatype.Event, 64)

	interp := interpreter.New(ota, pkgMgr, afero.NewOsFs(), log, cfg.Ota.PackagesDir)
	go interp.Run(ctx, commands, events)

	registry := pubsub.New(events)
	autoacceptEvents := registry.Subscribe()
	broadcastEvents := registry.Subscribe()
	var consoleEvents <-chan datatype.Event
	if cfg.Test.Looping {
		consoleEvents = registry.Subscribe()
	}
	go registry.Start()

	packageOf := func(requestID string) (datatype.PackageId, bool) { return datatype.PackageId{}, false }
	go autoacceptor.NewDefault().Run(autoacceptEvents, commands, packageOf)

	wsGateway := websocket.New(log, commands)
	go wsGateway.Broadcast(broadcastEvents)

	server := &http.Server{Addr: listenAddr, Handler: wsGateway}
	go func() {
		log.Infow("websocket gateway listening", "addr", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("websocket server failed", "error", err)
		}
	}()

	pollInterval := time.Duration(cfg.Ota.PollingIntervalSec) * time.Second
	go poller.New(pollInterval).Run(ctx, commands)

	if cfg.Test.Looping {
		gw := console.New(os.Stdin, os.Stdout, commands)
		go console.PrintEvents(os.Stdout, consoleEvents)
		go gw.Run()
	}

	commands <- datatype.PostInstalledPackages{}

	<-ctx.Done()
	log.Infow("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	close(commands)
	return nil
}

func selectPackageManager(tag string, fileSucceeds bool) packagemanager.PackageManager {
	switch tag {
	case "dpkg":
		return packagemanager.Dpkg{}
	case "rpm":
		return packagemanager.Rpm{}
	case "":
		return packagemanager.Dpkg{}
	default:
		return packagemanager.File{Filename: tag, Succeeds: fileSucceeds}
	}
}
