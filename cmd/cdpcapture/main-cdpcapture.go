// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/webdriverio/cdpcapture"
	"github.com/webdriverio/cdpcapture/pkg/base"
	"github.com/webdriverio/cdpcapture/pkg/cdpconn"
	"github.com/webdriverio/cdpcapture/pkg/config"
	"github.com/webdriverio/cdpcapture/pkg/status"
)

// versionResponse is the /json/version answer of a DevTools http endpoint.
type versionResponse struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// resolveWsURL turns an http debugging endpoint into its websocket address.
func resolveWsURL(endpoint string) (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(endpoint + "/json/version")
	if err != nil {
		return "", fmt.Errorf("cannot query devtools endpoint %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	var version versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", fmt.Errorf("cannot decode /json/version response: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("devtools endpoint %s reports no websocket url", endpoint)
	}
	return version.WebSocketDebuggerURL, nil
}

func runCapture(cmd *cobra.Command, args []string) error {
	endpoint, _ := cmd.Flags().GetString("endpoint")
	wsURL, _ := cmd.Flags().GetString("ws-url")
	logDir, _ := cmd.Flags().GetString("log-dir")
	statusAddr, _ := cmd.Flags().GetString("status-addr")
	instanceLabel, _ := cmd.Flags().GetString("instance")
	contextTimeout, _ := cmd.Flags().GetDuration("context-timeout")

	if wsURL == "" {
		var err error
		wsURL, err = resolveWsURL(endpoint)
		if err != nil {
			return err
		}
	}

	opts, err := config.LoadCaptureOptions()
	if err != nil {
		return err
	}
	if logDir != "" {
		opts.OutputDir = logDir
	}
	if instanceLabel == "" {
		instanceLabel = os.Getenv(base.InstanceLabelEnvName)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.TraceLevel)

	engine, err := cdpcapture.Start(cdpcapture.EngineConfig{
		WSURL:         wsURL,
		ConnOptions:   cdpconn.ConnOptions{ContextTimeout: contextTimeout},
		Options:       opts,
		InstanceLabel: instanceLabel,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer engine.Stop()

	if statusAddr != "" {
		listener, err := status.MakeTCPListener(statusAddr)
		if err != nil {
			return err
		}
		defer listener.Close()
		statusServer := &status.Server{Manager: engine.Manager(), Conn: engine.Conn()}
		go statusServer.RunServer(listener)
	}

	if path := engine.LogPath(); path != "" {
		fmt.Printf("capturing to %s\n", path)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "cdpcapture",
		Short: "Capture console logs from a remotely-debuggable desktop app",
		Long:  `cdpcapture attaches to a DevTools debugging endpoint and captures main-process and renderer console output as leveled log lines.`,
	}

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Attach to a debugging endpoint and capture logs until interrupted",
		RunE:  runCapture,
	}
	captureCmd.Flags().String("endpoint", "http://127.0.0.1:9222", "http devtools endpoint of the debuggee")
	captureCmd.Flags().String("ws-url", "", "devtools websocket url (skips /json/version resolution)")
	captureCmd.Flags().String("log-dir", "", "write a timestamped log file here instead of stdout logging")
	captureCmd.Flags().String("status-addr", "", "serve capture diagnostics on this address")
	captureCmd.Flags().String("instance", "", "instance label for multi-instance runs")
	captureCmd.Flags().Duration("context-timeout", base.DefaultContextTimeout, "bounded wait for the default execution context")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the cdpcapture version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(base.CDPCaptureVersion)
		},
	}

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
