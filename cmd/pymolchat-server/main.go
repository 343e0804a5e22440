// pymolchat-server - local HTTP backend for the pymolchat client.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jharlan/pymolchat/internal/agent"
	"github.com/jharlan/pymolchat/internal/config"
	"github.com/jharlan/pymolchat/internal/history"
	"github.com/jharlan/pymolchat/internal/llm"
	"github.com/jharlan/pymolchat/internal/server"
)

// shutdownTimeout bounds the graceful drain of in-flight requests.
// Generation can take a while, so this is longer than a typical HTTP
// drain window.
const shutdownTimeout = 30 * time.Second

func main() {
	var (
		host        = flag.String("host", "", "bind address (overrides config)")
		port        = flag.Int("port", 0, "listen port (overrides config)")
		configPath  = flag.String("config", "", "path to config file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pymolchat-server %s\n", server.Version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("CONFIG_LOAD_FAILED | error=%v", err)
	}
	config.SetGlobal(cfg)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	llmClient := llm.NewClient(cfg.LLM.APIKey).
		WithBaseURL(cfg.LLM.BaseURL).
		WithModel(cfg.LLM.Model).
		WithTemperature(cfg.LLM.Temperature).
		WithMaxTokens(cfg.LLM.MaxTokens)

	if !llmClient.IsConfigured() {
		// The server still starts: health and stats work, chat returns a
		// structured failure the client can display.
		log.Printf("LLM_NOT_CONFIGURED | set PYMOLCHAT_API_KEY or llm.api_key")
	} else {
		log.Printf("LLM_READY | model=%s key=%s", llmClient.Model(), llmClient.APIKeyMasked())
	}

	srv := server.NewServer(cfg.ServerAddr(), agent.New(llmClient))

	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = history.DefaultPath()
		}
		store, err := history.Open(path)
		if err != nil {
			// Persistence is a convenience. A broken store must not take
			// the whole backend down with it.
			log.Printf("HISTORY_OPEN_FAILED | path=%s error=%v", path, err)
		} else {
			srv.WithHistoryStore(store)
			log.Printf("HISTORY_READY | path=%s", path)

			if n, err := store.PurgeStale(context.Background(), history.DefaultStaleAge); err != nil {
				log.Printf("HISTORY_PURGE_FAILED | error=%v", err)
			} else if n > 0 {
				log.Printf("HISTORY_PURGED | sessions=%d", n)
			}

			if err := srv.ResumeSession(context.Background()); err != nil {
				log.Printf("SESSION_RESUME_FAILED | error=%v", err)
			}
		}
	}

	if cfg.Server.RateLimit > 0 {
		srv.WithRateLimiter(server.NewRateLimiter(cfg.Server.RateLimit, time.Minute))
	}

	if cfg.Server.AuthToken != "" || len(cfg.Server.AllowedIPs) > 0 {
		srv.WithAuth(&server.AuthConfig{
			Enabled:     true,
			BearerToken: cfg.Server.AuthToken,
			AllowedIPs:  cfg.Server.AllowedIPs,
		})
		log.Printf("AUTH_ENABLED | token_set=%t allowed_ips=%d",
			cfg.Server.AuthToken != "", len(cfg.Server.AllowedIPs))
	}

	if w := startConfigWatcher(*configPath); w != nil {
		defer w.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("SERVER_FAILED | error=%v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SHUTDOWN_ERROR | error=%v", err)
		}
	}
}

// loadConfig loads from an explicit path when given, otherwise from the
// standard locations. A missing config file is not an error; defaults
// apply.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// startConfigWatcher watches the config file for live reload. Reload
// failures keep the previous config; a file that cannot be watched just
// disables hot reload.
func startConfigWatcher(explicitPath string) *config.Watcher {
	path := explicitPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return nil
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	w, err := config.NewWatcher(path, func(cfg *config.Config) {
		config.SetGlobal(cfg)
		log.Printf("CONFIG_RELOADED | path=%s", path)
	})
	if err != nil {
		log.Printf("CONFIG_WATCH_FAILED | error=%v", err)
		return nil
	}
	if err := w.Watch(); err != nil {
		log.Printf("CONFIG_WATCH_FAILED | error=%v", err)
		w.Close()
		return nil
	}
	return w
}
