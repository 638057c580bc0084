package main

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shellbox-go/shellbox/api"
	"github.com/shellbox-go/shellbox/api/controllers"
	"github.com/shellbox-go/shellbox/server"
	"github.com/shellbox-go/shellbox/tool"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if cfg.UseListenAddr != "" {
		appCfg.ListenAddr = cfg.UseListenAddr
	}
	if cfg.UseRoot != "" {
		appCfg.Root = cfg.UseRoot
	}
	if cfg.UseTransport != "" {
		appCfg.Transport = cfg.UseTransport
	}
	if cfg.UseIdleTimeout > 0 {
		appCfg.IdleTimeoutSecs = cfg.UseIdleTimeout
	}
	if cfg.UseAdmin {
		appCfg.AdminEnabled = true
	}
	if cfg.SkipAdmin {
		appCfg.AdminEnabled = false
	}
	if cfg.UseAdminPort > 0 {
		appCfg.AdminPort = cfg.UseAdminPort
	}

	// initialize logger
	tool.InitLogger()
	if cfg.Log == "" {
		tool.DefaultLogger.SetLevel(log.DebugLevel)
	} else {
		switch strings.ToLower(cfg.Log) {
		case "dev":
			tool.DefaultLogger.SetLevel(log.DebugLevel)
		case "prod":
			tool.DefaultLogger.SetLevel(log.InfoLevel)
		case "none":
			tool.DefaultLogger.SetLevel(log.FatalLevel)
		default:
			tool.DefaultLogger.Warnf("Unknown log mode %q, using debug level", cfg.Log)
			tool.DefaultLogger.SetLevel(log.DebugLevel)
		}
	}

	root, err := filepath.Abs(appCfg.Root)
	if err != nil {
		tool.DefaultLogger.Fatalf("Invalid root %q: %v", appCfg.Root, err)
	}

	if appCfg.AdminEnabled {
		controllers.SetServerInfo(controllers.ServerInfo{
			Transport:  appCfg.Transport,
			ListenAddr: appCfg.ListenAddr,
			Root:       root,
			StartedAt:  time.Now(),
		})
		adminServer := api.NewServer(appCfg.AdminPort)
		go func() {
			if err := adminServer.Start(); err != nil {
				tool.DefaultLogger.Errorf("Admin API startup failed: %v", err)
			}
		}()
	}

	switch appCfg.Transport {
	case "tcp":
		srv := server.NewStreamServer(appCfg.ListenAddr, root)
		if err := srv.ListenAndServe(); err != nil {
			tool.DefaultLogger.Fatalf("Stream server failed: %v", err)
		}
	case "udp":
		store := server.NewStore(root, time.Duration(appCfg.IdleTimeoutSecs)*time.Second)
		if appCfg.AdminEnabled {
			controllers.SetSessionSource(store.Snapshot)
		}
		srv := server.NewDatagramServer(appCfg.ListenAddr, root, store)
		if err := srv.ListenAndServe(); err != nil {
			tool.DefaultLogger.Fatalf("Datagram server failed: %v", err)
		}
	default:
		tool.DefaultLogger.Fatalf("Unknown transport %q, expected tcp or udp", appCfg.Transport)
	}
}
