// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the modelgateway server.
// The server aggregates the model catalogs of several image and video generation
// providers behind a single GET /models endpoint.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelgateway/internal/buildinfo"
	"github.com/traylinx/modelgateway/internal/cmd"
	"github.com/traylinx/modelgateway/internal/config"
	"github.com/traylinx/modelgateway/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// checkFilePermissions warns about config files readable by other users; they hold API keys.
func checkFilePermissions(filePath string) error {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if fileInfo.Mode().Perm()&0077 != 0 {
		return fmt.Errorf("file %s has insecure permissions (should be 600 or more restrictive)", filePath)
	}
	return nil
}

func main() {
	var configPath string
	var host string
	var port int
	var openBrowser bool
	var debug bool

	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.StringVar(&host, "host", "", "Override the listen host")
	flag.IntVar(&port, "port", 0, "Override the listen port")
	flag.BoolVar(&openBrowser, "open", false, "Open the model catalog in a browser after start")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")

	flag.CommandLine.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = fmt.Fprintf(out, "Usage of %s\n", os.Args[0])
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			s := fmt.Sprintf("  -%s", f.Name)
			name, unquoteUsage := flag.UnquoteUsage(f)
			if name != "" {
				s += " " + name
			}
			if len(s) <= 4 {
				s += "	"
			} else {
				s += "\n    "
			}
			if unquoteUsage != "" {
				s += unquoteUsage
			}
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
				s += fmt.Sprintf(" (default %s)", f.DefValue)
			}
			_, _ = fmt.Fprint(out, s+"\n")
		})
	}
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	configFilePath := configPath
	optional := false
	if configFilePath == "" {
		configFilePath = filepath.Join(wd, "config.yaml")
		optional = true
	}
	cfg, err := config.LoadConfigOptional(configFilePath, optional)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return
	}
	if _, errStat := os.Stat(configFilePath); errStat != nil {
		log.Infof("No config file at %s; using defaults and environment", configFilePath)
		configFilePath = ""
	} else if errPerm := checkFilePermissions(configFilePath); errPerm != nil {
		log.Warnf("security warning for config file: %v", errPerm)
	}

	if host != "" {
		cfg.Host = host
	}
	if port > 0 {
		cfg.Port = port
	}
	if debug {
		cfg.Debug = true
	}

	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, filepath.Join(wd, "logs")); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return
	}
	logging.SetDebug(cfg.Debug)

	log.Infof("modelgateway Version: %s, Commit: %s, BuiltAt: %s", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	cmd.StartService(cfg, configFilePath, openBrowser)
}
