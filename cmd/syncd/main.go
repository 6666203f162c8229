package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/archive"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/engine"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/ops"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/source"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/conn"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	envPath := flag.String("env", "", "Optional .env file overlaying secrets")
	flag.Parse()

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			log.Fatalf("env load failed: %v", err)
		}
	} else {
		// best effort; a missing default .env is fine
		_ = godotenv.Load()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if loaded.Profile.Enabled {
		app := loaded.Profile.Application
		if app == "" {
			app = "syncd"
		}
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: app,
			ServerAddress:   loaded.Profile.ServerAddress,
			Tags:            map[string]string{"host": hostname()},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	adapters := make([]source.Adapter, 0, len(loaded.Sources))
	for _, spec := range loaded.Sources {
		adapters = append(adapters, source.NewFeedAdapter(spec.Name, spec.URL, spec.APIKey, nil))
	}

	e, err := engine.New(loaded.Engine, adapters)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}

	var archiver *archive.Archiver
	if loaded.ArchiveEnabled {
		client, err := conn.New(loaded.Archive)
		if err != nil {
			log.Fatalf("postgres connect failed: %v", err)
		}
		defer func() {
			_ = client.Close()
		}()
		archiver, err = archive.New(client, e.Bus())
		if err != nil {
			log.Fatalf("archive init failed: %v", err)
		}
		archiver.Start()
	}

	if err := e.Start(context.Background()); err != nil {
		log.Fatalf("engine start failed: %v", err)
	}

	<-sys.Shutdown()
	logs.Info("shutdown signal received")

	e.Shutdown()
	if archiver != nil {
		archiver.Stop()
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
