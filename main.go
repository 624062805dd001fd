package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"

	"autocentral/db"
	qhttp "autocentral/http"
	"autocentral/logging"
	"autocentral/ml"
	"autocentral/monitoring"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Model struct {
		Dir       string `yaml:"dir"`
		Type      string `yaml:"type"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"model"`
	Log logging.Config `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(config.Log)
	defer logging.Sync()

	if err := db.InitDB(config.Database.Path); err != nil {
		logging.L().Fatalw("failed to initialize database", "error", err)
	}
	defer db.Close()
	logging.L().Infow("database initialized", "path", config.Database.Path)

	modelType := config.Model.Type
	if modelType == "" {
		modelType = "random_forest"
	}

	service := ml.NewPriceService(config.Model.CacheSize)
	if bundle, err := ml.LoadBundle(config.Model.Dir, modelType); err != nil {
		// The service stays up and answers 503 until a bundle appears.
		logging.L().Warnw("model bundle not loaded, predictions unavailable until training runs",
			"dir", config.Model.Dir, "error", err)
	} else {
		service.SetBundle(bundle)
		logging.L().Infow("model bundle loaded",
			"dir", config.Model.Dir,
			"brands", bundle.BrandEncoder.Len(),
			"models", bundle.ModelEncoder.Len(),
			"features", len(bundle.FeatureNames))
	}

	watcher, err := watchArtifacts(config.Model.Dir, modelType, service)
	if err != nil {
		logging.L().Warnw("artifact watcher disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	feed := monitoring.NewActivityFeed()
	go feed.Start()
	defer feed.Stop()

	qhttp.SetPriceService(service)
	qhttp.SetActivityFeed(feed)

	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           config.Http.Port,
		AllowedOrigins: config.Http.AllowedOrigins,
	}, feed)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logging.L().Fatalw("HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.L().Info("shutting down")

	if err := server.Stop(); err != nil {
		logging.L().Warnw("server forced to shutdown", "error", err)
	}
}

// watchArtifacts reloads the bundle after the training CLI rewrites it. The
// feature-order file is written last, so its appearance marks a complete set.
func watchArtifacts(dir, modelType string, service *ml.PriceService) (*fsnotify.Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != ml.FeatureNamesFile {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				bundle, err := ml.LoadBundle(dir, modelType)
				if err != nil {
					logging.L().Warnw("bundle reload failed", "error", err)
					continue
				}
				service.SetBundle(bundle)
				logging.L().Infow("model bundle reloaded", "dir", dir)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.L().Warnw("artifact watcher error", "error", err)
			}
		}
	}()
	return watcher, nil
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
