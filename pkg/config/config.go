package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Worker      WorkerConfig
	Store       StoreConfig
	Summary     SummaryConfig
	Meeting     MeetingConfig
	Client      ClientConfig
	StoragePath string
}

type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkerConfig describes how to launch the external recognition worker.
// Command is executed through the shell so tests can substitute a stub.
type WorkerConfig struct {
	Command     string
	Device      string
	Model       string
	ComputeType string
}

type StoreConfig struct {
	MaxTranscriptBytes int
	MaxSegments        int
}

type SummaryConfig struct {
	Endpoint    string
	Interval    time.Duration
	Window      int
	MinSegments int
}

type MeetingConfig struct {
	BaseURL string
}

type ClientConfig struct {
	ServerURL        string
	FlushDebounce    time.Duration
	AutosaveInterval time.Duration
}

func Load() *Config {
	// A missing .env file is fine; the defaults below stand.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			Command:     "transcribe-worker",
			Device:      "cpu",
			Model:       "base",
			ComputeType: "int8",
		},
		Store: StoreConfig{
			MaxTranscriptBytes: 4 << 20,
			MaxSegments:        500,
		},
		Summary: SummaryConfig{
			Interval:    60 * time.Second,
			Window:      40,
			MinSegments: 3,
		},
		Client: ClientConfig{
			ServerURL:        "ws://localhost:8080/ws",
			FlushDebounce:    500 * time.Millisecond,
			AutosaveInterval: 30 * time.Second,
		},
		StoragePath: "./data",
	}

	cfg.Server.Address = getEnv("MEETSCRIBE_ADDR", cfg.Server.Address)
	cfg.Worker.Command = getEnv("MEETSCRIBE_WORKER_CMD", cfg.Worker.Command)
	cfg.Worker.Device = getEnv("MEETSCRIBE_WORKER_DEVICE", cfg.Worker.Device)
	cfg.Worker.Model = getEnv("MEETSCRIBE_WORKER_MODEL", cfg.Worker.Model)
	cfg.Worker.ComputeType = getEnv("MEETSCRIBE_WORKER_COMPUTE", cfg.Worker.ComputeType)
	cfg.Summary.Endpoint = getEnv("MEETSCRIBE_SUMMARY_URL", cfg.Summary.Endpoint)
	cfg.Meeting.BaseURL = getEnv("MEETSCRIBE_MEETING_URL", cfg.Meeting.BaseURL)
	cfg.Client.ServerURL = getEnv("MEETSCRIBE_SERVER_URL", cfg.Client.ServerURL)
	cfg.StoragePath = getEnv("MEETSCRIBE_STORAGE_PATH", cfg.StoragePath)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
