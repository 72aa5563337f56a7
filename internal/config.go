package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"image-verify/internal/imagecmp"
)

type Config struct {
	SimilarityThreshold float64 // percent, 0..100
	MaxFileSize         int64   // bytes
	ResizeWidth         int
	ResizeHeight        int
	MaxImagePixels      int64 // width*height limit checked before decoding
	SupportedFormats    []string

	ReferenceImagePath string        // local reference file
	ReferenceImageKey  string        // S3 key; when set it wins over ReferenceImagePath
	ReferenceCacheTTL  time.Duration // how long an S3 reference stays cached

	ListenAddr    string
	ErrorsLogPath string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	VerificationsPrefix string // S3 prefix for verification records
	VerificationsDB     string // sqlite file; empty disables the table sink

	TelegramToken string
	NotifyChatID  int64

	ReportSchedule  string        // cron spec with seconds
	RecorderTimeout time.Duration // per record call
	RecorderWorkers int
	RecorderQueue   int // records waiting for a worker; extra ones are dropped
}

const (
	defaultThreshold   = 95
	defaultMaxFileMB   = 10
	defaultResize      = 512
	defaultMaxPixels   = 40_000_000
	defaultReference   = "dataset/tumor.jpg"
	defaultReportCron  = "0 0 * * * *"
	defaultListenAddr  = ":8080"
	defaultErrorsLog   = "errors.log"
	defaultVerifPrefix = "verifications/"
)

// DefaultSupportedFormats are the accepted declared upload content types.
var DefaultSupportedFormats = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// DefaultConfig returns the settings used when no environment overrides are present.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: defaultThreshold,
		MaxFileSize:         defaultMaxFileMB * 1024 * 1024,
		ResizeWidth:         defaultResize,
		ResizeHeight:        defaultResize,
		MaxImagePixels:      defaultMaxPixels,
		SupportedFormats:    append([]string(nil), DefaultSupportedFormats...),

		ReferenceImagePath: defaultReference,
		ReferenceCacheTTL:  5 * time.Minute,

		ListenAddr:    defaultListenAddr,
		ErrorsLogPath: defaultErrorsLog,

		VerificationsPrefix: defaultVerifPrefix,

		ReportSchedule:  defaultReportCron,
		RecorderTimeout: 10 * time.Second,
		RecorderWorkers: 4,
		RecorderQueue:   256,
	}
}

func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3Region = os.Getenv("S3_REGION")
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3AccessKey = firstNonEmpty(os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_ACCESS_KEY_ID"))
	cfg.S3SecretKey = firstNonEmpty(os.Getenv("S3_SECRET_ACCESS_KEY"), os.Getenv("S3_SECRET_ACCESS_KEY_ID"))
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.ReferenceImageKey = os.Getenv("REFERENCE_IMAGE_KEY")
	cfg.VerificationsDB = os.Getenv("VERIFICATIONS_DB")

	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.SimilarityThreshold = f
		}
	}

	if v := os.Getenv("MAX_FILE_SIZE_MB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.MaxFileSize = int64(f * 1024 * 1024)
		}
	}

	if v := os.Getenv("RESIZE_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ResizeWidth = n
		}
	}
	if v := os.Getenv("RESIZE_HEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ResizeHeight = n
		}
	}

	if v := os.Getenv("MAX_IMAGE_PIXELS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxImagePixels = n
		}
	}

	if v := os.Getenv("SUPPORTED_FORMATS"); v != "" {
		var formats []string
		for _, f := range strings.Split(v, ",") {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				formats = append(formats, f)
			}
		}
		if len(formats) > 0 {
			cfg.SupportedFormats = formats
		}
	}

	if v := os.Getenv("REFERENCE_IMAGE_PATH"); v != "" {
		cfg.ReferenceImagePath = v
	}
	if v := os.Getenv("REFERENCE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.ReferenceCacheTTL = d
		}
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ERRORS_LOG"); v != "" {
		cfg.ErrorsLogPath = v
	}
	if v := os.Getenv("VERIFICATIONS_PREFIX"); v != "" {
		cfg.VerificationsPrefix = v
	}

	// NOTIFY_CHATID falls back to the POSTS_CHATID name used by older deployments
	if v := firstNonEmpty(os.Getenv("NOTIFY_CHATID"), os.Getenv("POSTS_CHATID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n != 0 {
			cfg.NotifyChatID = n
		}
	}

	if v := os.Getenv("REPORT_SCHEDULE"); v != "" {
		cfg.ReportSchedule = v
	}
	if v := os.Getenv("RECORDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RecorderTimeout = d
		}
	}
	if v := os.Getenv("RECORDER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RecorderWorkers = n
		}
	}
	if v := os.Getenv("RECORDER_QUEUE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RecorderQueue = n
		}
	}

	return cfg, cfg.Validate()
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 100 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within 0..100, got %v", c.SimilarityThreshold)
	}
	if c.MaxFileSize <= 0 {
		return errors.New("MAX_FILE_SIZE_MB must be positive")
	}
	if c.ResizeWidth <= 0 || c.ResizeHeight <= 0 {
		return errors.New("RESIZE_WIDTH and RESIZE_HEIGHT must be positive")
	}
	if c.MaxImagePixels <= 0 {
		return errors.New("MAX_IMAGE_PIXELS must be positive")
	}
	if c.S3Partial() {
		return errors.New("S3_* env vars must be set together")
	}
	if c.ReferenceImageKey != "" && !c.S3Enabled() {
		return errors.New("REFERENCE_IMAGE_KEY requires S3_* env vars")
	}
	return nil
}

// S3Enabled reports whether every S3 setting is present.
func (c Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Region != "" && c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// S3Partial reports whether only some of the S3 settings are present.
func (c Config) S3Partial() bool {
	set := 0
	for _, v := range []string{c.S3Endpoint, c.S3Region, c.S3Bucket, c.S3AccessKey, c.S3SecretKey} {
		if v != "" {
			set++
		}
	}
	return set > 0 && set < 5
}

// TelegramEnabled reports whether verification notifications can be sent.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.NotifyChatID != 0
}

// CompareOptions derives the comparison grid and threshold.
func (c Config) CompareOptions() imagecmp.Options {
	return imagecmp.Options{
		Width:     c.ResizeWidth,
		Height:    c.ResizeHeight,
		Threshold: c.SimilarityThreshold,
		MaxPixels: c.MaxImagePixels,
	}
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
