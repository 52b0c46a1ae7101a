package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"feed-sync/internal/reconcile"
)

type Config struct {
	// SIS (Jenzabar EX)
	SISDriver    string `validate:"required,oneof=sqlserver postgres sqlite3"`
	SISDSN       string `validate:"required"`
	SISDivisions []string

	// LMS (Canvas)
	CanvasBaseURL    string  `validate:"required,url"`
	CanvasToken      string  `validate:"required"`
	CanvasAccountID  string  `validate:"required"`
	CanvasRatePerSec float64 `validate:"gte=0"`

	// Feed
	OutDir            string `validate:"required"`
	BlueprintCourseID string
	TermsFile         string

	// Observability
	LogLevel        string `validate:"oneof=debug info warn error"`
	LogFormat       string `validate:"oneof=auto console json"`
	MetricsTextfile string

	SFTP SFTP
	S3   S3
}

type SFTP struct {
	Host                  string `validate:"required"`
	Port                  int    `validate:"gt=0,lte=65535"`
	User                  string `validate:"required"`
	Pass                  string `validate:"required"`
	Dir                   string
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
}

type S3 struct {
	Bucket   string `validate:"required"`
	Prefix   string
	Region   string `validate:"required"`
	Endpoint string
	KeyID    string `validate:"required"`
	Secret   string `validate:"required"`
}

var validate = validator.New()

// LoadEnvFile seeds the environment from a .env file. Variables already set win.
// A missing default ".env" is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	blueprint := getenv("FEED_BLUEPRINT_COURSE_ID", reconcile.DefaultBlueprintCourseID)
	if getenvBool("FEED_NO_BLUEPRINT", false) {
		blueprint = ""
	}

	return Config{
		// SIS
		SISDriver:    getenv("SIS_DB_DRIVER", "sqlserver"),
		SISDSN:       os.Getenv("SIS_DB_DSN"),
		SISDivisions: splitCSV(os.Getenv("SIS_DIVISIONS")),

		// LMS
		CanvasBaseURL:    os.Getenv("CANVAS_BASE_URL"),
		CanvasToken:      os.Getenv("CANVAS_TOKEN"),
		CanvasAccountID:  getenv("CANVAS_ACCOUNT_ID", "self"),
		CanvasRatePerSec: getenvFloat("CANVAS_RATE_PER_SEC", 10),

		// Feed
		OutDir:            getenv("FEED_OUT_DIR", "tmp"),
		BlueprintCourseID: blueprint,
		TermsFile:         os.Getenv("FEED_TERMS_FILE"),

		// Observability
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "auto"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		SFTP: SFTP{
			Host:                  os.Getenv("SFTP_HOST"),
			Port:                  getenvInt("SFTP_PORT", 22),
			User:                  os.Getenv("SFTP_USER"),
			Pass:                  os.Getenv("SFTP_PASS"),
			Dir:                   getenv("SFTP_DIR", "/"),
			KnownHostsFile:        os.Getenv("SFTP_KNOWN_HOSTS"),
			InsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", false),
		},
		S3: S3{
			Bucket:   os.Getenv("S3_BUCKET"),
			Prefix:   os.Getenv("S3_PREFIX"),
			Region:   getenv("S3_REGION", "us-east-1"),
			Endpoint: os.Getenv("S3_ENDPOINT"),
			KeyID:    os.Getenv("S3_KEY_ID"),
			Secret:   os.Getenv("S3_SECRET"),
		},
	}
}

// Validate checks the settings every run needs. SFTP and S3 are checked
// separately, only when that delivery is enabled.
func (c Config) Validate() error {
	if err := validate.StructExcept(c, "SFTP", "S3"); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (s SFTP) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("config: sftp: %w", err)
	}
	if s.KnownHostsFile == "" && !s.InsecureIgnoreHostKey {
		return fmt.Errorf("config: sftp: set SFTP_KNOWN_HOSTS or SFTP_INSECURE_IGNORE_HOSTKEY=true")
	}
	return nil
}

func (s S3) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("config: s3: %w", err)
	}
	return nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func getenvFloat(k string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(k)), 64)
	if err != nil {
		return def
	}
	return v
}

func getenvBool(k string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
