package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	godotenv.Load()
}

// Config is the environment of the web service.
type Config struct {
	DSN       string // empty means in-memory store
	Secret    string
	GinPort   string
	AdminKey  string
	PublicURL string
	UploadDir string

	PaymentGateway    string // "simulated" or "http"
	PaymentServiceURL string
	PaymentDelay      time.Duration
	PaymentTimeout    time.Duration
	UPIPayee          string
	UPIPayeeName      string

	RedisAddr string
	NATSURL   string

	RateLimit         int // requests per minute per IP
	ReconcileSchedule string
	CodePrefix        string
}

func LoadConfig() Config {
	LoadEnv()
	port := Getenv("GIN_PORT", "8080")
	return Config{
		DSN:               os.Getenv("DB"),
		Secret:            os.Getenv("SECRET"),
		GinPort:           port,
		AdminKey:          os.Getenv("ADMIN_KEY"),
		PublicURL:         Getenv("PUBLIC_URL", "http://localhost:"+port),
		UploadDir:         Getenv("UPLOAD_DIR", "uploads"),
		PaymentGateway:    Getenv("PAYMENT_GATEWAY", "simulated"),
		PaymentServiceURL: os.Getenv("PAYMENT_SERVICE_URL"),
		PaymentDelay:      GetDuration("PAYMENT_DELAY", 2*time.Second),
		PaymentTimeout:    GetDuration("PAYMENT_TIMEOUT", time.Minute),
		UPIPayee:          Getenv("UPI_PAYEE", "referrals@upi"),
		UPIPayeeName:      Getenv("UPI_PAYEE_NAME", "Referral Marketplace"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		NATSURL:           os.Getenv("NATS_URL"),
		RateLimit:         GetInt("RATE_LIMIT", 60),
		ReconcileSchedule: Getenv("RECONCILE_SCHEDULE", "@every 1h"),
		CodePrefix:        Getenv("REFERRAL_CODE_PREFIX", "REFER"),
	}
}

// PaymentConfig is the environment of the payment service.
type PaymentConfig struct {
	DSN      string // PAYMENT_DB; empty means in-memory orders
	Port     string
	Delay    time.Duration
	Interval time.Duration
}

func LoadPaymentConfig() PaymentConfig {
	LoadEnv()
	return PaymentConfig{
		DSN:      os.Getenv("PAYMENT_DB"),
		Port:     Getenv("Payment_Port", "8081"),
		Delay:    GetDuration("PAYMENT_DELAY", 2*time.Second),
		Interval: GetDuration("SETTLE_INTERVAL", time.Second),
	}
}

func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
