package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/utils"
)

type Config struct {
	ListenAddr      string        // ex: "127.0.0.1:8787"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout of the local API

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Session
	PollInterval time.Duration // session re-validation interval (default: 2s)
	TokenFile    string        // shared token file of the profile
	JWTSecret    string        // HS256 signing secret
	TokenExpiry  time.Duration // session lifetime (default: 720h)
	TokenIssuer  string

	GCInterval time.Duration // index sweep interval (default: 10m)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Local API access
	AllowedHosts      []string // Host headers accepted by the local API
	AllowedCIDRS      []string // client IPs accepted by the local API
	TrustProxy        bool     // true => trust X-Forwarded-For headers
	WriteBurst        int      // write requests allowed in a burst, per client
	WriteRefillPerMin int      // write tokens refilled per minute, per client
}

func Load() *Config {
	listenAddr := getenv("MARKSYNC_LISTEN_ADDR", "127.0.0.1:8787")

	cfg := &Config{
		// Server settings
		ListenAddr:      listenAddr,
		ShutdownTimeout: mustDuration("MARKSYNC_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("MARKSYNC_REQUEST_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("MARKSYNC_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKSYNC_PRETTY_LOG", true),

		// Session settings
		PollInterval: mustDuration("MARKSYNC_POLL_INTERVAL", 2*time.Second),
		TokenFile:    getenv("MARKSYNC_TOKEN_FILE", defaultTokenFile()),
		JWTSecret:    requireEnv("MARKSYNC_JWT_SECRET"),
		TokenExpiry:  mustDuration("MARKSYNC_TOKEN_EXPIRY", 30*24*time.Hour),
		TokenIssuer:  getenv("MARKSYNC_TOKEN_ISSUER", "marksync"),
		GCInterval:   mustDuration("MARKSYNC_GC_INTERVAL", 10*time.Minute),

		// Redis settings
		RedisAddr:             requireEnv("MARKSYNC_REDIS_ADDR"),
		RedisUser:             getenv("MARKSYNC_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("MARKSYNC_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("MARKSYNC_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("MARKSYNC_REDIS_DB", 0),
		RedisDT:               mustDuration("MARKSYNC_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("MARKSYNC_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("MARKSYNC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("MARKSYNC_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("MARKSYNC_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("MARKSYNC_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("MARKSYNC_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("MARKSYNC_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("MARKSYNC_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:      parseList(getenv("MARKSYNC_ALLOWED_HOSTS", ""), defaultHosts(listenAddr)),
		AllowedCIDRS:      parseList(getenv("MARKSYNC_ALLOWED_CIDRS", ""), utils.LoopbackCIDRs),
		TrustProxy:        mustBool("MARKSYNC_TRUST_PROXY", false),
		WriteBurst:        getenvInt("MARKSYNC_WRITE_BURST", 30),
		WriteRefillPerMin: getenvInt("MARKSYNC_WRITE_REFILL_PER_MIN", 120),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: MARKSYNC_REDIS_PASSWORD is required when MARKSYNC_REDIS_PASSWORD_REQUIRED=true")
	}
	if cfg.PollInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: MARKSYNC_POLL_INTERVAL must be > 0, got %v", cfg.PollInterval))
	}
	if _, err := utils.ParseCIDRSet(cfg.AllowedCIDRS); err != nil {
		panic(fmt.Sprintf("❌ FATAL: MARKSYNC_ALLOWED_CIDRS: %v", err))
	}
	if cfg.TokenExpiry <= 0 {
		panic(fmt.Sprintf("❌ FATAL: MARKSYNC_TOKEN_EXPIRY must be > 0, got %v", cfg.TokenExpiry))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.JWTSecret = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// defaultTokenFile returns <user config dir>/marksync/token, falling back to
// the working directory when the platform has no config dir.
func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".marksync", "token")
	}
	return filepath.Join(dir, "marksync", "token")
}

// defaultHosts derives the accepted Host headers from the listen address.
// Examples: "127.0.0.1:8787" -> ["127.0.0.1:8787", "localhost:8787"]
//
//	":8787" -> ["localhost:8787", "127.0.0.1:8787"]
func defaultHosts(listenAddr string) []string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return []string{listenAddr}
	}

	hosts := []string{}
	seen := make(map[string]bool)
	add := func(h string) {
		hp := net.JoinHostPort(h, port)
		if !seen[hp] {
			hosts = append(hosts, hp)
			seen[hp] = true
		}
	}

	switch host {
	case "", "0.0.0.0", "::":
		add("localhost")
		add("127.0.0.1")
	case "localhost":
		add("localhost")
		add("127.0.0.1")
	default:
		add(host)
		if host == "127.0.0.1" || host == "::1" {
			add("localhost")
		}
	}
	return hosts
}

func parseList(raw string, def []string) []string {
	if parts := splitAndTrim(raw); len(parts) > 0 {
		return parts
	}
	return slices.Clone(def)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
