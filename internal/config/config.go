package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port         string
	Domain       string // when set, serve HTTPS via autocert
	DatabasePath string
	EventsPath   string
	JWTSecret    string

	// AdminPasswordHash is the bcrypt hash checked at admin login. Empty
	// means the admin surface is locked out entirely.
	AdminPasswordHash string

	// RedisAddr switches the attempt throttle to the redis bucket. Empty
	// keeps the in-process bucket.
	RedisAddr string

	// Attempt throttle, per invite token.
	AttemptRate  float64
	AttemptBurst int

	VAPIDKeys *VAPIDKeys
}

type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Domain:       os.Getenv("DOMAIN"),
		DatabasePath: getEnv("DATABASE_PATH", "puzzle2rsvp.db"),
		EventsPath:   getEnv("EVENTS_PATH", "events.json"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		AttemptRate:  getEnvFloat("ATTEMPT_RATE", 0.5),
		AttemptBurst: getEnvInt("ATTEMPT_BURST", 5),
	}

	cfg.JWTSecret = loadOrGenerateJWTSecret()
	cfg.AdminPasswordHash = loadAdminPasswordHash()
	cfg.VAPIDKeys = loadVAPIDKeys()

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func loadAdminPasswordHash() string {
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		return hash
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			fmt.Printf("Warning: failed to hash ADMIN_PASSWORD: %v\n", err)
			return ""
		}
		return string(hash)
	}
	fmt.Println("Warning: no ADMIN_PASSWORD or ADMIN_PASSWORD_HASH set, admin login is disabled")
	return ""
}

func generateRandomSecret() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return base64.URLEncoding.EncodeToString(bytes)
}

func loadOrGenerateJWTSecret() string {
	// Try environment variable first (highest priority)
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}

	// Try to load from keys directory
	keysDir := getKeysDirectory()
	secretFile := filepath.Join(keysDir, "jwt-secret.key")

	if secretData, err := os.ReadFile(secretFile); err == nil {
		secret := strings.TrimSpace(string(secretData))
		if secret != "" {
			return secret
		}
	}

	// Generate new secret
	secret := generateRandomSecret()

	// Save secret to file
	if err := os.MkdirAll(keysDir, 0700); err == nil {
		if err := os.WriteFile(secretFile, []byte(secret), 0600); err == nil {
			fmt.Printf("JWT secret saved to: %s\n", secretFile)
		} else {
			fmt.Printf("Warning: failed to save JWT secret to disk: %v\n", err)
			fmt.Println("Secret will be regenerated on next restart unless set via JWT_SECRET environment variable")
		}
	}

	return secret
}

func loadVAPIDKeys() *VAPIDKeys {
	subject := getEnv("VAPID_SUBJECT", "mailto:admin@puzzle2rsvp.app")

	// Try environment first (highest priority)
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	privateKey := os.Getenv("VAPID_PRIVATE_KEY")
	if publicKey != "" && privateKey != "" {
		return &VAPIDKeys{
			PublicKey:  publicKey,
			PrivateKey: privateKey,
			Subject:    subject,
		}
	}

	// Try to load from keys directory
	keysDir := getKeysDirectory()
	publicKeyFile := filepath.Join(keysDir, "vapid-public.key")
	privateKeyFile := filepath.Join(keysDir, "vapid-private.key")

	if publicKeyData, err := os.ReadFile(publicKeyFile); err == nil {
		if privateKeyData, err := os.ReadFile(privateKeyFile); err == nil {
			return &VAPIDKeys{
				PublicKey:  strings.TrimSpace(string(publicKeyData)),
				PrivateKey: strings.TrimSpace(string(privateKeyData)),
				Subject:    subject,
			}
		}
	}

	// Generate new VAPID keys
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		panic("failed to generate VAPID keys: " + err.Error())
	}

	if err := os.MkdirAll(keysDir, 0700); err == nil {
		saved := os.WriteFile(publicKeyFile, []byte(publicKey), 0600) == nil &&
			os.WriteFile(privateKeyFile, []byte(privateKey), 0600) == nil
		if saved {
			fmt.Printf("VAPID keys saved to: %s\n", keysDir)
		} else {
			fmt.Println("Warning: failed to save VAPID keys to disk")
			fmt.Println("Keys will be regenerated on next restart unless set via environment variables")
		}
	}

	return &VAPIDKeys{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Subject:    subject,
	}
}

func getKeysDirectory() string {
	// Get directory where the executable is located
	execPath, err := os.Executable()
	if err != nil {
		// Fallback to current directory
		return "keys"
	}
	execDir := filepath.Dir(execPath)
	return filepath.Join(execDir, "keys")
}
