package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	MySQLDSN       string
	RedisURL       string
	JWTSecret      string
	Port           string
	TLSCert        string
	TLSKey         string
	CORSOrigins    []string
	AdminEmail     string
	AdminPassword  string
	AuditInterval  int // tally audit period in minutes, 0 disables
	CodeAttemptMax int // wrong access-code attempts allowed per window
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	audit, _ := strconv.Atoi(getenv("AUDIT_INTERVAL", "60"))
	attempts, _ := strconv.Atoi(getenv("CODE_ATTEMPT_MAX", "10"))
	return Config{
		MySQLDSN:       getenv("MYSQL_DSN", "votesnap:votesnap@tcp(127.0.0.1:3306)/votesnap?parseTime=true"),
		RedisURL:       getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:      getenv("JWT_SECRET", "dev-only-not-a-secret"),
		Port:           getenv("PORT", "5001"),
		TLSCert:        os.Getenv("TLS_CERT"),
		TLSKey:         os.Getenv("TLS_KEY"),
		CORSOrigins:    strings.Split(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"), ","),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AuditInterval:  audit,
		CodeAttemptMax: attempts,
	}
}
