// Package config loads service configuration from environment variables.
//
// Every setting has a default; LoadConfig validates the result.
//
// Server settings:
//
//	WINSMI_HOST="0.0.0.0"
//	WINSMI_PORT="8080"
//	WINSMI_HEALTH_PORT="9090"
//	WINSMI_READ_TIMEOUT="15s"
//	WINSMI_MAX_BODY_BYTES="1048576"
//
// Hawk settings:
//
//	WINSMI_HAWK_CREDENTIALS_FILE="/etc/winsmi/credentials.yaml"
//	WINSMI_HAWK_SKEW="60s"
//	WINSMI_HAWK_IP_CHECK_ENABLED="true"
//	WINSMI_HAWK_IP_ALLOWLIST="10.0.0.0/8,1.2.3.4"
//	WINSMI_HAWK_XFF_DEPTH="2"
//
// Nonce cache settings:
//
//	WINSMI_NONCE_BACKEND="redis"  # redis, memory
//	WINSMI_REDIS_URL="redis://localhost:6379/0"
//
// Database settings:
//
//	WINSMI_POSTGRES_URL="postgres://localhost/export_wins?sslmode=disable"
//
// Partner API settings:
//
//	WINSMI_PUBLIC_URL="https://wins.example.com"
//	WINSMI_ACTIVITY_STREAM_PAGE_SIZE="100"
//	WINSMI_RATE_LIMIT_ENABLED="false"
//	WINSMI_RATE_LIMIT_REQUESTS="600"
//	WINSMI_RATE_LIMIT_WINDOW="1m"
//
// Observability settings:
//
//	WINSMI_LOG_LEVEL="info"
//	WINSMI_AUDIT_LOG_DIR="/var/log/winsmi/audit"
//	WINSMI_OTEL_ENABLED="false"
//	WINSMI_OTEL_ENDPOINT="localhost:4317"
package config
