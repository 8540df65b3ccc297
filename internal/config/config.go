// Package config wraps a package-level viper instance, mirroring the
// teacher's common/pkg/config accessor style (GetXxx()/SetValue()) instead of
// threading a config struct through every constructor.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once sync.Once
	v    *viper.Viper
)

func inst() *viper.Viper {
	once.Do(func() {
		v = viper.New()
		v.SetEnvPrefix("IFCHUB")
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		setDefaults(v)
	})
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("jwt.access_token_ttl_seconds", 3600)
	v.SetDefault("oauth.authorization_code_ttl_seconds", 600)
	v.SetDefault("upload.session_ttl_hours", 24)
	v.SetDefault("upload.max_file_size_bytes", int64(500*1024*1024))
	v.SetDefault("pat.max_expiry_days", 365)
	v.SetDefault("ratelimit.reserve.permit_limit", 10)
	v.SetDefault("ratelimit.reserve.window_seconds", 60)
	v.SetDefault("ratelimit.content.permit_limit", 30)
	v.SetDefault("ratelimit.content.window_seconds", 60)
	v.SetDefault("ratelimit.commit.permit_limit", 10)
	v.SetDefault("ratelimit.commit.window_seconds", 60)
	v.SetDefault("queue.capacity", 1024)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("invite.ttl_hours", 168)
}

// SetValue overrides a single key; used by tests and by flag/env plumbing in main.
func SetValue(key string, value interface{}) { inst().Set(key, value) }

func ServerAddr() string { return inst().GetString("server.addr") }

func JWTSigningKey() []byte { return []byte(inst().GetString("jwt.signing_key")) }

func AccessTokenTTL() time.Duration {
	return time.Duration(inst().GetInt64("jwt.access_token_ttl_seconds")) * time.Second
}

func AuthorizationCodeTTL() time.Duration {
	return time.Duration(inst().GetInt64("oauth.authorization_code_ttl_seconds")) * time.Second
}

func UploadSessionTTL() time.Duration {
	return time.Duration(inst().GetInt64("upload.session_ttl_hours")) * time.Hour
}

func MaxUploadSizeBytes() int64 { return inst().GetInt64("upload.max_file_size_bytes") }

func PATMaxExpiryDays() int { return inst().GetInt("pat.max_expiry_days") }

// RateLimitPolicy returns (permitLimit, window) for a named policy
// (UploadReserve, UploadContent, UploadCommit).
func RateLimitPolicy(name string) (int, time.Duration) {
	key := strings.ToLower(strings.TrimPrefix(name, "Upload"))
	limit := inst().GetInt("ratelimit." + key + ".permit_limit")
	window := time.Duration(inst().GetInt64("ratelimit."+key+".window_seconds")) * time.Second
	return limit, window
}

func QueueCapacity() int { return inst().GetInt("queue.capacity") }

func WorkerCount() int { return inst().GetInt("queue.workers") }

func InviteTTL() time.Duration {
	return time.Duration(inst().GetInt64("invite.ttl_hours")) * time.Hour
}

func PostgresDSN() string { return inst().GetString("database.dsn") }

func StorageBucket() string { return inst().GetString("storage.bucket") }

func StorageEndpoint() string { return inst().GetString("storage.endpoint") }

func StorageSupportsDirectUpload() bool { return inst().GetBool("storage.direct_upload") }

func StorageRegion() string          { return inst().GetString("storage.region") }
func StorageAccessKeyID() string     { return inst().GetString("storage.access_key_id") }
func StorageSecretAccessKey() string { return inst().GetString("storage.secret_access_key") }
func StorageUsePathStyle() bool      { return inst().GetBool("storage.use_path_style") }

func SMTPHost() string { return inst().GetString("smtp.host") }
func SMTPPort() int    { return inst().GetInt("smtp.port") }
func SMTPFrom() string { return inst().GetString("smtp.from") }

func OTLPEndpoint() string { return inst().GetString("otel.endpoint") }

// IfcEngineEndpoint points at the external IFC-to-viewer translator service.
// Empty means ifcengine falls back to the local stub (dev/test only).
func IfcEngineEndpoint() string { return inst().GetString("ifcengine.endpoint") }

// IsDBEnabled mirrors the teacher's commonconfig.IsDBEnable() switch between
// a real Postgres-backed store and the in-memory one for local/dev runs.
func IsDBEnabled() bool { return inst().GetString("database.dsn") != "" }
