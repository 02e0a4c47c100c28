package params

import "time"

const (
	ServerBodyLimit       = 1048576 // 1 MiB
	ServerIdleTimeout     = 30 * time.Second
	ServerReadTimeout     = 10 * time.Second
	ServerWriteTimeout    = 10 * time.Second
	HealthCheckServerAddr = ":3001"        // health check server address
	AccessTokenExpiration = 24 * time.Hour // jwt access token lifetime
)

const (
	LockoutMaxAttempts     = 5                    // failed logins before the account is locked
	LockoutDuration        = 30 * time.Minute     // how long a lockout lasts
	BruteForceThreshold    = 10                   // failed logins from one ip within BruteForceWindow before alerting
	BruteForceWindow       = 1 * time.Hour        // trailing window for per-ip failure counting
	RecentActivityWindow   = 24 * time.Hour       // window for the "recent" dashboard counters
	EventRetention         = 365 * 24 * time.Hour // security events older than this are purged
	ResolvedAlertRetention = 180 * 24 * time.Hour // resolved alerts are purged this long after resolution
	UnknownIPAddress       = "unknown"
	MaxUserAgentLength     = 512
)

const (
	RateLimitKeyPrefix     = "rl:"           // key prefix for rate limit entries in the shared store
	RateLimitSweepInterval = 5 * time.Minute // interval between sweeps of expired rate limit entries
	RateLimitEntryGrace    = time.Minute     // extra ttl kept on shared rate limit entries past their window
)

const (
	DefaultRetentionSchedule     = "0 3 * * *" // daily at 03:00
	DefaultLogStatsWindowDays    = 30
	MaxLogStatsWindowDays        = 365
	DefaultLogsPageSize          = 50
	MaxLogsPageSize              = 500
	DefaultUnresolvedAlertsLimit = 50
	MaxUnresolvedAlertsLimit     = 500
)

const (
	GeoLookupTimeout     = 5 * time.Second
	GeoRequestsPerMinute = 45 // ip-api.com free tier limit
	DefaultGeoAPIBaseURL = "http://ip-api.com/json"
)
