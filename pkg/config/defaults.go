package config

// Rules defaults.
const (
	DefaultRulesFile = ""
	DefaultRulesRaw  = false
)

// Output defaults.
const (
	DefaultOutputFormat = "xml"
	DefaultOutputColor  = false
	DefaultJSONIndent   = "  "
)

// Logging defaults.
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultEnvironment  = ""
	DefaultSampleRatio  = 0.0
)

// Server defaults.
const (
	DefaultServerAddr         = "127.0.0.1:8080"
	DefaultServerMaxBodyBytes = 1 << 20 // 1 MiB.
)

// Cache defaults.
const DefaultCacheMaxBytes = 64 << 20 // 64 MiB.
