package config

// Settings is the fully-resolved configuration snapshot the pipeline reads.
// Each field corresponds to one recognized configuration key; see registry.go
// for the authoritative key/default/constraint table.
type Settings struct {
	DatabaseURL string

	SourceDir string
	TargetDir string

	ScanIntervalSeconds  int
	ScanExcludeTargetDir bool
	ScanFollowSymlinks   bool
	MinFileSizeMB        int
	VideoExtensions      []string

	EnableLLM  bool
	EnableTMDB bool

	WorkerCount int

	OpenAIAPIKey  string
	OpenAIAPIBase string
	OpenAIModel   string

	TMDBAPIKey      string
	TMDBLanguage    string
	TMDBConcurrency int

	ProducerBatchSize       int
	ProducerIntervalSeconds int

	LogLevel    string
	CORSOrigins []string

	CircuitEnabled bool

	CacheBackend  string
	CacheCapacity int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TracingEnabled  bool
	TracingExporter string
	TracingEndpoint string
}

// defaultSettings returns the built-in defaults; every other source layers
// on top of this snapshot.
func defaultSettings() Settings {
	return Settings{
		DatabaseURL: "clearmedia.db",

		ScanIntervalSeconds:  300,
		ScanExcludeTargetDir: true,
		ScanFollowSymlinks:   false,
		MinFileSizeMB:        10,
		VideoExtensions:      []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v"},

		EnableLLM:  true,
		EnableTMDB: true,

		WorkerCount: 2,

		OpenAIModel: "gpt-4o-mini",

		TMDBLanguage:    "zh-CN",
		TMDBConcurrency: 10,

		ProducerBatchSize:       20,
		ProducerIntervalSeconds: 10,

		LogLevel:    "INFO",
		CORSOrigins: []string{"*"},

		CircuitEnabled: true,

		CacheBackend:  "memory",
		CacheCapacity: 128,
		RedisAddr:     "localhost:6379",
		RedisDB:       0,

		TracingEnabled:  false,
		TracingExporter: "http",
		TracingEndpoint: "localhost:4318",
	}
}
