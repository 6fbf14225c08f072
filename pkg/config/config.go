package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath         = "storyreel.yaml"
	defaultDBPath             = "./storyreel.db"
	defaultLocalStorageDir    = "./output/audio"
	defaultLLMModel           = "llama-3.3-70b-versatile"
	defaultLLMTemperature     = 0.7
	defaultLLMMaxTokens       = 4096
	defaultModerationBaseURL  = "https://api.openai.com/v1/moderations"
	defaultModerationModel    = "omni-moderation-latest"
	defaultMinWords           = 300
	defaultMaxWords           = 5000
	defaultWordsPerMinute     = 150
	defaultAutoOptimizeLimit  = 3
	defaultQualityTarget      = 75
	defaultStockPerPage       = 15
	defaultStockTopN          = 3
	defaultSynthWorkers       = 5
	defaultSegmentDelayMs     = 500
	defaultAssetCacheTTLDays  = 90
	defaultTTSCacheTTLDays    = 30
	defaultEstimateBitrate    = 128000
	defaultElevenLabsVoice    = "JBFqnCBsd6RMkjVDRZzb"
	defaultElevenLabsModel    = "eleven_flash_v2_5"
	defaultFishAudioModel     = "speech-1.6"
	defaultStability          = 0.5
	defaultSimilarity         = 0.5
	defaultSpeed              = 1.0
	defaultTTSObjectPrefix    = "tts"
	defaultSynthTimeoutSecs   = 30
	defaultSearchTimeoutSecs  = 15
	defaultPlaceholderPalette = "#1E293B,#312E81,#3F3F46,#134E4A,#7C2D12"
)

// VoicePreset names a reusable voice configuration shared by both speech
// providers. ElevenLabsVoiceID and FishAudioVoiceID map the preset onto each
// provider's own voice catalog.
type VoicePreset struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	ElevenLabsVoiceID string  `yaml:"elevenlabs_voice_id"`
	FishAudioVoiceID  string  `yaml:"fishaudio_voice_id"`
	Stability         float64 `yaml:"stability"`
	Similarity        float64 `yaml:"similarity"`
	Speed             float64 `yaml:"speed"`
}

type Config struct {
	GroqAPIKey       string
	ElevenLabsAPIKey string
	FishAudioAPIKey  string
	PexelsAPIKey     string
	PixabayAPIKey    string
	ModerationAPIKey string
	GCSBucket        string
	GCPProject       string
	DBPath           string

	LLM        LLMConfig        `yaml:"llm"`
	Moderation ModerationConfig `yaml:"moderation"`
	Script     ScriptConfig     `yaml:"script"`
	Stock      StockConfig      `yaml:"stock"`
	Speech     SpeechConfig     `yaml:"speech"`
	Storage    StorageConfig    `yaml:"storage"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Cache      CacheConfig      `yaml:"cache"`
}

type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ModerationConfig struct {
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	FailOpen bool   `yaml:"fail_open"`
}

type ScriptConfig struct {
	MinWords             int `yaml:"min_words"`
	MaxWords             int `yaml:"max_words"`
	WordsPerMinute       int `yaml:"words_per_minute"`
	AutoOptimizeAttempts int `yaml:"auto_optimize_attempts"`
	QualityTarget        int `yaml:"quality_target"`
}

type StockConfig struct {
	PerPage            int    `yaml:"per_page"`
	TopN               int    `yaml:"top_n"`
	SearchTimeoutSecs  int    `yaml:"search_timeout_secs"`
	PlaceholderPalette string `yaml:"placeholder_palette"`
}

type SpeechConfig struct {
	ElevenLabsModel  string        `yaml:"elevenlabs_model"`
	FishAudioModel   string        `yaml:"fishaudio_model"`
	Workers          int           `yaml:"workers"`
	EstimateBitrate  int           `yaml:"estimate_bitrate"`
	SynthTimeoutSecs int           `yaml:"synth_timeout_secs"`
	DefaultPreset    string        `yaml:"default_preset"`
	Presets          []VoicePreset `yaml:"presets"`
}

type StorageConfig struct {
	Backend      string `yaml:"backend"` // "gcs" or "local"
	LocalDir     string `yaml:"local_dir"`
	ObjectPrefix string `yaml:"object_prefix"`
}

type PipelineConfig struct {
	SegmentDelayMs int `yaml:"segment_delay_ms"`
}

type CacheConfig struct {
	AssetTTLDays int `yaml:"asset_ttl_days"`
	TTSTTLDays   int `yaml:"tts_ttl_days"`
}

// Load reads .env, environment variables, and the optional YAML file, then
// resolves sm:// secret references and fills defaults. The context bounds
// Secret Manager calls.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		FishAudioAPIKey:  os.Getenv("FISHAUDIO_API_KEY"),
		PexelsAPIKey:     os.Getenv("PEXELS_API_KEY"),
		PixabayAPIKey:    os.Getenv("PIXABAY_API_KEY"),
		ModerationAPIKey: os.Getenv("MODERATION_API_KEY"),
		GCSBucket:        os.Getenv("GCS_BUCKET"),
		GCPProject:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
		DBPath:           getEnvOrDefault("STORYREEL_DB", defaultDBPath),
	}

	loadYAMLConfig(cfg)

	if err := resolveSecrets(ctx, cfg); err != nil {
		return nil, fmt.Errorf("resolve secrets: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

func loadYAMLConfig(cfg *Config) {
	path := getEnvOrDefault("STORYREEL_CONFIG", defaultConfigPath)
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("no YAML config found, using defaults", "path", path)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("failed to parse YAML config", "path", path, "error", err)
	}
}

// resolveSecrets replaces sm://NAME credential values with the latest secret
// version from GCP Secret Manager. The client is only dialed when at least
// one reference is present.
func resolveSecrets(ctx context.Context, cfg *Config) error {
	refs := []*string{
		&cfg.GroqAPIKey,
		&cfg.ElevenLabsAPIKey,
		&cfg.FishAudioAPIKey,
		&cfg.PexelsAPIKey,
		&cfg.PixabayAPIKey,
		&cfg.ModerationAPIKey,
	}

	var pending []*string
	for _, ref := range refs {
		if strings.HasPrefix(*ref, "sm://") {
			pending = append(pending, ref)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if cfg.GCPProject == "" {
		return fmt.Errorf("sm:// references require GOOGLE_CLOUD_PROJECT")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	for _, ref := range pending {
		name := strings.TrimPrefix(*ref, "sm://")
		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.GCPProject, name),
		})
		if err != nil {
			return fmt.Errorf("access secret %s: %w", name, err)
		}
		*ref = string(resp.Payload.Data)
	}

	return nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applyModerationDefaults(cfg)
	applyScriptDefaults(cfg)
	applyStockDefaults(cfg)
	applySpeechDefaults(cfg)
	applyStorageDefaults(cfg)
	applyPipelineDefaults(cfg)
	applyCacheDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultLLMModel
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = defaultLLMTemperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = defaultLLMMaxTokens
	}
}

func applyModerationDefaults(cfg *Config) {
	if cfg.Moderation.BaseURL == "" {
		cfg.Moderation.BaseURL = defaultModerationBaseURL
	}
	if cfg.Moderation.Model == "" {
		cfg.Moderation.Model = defaultModerationModel
	}
}

func applyScriptDefaults(cfg *Config) {
	if cfg.Script.MinWords == 0 {
		cfg.Script.MinWords = defaultMinWords
	}
	if cfg.Script.MaxWords == 0 {
		cfg.Script.MaxWords = defaultMaxWords
	}
	if cfg.Script.WordsPerMinute == 0 {
		cfg.Script.WordsPerMinute = defaultWordsPerMinute
	}
	if cfg.Script.AutoOptimizeAttempts == 0 {
		cfg.Script.AutoOptimizeAttempts = defaultAutoOptimizeLimit
	}
	if cfg.Script.QualityTarget == 0 {
		cfg.Script.QualityTarget = defaultQualityTarget
	}
}

func applyStockDefaults(cfg *Config) {
	if cfg.Stock.PerPage == 0 {
		cfg.Stock.PerPage = defaultStockPerPage
	}
	if cfg.Stock.TopN == 0 {
		cfg.Stock.TopN = defaultStockTopN
	}
	if cfg.Stock.SearchTimeoutSecs == 0 {
		cfg.Stock.SearchTimeoutSecs = defaultSearchTimeoutSecs
	}
	if cfg.Stock.PlaceholderPalette == "" {
		cfg.Stock.PlaceholderPalette = defaultPlaceholderPalette
	}
}

func applySpeechDefaults(cfg *Config) {
	if cfg.Speech.ElevenLabsModel == "" {
		cfg.Speech.ElevenLabsModel = defaultElevenLabsModel
	}
	if cfg.Speech.FishAudioModel == "" {
		cfg.Speech.FishAudioModel = defaultFishAudioModel
	}
	if cfg.Speech.Workers == 0 {
		cfg.Speech.Workers = defaultSynthWorkers
	}
	if cfg.Speech.EstimateBitrate == 0 {
		cfg.Speech.EstimateBitrate = defaultEstimateBitrate
	}
	if cfg.Speech.SynthTimeoutSecs == 0 {
		cfg.Speech.SynthTimeoutSecs = defaultSynthTimeoutSecs
	}
	if len(cfg.Speech.Presets) == 0 {
		cfg.Speech.Presets = []VoicePreset{{
			ID:                "narrator",
			Name:              "Narrator",
			ElevenLabsVoiceID: defaultElevenLabsVoice,
			Stability:         defaultStability,
			Similarity:        defaultSimilarity,
			Speed:             defaultSpeed,
		}}
	}
	if cfg.Speech.DefaultPreset == "" {
		cfg.Speech.DefaultPreset = cfg.Speech.Presets[0].ID
	}
	for i := range cfg.Speech.Presets {
		p := &cfg.Speech.Presets[i]
		if p.Stability == 0 {
			p.Stability = defaultStability
		}
		if p.Similarity == 0 {
			p.Similarity = defaultSimilarity
		}
		if p.Speed == 0 {
			p.Speed = defaultSpeed
		}
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		if cfg.GCSBucket != "" {
			cfg.Storage.Backend = "gcs"
		} else {
			cfg.Storage.Backend = "local"
		}
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = defaultLocalStorageDir
	}
	if cfg.Storage.ObjectPrefix == "" {
		cfg.Storage.ObjectPrefix = defaultTTSObjectPrefix
	}
}

func applyPipelineDefaults(cfg *Config) {
	if cfg.Pipeline.SegmentDelayMs == 0 {
		cfg.Pipeline.SegmentDelayMs = defaultSegmentDelayMs
	}
}

func applyCacheDefaults(cfg *Config) {
	if cfg.Cache.AssetTTLDays == 0 {
		cfg.Cache.AssetTTLDays = defaultAssetCacheTTLDays
	}
	if cfg.Cache.TTSTTLDays == 0 {
		cfg.Cache.TTSTTLDays = defaultTTSCacheTTLDays
	}
}

// Preset returns the voice preset with the given id, or the default preset
// when id is empty.
func (c *Config) Preset(id string) (VoicePreset, error) {
	if id == "" {
		id = c.Speech.DefaultPreset
	}
	for _, p := range c.Speech.Presets {
		if p.ID == id {
			return p, nil
		}
	}
	return VoicePreset{}, fmt.Errorf("unknown voice preset %q", id)
}

// Validate checks that the credentials required for pipeline runs are set.
// Storage and speech keys are checked lazily by the commands that need them.
func (c *Config) Validate() error {
	var missing []string
	if c.GroqAPIKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if c.PexelsAPIKey == "" && c.PixabayAPIKey == "" {
		missing = append(missing, "PEXELS_API_KEY or PIXABAY_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
