package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "resume-classifier"
	envPrefix = "RESUME_CLASSIFIER"
)

type Config struct {
	Catalog   *CatalogConfig   `mapstructure:"catalog"`
	Model     *ModelConfig     `mapstructure:"model"`
	Scorer    *ScorerConfig    `mapstructure:"scorer"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
	Feedback  *FeedbackConfig  `mapstructure:"feedback"`
	Archive   *ArchiveConfig   `mapstructure:"archive"`
	Extract   *ExtractConfig   `mapstructure:"extract"`
	Server    *ServerConfig    `mapstructure:"server"`
	Retrain   *RetrainConfig   `mapstructure:"retrain"`
	History   *HistoryConfig   `mapstructure:"history"`
	Log       *LogConfig       `mapstructure:"log"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type ModelConfig struct {
	Path string `mapstructure:"path"`
}

type ScorerConfig struct {
	TopN int `mapstructure:"top-n"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Dimensions int           `mapstructure:"dimensions"`
	CacheTTL   time.Duration `mapstructure:"cache-ttl"`
	Gemini     *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type FeedbackConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	SQLitePath string `mapstructure:"sqlite-path"`
}

type ArchiveConfig struct {
	Dir         string `mapstructure:"dir"`
	SaveUploads bool   `mapstructure:"save-uploads"`
}

type ExtractConfig struct {
	MinLength   int           `mapstructure:"min-length"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxUploadMB int           `mapstructure:"max-upload-mb"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type RetrainConfig struct {
	MaxFeatures int     `mapstructure:"max-features"`
	MaxIter     int     `mapstructure:"max-iter"`
	TestRatio   float64 `mapstructure:"test-ratio"`
	Seed        int64   `mapstructure:"seed"`
	MinMacroF1  float64 `mapstructure:"min-macro-f1"`
	ReloadURL   string  `mapstructure:"reload-url"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-classifier assigns job roles to resumes and learns from reviewer corrections",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT"); err != nil {
		log.Fatalf("binding PORT environment variable: %v", err)
	}
	if err := viper.BindEnv("embedding.gemini.api-key-file", envPrefix+"_EMBEDDING_GEMINI_API_KEY_FILE", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-classifier.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.path", "data/roles.json")
	v.SetDefault("model.path", "model.json")
	v.SetDefault("scorer.top-n", 3)

	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.dimensions", 512)
	v.SetDefault("embedding.cache-ttl", time.Hour)
	v.SetDefault("embedding.gemini.model", "text-embedding-004")
	v.SetDefault("embedding.gemini.max-retries", 3)
	v.SetDefault("embedding.gemini.api-key-file", "")

	v.SetDefault("feedback.backend", "csv")
	v.SetDefault("feedback.path", "corrections_log.csv")
	v.SetDefault("feedback.sqlite-path", "data/feedback.db")

	v.SetDefault("archive.dir", "resumes")
	v.SetDefault("archive.save-uploads", true)

	v.SetDefault("extract.min-length", 100)
	v.SetDefault("extract.timeout", 30*time.Second)
	v.SetDefault("extract.max-upload-mb", 10)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)

	v.SetDefault("retrain.max-features", 5000)
	v.SetDefault("retrain.max-iter", 1000)
	v.SetDefault("retrain.test-ratio", 0.2)
	v.SetDefault("retrain.seed", 42)
	v.SetDefault("retrain.min-macro-f1", 0.0)
	v.SetDefault("retrain.reload-url", "")

	v.SetDefault("history.path", "logs/classification_log.json")

	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 100)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.max-age-days", 28)
	v.SetDefault("log.compress", false)
}

func initConfig() {
	// The version command works without any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

// readConfig loads the config file. Without an explicit --config a missing
// file is fine and defaults apply.
func readConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if file == "" && errors.As(err, &notFound) {
		return nil
	}
	return err
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
