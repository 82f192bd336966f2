package main

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/logtime/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the logtime configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "❌ Configuration validation failed: %v\n", err)
		return err
	}

	var unknownKeys []string
	if configPath != "" {
		unknownKeys, err = findUnknownKeys(configPath)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Warning: Could not check for unknown keys: %v\n", err)
		}
		_, _ = fmt.Fprintf(out, "✅ Configuration is valid: %s\n", configPath)
	} else {
		_, _ = fmt.Fprintln(out, "✅ Configuration is valid (defaults and environment only)")
	}

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		_, _ = fmt.Fprintln(out)
		_, _ = red.Fprintf(out, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(out, "   - %s\n", key)
		}
		_, _ = fmt.Fprintln(out, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(out, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(out, strings.Repeat("=", 80))

		defaults, err := config.Decode(config.New(""))
		if err != nil {
			return fmt.Errorf("failed to build default configuration: %w", err)
		}
		dumpConfig(out, cfg, defaults)

		_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// findUnknownKeys loads the config file and reports keys that have no
// default, since every supported key carries one.
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	valid := make(map[string]bool)
	for _, key := range config.New("").AllKeys() {
		valid[key] = true
	}

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !valid[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(w io.Writer, cfg, defaults *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	section := func(name string) { _, _ = cyan.Fprintf(w, "\n[%s]\n", name) }
	field := func(name string, value, defaultValue interface{}) {
		dumpField(w, name, value, defaultValue, yellow, green)
	}

	section("server")
	field("  bind_address", cfg.Server.BindAddress, defaults.Server.BindAddress)
	field("  http_port", cfg.Server.HTTPPort, defaults.Server.HTTPPort)
	field("  metrics_port", cfg.Server.MetricsPort, defaults.Server.MetricsPort)
	field("  base_url", cfg.Server.BaseURL, defaults.Server.BaseURL)
	field("  read_timeout", cfg.Server.ReadTimeout, defaults.Server.ReadTimeout)
	field("  write_timeout", cfg.Server.WriteTimeout, defaults.Server.WriteTimeout)
	field("  rate_limit", cfg.Server.RateLimit, defaults.Server.RateLimit)
	field("  cors_origins", cfg.Server.CORSOrigins, defaults.Server.CORSOrigins)

	section("intra")
	field("  api_url", cfg.Intra.APIURL, defaults.Intra.APIURL)
	field("  client_id", cfg.Intra.ClientID, defaults.Intra.ClientID)
	field("  client_secret", redactSecret(cfg.Intra.ClientSecret), redactSecret(defaults.Intra.ClientSecret))
	field("  redirect_uri", cfg.Intra.RedirectURI, defaults.Intra.RedirectURI)
	field("  page_size", cfg.Intra.PageSize, defaults.Intra.PageSize)
	field("  timeout", cfg.Intra.Timeout, defaults.Intra.Timeout)

	section("report")
	field("  timezone", cfg.Report.Timezone, defaults.Report.Timezone)
	field("  target_hours", cfg.Report.TargetHours, defaults.Report.TargetHours)

	section("session")
	field("  cookie_name", cfg.Session.CookieName, defaults.Session.CookieName)
	field("  max_age", cfg.Session.MaxAge, defaults.Session.MaxAge)
	field("  secure", cfg.Session.Secure, defaults.Session.Secure)

	section("storage")
	field("  type", cfg.Storage.Type, defaults.Storage.Type)
	field("  max_credentials", cfg.Storage.MaxCredentials, defaults.Storage.MaxCredentials)
	_, _ = cyan.Fprintln(w, "  [storage.redis]")
	field("    host", cfg.Storage.Redis.Host, defaults.Storage.Redis.Host)
	field("    port", cfg.Storage.Redis.Port, defaults.Storage.Redis.Port)
	field("    password", redactSecret(cfg.Storage.Redis.Password), redactSecret(defaults.Storage.Redis.Password))
	field("    db", cfg.Storage.Redis.DB, defaults.Storage.Redis.DB)
	field("    pool_size", cfg.Storage.Redis.PoolSize, defaults.Storage.Redis.PoolSize)
	field("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaults.Storage.Redis.MinIdleConns)
	field("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaults.Storage.Redis.DialTimeout)
	field("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaults.Storage.Redis.ReadTimeout)
	field("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaults.Storage.Redis.WriteTimeout)

	section("logging")
	field("  level", cfg.Logging.Level, defaults.Logging.Level)
	field("  format", cfg.Logging.Format, defaults.Logging.Format)
}

// dumpField prints a field with color if it differs from default
func dumpField(w io.Writer, name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	valueStr := fmt.Sprintf("%v", value)

	if reflect.DeepEqual(value, defaultValue) {
		_, _ = defaultColor.Fprintf(w, "%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Fprintf(w, "%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactSecret redacts a secret if not empty
func redactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "***REDACTED***"
}

