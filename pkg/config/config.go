package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type HttpConfig struct {
	Port string `mapstructure:"port"`
}

type StorageConfig struct {
	DataDir        string  `mapstructure:"data_dir"`
	GCInterval     int64   `mapstructure:"gc_interval"`
	GCDiscardRatio float64 `mapstructure:"gc_discard_ratio"`
}

type TraceConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	NodeID  int64 `mapstructure:"node_id"`
}

type KernelConfig struct {
	MaxPriorities  uint   `mapstructure:"max_priorities"`
	MaxTaskNameLen int    `mapstructure:"max_task_name_len"`
	TickRateHz     int    `mapstructure:"tick_rate_hz"`
	TimeSlicing    bool   `mapstructure:"time_slicing"`
	IdleTaskName   string `mapstructure:"idle_task_name"`
}

type StatsConfig struct {
	WindowSize int `mapstructure:"window_size"`
}

// TaskConfig describes a simulated task. Kind is one of periodic, producer
// or consumer; producers and consumers name the queue they use.
type TaskConfig struct {
	Name     string `mapstructure:"name"`
	Kind     string `mapstructure:"kind"`
	Priority uint   `mapstructure:"priority"`
	Period   uint32 `mapstructure:"period"`
	Queue    string `mapstructure:"queue"`
	Timeout  uint32 `mapstructure:"timeout"`
}

type QueueConfig struct {
	Name   string `mapstructure:"name"`
	Length uint   `mapstructure:"length"`
}

type SimConfig struct {
	// Ticks stops the simulation after that many ticks. Zero runs until
	// the process is stopped.
	Ticks  uint64        `mapstructure:"ticks"`
	Tasks  []TaskConfig  `mapstructure:"tasks"`
	Queues []QueueConfig `mapstructure:"queues"`
}

type Config struct {
	Profiling  ProfilingConfig
	Prometheus PrometheusConfig
	Logging    LoggingConfig
	Http       HttpConfig
	Storage    StorageConfig
	Trace      TraceConfig
	Kernel     KernelConfig
	Stats      StatsConfig
	Sim        SimConfig
}

func LoadConfig() (*Config, error) {
	var config Config

	// Unmarshal the config into the struct
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %v", err)
	}

	return &config, nil
}

func (c *Config) ConfigureLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	logLevel, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(logLevel)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// BadgerOptions returns the options for a badger database stored in the
// given subdirectory of the data directory.
func (c *Config) BadgerOptions(dir string) badger.Options {
	return badger.DefaultOptions(
		filepath.Join(c.Storage.DataDir, dir),
	).WithLogger(&logger.BadgerLogger{})
}

// TickPeriod is the wall clock duration of one tick.
func (c *Config) TickPeriod() time.Duration {
	if c.Kernel.TickRateHz <= 0 {
		return time.Millisecond
	}
	return time.Second / time.Duration(c.Kernel.TickRateHz)
}

func (c *Config) SchedulerConfig() kernel.Config {
	return kernel.Config{
		MaxPriorities:  c.Kernel.MaxPriorities,
		MaxTaskNameLen: c.Kernel.MaxTaskNameLen,
		TimeSlicing:    c.Kernel.TimeSlicing,
		IdleTaskName:   c.Kernel.IdleTaskName,
	}
}

func InitCobraCommand(runFunc func(cmd *cobra.Command, args []string)) *cobra.Command {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Default config file
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	// Enable environment variable support
	viper.AutomaticEnv()

	// Read the config file if found
	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Msgf("Using config file: %s", viper.ConfigFileUsed())
	}

	defaults := kernel.DefaultConfig()

	var rootCmd = &cobra.Command{
		Use:   "rtos",
		Short: "RTOS is a tick driven preemptive scheduler simulator",
		Run:   runFunc,
	}

	// Command-line flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("logging.level", "info", "Log level")
	rootCmd.PersistentFlags().String("storage.data_dir", "data", "Data directory")
	rootCmd.Flags().Bool("profiling.enabled", false, "Enable profiling")
	rootCmd.Flags().Bool("prometheus.enabled", false, "Enable Prometheus")
	rootCmd.Flags().String("http.port", "8000", "Port to run the HTTP server on")
	rootCmd.Flags().Int64("storage.gc_interval", 300, "Garbage collection interval in seconds")
	rootCmd.Flags().Float64("storage.gc_discard_ratio", 0.7, "Garbage collection discard ratio")
	rootCmd.Flags().Bool("trace.enabled", false, "Persist scheduling trace events")
	rootCmd.Flags().Int64("trace.node_id", 1, "Snowflake node ID used for trace event IDs")
	rootCmd.Flags().Uint("kernel.max_priorities", defaults.MaxPriorities, "Number of task priorities")
	rootCmd.Flags().Int("kernel.max_task_name_len", defaults.MaxTaskNameLen, "Maximum task name length")
	rootCmd.Flags().Int("kernel.tick_rate_hz", 1000, "Tick rate in Hz")
	rootCmd.Flags().Bool("kernel.time_slicing", defaults.TimeSlicing, "Round robin tasks of equal priority on every tick")
	rootCmd.Flags().String("kernel.idle_task_name", defaults.IdleTaskName, "Name of the idle task")
	rootCmd.Flags().Int("stats.window_size", 10, "Window size for scheduler stats in seconds")
	rootCmd.Flags().Uint64("sim.ticks", 0, "Stop after that many ticks, 0 runs forever")

	// Bind CLI flags to Viper settings
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("logging.level"))
	viper.BindPFlag("storage.data_dir", rootCmd.PersistentFlags().Lookup("storage.data_dir"))
	viper.BindPFlag("profiling.enabled", rootCmd.Flags().Lookup("profiling.enabled"))
	viper.BindPFlag("prometheus.enabled", rootCmd.Flags().Lookup("prometheus.enabled"))
	viper.BindPFlag("http.port", rootCmd.Flags().Lookup("http.port"))
	viper.BindPFlag("storage.gc_interval", rootCmd.Flags().Lookup("storage.gc_interval"))
	viper.BindPFlag("storage.gc_discard_ratio", rootCmd.Flags().Lookup("storage.gc_discard_ratio"))
	viper.BindPFlag("trace.enabled", rootCmd.Flags().Lookup("trace.enabled"))
	viper.BindPFlag("trace.node_id", rootCmd.Flags().Lookup("trace.node_id"))
	viper.BindPFlag("kernel.max_priorities", rootCmd.Flags().Lookup("kernel.max_priorities"))
	viper.BindPFlag("kernel.max_task_name_len", rootCmd.Flags().Lookup("kernel.max_task_name_len"))
	viper.BindPFlag("kernel.tick_rate_hz", rootCmd.Flags().Lookup("kernel.tick_rate_hz"))
	viper.BindPFlag("kernel.time_slicing", rootCmd.Flags().Lookup("kernel.time_slicing"))
	viper.BindPFlag("kernel.idle_task_name", rootCmd.Flags().Lookup("kernel.idle_task_name"))
	viper.BindPFlag("stats.window_size", rootCmd.Flags().Lookup("stats.window_size"))
	viper.BindPFlag("sim.ticks", rootCmd.Flags().Lookup("sim.ticks"))

	return rootCmd
}
