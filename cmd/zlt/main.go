package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/awksedgreep/go-openzl/column"
	"github.com/awksedgreep/go-openzl/frameinfo"
	"github.com/awksedgreep/go-openzl/sddl"
	"github.com/awksedgreep/go-openzl/session"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Config holds the optional defaults read from the yaml config file.
type Config struct {
	Level    int    `yaml:"level"`
	Graph    string `yaml:"graph"`
	LogLevel string `yaml:"log_level"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".zlt.yaml")
		if _, err := os.Stat(path); err != nil {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %v", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}
	return cfg, nil
}

func newLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cfg.LogLevel != "" {
		if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(lvl)
		}
	}
	return log
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zlt",
		Short: "Typed compression frame tool",
		Long: `zlt compresses, decompresses, and inspects typed compression frames,
and compiles format descriptions into attachable compressor graphs.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s, engine: %s)",
			Version, GitCommit, BuildDate, session.Version()),
	}

	cmd.AddCommand(newCompressCommand())
	cmd.AddCommand(newDecompressCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newCompileCommand())

	return cmd
}

func newCompressCommand() *cobra.Command {
	var (
		output     string
		level      int
		graphPath  string
		configPath string
		numeric    int
	)

	cmd := &cobra.Command{
		Use:   "compress [input]",
		Short: "Compress a file into a frame",
		Long: `Compress a file into a single frame. With --numeric the input is encoded
as a typed numeric column of the given element width instead of a plain
serial payload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			if level == 0 {
				level = cfg.Level
			}
			if graphPath == "" {
				graphPath = cfg.Graph
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read input: %v", err)
			}

			sess, err := session.NewCompression(session.WithLogger(log))
			if err != nil {
				return err
			}
			defer sess.Close()

			if level != 0 {
				if err := sess.SetLevel(level); err != nil {
					return err
				}
			}
			if graphPath != "" {
				comp, err := compressorFromSource(graphPath)
				if err != nil {
					return err
				}
				defer comp.Close()
				if err := sess.Attach(comp); err != nil {
					return err
				}
			}

			var frame []byte
			if numeric != 0 {
				frame, err = sess.CompressColumn(column.Numeric{Data: src, Width: numeric})
			} else {
				frame, err = sess.Compress(src)
			}
			if err != nil {
				return err
			}

			if output == "" {
				output = args[0] + ".zl"
			}
			if err := os.WriteFile(output, frame, 0644); err != nil {
				return fmt.Errorf("failed to write frame: %v", err)
			}
			fmt.Printf("%s: %d -> %d bytes\n", output, len(src), len(frame))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: input + .zl)")
	cmd.Flags().IntVarP(&level, "level", "l", 0, "Compression level (1-19)")
	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "Format description source to compile and attach")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: ~/.zlt.yaml)")
	cmd.Flags().IntVar(&numeric, "numeric", 0, "Encode as a numeric column with this element width")

	return cmd
}

func compressorFromSource(path string) (*session.Compressor, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description: %v", err)
	}
	compiled, err := sddl.Compile(string(source))
	if err != nil {
		return nil, err
	}
	return sddl.NewCompressor(compiled)
}

func newDecompressCommand() *cobra.Command {
	var (
		output     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "decompress [frame]",
		Short: "Decompress a frame back into its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			frame, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read frame: %v", err)
			}

			data, err := session.Decompress(frame, session.WithLogger(log))
			if err != nil {
				return err
			}

			if output == "" {
				output = args[0] + ".out"
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write output: %v", err)
			}
			fmt.Printf("%s: %d -> %d bytes\n", output, len(frame), len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: frame + .out)")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: ~/.zlt.yaml)")

	return cmd
}

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [frame]",
		Short: "Print frame metadata without decoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read frame: %v", err)
			}
			info, err := frameinfo.Inspect(frame)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(info)
			if err != nil {
				return fmt.Errorf("failed to render frame info: %v", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
	return cmd
}

func newCompileCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile [source]",
		Short: "Compile a format description into a compressor graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read source: %v", err)
			}
			compiled, err := sddl.Compile(string(source))
			if err != nil {
				return err
			}
			// Validate the compiled description builds before writing it.
			comp, err := sddl.NewCompressor(compiled)
			if err != nil {
				return err
			}
			comp.Close()

			if output == "" {
				output = args[0] + ".zlg"
			}
			if err := os.WriteFile(output, compiled, 0644); err != nil {
				return fmt.Errorf("failed to write compiled description: %v", err)
			}
			fmt.Printf("%s: %d bytes\n", output, len(compiled))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: source + .zlg)")

	return cmd
}
