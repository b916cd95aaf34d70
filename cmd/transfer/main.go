// Command transfer uploads a file to a platform endpoint from the terminal.
//
// The file is registered as a component, transferred over one or more
// pre-signed URL connections depending on its size, and committed with a
// location record. Interrupting the command aborts the session and deletes
// the component it registered.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meridianworks/transfer"
	"github.com/meridianworks/transfer/rpc"
	"github.com/meridianworks/transfer/transfertypes"
)

var exampleUsage = strings.TrimSpace(`
  transfer --endpoint https://platform.example.com/api --auth-key <api-key> ./render.exr
  transfer --endpoint https://platform.example.com/api --auth-key <api-key> --concurrency 4 ./archive.tar
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

type cliConfig struct {
	endpoint    string
	authKey     string
	componentID string
	contentType string
	concurrency int
	chunkSize   int64
	timeout     time.Duration
	verbose     bool
}

func main() {
	var cfg cliConfig

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:     "transfer <file>",
		Short:   "Upload a file to a platform endpoint over pre-signed URLs",
		Example: exampleUsage,
		Args:    cobra.ExactArgs(1),
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.endpoint == "" {
				return fmt.Errorf("--endpoint is required")
			}
			if cfg.verbose {
				log = log.Level(zerolog.DebugLevel)
			}

			caller := rpc.NewBatchClient(cfg.endpoint,
				rpc.WithAPIKey(cfg.authKey),
				rpc.WithLogger(log),
			)

			clientOpts := []transfertypes.Option{
				transfer.WithLogger(log),
				transfer.WithTimeout(cfg.timeout),
			}
			if cfg.concurrency > 0 {
				clientOpts = append(clientOpts, transfer.WithConcurrency(cfg.concurrency))
			}
			if cfg.chunkSize > 0 {
				fixed := cfg.chunkSize
				clientOpts = append(clientOpts, transfer.WithChunkPolicy(
					func(int64) int64 { return fixed },
				))
			}

			client, err := transfer.New(caller, clientOpts...)
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			uploadOpts := []transfertypes.UploadOption{
				transfer.WithProgressFunc(func(pct int) {
					fmt.Fprintf(os.Stderr, "\r%3d%%", pct)
				}),
				transfer.WithAbortedFunc(func() {
					fmt.Fprintln(os.Stderr, "\naborted")
				}),
			}
			if cfg.componentID != "" {
				uploadOpts = append(uploadOpts, transfer.WithComponentID(cfg.componentID))
			}
			if cfg.contentType != "" {
				uploadOpts = append(uploadOpts, transfer.WithContentType(cfg.contentType))
			}

			resultCh := make(chan struct {
				result *transfertypes.UploadResult
				err    error
			}, 1)
			go func() {
				result, err := client.UploadFile(ctx, args[0], uploadOpts...)
				resultCh <- struct {
					result *transfertypes.UploadResult
					err    error
				}{result, err}
			}()

			for {
				select {
				case <-sigCh:
					log.Info().Msg("received signal, aborting upload")
					cancel()
				case r := <-resultCh:
					if r.err != nil {
						return r.err
					}
					fmt.Fprintln(os.Stderr)
					log.Info().
						Str("component_id", r.result.ComponentID).
						Str("strategy", string(r.result.Strategy)).
						Int("parts", r.result.Parts).
						Dur("took", r.result.Duration).
						Msg("upload complete")
					fmt.Println(r.result.ComponentID)
					return nil
				}
			}
		},
	}

	root.Flags().StringVar(&cfg.endpoint, "endpoint", "", "platform API endpoint URL")
	root.Flags().StringVar(&cfg.authKey, "auth-key", "", "API key for authentication")
	root.Flags().StringVar(&cfg.componentID, "component-id", "", "destination component id (generated when empty)")
	root.Flags().StringVar(&cfg.contentType, "content-type", "", "payload media type (detected when empty)")
	root.Flags().IntVar(&cfg.concurrency, "concurrency", 0, "active connection ceiling for multipart transfers")
	root.Flags().Int64Var(&cfg.chunkSize, "chunk-size", 0, "fixed chunk size in bytes (overrides size tiers)")
	root.Flags().DurationVar(&cfg.timeout, "timeout", 0, "per-connection HTTP timeout")
	root.Flags().BoolVar(&cfg.verbose, "verbose", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("transfer")
		os.Exit(1)
	}
}
