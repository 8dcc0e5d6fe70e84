package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"atomdeck/api/internal/config"
	"atomdeck/api/internal/document"
	"atomdeck/api/internal/engine"
	"atomdeck/api/internal/logging"
	"atomdeck/api/internal/operation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// replayFile is either a bare array of operations or an object carrying a
// starting presentation.
type replayFile struct {
	Presentation json.RawMessage             `json:"presentation"`
	Operations   []operation.AtomicOperation `json:"operations"`
}

type replaySummary struct {
	Executed int                    `json:"executed"`
	Applied  int                    `json:"applied"`
	Failed   []replayFailure        `json:"failed"`
	History  engine.HistoryInfo     `json:"history"`
	Result   *document.Presentation `json:"presentation"`
}

type replayFailure struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

func newReplayCommand(v *viper.Viper) *cobra.Command {
	var stopOnError bool
	cmd := &cobra.Command{
		Use:   "replay <file.json>",
		Short: "Run a list of operations against a document and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromViper(v)
			logger, err := logging.New(cfg.LogLevel, "console")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			summary, err := replay(cmd.Context(), raw, cfg.HistoryLimit, stopOnError, logger)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort at the first failing operation")
	return cmd
}

func replay(ctx context.Context, raw []byte, historyLimit int, stopOnError bool, logger *zap.Logger) (replaySummary, error) {
	file, err := parseReplayFile(raw)
	if err != nil {
		return replaySummary{}, err
	}

	e := engine.New(nil,
		engine.WithLogger(logger),
		engine.WithHistoryLimit(historyLimit),
		engine.WithClock(func() time.Time { return time.Now().UTC() }),
	)
	if len(file.Presentation) > 0 && string(file.Presentation) != "null" {
		doc, err := document.Unmarshal(file.Presentation)
		if err != nil {
			return replaySummary{}, fmt.Errorf("decode presentation: %w", err)
		}
		if err := e.Load(doc); err != nil {
			return replaySummary{}, err
		}
	}
	summary := replaySummary{Failed: []replayFailure{}}
	for i, op := range file.Operations {
		res, err := e.Execute(ctx, op)
		summary.Executed++
		if err != nil {
			summary.Failed = append(summary.Failed, replayFailure{Index: i, Op: string(op.Op), Error: err.Error()})
			if stopOnError {
				break
			}
			continue
		}
		if res.Applied {
			summary.Applied++
		}
	}
	summary.History = e.History()
	summary.Result = e.Document()
	return summary, nil
}

func parseReplayFile(raw []byte) (replayFile, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var ops []operation.AtomicOperation
		if err := json.Unmarshal(raw, &ops); err != nil {
			return replayFile{}, fmt.Errorf("decode operations: %w", err)
		}
		return replayFile{Operations: ops}, nil
	}
	var file replayFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return replayFile{}, fmt.Errorf("decode replay file: %w", err)
	}
	return file, nil
}

func writeSummary(w io.Writer, summary replaySummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
