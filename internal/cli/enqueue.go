package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/queue"
)

func newEnqueueCmd(e *env) *cobra.Command {
	var questionSetID, owner string
	cmd := &cobra.Command{
		Use:   "enqueue [file]",
		Short: "Stage a file and queue it for the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, err := e.services(ctx)
			if err != nil {
				return err
			}
			if svc.Queue == nil {
				return errors.New("SQS_QUEUE_URL is not configured")
			}
			if svc.Store == nil {
				return errors.New("object store is not configured")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			name := filepath.Base(args[0])
			now := time.Now().UTC()
			key := pipeline.StagedKey(now, name)
			if err := svc.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), ""); err != nil {
				return fmt.Errorf("stage file: %w", err)
			}
			if err := svc.Queue.Send(ctx, queue.Message{
				SourceKey:     key,
				FileName:      name,
				QuestionSetID: questionSetID,
				OwnerID:       owner,
				EnqueuedAt:    now.Format(time.RFC3339),
				Version:       queue.MessageVersion,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as %s\n", name, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&questionSetID, "question-set", catalog.DefaultSetID, "saved question set id")
	cmd.Flags().StringVar(&owner, "owner", "cli", "owner id the result is saved under")
	return cmd
}
