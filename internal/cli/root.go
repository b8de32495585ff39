package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/queue"
	"content-analyzer/internal/shared/storage/object"
)

// Version is set at build time.
var Version = "dev"

// Runner executes one pipeline run.
type Runner interface {
	Check(file pipeline.File, questions catalog.Catalog) error
	Run(ctx context.Context, jobID string, file pipeline.File, questions catalog.Catalog, sink pipeline.Sink) (pipeline.Outcome, error)
}

type QuestionSets interface {
	Get(ctx context.Context, ownerID, id string) (catalog.QuestionSet, error)
}

// Services are the dependencies commands need. Queue may be nil.
type Services struct {
	Runner Runner
	Sets   QuestionSets
	Store  object.Store
	Queue  queue.Client
}

// Loader builds Services on first use so commands that need none stay cheap.
type Loader func(ctx context.Context) (*Services, error)

type env struct {
	load Loader
	once sync.Once
	svc  *Services
	err  error
}

func (e *env) services(ctx context.Context) (*Services, error) {
	e.once.Do(func() {
		if e.load == nil {
			e.err = errors.New("services not configured")
			return
		}
		e.svc, e.err = e.load(ctx)
	})
	return e.svc, e.err
}

// NewRootCmd returns the analyze command tree.
func NewRootCmd(load Loader) *cobra.Command {
	e := &env{load: load}
	root := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze recordings and documents against a question set",
		Long: `Runs the content analysis pipeline locally: audio is transcribed,
documents are read as text, and every question in the chosen set is answered
from the content. Results are written as a PDF, TXT or DOCX report.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newRunCmd(e),
		newParseCmd(),
		newEnqueueCmd(e),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "analyze %s\n", Version)
		},
	}
}
