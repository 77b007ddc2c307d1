package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/chararch/twig"
	"github.com/chararch/twig/file"
	"github.com/chararch/twig/internal/config"
	"github.com/chararch/twig/internal/logs"
	"github.com/chararch/twig/status"
	"github.com/chararch/twig/twitter7"
	"github.com/chararch/twig/wordmatrix"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:          "twig",
		Short:        "Turn Twitter7 dumps into anonymized RDF graphs and word matrices",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file, TWIG_* environment variables override it")

	root.AddCommand(&cobra.Command{
		Use:   "graph",
		Short: "Build the anonymized statement graph of every Twitter7 input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, configFile, runGraph)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "words",
		Short: "Build the word succession matrix of every Twitter7 input or graph checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, configFile, runWords)
		},
	})
	return root
}

type runner func(ctx context.Context, e *environment, inputs []string) (*twig.Report, error)

type environment struct {
	cfg     *config.Config
	storage file.FileStorage
	runCtx  *twig.BatchContext
}

func execute(cmd *cobra.Command, configFile string, run runner) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	level, _ := logs.ParseLevel(cfg.LogLevel)
	if cfg.LogFormat == config.LogJSON {
		twig.SetLogger(logs.NewJSONLogger(os.Stdout, level))
	} else {
		twig.SetLogger(logs.NewLogger(os.Stdout, level))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return errors.Wrap(err, "open mysql")
		}
		defer db.Close()
		repo := twig.NewSQLRepository(db)
		if err := repo.CreateSchema(ctx); err != nil {
			return err
		}
		twig.SetRepository(repo)
	}

	e := &environment{cfg: cfg, storage: newStorage(cfg.Storage), runCtx: twig.NewBatchContext()}
	e.runCtx.Put("name", cmd.Name())
	e.runCtx.Put("date", time.Now())
	e.runCtx.Put("run", uuid.NewString())
	inputs, err := e.storage.Glob(path.Join(cfg.Input.Dir, cfg.Input.Pattern))
	if err != nil {
		return errors.Wrapf(err, "list inputs in %v", cfg.Input.Dir)
	}

	report, err := run(ctx, e, inputs)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return err
	}
	if report.Status == status.FAILED {
		return errors.Errorf("run %v failed", report.RunId)
	}
	return nil
}

func newStorage(cfg config.StorageConfig) file.FileStorage {
	if cfg.Type == config.StorageFTP {
		return &file.FTPFileSystem{
			Host:        cfg.Host,
			Port:        cfg.Port,
			User:        cfg.User,
			Password:    cfg.Password,
			ConnTimeout: time.Duration(cfg.Timeout) * time.Second,
		}
	}
	return &file.LocalFileSystem{}
}

func (e *environment) pressure() twig.PressurePredicate {
	var preds twig.AnyPressure
	if e.cfg.MinAvailableMemory > 0 {
		preds = append(preds, twig.NewMemoryPressure(e.cfg.MinAvailableMemory))
	}
	if e.cfg.HeapLimit > 0 {
		preds = append(preds, &twig.HeapPressure{Limit: e.cfg.HeapLimit})
	}
	return preds
}

func (e *environment) rotation(ext string) func(int) (string, error) {
	fp := &twig.FilePath{NamePattern: path.Join(e.cfg.Output.Dir, e.cfg.Output.Pattern) + ext}
	return func(index int) (string, error) {
		return fp.Rotation(e.runCtx, index)
	}
}

func newSink[T file.Encoder](e *environment, ext string) *file.FileSink[T] {
	return &file.FileSink[T]{
		Storage:      e.storage,
		Path:         e.rotation(ext),
		Checksum:     e.cfg.Output.Checksum,
		SkipExisting: e.cfg.Output.SkipExisting,
	}
}

func runGraph(ctx context.Context, e *environment, inputs []string) (*twig.Report, error) {
	var anon *twitter7.Anonymizer
	var err error
	if e.cfg.Salt != "" {
		anon, err = twitter7.NewHexAnonymizer(e.cfg.Salt)
	} else {
		anon, err = twitter7.NewRandomAnonymizer()
	}
	if err != nil {
		return nil, err
	}
	return twig.Run(ctx, twig.Options[*twitter7.Graph]{
		Name:      "graph",
		Inputs:    inputs,
		Factory:   twitter7.NewTaskFactory(e.storage, anon),
		NewResult: twitter7.NewGraph,
		Sink:      newSink[*twitter7.Graph](e, ".ttl.gz"),
		Threshold: e.cfg.Threshold,
		Workers:   e.cfg.Workers,
		Pressure:  e.pressure(),
		Context:   e.runCtx,
	})
}

func runWords(ctx context.Context, e *environment, inputs []string) (*twig.Report, error) {
	return twig.Run(ctx, twig.Options[*wordmatrix.WordMatrix]{
		Name:      "words",
		Inputs:    inputs,
		Factory:   wordmatrix.NewTaskFactory(e.storage),
		NewResult: wordmatrix.New,
		Sink:      newSink[*wordmatrix.WordMatrix](e, ".json.gz"),
		Threshold: e.cfg.Threshold,
		Workers:   e.cfg.Workers,
		Pressure:  e.pressure(),
		Context:   e.runCtx,
	})
}

func printReport(w io.Writer, report *twig.Report) {
	fmt.Fprintf(w, "run %d %s: %s\n", report.RunId, report.Name, report.Status)
	fmt.Fprintf(w, "inputs %d, succeeded %d, failed %d, flushed %d, suspensions %d, took %v\n",
		report.Inputs, report.Succeeded, report.Failed, report.FlushedSize, report.Suspensions, report.EndTime.Sub(report.StartTime))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  failure: %v\n", f)
	}
	for _, out := range report.Outputs {
		fmt.Fprintf(w, "  output: %s\n", out)
	}
	if report.Err != nil {
		fmt.Fprintf(w, "  error: %v\n", report.Err)
	}
}
