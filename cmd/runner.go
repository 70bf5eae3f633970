package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/webpq/internal/formatter"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/repositories"
	"github.com/desertthunder/webpq/internal/services"
	"github.com/desertthunder/webpq/internal/shared"
	"github.com/desertthunder/webpq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	queue      services.JobQueue
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string            // Loaded lazily by the first command when Config is nil
	Queue      services.JobQueue // Overrides the HTTP client built from config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader // Read by --items-file -
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		queue:      opts.Queue,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		batchCommand, jobCommand, queueCommand, violationsCommand, setupCommand, mockCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by subsequently built clients and orchestrators.
func (r *Runner) SetLogger(logger *log.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// loadConfig resolves the configuration once per process.
//
// The --config flag wins over RunnerOpts.ConfigPath; a missing file means defaults.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if cmd != nil && cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config != nil {
		return r.config, nil
	}

	path := r.configPath
	if cmd != nil && cmd.String("config") != "" {
		path = cmd.String("config")
	}

	if path == "" {
		r.config = shared.DefaultConfig()
		return r.config, nil
	}

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		r.config = shared.DefaultConfig()
		return r.config, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("config loaded", "path", path)
	r.config, r.configPath = config, path
	return r.config, nil
}

// queueClient returns the configured [services.JobQueue].
func (r *Runner) queueClient(cmd *cli.Command) (services.JobQueue, error) {
	if r.queue != nil {
		return r.queue, nil
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	baseURL := config.Queue.BaseURL
	if cmd != nil && cmd.String("url") != "" {
		baseURL = cmd.String("url")
	}

	return services.NewQueueClient(baseURL,
		services.WithHTTPClient(r.httpClient),
		services.WithTimeout(config.Queue.RequestTimeout.Duration),
		services.WithRateLimit(config.Queue.RateLimit),
		services.WithLogger(r.logger.With("component", "queue")),
	), nil
}

// orchestrator builds a [tasks.Orchestrator] from config. recorder may be nil.
func (r *Runner) orchestrator(cmd *cli.Command, callbacks tasks.Callbacks, recorder tasks.ViolationRecorder) (*tasks.Orchestrator, error) {
	queue, err := r.queueClient(cmd)
	if err != nil {
		return nil, err
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	opts := tasks.OrchestratorOpts{
		PollInterval:  config.Queue.PollInterval.Duration,
		CleanupAge:    config.Queue.CleanupAge.Duration,
		MaxConcurrent: config.Queue.MaxConcurrent,
		Logger:        r.logger.With("component", "orchestrator"),
		Callbacks:     callbacks,
		Violations:    recorder,
	}

	return tasks.NewOrchestrator(queue, opts), nil
}

// openLedger opens the violation database, running pending migrations.
func (r *Runner) openLedger(cmd *cli.Command) (*sql.DB, *repositories.ViolationRepository, error) {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open violation ledger: %w", err)
	}

	return db, repositories.NewViolationRepository(db), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// writeReport writes state to the --report path when one was given.
func (r *Runner) writeReport(cmd *cli.Command, state models.BatchState) error {
	path := cmd.String("report")
	if path == "" {
		return nil
	}

	var format formatter.Format
	if v := cmd.String("report-format"); v != "" {
		f, err := formatter.ParseFormat(v)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		format = f
	}

	written, err := formatter.WriteBatchReport(state, path, format)
	if err != nil {
		return err
	}

	r.logger.Info("report written", "path", written)
	return nil
}
