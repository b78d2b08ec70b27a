package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	nativecommon "plasmavault/native/common"
	"plasmavault/native/oracle"
	"plasmavault/observability/metrics"
)

const (
	JobHarvest    = "harvest"
	JobCheckpoint = "checkpoint"
	JobValidate   = "validate"
)

// FeeEngine is the fee manager surface driven by the keeper.
type FeeEngine interface {
	HarvestAllFees() error
	CheckpointHighWaterMark(caller common.Address, value *uint256.Int) (bool, error)
}

// PriceEngine is the oracle surface driven by the keeper.
type PriceEngine interface {
	GetAssetPrice(asset common.Address) (*uint256.Int, uint8, error)
	ValidatePriceChange(asset common.Address, price *uint256.Int) (bool, error)
}

// ValueSource reports the vault value used for high-water mark checkpoints.
type ValueSource func() (*uint256.Int, error)

// Schedules holds cron expressions with a leading seconds field. Empty
// expressions leave the job unscheduled.
type Schedules struct {
	Harvest    string
	Checkpoint string
	Validate   string
}

// Options wires a Keeper.
type Options struct {
	Fees     FeeEngine
	Prices   PriceEngine
	Value    ValueSource
	Operator common.Address
	Watch    []common.Address
	// Lock serialises engine access with other users of the same state.
	Lock sync.Locker
	// Commit persists state after a successful job.
	Commit func() error
	Logger *slog.Logger
}

// Run records the outcome of one job execution.
type Run struct {
	ID        string        `json:"id"`
	Job       string        `json:"job"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Err       string        `json:"error,omitempty"`
}

// Keeper runs fee harvests, high-water mark checkpoints and price validations
// on cron schedules.
type Keeper struct {
	cron     *cron.Cron
	fees     FeeEngine
	prices   PriceEngine
	value    ValueSource
	operator common.Address
	watch    []common.Address
	lock     sync.Locker
	commit   func() error
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    func() time.Time

	mu   sync.Mutex
	last map[string]Run
}

// New constructs a keeper. At least one engine is required.
func New(opts Options) (*Keeper, error) {
	if opts.Fees == nil && opts.Prices == nil {
		return nil, fmt.Errorf("keeper: no engine configured")
	}
	lock := opts.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	watch := make([]common.Address, len(opts.Watch))
	copy(watch, opts.Watch)
	return &Keeper{
		cron:     cron.New(cron.WithSeconds()),
		fees:     opts.Fees,
		prices:   opts.Prices,
		value:    opts.Value,
		operator: opts.Operator,
		watch:    watch,
		lock:     lock,
		commit:   opts.Commit,
		logger:   logger.With(slog.String("component", "keeper")),
		tracer:   otel.Tracer("plasmavault/keeper"),
		clock:    time.Now,
		last:     make(map[string]Run),
	}, nil
}

// Register schedules the jobs whose expression is set.
func (k *Keeper) Register(ctx context.Context, s Schedules) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{JobHarvest, s.Harvest, k.RunHarvest},
		{JobCheckpoint, s.Checkpoint, k.RunCheckpoint},
		{JobValidate, s.Validate, k.RunValidate},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		run := job.run
		if _, err := k.cron.AddFunc(job.spec, func() { _ = run(ctx) }); err != nil {
			return fmt.Errorf("keeper: register %s job: %w", job.name, err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (k *Keeper) Start() {
	k.cron.Start()
	k.logger.Info("keeper started", slog.Int("jobs", len(k.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (k *Keeper) Stop() {
	<-k.cron.Stop().Done()
	k.logger.Info("keeper stopped")
}

// LastRun returns the most recent run of job.
func (k *Keeper) LastRun(job string) (Run, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	run, ok := k.last[job]
	return run, ok
}

// Runs returns the most recent run of every job that has executed, ordered
// by job name.
func (k *Keeper) Runs() []Run {
	k.mu.Lock()
	defer k.mu.Unlock()
	runs := make([]Run, 0, len(k.last))
	for _, run := range k.last {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Job < runs[j].Job })
	return runs
}

// RunHarvest harvests both fee types.
func (k *Keeper) RunHarvest(ctx context.Context) error {
	return k.run(ctx, JobHarvest, func(ctx context.Context, span trace.Span) error {
		if k.fees == nil {
			return nil
		}
		return k.fees.HarvestAllFees()
	})
}

// RunCheckpoint feeds the current vault value into the high-water mark.
func (k *Keeper) RunCheckpoint(ctx context.Context) error {
	return k.run(ctx, JobCheckpoint, func(ctx context.Context, span trace.Span) error {
		if k.fees == nil || k.value == nil {
			return nil
		}
		value, err := k.value()
		if err != nil {
			return fmt.Errorf("read vault value: %w", err)
		}
		moved, err := k.fees.CheckpointHighWaterMark(k.operator, value)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Bool("hwm.moved", moved))
		return nil
	})
}

// RunValidate reads and validates the price of every watched asset. Assets
// without a validation config are skipped. Failures of individual assets are
// joined into the returned error.
func (k *Keeper) RunValidate(ctx context.Context) error {
	return k.run(ctx, JobValidate, func(ctx context.Context, span trace.Span) error {
		if k.prices == nil {
			return nil
		}
		var errs []error
		for _, asset := range k.watch {
			if err := k.validateAsset(asset); err != nil {
				errs = append(errs, fmt.Errorf("asset %s: %w", asset.Hex(), err))
			}
		}
		span.SetAttributes(attribute.Int("assets", len(k.watch)))
		return errors.Join(errs...)
	})
}

func (k *Keeper) validateAsset(asset common.Address) error {
	price, _, err := k.prices.GetAssetPrice(asset)
	if err != nil {
		return err
	}
	_, err = k.prices.ValidatePriceChange(asset, price)
	switch {
	case errors.Is(err, oracle.ErrPriceValidationNotConfigured):
		k.logger.Debug("price validation not configured", slog.String("asset", asset.Hex()))
		return nil
	case errors.Is(err, oracle.ErrPriceChangeExceeded):
		k.logger.Warn("price circuit breaker tripped",
			slog.String("asset", asset.Hex()),
			slog.String("price", price.Dec()),
			slog.Any("error", err))
		return err
	default:
		return err
	}
}

func (k *Keeper) run(ctx context.Context, job string, fn func(context.Context, trace.Span) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	record := Run{ID: uuid.NewString(), Job: job, StartedAt: k.clock()}
	ctx, span := k.tracer.Start(ctx, "keeper."+job,
		trace.WithAttributes(attribute.String("run.id", record.ID)))
	defer span.End()

	err := k.execute(ctx, span, fn)
	record.Duration = k.clock().Sub(record.StartedAt)
	metrics.Keeper().ObserveRun(job, record.Duration, err)

	logger := k.logger.With(slog.String("job", job), slog.String("run_id", record.ID))
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		logger.Info("keeper job completed", slog.Duration("duration", record.Duration))
	case errors.Is(err, nativecommon.ErrModulePaused):
		span.SetStatus(codes.Error, err.Error())
		logger.Info("keeper job skipped, module paused")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("keeper job failed", slog.Any("error", err))
	}
	if err != nil {
		record.Err = err.Error()
	}

	k.mu.Lock()
	k.last[job] = record
	k.mu.Unlock()
	return err
}

func (k *Keeper) execute(ctx context.Context, span trace.Span, fn func(context.Context, trace.Span) error) error {
	k.lock.Lock()
	defer k.lock.Unlock()
	if err := fn(ctx, span); err != nil {
		return err
	}
	if k.commit != nil {
		if err := k.commit(); err != nil {
			return fmt.Errorf("commit state: %w", err)
		}
	}
	return nil
}
