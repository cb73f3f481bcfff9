package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/config"
	"tablet.dev/compaction/filesource"
	"tablet.dev/compaction/logging"
	"tablet.dev/compaction/planner"
	"tablet.dev/compaction/telemetry"
	"tablet.dev/compaction/util/size"
)

type planOptions struct {
	configPath string
	service    compaction.ServiceID
	kind       compaction.Kind
	ratio      float64
	running    []string
	suffix     string
	tablets    []string
}

func planOptionsFromFlags(ctx *cli.Context) (planOptions, error) {
	kind, err := compaction.ParseKind(ctx.String("kind"))
	if err != nil {
		return planOptions{}, err
	}
	if ctx.NArg() == 0 {
		return planOptions{}, errors.New("at least one tablet path is required")
	}
	return planOptions{
		configPath: ctx.String("config"),
		service:    compaction.ServiceID(ctx.String("service")),
		kind:       kind,
		ratio:      ctx.Float64("ratio"),
		running:    ctx.StringSlice("running"),
		suffix:     ctx.String("suffix"),
		tablets:    ctx.Args().Slice(),
	}, nil
}

func validate(w io.Writer, path string) error {
	if path == "" {
		return errors.New("services document path is required")
	}
	c, err := config.ReadFile(path, config.NewEnvSource())
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("services validation error: %w", err)
	}

	var errs []error
	for _, id := range c.ServiceIDs() {
		params, err := c.InitParameters(id, compaction.NewExecutorRegistry(id))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p, err := planner.New(params, planner.WithLogger(slog.Default()))
		if err != nil {
			errs = append(errs, fmt.Errorf("service %s: %w", id, err))
			continue
		}

		fmt.Fprintf(w, "%s (maxOpen %d)\n", id, p.MaxOpen())
		for _, d := range p.Executors() {
			fmt.Fprintf(w, "  %-24s %s\n", d.ID, d)
		}
	}
	return errors.Join(errs...)
}

type tabletPlan struct {
	tablet string
	files  []compaction.CompactableFile
	plan   compaction.Plan
}

// newServicePlanner returns the service's planner and the ratio to plan with.
func newServicePlanner(opts planOptions) (*planner.DefaultPlanner, *config.Config, float64, error) {
	c, err := config.ReadFile(opts.configPath, config.NewEnvSource())
	if err != nil {
		return nil, nil, 0, err
	}
	if err := c.Validate(); err != nil {
		return nil, nil, 0, fmt.Errorf("services validation error: %w", err)
	}
	service, err := c.Service(opts.service)
	if err != nil {
		return nil, nil, 0, err
	}
	params, err := c.InitParameters(opts.service, compaction.NewExecutorRegistry(opts.service))
	if err != nil {
		return nil, nil, 0, err
	}
	p, err := planner.New(params, planner.WithLogger(slog.Default()))
	if err != nil {
		return nil, nil, 0, err
	}

	ratio := opts.ratio
	if ratio == 0 {
		ratio = service.RatioOrDefault()
	}
	return p, c, ratio, nil
}

func planTablets(ctx context.Context, p *planner.DefaultPlanner, env compaction.ConfigurationSource, opts planOptions, ratio float64) ([]tabletPlan, error) {
	listers := make([]filesource.Lister, len(opts.tablets))
	for i, path := range opts.tablets {
		l, err := filesource.New(ctx, path, filesource.WithSuffix(opts.suffix))
		if err != nil {
			return nil, err
		}
		listers[i] = l
	}

	listed, err := filesource.ListAll(ctx, listers)
	if err != nil {
		return nil, err
	}

	plans := make([]tabletPlan, len(listers))
	g := new(errgroup.Group)
	for i, l := range listers {
		g.Go(func() error {
			params := planningParameters(l.URI(), listed[i], opts.running, ratio, opts.kind)
			params.Env = env
			plans[i] = tabletPlan{
				tablet: l.URI(),
				files:  listed[i],
				plan:   p.MakePlan(params),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// planningParameters treats the files named in running as one running system
// compaction and every other file as a candidate.
func planningParameters(tablet string, files []compaction.CompactableFile, running []string, ratio float64, kind compaction.Kind) compaction.PlanningParameters {
	var candidates, compacting []compaction.CompactableFile
	for _, f := range files {
		if slices.Contains(running, f.Name()) {
			compacting = append(compacting, f)
		} else {
			candidates = append(candidates, f)
		}
	}

	params := compaction.PlanningParameters{
		TableID:    tablet,
		Candidates: candidates,
		All:        files,
		Ratio:      ratio,
		Kind:       kind,
		Hints:      map[string]string{},
	}
	if len(compacting) > 0 {
		params.Running = []compaction.RunningCompaction{{
			Kind:  compaction.System,
			All:   files,
			Files: compacting,
		}}
	}
	return params
}

func plan(ctx context.Context, w io.Writer, opts planOptions) error {
	p, c, ratio, err := newServicePlanner(opts)
	if err != nil {
		return err
	}
	plans, err := planTablets(ctx, p, c.Source(), opts, ratio)
	if err != nil {
		return err
	}

	printer := message.NewPrinter(language.English)
	for _, tp := range plans {
		printPlan(printer, w, tp)
	}
	return nil
}

func printPlan(p *message.Printer, w io.Writer, tp tabletPlan) {
	p.Fprintf(w, "%s: %d files, %s\n", tp.tablet, len(tp.files), size.Format(compaction.SumSizes(tp.files)))
	if tp.plan.IsEmpty() {
		p.Fprintf(w, "  nothing to compact\n")
		return
	}
	for _, job := range tp.plan.Jobs {
		p.Fprintf(w, "  %s compaction on %s, priority %d, %d files, %s\n",
			job.Kind, job.Executor, job.Priority, len(job.Files), size.Format(job.TotalSize()))
		for _, f := range job.Files {
			p.Fprintf(w, "    %s\n", f.URI)
		}
	}
}

func watch(ctx context.Context, opts planOptions, interval time.Duration, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, c, ratio, err := newServicePlanner(opts)
	if err != nil {
		return err
	}
	env := c.Source()

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	server := &http.Server{
		Addr:    addr,
		Handler: logging.NewHTTPHandler(mux, slog.Default()),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return server.Shutdown(context.Background())
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			plans, err := planTablets(gctx, p, env, opts, ratio)
			if err != nil {
				slog.Error("planning round failed", "err", err)
			}
			for _, tp := range plans {
				for _, job := range tp.plan.Jobs {
					slog.Info("planned compaction",
						"tablet", tp.tablet,
						"kind", job.Kind,
						"executor", job.Executor,
						"files", len(job.Files),
						"bytes", job.TotalSize())
				}
			}

			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

func selectFiles(w io.Writer, sizes []string, ratio float64, maxFiles int, maxSizeFlag string) error {
	if len(sizes) == 0 {
		return errors.New("at least one file size is required")
	}
	maxSize := int64(math.MaxInt64)
	if maxSizeFlag != "" {
		parsed, err := size.Parse(maxSizeFlag)
		if err != nil {
			return fmt.Errorf("invalid max-size: %w", err)
		}
		maxSize = parsed
	}

	files := make([]compaction.CompactableFile, len(sizes))
	for i, s := range sizes {
		n, err := size.Parse(s)
		if err != nil {
			return err
		}
		files[i] = compaction.NewFile(fmt.Sprintf("F%d", i+1), n, uint64(i+1))
	}

	group := planner.FindFilesToCompact(files, ratio, maxFiles, maxSize)
	if len(group) == 0 {
		fmt.Fprintln(w, "no files selected")
		return nil
	}
	slices.SortFunc(group, func(a, b compaction.CompactableFile) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	fmt.Fprintf(w, "selected %d of %d files, %s\n", len(group), len(files), size.Format(compaction.SumSizes(group)))
	for _, f := range group {
		fmt.Fprintf(w, "  %s\n", f)
	}
	return nil
}
