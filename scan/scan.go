// Package scan drives the analysis of Java source trees: it finds the
// files, builds a CFG per method body and explores it with the enabled
// detectors.
package scan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhamidi/symbex/cfg"
	"github.com/dhamidi/symbex/config"
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
	"github.com/dhamidi/symbex/report"
	"github.com/dhamidi/symbex/se"
	"github.com/dhamidi/symbex/se/checks"
	"github.com/tliron/commonlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var log = commonlog.GetLogger("symbex.scan")

var tracer = otel.Tracer("symbex/scan")

// Summary is the outcome of a run. Skipped counts methods whose control
// flow could not be built and files that could not be parsed.
type Summary struct {
	Issues    []report.Issue
	Files     int
	Methods   int
	Skipped   int
	Truncated int
	Faults    int
}

func (s *Summary) add(o *Summary) {
	s.Issues = append(s.Issues, o.Issues...)
	s.Files += o.Files
	s.Methods += o.Methods
	s.Skipped += o.Skipped
	s.Truncated += o.Truncated
	s.Faults += o.Faults
}

type Scanner struct {
	cfg       *config.Config
	factories []checks.Factory

	truncations rate.Sometimes
}

func New(cfg *config.Config, factories []checks.Factory) *Scanner {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	return &Scanner{
		cfg:         cfg,
		factories:   factories,
		truncations: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
}

// Run analyzes every Java file under paths. Files are processed
// concurrently, bounded by the configured worker count. The issues of
// the summary are sorted by file, position and rule.
func (s *Scanner) Run(ctx context.Context, paths []string) (*Summary, error) {
	files, err := s.Files(paths)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "scan.Run", trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	var mu sync.Mutex
	summary := &Summary{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Workers, 1))
	for _, file := range files {
		file := file
		g.Go(func() error {
			src, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("could not read %s: %w", file, err)
			}
			result := s.analyze(ctx, file, src)
			mu.Lock()
			summary.add(result)
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, err
	}
	report.Sort(summary.Issues)
	span.SetAttributes(
		attribute.Int("issues", len(summary.Issues)),
		attribute.Int("methods", summary.Methods),
	)
	log.Infof("analyzed %d methods in %d files: %d issues, %d skipped, %d truncated",
		summary.Methods, summary.Files, len(summary.Issues), summary.Skipped, summary.Truncated)
	return summary, nil
}

// CheckSource analyzes a single in-memory source file.
func (s *Scanner) CheckSource(ctx context.Context, file string, src []byte) ([]report.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := s.analyze(ctx, file, src)
	report.Sort(result.Issues)
	return result.Issues, ctx.Err()
}

// Files expands paths into the Java files they contain. Hidden and
// excluded directories are not entered.
func (s *Scanner) Files(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", root, err)
		}
		if !info.IsDir() {
			if !s.cfg.Excluded(root) {
				files = append(files, root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warningf("could not walk %s: %s", path, err)
				return nil
			}
			if d.IsDir() {
				if path != root && (strings.HasPrefix(d.Name(), ".") || s.cfg.Excluded(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".java" && !s.cfg.Excluded(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (s *Scanner) analyze(ctx context.Context, file string, src []byte) *Summary {
	ctx, span := tracer.Start(ctx, "scan.File", trace.WithAttributes(attribute.String("file", file)))
	defer span.End()

	summary := &Summary{Files: 1}
	unit, err := parser.Parse(src, file)
	if err != nil {
		log.Warningf("skipping %s", err)
		span.RecordError(err)
		summary.Skipped++
		return summary
	}
	model := semantic.Resolve(unit, file)
	for _, m := range model.Methods() {
		if ctx.Err() != nil {
			break
		}
		if !m.HasBody() {
			continue
		}
		g, err := cfg.Build(m.Decl, model)
		if err != nil {
			if errors.Is(err, cfg.ErrMalformedControlFlow) {
				log.Debugf("skipping %s: %s", m, err)
			} else {
				log.Warningf("skipping %s: %s", m, err)
			}
			summary.Skipped++
			continue
		}
		s.explore(ctx, file, m.String(), g, model, summary)
		// Escapes already holds nested bodies, so each is explored once.
		for _, node := range escapes(g) {
			name := fmt.Sprintf("%s$%d", m, node.Span.Start.Line)
			s.explore(ctx, file, name, g.Escapes[node], model, summary)
		}
	}
	span.SetAttributes(attribute.Int("issues", len(summary.Issues)))
	return summary
}

// escapes returns the lambdas and anonymous class members of g in source
// order.
func escapes(g *cfg.CFG) []*parser.Node {
	nodes := make([]*parser.Node, 0, len(g.Escapes))
	for node := range g.Escapes {
		nodes = append(nodes, node)
	}
	slices.SortFunc(nodes, func(a, b *parser.Node) int {
		return cmp.Compare(a.Span.Start.Offset, b.Span.Start.Offset)
	})
	return nodes
}

// explore runs the detectors over one method body, bounded by the
// configured method timeout.
func (s *Scanner) explore(ctx context.Context, file, name string, g *cfg.CFG, info semantic.Info, summary *Summary) {
	limits := s.cfg.Limits()
	if limits.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MaxDuration)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "scan.Method", trace.WithAttributes(attribute.String("method", name)))
	defer span.End()

	summary.Methods++
	e := se.NewEngine(g, info, se.WithLimits(limits), se.WithMethodName(name))
	res, err := e.Explore(ctx, e.InitialState(), checks.Instantiate(s.factories))
	if err != nil {
		// The method deadline expired before the first step.
		span.RecordError(err)
		summary.Truncated++
		return
	}
	span.SetAttributes(
		attribute.Int("steps", res.Stats.Steps),
		attribute.Int("findings", len(res.Findings)),
	)
	if res.Truncated {
		summary.Truncated++
		s.truncations.Do(func() {
			log.Warningf("%s: exploration of %s stopped early: %s", file, name, res.TruncatedReason)
		})
	}
	summary.Faults += len(res.Faults)
	for _, f := range res.Findings {
		summary.Issues = append(summary.Issues, report.FromFinding(file, f))
	}
}
