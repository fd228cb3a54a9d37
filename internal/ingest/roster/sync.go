// Package roster loads the current federal legislators into politician storage.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/storage"
	"github.com/brazyl/brazyl/internal/ingest/camara"
	"github.com/brazyl/brazyl/internal/ingest/normalize"
	"github.com/brazyl/brazyl/internal/ingest/senado"
)

// DefaultWorkers bounds concurrent detail fetches. The upstream permit pool
// still applies on top of it.
const DefaultWorkers = 4

// Options narrows a sync run.
type Options struct {
	DryRun  bool
	UF      string
	Sources []domain.Source // empty means camara and senado
	Workers int
}

func (o Options) includes(src domain.Source) bool {
	if len(o.Sources) == 0 {
		return true
	}
	for _, s := range o.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// Stats counts the outcome of a sync run. Total is created + updated + errors;
// skipped records are counted apart.
type Stats struct {
	Total   int
	Created int
	Updated int
	Skipped int
	Errors  int
}

func (s *Stats) add(o Stats) {
	s.Total += o.Total
	s.Created += o.Created
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Errors += o.Errors
}

// Syncer walks the legislative rosters and upserts every politician.
type Syncer struct {
	camara *camara.Client
	senado *senado.Client
	repo   storage.PoliticianRepository
	log    *slog.Logger
}

// NewSyncer creates a Syncer. repo may be nil when only dry runs are used.
func NewSyncer(c *camara.Client, s *senado.Client, repo storage.PoliticianRepository) *Syncer {
	return &Syncer{
		camara: c,
		senado: s,
		repo:   repo,
		log:    slog.Default().With("component", "roster"),
	}
}

// Sync runs every selected source and returns the combined stats.
func (s *Syncer) Sync(ctx context.Context, opts Options) (*Stats, error) {
	if !opts.DryRun && s.repo == nil {
		return nil, errors.New("roster sync needs a politician repository unless dry-run")
	}
	if opts.DryRun {
		s.log.Warn("Dry run, nothing will be written")
	}

	total := &Stats{}
	if opts.includes(domain.SourceCamara) {
		st, err := s.SyncDeputados(ctx, opts)
		if err != nil {
			return total, err
		}
		total.add(*st)
	}
	if opts.includes(domain.SourceSenado) {
		st, err := s.SyncSenadores(ctx, opts)
		if err != nil {
			return total, err
		}
		total.add(*st)
	}

	s.log.Info("Roster sync complete",
		"total", total.Total,
		"created", total.Created,
		"updated", total.Updated,
		"skipped", total.Skipped,
		"errors", total.Errors,
	)
	return total, nil
}

// SyncDeputados pages through /deputados following the next link, then
// fetches and upserts each deputy's detail record.
func (s *Syncer) SyncDeputados(ctx context.Context, opts Options) (*Stats, error) {
	var summaries []map[string]any
	for pagina := 1; ; pagina++ {
		page, err := s.camara.ListDeputados(ctx, camara.DeputadosFilter{
			UF:     opts.UF,
			Pagina: pagina,
			Itens:  camara.MaxItems,
		})
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}
		summaries = append(summaries, page.Items...)
		s.log.Debug("Deputados page fetched", "pagina", pagina, "count", len(page.Items))
		if !page.HasNext {
			break
		}
	}
	s.log.Info("Deputados found", "count", len(summaries))

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		mu    sync.Mutex
		stats Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, summary := range summaries {
		id := normalize.String(summary, "id")
		if id == "" {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			outcome := s.syncDeputado(gctx, id, opts.DryRun)
			mu.Lock()
			stats.add(outcome)
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return &stats, err
	}
	return &stats, nil
}

func (s *Syncer) syncDeputado(ctx context.Context, id string, dryRun bool) Stats {
	detail, err := s.camara.GetDeputado(ctx, id)
	if err != nil {
		s.log.Error("Failed to fetch deputado", "id", id, "error", err)
		return Stats{Total: 1, Errors: 1}
	}
	p, err := normalize.Deputado(detail)
	if err != nil {
		s.log.Warn("Skipping deputado", "id", id, "error", err)
		return Stats{Skipped: 1}
	}
	return s.save(ctx, p, dryRun)
}

// SyncSenadores upserts the senators in office, normalized from the list payload.
func (s *Syncer) SyncSenadores(ctx context.Context, opts Options) (*Stats, error) {
	senadores, err := s.senado.ListSenadores(ctx, opts.UF, "")
	if err != nil {
		return nil, err
	}
	s.log.Info("Senadores found", "count", len(senadores))

	stats := &Stats{}
	for _, raw := range senadores {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		p, err := normalize.Senador(raw)
		if err != nil {
			s.log.Warn("Skipping senador", "error", err)
			stats.Skipped++
			continue
		}
		stats.add(s.save(ctx, p, opts.DryRun))
	}
	return stats, nil
}

func (s *Syncer) save(ctx context.Context, p *domain.Politician, dryRun bool) Stats {
	if dryRun {
		s.log.Info("[dry-run] Would save politician", "name", p.ParliamentaryName, "position", p.Position)
		return Stats{Total: 1, Created: 1}
	}

	created, err := s.repo.Upsert(ctx, p)
	if err != nil {
		s.log.Error("Failed to save politician", "name", p.ParliamentaryName, "error", err)
		return Stats{Total: 1, Errors: 1}
	}
	if created {
		s.log.Info("Politician created", "name", p.ParliamentaryName, "source", p.Source)
		return Stats{Total: 1, Created: 1}
	}
	s.log.Debug("Politician updated", "name", p.ParliamentaryName, "source", p.Source)
	return Stats{Total: 1, Updated: 1}
}

// String renders stats for CLI output.
func (s Stats) String() string {
	return fmt.Sprintf("total=%d created=%d updated=%d skipped=%d errors=%d",
		s.Total, s.Created, s.Updated, s.Skipped, s.Errors)
}
