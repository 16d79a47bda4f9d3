// Package pipeline turns one chat message into a typed Request: it
// classifies the message, then extracts its fields with concurrent oracle
// calls and repairs the ordering of the extracted times.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/chatplanner/internal/app/timenorm"
	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// Options tunes the oracle calls made by the pipeline.
type Options struct {
	Temperatures      []float32
	EscalationBackoff time.Duration
	CallTimeout       time.Duration
}

// Parser runs the whole understanding pipeline for one message.
type Parser struct {
	classifier *Classifier
	extractor  *Extractor
	times      *TimeExtractor
}

func NewParser(oracle domain.Oracle, norm *timenorm.Normalizer, opts Options) *Parser {
	return &Parser{
		classifier: NewClassifier(oracle, opts),
		extractor:  NewExtractor(oracle, opts),
		times:      NewTimeExtractor(oracle, norm, opts),
	}
}

// Parse classifies q and fills a Request for it. The returned request is
// final. ErrUnclassified means the message should be rephrased.
func (p *Parser) Parse(ctx context.Context, q domain.Query) (*domain.Request, error) {
	typ, err := p.classifier.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return p.ParseAs(ctx, q, typ)
}

// ParseAs skips classification and extracts q as the given type.
func (p *Parser) ParseAs(ctx context.Context, q domain.Query, typ domain.RequestType) (*domain.Request, error) {
	log := observability.WithFields(ctx, "client_id", q.ClientID, "type", typ)
	start := time.Now()

	req := domain.NewRequest(q)
	req.Type = typ

	var err error
	switch typ {
	case domain.RequestEvent:
		err = p.fillEvent(ctx, q, req)
	case domain.RequestGoal:
		err = p.fillGoal(ctx, q, req)
	default:
		return nil, fmt.Errorf("cannot extract a %s request: %w", typ, domain.ErrUnclassified)
	}
	if err != nil {
		log.Warnw("field extraction failed", "error", err)
		return nil, fmt.Errorf("extract %s: %w", typ, err)
	}

	log.Infow("message parsed",
		"body", req.Body,
		"timefrom", req.TimeFrom.Value(),
		"dateto", req.DateTo.Value(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return req, nil
}

// fillEvent issues the four event sub-calls at once; one failure fails all.
func (p *Parser) fillEvent(ctx context.Context, q domain.Query, req *domain.Request) error {
	var (
		title, description string
		from, to           domain.TimeDescriptor
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		title, err = p.extractor.ExtractEventTitle(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		description, err = p.extractor.ExtractEventDescription(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		from, err = p.times.ExtractTimeFrom(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		to, err = p.times.ExtractTimeTo(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	req.Body = title
	req.Extra = description
	req.TimeFrom, req.DateTo = timenorm.Reconcile(from, to)
	return nil
}

// fillGoal extracts the task title and its optional due date.
func (p *Parser) fillGoal(ctx context.Context, q domain.Query, req *domain.Request) error {
	var (
		title string
		due   domain.TimeDescriptor
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		title, err = p.extractor.ExtractTaskTitle(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		due, err = p.times.ExtractTimeFrom(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	req.Body = title
	req.TimeFrom = due
	return nil
}
