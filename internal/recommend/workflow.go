// Package recommend turns a trigger text or a shared location into a
// restaurant recommendation reply.
package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/line-foodfinder/internal/config"
	domerrors "github.com/garyellow/line-foodfinder/internal/errors"
	"github.com/garyellow/line-foodfinder/internal/location"
	"github.com/garyellow/line-foodfinder/internal/logger"
	"github.com/garyellow/line-foodfinder/internal/metrics"
	"github.com/garyellow/line-foodfinder/internal/places"
	"github.com/garyellow/line-foodfinder/internal/sentry"
)

// Path labels.
const (
	PathRandom = "random"
	PathNearby = "nearby"
)

// Outcome labels recorded per run.
const (
	OutcomeCarousel    = "carousel"
	OutcomeButtons     = "buttons"
	OutcomeLocation    = "location"
	OutcomeNotFound    = "not_found"
	OutcomeEmptyStore  = "empty_store"
	OutcomeDataError   = "data_error"
	OutcomeUpstreamErr = "upstream_error"
	OutcomeError       = "error"
)

// PlacesClient is the subset of places.Client the workflow calls.
type PlacesClient interface {
	NearbySearch(ctx context.Context, keyword string, center orb.Point, radius int) ([]places.Place, error)
	PlaceDetail(ctx context.Context, placeID string) (*places.Detail, error)
	PhotoURL(reference string) string
}

// Sampler picks a random search center.
type Sampler interface {
	Sample(ctx context.Context) (location.Point, error)
}

// ImagePreviewer finds an image for a website.
type ImagePreviewer interface {
	ImageURL(ctx context.Context, website string) (string, error)
}

// Deps are the collaborators of a Workflow.
type Deps struct {
	Places    PlacesClient
	Locations Sampler
	Previewer ImagePreviewer   // optional
	Metrics   *metrics.Metrics // optional
	Logger    *logger.Logger
}

// Workflow runs the recommendation for both paths. It is safe for
// concurrent use.
type Workflow struct {
	cfg    config.RecommendConfig
	policy UniqueUserPolicy

	places    PlacesClient
	locations Sampler
	previewer ImagePreviewer
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// New creates a Workflow.
func New(cfg config.RecommendConfig, deps Deps) *Workflow {
	if cfg.MaxCarouselResults <= 0 {
		cfg.MaxCarouselResults = 5
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = cfg.MaxCarouselResults
	}
	if cfg.DefaultKeyword == "" {
		cfg.DefaultKeyword = "restaurant"
	}
	log := deps.Logger
	if log == nil {
		log = logger.New("error")
	}
	return &Workflow{
		cfg:       cfg,
		policy:    NewUniqueUserPolicy(cfg.UniqueUserIDs, cfg.UniqueUserKeyword),
		places:    deps.Places,
		locations: deps.Locations,
		previewer: deps.Previewer,
		metrics:   deps.Metrics,
		logger:    log.WithModule("recommend"),
	}
}

// Random recommends around a random point of the location list, searching
// for the keyword embedded in req.Text.
func (w *Workflow) Random(ctx context.Context, req Request) []messaging_api.MessageInterface {
	return w.run(ctx, PathRandom, req, w.cfg.RandomRadius, w.cfg.RandomPresentation, func(ctx context.Context) (orb.Point, error) {
		p, err := w.locations.Sample(ctx)
		if err != nil {
			return orb.Point{}, err
		}
		return p.Point(), nil
	})
}

// Nearby recommends around the location the user shared.
func (w *Workflow) Nearby(ctx context.Context, req Request) []messaging_api.MessageInterface {
	return w.run(ctx, PathNearby, req, w.cfg.NearbyRadius, w.cfg.NearbyPresentation, func(context.Context) (orb.Point, error) {
		return req.Center, nil
	})
}

// Keyword returns the search keyword for req on path.
func (w *Workflow) Keyword(path string, req Request) string {
	if w.policy.Applies(req) {
		return w.policy.Keyword
	}
	if path == PathRandom {
		return ExtractKeyword(req.Text, w.cfg.DefaultKeyword)
	}
	return w.cfg.DefaultKeyword
}

func (w *Workflow) run(ctx context.Context, path string, req Request, radius int, presentation string, center func(context.Context) (orb.Point, error)) []messaging_api.MessageInterface {
	start := time.Now()
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	keyword := w.Keyword(path, req)
	log := w.logger.WithFields(map[string]any{
		"path":    path,
		"keyword": keyword,
		"scope":   req.Scope.String(),
	})

	msgs, outcome, err := w.recommend(ctx, keyword, radius, presentation, center)
	if err != nil {
		outcome = classify(err)
		log.WithError(err).WithField("outcome", outcome).Warn("Recommendation failed")
		if domerrors.IsUpstreamUnavailable(err) {
			sentry.CaptureExceptionWithContext(ctx, err, map[string]string{"module": "recommend", "path": path})
		}
		msgs = []messaging_api.MessageInterface{notFoundMessage()}
	} else {
		log.WithField("outcome", outcome).Debug("Recommendation composed")
	}

	if w.metrics != nil {
		w.metrics.RecordRecommendation(path, outcome, time.Since(start).Seconds())
	}
	return msgs
}

func (w *Workflow) recommend(ctx context.Context, keyword string, radius int, presentation string, centerFn func(context.Context) (orb.Point, error)) ([]messaging_api.MessageInterface, string, error) {
	center, err := centerFn(ctx)
	if err != nil {
		return nil, "", err
	}

	results, err := w.places.NearbySearch(ctx, keyword, center, radius)
	if err != nil {
		return nil, "", err
	}
	if len(results) == 0 || results[0].Address() == "" {
		return []messaging_api.MessageInterface{notFoundMessage()}, OutcomeNotFound, nil
	}

	w.logger.WithFields(map[string]any{
		"results":    len(results),
		"distance_m": int(geo.Distance(center, results[0].Point())),
	}).Debug("Nearby search returned")

	if presentation == config.PresentationLocation {
		return []messaging_api.MessageInterface{locationCard(results[0])}, OutcomeLocation, nil
	}

	if len(results) == 1 {
		if !w.cfg.SendSingleResultCard {
			return []messaging_api.MessageInterface{locationCard(results[0])}, OutcomeLocation, nil
		}
		card, err := w.enrich(ctx, results[0])
		if err != nil {
			return nil, "", err
		}
		return []messaging_api.MessageInterface{buttonCard(card)}, OutcomeButtons, nil
	}

	picked := results[:min(len(results), w.cfg.MaxCarouselResults)]
	cards := make([]placeCard, len(picked))
	errs := make([]error, len(picked))

	// A failed column is dropped on its own; the others keep going.
	var g errgroup.Group
	g.SetLimit(w.cfg.DetailConcurrency)
	for i, p := range picked {
		g.Go(func() error {
			cards[i], errs[i] = w.enrich(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]placeCard, 0, len(picked))
	for i, err := range errs {
		if err == nil {
			kept = append(kept, cards[i])
		}
	}
	if len(kept) == 0 {
		return nil, "", errors.Join(errs...)
	}
	for i, err := range errs {
		if err == nil {
			continue
		}
		w.logger.WithError(err).WithField("place_id", picked[i].PlaceID).Warn("Dropping carousel column")
		if domerrors.IsUpstreamUnavailable(err) && !errors.Is(err, context.Canceled) {
			sentry.CaptureExceptionWithContext(ctx, err, map[string]string{"module": "recommend", "stage": "detail"})
		}
	}

	return []messaging_api.MessageInterface{carouselCard(keyword, kept)}, OutcomeCarousel, nil
}

// enrich fetches the details of p and resolves its card image.
func (w *Workflow) enrich(ctx context.Context, p places.Place) (placeCard, error) {
	detail, err := w.places.PlaceDetail(ctx, p.PlaceID)
	switch {
	case domerrors.IsPlaceNotFound(err):
		// Build the card from the search result alone.
		w.logger.WithField("place_id", p.PlaceID).Debug("Place details gone; using search result")
		detail = &places.Detail{PlaceID: p.PlaceID, FormattedAddress: p.Address()}
	case err != nil:
		return placeCard{}, err
	}

	card := placeCard{place: p, detail: *detail}

	ref := p.PhotoReference
	if ref == "" && len(detail.PhotoReferences) > 0 {
		ref = detail.PhotoReferences[0]
	}
	card.imageURL = w.places.PhotoURL(ref)

	if card.imageURL == "" && w.previewer != nil && detail.Website != "" {
		img, err := w.previewer.ImageURL(ctx, detail.Website)
		if err != nil {
			w.logger.WithError(err).WithField("place_id", p.PlaceID).Debug("Website preview unavailable")
		}
		card.imageURL = img
	}
	if card.imageURL == "" {
		card.imageURL = w.cfg.PlaceholderImageURL
	}
	return card, nil
}

func classify(err error) string {
	switch {
	case domerrors.IsEmptyStore(err):
		return OutcomeEmptyStore
	case domerrors.IsDataUnavailable(err):
		return OutcomeDataError
	case domerrors.IsUpstreamUnavailable(err), errors.Is(err, context.DeadlineExceeded):
		return OutcomeUpstreamErr
	default:
		return OutcomeError
	}
}
