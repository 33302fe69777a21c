package tutor

import (
	"context"
	"log/slog"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/summary"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// GatherTimeout bounds context assembly before a turn. If the deadline
// passes, the turn proceeds with a degraded bundle rather than failing.
const GatherTimeout = 30 * time.Second

// Retriever supplies study-material context for a query.
type Retriever interface {
	RetrieveContext(ctx context.Context, query string) string
}

// Bundle is everything a chat turn needs beyond the message itself.
type Bundle struct {
	Profile *domain.UserProfile
	Summary string
	Context string

	// FileMode is set when the context came from uploaded files. Uploads
	// always take precedence over retrieval.
	FileMode bool
}

// Aggregator assembles the per-turn context bundle. Profile, summary, and
// retrieval run concurrently under a shared deadline; uploaded content
// short-circuits the retrieval leg entirely.
type Aggregator struct {
	profiles  *profile.Store
	summaries *summary.Store
	retriever Retriever
	uploads   *upload.Cache
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAggregator creates a new context aggregator
func NewAggregator(profiles *profile.Store, summaries *summary.Store, retriever Retriever, uploads *upload.Cache, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		profiles:  profiles,
		summaries: summaries,
		retriever: retriever,
		uploads:   uploads,
		timeout:   GatherTimeout,
		logger:    logger,
	}
}

// Gather builds the context bundle for one turn. The query is the user's
// message; it seeds retrieval only when no uploads are cached.
func (g *Aggregator) Gather(ctx context.Context, userID, query string) (*Bundle, error) {
	if uploaded := g.uploads.Content(userID); uploaded != "" {
		p, err := g.profiles.GetOrCreate(userID)
		if err != nil {
			return nil, err
		}
		return &Bundle{
			Profile:  p,
			Summary:  g.loadSummary(userID),
			Context:  uploaded,
			FileMode: true,
		}, nil
	}

	gctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type profileResult struct {
		p   *domain.UserProfile
		err error
	}
	profCh := make(chan profileResult, 1)
	sumCh := make(chan string, 1)
	ctxCh := make(chan string, 1)

	go func() {
		p, err := g.profiles.GetOrCreate(userID)
		profCh <- profileResult{p, err}
	}()
	go func() {
		sumCh <- g.loadSummary(userID)
	}()
	go func() {
		ctxCh <- g.retriever.RetrieveContext(gctx, query)
	}()

	bundle := &Bundle{}
	for i := 0; i < 3; i++ {
		select {
		case res := <-profCh:
			if res.err != nil {
				return nil, res.err
			}
			bundle.Profile = res.p
		case s := <-sumCh:
			bundle.Summary = s
		case c := <-ctxCh:
			bundle.Context = c
		case <-gctx.Done():
			return g.degraded(userID, gctx.Err())
		}
	}
	return bundle, nil
}

// degraded is the deadline fallback: profile loaded synchronously, summary
// and context empty. The turn still happens.
func (g *Aggregator) degraded(userID string, cause error) (*Bundle, error) {
	g.logger.Error("timeout gathering context", "user_id", userID, "error", cause)
	p, err := g.profiles.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	return &Bundle{Profile: p}, nil
}

func (g *Aggregator) loadSummary(userID string) string {
	s, err := g.summaries.Get(userID)
	if err != nil {
		g.logger.Warn("load summary failed", "user_id", userID, "error", err)
		return ""
	}
	return s
}
