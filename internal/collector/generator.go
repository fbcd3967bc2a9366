package collector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var postNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/couchcryptid/threat-signal-etl/posts"))

// scenario is a trending event and the posts people write about it.
type scenario struct {
	Name  string
	Posts []string
}

// generator produces synthetic posts: a share of them about one or two active
// scenarios and the rest background noise.
type generator struct {
	name       string
	userPrefix string
	eventShare float64
	maxAge     time.Duration
	scenarios  map[domain.Language][]scenario
	noise      map[domain.Language][]string

	clock clockwork.Clock
	mu    sync.Mutex
	rng   *rand.Rand
	seed  uint64
	seq   int
}

func newGenerator(name string, seed uint64, clock clockwork.Clock) *generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &generator{
		name:  name,
		clock: clock,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed:  seed,
	}
}

func (g *generator) Name() string { return g.name }

func (g *generator) Collect(_ context.Context, lang domain.Language, limit int) ([]domain.Post, error) {
	events, ok := g.scenarios[lang]
	if !ok || len(events) == 0 {
		return nil, newError(g.name, ReasonUnavailable, fmt.Errorf("no scenarios for language %q", lang))
	}
	noise := g.noise[lang]

	g.mu.Lock()
	defer g.mu.Unlock()

	active := g.pickActive(events)
	now := g.clock.Now().UTC()

	posts := make([]domain.Post, 0, limit)
	for range limit {
		var text string
		if len(noise) == 0 || g.rng.Float64() < g.eventShare {
			ev := active[g.rng.IntN(len(active))]
			text = ev.Posts[g.rng.IntN(len(ev.Posts))]
		} else {
			text = noise[g.rng.IntN(len(noise))]
		}

		g.seq++
		id := uuid.NewSHA1(postNamespace, fmt.Appendf(nil, "%s|%d|%d", g.name, g.seed, g.seq))
		age := time.Duration(g.rng.Int64N(int64(g.maxAge/time.Second)+1)) * time.Second

		posts = append(posts, domain.Post{
			ID:        g.name + "-" + id.String(),
			Text:      text,
			Language:  lang,
			Platform:  g.name,
			Timestamp: now.Add(-age),
			User:      fmt.Sprintf("%s_%d", g.userPrefix, 1000+g.rng.IntN(9000)),
		})
	}
	return posts, nil
}

// pickActive samples one or two distinct scenarios.
func (g *generator) pickActive(events []scenario) []scenario {
	n := 1 + g.rng.IntN(2)
	if n > len(events) {
		n = len(events)
	}
	idx := g.rng.Perm(len(events))[:n]
	active := make([]scenario, n)
	for i, j := range idx {
		active[i] = events[j]
	}
	return active
}
