package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"scripture-quiz-service/internal/domain"
)

// QuestionLoader fetches questions from the backing store (Postgres, SQLite).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.PublicQuestion, error)
	LoadQuestion(ctx context.Context, id int64) (domain.Question, error)
}

// QuestionRepository caches the listing and individual questions with a TTL
// to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu        sync.RWMutex
	listing   cachedListing
	questions map[int64]cachedQuestion
}

type cachedListing struct {
	questions []domain.PublicQuestion
	expiresAt time.Time
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader:    loader,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: make(map[int64]cachedQuestion),
	}
}

func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	if list, ok := r.cachedListing(); ok {
		return list, nil
	}

	result, err, _ := r.sf.Do("list", func() (interface{}, error) {
		if list, ok := r.cachedListing(); ok {
			return list, nil
		}
		list, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		expiresAt := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		r.listing = cachedListing{questions: list, expiresAt: expiresAt}
		r.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return clonePublic(result.([]domain.PublicQuestion)), nil
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	if q, ok := r.cachedQuestion(id); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do("question:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
		if q, ok := r.cachedQuestion(id); ok {
			return q, nil
		}
		q, err := r.loader.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		expiresAt := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		r.questions[id] = cachedQuestion{question: q, expiresAt: expiresAt}
		r.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (r *QuestionRepository) cachedListing() ([]domain.PublicQuestion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.listing.questions != nil && r.listing.expiresAt.After(r.clock()) {
		return clonePublic(r.listing.questions), true
	}
	return nil, false
}

func (r *QuestionRepository) cachedQuestion(id int64) (domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.questions[id]; ok && entry.expiresAt.After(r.clock()) {
		return entry.question, true
	}
	return domain.Question{}, false
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func clonePublic(in []domain.PublicQuestion) []domain.PublicQuestion {
	return append(make([]domain.PublicQuestion, 0, len(in)), in...)
}

// StaticQuestionLoader is a loader backed by an in-memory slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions map[int64]domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	byID := make(map[int64]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &StaticQuestionLoader{questions: byID}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.PublicQuestion, error) {
	out := make([]domain.PublicQuestion, 0, len(l.questions))
	for _, q := range l.questions {
		out = append(out, q.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, id int64) (domain.Question, error) {
	if q, ok := l.questions[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}
