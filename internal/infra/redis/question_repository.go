package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"scripture-quiz-service/internal/domain"
)

// QuestionLoader fetches questions from the backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.PublicQuestion, error)
	LoadQuestion(ctx context.Context, id int64) (domain.Question, error)
}

// QuestionRepository caches questions in Redis and falls back to a loader on cache miss.
// The public listing is stored as:   SET questions:public <json array>
// Questions with their answer key:  SET questions:q:{questionID} <json>
// Every key carries its own TTL.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// cachedQuestion is the Redis representation; the answer key never leaves the server.
type cachedQuestion struct {
	Public       domain.PublicQuestion `json:"public"`
	CorrectIndex *int                  `json:"correctIndex,omitempty"`
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const (
	listingKey     = "questions:public"
	questionPrefix = "questions:q:"
)

func questionKey(id int64) string {
	return questionPrefix + strconv.FormatInt(id, 10)
}

func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	if list, ok := r.cachedListing(ctx); ok {
		return list, nil
	}

	result, err, _ := r.sf.Do("list", func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if list, ok := r.cachedListing(ctx); ok {
			return list, nil
		}
		list, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(list); err == nil {
			_ = r.client.Set(ctx, listingKey, raw, r.ttlWithJitter()).Err()
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.PublicQuestion), nil
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	key := questionKey(id)
	if q, ok := r.cachedQuestion(ctx, key); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if q, ok := r.cachedQuestion(ctx, key); ok {
			return q, nil
		}
		q, err := r.loader.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		raw, err := json.Marshal(cachedQuestion{Public: q.PublicQuestion, CorrectIndex: q.CorrectIndex})
		if err != nil {
			return q, nil
		}
		_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// Invalidate drops every cached question, e.g. after seeding.
func (r *QuestionRepository) Invalidate(ctx context.Context) error {
	keys := []string{listingKey}
	iter := r.client.Scan(ctx, 0, questionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan question cache: %w", err)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate question cache: %w", err)
	}
	return nil
}

func (r *QuestionRepository) cachedListing(ctx context.Context) ([]domain.PublicQuestion, bool) {
	raw, err := r.client.Get(ctx, listingKey).Bytes()
	if err != nil {
		return nil, false
	}
	var list []domain.PublicQuestion
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

func (r *QuestionRepository) cachedQuestion(ctx context.Context, key string) (domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var cached cachedQuestion
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.Question{}, false
	}
	return domain.Question{PublicQuestion: cached.Public, CorrectIndex: cached.CorrectIndex}, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
