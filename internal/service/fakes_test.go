package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/contract"
	"ai-textassist-be/internal/repository/specification"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/pkg/events"
	"ai-textassist-be/pkg/llm"

	"github.com/google/uuid"
)

// memStore backs every fake repository. LockForUpdate takes a single global lock
// that is held until the owning unit of work commits or rolls back.
type memStore struct {
	mu      sync.Mutex
	rowLock sync.Mutex

	users   map[uuid.UUID]*entity.User
	subs    []*entity.Subscription
	usage   []*entity.UsageRecord
	history []*entity.HistoryRecord
	configs []*entity.AiModelConfig

	failMarkConsumed bool
	configErr        error
	configReads      int32
}

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]*entity.User{}}
}

func (s *memStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUow{store: s}
}

func (s *memStore) addUser(email string) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &entity.User{Id: uuid.New(), Email: email, Role: entity.UserRoleUser, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.users[u.Id] = u
	return u
}

func (s *memStore) addUsage(userId uuid.UUID, date time.Time, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.usage = append(s.usage, &entity.UsageRecord{
			Id: uuid.New(), UserId: userId, ActionType: entity.ActionTypeCorrection,
			UsageDate: date, Status: entity.UsageStatusConsumed,
		})
	}
}

func (s *memStore) addSubscription(sub *entity.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.Id == uuid.Nil {
		sub.Id = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = sub.CreatedAt
	}
	s.subs = append(s.subs, sub)
}

func (s *memStore) usageCount(userId uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.usage {
		if r.UserId == userId {
			n++
		}
	}
	return n
}

func (s *memStore) historyCount(userId uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.history {
		if r.UserId == userId {
			n++
		}
	}
	return n
}

type memUow struct {
	store  *memStore
	inTx   bool
	locked bool
}

func (u *memUow) Begin(ctx context.Context) error {
	if u.inTx {
		return errors.New("transaction already started")
	}
	u.inTx = true
	return nil
}

func (u *memUow) end() error {
	if !u.inTx {
		return errors.New("no transaction")
	}
	u.inTx = false
	if u.locked {
		u.locked = false
		u.store.rowLock.Unlock()
	}
	return nil
}

func (u *memUow) Commit() error   { return u.end() }
func (u *memUow) Rollback() error { return u.end() }

func (u *memUow) UserRepository() contract.UserRepository {
	return &memUserRepo{uow: u}
}
func (u *memUow) SubscriptionRepository() contract.SubscriptionRepository {
	return &memSubRepo{s: u.store}
}
func (u *memUow) UsageRepository() contract.UsageRepository {
	return &memUsageRepo{s: u.store}
}
func (u *memUow) HistoryRepository() contract.HistoryRepository {
	return &memHistoryRepo{s: u.store}
}
func (u *memUow) AiModelConfigRepository() contract.AiModelConfigRepository {
	return &memConfigRepo{s: u.store}
}

// users

type memUserRepo struct{ uow *memUow }

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.Id] = &cp
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *entity.User) error {
	return r.Create(ctx, user)
}

func (r *memUserRepo) match(specs []specification.Specification) []*entity.User {
	s := r.uow.store
	var out []*entity.User
	for _, u := range s.users {
		ok := true
		for _, spec := range specs {
			switch sp := spec.(type) {
			case specification.ByID:
				ok = ok && u.Id == sp.ID
			case specification.ByEmail:
				ok = ok && u.Email == sp.Email
			}
		}
		if ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out
}

func (r *memUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	if m := r.match(specs); len(m) > 0 {
		return m[0], nil
	}
	return nil, nil
}

func (r *memUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	return int64(len(r.match(specs))), nil
}

func (r *memUserRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if !r.uow.inTx {
		return nil, errors.New("lock outside transaction")
	}
	if !r.uow.locked {
		r.uow.store.rowLock.Lock()
		r.uow.locked = true
	}
	return r.FindOne(ctx, specification.ByID{ID: id})
}

// subscriptions

type memSubRepo struct{ s *memStore }

func (r *memSubRepo) Create(ctx context.Context, sub *entity.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	cp := *sub
	r.s.subs = append(r.s.subs, &cp)
	return nil
}

func (r *memSubRepo) Update(ctx context.Context, sub *entity.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.subs {
		if existing.Id == sub.Id {
			sub.CreatedAt = existing.CreatedAt
			sub.UpdatedAt = time.Now()
			cp := *sub
			r.s.subs[i] = &cp
			return nil
		}
	}
	return errors.New("subscription not found")
}

func (r *memSubRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Subscription
	recentFirst := false
	for _, sub := range r.s.subs {
		ok := true
		for _, spec := range specs {
			switch sp := spec.(type) {
			case specification.UserOwnedBy:
				ok = ok && sub.UserId == sp.UserID
			case specification.ByTransactionID:
				ok = ok && sub.TransactionId == sp.TransactionID
			case specification.ByOriginalTransactionID:
				ok = ok && sub.OriginalTransactionId == sp.OriginalTransactionID
			case specification.MostRecentFirst:
				recentFirst = true
			}
		}
		if ok {
			cp := *sub
			out = append(out, &cp)
		}
	}
	if recentFirst {
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].StartsAt.Equal(out[j].StartsAt) {
				return out[i].StartsAt.After(out[j].StartsAt)
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (r *memSubRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// usage

type memUsageRepo struct{ s *memStore }

func (r *memUsageRepo) Create(ctx context.Context, record *entity.UsageRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *record
	r.s.usage = append(r.s.usage, &cp)
	return nil
}

func (r *memUsageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, rec := range r.s.usage {
		ok := true
		for _, spec := range specs {
			switch sp := spec.(type) {
			case specification.UserOwnedBy:
				ok = ok && rec.UserId == sp.UserID
			case specification.ByUsageDate:
				ok = ok && rec.UsageDate.Format("2006-01-02") == sp.Date.Format("2006-01-02")
			case specification.ByActionType:
				ok = ok && string(rec.ActionType) == sp.ActionType
			}
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *memUsageRepo) MarkConsumed(ctx context.Context, id uuid.UUID, model string, promptTokens, completionTokens int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMarkConsumed {
		return errors.New("database unavailable")
	}
	for _, rec := range r.s.usage {
		if rec.Id == id {
			rec.Status = entity.UsageStatusConsumed
			rec.Model = model
			rec.PromptTokens = promptTokens
			rec.CompletionTokens = completionTokens
			return nil
		}
	}
	return errors.New("usage record not found")
}

func (r *memUsageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.usage {
		if rec.Id == id {
			r.s.usage = append(r.s.usage[:i], r.s.usage[i+1:]...)
			return nil
		}
	}
	return nil
}

// history

type memHistoryRepo struct{ s *memStore }

func (r *memHistoryRepo) Create(ctx context.Context, record *entity.HistoryRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record.CreatedAt = time.Now()
	cp := *record
	r.s.history = append(r.s.history, &cp)
	return nil
}

func (r *memHistoryRepo) filter(specs []specification.Specification) []*entity.HistoryRecord {
	var out []*entity.HistoryRecord
	limit, offset := -1, 0
	for _, rec := range r.s.history {
		ok := true
		for _, spec := range specs {
			switch sp := spec.(type) {
			case specification.ByID:
				ok = ok && rec.Id == sp.ID
			case specification.UserOwnedBy:
				ok = ok && rec.UserId == sp.UserID
			case specification.FavoritesOnly:
				ok = ok && rec.IsFavorite
			case specification.Pagination:
				limit, offset = sp.Limit, sp.Offset
			}
		}
		if ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *memHistoryRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m := r.filter(specs); len(m) > 0 {
		return m[0], nil
	}
	return nil, nil
}

func (r *memHistoryRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(specs), nil
}

func (r *memHistoryRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filter(specs))), nil
}

func (r *memHistoryRepo) SetFavorite(ctx context.Context, id uuid.UUID, isFavorite bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.history {
		if rec.Id == id {
			rec.IsFavorite = isFavorite
		}
	}
	return nil
}

func (r *memHistoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.history {
		if rec.Id == id {
			r.s.history = append(r.s.history[:i], r.s.history[i+1:]...)
			return nil
		}
	}
	return nil
}

// model configs

type memConfigRepo struct{ s *memStore }

func (r *memConfigRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AiModelConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	atomic.AddInt32(&r.s.configReads, 1)
	if r.s.configErr != nil {
		return nil, r.s.configErr
	}
	var out []*entity.AiModelConfig
	for _, c := range r.s.configs {
		ok := true
		for _, spec := range specs {
			if sp, isFT := spec.(specification.ByFeatureTier); isFT {
				ok = ok && c.Feature == sp.Feature && c.Tier == sp.Tier
			}
		}
		if ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memConfigRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AiModelConfig, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *memConfigRepo) Upsert(ctx context.Context, cfg *entity.AiModelConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg.UpdatedAt = time.Now()
	for _, c := range r.s.configs {
		if c.Feature == cfg.Feature && c.Tier == cfg.Tier {
			c.Model = cfg.Model
			c.UpdatedAt = cfg.UpdatedAt
			return nil
		}
	}
	if cfg.Id == uuid.Nil {
		cfg.Id = uuid.New()
	}
	cp := *cfg
	r.s.configs = append(r.s.configs, &cp)
	return nil
}

// provider

type fakeProvider struct {
	calls   int32
	content string
	err     error
	delay   time.Duration
	lastReq llm.Request
	mu      sync.Mutex
}

func (p *fakeProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.lastReq = req
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content, Model: req.Model, PromptTokens: 12, CompletionTokens: 7}, nil
}

func (p *fakeProvider) Calls() int {
	return int(atomic.LoadInt32(&p.calls))
}

// publisher

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}
