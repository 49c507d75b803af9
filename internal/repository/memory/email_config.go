package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type emailConfigStore struct{ s *Store }

func (r emailConfigStore) GetSettings(_ context.Context) (*domain.EmailSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if r.s.settings == nil {
		return nil, pgx.ErrNoRows
	}
	out := *r.s.settings
	return &out, nil
}

func (r emailConfigStore) SaveSettings(_ context.Context, settings *domain.EmailSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	settings.UpdatedAt = r.s.now()
	stored := *settings
	r.s.settings = &stored
	return nil
}

func (r emailConfigStore) ListTemplates(_ context.Context) ([]domain.EmailTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.EmailTemplate, 0, len(r.s.templates))
	for _, tpl := range r.s.templates {
		result = append(result, *tpl)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r emailConfigStore) GetTemplate(_ context.Context, id string) (*domain.EmailTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tpl, ok := r.s.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *tpl
	return &out, nil
}

func (r emailConfigStore) CreateTemplate(_ context.Context, tpl *domain.EmailTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tpl.ID = uuid.NewString()
	tpl.UpdatedAt = r.s.now()
	stored := *tpl
	r.s.templates[tpl.ID] = &stored
	return nil
}

func (r emailConfigStore) UpdateTemplate(_ context.Context, tpl *domain.EmailTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[tpl.ID]; !ok {
		return pgx.ErrNoRows
	}
	tpl.UpdatedAt = r.s.now()
	stored := *tpl
	r.s.templates[tpl.ID] = &stored
	return nil
}

func (r emailConfigStore) DeleteTemplate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.templates, id)
	return nil
}

func (r emailConfigStore) ListRules(_ context.Context) ([]domain.NotificationRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.NotificationRule, 0, len(r.s.rules))
	for _, rule := range r.s.rules {
		result = append(result, *rule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event < result[j].Event })
	return result, nil
}

func (r emailConfigStore) GetRule(_ context.Context, event string) (*domain.NotificationRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rule, ok := r.s.rules[event]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *rule
	return &out, nil
}

func (r emailConfigStore) SaveRule(_ context.Context, rule *domain.NotificationRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *rule
	r.s.rules[rule.Event] = &stored
	return nil
}

func (r emailConfigStore) GetFrequency(_ context.Context) (*domain.FrequencyRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if r.s.frequency == nil {
		return nil, pgx.ErrNoRows
	}
	out := *r.s.frequency
	return &out, nil
}

func (r emailConfigStore) SaveFrequency(_ context.Context, rule *domain.FrequencyRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *rule
	r.s.frequency = &stored
	return nil
}
