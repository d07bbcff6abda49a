package stores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youssefsiam38/flowent-gateway/models"
)

// MemoryStore keeps everything in process. Each tenant's actions live in
// their own partition so writers for different tenants do not contend.
// Returned records are copies.
type MemoryStore struct {
	mu         sync.RWMutex
	tenants    map[string]*models.Tenant
	tokens     map[string]*models.APIToken
	byPrint    map[string]string
	hmacKeys   map[string][]*models.HMACKey
	partitions map[string]*actionPartition
	seq        uint64
	seqMu      sync.Mutex
}

type actionPartition struct {
	mu      sync.RWMutex
	actions map[string]*models.Action
}

func CreateMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:    make(map[string]*models.Tenant),
		tokens:     make(map[string]*models.APIToken),
		byPrint:    make(map[string]string),
		hmacKeys:   make(map[string][]*models.HMACKey),
		partitions: make(map[string]*actionPartition),
	}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) CreateTenant(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if _, exists := s.tenants[tenant.ID]; exists {
		return ErrDuplicate
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	c := *tenant
	s.tenants[tenant.ID] = &c
	return nil
}

func (s *MemoryStore) GetTenant(_ context.Context, id string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *tenant
	return &c, nil
}

func (s *MemoryStore) ListTenants(context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateAPIToken(_ context.Context, token *models.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if _, exists := s.byPrint[token.Fingerprint]; exists {
		return ErrDuplicate
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	c := *token
	s.tokens[token.ID] = &c
	s.byPrint[token.Fingerprint] = token.ID
	return nil
}

func (s *MemoryStore) GetAPITokenByFingerprint(_ context.Context, fingerprint string) (*models.APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPrint[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	c := *s.tokens[id]
	return &c, nil
}

func (s *MemoryStore) ListAPITokens(_ context.Context, tenantID string) ([]*models.APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.APIToken, 0)
	for _, t := range s.tokens {
		if t.TenantID == tenantID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) RevokeAPIToken(_ context.Context, tenantID, tokenID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[tokenID]
	if !ok || token.TenantID != tenantID {
		return ErrNotFound
	}
	token.Revoked = true
	token.RevokedAt = &at
	return nil
}

func (s *MemoryStore) RotateHMACKey(_ context.Context, tenantID string, key *models.HMACKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	keys := s.hmacKeys[tenantID]
	for _, k := range keys {
		if k.Active {
			k.Active = false
			retired := now
			k.RetiredAt = &retired
		}
	}

	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	key.TenantID = tenantID
	key.Version = len(keys) + 1
	key.Active = true
	if key.CreatedAt.IsZero() {
		key.CreatedAt = now
	}
	c := *key
	s.hmacKeys[tenantID] = append(keys, &c)
	return nil
}

func (s *MemoryStore) GetActiveHMACKey(_ context.Context, tenantID string) (*models.HMACKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.hmacKeys[tenantID]
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i].Active {
			c := *keys[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) partition(tenantID string, create bool) *actionPartition {
	s.mu.RLock()
	p, ok := s.partitions[tenantID]
	s.mu.RUnlock()
	if ok || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.partitions[tenantID]; !ok {
		p = &actionPartition{actions: make(map[string]*models.Action)}
		s.partitions[tenantID] = p
	}
	return p
}

func (s *MemoryStore) nextID() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}

func (s *MemoryStore) CreateAction(_ context.Context, tenantID string, action *models.Action, limit int) error {
	p := s.partition(tenantID, true)
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.actions[action.Name]; exists {
		return ErrDuplicate
	}
	if limit > 0 && len(p.actions) >= limit {
		return ErrQuotaExceeded
	}

	now := time.Now().UTC()
	action.ID = s.nextID()
	action.TenantID = tenantID
	action.CreatedAt = now
	action.UpdatedAt = now
	p.actions[action.Name] = action.Clone()
	return nil
}

func (s *MemoryStore) GetAction(_ context.Context, tenantID, name string) (*models.Action, error) {
	p := s.partition(tenantID, false)
	if p == nil {
		return nil, ErrNotFound
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	action, ok := p.actions[name]
	if !ok {
		return nil, ErrNotFound
	}
	return action.Clone(), nil
}

func (s *MemoryStore) ListActions(_ context.Context, tenantID string) ([]*models.Action, error) {
	out := make([]*models.Action, 0)
	p := s.partition(tenantID, false)
	if p == nil {
		return out, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, a := range p.actions {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountActions(_ context.Context, tenantID string) (int, error) {
	p := s.partition(tenantID, false)
	if p == nil {
		return 0, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.actions), nil
}

func (s *MemoryStore) UpdateAction(_ context.Context, tenantID string, action *models.Action) error {
	p := s.partition(tenantID, false)
	if p == nil {
		return ErrNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.actions[action.Name]
	if !ok {
		return ErrNotFound
	}
	if action.UpdatedAt.IsZero() {
		action.UpdatedAt = time.Now().UTC()
	}
	updated := current.Clone()
	updated.Description = action.Description
	updated.WebhookURL = action.WebhookURL
	updated.JSONSchema = action.JSONSchema
	updated.UpdatedAt = action.UpdatedAt
	p.actions[action.Name] = updated.Clone()
	return nil
}

func (s *MemoryStore) DeleteAction(_ context.Context, tenantID, name string) error {
	p := s.partition(tenantID, false)
	if p == nil {
		return ErrNotFound
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.actions[name]; !ok {
		return ErrNotFound
	}
	delete(p.actions, name)
	return nil
}
