package testutil

import (
	"sort"
	"sync"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"gorm.io/gorm"
)

// MemoryGroupRepository is a goroutine-safe in-memory group store for
// packages that need real membership checks without a database.
type MemoryGroupRepository struct {
	mu      sync.RWMutex
	groups  map[uint]models.Group
	members map[uint]map[uint]bool
	nextID  uint
}

func NewMemoryGroupRepository() *MemoryGroupRepository {
	return &MemoryGroupRepository{
		groups:  make(map[uint]models.Group),
		members: make(map[uint]map[uint]bool),
		nextID:  1,
	}
}

// Seed stores g and adds the given members.
func (m *MemoryGroupRepository) Seed(g models.Group, memberIDs ...uint) models.Group {
	_ = m.Create(&g)
	for _, uid := range memberIDs {
		_ = m.AddMember(g.ID, uid)
	}
	return g
}

func (m *MemoryGroupRepository) Create(group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group.ID == 0 {
		group.ID = m.nextID
	}
	if group.ID >= m.nextID {
		m.nextID = group.ID + 1
	}
	if group.Scope == "" {
		group.Scope = models.ScopeLocal
	}
	m.groups[group.ID] = *group
	return nil
}

func (m *MemoryGroupRepository) CreateBatch(groups []models.Group) error {
	for i := range groups {
		if err := m.Create(&groups[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryGroupRepository) Update(group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.groups[group.ID] = *group
	return nil
}

func (m *MemoryGroupRepository) Delete(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.groups, id)
	delete(m.members, id)
	return nil
}

func (m *MemoryGroupRepository) FindByID(id uint) (*models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &g, nil
}

func (m *MemoryGroupRepository) list(match func(models.Group) bool) []models.Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Group{}
	for _, g := range m.groups {
		if match(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryGroupRepository) ListByChapter(chapter string) ([]models.Group, error) {
	return m.list(func(g models.Group) bool { return g.HSChapter == chapter }), nil
}

func (m *MemoryGroupRepository) ListByScope(scope models.GroupScope) ([]models.Group, error) {
	return m.list(func(g models.Group) bool { return g.Scope == scope }), nil
}

func (m *MemoryGroupRepository) ListAll() ([]models.Group, error) {
	return m.list(func(models.Group) bool { return true }), nil
}

func (m *MemoryGroupRepository) AddMember(groupID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[groupID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if m.members[groupID] == nil {
		m.members[groupID] = make(map[uint]bool)
	}
	m.members[groupID][userID] = true
	return nil
}

func (m *MemoryGroupRepository) RemoveMember(groupID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[groupID], userID)
	return nil
}

func (m *MemoryGroupRepository) IsMember(groupID, userID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.members[groupID][userID], nil
}

func (m *MemoryGroupRepository) FilterMemberGroups(userID uint, groupIDs []uint) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []uint{}
	for _, gid := range groupIDs {
		if m.members[gid][userID] {
			out = append(out, gid)
		}
	}
	return out, nil
}

func (m *MemoryGroupRepository) GetMemberIDs(groupID uint) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []uint{}
	for uid := range m.members[groupID] {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MemoryGroupRepository) GetUserGroups(userID uint) ([]models.Group, error) {
	m.mu.RLock()
	ids := []uint{}
	for gid, set := range m.members {
		if set[userID] {
			ids = append(ids, gid)
		}
	}
	m.mu.RUnlock()
	return m.list(func(g models.Group) bool {
		for _, id := range ids {
			if id == g.ID {
				return true
			}
		}
		return false
	}), nil
}
