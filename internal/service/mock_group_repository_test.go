package service

import (
	"errors"
	"sort"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"gorm.io/gorm"
)

// MockGroupRepository is a mock implementation for tests
// It implements repository.GroupRepositoryInterface.
type MockGroupRepository struct {
	groups      map[uint]*models.Group
	memberships map[uint]map[uint]bool
	nextID      uint
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		groups:      make(map[uint]*models.Group),
		memberships: make(map[uint]map[uint]bool),
		nextID:      1,
	}
}

// seed adds a group with the given members.
func (m *MockGroupRepository) seed(g models.Group, members ...uint) *models.Group {
	_ = m.Create(&g)
	for _, uid := range members {
		_ = m.AddMember(g.ID, uid)
	}
	return m.groups[g.ID]
}

func (m *MockGroupRepository) Create(group *models.Group) error {
	if group.ID == 0 {
		group.ID = m.nextID
		m.nextID++
	} else if group.ID >= m.nextID {
		m.nextID = group.ID + 1
	}
	cp := *group
	m.groups[group.ID] = &cp
	return nil
}

func (m *MockGroupRepository) CreateBatch(groups []models.Group) error {
	for i := range groups {
		if err := m.Create(&groups[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockGroupRepository) Update(group *models.Group) error {
	if _, ok := m.groups[group.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *group
	m.groups[group.ID] = &cp
	return nil
}

func (m *MockGroupRepository) Delete(id uint) error {
	if _, ok := m.groups[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.groups, id)
	delete(m.memberships, id)
	return nil
}

func (m *MockGroupRepository) FindByID(id uint) (*models.Group, error) {
	if g, ok := m.groups[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockGroupRepository) list(match func(*models.Group) bool) []models.Group {
	var out []models.Group
	for _, g := range m.groups {
		if match(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockGroupRepository) ListByChapter(chapter string) ([]models.Group, error) {
	return m.list(func(g *models.Group) bool { return g.HSChapter == chapter }), nil
}

func (m *MockGroupRepository) ListByScope(scope models.GroupScope) ([]models.Group, error) {
	return m.list(func(g *models.Group) bool { return g.Scope == scope }), nil
}

func (m *MockGroupRepository) ListAll() ([]models.Group, error) {
	return m.list(func(*models.Group) bool { return true }), nil
}

func (m *MockGroupRepository) AddMember(groupID, userID uint) error {
	if _, ok := m.groups[groupID]; !ok {
		return errors.New("foreign key violation")
	}
	if _, ok := m.memberships[groupID]; !ok {
		m.memberships[groupID] = make(map[uint]bool)
	}
	m.memberships[groupID][userID] = true
	return nil
}

func (m *MockGroupRepository) RemoveMember(groupID, userID uint) error {
	if gm, ok := m.memberships[groupID]; ok {
		delete(gm, userID)
	}
	return nil
}

func (m *MockGroupRepository) IsMember(groupID, userID uint) (bool, error) {
	if _, ok := m.groups[groupID]; !ok {
		return false, nil
	}
	return m.memberships[groupID][userID], nil
}

func (m *MockGroupRepository) FilterMemberGroups(userID uint, groupIDs []uint) ([]uint, error) {
	out := []uint{}
	for _, gid := range groupIDs {
		if ok, _ := m.IsMember(gid, userID); ok {
			out = append(out, gid)
		}
	}
	return out, nil
}

func (m *MockGroupRepository) GetMemberIDs(groupID uint) ([]uint, error) {
	out := []uint{}
	for uid := range m.memberships[groupID] {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MockGroupRepository) GetUserGroups(userID uint) ([]models.Group, error) {
	return m.list(func(g *models.Group) bool { return m.memberships[g.ID][userID] }), nil
}
