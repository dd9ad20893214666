package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/storage"
	"gorm.io/gorm"
)

// MockUserRepository is a mock implementation of UserRepositoryInterface
type MockUserRepository struct {
	users map[uint]*models.User
}

func NewMockUserRepository(users ...models.User) *MockUserRepository {
	m := &MockUserRepository{users: make(map[uint]*models.User)}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *MockUserRepository) EnsureExists(user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		cp := *user
		m.users[user.ID] = &cp
	}
	return nil
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

// MockLeadRepository keeps leads in memory and mimics the guarded updates
// of the real repository.
type MockLeadRepository struct {
	leads     map[uint]*models.Lead
	seqs      map[uint]uint64
	nextID    uint
	nextDocID uint
	createErr error
}

func NewMockLeadRepository() *MockLeadRepository {
	return &MockLeadRepository{
		leads:     make(map[uint]*models.Lead),
		seqs:      make(map[uint]uint64),
		nextID:    1,
		nextDocID: 1,
	}
}

func (m *MockLeadRepository) Create(lead *models.Lead) error {
	if m.createErr != nil {
		return m.createErr
	}
	lead.ID = m.nextID
	m.nextID++
	lead.CreatedAt = time.Now()
	for i := range lead.Documents {
		lead.Documents[i].ID = m.nextDocID
		lead.Documents[i].LeadID = lead.ID
		m.nextDocID++
	}
	m.leads[lead.ID] = cloneLead(lead)
	return nil
}

func (m *MockLeadRepository) FindByID(id uint) (*models.Lead, error) {
	if l, ok := m.leads[id]; ok {
		return cloneLead(l), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockLeadRepository) Approve(id, adminID uint, comment string, at time.Time) (*models.Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if l.Status != models.LeadPending {
		return nil, repository.ErrStaleTransition
	}
	m.seqs[l.GroupID]++
	l.Status = models.LeadApproved
	l.AdminComment = comment
	l.ModeratedBy = &adminID
	l.ModeratedAt = &at
	l.Sequence = m.seqs[l.GroupID]
	return cloneLead(l), nil
}

func (m *MockLeadRepository) Reject(id, adminID uint, comment string, at time.Time) (*models.Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if l.Status != models.LeadPending {
		return nil, repository.ErrStaleTransition
	}
	l.Status = models.LeadRejected
	l.AdminComment = comment
	l.ModeratedBy = &adminID
	l.ModeratedAt = &at
	return cloneLead(l), nil
}

func (m *MockLeadRepository) TransitionBroadcast(id uint, from, to models.BroadcastState, at time.Time) (*models.Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if l.Status != models.LeadApproved || l.Broadcast != from {
		return nil, repository.ErrStaleTransition
	}
	l.Broadcast = to
	if to == models.BroadcastApproved {
		l.BroadcastAt = &at
	}
	return cloneLead(l), nil
}

func (m *MockLeadRepository) filter(match func(*models.Lead) bool) []models.Lead {
	var out []models.Lead
	for _, l := range m.leads {
		if match(l) {
			out = append(out, *cloneLead(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func limitLeads(leads []models.Lead, limit int) []models.Lead {
	if limit > 0 && len(leads) > limit {
		return leads[:limit]
	}
	return leads
}

func (m *MockLeadRepository) ListApproved(groupID uint, afterSeq, beforeSeq uint64, limit int) ([]models.Lead, error) {
	out := m.filter(func(l *models.Lead) bool {
		if l.GroupID != groupID || l.Status != models.LeadApproved {
			return false
		}
		if beforeSeq > 0 {
			return l.Sequence < beforeSeq
		}
		return l.Sequence > afterSeq
	})
	sort.Slice(out, func(i, j int) bool {
		if beforeSeq > 0 {
			return out[i].Sequence > out[j].Sequence
		}
		return out[i].Sequence < out[j].Sequence
	})
	return limitLeads(out, limit), nil
}

func (m *MockLeadRepository) ListByAuthor(authorID uint, limit int) ([]models.Lead, error) {
	return limitLeads(m.filter(func(l *models.Lead) bool { return l.AuthorID == authorID }), limit), nil
}

func (m *MockLeadRepository) ListByStatus(status models.LeadStatus, limit int) ([]models.Lead, error) {
	return limitLeads(m.filter(func(l *models.Lead) bool { return l.Status == status }), limit), nil
}

func (m *MockLeadRepository) ListBroadcastPending(limit int) ([]models.Lead, error) {
	return limitLeads(m.filter(func(l *models.Lead) bool {
		return l.Status == models.LeadApproved && l.Broadcast == models.BroadcastPending
	}), limit), nil
}

func (m *MockLeadRepository) ListMarquee(limit int) ([]models.Lead, error) {
	return limitLeads(m.filter(func(l *models.Lead) bool {
		return l.Status == models.LeadApproved && l.Broadcast == models.BroadcastApproved
	}), limit), nil
}

func (m *MockLeadRepository) FindDocumentsByKey(key string) ([]models.LeadDocument, error) {
	var out []models.LeadDocument
	for _, l := range m.filter(func(*models.Lead) bool { return true }) {
		for _, d := range l.Documents {
			if d.Key == key {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func cloneLead(l *models.Lead) *models.Lead {
	cp := *l
	cp.Documents = append([]models.LeadDocument(nil), l.Documents...)
	return &cp
}

// MockUnreadRepository derives membership from a MockGroupRepository the
// way the real INSERT ... SELECT reads group_members.
type MockUnreadRepository struct {
	groups *MockGroupRepository
	rows   map[[2]uint]*models.GroupUnread
}

func NewMockUnreadRepository(groups *MockGroupRepository) *MockUnreadRepository {
	return &MockUnreadRepository{groups: groups, rows: make(map[[2]uint]*models.GroupUnread)}
}

func (m *MockUnreadRepository) row(groupID, userID uint) *models.GroupUnread {
	key := [2]uint{groupID, userID}
	r, ok := m.rows[key]
	if !ok {
		r = &models.GroupUnread{GroupID: groupID, UserID: userID}
		m.rows[key] = r
	}
	return r
}

func (m *MockUnreadRepository) EnsureForMember(groupID, userID uint) error {
	m.row(groupID, userID)
	return nil
}

func (m *MockUnreadRepository) DeleteForMember(groupID, userID uint) error {
	delete(m.rows, [2]uint{groupID, userID})
	return nil
}

func (m *MockUnreadRepository) DeleteForGroup(groupID uint) error {
	for key := range m.rows {
		if key[0] == groupID {
			delete(m.rows, key)
		}
	}
	return nil
}

func (m *MockUnreadRepository) IncrementExcept(groupID uint, leadType models.LeadType, exclude []uint) ([]models.GroupUnread, error) {
	skip := make(map[uint]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	members, _ := m.groups.GetMemberIDs(groupID)
	var out []models.GroupUnread
	for _, uid := range members {
		if skip[uid] {
			continue
		}
		r := m.row(groupID, uid)
		if leadType == models.LeadBuy {
			r.UnreadBuyCount++
		} else {
			r.UnreadSellCount++
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *MockUnreadRepository) Reset(groupID, userID uint) error {
	r := m.row(groupID, userID)
	r.UnreadBuyCount = 0
	r.UnreadSellCount = 0
	return nil
}

func (m *MockUnreadRepository) Get(groupID, userID uint) (*models.GroupUnread, error) {
	if r, ok := m.rows[[2]uint{groupID, userID}]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUnreadRepository) ListByUser(userID uint) ([]models.GroupUnread, error) {
	var out []models.GroupUnread
	for key, r := range m.rows {
		if key[1] != userID {
			continue
		}
		if _, err := m.groups.FindByID(key[0]); err != nil {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// MockDirectChatRepository is a mock implementation of DirectChatRepositoryInterface
type MockDirectChatRepository struct {
	chats     map[uint]*models.DirectChat
	messages  map[uint]*models.DirectMessage
	nextChat  uint
	nextMsgID uint
}

func NewMockDirectChatRepository() *MockDirectChatRepository {
	return &MockDirectChatRepository{
		chats:     make(map[uint]*models.DirectChat),
		messages:  make(map[uint]*models.DirectMessage),
		nextChat:  1,
		nextMsgID: 1,
	}
}

func (m *MockDirectChatRepository) FindOrCreate(userA, userB uint) (*models.DirectChat, bool, error) {
	a, b := models.OrderedPair(userA, userB)
	for _, c := range m.chats {
		if c.UserAID == a && c.UserBID == b {
			cp := *c
			return &cp, false, nil
		}
	}
	c := &models.DirectChat{ID: m.nextChat, UserAID: a, UserBID: b}
	m.nextChat++
	m.chats[c.ID] = c
	cp := *c
	return &cp, true, nil
}

func (m *MockDirectChatRepository) FindByID(id uint) (*models.DirectChat, error) {
	if c, ok := m.chats[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockDirectChatRepository) ListForUser(userID uint, limit int) ([]models.DirectChat, error) {
	var out []models.DirectChat
	for _, c := range m.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockDirectChatRepository) AppendMessage(msg *models.DirectMessage, receiverID uint, bumpUnread bool) (*models.DirectChat, error) {
	c, ok := m.chats[msg.ChatID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	msg.ID = m.nextMsgID
	m.nextMsgID++
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages[msg.ID] = &cp

	c.LastMessageID = &cp.ID
	c.LastMessageContent = msg.Content
	c.LastMessageSenderID = &cp.SenderID
	c.LastMessageAt = &cp.CreatedAt
	if bumpUnread {
		if receiverID == c.UserAID {
			c.UnreadA++
		} else {
			c.UnreadB++
		}
	}
	out := *c
	return &out, nil
}

func (m *MockDirectChatRepository) FindMessageByID(id uint) (*models.DirectMessage, error) {
	if msg, ok := m.messages[id]; ok {
		cp := *msg
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockDirectChatRepository) FindMessageByClientID(senderID uint, clientID string) (*models.DirectMessage, error) {
	for _, msg := range m.messages {
		if msg.SenderID == senderID && msg.ClientID == clientID {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockDirectChatRepository) ListMessages(chatID uint, beforeID uint, limit int) ([]models.DirectMessage, error) {
	var out []models.DirectMessage
	for _, msg := range m.messages {
		if msg.ChatID == chatID && (beforeID == 0 || msg.ID < beforeID) {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockDirectChatRepository) ResetUnread(chatID, userID uint) error {
	c, ok := m.chats[chatID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if userID == c.UserAID {
		c.UnreadA = 0
	} else if userID == c.UserBID {
		c.UnreadB = 0
	}
	return nil
}

// emitted is one recorded Emit call.
type emitted struct {
	target  Target
	event   string
	payload interface{}
}

// recordingNotifier captures emits in order.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []emitted
}

func (n *recordingNotifier) Emit(target Target, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, emitted{target: target, event: event, payload: payload})
}

func (n *recordingNotifier) byEvent(event string) []emitted {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []emitted
	for _, c := range n.calls {
		if c.event == event {
			out = append(out, c)
		}
	}
	return out
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.event)
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	n.calls = nil
	n.mu.Unlock()
}

func targetsRoom(t Target, room events.Room) bool {
	for _, r := range t.Rooms {
		if r == room {
			return true
		}
	}
	return false
}

func targetsUser(t Target, userID uint) bool {
	for _, u := range t.Users {
		if u == userID {
			return true
		}
	}
	return false
}

// memStore is an in-memory storage.ObjectStore.
type memStore struct {
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) PutObject(_ context.Context, key string, body io.Reader, _ int64, contentType string) (storage.ObjectStat, error) {
	if s.putErr != nil {
		return storage.ObjectStat{}, s.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectStat{}, err
	}
	if _, exists := s.objects[key]; exists {
		return storage.ObjectStat{}, fmt.Errorf("object %s already exists", key)
	}
	s.objects[key] = data
	return storage.ObjectStat{Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *memStore) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

var (
	_ repository.UserRepositoryInterface       = (*MockUserRepository)(nil)
	_ repository.GroupRepositoryInterface      = (*MockGroupRepository)(nil)
	_ repository.LeadRepositoryInterface       = (*MockLeadRepository)(nil)
	_ repository.UnreadRepositoryInterface     = (*MockUnreadRepository)(nil)
	_ repository.DirectChatRepositoryInterface = (*MockDirectChatRepository)(nil)
	_ storage.ObjectStore                      = (*memStore)(nil)
	_ Notifier                                 = (*recordingNotifier)(nil)
)
