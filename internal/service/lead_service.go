package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/config"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/metrics"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/storage"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/validation"
)

// LeadFields are the author-supplied fields of a lead.
type LeadFields struct {
	Type                 string `json:"type" form:"type" validate:"required,oneof=buy sell"`
	HSCode               string `json:"hsCode" form:"hsCode" validate:"required,hscode"`
	Description          string `json:"description" form:"description" validate:"required,max=4000"`
	Quantity             string `json:"quantity" form:"quantity" validate:"required,max=120"`
	Packing              string `json:"packing" form:"packing" validate:"required,max=120"`
	TargetPrice          string `json:"targetPrice" form:"targetPrice" validate:"required,max=120"`
	Negotiable           bool   `json:"negotiable" form:"negotiable"`
	BuyerDeliveryAddress string `json:"buyerDeliveryAddress" form:"buyerDeliveryAddress" validate:"required_if=Type buy,max=1000"`
	SellerPickupAddress  string `json:"sellerPickupAddress" form:"sellerPickupAddress" validate:"required_if=Type sell,max=1000"`
}

func (f *LeadFields) normalize() {
	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	f.HSCode = validation.NormalizeHSCode(f.HSCode)
	f.Description = strings.TrimSpace(f.Description)
	f.Quantity = strings.TrimSpace(f.Quantity)
	f.Packing = strings.TrimSpace(f.Packing)
	f.TargetPrice = strings.TrimSpace(f.TargetPrice)
	f.BuyerDeliveryAddress = strings.TrimSpace(f.BuyerDeliveryAddress)
	f.SellerPickupAddress = strings.TrimSpace(f.SellerPickupAddress)
}

// LeadPatch holds the fields a resend overrides. Nil fields are copied
// from the rejected lead.
type LeadPatch struct {
	Type                 *string `json:"type"`
	HSCode               *string `json:"hsCode"`
	Description          *string `json:"description"`
	Quantity             *string `json:"quantity"`
	Packing              *string `json:"packing"`
	TargetPrice          *string `json:"targetPrice"`
	Negotiable           *bool   `json:"negotiable"`
	BuyerDeliveryAddress *string `json:"buyerDeliveryAddress"`
	SellerPickupAddress  *string `json:"sellerPickupAddress"`
}

func (p LeadPatch) apply(base LeadFields) LeadFields {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.Type, p.Type)
	set(&base.HSCode, p.HSCode)
	set(&base.Description, p.Description)
	set(&base.Quantity, p.Quantity)
	set(&base.Packing, p.Packing)
	set(&base.TargetPrice, p.TargetPrice)
	set(&base.BuyerDeliveryAddress, p.BuyerDeliveryAddress)
	set(&base.SellerPickupAddress, p.SellerPickupAddress)
	if p.Negotiable != nil {
		base.Negotiable = *p.Negotiable
	}
	return base
}

type ResendInput struct {
	LeadPatch
	// RetainDocuments lists the ids of the original's documents to carry
	// over. Nil keeps all of them; an empty list keeps none.
	RetainDocuments []uint `json:"retainDocuments"`
}

type DocumentUpload struct {
	FileName string
	Body     io.Reader
}

type LeadOptions struct {
	BroadcastScope   string
	MaxDocuments     int
	MaxDocumentBytes int64
	MediaBaseURL     string
}

type LeadService struct {
	leadRepo  repository.LeadRepositoryInterface
	groupRepo repository.GroupRepositoryInterface
	unread    *UnreadService
	notifier  Notifier
	store     storage.ObjectStore
	opts      LeadOptions
	now       func() time.Time
}

func NewLeadService(
	leadRepo repository.LeadRepositoryInterface,
	groupRepo repository.GroupRepositoryInterface,
	unread *UnreadService,
	notifier Notifier,
	store storage.ObjectStore,
	opts LeadOptions,
) *LeadService {
	if opts.BroadcastScope == "" {
		opts.BroadcastScope = config.BroadcastScopeChapter
	}
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = 5
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = 10 << 20
	}
	opts.MediaBaseURL = strings.TrimRight(opts.MediaBaseURL, "/")
	return &LeadService{
		leadRepo:  leadRepo,
		groupRepo: groupRepo,
		unread:    unread,
		notifier:  orNop(notifier),
		store:     store,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *LeadService) SetNotifier(n Notifier) {
	s.notifier = orNop(n)
}

// Submit validates and stores a pending lead. Nothing is emitted: pending
// leads are invisible to the group.
func (s *LeadService) Submit(ctx context.Context, authorID, groupID uint, fields LeadFields, docs []DocumentUpload) (*models.Lead, error) {
	fields.normalize()
	if errs := validation.Struct(fields); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	if err := s.requireMember(groupID, authorID); err != nil {
		return nil, err
	}
	prepared, err := s.readDocuments(docs, 0)
	if err != nil {
		return nil, err
	}

	lead := newLead(authorID, groupID, fields)
	if err := s.storeAndCreate(ctx, lead, prepared); err != nil {
		return nil, err
	}
	logging.Info().Uint("lead_id", lead.ID).Uint("group_id", groupID).Uint("user_id", authorID).Msg("lead submitted")
	return s.reload(lead.ID)
}

// Approve publishes a pending lead. The row is committed with its group
// sequence before the room hears about it, so a history fetch triggered by
// the event always contains the lead. Counters are bumped afterwards.
func (s *LeadService) Approve(leadID, adminID uint, comment string) (*models.Lead, error) {
	lead, err := s.leadRepo.Approve(leadID, adminID, strings.TrimSpace(comment), s.now())
	if err != nil {
		return nil, transitionErr(err)
	}
	metrics.LeadsModerated.WithLabelValues("approve").Inc()
	s.withURLs(lead)

	group, err := s.groupRepo.FindByID(lead.GroupID)
	if err != nil {
		// Group deleted concurrently; the lead is approved but has no room.
		logging.Warn().Err(err).Uint("lead_id", lead.ID).Msg("approved lead has no live group")
		s.notifyAuthor(lead)
		return lead, nil
	}

	s.notifier.Emit(ToRoom(events.GroupRoom(group.ID)), events.ApprovedLeadEvent(group.Scope), lead.ToResponse())

	if _, err := s.unread.OnApprovedLeadDelivered(group.ID, lead.Type); err != nil {
		logging.Error().Err(err).Uint("lead_id", lead.ID).Uint("group_id", group.ID).Msg("unread increment failed")
	}
	s.notifyAuthor(lead)
	logging.Info().Uint("lead_id", lead.ID).Uint("group_id", group.ID).Uint64("sequence", lead.Sequence).Msg("lead approved")
	return lead, nil
}

// Reject closes a pending lead. Only the author is told.
func (s *LeadService) Reject(leadID, adminID uint, comment string) (*models.Lead, error) {
	lead, err := s.leadRepo.Reject(leadID, adminID, strings.TrimSpace(comment), s.now())
	if err != nil {
		return nil, transitionErr(err)
	}
	metrics.LeadsModerated.WithLabelValues("reject").Inc()
	s.withURLs(lead)
	s.notifyAuthor(lead)
	return lead, nil
}

// Resend creates a revised pending lead from a rejected one. The rejected
// record is left untouched.
func (s *LeadService) Resend(ctx context.Context, leadID, authorID uint, in ResendInput, docs []DocumentUpload) (*models.Lead, error) {
	orig, err := s.leadRepo.FindByID(leadID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if orig.AuthorID != authorID {
		return nil, ErrForbidden
	}
	if !orig.CanResend() {
		return nil, ErrInvalidTransition
	}

	fields := in.LeadPatch.apply(fieldsOf(orig))
	fields.normalize()
	if errs := validation.Struct(fields); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	if err := s.requireMember(orig.GroupID, authorID); err != nil {
		return nil, err
	}

	retained, err := retainDocuments(orig.Documents, in.RetainDocuments)
	if err != nil {
		return nil, err
	}
	prepared, err := s.readDocuments(docs, len(retained))
	if err != nil {
		return nil, err
	}

	lead := newLead(authorID, orig.GroupID, fields)
	lead.ResentFromID = &orig.ID
	lead.Documents = retained
	if err := s.storeAndCreate(ctx, lead, prepared); err != nil {
		return nil, err
	}
	logging.Info().Uint("lead_id", lead.ID).Uint("resent_from", orig.ID).Msg("lead resent")
	return s.reload(lead.ID)
}

// RequestBroadcast asks admins to promote an approved lead across groups.
func (s *LeadService) RequestBroadcast(leadID, authorID uint) (*models.Lead, error) {
	lead, err := s.leadRepo.FindByID(leadID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if lead.AuthorID != authorID {
		return nil, ErrForbidden
	}
	if !lead.CanRequestBroadcast() {
		return nil, ErrInvalidTransition
	}
	lead, err = s.leadRepo.TransitionBroadcast(leadID, models.BroadcastNone, models.BroadcastPending, s.now())
	if err != nil {
		return nil, transitionErr(err)
	}
	metrics.LeadsModerated.WithLabelValues("broadcast_request").Inc()
	return s.withURLs(lead), nil
}

// ApproveBroadcast promotes the lead and fans it out to the groups chosen
// by the configured broadcast scope.
func (s *LeadService) ApproveBroadcast(leadID, adminID uint) (*models.Lead, error) {
	lead, err := s.leadRepo.TransitionBroadcast(leadID, models.BroadcastPending, models.BroadcastApproved, s.now())
	if err != nil {
		return nil, transitionErr(err)
	}
	metrics.LeadsModerated.WithLabelValues("broadcast_approve").Inc()
	s.withURLs(lead)

	targets, err := s.BroadcastTargets(lead.GroupID)
	if err != nil {
		logging.Error().Err(err).Uint("lead_id", lead.ID).Msg("broadcast target lookup failed")
	} else if len(targets) > 0 {
		rooms := make([]events.Room, 0, len(targets))
		for _, id := range targets {
			rooms = append(rooms, events.GroupRoom(id))
		}
		s.notifier.Emit(Target{Rooms: rooms}, events.NewBroadcastLead, events.BroadcastLeadPayload{
			OriginGroupID: lead.GroupID,
			Lead:          lead.ToResponse(),
		})
	}
	s.notifyAuthor(lead)
	logging.Info().Uint("lead_id", lead.ID).Uint("admin_id", adminID).Int("groups", len(targets)).Msg("broadcast approved")
	return lead, nil
}

func (s *LeadService) DeclineBroadcast(leadID, adminID uint) (*models.Lead, error) {
	lead, err := s.leadRepo.TransitionBroadcast(leadID, models.BroadcastPending, models.BroadcastNone, s.now())
	if err != nil {
		return nil, transitionErr(err)
	}
	metrics.LeadsModerated.WithLabelValues("broadcast_decline").Inc()
	s.withURLs(lead)
	s.notifyAuthor(lead)
	return lead, nil
}

// BroadcastTargets returns the ids of the groups a broadcast from
// originGroupID reaches, including the origin.
func (s *LeadService) BroadcastTargets(originGroupID uint) ([]uint, error) {
	origin, err := s.groupRepo.FindByID(originGroupID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	var groups []models.Group
	switch s.opts.BroadcastScope {
	case config.BroadcastScopeAll:
		groups, err = s.groupRepo.ListAll()
	case config.BroadcastScopeScope:
		groups, err = s.groupRepo.ListByScope(origin.Scope)
	default:
		groups, err = s.groupRepo.ListByChapter(origin.HSChapter)
	}
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// History pages the approved leads of a group for one of its members.
func (s *LeadService) History(userID, groupID uint, afterSeq, beforeSeq uint64, limit int) ([]models.Lead, error) {
	if err := s.requireMember(groupID, userID); err != nil {
		return nil, err
	}
	leads, err := s.leadRepo.ListApproved(groupID, afterSeq, beforeSeq, clampLimit(limit, 50, 100))
	if err != nil {
		return nil, err
	}
	return s.withURLsAll(leads), nil
}

func (s *LeadService) MyLeads(authorID uint, limit int) ([]models.Lead, error) {
	leads, err := s.leadRepo.ListByAuthor(authorID, clampLimit(limit, 50, 200))
	if err != nil {
		return nil, err
	}
	return s.withURLsAll(leads), nil
}

func (s *LeadService) Pending(limit int) ([]models.Lead, error) {
	leads, err := s.leadRepo.ListByStatus(models.LeadPending, clampLimit(limit, 50, 200))
	if err != nil {
		return nil, err
	}
	return s.withURLsAll(leads), nil
}

func (s *LeadService) PendingBroadcasts(limit int) ([]models.Lead, error) {
	leads, err := s.leadRepo.ListBroadcastPending(clampLimit(limit, 50, 200))
	if err != nil {
		return nil, err
	}
	return s.withURLsAll(leads), nil
}

// Marquee returns the most recently promoted leads.
func (s *LeadService) Marquee(limit int) ([]models.Lead, error) {
	leads, err := s.leadRepo.ListMarquee(clampLimit(limit, 20, 50))
	if err != nil {
		return nil, err
	}
	return s.withURLsAll(leads), nil
}

// CanViewDocument reports whether the user may download the stored lead
// document behind key: admins, the author, or members of the lead's group
// once it is approved.
func (s *LeadService) CanViewDocument(userID uint, isAdmin bool, key string) (bool, error) {
	docs, err := s.leadRepo.FindDocumentsByKey(key)
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return false, ErrNotFound
	}
	if isAdmin {
		return true, nil
	}
	for _, doc := range docs {
		lead, err := s.leadRepo.FindByID(doc.LeadID)
		if err != nil {
			continue
		}
		if lead.AuthorID == userID {
			return true, nil
		}
		if !lead.Visible() {
			continue
		}
		ok, err := s.groupRepo.IsMember(lead.GroupID, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *LeadService) requireMember(groupID, userID uint) error {
	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		return notFoundOr(err)
	}
	ok, err := s.groupRepo.IsMember(groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

func (s *LeadService) notifyAuthor(lead *models.Lead) {
	s.notifier.Emit(ToUsers(lead.AuthorID), events.LeadModerated, events.LeadModeratedPayload{
		LeadID:       lead.ID,
		Status:       lead.Status,
		Broadcast:    lead.Broadcast,
		AdminComment: lead.AdminComment,
	})
}

type preparedDocument struct {
	fileName    string
	contentType string
	data        []byte
}

// readDocuments buffers and sniffs every upload before anything is
// written, so a bad file rejects the whole submission.
func (s *LeadService) readDocuments(docs []DocumentUpload, alreadyAttached int) ([]preparedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if alreadyAttached+len(docs) > s.opts.MaxDocuments {
		return nil, fieldError("documents", fmt.Sprintf("at most %d documents are allowed", s.opts.MaxDocuments))
	}
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	out := make([]preparedDocument, 0, len(docs))
	for _, d := range docs {
		data, ct, err := storage.ReadDocument(d.Body, s.opts.MaxDocumentBytes)
		if err != nil {
			return nil, fieldError("documents", fmt.Sprintf("%s: %v", d.FileName, err))
		}
		out = append(out, preparedDocument{
			fileName:    validation.TrimAndLimit(d.FileName, 255),
			contentType: ct,
			data:        data,
		})
	}
	return out, nil
}

func (s *LeadService) storeAndCreate(ctx context.Context, lead *models.Lead, docs []preparedDocument) error {
	var uploaded []string
	cleanup := func() {
		for _, key := range uploaded {
			_ = s.store.DeleteObject(ctx, key)
		}
	}
	for _, d := range docs {
		key := storage.LeadDocumentKey(lead.AuthorID, d.fileName)
		st, err := s.store.PutObject(ctx, key, bytes.NewReader(d.data), int64(len(d.data)), d.contentType)
		if err != nil {
			cleanup()
			return err
		}
		uploaded = append(uploaded, key)
		lead.Documents = append(lead.Documents, models.LeadDocument{
			Key:         key,
			FileName:    d.fileName,
			ContentType: d.contentType,
			SizeBytes:   st.Size,
		})
	}
	if err := s.leadRepo.Create(lead); err != nil {
		cleanup()
		return err
	}
	return nil
}

func (s *LeadService) reload(id uint) (*models.Lead, error) {
	lead, err := s.leadRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	return s.withURLs(lead), nil
}

func (s *LeadService) withURLs(lead *models.Lead) *models.Lead {
	for i := range lead.Documents {
		lead.Documents[i].URL = s.opts.MediaBaseURL + "/" + lead.Documents[i].Key
	}
	return lead
}

func (s *LeadService) withURLsAll(leads []models.Lead) []models.Lead {
	for i := range leads {
		s.withURLs(&leads[i])
	}
	return leads
}

func newLead(authorID, groupID uint, f LeadFields) *models.Lead {
	return &models.Lead{
		GroupID:              groupID,
		AuthorID:             authorID,
		Type:                 models.LeadType(f.Type),
		HSCode:               f.HSCode,
		Description:          f.Description,
		Quantity:             f.Quantity,
		Packing:              f.Packing,
		TargetPrice:          f.TargetPrice,
		Negotiable:           f.Negotiable,
		BuyerDeliveryAddress: f.BuyerDeliveryAddress,
		SellerPickupAddress:  f.SellerPickupAddress,
		Status:               models.LeadPending,
		Broadcast:            models.BroadcastNone,
	}
}

func fieldsOf(l *models.Lead) LeadFields {
	return LeadFields{
		Type:                 string(l.Type),
		HSCode:               l.HSCode,
		Description:          l.Description,
		Quantity:             l.Quantity,
		Packing:              l.Packing,
		TargetPrice:          l.TargetPrice,
		Negotiable:           l.Negotiable,
		BuyerDeliveryAddress: l.BuyerDeliveryAddress,
		SellerPickupAddress:  l.SellerPickupAddress,
	}
}

// retainDocuments copies the kept documents as new rows pointing at the
// same stored objects.
func retainDocuments(docs []models.LeadDocument, keep []uint) ([]models.LeadDocument, error) {
	byID := make(map[uint]models.LeadDocument, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	ids := keep
	if keep == nil {
		ids = make([]uint, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}
	out := make([]models.LeadDocument, 0, len(ids))
	for _, id := range dedupe(ids) {
		d, ok := byID[id]
		if !ok {
			return nil, fieldError("retainDocuments", fmt.Sprintf("document %d does not belong to this lead", id))
		}
		out = append(out, models.LeadDocument{
			Key:         d.Key,
			FileName:    d.FileName,
			ContentType: d.ContentType,
			SizeBytes:   d.SizeBytes,
		})
	}
	return out, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
