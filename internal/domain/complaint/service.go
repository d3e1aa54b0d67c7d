package complaint

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hostelcare/internal/config"
	"hostelcare/internal/domain/conversation"
	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/apperr"
	"hostelcare/internal/pkg/validator"
	"hostelcare/internal/realtime"

	"github.com/google/uuid"
)

// AccountLookup resolves assignment targets.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Service is the lifecycle controller. It never holds locks; the single-row
// store write is the serialization point.
type Service struct {
	complaints Repository
	remarks    conversation.Repository
	accounts   AccountLookup
	events     EventSink
	publisher  *realtime.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(
	complaints Repository,
	remarks conversation.Repository,
	accounts AccountLookup,
	events EventSink,
	publisher *realtime.Publisher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		complaints: complaints,
		remarks:    remarks,
		accounts:   accounts,
		events:     events,
		publisher:  publisher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, actor user.Actor, in CreateInput) (*Complaint, error) {
	if err := Authorize(actor, ActionCreate, nil); err != nil {
		return nil, err
	}

	in.Campus = strings.TrimSpace(in.Campus)
	in.Hostel = strings.TrimSpace(in.Hostel)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	attachments := make([]string, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		attachments = append(attachments, strings.TrimSpace(a))
	}
	in.Attachments = attachments
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	now := s.now()
	c := &Complaint{
		ID:               uuid.NewString(),
		ReporterID:       actor.ID,
		ReporterName:     actor.Name,
		Campus:           in.Campus,
		Hostel:           in.Hostel,
		Category:         in.Category,
		Description:      in.Description,
		Priority:         in.Priority,
		Status:           StatusPending,
		Attachments:      attachments,
		ResolutionImages: []string{},
		DateSubmitted:    now,
		UpdatedAt:        now,
		Remarks:          []conversation.Entry{},
	}

	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, apperr.Persistence("create complaint", err)
	}

	s.logger.InfoContext(ctx, "complaint created", "complaint_id", c.ID, "reporter_id", actor.ID, "category", c.Category)
	s.emit(ctx, &Event{
		ID:          uuid.NewString(),
		Kind:        EventCreated,
		ComplaintID: c.ID,
		Actor:       actor,
		After:       c.Clone(),
		OccurredAt:  now,
	})

	return c, nil
}

// Apply validates intent against the actor and current state, writes the
// complaint, and emits exactly one event. Nothing is written or emitted
// when an error is returned.
func (s *Service) Apply(ctx context.Context, actor user.Actor, complaintID string, intent Intent) (*Event, error) {
	if err := intent.validateShape(); err != nil {
		return nil, err
	}

	before, err := s.load(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	if intent.Remark != nil {
		return s.appendRemark(ctx, actor, before, *intent.Remark)
	}
	return s.transition(ctx, actor, before, intent)
}

func (s *Service) appendRemark(ctx context.Context, actor user.Actor, before *Complaint, text string) (*Event, error) {
	if err := Authorize(actor, ActionAppendRemark, before); err != nil {
		return nil, err
	}
	text, err := conversation.NormalizeText(text)
	if err != nil {
		return nil, err
	}

	entry := &conversation.Entry{
		ComplaintID: before.ID,
		SenderID:    actor.ID,
		SenderName:  actor.Name,
		SenderRole:  actor.Role,
		Text:        text,
		CreatedAt:   s.now(),
	}
	if err := s.remarks.Append(ctx, entry); err != nil {
		return nil, apperr.Persistence("append remark", err)
	}

	after := before.Clone()
	after.Remarks = append(after.Remarks, *entry)

	ev := &Event{
		ID:          uuid.NewString(),
		Kind:        EventMessage,
		ComplaintID: before.ID,
		Actor:       actor,
		Before:      before,
		After:       after,
		Remark:      entry,
		OccurredAt:  entry.CreatedAt,
	}
	s.emit(ctx, ev)
	return ev, nil
}

func (s *Service) transition(ctx context.Context, actor user.Actor, before *Complaint, intent Intent) (*Event, error) {
	if intent.Status != nil {
		if err := Authorize(actor, ActionSetStatus, before); err != nil {
			return nil, err
		}
		if !intent.Status.Valid() {
			return nil, apperr.Validation("status", "unknown status")
		}
	}
	if intent.Assignment != nil {
		if err := Authorize(actor, ActionAssign, before); err != nil {
			return nil, err
		}
		if intent.Assignment.StaffID != nil {
			if err := s.checkStaff(ctx, *intent.Assignment.StaffID); err != nil {
				return nil, err
			}
		}
	}

	now := s.now()
	after := before.Clone()
	var facts []Fact

	if intent.Assignment != nil {
		to := ""
		if intent.Assignment.StaffID != nil {
			to = *intent.Assignment.StaffID
		}
		if from := before.Assignee(); from != to {
			facts = append(facts, Fact{Kind: FactAssignmentChanged, FromAssignee: from, ToAssignee: to})
			if to == "" {
				after.AssignedTo = nil
			} else {
				after.AssignedTo = &to
			}
		}
	}

	if intent.Status != nil {
		to := *intent.Status
		if err := applyStatus(actor, before, after, to, intent.ResolutionImages, now); err != nil {
			return nil, err
		}
		if before.Status != to {
			facts = append(facts, Fact{Kind: FactStatusChanged, FromStatus: before.Status, ToStatus: to})
		}
	}

	ev := &Event{
		ID:          uuid.NewString(),
		Kind:        EventTransition,
		ComplaintID: before.ID,
		Actor:       actor,
		Before:      before,
		After:       after,
		Facts:       facts,
		OccurredAt:  now,
	}

	if len(facts) == 0 && len(intent.ResolutionImages) == 0 {
		// no-op: nothing to write, nothing to notify
		return ev, nil
	}

	after.UpdatedAt = now
	if err := s.complaints.UpdateLifecycle(ctx, after, changedColumns(ev, intent)); err != nil {
		if errors.Is(err, ErrComplaintNotFound) {
			return nil, apperr.NotFound("complaint", before.ID)
		}
		return nil, apperr.Persistence("update complaint", err)
	}

	s.logger.InfoContext(ctx, "complaint updated",
		"complaint_id", before.ID,
		"actor_id", actor.ID,
		"role", actor.Role,
		"from_status", before.Status,
		"to_status", after.Status,
		"assigned_to", after.Assignee())
	s.emit(ctx, ev)
	return ev, nil
}

// changedColumns lists what the intent actually touched so a concurrent
// write to another field survives.
func changedColumns(ev *Event, intent Intent) []string {
	var cols []string
	if _, ok := ev.Fact(FactAssignmentChanged); ok {
		cols = append(cols, ColAssignedTo)
	}
	if _, ok := ev.Fact(FactStatusChanged); ok || len(intent.ResolutionImages) > 0 {
		cols = append(cols, ColStatus, ColResolutionImages, ColDateResolved)
	}
	return cols
}

// applyStatus mutates after for a move to status `to`. Entering Resolved
// stamps DateResolved; leaving it clears the proof and the date.
func applyStatus(actor user.Actor, before, after *Complaint, to Status, proof []string, now time.Time) error {
	after.Status = to

	if to != StatusResolved {
		if before.Status == StatusResolved {
			after.ResolutionImages = []string{}
			after.DateResolved = nil
		}
		return nil
	}

	images := make([]string, 0, len(before.ResolutionImages)+len(proof))
	images = append(images, before.ResolutionImages...)
	for _, p := range proof {
		p = strings.TrimSpace(p)
		if p == "" {
			return apperr.Validation("resolution_images", "empty proof image")
		}
		images = append(images, p)
	}
	if actor.Role == user.RoleStaff && len(images) == 0 {
		return apperr.Validation("resolution_images", "at least one proof image is required to resolve")
	}
	if len(images) > config.MaxResolutionImages {
		return apperr.Validation("resolution_images", "too many proof images")
	}
	after.ResolutionImages = images

	if before.Status != StatusResolved || after.DateResolved == nil {
		t := now
		after.DateResolved = &t
	}
	return nil
}

func (s *Service) checkStaff(ctx context.Context, staffID string) error {
	if strings.TrimSpace(staffID) == "" {
		return apperr.Validation("assigned_to", "staff id must not be empty")
	}
	u, err := s.accounts.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return apperr.Validation("assigned_to", "unknown staff account")
		}
		return apperr.Persistence("lookup staff", err)
	}
	if u.Role != user.RoleStaff {
		return apperr.Validation("assigned_to", "account is not staff")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, actor user.Actor, id string) (*Complaint, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionView, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List scopes results to what the actor may view. Remarks are not loaded.
func (s *Service) List(ctx context.Context, actor user.Actor, f ListFilter) ([]Complaint, int64, error) {
	f.ReporterID, f.AssignedTo = "", ""
	switch actor.Role {
	case user.RoleStudent:
		f.ReporterID = actor.ID
	case user.RoleStaff:
		f.AssignedTo = actor.ID
	case user.RoleWarden:
	default:
		return nil, 0, apperr.Forbidden(string(actor.Role), string(ActionView), "unknown role")
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, apperr.Validation("status", "unknown status")
	}

	items, total, err := s.complaints.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Persistence("list complaints", err)
	}
	return items, total, nil
}

func (s *Service) Remarks(ctx context.Context, actor user.Actor, id string) ([]conversation.Entry, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return c.Remarks, nil
}

func (s *Service) load(ctx context.Context, id string) (*Complaint, error) {
	c, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrComplaintNotFound) {
			return nil, apperr.NotFound("complaint", id)
		}
		return nil, apperr.Persistence("load complaint", err)
	}
	entries, err := s.remarks.List(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load remarks", err)
	}
	c.Remarks = entries
	if c.ResolutionImages == nil {
		c.ResolutionImages = []string{}
	}
	return c, nil
}

// emit publishes the new snapshot and hands the event to the sink. Both
// happen after the write; neither can fail the call.
func (s *Service) emit(ctx context.Context, ev *Event) {
	s.publisher.Snapshot(ctx, realtime.TopicComplaints, ev.ComplaintID, "", ev.After)
	if s.events != nil {
		s.events.Dispatch(ctx, ev)
	}
}
