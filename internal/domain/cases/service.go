package cases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"visapath/internal/domain/accounts"
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func New(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

func staffRole(role string) bool {
	return role == accounts.RoleAgent || role == accounts.RoleAdmin
}

func (s *Service) Create(ctx context.Context, clientID string, in CreateInput) (Case, error) {
	in.ClientID = clientID
	in.Title = strings.TrimSpace(in.Title)
	in.Country = strings.TrimSpace(in.Country)
	if !ValidCaseType(in.CaseType) {
		return Case{}, fmt.Errorf("%w: unknown case type %q", ErrValidation, in.CaseType)
	}
	if in.Country == "" {
		return Case{}, fmt.Errorf("%w: destination country is required", ErrValidation)
	}
	if in.Title == "" {
		return Case{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	return s.store.CreateCase(ctx, in)
}

func (s *Service) Get(ctx context.Context, actorID, actorRole, id string) (Case, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, err
	}
	if !staffRole(actorRole) && c.ClientID != actorID {
		return Case{}, ErrForbidden
	}
	return c, nil
}

// Update changes case details. Only the owning client may edit, and only
// while the case is still in draft or needs_info.
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (Case, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, err
	}
	if c.ClientID != actorID {
		return Case{}, ErrForbidden
	}
	if !Editable(c.Status) {
		return Case{}, ErrNotEditable
	}

	if in.CaseType == "" {
		in.CaseType = c.CaseType
	}
	if !ValidCaseType(in.CaseType) {
		return Case{}, fmt.Errorf("%w: unknown case type %q", ErrValidation, in.CaseType)
	}
	if strings.TrimSpace(in.Country) == "" {
		in.Country = c.Country
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = c.Title
	}
	if in.Description == "" {
		in.Description = c.Description
	}

	if err := s.store.UpdateDetails(ctx, id, in); err != nil {
		return Case{}, err
	}
	return s.store.FindByID(ctx, id)
}

// Submit pushes the case forward on behalf of the client: a draft is
// submitted, a needs_info case goes back into review. The submission
// date is stamped on the first submit and never changes afterwards.
func (s *Service) Submit(ctx context.Context, actorID, id string) (Case, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, err
	}
	if c.ClientID != actorID {
		return Case{}, ErrForbidden
	}

	var next string
	switch c.Status {
	case StatusDraft:
		next = StatusSubmitted
	case StatusNeedsInfo:
		next = StatusInReview
	default:
		return Case{}, fmt.Errorf("%w: %s -> submit", ErrInvalidTransition, c.Status)
	}

	var submissionDate *time.Time
	if c.SubmissionDate == nil {
		at := s.now().UTC()
		submissionDate = &at
	}
	if err := s.store.SetStatus(ctx, id, next, "", submissionDate); err != nil {
		return Case{}, err
	}
	return s.store.FindByID(ctx, id)
}

// ChangeStatus moves the case through the review machine. Staff only.
// Sending a case back for more information or rejecting it requires an
// explanation for the client.
func (s *Service) ChangeStatus(ctx context.Context, actorID, actorRole, id, next, notes string) (Case, error) {
	if !staffRole(actorRole) {
		return Case{}, ErrForbidden
	}
	if !ValidStatus(next) {
		return Case{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, err
	}
	if !CanTransition(c.Status, next) {
		return Case{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, next)
	}
	if (next == StatusNeedsInfo || next == StatusRejected) && strings.TrimSpace(notes) == "" {
		return Case{}, fmt.Errorf("%w: %s requires decision notes", ErrValidation, next)
	}

	if err := s.store.SetStatus(ctx, id, next, notes, nil); err != nil {
		return Case{}, err
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) Assign(ctx context.Context, actorRole, id string, agentID *string) (Case, error) {
	if !staffRole(actorRole) {
		return Case{}, ErrForbidden
	}
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return Case{}, err
	}
	if err := s.store.Assign(ctx, id, agentID); err != nil {
		return Case{}, err
	}
	return s.store.FindByID(ctx, id)
}

// ListForActor scopes the listing by role. Clients only ever see their
// own cases regardless of the requested filter.
func (s *Service) ListForActor(ctx context.Context, actorID, actorRole string, filter Filter, limit, offset int) ([]Case, int, error) {
	if !staffRole(actorRole) {
		filter.ClientID = actorID
	}
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) Stats(ctx context.Context) (map[string]int, error) {
	return s.store.CountByStatus(ctx)
}
