package messages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"visapath/internal/domain/accounts"
)

type fakeStore struct {
	clientID string
	agentID  *string
	caseErr  error

	created    []Message
	readCalls  int
	readCaseID string
	readBy     string
}

func (f *fakeStore) CreateMessage(_ context.Context, caseID, senderID, recipientID, body string) (Message, error) {
	m := Message{
		ID:          "m1",
		CaseID:      caseID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   time.Now(),
	}
	f.created = append(f.created, m)
	return m, nil
}

func (f *fakeStore) ListByCase(context.Context, string, int, int) ([]Message, error) {
	return f.created, nil
}

func (f *fakeStore) MarkThreadRead(_ context.Context, caseID, recipientID string) error {
	f.readCalls++
	f.readCaseID = caseID
	f.readBy = recipientID
	return nil
}

func (f *fakeStore) CountUnread(context.Context, string) (int, error) { return 0, nil }

func (f *fakeStore) CaseParticipants(context.Context, string) (string, *string, error) {
	if f.caseErr != nil {
		return "", nil, f.caseErr
	}
	return f.clientID, f.agentID, nil
}

func TestSendFromClientGoesToAssignedAgent(t *testing.T) {
	agent := "agent-1"
	store := &fakeStore{clientID: "client-1", agentID: &agent}
	svc := New(store)

	m, err := svc.Send(context.Background(), "client-1", accounts.RoleClient, "case-1", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.RecipientID != "agent-1" {
		t.Errorf("recipient = %q, want agent-1", m.RecipientID)
	}
}

func TestSendFromClientWithoutAgentFails(t *testing.T) {
	store := &fakeStore{clientID: "client-1"}
	svc := New(store)

	_, err := svc.Send(context.Background(), "client-1", accounts.RoleClient, "case-1", "hello")
	if !errors.Is(err, ErrNoAgent) {
		t.Fatalf("err = %v, want ErrNoAgent", err)
	}
}

func TestSendFromAgentGoesToClient(t *testing.T) {
	agent := "agent-1"
	store := &fakeStore{clientID: "client-1", agentID: &agent}
	svc := New(store)

	m, err := svc.Send(context.Background(), "agent-1", accounts.RoleAgent, "case-1", "update attached")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.RecipientID != "client-1" {
		t.Errorf("recipient = %q, want client-1", m.RecipientID)
	}
}

func TestSendRejectsOutsiders(t *testing.T) {
	agent := "agent-1"
	store := &fakeStore{clientID: "client-1", agentID: &agent}
	svc := New(store)

	_, err := svc.Send(context.Background(), "other-client", accounts.RoleClient, "case-1", "hello")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestSendValidatesBody(t *testing.T) {
	agent := "agent-1"
	store := &fakeStore{clientID: "client-1", agentID: &agent}
	svc := New(store)

	if _, err := svc.Send(context.Background(), "client-1", accounts.RoleClient, "case-1", "   "); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("blank body: err = %v, want ErrEmptyBody", err)
	}
	long := strings.Repeat("x", MaxBodyLength+1)
	if _, err := svc.Send(context.Background(), "client-1", accounts.RoleClient, "case-1", long); !errors.Is(err, ErrBodyTooLong) {
		t.Errorf("long body: err = %v, want ErrBodyTooLong", err)
	}
}

func TestThreadMarksIncomingRead(t *testing.T) {
	agent := "agent-1"
	store := &fakeStore{clientID: "client-1", agentID: &agent}
	svc := New(store)

	if _, err := svc.Thread(context.Background(), "client-1", accounts.RoleClient, "case-1", 0, 0); err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if store.readCalls != 1 || store.readCaseID != "case-1" || store.readBy != "client-1" {
		t.Errorf("MarkThreadRead calls = %d (case %q, by %q)", store.readCalls, store.readCaseID, store.readBy)
	}
}

func TestThreadRejectsNonParticipants(t *testing.T) {
	store := &fakeStore{clientID: "client-1"}
	svc := New(store)

	if _, err := svc.Thread(context.Background(), "stranger", accounts.RoleClient, "case-1", 0, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestThreadSurfacesMissingCase(t *testing.T) {
	store := &fakeStore{caseErr: ErrCaseMissing}
	svc := New(store)

	if _, err := svc.Thread(context.Background(), "client-1", accounts.RoleClient, "case-1", 0, 0); !errors.Is(err, ErrCaseMissing) {
		t.Fatalf("err = %v, want ErrCaseMissing", err)
	}
}
