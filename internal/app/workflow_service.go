package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"bodycomp/internal/workflow"

	"github.com/google/uuid"
)

// ErrWorkflowNotFound indicates that the workflow id is unknown, expired or
// owned by another user.
var ErrWorkflowNotFound = errors.New("workflow not found")

// WorkflowService tracks the measurement workflows users have open.
// Workflows idle for longer than the TTL are closed on the next Start.
type WorkflowService struct {
	records *RecordsService
	ttl     time.Duration

	mu       sync.Mutex
	sessions map[string]*workflowSession
}

type workflowSession struct {
	userID   int64
	wf       *workflow.Workflow
	lastUsed time.Time
}

// NewWorkflowService creates a WorkflowService. Saved results go to records.
func NewWorkflowService(records *RecordsService, ttl time.Duration) *WorkflowService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &WorkflowService{
		records:  records,
		ttl:      ttl,
		sessions: make(map[string]*workflowSession),
	}
}

// Start opens a workflow for protocol. guest workflows never save.
func (s *WorkflowService) Start(ctx context.Context, userID int64, protocol string, guest bool) (string, *workflow.Workflow, error) {
	p, err := workflow.ProtocolByName(protocol)
	if err != nil {
		return "", nil, err
	}
	s.sweep(time.Now())

	wf := workflow.New(ctx, p, !guest, s.records.ForUser(userID), workflow.WithUserID(userID))
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &workflowSession{userID: userID, wf: wf, lastUsed: time.Now()}
	s.mu.Unlock()
	return id, wf, nil
}

// Get returns the user's workflow with the given id.
func (s *WorkflowService) Get(userID int64, id string) (*workflow.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.userID != userID {
		return nil, ErrWorkflowNotFound
	}
	sess.lastUsed = time.Now()
	return sess.wf, nil
}

// Close abandons the workflow.
func (s *WorkflowService) Close(userID int64, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.userID != userID {
		s.mu.Unlock()
		return ErrWorkflowNotFound
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	sess.wf.Close()
	return nil
}

// Len returns the number of open workflows.
func (s *WorkflowService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *WorkflowService) sweep(now time.Time) {
	var expired []*workflow.Workflow
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			expired = append(expired, sess.wf)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, wf := range expired {
		wf.Close()
	}
}
