package wizard

import (
	"context"
	"errors"

	"github.com/aretw0/configurator/internal/metrics"
	"github.com/aretw0/configurator/pkg/command"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/session"
	"go.uber.org/zap"
)

// NoticeNoSession is shown when an input arrives for a user without a session.
const NoticeNoSession = "No active session. Choose a service."

// Service runs the Machine against persisted sessions, one input at a time per user.
type Service struct {
	machine  *Machine
	sessions *session.Manager
	logger   *zap.Logger
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLogger configures a logger for the Service.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service.
func NewService(machine *Machine, sessions *session.Manager, opts ...ServiceOption) *Service {
	s := &Service{
		machine:  machine,
		sessions: sessions,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts flow for the user, replacing any session they had.
func (s *Service) Begin(ctx context.Context, userID string, flow domain.Flow) (Reply, error) {
	sess, err := s.sessions.Start(ctx, userID, flow)
	if err != nil {
		return Reply{}, err
	}
	s.logger.Debug("session started", zap.String("user_id", userID), zap.String("flow", string(sess.Flow)))
	return Render(sess), nil
}

// Current renders the user's session without changing it.
func (s *Service) Current(ctx context.Context, userID string) (Reply, error) {
	sess, err := s.sessions.Load(ctx, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return Menu(""), nil
	}
	if err != nil {
		return Reply{}, err
	}
	return Render(sess), nil
}

// Text feeds typed text to the user's session.
// Oversize or malformed input is rejected with a notice and leaves the session unchanged.
func (s *Service) Text(ctx context.Context, userID, body string) (Reply, error) {
	clean, err := command.Sanitize(body)
	if err != nil {
		reply, cerr := s.Current(ctx, userID)
		if cerr != nil {
			return Reply{}, cerr
		}
		reply.Notice = "Input rejected: " + err.Error()
		return reply, nil
	}
	return s.Dispatch(ctx, userID, command.Text{Body: clean})
}

// Action feeds a button payload to the user's session.
// Menu payloads start their flow. Payloads outside the command grammar
// re-render the current view.
func (s *Service) Action(ctx context.Context, userID, data string) (Reply, error) {
	switch data {
	case MenuConfigure:
		return s.Begin(ctx, userID, domain.FlowConfigure)
	case MenuListVariants:
		return s.Begin(ctx, userID, domain.FlowListVariants)
	}
	cmd, ok := command.Parse(data)
	if !ok {
		s.logger.Debug("ignoring unrecognised action", zap.String("user_id", userID), zap.String("data", data))
		return s.Current(ctx, userID)
	}
	return s.Dispatch(ctx, userID, cmd)
}

// Cancel discards the user's session and returns to the menu.
func (s *Service) Cancel(ctx context.Context, userID string) (Reply, error) {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return Reply{}, err
	}
	return Menu(NoticeCancelled), nil
}

// Dispatch applies cmd to the user's session under the user's lock.
// A session that reaches Finalized is replaced by a fresh one of the same flow
// once its outcome has been rendered.
func (s *Service) Dispatch(ctx context.Context, userID string, cmd command.Command) (Reply, error) {
	if _, ok := cmd.(command.Cancel); ok {
		return s.Cancel(ctx, userID)
	}

	var reply Reply
	_, err := s.sessions.Update(ctx, userID, func(current *domain.Session) (*domain.Session, error) {
		next, r := s.machine.Handle(ctx, current, cmd)
		reply = r
		if next == nil {
			return nil, nil
		}

		metrics.Transitions.WithLabelValues(string(next.Flow), string(next.Stage)).Inc()
		if diff := domain.Diff(current, next); diff != nil {
			s.logger.Debug("session transition",
				zap.String("user_id", userID),
				zap.String("command", cmd.String()),
				zap.Any("diff", diff),
			)
		}

		if next.Stage == domain.StageFinalized {
			return domain.NewSession(userID, next.Flow), nil
		}
		return next, nil
	})
	if errors.Is(err, domain.ErrSessionNotFound) {
		return Menu(NoticeNoSession), nil
	}
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// Sessions exposes the session manager for administrative commands.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}
