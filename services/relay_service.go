package services

import (
	"contact-relay/contract"
	"contact-relay/domain"
	"contact-relay/domain/event"
	"contact-relay/errors"
	"contact-relay/observability"
	"context"
	"log/slog"
)

// IRelayService is what the HTTP and websocket transports talk to.
type IRelayService interface {
	Connect(ctx context.Context, sink contract.EventSink) (domain.ConnectionID, error)
	Login(ctx context.Context, req LoginRequest) error
	AddUserRequest(ctx context.Context, req FriendRequest) error
	AddUserResponse(ctx context.Context, req FriendResponse) error
	Message(ctx context.Context, id domain.ConnectionID, msg event.OutgoingMessage) error
	Disconnect(ctx context.Context, id domain.ConnectionID) error
	Stats(ctx context.Context) (Stats, error)
}

// Stats is the body served on /stats.
type Stats struct {
	observability.RelayStats
	Online   []domain.Username                     `json:"online"`
	Contacts map[domain.Username][]domain.Username `json:"contacts"`
}

type RelayService struct {
	log        *slog.Logger
	relay      contract.IRelay
	monitoring *observability.Monitoring
}

func NewRelayService(log *slog.Logger, relay contract.IRelay, monitoring *observability.Monitoring) *RelayService {
	return &RelayService{log: log, relay: relay, monitoring: monitoring}
}

func (s *RelayService) Connect(ctx context.Context, sink contract.EventSink) (domain.ConnectionID, error) {
	return s.relay.Connect(ctx, sink)
}

func (s *RelayService) Login(ctx context.Context, req LoginRequest) error {
	if err := ValidateLogin(req); err != nil {
		return s.reject("login", err)
	}
	err := s.relay.Login(ctx, domain.ConnectionID(req.ID), domain.Username(req.Username))
	return s.reject("login", err)
}

func (s *RelayService) AddUserRequest(ctx context.Context, req FriendRequest) error {
	if err := ValidateFriendRequest(req); err != nil {
		return s.reject("addUserRequest", err)
	}
	err := s.relay.AddUserRequest(ctx, domain.Username(req.From), domain.Username(req.For))
	return s.reject("addUserRequest", err)
}

func (s *RelayService) AddUserResponse(ctx context.Context, req FriendResponse) error {
	if err := ValidateFriendResponse(req); err != nil {
		return s.reject("addUserResponse", err)
	}
	err := s.relay.AddUserResponse(ctx,
		domain.Username(req.From), domain.Username(req.For), domain.Status(req.Status))
	return s.reject("addUserResponse", err)
}

// Message relays a client "message" frame. Delivery is best effort.
func (s *RelayService) Message(ctx context.Context, id domain.ConnectionID, msg event.OutgoingMessage) error {
	return s.relay.Message(ctx, id, domain.Message{
		From: domain.Username(msg.From),
		To:   domain.Username(msg.For),
		Text: msg.Message,
	})
}

func (s *RelayService) Disconnect(ctx context.Context, id domain.ConnectionID) error {
	return s.relay.Disconnect(ctx, id)
}

func (s *RelayService) Stats(ctx context.Context) (Stats, error) {
	presence, err := s.relay.Snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		RelayStats: s.monitoring.GetLatest(),
		Online:     presence.Online,
		Contacts:   presence.Contacts,
	}, nil
}

// reject counts and logs protocol failures, other errors pass through untouched.
func (s *RelayService) reject(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsProtocolError(err) {
		s.monitoring.IncrProtocolErrors()
		s.log.Debug("Request rejected", "op", op, "reason", errors.ToMessage(err))
	} else {
		s.log.Error("Request failed", "op", op, "error", err)
	}
	return err
}
