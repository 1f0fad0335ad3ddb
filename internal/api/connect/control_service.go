package connect

import (
	"context"
	"math"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/tunechat/internal/app/notification"
	"github.com/osa030/tunechat/internal/app/playback"
	"github.com/osa030/tunechat/internal/domain/track"
)

// ControlServiceName is the fully-qualified name of the control service.
const ControlServiceName = "tunechat.player.v1.ControlService"

// Procedure paths of the control service.
const (
	StatusProcedure          = "/" + ControlServiceName + "/Status"
	TogglePlayPauseProcedure = "/" + ControlServiceName + "/TogglePlayPause"
	SkipProcedure            = "/" + ControlServiceName + "/Skip"
	SetVolumeProcedure       = "/" + ControlServiceName + "/SetVolume"
	WatchEventsProcedure     = "/" + ControlServiceName + "/WatchEvents"
)

// Player is the playback surface controlled by the service.
type Player interface {
	Snapshot() playback.Session
	TogglePlayPause() error
	Skip() error
	SetVolume(level float64)
}

// ControlService implements the player control RPC.
type ControlService struct {
	player   Player
	notifier *notification.Manager
	done     <-chan struct{}
}

// NewControlService creates a new ControlService. Event streams end when done is closed.
func NewControlService(player Player, notifier *notification.Manager, done <-chan struct{}) *ControlService {
	return &ControlService{
		player:   player,
		notifier: notifier,
		done:     done,
	}
}

// NewControlServiceHandler builds an HTTP handler serving the control service.
// It returns the path on which to mount the handler and the handler itself.
func NewControlServiceHandler(svc *ControlService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StatusProcedure, connect.NewUnaryHandler(StatusProcedure, svc.Status, opts...))
	mux.Handle(TogglePlayPauseProcedure, connect.NewUnaryHandler(TogglePlayPauseProcedure, svc.TogglePlayPause, opts...))
	mux.Handle(SkipProcedure, connect.NewUnaryHandler(SkipProcedure, svc.Skip, opts...))
	mux.Handle(SetVolumeProcedure, connect.NewUnaryHandler(SetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(WatchEventsProcedure, connect.NewServerStreamHandler(WatchEventsProcedure, svc.WatchEvents, opts...))
	return "/" + ControlServiceName + "/", mux
}

// Status returns the current playback session.
func (s *ControlService) Status(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.statusResponse()
}

// TogglePlayPause flips play/pause and returns the new status.
func (s *ControlService) TogglePlayPause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.player.TogglePlayPause(); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse()
}

// Skip moves to the next track and returns the new status.
func (s *ControlService) Skip(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.player.Skip(); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse()
}

// SetVolume sets the volume (clamped to 0..1) and returns the new status.
func (s *ControlService) SetVolume(
	ctx context.Context,
	req *connect.Request[wrapperspb.DoubleValue],
) (*connect.Response[structpb.Struct], error) {
	level := req.Msg.GetValue()
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("invalid volume: %v", level))
	}
	s.player.SetVolume(level)
	return s.statusResponse()
}

// WatchEvents streams the initial state followed by playback events.
func (s *ControlService) WatchEvents(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	fields := SessionFields(s.player.Snapshot())
	fields["type"] = "initial_state"
	fields["sequence_no"] = float64(s.notifier.NextSequenceNo())

	initial, err := structpb.NewStruct(fields)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notifier.Subscribe(adapter)
	defer s.notifier.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *ControlService) statusResponse() (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(SessionFields(s.player.Snapshot()))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// SessionFields converts a session snapshot to status fields.
func SessionFields(sess playback.Session) map[string]any {
	fields := map[string]any{
		"state":           sess.State.String(),
		"is_playing":      sess.IsPlaying,
		"volume":          sess.Volume,
		"retry_count":     float64(sess.RetryCount),
		"surface_id":      sess.SurfaceID,
		"advance_pending": sess.AdvancePending,
	}
	if sess.Current != nil {
		fields["track"] = trackFields(sess.Current)
	}
	if sess.Prefetched != nil {
		fields["prefetched"] = trackFields(sess.Prefetched)
	}
	return fields
}

func trackFields(t *track.Track) map[string]any {
	return notification.TrackFields(t.SongName, t.ArtistName, t.Source)
}

// toConnectError maps playback errors to Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, playback.ErrNoTrack), errors.Is(err, playback.ErrNotPlaying):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, playback.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[structpb.Struct]
}

func (a *notificationStreamAdapter) Send(notification *structpb.Struct) error {
	return a.stream.Send(notification)
}
