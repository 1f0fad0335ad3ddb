package connect

import (
	"context"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlClient is a client for the control service.
type ControlClient struct {
	status          *connect.Client[emptypb.Empty, structpb.Struct]
	togglePlayPause *connect.Client[emptypb.Empty, structpb.Struct]
	skip            *connect.Client[emptypb.Empty, structpb.Struct]
	setVolume       *connect.Client[wrapperspb.DoubleValue, structpb.Struct]
	watchEvents     *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewControlClient constructs a client for the control service at baseURL.
func NewControlClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ControlClient {
	return &ControlClient{
		status:          connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+StatusProcedure, opts...),
		togglePlayPause: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+TogglePlayPauseProcedure, opts...),
		skip:            connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SkipProcedure, opts...),
		setVolume:       connect.NewClient[wrapperspb.DoubleValue, structpb.Struct](httpClient, baseURL+SetVolumeProcedure, opts...),
		watchEvents:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+WatchEventsProcedure, opts...),
	}
}

// Status calls Status.
func (c *ControlClient) Status(ctx context.Context) (*structpb.Struct, error) {
	resp, err := c.status.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// TogglePlayPause calls TogglePlayPause.
func (c *ControlClient) TogglePlayPause(ctx context.Context) (*structpb.Struct, error) {
	resp, err := c.togglePlayPause.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Skip calls Skip.
func (c *ControlClient) Skip(ctx context.Context) (*structpb.Struct, error) {
	resp, err := c.skip.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// SetVolume calls SetVolume.
func (c *ControlClient) SetVolume(ctx context.Context, level float64) (*structpb.Struct, error) {
	resp, err := c.setVolume.CallUnary(ctx, connect.NewRequest(wrapperspb.Double(level)))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// WatchEvents opens the event stream.
func (c *ControlClient) WatchEvents(ctx context.Context) (*connect.ServerStreamForClient[structpb.Struct], error) {
	return c.watchEvents.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
}
