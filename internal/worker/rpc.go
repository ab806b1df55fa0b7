package worker

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// Handshake guards the render subprocess against being launched by anything
// other than a themer host.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "THEMER_WORKER",
	MagicCookieValue: "optcgsim_themer_render",
}

const pluginName = "render"

// RenderPlugin implements the go-plugin Plugin interface for the renderer.
type RenderPlugin struct {
	plugin.Plugin
	Impl *Renderer
}

// Server returns an RPC server for this plugin.
func (p *RenderPlugin) Server(*plugin.MuxBroker) (any, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

// Client returns an RPC client for this plugin.
func (p *RenderPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &RPCClient{client: c}, nil
}

// RPCServer is the subprocess side.
type RPCServer struct {
	Impl *Renderer
}

// Render implements the RPC method.
func (s *RPCServer) Render(req Request, resp *Response) error {
	*resp = s.Impl.Render(context.Background(), req)
	return nil
}

// RPCClient is the host side.
type RPCClient struct {
	client *rpc.Client
}

// Render calls the remote renderer. Cancelling ctx abandons the call; the
// subprocess finishes it and the reply is dropped.
func (c *RPCClient) Render(ctx context.Context, req Request) (Response, error) {
	var resp Response
	call := c.client.Go("Plugin.Render", req, &resp, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		if call.Error != nil {
			return Response{}, call.Error
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Serve runs the render plugin server; it is the body of the hidden worker
// command and blocks until the host goes away.
func Serve(r *Renderer, logger hclog.Logger) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginName: &RenderPlugin{Impl: r},
		},
		Logger: logger,
	})
}

// PluginWorker renders in a subprocess launched from cmd.
type PluginWorker struct {
	client *plugin.Client
	rpc    *RPCClient
}

// NewPluginWorker starts the subprocess and connects to it.
func NewPluginWorker(cmd *exec.Cmd, logger hclog.Logger) (*PluginWorker, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginName: &RenderPlugin{},
		},
		Cmd:              cmd,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           logger.Named("worker"),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to get RPC client: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}

	return &PluginWorker{client: client, rpc: raw.(*RPCClient)}, nil
}

// Render implements Worker.
func (w *PluginWorker) Render(ctx context.Context, req Request) (Response, error) {
	if w.client.Exited() {
		return Response{}, ErrClosed
	}
	return w.rpc.Render(ctx, req)
}

// Close kills the subprocess.
func (w *PluginWorker) Close() error {
	w.client.Kill()
	return nil
}
