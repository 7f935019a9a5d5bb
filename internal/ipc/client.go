package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Stop requests the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Morph.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Morph.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionShow retrieves the full session view.
func (c *Client) SessionShow() (*SessionShowResponse, error) {
	var resp SessionShowResponse
	if err := c.client.Call("Morph.SessionShow", SessionShowRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Add registers local files with the session.
func (c *Client) Add(paths []string) (*AddResponse, error) {
	var resp AddResponse
	if err := c.client.Call("Morph.Add", AddRequest{Paths: paths}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove deletes a session entry.
func (c *Client) Remove(id string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.client.Call("Morph.Remove", RemoveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SelectFormat sets or clears an entry's target format.
func (c *Client) SelectFormat(id, format string) error {
	var resp SelectFormatResponse
	return c.client.Call("Morph.SelectFormat", SelectFormatRequest{ID: id, Format: format}, &resp)
}

// ConvertOne converts a single entry.
func (c *Client) ConvertOne(id, format string) (*ConvertOneResponse, error) {
	var resp ConvertOneResponse
	if err := c.client.Call("Morph.ConvertOne", ConvertOneRequest{ID: id, Format: format}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConvertAll converts every entry with a selected format.
func (c *Client) ConvertAll() (*ConvertAllResponse, error) {
	var resp ConvertAllResponse
	if err := c.client.Call("Morph.ConvertAll", ConvertAllRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Artifacts lists the session's conversion outputs.
func (c *Client) Artifacts() (*ArtifactsResponse, error) {
	var resp ArtifactsResponse
	if err := c.client.Call("Morph.Artifacts", ArtifactsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearSession empties the session.
func (c *Client) ClearSession() (*ClearSessionResponse, error) {
	var resp ClearSessionResponse
	if err := c.client.Call("Morph.ClearSession", ClearSessionRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates against the backend.
func (c *Client) Login(identifier, password string) (*LoginResponse, error) {
	var resp LoginResponse
	req := LoginRequest{Identifier: identifier, Password: password}
	if err := c.client.Call("Morph.Login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout clears the backend session.
func (c *Client) Logout() error {
	var resp LogoutResponse
	return c.client.Call("Morph.Logout", LogoutRequest{}, &resp)
}

// Register creates a new backend account.
func (c *Client) Register(username, email, password string) error {
	var resp RegisterResponse
	req := RegisterRequest{Username: username, Email: email, Password: password}
	return c.client.Call("Morph.Register", req, &resp)
}

// WhoAmI probes the authenticated identity.
func (c *Client) WhoAmI() (*WhoAmIResponse, error) {
	var resp WhoAmIResponse
	if err := c.client.Call("Morph.WhoAmI", WhoAmIRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConvertedList fetches the authenticated user's saved conversions.
func (c *Client) ConvertedList() (*ConvertedListResponse, error) {
	var resp ConvertedListResponse
	if err := c.client.Call("Morph.ConvertedList", ConvertedListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Download fetches one artifact into the download directory.
func (c *Client) Download(name, url string) (*DownloadResponse, error) {
	var resp DownloadResponse
	if err := c.client.Call("Morph.Download", DownloadRequest{Name: name, URL: url}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists recorded conversions, newest first.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Morph.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryClear wipes the conversion history.
func (c *Client) HistoryClear() (*HistoryClearResponse, error) {
	var resp HistoryClearResponse
	if err := c.client.Call("Morph.HistoryClear", HistoryClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Morph.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
