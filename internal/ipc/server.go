package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"morph/internal/api"
	"morph/internal/daemon"
	"morph/internal/logging"
	"morph/internal/session"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Morph", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun morph daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

// userError flattens a session error into the text shown to the user while
// keeping the RPC error channel.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(session.UserMessage(err))
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.AuthMode = status.AuthMode
	resp.Entries = status.Entries
	resp.Artifacts = status.Artifacts
	resp.ActiveIDs = status.ActiveIDs
	resp.ProgressPercent = status.Progress.Percent
	resp.ProgressDone = status.Progress.Done
	resp.ProgressTotal = status.Progress.Total
	resp.LockPath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	resp.HistoryDBPath = status.HistoryDBPath
	resp.Notices = s.daemon.DrainNotices()
	return nil
}

func (s *service) SessionShow(_ SessionShowRequest, resp *SessionShowResponse) error {
	resp.View = api.FromSnapshot(s.daemon.Snapshot(), s.daemon.PreviewPath)
	resp.Notices = s.daemon.DrainNotices()
	return nil
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	if len(req.Paths) == 0 {
		return errors.New("add requires at least one file path")
	}
	s.log().Debug("ingest requested", logging.Int("file_count", len(req.Paths)))
	report, err := s.daemon.IngestPaths(s.ctx, req.Paths)
	if err != nil {
		return userError(err)
	}
	resp.Outcomes = make([]FileOutcome, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		dto := FileOutcome{Name: outcome.Name, EntryID: outcome.EntryID}
		if outcome.Err != nil {
			dto.Error = session.UserMessage(outcome.Err)
		}
		resp.Outcomes = append(resp.Outcomes, dto)
	}
	resp.Accepted = report.Accepted()
	resp.Notices = s.daemon.DrainNotices()
	s.log().Info("files ingested",
		logging.String(logging.FieldEventType, "files_ingested"),
		logging.Int("accepted", resp.Accepted),
		logging.Int("offered", len(report.Outcomes)))
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	if req.ID == "" {
		return errors.New("remove requires an entry id")
	}
	if err := s.daemon.Remove(req.ID); err != nil {
		return userError(err)
	}
	resp.Removed = true
	return nil
}

func (s *service) SelectFormat(req SelectFormatRequest, resp *SelectFormatResponse) error {
	if req.ID == "" {
		return errors.New("select-format requires an entry id")
	}
	if err := s.daemon.SelectFormat(req.ID, req.Format); err != nil {
		return userError(err)
	}
	return nil
}

func (s *service) ConvertOne(req ConvertOneRequest, resp *ConvertOneResponse) error {
	if req.ID == "" {
		return errors.New("convert requires an entry id")
	}
	artifact, err := s.daemon.ConvertOne(s.ctx, req.ID, req.Format)
	if err != nil {
		return userError(err)
	}
	resp.Artifact = api.FromArtifact(*artifact)
	resp.Notices = s.daemon.DrainNotices()
	return nil
}

func (s *service) ConvertAll(_ ConvertAllRequest, resp *ConvertAllResponse) error {
	summary, err := s.daemon.ConvertAll(s.ctx)
	if summary != nil {
		resp.Total = summary.Total
		resp.Converted = summary.Converted
		resp.FailedID = summary.FailedID
		resp.Artifacts = make([]api.Artifact, 0, len(summary.Artifacts))
		for _, artifact := range summary.Artifacts {
			resp.Artifacts = append(resp.Artifacts, api.FromArtifact(artifact))
		}
	}
	if err != nil {
		// A partial batch still returns its summary; the error text rides
		// along instead of failing the whole call.
		if summary != nil && summary.Converted > 0 {
			resp.Error = session.UserMessage(err)
		} else {
			return userError(err)
		}
	}
	resp.Notices = s.daemon.DrainNotices()
	return nil
}

func (s *service) Artifacts(_ ArtifactsRequest, resp *ArtifactsResponse) error {
	snap := s.daemon.Snapshot()
	resp.Artifacts = make([]api.Artifact, 0, len(snap.Artifacts))
	for _, artifact := range snap.Artifacts {
		resp.Artifacts = append(resp.Artifacts, api.FromArtifact(artifact))
	}
	return nil
}

func (s *service) ClearSession(_ ClearSessionRequest, resp *ClearSessionResponse) error {
	resp.Removed = s.daemon.ClearSession()
	s.log().Info("session cleared via IPC",
		logging.String(logging.FieldEventType, "session_clear"),
		logging.Int("removed_count", resp.Removed))
	return nil
}

func (s *service) Login(req LoginRequest, resp *LoginResponse) error {
	if req.Identifier == "" || req.Password == "" {
		return errors.New("login requires identifier and password")
	}
	identity, err := s.daemon.Login(s.ctx, req.Identifier, req.Password)
	if err != nil {
		return userError(err)
	}
	resp.ID = identity.ID
	resp.Username = identity.Username
	resp.Email = identity.Email
	resp.Notices = s.daemon.DrainNotices()
	s.log().Info("logged in via IPC",
		logging.String(logging.FieldEventType, "auth_login"),
		logging.String("username", identity.Username))
	return nil
}

func (s *service) Logout(_ LogoutRequest, _ *LogoutResponse) error {
	if err := s.daemon.Logout(s.ctx); err != nil {
		return userError(err)
	}
	s.log().Info("logged out via IPC",
		logging.String(logging.FieldEventType, "auth_logout"))
	return nil
}

func (s *service) Register(req RegisterRequest, _ *RegisterResponse) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return errors.New("register requires username, email, and password")
	}
	return userError(s.daemon.Register(s.ctx, req.Username, req.Email, req.Password))
}

func (s *service) WhoAmI(_ WhoAmIRequest, resp *WhoAmIResponse) error {
	identity, err := s.daemon.WhoAmI(s.ctx)
	if err != nil {
		resp.Authenticated = false
		return nil
	}
	resp.Authenticated = true
	resp.ID = identity.ID
	resp.Username = identity.Username
	resp.Email = identity.Email
	return nil
}

func (s *service) ConvertedList(_ ConvertedListRequest, resp *ConvertedListResponse) error {
	files, err := s.daemon.ListConverted(s.ctx)
	if err != nil {
		return userError(err)
	}
	resp.Files = make([]ConvertedFile, 0, len(files))
	for _, file := range files {
		resp.Files = append(resp.Files, ConvertedFile{Name: file.Name, URL: file.URL})
	}
	return nil
}

func (s *service) Download(req DownloadRequest, resp *DownloadResponse) error {
	if req.URL == "" {
		return errors.New("download requires a url")
	}
	path, err := s.daemon.Download(s.ctx, req.Name, req.URL)
	if err != nil {
		return userError(err)
	}
	resp.Path = path
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	records, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Records = make([]HistoryRecord, 0, len(records))
	for _, record := range records {
		resp.Records = append(resp.Records, HistoryRecord{
			ID:           record.ID,
			SourceName:   record.SourceName,
			ArtifactName: record.ArtifactName,
			Format:       record.Format,
			DownloadURL:  record.DownloadURL,
			ConvertedAt:  record.ConvertedAt.Format(time.RFC3339),
		})
	}
	return nil
}

func (s *service) HistoryClear(_ HistoryClearRequest, resp *HistoryClearResponse) error {
	removed, err := s.daemon.ClearHistory(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
