package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/resources"
	"github.com/spaghettifunk/prism/engine/systems"
)

const DefaultAddress = "127.0.0.1:7070"

/** @brief The configuration of the editor command server. */
type ServerConfig struct {
	/** @brief The address the server listens on. */
	Address string
	/** @brief How long a request waits for the engine loop. */
	Timeout time.Duration
	/** @brief Origins allowed by CORS, all of them when empty. */
	AllowedOrigins []string
}

/**
 * @brief HTTP front end of the resource system. Every request becomes a
 * command executed by the engine loop, the handler waits for its reply.
 */
type Server struct {
	config   ServerConfig
	commands chan<- systems.Command
	metrics  *core.Metrics
	hub      *Hub
	upgrader websocket.Upgrader
	router   *mux.Router
}

func NewServer(config ServerConfig, commands chan<- systems.Command, metrics *core.Metrics, hub *Hub) *Server {
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	s := &Server{
		config:   config,
		commands: commands,
		metrics:  metrics,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/resources", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/resources/{type}/{name}/attributes", s.handleAttributes).Methods(http.MethodGet)
	r.HandleFunc("/resources/{type}/{name}/attributes/{attribute}", s.handleSetAttribute).Methods(http.MethodPut)
	r.HandleFunc("/resources/{type}/{name}/rename", s.handleRename).Methods(http.MethodPost)
	r.HandleFunc("/resources/{type}/{name}/dump", s.handleDump).Methods(http.MethodGet)
	r.HandleFunc("/resources/{type}/{name}/{action}", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebsocket)
	s.router = r
	return s
}

// Handler returns the router wrapped with recovery, CORS and request logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	origins := []string{"*"}
	if len(s.config.AllowedOrigins) > 0 {
		origins = s.config.AllowedOrigins
	}
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.LoggingHandler(core.LogWriter(), h)
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		core.LogInfo("[editor] Starting server %v", s.config.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "editor server failed")
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut the editor server down")
	}
	return nil
}

// dispatch hands cmd to the engine loop and waits for the result.
func (s *Server) dispatch(r *http.Request, cmd systems.Command) (systems.CommandResult, int) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()

	cmd.Reply = make(chan systems.CommandResult, 1)
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return systems.CommandResult{Err: errors.New("the engine is busy")}, http.StatusServiceUnavailable
	}

	select {
	case result := <-cmd.Reply:
		switch {
		case result.Err == nil:
			return result, http.StatusOK
		case errors.Is(result.Err, core.ErrResourceNotFound), errors.Is(result.Err, core.ErrUnknownResourceType):
			return result, http.StatusNotFound
		default:
			return result, http.StatusInternalServerError
		}
	case <-ctx.Done():
		return systems.CommandResult{Err: errors.New("the engine did not answer in time")}, http.StatusGatewayTimeout
	}
}

func resourceCommand(r *http.Request, kind systems.CommandKind) systems.Command {
	vars := mux.Vars(r)
	return systems.Command{
		Kind:         kind,
		TypeName:     vars["type"],
		ResourceName: vars["name"],
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, cmd systems.Command) {
	result, status := s.dispatch(r, cmd)
	if result.Err != nil {
		writeError(w, status, result.Err)
		return
	}
	writeJson(w, status, map[string]any{"ok": result.OK, "data": result.Data})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	result, status := s.dispatch(r, systems.Command{Kind: systems.CommandListResources})
	if result.Err != nil {
		writeError(w, status, result.Err)
		return
	}
	writeJson(w, status, result.Data)
}

func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	result, status := s.dispatch(r, resourceCommand(r, systems.CommandGetAttributes))
	if result.Err != nil {
		writeError(w, status, result.Err)
		return
	}
	writeJson(w, status, result.Data)
}

type setAttributeRequest struct {
	Value resources.AttributeValue `json:"value"`
	Index int                      `json:"index"`
}

func (s *Server) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	var req setAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid attribute payload"))
		return
	}
	cmd := resourceCommand(r, systems.CommandSetAttribute)
	cmd.AttributeName = mux.Vars(r)["attribute"]
	cmd.Value = req.Value
	cmd.Index = req.Index
	s.respond(w, r, cmd)
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewName == "" {
		writeError(w, http.StatusBadRequest, errors.New("rename needs a new_name"))
		return
	}
	cmd := resourceCommand(r, systems.CommandRename)
	cmd.NewName = req.NewName
	s.respond(w, r, cmd)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	kind, ok := systems.ParseResourceAction(action)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("unknown action %q", action))
		return
	}
	s.respond(w, r, resourceCommand(r, kind))
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	result, status := s.dispatch(r, resourceCommand(r, systems.CommandDump))
	if result.Err != nil {
		writeError(w, status, result.Err)
		return
	}
	dump, _ := result.Data.(string)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(dump))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.LogError("[editor] websocket upgrade failed: %s", err.Error())
		return
	}
	s.hub.Serve(conn)
}

func writeJson(w http.ResponseWriter, status int, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(res)
}

func writeError(w http.ResponseWriter, status int, err error) {
	core.LogDebug("[editor] %d: %s", status, err.Error())
	res, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(res)
}
