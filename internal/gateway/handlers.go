package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gridironlabs/draftroom/internal/engine"
	"github.com/gridironlabs/draftroom/internal/models"
	"github.com/gridironlabs/draftroom/internal/store"
)

// Service routes HTTP requests into the draft engine.
type Service struct {
	manager *engine.Manager
	store   store.RoomStore
	conns   *ConnectionManager
}

// NewService builds the HTTP service. conns may be nil when the WebSocket
// surface is disabled.
func NewService(manager *engine.Manager, st store.RoomStore, conns *ConnectionManager) *Service {
	return &Service{manager: manager, store: st, conns: conns}
}

// AttachConnections wires the WebSocket surface in after construction; the
// connection manager needs the service as its pick submitter, so the two are
// built in sequence.
func (s *Service) AttachConnections(conns *ConnectionManager) {
	s.conns = conns
}

var _ PickSubmitter = (*Service)(nil)

// SubmitPick implements PickSubmitter for picks arriving over a WebSocket.
func (s *Service) SubmitPick(ctx context.Context, roomID, identity string, playerID uuid.UUID) error {
	session, err := s.manager.Session(ctx, roomID)
	if err != nil {
		return err
	}
	return session.SubmitPick(ctx, identity, playerID)
}

// SubmitPickByName implements PickSubmitter for name-based submissions.
func (s *Service) SubmitPickByName(ctx context.Context, roomID, identity, playerName string) error {
	session, err := s.manager.Session(ctx, roomID)
	if err != nil {
		return err
	}
	return session.SubmitPickByName(ctx, identity, playerName)
}

type createRoomRequest struct {
	Name         string   `json:"name"`
	Owner        string   `json:"owner"`
	TimerSeconds int      `json:"timer_seconds"`
	TotalRounds  int      `json:"total_rounds"`
	MockDrafters []string `json:"mock_drafters,omitempty"`
}

func (s *Service) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}
	if req.TimerSeconds <= 0 {
		req.TimerSeconds = 60
	}
	if req.TotalRounds <= 0 {
		req.TotalRounds = 15
	}

	room := models.Room{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Owner:        req.Owner,
		Participants: append([]string{req.Owner}, req.MockDrafters...),
		Settings:     models.RoomSettings{TimerSeconds: req.TimerSeconds, TotalRounds: req.TotalRounds},
		Status:       models.RoomStatusWaiting,
		MockDrafters: req.MockDrafters,
	}
	if err := s.store.CreateRoom(r.Context(), room); err != nil {
		writeEngineError(w, err)
		return
	}
	if _, err := s.manager.Session(r.Context(), room.ID); err != nil {
		writeEngineError(w, err)
		return
	}

	log.Info().Str("room_id", room.ID).Str("owner", room.Owner).Msg("room created")
	writeJSON(w, http.StatusCreated, room)
}

func (s *Service) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type identityRequest struct {
	Identity string `json:"identity"`
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	room, err := session.Join(r.Context(), req.Identity)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Service) handleRandomizeOrder(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	order, err := session.RandomizeOrder(r.Context(), req.Identity)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft_order": order})
}

type settingsRequest struct {
	Identity     string `json:"identity"`
	TimerSeconds int    `json:"timer_seconds"`
	TotalRounds  int    `json:"total_rounds"`
}

func (s *Service) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if err := session.UpdateSettings(r.Context(), req.Identity, req.TimerSeconds, req.TotalRounds); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleForceStart(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if err := session.ForceStart(r.Context(), req.Identity); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pickRequest struct {
	Identity   string `json:"identity"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
}

func (s *Service) handleSubmitPick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	switch {
	case req.PlayerID != "":
		playerID, err := uuid.Parse(req.PlayerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player_id")
			return
		}
		if err := session.SubmitPick(r.Context(), req.Identity, playerID); err != nil {
			writeEngineError(w, err)
			return
		}
	case req.PlayerName != "":
		if err := session.SubmitPickByName(r.Context(), req.Identity, req.PlayerName); err != nil {
			writeEngineError(w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "player_id or player_name is required")
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Service) handleAutoPick(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if err := session.AutoPick(r.Context(), req.Identity); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Service) handleAvailablePlayers(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": session.AvailablePlayers()})
}

func (s *Service) handleRoster(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	identity := chi.URLParam(r, "identity")
	writeJSON(w, http.StatusOK, map[string]any{
		"roster": session.Roster(identity),
		"lineup": session.StartingLineup(identity),
	})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Stats())
}

type queueRequest struct {
	Identity string   `json:"identity"`
	PlayerID string   `json:"player_id,omitempty"`
	Ordered  []string `json:"ordered,omitempty"`
}

func (s *Service) handleQueueGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": session.Queue(chi.URLParam(r, "identity"))})
}

func (s *Service) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player_id")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if err := session.QueueAdd(req.Identity, playerID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queue": session.Queue(req.Identity)})
}

func (s *Service) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player_id")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	session.QueueRemove(req.Identity, playerID)
	writeJSON(w, http.StatusOK, map[string]any{"queue": session.Queue(req.Identity)})
}

func (s *Service) handleQueueReorder(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	ordered := make([]uuid.UUID, 0, len(req.Ordered))
	for _, raw := range req.Ordered {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id in ordering")
			return
		}
		ordered = append(ordered, id)
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	session.QueueReorder(req.Identity, ordered)
	writeJSON(w, http.StatusOK, map[string]any{"queue": session.Queue(req.Identity)})
}

type rankingsRequest struct {
	Identity string   `json:"identity"`
	Names    []string `json:"names"`
}

func (s *Service) handleImportRankings(w http.ResponseWriter, r *http.Request) {
	var req rankingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	matched := session.ImportRankings(req.Identity, req.Names)
	writeJSON(w, http.StatusOK, map[string]any{"matched": matched, "submitted": len(req.Names)})
}

func (s *Service) handleClearRankings(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	session, err := s.manager.Session(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	session.ClearRankings(req.Identity)
	w.WriteHeader(http.StatusNoContent)
}

// handleWebSocket upgrades the request to a room-scoped event socket.
func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.conns == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket surface disabled")
		return
	}
	roomID := chi.URLParam(r, "roomID")
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		identity = "spectator"
	}

	// Spin up the session so events flow even for the first subscriber.
	if _, err := s.manager.Session(r.Context(), roomID); err != nil {
		writeEngineError(w, err)
		return
	}
	if err := s.conns.Upgrade(w, r, identity, roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("websocket upgrade failed")
	}
}

func (s *Service) handleConnectionStats(w http.ResponseWriter, r *http.Request) {
	if s.conns == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket surface disabled")
		return
	}
	total, rooms := s.conns.Stats()
	writeJSON(w, http.StatusOK, map[string]int{
		"total_connections": total,
		"active_rooms":      rooms,
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps domain errors onto HTTP statuses. Every admission
// failure keeps its sentinel text so clients can tell them apart.
func writeEngineError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, engine.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrRoomFull),
		errors.Is(err, engine.ErrDraftNotActive),
		errors.Is(err, engine.ErrSubmissionInProgress),
		errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrPlayerUnavailable),
		errors.Is(err, engine.ErrPositionLimitExceeded),
		errors.Is(err, engine.ErrOrderExists),
		errors.Is(err, engine.ErrSettingsLocked):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNoEligibleAutoPick):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	writeError(w, status, err.Error())
}
