package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dvelikov/climate-controller/internal/model"
	"github.com/dvelikov/climate-controller/internal/registry"
)

// SettingsSaver persists the registry's configuration subset.
type SettingsSaver interface {
	Save(map[string]model.RoomConfig) error
}

// Server is the HTTP gateway the touch dashboard talks to. It only reads
// registry state and forwards operator edits; all decisions stay in the
// control engine.
type Server struct {
	registry *registry.Registry
	settings SettingsSaver
}

type RoomResponse struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	MinTemp     int      `json:"min_temp"`
	MaxTemp     int      `json:"max_temp"`
	ManualHeat  bool     `json:"manual_heat"`
	ManualCool  bool     `json:"manual_cool"`
	Heating     bool     `json:"heating"`
	Cooling     bool     `json:"cooling"`
	CurrentTemp *float64 `json:"current_temp"`
}

type AdjustRequest struct {
	Delta int `json:"delta"`
}

type SetpointResponse struct {
	Value int `json:"value"`
}

type ToggleResponse struct {
	Enabled bool `json:"enabled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(reg *registry.Registry, settings SettingsSaver) *Server {
	return &Server{registry: reg, settings: settings}
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the routed handler with CORS headers for the dashboard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms", s.handleRooms)
	mux.HandleFunc("/api/rooms/", s.handleRoomOperations)
	mux.HandleFunc("/api/apply", s.handleApply)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rooms := s.registry.Snapshot()
	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, roomResponse(room))
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRoomOperations(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	parts := strings.Split(path, "/")

	if len(parts) < 1 || parts[0] == "" {
		s.writeError(w, http.StatusNotFound, "Room ID required")
		return
	}

	roomID := parts[0]
	if _, ok := s.registry.Get(roomID); !ok {
		s.writeError(w, http.StatusNotFound, "Room not found")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		room, _ := s.registry.Get(roomID)
		s.writeJSON(w, http.StatusOK, roomResponse(room))
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPut {
		s.writeError(w, http.StatusNotFound, "Invalid path")
		return
	}

	switch parts[1] {
	case "min-temp":
		s.adjustSetpoint(w, r, roomID, s.registry.AdjustMinTemp)
	case "max-temp":
		s.adjustSetpoint(w, r, roomID, s.registry.AdjustMaxTemp)
	case "manual-heat":
		s.toggleManual(w, roomID, s.registry.ToggleManualHeat)
	case "manual-cool":
		s.toggleManual(w, roomID, s.registry.ToggleManualCool)
	default:
		s.writeError(w, http.StatusNotFound, "Unknown operation")
	}
}

func (s *Server) adjustSetpoint(w http.ResponseWriter, r *http.Request, roomID string, adjust func(string, int) (int, error)) {
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Delta < -1 || req.Delta > 1 || req.Delta == 0 {
		s.writeError(w, http.StatusBadRequest, "Delta must be 1 or -1")
		return
	}

	value, err := adjust(roomID, req.Delta)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}

	log.Info().Str("room", roomID).Int("value", value).Msg("Setpoint adjusted via API")
	s.writeJSON(w, http.StatusOK, SetpointResponse{Value: value})
}

func (s *Server) toggleManual(w http.ResponseWriter, roomID string, toggle func(string) (bool, error)) {
	enabled, err := toggle(roomID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("room", roomID).Bool("enabled", enabled).Msg("Manual override toggled via API")
	s.writeJSON(w, http.StatusOK, ToggleResponse{Enabled: enabled})
}

// handleApply is the dashboard's back/apply action: persist the current
// configuration. A save failure is reported but never blocks operation.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.settings.Save(s.registry.ConfigSnapshot()); err != nil {
		log.Error().Err(err).Msg("Failed to persist room settings")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Msg("Room settings persisted via API")
	w.WriteHeader(http.StatusOK)
}

func roomResponse(room model.Room) RoomResponse {
	resp := RoomResponse{
		ID:         room.ID,
		Label:      room.Label,
		MinTemp:    room.Config.MinTemp,
		MaxTemp:    room.Config.MaxTemp,
		ManualHeat: room.Config.ManualHeat,
		ManualCool: room.Config.ManualCool,
		Heating:    room.Heating,
		Cooling:    room.Cooling,
	}
	if room.LastReading.Valid {
		temp := room.LastReading.Temperature
		resp.CurrentTemp = &temp
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
