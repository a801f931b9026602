package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/electripro/electripro/internal/daemon"
	"github.com/electripro/electripro/internal/store"
	"github.com/gin-gonic/gin"
)

// RecordUpdateData describes one persisted change.
type RecordUpdateData struct {
	Table string `json:"table,omitempty"`
	ID    string `json:"id,omitempty"`
	Op    string `json:"op"`
}

// SyncCompleteData describes a finished reload or import.
type SyncCompleteData struct {
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// OnChange broadcasts a store change followed by the refreshed stats.
// Register it with store.Stores.OnChange.
func (s *Server) OnChange(c store.Change) {
	s.send(MessageTypeRecordUpdate, RecordUpdateData{Table: c.Table, ID: c.ID, Op: string(c.Op)})
	s.broadcastStats()
}

// OnSync broadcasts a daemon reload or import result. Register it with
// daemon.Daemon.OnSync.
func (s *Server) OnSync(e daemon.Event) {
	data := SyncCompleteData{Kind: string(e.Kind), Source: e.Source, OK: e.Err == nil}
	if e.Err != nil {
		data.Error = e.Err.Error()
	}
	msg, err := newMessage(MessageTypeSyncComplete, data)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal sync data")
		return
	}
	msg.Timestamp = e.At
	s.Broadcast(msg)
}

func (s *Server) broadcastStats() {
	msg, err := s.statsMessage()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal stats")
		return
	}
	s.Broadcast(msg)
}

func (s *Server) statsMessage() (Message, error) {
	return newMessage(MessageTypeStats, s.stores.Dashboard())
}

func (s *Server) send(typ MessageType, data any) {
	msg, err := newMessage(typ, data)
	if err != nil {
		s.log.Warn().Err(err).Str("type", string(typ)).Msg("failed to marshal message data")
		return
	}
	s.Broadcast(msg)
}

func newMessage(typ MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Timestamp: time.Now(), Data: raw}, nil
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.stores.Dashboard())
}

func (s *Server) handleBudgetTotals(c *gin.Context) {
	t, err := s.stores.Budgets.Totals(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleObraProfitability(c *gin.Context) {
	p, err := s.stores.ObraProfitability(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handlePlanning(c *gin.Context) {
	p, err := s.stores.PlanningFor(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
