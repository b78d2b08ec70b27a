package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"plasmavault/core"
	nativecommon "plasmavault/native/common"
	"plasmavault/native/fees"
	"plasmavault/native/oracle"
	"plasmavault/services/keeper"
)

// Server exposes health, metrics and read-only views of the vault engines.
type Server struct {
	node   *core.Node
	runs   func() []keeper.Run
	logger *slog.Logger
	router http.Handler
}

// NewServer builds the HTTP handler. runs may be nil when the keeper is
// disabled.
func NewServer(node *core.Node, runs func() []keeper.Run, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{node: node, runs: runs, logger: logger.With(slog.String("component", "http"))}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured router wrapped in request tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "vaultd")
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(api chi.Router) {
		api.Get("/fees", s.handleFees)
		api.Get("/prices/{asset}", s.handlePrice)
		api.Get("/events", s.handleEvents)
		api.Get("/keeper/runs", s.handleRuns)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	head := s.node.Head()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"height": head.Height,
		"root":   head.Root.Hex(),
	})
}

type recipientView struct {
	Recipient string `json:"recipient"`
	Fee       uint64 `json:"fee"`
}

type feesView struct {
	Initialized         bool            `json:"initialized"`
	DAORecipient        string          `json:"daoRecipient"`
	DAOManagementFee    uint64          `json:"daoManagementFee"`
	DAOPerformanceFee   uint64          `json:"daoPerformanceFee"`
	TotalManagementFee  uint64          `json:"totalManagementFee"`
	TotalPerformanceFee uint64          `json:"totalPerformanceFee"`
	Management          []recipientView `json:"managementRecipients"`
	Performance         []recipientView `json:"performanceRecipients"`
	HighWaterMark       string          `json:"highWaterMark"`
}

func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	var view feesView
	err := s.node.View(func(n *core.Node) error {
		var err error
		manager := n.Fees()
		if view.Initialized, err = manager.IsInitialized(); err != nil || !view.Initialized {
			return err
		}
		dao, err := manager.DAOFeeRecipient()
		if err != nil {
			return err
		}
		view.DAORecipient = dao.Recipient.Hex()
		view.DAOManagementFee = dao.ManagementFee
		view.DAOPerformanceFee = dao.PerformanceFee
		total, err := manager.TotalManagementFee()
		if err != nil {
			return err
		}
		view.TotalManagementFee = total.Uint64()
		if total, err = manager.TotalPerformanceFee(); err != nil {
			return err
		}
		view.TotalPerformanceFee = total.Uint64()
		management, err := manager.ManagementFeeRecipients()
		if err != nil {
			return err
		}
		performance, err := manager.PerformanceFeeRecipients()
		if err != nil {
			return err
		}
		view.Management = recipientViews(management)
		view.Performance = recipientViews(performance)
		hwm, err := manager.HighWaterMark()
		if err != nil {
			return err
		}
		view.HighWaterMark = "0"
		if hwm.Value != nil {
			view.HighWaterMark = hwm.Value.Dec()
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func recipientViews(list []fees.RecipientFee) []recipientView {
	out := make([]recipientView, 0, len(list))
	for _, entry := range list {
		out = append(out, recipientView{Recipient: entry.Recipient.Hex(), Fee: entry.Fee.Uint64()})
	}
	return out
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "asset")
	if !common.IsHexAddress(raw) {
		http.Error(w, "invalid asset address", http.StatusBadRequest)
		return
	}
	asset := common.HexToAddress(raw)
	var (
		price    string
		decimals uint8
	)
	err := s.node.View(func(n *core.Node) error {
		value, dec, err := n.Oracle().GetAssetPrice(asset)
		if err != nil {
			return err
		}
		price, decimals = value.Dec(), dec
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset":    asset.Hex(),
		"price":    price,
		"decimals": decimals,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, s.node.Events().Recent(limit))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusOK, []keeper.Run{})
		return
	}
	writeJSON(w, http.StatusOK, s.runs())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused),
		errors.Is(err, oracle.ErrSequencerDown),
		errors.Is(err, oracle.ErrSequencerFeedStale),
		errors.Is(err, oracle.ErrGracePeriodNotElapsed),
		errors.Is(err, oracle.ErrStalePrice):
		status = http.StatusServiceUnavailable
	case errors.Is(err, oracle.ErrUnsupportedAsset):
		status = http.StatusNotFound
	case errors.Is(err, oracle.ErrUnexpectedPriceResult),
		errors.Is(err, oracle.ErrPriceOutOfBounds):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
