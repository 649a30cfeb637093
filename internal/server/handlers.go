package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/jeongseonghan/iqsynth/internal/config"
	"github.com/jeongseonghan/iqsynth/internal/logx"
	"github.com/jeongseonghan/iqsynth/internal/synth"
)

// maxRequestBody bounds POST /api/generate bodies.
const maxRequestBody = 1 << 20

// Handlers holds the HTTP API handlers.
type Handlers struct {
	cfg    config.Config
	wsHub  *WSHub
	mu     sync.Mutex
	active int
}

// NewHandlers creates API handlers serving generations from cfg.
func NewHandlers(cfg config.Config) *Handlers {
	return &Handlers{
		cfg:   cfg,
		wsHub: NewWSHub(),
	}
}

// Hub returns the WebSocket hub, so callers can forward logs to it.
func (h *Handlers) Hub() *WSHub {
	return h.wsHub
}

// GenerateRequest is the body of POST /api/generate. Omitted fields keep
// the server configuration.
type GenerateRequest struct {
	Scheme    string  `json:"scheme"`
	Seed      *uint64 `json:"seed,omitempty"`
	NumBits   *int    `json:"numBits,omitempty"`
	DACBits   *int    `json:"dacBits,omitempty"`
	DACPolicy string  `json:"dacPolicy,omitempty"`
	Payload   string  `json:"payload,omitempty"`
	Bits      string  `json:"bits,omitempty"`
	FEC       *bool   `json:"fec,omitempty"`
	OnClip    string  `json:"onClip,omitempty"`
}

// apply returns cfg with the request overrides.
func (r GenerateRequest) apply(cfg config.Config, scheme synth.Scheme) (config.Config, error) {
	if r.Seed != nil {
		cfg.Seed = *r.Seed
	}
	if r.DACBits != nil {
		cfg.DAC.Bits = *r.DACBits
	}
	if r.DACPolicy != "" {
		cfg.DAC.Policy = r.DACPolicy
	}
	if r.Payload != "" {
		cfg.Source.Kind = config.SourcePayload
		cfg.Source.Payload = r.Payload
	}
	if r.Bits != "" {
		if r.Payload != "" {
			return cfg, fmt.Errorf("payload and bits are mutually exclusive")
		}
		cfg.Source.Kind = config.SourceBits
		cfg.Source.Bits = r.Bits
	}
	if r.FEC != nil {
		cfg.Source.FEC = *r.FEC
	}
	if r.OnClip != "" {
		cfg.DAC.OnClip = r.OnClip
	}
	if r.NumBits != nil {
		n := *r.NumBits
		if n < 0 || n > config.MaxNumBits {
			return cfg, fmt.Errorf("numBits %d outside [0, %d]", n, config.MaxNumBits)
		}
		switch scheme {
		case synth.BPSK:
			cfg.BPSK.NumBits = n
		case synth.QPSK:
			cfg.QPSK.NumBits = n
		case synth.QAM16:
			cfg.QAM16.NumBits = n
		default:
			return cfg, fmt.Errorf("numBits does not apply to %s", scheme)
		}
	}
	return cfg, nil
}

// HandleWebSocket handles WebSocket upgrade requests.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	h.wsHub.AddClient(conn)

	// Drain client frames so control messages and close are processed.
	go func() {
		defer h.wsHub.RemoveClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// HandleGenerate synthesizes one scheme and returns the full result.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Parse request: %v", err), http.StatusBadRequest)
		return
	}
	scheme, err := synth.ParseScheme(req.Scheme)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cfg, err := req.apply(h.cfg, scheme)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.begin()
	defer h.end()
	h.wsHub.BroadcastStatus("generating", fmt.Sprintf("Generating %s...", scheme))

	res, err := synth.Generate(cfg, scheme)
	if err != nil {
		logx.Errorf("generate: %v", err)
		h.wsHub.BroadcastStatus("error", err.Error())
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	summary := res.Summary()
	logx.Infof("%s: %d samples at %g Hz", scheme, summary.NumSamples, summary.SampleRate)
	h.wsHub.BroadcastGenerated(summary)
	h.wsHub.BroadcastStatus("completed", fmt.Sprintf("%s generated", scheme))

	writeJSON(w, res)
}

// HandleConfig returns the server configuration.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.cfg)
}

// HandleSchemes lists the schemes and the DAC policy each uses under "auto".
func (h *Handlers) HandleSchemes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type entry struct {
		Name          string `json:"name"`
		DefaultPolicy string `json:"defaultPolicy"`
	}
	var out []entry
	for _, s := range synth.AllSchemes() {
		out = append(out, entry{Name: string(s), DefaultPolicy: s.DefaultPolicy().String()})
	}
	writeJSON(w, out)
}

// HandleStatus reports whether a generation is running.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	active := h.active
	h.mu.Unlock()

	status := "idle"
	if active > 0 {
		status = "generating"
	}
	writeJSON(w, map[string]any{
		"status":  status,
		"active":  active,
		"clients": h.wsHub.Clients(),
	})
}

func (h *Handlers) begin() {
	h.mu.Lock()
	h.active++
	h.mu.Unlock()
}

func (h *Handlers) end() {
	h.mu.Lock()
	h.active--
	h.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encode response: %v", err)
	}
}
