package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/2005lakshya/prodoc/internal/api"
	"github.com/2005lakshya/prodoc/internal/config"
	"github.com/2005lakshya/prodoc/internal/svcctx"
)

// ConfigResponse is the active configuration with secrets redacted.
type ConfigResponse struct {
	Server     config.ServerConfig     `json:"server"`
	Limits     config.LimitsConfig     `json:"limits"`
	Fields     []config.FieldConfig    `json:"fields"`
	Detectors  []string                `json:"detectors"`
	Thresholds config.ThresholdsConfig `json:"thresholds"`
	Scoring    config.ScoringConfig    `json:"scoring"`
	Report     config.ReportConfig     `json:"report"`
	Extractor  config.ExtractorConfig  `json:"extractor"`
	LLM        config.LLMConfig        `json:"llm"`
	PDF        config.PDFConfig        `json:"pdf"`
}

// ConfigEndpoint handles GET /api/config.
type ConfigEndpoint struct{}

var _ api.Endpoint = (*ConfigEndpoint)(nil)

func (e *ConfigEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/config", e.handler
}

func (e *ConfigEndpoint) RequiresInit() bool { return false }

func (e *ConfigEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	mgr := svcctx.ConfigFrom(r.Context())
	if mgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config not initialized")
		return
	}

	cfg := mgr.Get()
	resp := ConfigResponse{
		Server:     cfg.Server,
		Limits:     cfg.Limits,
		Fields:     cfg.Fields,
		Detectors:  cfg.Detectors,
		Thresholds: cfg.Thresholds,
		Scoring:    cfg.Scoring,
		Report:     cfg.Report,
		Extractor:  cfg.Extractor,
		LLM:        cfg.LLM,
		PDF:        cfg.PDF,
	}
	if resp.LLM.APIKey != "" {
		resp.LLM.APIKey = "[redacted]"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ConfigEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the server's active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ConfigResponse
			if err := client.Get(cmd.Context(), "/api/config", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
