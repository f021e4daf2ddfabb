package system

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/coderunner.net/internal/core/services/execution"
	"gitlab.com/coderunner.net/internal/handlers"
)

const ServiceName = "code-runner"

type ApiHandler struct {
	ExecService execution.IExecutionService
	Version     string
}

func NewHandler(execService execution.IExecutionService, version string) *ApiHandler {
	return &ApiHandler{
		ExecService: execService,
		Version:     version,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/", api.Root).Methods(http.MethodGet)
	r.HandleFunc("/health", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/languages", api.Languages).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (api *ApiHandler) Root(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, map[string]string{
		"message": "Code Runner Service",
		"version": api.Version,
	})
}

func (api *ApiHandler) Health(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

type languageView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Extension      string  `json:"extension"`
	DefaultTimeout float64 `json:"default_timeout"`
}

func (api *ApiHandler) Languages(w http.ResponseWriter, r *http.Request) {
	langs := api.ExecService.Languages()
	views := make([]languageView, 0, len(langs))
	for _, l := range langs {
		views = append(views, languageView{
			ID:             l.ID,
			Name:           l.Name,
			Extension:      l.Extension,
			DefaultTimeout: l.DefaultTimeout.Seconds(),
		})
	}
	handlers.ResponseWithJson(w, http.StatusOK, map[string][]languageView{"languages": views})
}
