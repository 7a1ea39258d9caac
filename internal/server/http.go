package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/klipprompt/internal/logging"
	"github.com/muurk/klipprompt/internal/prompt"
)

// ButtonView is a button as served to HTTP clients. Index is the value to
// pass to the choose endpoint.
type ButtonView struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Action string `json:"action,omitempty"`
	Color  string `json:"color,omitempty"`
}

// ContentView is one content item: "text", "button" or "group"
type ContentView struct {
	Type    string       `json:"type"`
	Text    string       `json:"text,omitempty"`
	Buttons []ButtonView `json:"buttons,omitempty"`
}

// PromptView is the JSON body of GET /prompt
type PromptView struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Contents []ContentView `json:"contents"`
	Footer   []ButtonView  `json:"footer"`
	Pending  bool          `json:"pending"`
	ShownAt  time.Time     `json:"shown_at"`
}

func newPromptView(d *displayed) *PromptView {
	v := &PromptView{
		ID:       d.id.String(),
		Title:    d.prompt.Title,
		Contents: []ContentView{},
		Footer:   []ButtonView{},
		Pending:  d.pending(),
		ShownAt:  d.shownAt,
	}

	index := 0
	button := func(b prompt.Button) ButtonView {
		bv := ButtonView{Index: index, Label: b.Label, Action: b.Action, Color: b.Color}
		index++
		return bv
	}

	for _, item := range d.prompt.Contents {
		switch c := item.(type) {
		case prompt.Text:
			v.Contents = append(v.Contents, ContentView{Type: "text", Text: string(c)})
		case prompt.Button:
			v.Contents = append(v.Contents, ContentView{Type: "button", Buttons: []ButtonView{button(c)}})
		case prompt.ButtonGroup:
			group := ContentView{Type: "group", Buttons: []ButtonView{}}
			for _, b := range c.Buttons {
				group.Buttons = append(group.Buttons, button(b))
			}
			v.Contents = append(v.Contents, group)
		}
	}
	for _, b := range d.prompt.FooterButtons {
		v.Footer = append(v.Footer, button(b))
	}
	return v
}

// errorBody is the JSON body of every error response
type errorBody struct {
	Error string `json:"error"`
}

// NewRouter builds the HTTP API around a presenter
func NewRouter(p *Presenter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/prompt", func(r chi.Router) {
		r.Get("/", handleGetPrompt(p))
		r.Post("/{id}/choose/{index}", handleChoose(p))
		r.Post("/{id}/dismiss", handleDismiss(p))
	})

	return r
}

func handleGetPrompt(p *Presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := p.View()
		if v == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleChoose(p *Presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := promptID(w, r)
		if !ok {
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrBadIndex)
			return
		}

		b, err := p.Choose(id, index)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, ButtonView{Index: index, Label: b.Label, Action: b.Action, Color: b.Color})
	}
}

func handleDismiss(p *Presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := promptID(w, r)
		if !ok {
			return
		}
		if err := p.Dismiss(id); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func promptID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid prompt id"))
		return uuid.UUID{}, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoPrompt):
		return http.StatusNotFound
	case errors.Is(err, ErrPending):
		return http.StatusConflict
	case errors.Is(err, ErrBadIndex):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// requestLogger logs every request through the shared zap logger
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, status, time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}
