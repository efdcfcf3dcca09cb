package cupidtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/xaenox/cupid-bot/internal/cupid"
	"github.com/xaenox/cupid-bot/internal/models"
)

// Handler serves the backend over the Cupid wire format.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		profile, err := b.GetUser(r.Context(), id)
		respond(w, http.StatusOK, profile, err)
	})

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var user models.User
		if !decode(w, r, &user) {
			return
		}
		created, err := b.CreateUser(r.Context(), user)
		respond(w, http.StatusCreated, created, err)
	})

	mux.HandleFunc("PATCH /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var edit cupid.UserEdit
		if !decode(w, r, &edit) {
			return
		}
		updated, err := b.EditUser(r.Context(), id, edit)
		respond(w, http.StatusOK, updated, err)
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		result, err := b.ListUsers(r.Context(), r.URL.Query().Get("search"), page)
		respond(w, http.StatusOK, result, err)
	})

	mux.HandleFunc("GET /users/{id}/relationships/{other}", func(w http.ResponseWriter, r *http.Request) {
		id, other, ok := pathPair(w, r)
		if !ok {
			return
		}
		rel, err := b.GetRelationship(r.Context(), id, other)
		respond(w, http.StatusOK, rel, err)
	})

	mux.HandleFunc("POST /users/{id}/relationships", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req struct {
			OtherID int64       `json:"other_id"`
			Kind    models.Kind `json:"kind"`
		}
		if !decode(w, r, &req) {
			return
		}
		respond(w, http.StatusNoContent, nil, b.CreateProposal(r.Context(), id, req.OtherID, req.Kind))
	})

	mux.HandleFunc("POST /users/{id}/relationships/{other}/accept", func(w http.ResponseWriter, r *http.Request) {
		id, other, ok := pathPair(w, r)
		if !ok {
			return
		}
		respond(w, http.StatusNoContent, nil, b.AcceptRelationship(r.Context(), id, other))
	})

	mux.HandleFunc("DELETE /users/{id}/relationships/{other}", func(w http.ResponseWriter, r *http.Request) {
		id, other, ok := pathPair(w, r)
		if !ok {
			return
		}
		accepted, err := strconv.ParseBool(r.URL.Query().Get("accepted"))
		if err != nil {
			writeError(w, cupid.NewAPIError(http.StatusBadRequest, "Missing expected relationship state."))
			return
		}
		respond(w, http.StatusNoContent, nil, b.DeleteRelationship(r.Context(), id, other, accepted))
	})

	mux.HandleFunc("GET /graph", func(w http.ResponseWriter, r *http.Request) {
		graph, err := b.GetGraph(r.Context())
		respond(w, http.StatusOK, graph, err)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Token != "" && r.Header.Get("Authorization") != "Bearer "+b.Token {
			writeError(w, cupid.NewAPIError(http.StatusUnauthorized, "Invalid app token."))
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// NewServer starts an httptest server for the backend. The caller closes it.
func NewServer(b *Backend) *httptest.Server {
	return httptest.NewServer(b.Handler())
}

func respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		var apiErr *cupid.APIError
		if !errors.As(err, &apiErr) {
			apiErr = cupid.NewAPIError(http.StatusInternalServerError, err.Error())
		}
		writeError(w, apiErr)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, apiErr *cupid.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	_ = json.NewEncoder(w).Encode(apiErr)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, cupid.NewAPIError(http.StatusBadRequest, "Invalid JSON body."))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, cupid.NewAPIError(http.StatusBadRequest, "Invalid user ID."))
		return 0, false
	}
	return id, true
}

func pathPair(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	other, ok := pathID(w, r, "other")
	if !ok {
		return 0, 0, false
	}
	return id, other, true
}
