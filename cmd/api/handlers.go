package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/app"
	"team-insights-go/internal/logger"
	"team-insights-go/internal/processor"
	"team-insights-go/internal/profile"
	"team-insights-go/internal/team"
	"team-insights-go/internal/types"
)

type engine interface {
	Authorize(ctx context.Context, projectID, userID string) error
	CanAccess(ctx context.Context, projectID, userID string) (bool, error)
	AnalyzePerson(ctx context.Context, projectID, personID string, opts profile.Options) (*profile.Result, error)
	AnalyzeTeam(ctx context.Context, projectID string, opts team.Options) (*app.TeamReport, error)
	TranscriptIngested(ctx context.Context, projectID, documentID string, names []string) (*processor.IngestResult, error)
}

func newMux(e engine, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		log.WithRequest(r).Debug("health check")
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("POST /projects/{project}/people/{person}/analyze", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "analyze_person")
		projectID, personID := r.PathValue("project"), r.PathValue("person")
		reqLog = reqLog.WithFields(logrus.Fields{"project_id": projectID, "person_id": personID})

		if err := e.Authorize(r.Context(), projectID, r.URL.Query().Get("user")); err != nil {
			writeError(w, reqLog, err)
			return
		}
		res, err := e.AnalyzePerson(r.Context(), projectID, personID, profile.Options{Force: flag(r, "force")})
		if err != nil {
			writeError(w, reqLog, err)
			return
		}
		reqLog.WithField("mode", res.Mode).Info("person analyzed")
		writeJSON(w, reqLog, http.StatusOK, res)
	})

	mux.HandleFunc("POST /projects/{project}/team/analyze", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "analyze_team")
		projectID := r.PathValue("project")
		reqLog = reqLog.WithField("project_id", projectID)

		if err := e.Authorize(r.Context(), projectID, r.URL.Query().Get("user")); err != nil {
			writeError(w, reqLog, err)
			return
		}
		res, err := e.AnalyzeTeam(r.Context(), projectID, team.Options{Force: flag(r, "force")})
		if err != nil {
			writeError(w, reqLog, err)
			return
		}
		reqLog.WithField("recomputed", res.Recomputed).Info("team analyzed")
		writeJSON(w, reqLog, http.StatusOK, res)
	})

	mux.HandleFunc("POST /projects/{project}/transcripts/{document}/ingested", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "transcript_ingested")
		projectID, documentID := r.PathValue("project"), r.PathValue("document")
		reqLog = reqLog.WithFields(logrus.Fields{"project_id": projectID, "document_id": documentID})

		var body struct {
			Names []string `json:"names"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil || len(body.Names) == 0 {
			reqLog.Warn("missing or invalid names")
			http.Error(w, `body must be {"names": [...]}`, http.StatusBadRequest)
			return
		}
		if err := e.Authorize(r.Context(), projectID, r.URL.Query().Get("user")); err != nil {
			writeError(w, reqLog, err)
			return
		}
		res, err := e.TranscriptIngested(r.Context(), projectID, documentID, body.Names)
		if err != nil {
			writeError(w, reqLog, err)
			return
		}
		writeJSON(w, reqLog, http.StatusOK, res)
	})

	mux.HandleFunc("GET /projects/{project}/access", func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.WithRequest(r).WithField("handler", "access")
		ok, err := e.CanAccess(r.Context(), r.PathValue("project"), r.URL.Query().Get("user"))
		if err != nil {
			writeError(w, reqLog, err)
			return
		}
		writeJSON(w, reqLog, http.StatusOK, map[string]bool{"allowed": ok})
	})

	return mux
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNoTranscripts), errors.Is(err, types.ErrInsufficientTeam):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrNoLLMConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrGeneration), errors.Is(err, types.ErrParse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	status := statusFor(err)
	entry := log.WithError(err).WithField("status", status)
	if status >= 500 {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	writeJSON(w, log, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, log *logrus.Entry, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

func flag(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
