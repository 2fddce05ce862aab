package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/core/ports"
	"github.com/lexygraph/docflow/internal/observability/metrics"
)

type Options struct {
	Service        string
	WorkerAPIKey   string
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	ingestor ports.DocumentIngestor
	reader   ports.DocumentReader
	manager  ports.DocumentManager
	signaler ports.PipelineSignaler
	agents   ports.AgentRouter
	verifier ports.IdentityVerifier
	files    ports.ObjectStorage
	verify   func(key, sig string, expires int64) bool
	metrics  *metrics.HTTPServerMetrics
	opts     Options
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	reader ports.DocumentReader,
	manager ports.DocumentManager,
	signaler ports.PipelineSignaler,
	agents ports.AgentRouter,
	verifier ports.IdentityVerifier,
	files ports.ObjectStorage,
	verifySignature func(key, sig string, expires int64) bool,
	m *metrics.HTTPServerMetrics,
	opts Options,
) *Router {
	return &Router{
		ingestor: ingestor,
		reader:   reader,
		manager:  manager,
		signaler: signaler,
		agents:   agents,
		verifier: verifier,
		files:    files,
		verify:   verifySignature,
		metrics:  m,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/documents", rt.requireUser(rt.submitDocument))
	mux.HandleFunc("/v1/documents/batch", rt.requireUser(rt.submitBatch))
	mux.HandleFunc("/v1/documents/", rt.requireUser(rt.documentByID))
	mux.HandleFunc("/v1/collections/", rt.requireUser(rt.collectionDocuments))
	mux.HandleFunc("/v1/agents/route", rt.routeAgent)
	mux.HandleFunc("/internal/documents/", rt.requireWorkerKey(rt.internalSignal))
	mux.HandleFunc("/files/", rt.serveFile)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.opts.Service, handler)
	}
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, 100*time.Millisecond)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireUser resolves the bearer token to a user id before the handler runs.
func (rt *Router) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := rt.verifier.Verify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := contextWithUserID(r.Context(), userID)
		next(w, r.WithContext(ctx))
	}
}

func (rt *Router) requireWorkerKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rt.opts.WorkerAPIKey == "" || r.Header.Get("X-Worker-Key") != rt.opts.WorkerAPIKey {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized", "missing or invalid worker key"))
			return
		}
		next(w, r)
	}
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "multipart field 'file' is required"))
		return
	}
	defer file.Close()

	cmd := ports.SubmitCommand{
		UserID:         userIDFromContext(r.Context()),
		Name:           fileHeader.Filename,
		Description:    r.FormValue("description"),
		MimeType:       fileHeader.Header.Get("Content-Type"),
		CollectionID:   r.FormValue("collection_id"),
		Tags:           splitTags(r.FormValue("tags")),
		ProcessingType: domain.ProcessingType(strings.ToUpper(strings.TrimSpace(r.FormValue("processing_type")))),
		Size:           fileHeader.Size,
		Body:           file,
	}

	doc, err := rt.ingestor.Submit(r.Context(), cmd)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrTemporary) {
			if stage, ok := domain.InitialStage(cmd.ProcessingType); ok {
				rt.metrics.RecordEnqueueFailure(rt.opts.Service, string(stage))
			}
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDocumentSubmitted(rt.opts.Service, string(doc.ProcessingType))
		if stage, ok := domain.InitialStage(doc.ProcessingType); ok {
			rt.metrics.RecordStageEnqueued(rt.opts.Service, string(stage))
		}
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed multipart body"))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "multipart field 'files' is required"))
		return
	}

	userID := userIDFromContext(r.Context())
	processingType := domain.ProcessingType(strings.ToUpper(strings.TrimSpace(r.FormValue("processing_type"))))
	collectionID := r.FormValue("collection_id")
	tags := splitTags(r.FormValue("tags"))

	cmds := make([]ports.SubmitCommand, 0, len(headers))
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "unreadable multipart file"))
			return
		}
		closers = append(closers, f)
		cmds = append(cmds, ports.SubmitCommand{
			UserID:         userID,
			Name:           fh.Filename,
			MimeType:       fh.Header.Get("Content-Type"),
			CollectionID:   collectionID,
			Tags:           tags,
			ProcessingType: processingType,
			Size:           fh.Size,
			Body:           f,
		})
	}

	outcomes := rt.ingestor.SubmitBatch(r.Context(), cmds)
	if rt.metrics != nil {
		for _, o := range outcomes {
			if o.Document == nil {
				continue
			}
			rt.metrics.RecordDocumentSubmitted(rt.opts.Service, string(o.Document.ProcessingType))
			if stage, ok := domain.InitialStage(o.Document.ProcessingType); ok {
				rt.metrics.RecordStageEnqueued(rt.opts.Service, string(stage))
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, suffix, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "document id is required"))
		return
	}
	userID := userIDFromContext(r.Context())

	switch suffix {
	case "":
		switch r.Method {
		case http.MethodGet:
			doc, err := rt.reader.GetByID(r.Context(), userID, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
		case http.MethodPatch:
			rt.updateMetadata(w, r, userID, id)
		case http.MethodDelete:
			if err := rt.manager.Delete(r.Context(), userID, id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
		}
	case "status":
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
			return
		}
		view, err := rt.reader.Status(r.Context(), userID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case "download":
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
			return
		}
		url, err := rt.manager.DownloadURL(r.Context(), userID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	default:
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "unknown document resource"))
	}
}

func (rt *Router) updateMetadata(w http.ResponseWriter, r *http.Request, userID, id string) {
	var body struct {
		Name        *string   `json:"name"`
		Description *string   `json:"description"`
		Tags        *[]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed json body"))
		return
	}

	doc, err := rt.manager.UpdateMetadata(r.Context(), userID, id, domain.MetadataEdit{
		Name:        body.Name,
		Description: body.Description,
		Tags:        body.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) collectionDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/collections/")
	collectionID, suffix, _ := strings.Cut(rest, "/")
	if collectionID == "" || suffix != "documents" {
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "unknown collection resource"))
		return
	}

	docs, err := rt.manager.ListByCollection(r.Context(), userIDFromContext(r.Context()), collectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// routeAgent forwards the caller's bearer token verbatim; the downstream
// agent owns its validation.
func (rt *Router) routeAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
		return
	}

	var req domain.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed json body"))
		return
	}
	fwd := domain.ForwardContext{
		Authorization: r.Header.Get("Authorization"),
		CorrelationID: strings.TrimSpace(r.Header.Get(correlationIDHeader)),
	}

	start := time.Now()
	result, err := rt.agents.Route(r.Context(), req, fwd)
	if rt.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		rt.metrics.RecordRouteRequest(rt.opts.Service, req.TargetAgent, outcome, time.Since(start))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) internalSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/internal/documents/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "document id is required"))
		return
	}

	switch action {
	case "advance":
		var body struct {
			From domain.DocumentStatus `json:"from"`
			To   domain.DocumentStatus `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed json body"))
			return
		}
		err := rt.signaler.Advance(r.Context(), id, body.From, body.To)
		if rt.metrics != nil {
			rt.metrics.RecordTransition(rt.opts.Service, string(body.From), string(body.To), err == nil)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "fail":
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed json body"))
			return
		}
		if err := rt.signaler.Fail(r.Context(), id, body.Reason); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "unknown signal action"))
	}
}

func (rt *Router) serveFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/files/")
	if key == "" {
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "unknown file"))
		return
	}

	expires, err := strconv.ParseInt(r.URL.Query().Get("expires"), 10, 64)
	if err != nil || rt.verify == nil || !rt.verify(key, r.URL.Query().Get("sig"), expires) {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized", "invalid or expired download link"))
		return
	}

	rc, err := rt.files.Open(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+key+"\"")
	if _, err := io.Copy(w, rc); err != nil && !errors.Is(err, io.EOF) {
		return
	}
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
